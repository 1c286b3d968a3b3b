package handlers

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the API on api (normally /api/v1). requireAuth must
// reject anonymous callers; optionalAuth attaches a caller when present.
// authLimit is applied to the credential endpoints and may be nil.
func (h *Handlers) RegisterRoutes(api *gin.RouterGroup, requireAuth, optionalAuth, authLimit gin.HandlerFunc) {
	RegisterValidators()

	authGroup := api.Group("/auth")
	if authLimit != nil {
		authGroup.Use(authLimit)
	}
	authGroup.POST("/register", h.Register)
	authGroup.POST("/login", h.Login)
	authGroup.POST("/password-reset/request", h.RequestPasswordReset)
	authGroup.POST("/password-reset/confirm", h.ConfirmPasswordReset)
	api.GET("/auth/me", requireAuth, h.Me)

	// Public reads; the caller, when signed in, personalises counts.
	public := api.Group("", optionalAuth)
	public.GET("/posts", h.ListPosts)
	public.GET("/posts/:id", h.GetPost)
	public.GET("/posts/:id/reactions", h.GetPostReactions)
	public.GET("/users/:id", h.GetProfile)
	public.GET("/users/:id/followers", h.GetFollowers)
	public.GET("/users/:id/following", h.GetFollowing)
	public.GET("/recipes", h.ListRecipes)
	public.GET("/recipes/:id", h.GetRecipe)
	public.GET("/units", h.ListUnits)
	public.GET("/categories", h.ListCategories)

	authed := api.Group("", requireAuth)

	authed.POST("/toggle-reaction", h.ToggleReaction)
	authed.POST("/toggle-follow", h.ToggleFollow)
	authed.POST("/add-comment", h.AddComment)
	authed.POST("/comments-page", h.CommentsPage)
	authed.POST("/notifications-page", h.NotificationsPage)
	authed.POST("/mark-notifications-read", h.MarkNotificationsRead)

	authed.POST("/mark-all-notifications-read", h.MarkAllNotificationsRead)
	authed.GET("/notifications/unread-count", h.UnreadNotificationCount)
	authed.DELETE("/notifications/:id", h.DeleteNotification)

	authed.POST("/toggle-comment-like", h.ToggleCommentLike)
	authed.DELETE("/comments/:id", h.DeleteComment)

	authed.POST("/posts", h.CreatePost)
	authed.DELETE("/posts/:id", h.DeletePost)

	authed.PUT("/users/me", h.UpdateProfile)
	authed.POST("/users/me/profile-image", h.UploadProfileImage)
	authed.POST("/users/me/banner-image", h.UploadBannerImage)

	// Static /recipes/saved wins over the public /recipes/:id.
	authed.GET("/recipes/saved", h.SavedRecipes)
	authed.POST("/recipes", h.CreateRecipe)
	authed.PUT("/recipes/:id", h.UpdateRecipe)
	authed.DELETE("/recipes/:id", h.DeleteRecipe)
	authed.POST("/recipes/:id/photo", h.UploadRecipePhoto)
	authed.POST("/recipes/:id/toggle-save", h.ToggleSaveRecipe)

	authed.GET("/stories", h.ListStories)
	authed.POST("/stories", h.CreateStory)
	authed.POST("/stories/:id/view", h.ViewStory)
	authed.GET("/stories/:id/views", h.StoryViews)
}
