// Package handlers exposes Feedora's services as JSON over HTTP.
package handlers

import (
	"github.com/feedora/backend/internal/auth"
	"github.com/feedora/backend/internal/comments"
	"github.com/feedora/backend/internal/notifications"
	"github.com/feedora/backend/internal/posts"
	"github.com/feedora/backend/internal/recipes"
	"github.com/feedora/backend/internal/repository"
	"github.com/feedora/backend/internal/social"
	"github.com/feedora/backend/internal/storage"
	"github.com/feedora/backend/internal/stories"
)

// Deps are the services behind the API.
type Deps struct {
	Auth          auth.AuthService
	Users         repository.UserRepository
	Follows       *social.FollowService
	Reactions     *social.ReactionService
	CommentLikes  *social.CommentLikeService
	Comments      *comments.Service
	Notifications *notifications.Service
	Posts         *posts.Service
	Recipes       *recipes.Service
	Stories       *stories.Service
	Media         storage.MediaStore
}

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	auth          auth.AuthService
	users         repository.UserRepository
	follows       *social.FollowService
	reactions     *social.ReactionService
	commentLikes  *social.CommentLikeService
	comments      *comments.Service
	notifications *notifications.Service
	posts         *posts.Service
	recipes       *recipes.Service
	stories       *stories.Service
	media         storage.MediaStore
}

// NewHandlers creates a new handlers instance
func NewHandlers(d Deps) *Handlers {
	return &Handlers{
		auth:          d.Auth,
		users:         d.Users,
		follows:       d.Follows,
		reactions:     d.Reactions,
		commentLikes:  d.CommentLikes,
		comments:      d.Comments,
		notifications: d.Notifications,
		posts:         d.Posts,
		recipes:       d.Recipes,
		stories:       d.Stories,
		media:         d.Media,
	}
}
