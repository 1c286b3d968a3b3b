package handlers

import (
	"net/http"

	"github.com/feedora/backend/internal/auth"
	"github.com/feedora/backend/internal/dto"
	"github.com/feedora/backend/internal/middleware"
	"github.com/feedora/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// Register creates an account
// POST /api/v1/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondSuccess(c, http.StatusCreated, authPayload(resp))
}

// Login exchanges email and password for a token
// POST /api/v1/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req auth.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondOK(c, authPayload(resp))
}

func authPayload(resp *auth.AuthResponse) gin.H {
	return gin.H{
		"token":     resp.Token,
		"expiresAt": resp.ExpiresAt,
		"user":      dto.ToUserDetailResponse(resp.User),
	}
}

// RequestPasswordReset always answers 200 so it cannot be used to probe for accounts
// POST /api/v1/auth/password-reset/request
func (h *Handlers) RequestPasswordReset(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := h.auth.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondOK(c, gin.H{"message": "if that email is registered, a reset link is on its way"})
}

// ConfirmPasswordReset sets a new password with a reset token
// POST /api/v1/auth/password-reset/confirm
func (h *Handlers) ConfirmPasswordReset(c *gin.Context) {
	var req struct {
		Token       string `json:"token" binding:"required"`
		NewPassword string `json:"newPassword" binding:"required,min=8,max=72"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := h.auth.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondOK(c, nil)
}

// Me returns the signed-in account
// GET /api/v1/auth/me
func (h *Handlers) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		// Header-based test auth only sets the principal.
		u, err := h.users.GetUser(c.Request.Context(), util.Principal(c).UserID)
		if err != nil {
			util.RespondWithError(c, err)
			return
		}
		user = u
	}
	util.RespondOK(c, gin.H{"user": dto.ToUserDetailResponse(user)})
}
