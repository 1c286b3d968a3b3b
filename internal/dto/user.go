package dto

import (
	"time"

	"github.com/feedora/backend/internal/models"
	"github.com/feedora/backend/internal/repository"
)

// UserResponse is the public user representation (safe for API responses)
type UserResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Bio             string    `json:"bio"`
	ProfileImageURL string    `json:"profileImageUrl"`
	BannerImageURL  string    `json:"bannerImageUrl"`
	CreatedAt       time.Time `json:"createdAt"`
}

// ProfileResponse is a user page: the public fields, counts and, for a signed
// in caller looking at someone else, whether they follow them.
type ProfileResponse struct {
	UserResponse
	repository.UserStats
	IsFollowing *bool `json:"isFollowing,omitempty"`
}

// UserDetailResponse adds private fields for the account owner.
type UserDetailResponse struct {
	UserResponse
	Email       string     `json:"email"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// ToUserResponse converts models.User to UserResponse (excludes sensitive fields)
func ToUserResponse(user *models.User) *UserResponse {
	if user == nil {
		return nil
	}
	return &UserResponse{
		ID:              user.ID,
		Name:            user.Name,
		Bio:             user.Bio,
		ProfileImageURL: user.ProfileImageURL,
		BannerImageURL:  user.BannerImageURL,
		CreatedAt:       user.CreatedAt,
	}
}

// ToProfileResponse combines a user with its stats.
func ToProfileResponse(user *models.User, stats *repository.UserStats, isFollowing *bool) *ProfileResponse {
	if user == nil {
		return nil
	}
	resp := &ProfileResponse{UserResponse: *ToUserResponse(user), IsFollowing: isFollowing}
	if stats != nil {
		resp.UserStats = *stats
	}
	return resp
}

// ToUserDetailResponse converts models.User to UserDetailResponse (includes private fields)
func ToUserDetailResponse(user *models.User) *UserDetailResponse {
	if user == nil {
		return nil
	}
	return &UserDetailResponse{
		UserResponse: *ToUserResponse(user),
		Email:        user.Email,
		LastLoginAt:  user.LastLoginAt,
	}
}
