package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	apperrors "github.com/feedora/backend/internal/errors"
	"github.com/feedora/backend/internal/models"
	"gorm.io/gorm"
)

const (
	maxNameRunes = 100
	maxBioRunes  = 500
)

// ImageSlot names one of the user's profile images.
type ImageSlot string

const (
	ProfileImage ImageSlot = "profile"
	BannerImage  ImageSlot = "banner"
)

func (s ImageSlot) columns() (urlCol, keyCol string, ok bool) {
	switch s {
	case ProfileImage:
		return "profile_image_url", "profile_image_key", true
	case BannerImage:
		return "banner_image_url", "banner_image_key", true
	}
	return "", "", false
}

// ProfileUpdate carries the editable profile fields. Nil fields are left alone.
type ProfileUpdate struct {
	Name *string `json:"name" binding:"omitempty,max=100"`
	Bio  *string `json:"bio" binding:"omitempty,max=500"`
}

// UserStats are the counts shown on a profile. None are stored; all are
// computed per read.
type UserStats struct {
	FollowerCount  int64 `json:"followerCount"`
	FollowingCount int64 `json:"followingCount"`
	PostCount      int64 `json:"postCount"`
	RecipeCount    int64 `json:"recipeCount"`
}

// UserRepository handles profile reads and writes.
type UserRepository interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetUsers(ctx context.Context, userIDs []string) ([]*models.User, error)
	UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*models.User, error)
	// ReplaceImage stores a new image and returns the storage key it replaced.
	ReplaceImage(ctx context.Context, userID string, slot ImageSlot, url, key string) (string, error)
	Stats(ctx context.Context, userID string) (*UserStats, error)
	GetTotalUserCount(ctx context.Context) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return getUser(r.db.WithContext(ctx), userID)
}

func getUser(db *gorm.DB, userID string) (*models.User, error) {
	var user models.User
	err := db.Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFoundf("user")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) GetUsers(ctx context.Context, userIDs []string) ([]*models.User, error) {
	var users []*models.User
	if len(userIDs) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error
	return users, err
}

func (r *userRepository) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*models.User, error) {
	updates := map[string]any{}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, apperrors.Invalidf("name cannot be empty")
		}
		if utf8.RuneCountInString(name) > maxNameRunes {
			return nil, apperrors.Invalidf("name must be at most %d characters", maxNameRunes)
		}
		updates["name"] = name
	}
	if upd.Bio != nil {
		bio := strings.TrimSpace(*upd.Bio)
		if utf8.RuneCountInString(bio) > maxBioRunes {
			return nil, apperrors.Invalidf("bio must be at most %d characters", maxBioRunes)
		}
		updates["bio"] = bio
	}

	var user *models.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if user, err = getUser(tx, userID); err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		user, err = getUser(tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) ReplaceImage(ctx context.Context, userID string, slot ImageSlot, url, key string) (string, error) {
	urlCol, keyCol, ok := slot.columns()
	if !ok {
		return "", apperrors.Invalidf("unknown image slot %q", slot)
	}

	var old string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := getUser(tx, userID)
		if err != nil {
			return err
		}
		if slot == ProfileImage {
			old = user.ProfileImageKey
		} else {
			old = user.BannerImageKey
		}
		return tx.Model(&models.User{}).Where("id = ?", userID).
			Updates(map[string]any{urlCol: url, keyCol: key}).Error
	})
	if err != nil {
		return "", err
	}
	return old, nil
}

func (r *userRepository) Stats(ctx context.Context, userID string) (*UserStats, error) {
	db := r.db.WithContext(ctx)
	if _, err := getUser(db, userID); err != nil {
		return nil, err
	}

	var st UserStats
	counts := []struct {
		model any
		where string
		dst   *int64
	}{
		{&models.Follow{}, "followee_id = ?", &st.FollowerCount},
		{&models.Follow{}, "follower_id = ?", &st.FollowingCount},
		{&models.Post{}, "user_id = ?", &st.PostCount},
		{&models.Recipe{}, "user_id = ?", &st.RecipeCount},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Where(c.where, userID).Count(c.dst).Error; err != nil {
			return nil, fmt.Errorf("user stats: %w", err)
		}
	}
	return &st, nil
}

func (r *userRepository) GetTotalUserCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}
