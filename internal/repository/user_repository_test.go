package repository

import (
	"context"
	"testing"

	"github.com/feedora/backend/internal/database/dbtest"
	apperrors "github.com/feedora/backend/internal/errors"
	"github.com/feedora/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestUpdateProfile(t *testing.T) {
	db := dbtest.New(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	u := dbtest.CreateUser(t, db, "Mina")

	got, err := repo.UpdateProfile(ctx, u.ID, ProfileUpdate{Bio: strPtr("  bakes bread  ")})
	require.NoError(t, err)
	assert.Equal(t, "Mina", got.Name)
	assert.Equal(t, "bakes bread", got.Bio)

	_, err = repo.UpdateProfile(ctx, u.ID, ProfileUpdate{Name: strPtr("   ")})
	assert.ErrorIs(t, err, apperrors.ErrInvalid)

	_, err = repo.UpdateProfile(ctx, models.NewID(), ProfileUpdate{Name: strPtr("x")})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReplaceImageReturnsPreviousKey(t *testing.T) {
	db := dbtest.New(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	u := dbtest.CreateUser(t, db, "Mina")

	old, err := repo.ReplaceImage(ctx, u.ID, ProfileImage, "/media/a.png", "profiles/a.png")
	require.NoError(t, err)
	assert.Empty(t, old)

	old, err = repo.ReplaceImage(ctx, u.ID, ProfileImage, "/media/b.png", "profiles/b.png")
	require.NoError(t, err)
	assert.Equal(t, "profiles/a.png", old)

	got, err := repo.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "/media/b.png", got.ProfileImageURL)
	assert.Empty(t, got.BannerImageURL)

	_, err = repo.ReplaceImage(ctx, u.ID, ImageSlot("avatar"), "x", "y")
	assert.ErrorIs(t, err, apperrors.ErrInvalid)
}

func TestStats(t *testing.T) {
	db := dbtest.New(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	chef := dbtest.CreateUser(t, db, "Chef")
	fan := dbtest.CreateUser(t, db, "Fan")
	other := dbtest.CreateUser(t, db, "Other")

	dbtest.Follow(t, db, fan.ID, chef.ID)
	dbtest.Follow(t, db, other.ID, chef.ID)
	dbtest.Follow(t, db, chef.ID, fan.ID)
	dbtest.CreatePost(t, db, chef.ID, "one")
	dbtest.CreatePost(t, db, chef.ID, "two")

	st, err := repo.Stats(ctx, chef.ID)
	require.NoError(t, err)
	assert.Equal(t, UserStats{FollowerCount: 2, FollowingCount: 1, PostCount: 2}, *st)

	total, err := repo.GetTotalUserCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
}
