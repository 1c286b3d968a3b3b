package seed

import (
	"context"
	"testing"

	"github.com/feedora/backend/internal/database/dbtest"
	"github.com/feedora/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedAndClean(t *testing.T) {
	db := dbtest.New(t)
	bystander := dbtest.CreateUser(t, db, "Bystander")
	ctx := context.Background()

	rep, err := NewSeeder(db).Seed(ctx, Config{
		Users:           4,
		PostsPerUser:    2,
		RecipesPerUser:  1,
		CommentsPerPost: 2,
		FollowRatio:     1,
		ReactionRatio:   1,
		Seed:            42,
	})
	require.NoError(t, err)

	assert.Equal(t, Report{Users: 4, Follows: 12, Posts: 8, Recipes: 4, Comments: 16, Reactions: 32}, rep)

	var recipes []models.Recipe
	require.NoError(t, db.Preload("Ingredients.Unit").Find(&recipes).Error)
	require.Len(t, recipes, 4)
	for _, r := range recipes {
		assert.NotEmpty(t, r.Ingredients)
		for _, ing := range r.Ingredients {
			require.NotNil(t, ing.Unit)
			assert.NotContains(t, []string{"oz", "lb"}, ing.Unit.Name, "units are stored canonically")
		}
	}

	total, err := NewSeeder(db).TotalUsers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)

	var notifications int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&notifications).Error)
	assert.Zero(t, notifications)

	removed, err := NewSeeder(db).Clean(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, removed)

	for _, m := range []any{&models.Post{}, &models.Comment{}, &models.PostReaction{}, &models.Follow{}, &models.Recipe{}, &models.RecipeIngredient{}} {
		var n int64
		require.NoError(t, db.Model(m).Count(&n).Error)
		assert.Zero(t, n, "%T", m)
	}

	total, err = NewSeeder(db).TotalUsers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, bystander.ID, users[0].ID)
}

func TestSeed_Empty(t *testing.T) {
	rep, err := NewSeeder(dbtest.New(t)).Seed(context.Background(), Config{})
	require.NoError(t, err)
	assert.Equal(t, Report{}, rep)
}
