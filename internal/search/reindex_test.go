package search

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/feedora/backend/internal/database/dbtest"
	"github.com/feedora/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReindexCountsIndexedAndFailed(t *testing.T) {
	db := dbtest.New(t)
	author := dbtest.CreateUser(t, db, "Ana")

	var category models.Category
	require.NoError(t, db.First(&category).Error)

	titles := []string{"Pancakes", "Shakshuka", "Ramen"}
	recipes := make([]models.Recipe, len(titles))
	for i, title := range titles {
		recipes[i] = models.Recipe{UserID: author.ID, Title: title, CategoryID: &category.ID}
		require.NoError(t, db.Create(&recipes[i]).Error)
	}

	c, fake := newTestClient(t)
	fake.reject = "/recipes/_doc/" + recipes[1].ID

	indexed, failed, err := c.Reindex(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, 2, indexed)
	assert.Equal(t, 1, failed)

	for _, r := range []models.Recipe{recipes[0], recipes[2]} {
		body, ok := fake.bodies[http.MethodPut+" /recipes/_doc/"+r.ID]
		require.True(t, ok, fake.requests)
		var doc RecipeDocument
		require.NoError(t, json.Unmarshal([]byte(body), &doc))
		assert.Equal(t, r.Title, doc.Title)
		assert.Equal(t, category.Name, doc.Category)
	}
}

func TestReindexEmptyDatabase(t *testing.T) {
	c, fake := newTestClient(t)

	indexed, failed, err := c.Reindex(context.Background(), dbtest.New(t))
	require.NoError(t, err)
	assert.Zero(t, indexed)
	assert.Zero(t, failed)
	assert.Equal(t, []string{"GET /"}, fake.requests)
}
