package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/feedora/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeES struct {
	mu       sync.Mutex
	requests []string
	bodies   map[string]string
	search   string
	reject   string // path whose writes fail with a mapping error
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	key := r.Method + " " + r.URL.Path
	f.requests = append(f.requests, key)
	f.bodies[key] = string(body)
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case f.reject != "" && r.URL.Path == f.reject:
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"type":"mapper_parsing_exception"},"status":400}`)
	case r.Method == http.MethodGet && r.URL.Path == "/":
		io.WriteString(w, `{"version":{"number":"9.0.0"},"tagline":"You Know, for Search"}`)
	case r.Method == http.MethodDelete && strings.HasSuffix(r.URL.Path, "/missing"):
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"result":"not_found"}`)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/_search"):
		io.WriteString(w, f.search)
	default:
		io.WriteString(w, `{"result":"ok"}`)
	}
}

func newTestClient(t *testing.T) (*Client, *fakeES) {
	t.Helper()
	fake := &fakeES{bodies: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	return c, fake
}

func TestIndexRecipeUsesDocumentID(t *testing.T) {
	c, fake := newTestClient(t)

	err := c.IndexRecipe(context.Background(), RecipeDocument{ID: "r1", Title: "Pancakes", Ingredients: []string{"flour"}})
	require.NoError(t, err)

	body, ok := fake.bodies["PUT /recipes/_doc/r1"]
	require.True(t, ok, fake.requests)
	var doc RecipeDocument
	require.NoError(t, json.Unmarshal([]byte(body), &doc))
	assert.Equal(t, "Pancakes", doc.Title)
}

func TestDeleteRecipeIgnoresMissing(t *testing.T) {
	c, _ := newTestClient(t)
	assert.NoError(t, c.DeleteRecipe(context.Background(), "missing"))
	assert.NoError(t, c.DeleteRecipe(context.Background(), "r1"))
}

func TestSearchRecipesReturnsIDsInOrder(t *testing.T) {
	c, fake := newTestClient(t)
	fake.search = `{"hits":{"total":{"value":7},"hits":[{"_id":"b"},{"_id":"a"}]}}`

	ids, total, err := c.SearchRecipes(context.Background(), "pancake", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids)
	assert.Equal(t, int64(7), total)
	assert.Contains(t, fake.bodies["POST /recipes/_search"], `"multi_match"`)
}

func TestDocumentFor(t *testing.T) {
	r := &models.Recipe{
		ID:          "r1",
		UserID:      "u1",
		Title:       "Shakshuka",
		PrepMinutes: 10,
		CookMinutes: 20,
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Category:    &models.Category{Name: "breakfast"},
		Difficulty:  &models.RecipeDifficulty{Difficulty: &models.Difficulty{Name: "easy"}},
		Ingredients: []models.RecipeIngredient{
			{Ingredient: &models.Ingredient{Name: "egg"}},
			{Ingredient: &models.Ingredient{Name: "tomato"}},
		},
	}

	doc := DocumentFor(r)
	assert.Equal(t, "breakfast", doc.Category)
	assert.Equal(t, "easy", doc.Difficulty)
	assert.Equal(t, []string{"egg", "tomato"}, doc.Ingredients)
	assert.Equal(t, 30, doc.TotalMinutes)
}
