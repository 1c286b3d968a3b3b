package search

import (
	"time"

	"github.com/feedora/backend/internal/models"
)

// RecipeDocument is the indexed form of a recipe.
type RecipeDocument struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	Instructions string    `json:"instructions"`
	Category     string    `json:"category,omitempty"`
	Difficulty   string    `json:"difficulty,omitempty"`
	Ingredients  []string  `json:"ingredients"`
	TotalMinutes int       `json:"total_minutes"`
	CreatedAt    time.Time `json:"created_at"`
}

// DocumentFor builds the index document for r. Category, Difficulty and
// Ingredients are read from preloaded associations when present.
func DocumentFor(r *models.Recipe) RecipeDocument {
	doc := RecipeDocument{
		ID:           r.ID,
		UserID:       r.UserID,
		Title:        r.Title,
		Instructions: r.Instructions,
		Ingredients:  make([]string, 0, len(r.Ingredients)),
		TotalMinutes: r.PrepMinutes + r.CookMinutes,
		CreatedAt:    r.CreatedAt,
	}
	if r.Category != nil {
		doc.Category = r.Category.Name
	}
	if r.Difficulty != nil && r.Difficulty.Difficulty != nil {
		doc.Difficulty = r.Difficulty.Difficulty.Name
	}
	for _, ri := range r.Ingredients {
		if ri.Ingredient != nil {
			doc.Ingredients = append(doc.Ingredients, ri.Ingredient.Name)
		}
	}
	return doc
}

var recipeMapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"id":      map[string]any{"type": "keyword"},
			"user_id": map[string]any{"type": "keyword"},
			"title": map[string]any{
				"type":     "text",
				"analyzer": "standard",
				"fields": map[string]any{
					"keyword": map[string]any{"type": "keyword"},
				},
			},
			"instructions":  map[string]any{"type": "text", "analyzer": "standard"},
			"category":      map[string]any{"type": "keyword"},
			"difficulty":    map[string]any{"type": "keyword"},
			"ingredients":   map[string]any{"type": "text", "analyzer": "standard"},
			"total_minutes": map[string]any{"type": "integer"},
			"created_at":    map[string]any{"type": "date"},
		},
	},
}

func recipeQuery(q string) map[string]any {
	return map[string]any{
		"_source": false,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     q,
				"fields":    []string{"title^3", "ingredients^2", "category", "instructions"},
				"fuzziness": "AUTO",
			},
		},
		"sort": []any{"_score", map[string]any{"created_at": "desc"}},
	}
}
