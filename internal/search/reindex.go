package search

import (
	"context"
	"fmt"

	"github.com/feedora/backend/internal/logger"
	"github.com/feedora/backend/internal/metrics"
	"github.com/feedora/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const reindexBatch = 200

// Reindex rebuilds the recipe index from the database, catching up on any
// upsert that failed at write time. Per-document failures are counted and
// logged; only a database error aborts.
func (c *Client) Reindex(ctx context.Context, db *gorm.DB) (indexed, failed int, err error) {
	var batch []models.Recipe
	err = db.WithContext(ctx).
		Preload("Category").
		Preload("Difficulty.Difficulty").
		Preload("Ingredients.Ingredient").
		FindInBatches(&batch, reindexBatch, func(tx *gorm.DB, n int) error {
			for i := range batch {
				if err := c.IndexRecipe(ctx, DocumentFor(&batch[i])); err != nil {
					failed++
					metrics.Get().SearchIndexErrors.WithLabelValues("reindex").Inc()
					logger.WarnWithFields("Failed to reindex recipe", err, zap.String("recipe_id", batch[i].ID))
					continue
				}
				indexed++
			}
			return nil
		}).Error
	if err != nil {
		return indexed, failed, fmt.Errorf("load recipes: %w", err)
	}

	logger.Log.Info("Recipe reindex finished", zap.Int("indexed", indexed), zap.Int("failed", failed))
	return indexed, failed, nil
}
