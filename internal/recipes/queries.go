package recipes

import (
	"context"
	"fmt"
	"strings"

	"github.com/feedora/backend/internal/auth"
	apperrors "github.com/feedora/backend/internal/errors"
	"github.com/feedora/backend/internal/logger"
	"github.com/feedora/backend/internal/metrics"
	"github.com/feedora/backend/internal/models"
	"github.com/feedora/backend/internal/pagination"
	"github.com/feedora/backend/internal/social"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("User").
		Preload("Category").
		Preload("Difficulty.Difficulty").
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Ingredients.Ingredient").
		Preload("Ingredients.Unit")
}

// Get loads one recipe with its ingredients.
func (s *Service) Get(ctx context.Context, p auth.Principal, id string) (*Item, error) {
	items, err := s.load(ctx, p, []string{id})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperrors.NotFoundf("recipe")
	}
	return &items[0], nil
}

// load fetches recipes by id and returns them in the order of ids, skipping
// ids that no longer exist.
func (s *Service) load(ctx context.Context, p auth.Principal, ids []string) ([]Item, error) {
	if len(ids) == 0 {
		return []Item{}, nil
	}
	var rows []models.Recipe
	if err := s.db.WithContext(ctx).Scopes(withDetails).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load recipes: %w", err)
	}

	byID := make(map[string]models.Recipe, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	ordered := make([]models.Recipe, 0, len(rows))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			ordered = append(ordered, r)
		}
	}
	return s.decorate(ctx, p, ordered)
}

type saveCount struct {
	RecipeID string
	N        int64
}

func (s *Service) decorate(ctx context.Context, p auth.Principal, rows []models.Recipe) ([]Item, error) {
	items := make([]Item, 0, len(rows))
	if len(rows) == 0 {
		return items, nil
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}

	var counts []saveCount
	err := s.db.WithContext(ctx).Model(&models.SavedRecipe{}).
		Select("recipe_id, COUNT(*) AS n").
		Where("recipe_id IN ?", ids).
		Group("recipe_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("count saves: %w", err)
	}
	saves := make(map[string]int64, len(counts))
	for _, c := range counts {
		saves[c.RecipeID] = c.N
	}

	mine := make(map[string]bool)
	if !p.Anonymous() {
		var saved []string
		err := s.db.WithContext(ctx).Model(&models.SavedRecipe{}).
			Where("user_id = ? AND recipe_id IN ?", p.UserID, ids).
			Pluck("recipe_id", &saved).Error
		if err != nil {
			return nil, fmt.Errorf("caller saves: %w", err)
		}
		for _, id := range saved {
			mine[id] = true
		}
	}

	for _, r := range rows {
		items = append(items, Item{Recipe: r, SaveCount: saves[r.ID], SavedByCaller: mine[r.ID]})
	}
	return items, nil
}

func (s *Service) page(ctx context.Context, p auth.Principal, cur pagination.Cursor, total int64, ids []string) (*Page, error) {
	items, err := s.load(ctx, p, ids)
	if err != nil {
		return nil, err
	}
	pg := &Page{Items: items, TotalCount: total}
	pg.HasMore, pg.NextOffset = cur.Next(len(ids), total)
	return pg, nil
}

// List returns recipes newest first, optionally by category and author.
func (s *Service) List(ctx context.Context, p auth.Principal, f Filter, offset, limit int) (*Page, error) {
	cur := pagination.NewCursor(offset, limit, ListBounds)

	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Model(&models.Recipe{})
		if f.AuthorID != "" {
			db = db.Where("user_id = ?", f.AuthorID)
		}
		if name := strings.ToLower(strings.TrimSpace(f.Category)); name != "" {
			db = db.Where("category_id IN (?)", s.db.Model(&models.Category{}).Select("id").Where("name = ?", name))
		}
		return db
	}

	var total int64
	if err := s.db.WithContext(ctx).Scopes(scope).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count recipes: %w", err)
	}

	var ids []string
	err := s.db.WithContext(ctx).Scopes(scope).
		Order("created_at DESC").Order("id DESC").
		Offset(cur.Offset).Limit(cur.Limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	return s.page(ctx, p, cur, total, ids)
}

// Search matches recipes by text. It uses the search index when configured
// and falls back to a title match when the index is absent or failing.
func (s *Service) Search(ctx context.Context, p auth.Principal, query string, offset, limit int) (*Page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.Invalidf("search query is required")
	}
	cur := pagination.NewCursor(offset, limit, ListBounds)

	if s.index != nil {
		ids, total, err := s.index.SearchRecipes(ctx, query, cur.Offset, cur.Limit)
		if err == nil {
			return s.page(ctx, p, cur, total, ids)
		}
		metrics.Get().SearchIndexErrors.WithLabelValues("search").Inc()
		logger.WarnWithFields("Recipe search index failed, falling back to SQL", err, zap.String("query", query))
	}

	like := "%" + escapeLike(strings.ToLower(query)) + "%"
	match := func(db *gorm.DB) *gorm.DB {
		return db.Model(&models.Recipe{}).Where("LOWER(title) LIKE ? ESCAPE '\\'", like)
	}

	var total int64
	if err := s.db.WithContext(ctx).Scopes(match).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count search: %w", err)
	}
	var ids []string
	err := s.db.WithContext(ctx).Scopes(match).
		Order("created_at DESC").Order("id DESC").
		Offset(cur.Offset).Limit(cur.Limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("search recipes: %w", err)
	}
	return s.page(ctx, p, cur, total, ids)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ToggleSave adds the recipe to the caller's collection or removes it, and
// returns how many users have it saved afterwards.
func (s *Service) ToggleSave(ctx context.Context, p auth.Principal, id string) (social.Result, int64, error) {
	if err := p.Require(); err != nil {
		return social.Result{}, 0, err
	}
	res, err := s.saves.SetState(ctx, p.UserID, id, "")
	if err != nil {
		return social.Result{}, 0, err
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.SavedRecipe{}).Where("recipe_id = ?", id).Count(&n).Error; err != nil {
		return res, 0, fmt.Errorf("count saves: %w", err)
	}
	return res, n, nil
}

// Saved lists the caller's collection, most recently saved first.
func (s *Service) Saved(ctx context.Context, p auth.Principal, offset, limit int) (*Page, error) {
	if err := p.Require(); err != nil {
		return nil, err
	}
	cur := pagination.NewCursor(offset, limit, ListBounds)

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.SavedRecipe{}).Where("user_id = ?", p.UserID).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count saved: %w", err)
	}
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.SavedRecipe{}).
		Where("user_id = ?", p.UserID).
		Order("created_at DESC").Order("id DESC").
		Offset(cur.Offset).Limit(cur.Limit).
		Pluck("recipe_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list saved: %w", err)
	}
	return s.page(ctx, p, cur, total, ids)
}

// Units lists the canonical measuring units.
func (s *Service) Units(ctx context.Context) ([]models.Unit, error) {
	var units []models.Unit
	err := s.db.WithContext(ctx).Where("dimension <> ''").Order("id").Find(&units).Error
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	return units, nil
}

// Categories lists the recipe categories.
func (s *Service) Categories(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	if err := s.db.WithContext(ctx).Order("id").Find(&cats).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}
