// Package recipes stores recipes with normalized ingredients, serves recipe
// search and keeps users' saved-recipe collections.
package recipes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/feedora/backend/internal/auth"
	apperrors "github.com/feedora/backend/internal/errors"
	"github.com/feedora/backend/internal/logger"
	"github.com/feedora/backend/internal/metrics"
	"github.com/feedora/backend/internal/models"
	"github.com/feedora/backend/internal/notifications"
	"github.com/feedora/backend/internal/pagination"
	"github.com/feedora/backend/internal/search"
	"github.com/feedora/backend/internal/social"
	"github.com/feedora/backend/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	maxTitleRunes  = 200
	maxIngredients = 100
)

// ListBounds limits recipe list, search and saved pages.
var ListBounds = pagination.Bounds{Default: 20, Max: 50}

// Indexer is the search backend. *search.Client implements it.
type Indexer interface {
	IndexRecipe(ctx context.Context, doc search.RecipeDocument) error
	DeleteRecipe(ctx context.Context, id string) error
	SearchRecipes(ctx context.Context, query string, offset, limit int) ([]string, int64, error)
}

var _ Indexer = (*search.Client)(nil)

// IngredientInput is one ingredient line as entered.
type IngredientInput struct {
	Name     string   `json:"name" binding:"required"`
	Quantity Quantity `json:"quantity"`
	Unit     string   `json:"unit"`
}

// Input creates or replaces a recipe.
type Input struct {
	Title        string            `json:"title" binding:"required"`
	Instructions string            `json:"instructions"`
	Category     string            `json:"category"`
	Difficulty   string            `json:"difficulty" binding:"required"`
	PrepMinutes  int               `json:"prepMinutes" binding:"min=0"`
	CookMinutes  int               `json:"cookMinutes" binding:"min=0"`
	Servings     int               `json:"servings" binding:"min=0"`
	Ingredients  []IngredientInput `json:"ingredients" binding:"required,min=1,dive"`
}

// Item is a recipe with collection data for the caller.
type Item struct {
	models.Recipe
	SaveCount     int64 `json:"saveCount"`
	SavedByCaller bool  `json:"savedByCaller"`
}

// Page is one offset window of recipes.
type Page struct {
	Items      []Item `json:"items"`
	TotalCount int64  `json:"totalCount"`
	HasMore    bool   `json:"hasMore"`
	NextOffset int    `json:"nextOffset"`
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	Category string
	AuthorID string
}

// Service handles recipe CRUD, ingredient and unit normalization, saved
// recipes and search.
type Service struct {
	db       *gorm.DB
	media    storage.MediaStore
	index    Indexer
	saves    *social.Store
	notifier social.Publisher
}

// NewService wires recipes. media, index and notifier may be nil; without an
// index, search falls back to SQL.
func NewService(db *gorm.DB, media storage.MediaStore, index Indexer, notifier social.Publisher) *Service {
	return &Service{
		db:       db,
		media:    media,
		index:    index,
		saves:    social.NewStore(db, SavedRelation()),
		notifier: notifier,
	}
}

// SavedRelation is the presence toggle behind saved recipes.
func SavedRelation() social.Relation {
	return social.Relation{
		Name:         "saved_recipe",
		Table:        "saved_recipes",
		ActorColumn:  "user_id",
		TargetColumn: "recipe_id",
		TargetName:   "recipe",
		TargetExists: social.ExistsIn("recipes"),
		NewRow: func(actor, target, _ string) any {
			return &models.SavedRecipe{UserID: actor, RecipeID: target}
		},
	}
}

type resolved struct {
	categoryID   *uint
	difficultyID uint
	lines        []line
}

type line struct {
	name string
	qty  float64
	unit string
}

func (s *Service) resolve(tx *gorm.DB, in *Input) (*resolved, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, apperrors.Invalidf("title is required")
	}
	if utf8.RuneCountInString(in.Title) > maxTitleRunes {
		return nil, apperrors.Invalidf("title exceeds %d characters", maxTitleRunes)
	}
	if in.PrepMinutes < 0 || in.CookMinutes < 0 || in.Servings < 0 {
		return nil, apperrors.Invalidf("times and servings must not be negative")
	}
	if len(in.Ingredients) == 0 {
		return nil, apperrors.Invalidf("at least one ingredient is required")
	}
	if len(in.Ingredients) > maxIngredients {
		return nil, apperrors.Invalidf("at most %d ingredients are allowed", maxIngredients)
	}

	out := &resolved{}

	var level models.Difficulty
	err := tx.Where("name = ?", strings.ToLower(strings.TrimSpace(in.Difficulty))).First(&level).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Invalidf("unknown difficulty %q", in.Difficulty)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup difficulty: %w", err)
	}
	out.difficultyID = level.ID

	if name := strings.ToLower(strings.TrimSpace(in.Category)); name != "" {
		var cat models.Category
		err := tx.Where("name = ?", name).First(&cat).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Invalidf("unknown category %q", in.Category)
		}
		if err != nil {
			return nil, fmt.Errorf("lookup category: %w", err)
		}
		out.categoryID = &cat.ID
	}

	for i, ing := range in.Ingredients {
		name := NormalizeName(ing.Name)
		if name == "" {
			return nil, apperrors.Invalidf("ingredient %d needs a name", i+1)
		}
		var qty float64
		if strings.TrimSpace(string(ing.Quantity)) != "" {
			var err error
			if qty, err = ParseQuantity(string(ing.Quantity)); err != nil {
				return nil, err
			}
		}
		qty, unit := NormalizeUnit(qty, ing.Unit)
		out.lines = append(out.lines, line{name: name, qty: qty, unit: unit})
	}
	return out, nil
}

func (s *Service) writeLinks(tx *gorm.DB, recipeID string, r *resolved) error {
	rows := make([]models.RecipeIngredient, 0, len(r.lines))
	for i, l := range r.lines {
		ingID, err := ingredientID(tx, l.name)
		if err != nil {
			return err
		}
		unitID, err := unitID(tx, l.unit)
		if err != nil {
			return err
		}
		rows = append(rows, models.RecipeIngredient{
			RecipeID:     recipeID,
			IngredientID: ingID,
			UnitID:       unitID,
			Quantity:     l.qty,
			Position:     i,
		})
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("link ingredients: %w", err)
	}

	link := models.RecipeDifficulty{RecipeID: recipeID, DifficultyID: r.difficultyID}
	if err := tx.Create(&link).Error; err != nil {
		return fmt.Errorf("link difficulty: %w", err)
	}
	return nil
}

func ingredientID(tx *gorm.DB, name string) (uint, error) {
	err := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&models.Ingredient{Name: name}).Error
	if err != nil {
		return 0, fmt.Errorf("create ingredient: %w", err)
	}
	var ing models.Ingredient
	if err := tx.Where("name = ?", name).First(&ing).Error; err != nil {
		return 0, fmt.Errorf("lookup ingredient: %w", err)
	}
	return ing.ID, nil
}

// unitID returns nil for unitless amounts ("3 eggs"). Units outside the
// canonical set are created on first use.
func unitID(tx *gorm.DB, name string) (*uint, error) {
	if name == "" {
		return nil, nil
	}
	err := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&models.Unit{Name: name, Label: name}).Error
	if err != nil {
		return nil, fmt.Errorf("create unit: %w", err)
	}
	var u models.Unit
	if err := tx.Where("name = ?", name).First(&u).Error; err != nil {
		return nil, fmt.Errorf("lookup unit: %w", err)
	}
	return &u.ID, nil
}

// Create stores a recipe, indexes it and tells the author's followers.
func (s *Service) Create(ctx context.Context, p auth.Principal, in Input) (*Item, error) {
	if err := p.Require(); err != nil {
		return nil, err
	}

	recipe := &models.Recipe{UserID: p.UserID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.resolve(tx, &in)
		if err != nil {
			return err
		}
		recipe.Title = in.Title
		recipe.Instructions = strings.TrimSpace(in.Instructions)
		recipe.CategoryID = r.categoryID
		recipe.PrepMinutes, recipe.CookMinutes, recipe.Servings = in.PrepMinutes, in.CookMinutes, in.Servings

		if err := tx.Create(recipe).Error; err != nil {
			return fmt.Errorf("create recipe: %w", err)
		}
		return s.writeLinks(tx, recipe.ID, r)
	})
	if err != nil {
		return nil, err
	}

	item, err := s.Get(ctx, p, recipe.ID)
	if err != nil {
		return nil, err
	}
	s.reindex(ctx, &item.Recipe)

	if s.notifier != nil {
		_, err := s.notifier.Publish(ctx, notifications.Event{
			Sender:    p.UserID,
			Type:      models.NotificationNewRecipe,
			Content:   fmt.Sprintf("<b>%s</b> published a recipe: %s", p.Name, recipe.Title),
			RelatedID: recipe.ID,
		})
		if err != nil {
			logger.WarnWithFields("Failed to announce new recipe", err, zap.String("recipe_id", recipe.ID))
		}
	}
	return item, nil
}

// Update replaces a recipe's fields, ingredient links and difficulty.
func (s *Service) Update(ctx context.Context, p auth.Principal, id string, in Input) (*Item, error) {
	if err := p.Require(); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := owned(tx, p, id); err != nil {
			return err
		}
		r, err := s.resolve(tx, &in)
		if err != nil {
			return err
		}

		err = tx.Model(&models.Recipe{}).Where("id = ?", id).Updates(map[string]any{
			"title":        in.Title,
			"instructions": strings.TrimSpace(in.Instructions),
			"category_id":  r.categoryID,
			"prep_minutes": in.PrepMinutes,
			"cook_minutes": in.CookMinutes,
			"servings":     in.Servings,
			"updated_at":   tx.NowFunc(),
		}).Error
		if err != nil {
			return fmt.Errorf("update recipe: %w", err)
		}
		if err := deleteLinks(tx, id); err != nil {
			return err
		}
		return s.writeLinks(tx, id, r)
	})
	if err != nil {
		return nil, err
	}

	item, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	s.reindex(ctx, &item.Recipe)
	return item, nil
}

func owned(tx *gorm.DB, p auth.Principal, id string) (*models.Recipe, error) {
	var r models.Recipe
	err := tx.Where("id = ?", id).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFoundf("recipe")
	}
	if err != nil {
		return nil, fmt.Errorf("lookup recipe: %w", err)
	}
	if r.UserID != p.UserID {
		return nil, apperrors.New(apperrors.ErrNotOwner, "you can only change your own recipes")
	}
	return &r, nil
}

func deleteLinks(tx *gorm.DB, id string) error {
	if err := tx.Where("recipe_id = ?", id).Delete(&models.RecipeIngredient{}).Error; err != nil {
		return fmt.Errorf("delete ingredient links: %w", err)
	}
	if err := tx.Where("recipe_id = ?", id).Delete(&models.RecipeDifficulty{}).Error; err != nil {
		return fmt.Errorf("delete difficulty link: %w", err)
	}
	return nil
}

// Delete removes the caller's recipe with its links, collection entries,
// notifications, photo and index document.
func (s *Service) Delete(ctx context.Context, p auth.Principal, id string) error {
	if err := p.Require(); err != nil {
		return err
	}

	var photoKey string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := owned(tx, p, id)
		if err != nil {
			return err
		}
		if err := deleteLinks(tx, id); err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&models.SavedRecipe{}).Error; err != nil {
			return fmt.Errorf("delete saved entries: %w", err)
		}
		if err := notifications.PurgeRelated(tx, id); err != nil {
			return err
		}
		if err := tx.Delete(r).Error; err != nil {
			return fmt.Errorf("delete recipe: %w", err)
		}
		photoKey = r.PhotoKey
		return nil
	})
	if err != nil {
		return err
	}

	s.removePhoto(ctx, photoKey)
	if s.index != nil {
		if err := s.index.DeleteRecipe(ctx, id); err != nil {
			metrics.Get().SearchIndexErrors.WithLabelValues("delete").Inc()
			logger.WarnWithFields("Failed to remove recipe from search index", err, zap.String("recipe_id", id))
		}
	}
	return nil
}

// SetPhoto stores an image for the caller's recipe, replacing any previous
// photo.
func (s *Service) SetPhoto(ctx context.Context, p auth.Principal, id string, up storage.Upload) (*Item, error) {
	if err := p.Require(); err != nil {
		return nil, err
	}
	if s.media == nil {
		return nil, apperrors.Invalidf("media uploads are disabled")
	}
	if err := storage.RequireImage(up.Filename); err != nil {
		return nil, err
	}

	r, err := owned(s.db.WithContext(ctx), p, id)
	if err != nil {
		return nil, err
	}

	up.Folder, up.UserID = storage.FolderRecipes, p.UserID
	res, err := s.media.Put(ctx, up)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(&models.Recipe{}).Where("id = ?", id).
		Updates(map[string]any{"photo_url": res.URL, "photo_key": res.Key}).Error
	if err != nil {
		s.removePhoto(ctx, res.Key)
		return nil, fmt.Errorf("update recipe photo: %w", err)
	}
	s.removePhoto(ctx, r.PhotoKey)
	return s.Get(ctx, p, id)
}

func (s *Service) removePhoto(ctx context.Context, key string) {
	if key == "" || s.media == nil {
		return
	}
	if err := s.media.Delete(ctx, key); err != nil {
		logger.WarnWithFields("Failed to delete recipe photo", err, zap.String("media_key", key))
	}
}

func (s *Service) reindex(ctx context.Context, r *models.Recipe) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexRecipe(ctx, search.DocumentFor(r)); err != nil {
		metrics.Get().SearchIndexErrors.WithLabelValues("index").Inc()
		logger.WarnWithFields("Failed to index recipe", err, zap.String("recipe_id", r.ID))
	}
}
