package models

import (
	"time"

	"gorm.io/gorm"
)

// Category groups recipes (breakfast, dessert, ...).
type Category struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:64;uniqueIndex;not null" json:"name"`
}

// Difficulty is a lookup row: easy, medium, hard.
type Difficulty struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:32;uniqueIndex;not null" json:"name"`
}

// Unit is a canonical measuring unit.
type Unit struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"size:32;uniqueIndex;not null" json:"name"`
	Label     string `gorm:"size:64" json:"label"`
	Dimension string `gorm:"size:16" json:"dimension"`
}

// CanonicalUnits are the units ingredient amounts are normalized to. Units
// outside this list are stored verbatim with an empty Dimension.
var CanonicalUnits = []Unit{
	{Name: "g", Label: "gram", Dimension: "mass"},
	{Name: "ml", Label: "millilitre", Dimension: "volume"},
	{Name: "pc", Label: "piece", Dimension: "count"},
	{Name: "tbsp", Label: "tablespoon", Dimension: "volume"},
	{Name: "tsp", Label: "teaspoon", Dimension: "volume"},
	{Name: "cup", Label: "cup", Dimension: "volume"},
	{Name: "pinch", Label: "pinch", Dimension: "count"},
}

// Ingredient names are stored normalized and shared across recipes.
type Ingredient struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:128;uniqueIndex;not null" json:"name"`
}

// Recipe is a user's published recipe.
type Recipe struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string    `gorm:"type:uuid;not null;index" json:"userId"`
	CategoryID   *uint     `gorm:"index" json:"categoryId,omitempty"`
	Title        string    `gorm:"size:200;not null" json:"title"`
	PhotoURL     string    `json:"photoUrl,omitempty"`
	PhotoKey     string    `json:"-"`
	Instructions string    `gorm:"type:text" json:"instructions"`
	PrepMinutes  int       `json:"prepMinutes"`
	CookMinutes  int       `json:"cookMinutes"`
	Servings     int       `json:"servings"`
	CreatedAt    time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	User        *User              `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
	Category    *Category          `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Ingredients []RecipeIngredient `gorm:"foreignKey:RecipeID" json:"ingredients"`
	Difficulty  *RecipeDifficulty  `gorm:"foreignKey:RecipeID" json:"difficulty,omitempty"`
}

func (r *Recipe) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// RecipeIngredient links a recipe to an ingredient with a normalized amount.
type RecipeIngredient struct {
	ID           uint    `gorm:"primaryKey" json:"-"`
	RecipeID     string  `gorm:"type:uuid;not null;index" json:"-"`
	IngredientID uint    `gorm:"not null;index" json:"-"`
	UnitID       *uint   `json:"-"`
	Quantity     float64 `json:"quantity"`
	Position     int     `json:"-"`

	Ingredient *Ingredient `gorm:"foreignKey:IngredientID" json:"ingredient"`
	Unit       *Unit       `gorm:"foreignKey:UnitID" json:"unit,omitempty"`
}

// RecipeDifficulty is the one difficulty link a recipe carries.
type RecipeDifficulty struct {
	RecipeID     string `gorm:"primaryKey;type:uuid" json:"-"`
	DifficultyID uint   `gorm:"not null" json:"id"`

	Difficulty *Difficulty `gorm:"foreignKey:DifficultyID" json:"level"`
}

// SavedRecipe is a collection entry: a user bookmarking a recipe.
type SavedRecipe struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	RecipeID  string    `gorm:"type:uuid;not null;uniqueIndex:idx_saved_recipes_pair,priority:1" json:"recipeId"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_saved_recipes_pair,priority:2;index" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *SavedRecipe) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
