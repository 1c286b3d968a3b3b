package database

import (
	"github.com/feedora/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultCategories seeds the recipe category lookup.
var DefaultCategories = []string{
	"breakfast", "lunch", "dinner", "dessert", "snack", "drinks", "baking", "vegan",
}

// Difficulties seeds the difficulty lookup, easiest first.
var Difficulties = []string{"easy", "medium", "hard"}

func seedLookups(db *gorm.DB) error {
	categories := make([]models.Category, 0, len(DefaultCategories))
	for _, name := range DefaultCategories {
		categories = append(categories, models.Category{Name: name})
	}
	if err := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&categories).Error; err != nil {
		return err
	}

	levels := make([]models.Difficulty, 0, len(Difficulties))
	for _, name := range Difficulties {
		levels = append(levels, models.Difficulty{Name: name})
	}
	if err := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&levels).Error; err != nil {
		return err
	}

	units := make([]models.Unit, len(models.CanonicalUnits))
	copy(units, models.CanonicalUnits)
	return db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&units).Error
}
