package models

// All returns every model in dependency order for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&PasswordReset{},
		&Post{},
		&PostReaction{},
		&Comment{},
		&CommentLike{},
		&Follow{},
		&Notification{},
		&Category{},
		&Difficulty{},
		&Unit{},
		&Ingredient{},
		&Recipe{},
		&RecipeIngredient{},
		&RecipeDifficulty{},
		&SavedRecipe{},
		&Story{},
		&StoryView{},
	}
}
