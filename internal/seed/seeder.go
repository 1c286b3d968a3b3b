package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/feedora/backend/internal/auth"
	"github.com/feedora/backend/internal/database"
	"github.com/feedora/backend/internal/logger"
	"github.com/feedora/backend/internal/models"
	"github.com/feedora/backend/internal/recipes"
	"github.com/feedora/backend/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// EmailDomain marks seeded accounts so Clean can find them again.
const EmailDomain = "seed.feedora.test"

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password123"

// Config sizes a seeding run.
type Config struct {
	Users           int
	PostsPerUser    int
	RecipesPerUser  int
	CommentsPerPost int
	// FollowRatio is the chance that any seeded user follows another.
	FollowRatio float64
	// ReactionRatio is the chance that any seeded user reacts to a post.
	ReactionRatio float64
	// Seed makes runs reproducible when non-zero.
	Seed int64
}

// DevConfig is a realistic development data set.
func DevConfig() Config {
	return Config{
		Users:           40,
		PostsPerUser:    3,
		RecipesPerUser:  2,
		CommentsPerPost: 4,
		FollowRatio:     0.2,
		ReactionRatio:   0.3,
	}
}

// Report counts what a run created.
type Report struct {
	Users     int
	Follows   int
	Posts     int
	Recipes   int
	Comments  int
	Reactions int
}

// Seeder fills a database with fake Feedora activity. Rows are written
// directly except recipes, which go through the recipe service so names,
// quantities and units are normalized the same way the API does it.
type Seeder struct {
	db      *gorm.DB
	recipes *recipes.Service
	users   repository.UserRepository
	rng     *rand.Rand
}

// NewSeeder creates a seeder. No notifications are sent for seeded activity.
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{
		db:      db,
		recipes: recipes.NewService(db, nil, nil, nil),
		users:   repository.NewUserRepository(db),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// TotalUsers counts every account, seeded or not.
func (s *Seeder) TotalUsers(ctx context.Context) (int64, error) {
	return s.users.GetTotalUserCount(ctx)
}

// Seed creates users and their activity according to cfg.
func (s *Seeder) Seed(ctx context.Context, cfg Config) (Report, error) {
	var rep Report
	if cfg.Seed != 0 {
		// Seed only fails for unsupported source types.
		_ = gofakeit.Seed(cfg.Seed)
		s.rng = rand.New(rand.NewSource(cfg.Seed))
	}

	users, err := s.seedUsers(ctx, cfg.Users)
	if err != nil {
		return rep, fmt.Errorf("failed to seed users: %w", err)
	}
	rep.Users = len(users)

	if rep.Follows, err = s.seedFollows(ctx, users, cfg.FollowRatio); err != nil {
		return rep, fmt.Errorf("failed to seed follows: %w", err)
	}

	posts, err := s.seedPosts(ctx, users, cfg.PostsPerUser)
	if err != nil {
		return rep, fmt.Errorf("failed to seed posts: %w", err)
	}
	rep.Posts = len(posts)

	if rep.Recipes, err = s.seedRecipes(ctx, users, cfg.RecipesPerUser); err != nil {
		return rep, fmt.Errorf("failed to seed recipes: %w", err)
	}
	if rep.Comments, err = s.seedComments(ctx, users, posts, cfg.CommentsPerPost); err != nil {
		return rep, fmt.Errorf("failed to seed comments: %w", err)
	}
	if rep.Reactions, err = s.seedReactions(ctx, users, posts, cfg.ReactionRatio); err != nil {
		return rep, fmt.Errorf("failed to seed reactions: %w", err)
	}

	logger.Log.Info("Seeding finished",
		zap.Int("users", rep.Users),
		zap.Int("follows", rep.Follows),
		zap.Int("posts", rep.Posts),
		zap.Int("recipes", rep.Recipes),
		zap.Int("comments", rep.Comments),
		zap.Int("reactions", rep.Reactions))
	return rep, nil
}

func (s *Seeder) seedUsers(ctx context.Context, count int) ([]models.User, error) {
	if count <= 0 {
		return nil, nil
	}
	// One hash for every account; bcrypt at default cost is slow.
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	stamp := time.Now().UnixNano()
	users := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		first, last := gofakeit.FirstName(), gofakeit.LastName()
		handle := strings.ToLower(first + "." + last)
		users = append(users, models.User{
			Name:            first + " " + last,
			Email:           fmt.Sprintf("%s.%d.%d@%s", handle, stamp, i, EmailDomain),
			PasswordHash:    string(hash),
			Bio:             gofakeit.HipsterSentence(),
			ProfileImageURL: fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/png?seed=%s", handle),
		})
	}
	if err := s.db.WithContext(ctx).CreateInBatches(&users, 100).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Seeder) seedFollows(ctx context.Context, users []models.User, ratio float64) (int, error) {
	var rows []models.Follow
	for _, follower := range users {
		for _, followee := range users {
			if follower.ID == followee.ID || s.rng.Float64() >= ratio {
				continue
			}
			rows = append(rows, models.Follow{FollowerID: follower.ID, FolloweeID: followee.ID})
		}
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return len(rows), s.db.WithContext(ctx).CreateInBatches(&rows, 200).Error
}

func (s *Seeder) seedPosts(ctx context.Context, users []models.User, perUser int) ([]models.Post, error) {
	var posts []models.Post
	for _, u := range users {
		for i := 0; i < perUser; i++ {
			posts = append(posts, models.Post{
				UserID:      u.ID,
				Description: fmt.Sprintf("Made %s tonight. %s", strings.ToLower(gofakeit.Dinner()), gofakeit.HipsterSentence()),
				MediaURL:    fmt.Sprintf("https://picsum.photos/seed/%s/800/600", gofakeit.UUID()),
				MediaType:   models.MediaImage,
			})
		}
	}
	if len(posts) == 0 {
		return nil, nil
	}
	if err := s.db.WithContext(ctx).CreateInBatches(&posts, 100).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

var seedUnits = []string{"g", "ml", "cup", "tbsp", "tsp", "pc", "oz", "lb"}

var seedQuantities = []string{"1", "2", "1/2", "1 1/2", "3/4", "200", "250", "0.5"}

func (s *Seeder) seedRecipes(ctx context.Context, users []models.User, perUser int) (int, error) {
	created := 0
	for _, u := range users {
		p := auth.Principal{UserID: u.ID, Name: u.Name}
		for i := 0; i < perUser; i++ {
			if _, err := s.recipes.Create(ctx, p, s.recipeInput()); err != nil {
				return created, err
			}
			created++
		}
	}
	return created, nil
}

func (s *Seeder) recipeInput() recipes.Input {
	n := 3 + s.rng.Intn(5)
	seen := map[string]bool{}
	ingredients := make([]recipes.IngredientInput, 0, n)
	for len(ingredients) < n {
		name := gofakeit.Vegetable()
		if s.rng.Intn(2) == 0 {
			name = gofakeit.Fruit()
		}
		if seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true
		ingredients = append(ingredients, recipes.IngredientInput{
			Name:     name,
			Quantity: recipes.Quantity(pick(s.rng, seedQuantities)),
			Unit:     pick(s.rng, seedUnits),
		})
	}

	return recipes.Input{
		Title:        gofakeit.Dinner(),
		Instructions: gofakeit.HipsterSentence() + " " + gofakeit.HipsterSentence(),
		Category:     pick(s.rng, database.DefaultCategories),
		Difficulty:   pick(s.rng, database.Difficulties),
		PrepMinutes:  5 + s.rng.Intn(40),
		CookMinutes:  s.rng.Intn(90),
		Servings:     1 + s.rng.Intn(6),
		Ingredients:  ingredients,
	}
}

func (s *Seeder) seedComments(ctx context.Context, users []models.User, posts []models.Post, perPost int) (int, error) {
	if len(users) == 0 || perPost <= 0 {
		return 0, nil
	}
	var rows []models.Comment
	for _, post := range posts {
		for i := 0; i < perPost; i++ {
			rows = append(rows, models.Comment{
				PostID: post.ID,
				UserID: users[s.rng.Intn(len(users))].ID,
				Text:   gofakeit.HipsterSentence(),
			})
		}
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return len(rows), s.db.WithContext(ctx).CreateInBatches(&rows, 200).Error
}

func (s *Seeder) seedReactions(ctx context.Context, users []models.User, posts []models.Post, ratio float64) (int, error) {
	var rows []models.PostReaction
	for _, post := range posts {
		for _, u := range users {
			if s.rng.Float64() >= ratio {
				continue
			}
			kind := models.ReactionKinds[s.rng.Intn(len(models.ReactionKinds))]
			rows = append(rows, models.PostReaction{
				PostID: post.ID,
				UserID: u.ID,
				Kind:   string(kind),
				Emoji:  kind.Emoji(),
			})
		}
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return len(rows), s.db.WithContext(ctx).CreateInBatches(&rows, 200).Error
}

// Clean removes every seeded account and everything they own or touched.
func (s *Seeder) Clean(ctx context.Context) (int64, error) {
	seeded := s.db.Model(&models.User{}).Select("id").Where("email LIKE ?", "%@"+EmailDomain)
	var removed int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recipeIDs := tx.Model(&models.Recipe{}).Select("id").Where("user_id IN (?)", seeded)
		postIDs := tx.Model(&models.Post{}).Select("id").Where("user_id IN (?)", seeded)
		storyIDs := tx.Model(&models.Story{}).Select("id").Where("user_id IN (?)", seeded)
		commentIDs := tx.Model(&models.Comment{}).Select("id").Where("post_id IN (?) OR user_id IN (?)", postIDs, seeded)

		// Children first; SQLite does not enforce the cascades.
		steps := []struct {
			model any
			where string
			args  []any
		}{
			{&models.CommentLike{}, "comment_id IN (?) OR user_id IN (?)", []any{commentIDs, seeded}},
			{&models.Comment{}, "post_id IN (?) OR user_id IN (?)", []any{postIDs, seeded}},
			{&models.PostReaction{}, "post_id IN (?) OR user_id IN (?)", []any{postIDs, seeded}},
			{&models.SavedRecipe{}, "recipe_id IN (?) OR user_id IN (?)", []any{recipeIDs, seeded}},
			{&models.RecipeIngredient{}, "recipe_id IN (?)", []any{recipeIDs}},
			{&models.RecipeDifficulty{}, "recipe_id IN (?)", []any{recipeIDs}},
			{&models.Recipe{}, "user_id IN (?)", []any{seeded}},
			{&models.Post{}, "user_id IN (?)", []any{seeded}},
			{&models.StoryView{}, "story_id IN (?) OR viewer_id IN (?)", []any{storyIDs, seeded}},
			{&models.Story{}, "user_id IN (?)", []any{seeded}},
			{&models.PasswordReset{}, "user_id IN (?)", []any{seeded}},
			{&models.Notification{}, "sender_id IN (?) OR recipient_id IN (?)", []any{seeded, seeded}},
			{&models.Follow{}, "follower_id IN (?) OR followee_id IN (?)", []any{seeded, seeded}},
		}
		for _, step := range steps {
			if err := tx.Where(step.where, step.args...).Delete(step.model).Error; err != nil {
				return fmt.Errorf("clean %T: %w", step.model, err)
			}
		}

		res := tx.Where("email LIKE ?", "%@"+EmailDomain).Delete(&models.User{})
		removed = res.RowsAffected
		return res.Error
	})
	return removed, err
}

func pick(rng *rand.Rand, from []string) string {
	return from[rng.Intn(len(from))]
}
