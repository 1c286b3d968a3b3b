// Package container builds Feedora's service graph from configuration and
// owns its shutdown order.
package container

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/feedora/backend/internal/auth"
	"github.com/feedora/backend/internal/cache"
	"github.com/feedora/backend/internal/comments"
	"github.com/feedora/backend/internal/config"
	"github.com/feedora/backend/internal/email"
	"github.com/feedora/backend/internal/handlers"
	"github.com/feedora/backend/internal/logger"
	"github.com/feedora/backend/internal/notifications"
	"github.com/feedora/backend/internal/posts"
	"github.com/feedora/backend/internal/recipes"
	"github.com/feedora/backend/internal/repository"
	"github.com/feedora/backend/internal/search"
	"github.com/feedora/backend/internal/social"
	"github.com/feedora/backend/internal/storage"
	"github.com/feedora/backend/internal/stories"
	"github.com/feedora/backend/internal/telemetry"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Container holds the infrastructure clients and the domain services built on them.
type Container struct {
	// Core infrastructure
	db     *gorm.DB
	cache  *cache.RedisClient
	media  storage.MediaStore
	search *search.Client
	mailer *email.EmailService

	// Domain services
	auth          *auth.Service
	users         repository.UserRepository
	notifications *notifications.Service
	follows       *social.FollowService
	reactions     *social.ReactionService
	commentLikes  *social.CommentLikeService
	comments      *comments.Service
	posts         *posts.Service
	recipes       *recipes.Service
	stories       *stories.Service
	storyCleanup  *stories.CleanupService

	cleanupFuncs []func(context.Context) error
	mu           sync.Mutex
}

// Infra are the clients Wire builds services on. Cache, Search and Mailer may be nil.
type Infra struct {
	DB          *gorm.DB
	Cache       *cache.RedisClient
	Media       storage.MediaStore
	Search      *search.Client
	Mailer      *email.EmailService
	JWTSecret   []byte
	DedupWindow time.Duration // zero keeps the default window
}

// Build connects the optional infrastructure named by cfg and wires every
// service on top of db. An optional service that fails to connect is logged
// and left out, unless cfg lists it in RequiredServices.
func Build(ctx context.Context, cfg *config.Config, db *gorm.DB) (*Container, error) {
	infra := Infra{
		DB:          db,
		JWTSecret:   []byte(cfg.JWTSecret),
		DedupWindow: cfg.NotificationDedupWindow,
	}
	var cleanups []func(context.Context) error
	required := func(d Dependency) bool { return slices.Contains(cfg.RequiredServices, string(d)) }

	if cfg.RedisEnabled() {
		rc, err := cache.NewRedisClient(ctx, cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
		if err != nil {
			if required(DepRedis) {
				return nil, missing(err, DepRedis)
			}
			logger.WarnWithFields("Redis unavailable, using in-process rate limiting", err)
		} else {
			infra.Cache = rc
			cleanups = append(cleanups, func(context.Context) error { return rc.Close() })
		}
	}

	media, err := storage.New(ctx, cfg)
	if err != nil {
		closeAll(ctx, cleanups)
		return nil, missing(err, DepMedia)
	}
	infra.Media = media

	if cfg.ElasticsearchURL != "" {
		sc, err := search.NewClient(ctx, cfg.ElasticsearchURL, telemetry.NewInstrumentedTransport())
		if err == nil {
			err = sc.InitializeIndices(ctx)
		}
		switch {
		case err == nil:
			infra.Search = sc
		case required(DepSearch):
			closeAll(ctx, cleanups)
			return nil, missing(err, DepSearch)
		default:
			logger.WarnWithFields("Elasticsearch unavailable, recipe search falls back to SQL", err)
		}
	}

	if cfg.SESFromEmail != "" {
		mailer, err := email.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.AppURL)
		if err != nil {
			logger.WarnWithFields("SES unavailable, password reset emails disabled", err)
		} else {
			infra.Mailer = mailer
		}
	}

	c := Wire(infra)
	c.storyCleanup = stories.NewCleanupService(db, media, cfg.StoryCleanupInterval)
	for _, fn := range cleanups {
		c.OnCleanup(fn)
	}
	return c, nil
}

// Wire builds the domain services over already connected infrastructure.
func Wire(in Infra) *Container {
	opts := []notifications.Option{}
	if in.Cache != nil {
		opts = append(opts, notifications.WithDeduper(in.Cache))
	}
	if in.DedupWindow > 0 {
		opts = append(opts, notifications.WithPolicies(notifications.DefaultPolicies(in.DedupWindow)))
	}
	notifier := notifications.NewService(in.DB, opts...)

	var mailer auth.ResetMailer
	if in.Mailer != nil {
		mailer = in.Mailer
	}
	var index recipes.Indexer
	if in.Search != nil {
		index = in.Search
	}

	reactions := social.NewReactionService(in.DB, notifier)
	likes := social.NewCommentLikeService(in.DB)

	return &Container{
		db:            in.DB,
		cache:         in.Cache,
		media:         in.Media,
		search:        in.Search,
		mailer:        in.Mailer,
		auth:          auth.NewService(in.DB, in.JWTSecret, mailer),
		users:         repository.NewUserRepository(in.DB),
		notifications: notifier,
		follows:       social.NewFollowService(in.DB, notifier),
		reactions:     reactions,
		commentLikes:  likes,
		comments:      comments.NewService(in.DB, likes, reactions, notifier),
		posts:         posts.NewService(in.DB, in.Media, reactions, notifier),
		recipes:       recipes.NewService(in.DB, in.Media, index, notifier),
		stories:       stories.NewService(in.DB, in.Media, notifier),
	}
}

// DB returns the database connection
func (c *Container) DB() *gorm.DB { return c.db }

// Cache returns the Redis client, or nil when Redis is not configured.
func (c *Container) Cache() *cache.RedisClient { return c.cache }

// Media returns the media store
func (c *Container) Media() storage.MediaStore { return c.media }

// Search returns the Elasticsearch client, or nil.
func (c *Container) Search() *search.Client { return c.search }

// Auth returns the authentication service
func (c *Container) Auth() *auth.Service { return c.auth }

// Notifications returns the notification service
func (c *Container) Notifications() *notifications.Service { return c.notifications }

// StoryCleanup returns the expired-story sweeper. Nil for containers from Wire.
func (c *Container) StoryCleanup() *stories.CleanupService { return c.storyCleanup }

// Handlers builds the HTTP handlers over the container's services.
func (c *Container) Handlers() *handlers.Handlers {
	return handlers.NewHandlers(handlers.Deps{
		Auth:          c.auth,
		Users:         c.users,
		Follows:       c.follows,
		Reactions:     c.reactions,
		CommentLikes:  c.commentLikes,
		Comments:      c.comments,
		Notifications: c.notifications,
		Posts:         c.posts,
		Recipes:       c.recipes,
		Stories:       c.stories,
		Media:         c.media,
	})
}

// OnCleanup registers a function to run at shutdown. Cleanup runs them in
// reverse registration order.
func (c *Container) OnCleanup(fn func(context.Context) error) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
	return c
}

// Cleanup runs every registered cleanup function, last registered first, and
// returns the first error.
func (c *Container) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	fns := c.cleanupFuncs
	c.cleanupFuncs = nil
	c.mu.Unlock()

	var first error
	for i := len(fns) - 1; i >= 0; i-- {
		if err := fns[i](ctx); err != nil {
			logger.Log.Error("Cleanup function failed", zap.Int("index", i), zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Validate checks that the services every request path needs are present.
func (c *Container) Validate() error {
	var deps []Dependency
	if c.db == nil {
		deps = append(deps, DepDatabase)
	}
	if c.media == nil {
		deps = append(deps, DepMedia)
	}
	if c.auth == nil {
		deps = append(deps, DepAuth)
	}
	if len(deps) > 0 {
		return missing(nil, deps...)
	}
	return nil
}

func closeAll(ctx context.Context, fns []func(context.Context) error) {
	for i := len(fns) - 1; i >= 0; i-- {
		_ = fns[i](ctx)
	}
}
