package container

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/feedora/backend/internal/auth"
	"github.com/feedora/backend/internal/config"
	"github.com/feedora/backend/internal/database/dbtest"
	"github.com/feedora/backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_LocalStack(t *testing.T) {
	db := dbtest.New(t)
	cfg := &config.Config{
		JWTSecret:    "test-secret",
		MediaBackend: "local",
		MediaDir:     t.TempDir(),
		MediaBaseURL: "/media",
	}

	c, err := Build(context.Background(), cfg, db)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Nil(t, c.Cache())
	assert.Nil(t, c.Search())
	assert.NotNil(t, c.StoryCleanup())
	assert.IsType(t, &storage.LocalStore{}, c.Media())
	assert.NotNil(t, c.Handlers())

	resp, err := c.Auth().Register(context.Background(), auth.RegisterRequest{
		Name:     "Ada",
		Email:    "ada@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
}

func TestBuild_UnknownMediaBackend(t *testing.T) {
	_, err := Build(context.Background(), &config.Config{MediaBackend: "ftp"}, dbtest.New(t))
	require.Error(t, err)
	assert.True(t, IsMissing(err, DepMedia))
	assert.NotNil(t, errors.Unwrap(err))
}

func TestBuild_UnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port := mr.Host(), mr.Port()
	mr.Close()

	cfg := &config.Config{
		JWTSecret:    "test-secret",
		MediaBackend: "local",
		MediaDir:     t.TempDir(),
		MediaBaseURL: "/media",
		RedisHost:    host,
		RedisPort:    port,
	}

	// Optional: the container falls back to in-process limits.
	c, err := Build(context.Background(), cfg, dbtest.New(t))
	require.NoError(t, err)
	assert.Nil(t, c.Cache())

	cfg.RequiredServices = []string{"redis"}
	_, err = Build(context.Background(), cfg, dbtest.New(t))
	require.Error(t, err)
	assert.True(t, IsMissing(err, DepRedis))
	assert.False(t, IsMissing(err, DepMedia))
}

func TestValidate_ReportsMissing(t *testing.T) {
	err := (&Container{}).Validate()
	var initErr *InitializationError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, []Dependency{DepDatabase, DepMedia, DepAuth}, initErr.Missing)
	assert.Nil(t, initErr.Cause)
	assert.EqualError(t, err, "missing required dependencies: database, media store, auth service")
}

func TestCleanup_ReverseOrder(t *testing.T) {
	c := &Container{}
	var order []int
	boom := errors.New("boom")
	c.OnCleanup(func(context.Context) error { order = append(order, 1); return nil })
	c.OnCleanup(func(context.Context) error { order = append(order, 2); return boom })
	c.OnCleanup(func(context.Context) error { order = append(order, 3); return nil })

	err := c.Cleanup(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{3, 2, 1}, order)

	order = nil
	require.NoError(t, c.Cleanup(context.Background()))
	assert.Empty(t, order)
}
