package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("NOTIFICATION_DEDUP_WINDOW", "")
	t.Setenv("MEDIA_BACKEND", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 300*time.Second, cfg.NotificationDedupWindow)
	assert.Equal(t, "local", cfg.MediaBackend)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.False(t, cfg.RedisEnabled())
}

func TestLoadDurationsAcceptSecondsAndGoSyntax(t *testing.T) {
	t.Setenv("NOTIFICATION_DEDUP_WINDOW", "60")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.NotificationDedupWindow)
	assert.Equal(t, 30*time.Second, cfg.RateLimitWindow)
}

func TestLoadRejectsMissingSecretInProduction(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRequiresBucketForS3(t *testing.T) {
	t.Setenv("MEDIA_BACKEND", "s3")
	t.Setenv("AWS_BUCKET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestDSNPrefersDatabaseURL(t *testing.T) {
	cfg := &Config{DBURL: "postgres://u:p@db/feedora"}
	assert.Equal(t, "postgres://u:p@db/feedora", cfg.DSN())

	cfg = &Config{DBHost: "h", DBUser: "u", DBPassword: "p", DBName: "n", DBPort: "1", DBSSLMode: "disable"}
	assert.Contains(t, cfg.DSN(), "host=h")
	assert.Contains(t, cfg.DSN(), "dbname=n")
}

func TestLoadRequiredServices(t *testing.T) {
	t.Setenv("FEEDORA_REQUIRE_REDIS", "yes")
	t.Setenv("FEEDORA_REQUIRE_S3", "0")
	t.Setenv("FEEDORA_REQUIRE_ELASTICSEARCH", "TRUE")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"elasticsearch", "redis"}, cfg.RequiredServices)
}
