package validation

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/feedora/backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateServicesNothingRequired(t *testing.T) {
	sv := NewServiceValidator(&config.Config{})
	assert.NoError(t, sv.ValidateServices(context.Background()))
}

func TestValidateServicesSkipsUnknown(t *testing.T) {
	sv := NewServiceValidator(&config.Config{RequiredServices: []string{"gorse"}})
	assert.NoError(t, sv.ValidateServices(context.Background()))
}

func TestValidateServicesStopsAtFirstFailure(t *testing.T) {
	var ran []string
	sv := &ServiceValidator{
		required: []string{"a", "b", "c"},
		checks: map[string]Check{
			"a": func(context.Context) error { ran = append(ran, "a"); return nil },
			"b": func(context.Context) error { ran = append(ran, "b"); return errors.New("down") },
			"c": func(context.Context) error { ran = append(ran, "c"); return nil },
		},
	}

	err := sv.ValidateServices(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"b"`)
	assert.Equal(t, []string{"a", "b"}, ran)
}

func TestRedisCheck(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)

	sv := NewServiceValidator(&config.Config{
		RequiredServices: []string{"redis"},
		RedisHost:        host,
		RedisPort:        port,
	})
	assert.NoError(t, sv.ValidateServices(context.Background()))

	sv = NewServiceValidator(&config.Config{RequiredServices: []string{"redis"}})
	assert.Error(t, sv.ValidateServices(context.Background()))
}

func TestElasticsearchCheckNeedsURL(t *testing.T) {
	assert.Error(t, checkElasticsearch(context.Background(), ""))
}
