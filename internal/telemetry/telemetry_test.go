package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestInitTracerDisabled(t *testing.T) {
	tp, err := InitTracer(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, tp)
}

func TestStartSpanWithNoopProvider(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "toggle.reaction", attribute.String("relation", "reaction"))
	assert.NotNil(t, ctx)
	EndSpan(span, errors.New("boom"))
}

func TestInstrumentedClientDefaultsTimeout(t *testing.T) {
	c := NewInstrumentedHTTPClient(0)
	assert.NotZero(t, c.Timeout)
	assert.NotNil(t, c.Transport)
}
