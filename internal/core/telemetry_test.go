// AngelaMos | 2026
// telemetry_test.go

package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/configurator-api/internal/config"
)

func TestNewTelemetryDisabled(t *testing.T) {
	tel, err := NewTelemetry(context.Background(), config.OtelConfig{}, config.AppConfig{})
	require.NoError(t, err)
	assert.Nil(t, tel.provider)
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestNewTelemetryWithExporter(t *testing.T) {
	ctx := context.Background()
	tel, err := NewTelemetry(ctx, config.OtelConfig{
		Enabled:     true,
		Endpoint:    "127.0.0.1:4317",
		ServiceName: "configurator-api",
		Insecure:    true,
		SampleRate:  1,
	}, config.AppConfig{Version: "test", Environment: "test"})
	require.NoError(t, err)
	require.NotNil(t, tel.provider)

	_, span := StartTenantSpan(ctx, "access.check", "t-1")
	span.End()

	// nothing listens on the endpoint, so the final flush may fail
	_ = tel.Shutdown(ctx) //nolint:errcheck // see above
}

func TestSampleRate(t *testing.T) {
	assert.InDelta(t, defaultSampleRate, sampleRate(0), 0)
	assert.InDelta(t, defaultSampleRate, sampleRate(1.5), 0)
	assert.InDelta(t, 0.5, sampleRate(0.5), 0)
}
