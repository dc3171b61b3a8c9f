// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Enabled: false, ServiceName: "test"})
	require.NoError(t, err)
	assert.Nil(t, provider.tp)

	_, span := otel.Tracer("test").Start(context.Background(), "noop-check")
	assert.False(t, span.IsRecording())
	span.End()

	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, ServiceName: "test", ExporterType: "invalid"})
	require.Error(t, err)
	assert.Equal(t, "unsupported exporter type: invalid (supported: grpc, http)", err.Error())
}

func TestPlaybackAttributes_OmitsEmpty(t *testing.T) {
	attrs := PlaybackAttributes("live", "", "")
	require.Len(t, attrs, 1)
	assert.Equal(t, PlaybackSourceKey, string(attrs[0].Key))
}
