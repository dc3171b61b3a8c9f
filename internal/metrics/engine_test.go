// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordChannelRefresh(t *testing.T) {
	before := testutil.ToFloat64(channelRefreshTotal.WithLabelValues("error"))
	RecordChannelRefresh("success", 42)
	RecordChannelRefresh("error", 0)

	assert.Equal(t, float64(42), testutil.ToFloat64(channelCount))
	assert.Equal(t, before+1, testutil.ToFloat64(channelRefreshTotal.WithLabelValues("error")))
}

func TestRecordCommandsRestoredIgnoresZero(t *testing.T) {
	before := testutil.ToFloat64(commandsRestored)
	RecordCommandsRestored(0)
	RecordCommandsRestored(3)
	assert.Equal(t, before+3, testutil.ToFloat64(commandsRestored))
}

func TestCircuitBreakerStateIsOneHot(t *testing.T) {
	SetCircuitBreakerState("test", "open")
	SetCircuitBreakerState("test", "closed")

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	states := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "stbportal_circuit_breaker_state" {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelValue(m, "component") == "test" {
				states[labelValue(m, "state")] = m.GetGauge().GetValue()
			}
		}
	}
	assert.Equal(t, map[string]float64{"closed": 1, "half-open": 0, "open": 0}, states)
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
