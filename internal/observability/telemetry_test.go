package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/diceengine/internal/config"
)

func TestSetup_Disabled(t *testing.T) {
	tel, err := Setup(context.Background(), config.TelemetryConfig{}, zap.NewNop())
	require.NoError(t, err)

	_, isNoop := tel.Recorder().(NoopRecorder)
	assert.True(t, isNoop)
	assert.NotNil(t, tel.Tracer())
	assert.False(t, tel.MetricsEnabled())
	assert.NoError(t, tel.ReportMetrics(context.Background()))
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestSetup_MetricsReportedToLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	cfg := config.TelemetryConfig{ServiceName: "diceengine", Metrics: true, MetricsInterval: time.Minute}

	tel, err := Setup(context.Background(), cfg, zap.New(core))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })

	require.True(t, tel.MetricsEnabled())
	tel.Recorder().RecordRoll(context.Background(), "telnet", 4)
	tel.Recorder().RecordAnalysis(context.Background(), "telnet", "exact", 2*time.Millisecond)

	require.NoError(t, tel.ReportMetrics(context.Background()))

	totals := map[string]int64{}
	for _, e := range logs.FilterMessage("metric").All() {
		fields := e.ContextMap()
		if v, ok := fields["total"]; ok {
			totals[fields["name"].(string)] = v.(int64)
		}
	}
	assert.Equal(t, int64(1), totals["dice.rolls"])
	assert.Equal(t, int64(4), totals["dice.drawn"])
	assert.Equal(t, int64(1), totals["dice.analyses"])
	assert.Equal(t, 1, logs.FilterMessage("metric").FilterField(zap.String("name", "dice.analysis.latency_ms")).Len())
}
