package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/concernlab/dialog-platform/internal/intent"
)

func TestDialogMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDialogMetrics(reg)
	m.ObserveTurn("en", intent.LabelConcern, 120*time.Millisecond)
	m.ObserveOracleCall("kp_matching", 0.5)
}

func TestDialogMetricsNilSafe(t *testing.T) {
	var m *DialogMetrics
	m.ObserveTurn("en", intent.LabelConcern, time.Second)
	m.ObserveOracleCall("intent", 0.1)
}
