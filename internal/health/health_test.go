package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorst(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"empty is healthy", nil, StatusHealthy},
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"informational over healthy", []Status{StatusHealthy, StatusInformational}, StatusInformational},
		{"warning over informational", []Status{StatusInformational, StatusWarning, StatusHealthy}, StatusWarning},
		{"unhealthy dominates", []Status{StatusWarning, StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
		{"order does not matter", []Status{StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Worst(tt.statuses...))
		})
	}
}

type stubProbe struct {
	name   string
	result Result
}

func (p stubProbe) Name() string                    { return p.name }
func (p stubProbe) Probe(_ context.Context) Result { return p.result }

func TestAggregatorReducesToWorst(t *testing.T) {
	agg := NewAggregator(
		stubProbe{name: "store", result: Result{Status: StatusHealthy}},
		stubProbe{name: "memory", result: Result{Status: StatusWarning, Detail: "heap high"}},
		stubProbe{name: "coverage", result: Result{Status: StatusHealthy}},
	)

	report := agg.Check(context.Background())

	assert.Equal(t, StatusWarning, report.Status)
	require.Len(t, report.Components, 3)
	assert.Equal(t, StatusWarning, report.Components["memory"].Status)
	assert.Equal(t, "heap high", report.Components["memory"].Detail)
	assert.False(t, report.Timestamp.IsZero())
}

func TestAggregatorWithoutProbes(t *testing.T) {
	report := NewAggregator().Check(context.Background())
	assert.Equal(t, StatusHealthy, report.Status)
	assert.Empty(t, report.Components)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(_ context.Context) error { return p.err }

func TestStoreProbe(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		result := NewStoreProbe(stubPinger{}).Probe(context.Background())
		assert.Equal(t, StatusHealthy, result.Status)
	})

	t.Run("unreachable", func(t *testing.T) {
		result := NewStoreProbe(stubPinger{err: errors.New("connection refused")}).Probe(context.Background())
		assert.Equal(t, StatusUnhealthy, result.Status)
		assert.Contains(t, result.Detail, "connection refused")
	})
}

func TestMemoryProbe(t *testing.T) {
	const limit = 1000

	tests := []struct {
		name string
		used uint64
		want Status
	}{
		{"well below ceiling", 100, StatusHealthy},
		{"just under warning threshold", 799, StatusHealthy},
		{"at warning threshold", 800, StatusWarning},
		{"over ceiling", 1200, StatusWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe := NewMemoryProbe(limit)
			probe.readUsage = func() uint64 { return tt.used }

			result := probe.Probe(context.Background())
			assert.Equal(t, tt.want, result.Status)
			assert.NotEmpty(t, result.Detail)
		})
	}
}

func TestMemoryProbeReadsRealUsage(t *testing.T) {
	result := NewMemoryProbe(1 << 40).Probe(context.Background())
	assert.Equal(t, StatusHealthy, result.Status)
}

type stubCounter struct {
	count int
	err   error
}

func (c stubCounter) EnabledCount(_ context.Context) (int, error) { return c.count, c.err }

func TestCoverageProbe(t *testing.T) {
	t.Run("records monitored", func(t *testing.T) {
		result := NewCoverageProbe(stubCounter{count: 12}).Probe(context.Background())
		assert.Equal(t, StatusHealthy, result.Status)
		assert.Contains(t, result.Detail, "12")
	})

	t.Run("zero coverage is informational", func(t *testing.T) {
		result := NewCoverageProbe(stubCounter{count: 0}).Probe(context.Background())
		assert.Equal(t, StatusInformational, result.Status)
	})

	t.Run("count failure is unhealthy", func(t *testing.T) {
		result := NewCoverageProbe(stubCounter{err: errors.New("store down")}).Probe(context.Background())
		assert.Equal(t, StatusUnhealthy, result.Status)
	})
}
