// Package health runs independent component probes and reduces them to one
// composite status.
package health

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

// Status is a single probe or composite health status.
type Status string

const (
	StatusHealthy       Status = "healthy"
	StatusInformational Status = "informational"
	StatusWarning       Status = "warning"
	StatusUnhealthy     Status = "unhealthy"
)

// severity orders statuses for the worst-of reduction.
func (s Status) severity() int {
	switch s {
	case StatusUnhealthy:
		return 3
	case StatusWarning:
		return 2
	case StatusInformational:
		return 1
	default:
		return 0
	}
}

// Worst reduces statuses to the most severe one. An empty input is healthy.
func Worst(statuses ...Status) Status {
	overall := StatusHealthy
	for _, s := range statuses {
		if s.severity() > overall.severity() {
			overall = s
		}
	}
	return overall
}

// Result is the outcome of one probe.
type Result struct {
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Probe is one independent component check.
type Probe interface {
	Name() string
	Probe(ctx context.Context) Result
}

// Report is the composite diagnostic produced by the aggregator.
type Report struct {
	Status     Status            `json:"status"`
	Components map[string]Result `json:"components"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Aggregator runs its probes and reduces their results. It runs
// independently of the write path, on demand.
type Aggregator struct {
	probes []Probe
}

func NewAggregator(probes ...Probe) *Aggregator {
	return &Aggregator{probes: probes}
}

// Check runs every probe and reduces to the worst status.
func (a *Aggregator) Check(ctx context.Context) Report {
	components := make(map[string]Result, len(a.probes))
	statuses := make([]Status, 0, len(a.probes))

	for _, probe := range a.probes {
		result := probe.Probe(ctx)
		components[probe.Name()] = result
		statuses = append(statuses, result.Status)
	}

	return Report{
		Status:     Worst(statuses...),
		Components: components,
		Timestamp:  time.Now().UTC(),
	}
}

// Pinger is the store reachability dependency of the store probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreProbe reports unhealthy when a trivial read against the backing
// store fails.
type StoreProbe struct {
	pinger Pinger
}

func NewStoreProbe(pinger Pinger) *StoreProbe {
	return &StoreProbe{pinger: pinger}
}

func (p *StoreProbe) Name() string { return "store" }

func (p *StoreProbe) Probe(ctx context.Context) Result {
	if err := p.pinger.Ping(ctx); err != nil {
		return Result{Status: StatusUnhealthy, Detail: err.Error()}
	}
	return Result{Status: StatusHealthy}
}

// memoryWarningRatio is the fraction of the configured ceiling at which the
// memory probe degrades to warning.
const memoryWarningRatio = 0.80

// MemoryProbe compares current process heap usage against a configured ceiling.
type MemoryProbe struct {
	limitBytes uint64
	readUsage  func() uint64
}

func NewMemoryProbe(limitBytes uint64) *MemoryProbe {
	return &MemoryProbe{
		limitBytes: limitBytes,
		readUsage:  heapAlloc,
	}
}

func heapAlloc() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.Alloc
}

func (p *MemoryProbe) Name() string { return "memory" }

func (p *MemoryProbe) Probe(_ context.Context) Result {
	used := p.readUsage()
	ratio := float64(used) / float64(p.limitBytes)
	detail := fmt.Sprintf("%d of %d bytes (%.0f%%)", used, p.limitBytes, ratio*100)

	if ratio >= memoryWarningRatio {
		return Result{Status: StatusWarning, Detail: detail}
	}
	return Result{Status: StatusHealthy, Detail: detail}
}

// EnabledCounter is the coverage probe's view of the record manager.
type EnabledCounter interface {
	EnabledCount(ctx context.Context) (int, error)
}

// CoverageProbe checks that at least one record is actively monitored.
// Zero coverage is informational, not a failure.
type CoverageProbe struct {
	counter EnabledCounter
}

func NewCoverageProbe(counter EnabledCounter) *CoverageProbe {
	return &CoverageProbe{counter: counter}
}

func (p *CoverageProbe) Name() string { return "coverage" }

func (p *CoverageProbe) Probe(ctx context.Context) Result {
	count, err := p.counter.EnabledCount(ctx)
	if err != nil {
		return Result{Status: StatusUnhealthy, Detail: err.Error()}
	}
	if count == 0 {
		return Result{Status: StatusInformational, Detail: "no records under monitoring"}
	}
	return Result{Status: StatusHealthy, Detail: fmt.Sprintf("%d records monitored", count)}
}
