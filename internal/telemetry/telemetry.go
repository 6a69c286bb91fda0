package telemetry

import (
	"log"
	"sync"
	"time"
)

// Telemetry records per-run stage events for logging. A run is short-lived,
// so everything stays in memory and is flushed as a summary at the end.
type Telemetry struct {
	logger *log.Logger

	mu         sync.Mutex
	collectors []CollectorEvent
	dispatches []DispatchEvent
}

// CollectorEvent captures one collector stage execution.
type CollectorEvent struct {
	Collector string
	Status    string
	Duration  time.Duration
	Detail    string
}

// DispatchEvent captures one delivery channel execution.
type DispatchEvent struct {
	Channel  string
	Status   string
	Duration time.Duration
	Detail   string
}

func NewTelemetry(logger *log.Logger) *Telemetry {
	return &Telemetry{logger: logger}
}

func (t *Telemetry) RecordCollectorEvent(ev CollectorEvent) {
	t.mu.Lock()
	t.collectors = append(t.collectors, ev)
	t.mu.Unlock()
	t.logger.Printf("[TELEMETRY] collector %s: %s in %v", ev.Collector, ev.Status, ev.Duration.Round(time.Millisecond))
}

func (t *Telemetry) RecordDispatchEvent(ev DispatchEvent) {
	t.mu.Lock()
	t.dispatches = append(t.dispatches, ev)
	t.mu.Unlock()
	t.logger.Printf("[TELEMETRY] channel %s: %s in %v", ev.Channel, ev.Status, ev.Duration.Round(time.Millisecond))
}

// CollectorEvents returns a copy of the recorded collector events.
func (t *Telemetry) CollectorEvents() []CollectorEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]CollectorEvent, len(t.collectors))
	copy(out, t.collectors)
	return out
}

// DispatchEvents returns a copy of the recorded dispatch events.
func (t *Telemetry) DispatchEvents() []DispatchEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]DispatchEvent, len(t.dispatches))
	copy(out, t.dispatches)
	return out
}

// LogSummary writes the end-of-run summary line.
func (t *Telemetry) LogSummary(runID string, elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	okCollectors := 0
	for _, ev := range t.collectors {
		if ev.Status == "success" || ev.Status == "empty" {
			okCollectors++
		}
	}
	deliveredChannels := 0
	for _, ev := range t.dispatches {
		if ev.Status == "delivered" || ev.Status == "simulated" {
			deliveredChannels++
		}
	}
	t.logger.Printf("[TELEMETRY] run %s: %d/%d collectors ok, %d/%d channels delivered, took %v",
		runID, okCollectors, len(t.collectors), deliveredChannels, len(t.dispatches), elapsed.Round(time.Millisecond))
}
