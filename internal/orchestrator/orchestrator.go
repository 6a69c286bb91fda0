package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mohammad-safakhou/daybrief/config"
	"github.com/mohammad-safakhou/daybrief/internal/auth"
	"github.com/mohammad-safakhou/daybrief/internal/briefing"
	"github.com/mohammad-safakhou/daybrief/internal/collector"
	"github.com/mohammad-safakhou/daybrief/internal/dispatch"
	"github.com/mohammad-safakhou/daybrief/internal/ocr"
	"github.com/mohammad-safakhou/daybrief/internal/telemetry"
	"github.com/mohammad-safakhou/daybrief/provider"
)

// State tracks pipeline progress through one run.
type State string

const (
	StateIdle          State = "idle"
	StateCollectingAll State = "collecting"
	StateAggregating   State = "aggregating"
	StateDispatching   State = "dispatching"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

// Synthesizer produces the final report from a resolved briefing context.
type Synthesizer interface {
	Synthesize(ctx context.Context, bc *briefing.Context) string
}

// RunResult is the outcome of a single pipeline run.
type RunResult struct {
	RunID    string
	Report   string
	Outcomes []dispatch.Outcome
	Elapsed  time.Duration
}

// Orchestrator runs the fixed daily pipeline: five collectors, one
// aggregation barrier, fan-out delivery. Collector and channel failures
// degrade into markers; only setup errors are fatal.
type Orchestrator struct {
	cfg       *config.Config
	logger    *log.Logger
	telemetry *telemetry.Telemetry

	collectors  []collector.Collector
	synthesizer Synthesizer
	dispatchers []dispatch.Dispatcher
	now         func() time.Time

	mu    sync.Mutex
	state State
}

// NewOrchestrator wires the production pipeline from configuration. An
// unusable LLM configuration is the one fatal setup error.
func NewOrchestrator(cfg *config.Config, logger *log.Logger) (*Orchestrator, error) {
	llm, err := provider.NewProvider(provider.OpenAI, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}

	broker := auth.NewBroker(cfg.Google, logger)
	extractor := ocr.NewExtractor(&ocr.TesseractEngine{}, cfg.Transit.PrimaryLang, cfg.Transit.SecondaryLang, logger)
	timeout := cfg.General.DefaultTimeout

	collectors := []collector.Collector{
		collector.NewMailCollector(broker, timeout, logger),
		collector.NewCalendarCollector(broker, timeout, logger),
		collector.NewTasksCollector(broker, timeout, logger),
		collector.NewMarketCollector(cfg.Market, timeout, logger),
		collector.NewTransitCollector(cfg.Transit, extractor, timeout, logger),
	}

	dispatchers := []dispatch.Dispatcher{
		dispatch.NewTelegram(cfg.Channels.Telegram, logger),
		dispatch.NewPushover(cfg.Channels.Pushover, cfg.General.DryRun, logger),
		dispatch.NewWhatsApp(cfg.Channels.WhatsApp, cfg.General.DryRun, logger),
	}

	return New(cfg, logger, collectors, briefing.NewSynthesizer(llm, logger), dispatchers), nil
}

// New assembles an orchestrator from explicit components.
func New(cfg *config.Config, logger *log.Logger, collectors []collector.Collector, synth Synthesizer, dispatchers []dispatch.Dispatcher) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		logger:      logger,
		telemetry:   telemetry.NewTelemetry(logger),
		collectors:  collectors,
		synthesizer: synth,
		dispatchers: dispatchers,
		now:         time.Now,
		state:       StateIdle,
	}
}

// State returns the current pipeline state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.logger.Printf("[ORCH] state: %s", s)
}

// Run executes one request-to-completion pipeline invocation.
func (o *Orchestrator) Run(ctx context.Context) (RunResult, error) {
	if err := ctx.Err(); err != nil {
		o.setState(StateFailed)
		return RunResult{}, err
	}

	runID := uuid.New().String()
	startTime := o.now()
	o.logger.Printf("[ORCH] starting run %s", runID)

	// Phase 1: collect. The stages are independent and run concurrently;
	// the broker serializes any shared credential work internally.
	o.setState(StateCollectingAll)
	bc := briefing.NewContext(startTime)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, c := range o.collectors {
		wg.Add(1)
		go func(c collector.Collector) {
			defer wg.Done()
			began := o.now()
			res := o.safeFetch(ctx, c)
			mu.Lock()
			bc.Set(res)
			mu.Unlock()
			o.telemetry.RecordCollectorEvent(telemetry.CollectorEvent{
				Collector: c.Name(),
				Status:    string(res.Status),
				Duration:  o.now().Sub(began),
				Detail:    res.Reason,
			})
		}(c)
	}
	// The pipeline's only synchronization barrier: aggregation needs
	// every stage resolved, whether success, empty or failure.
	wg.Wait()

	// Phase 2: aggregate into the report.
	o.setState(StateAggregating)
	report := o.synthesizer.Synthesize(ctx, bc)

	// Phase 3: dispatch. Channels are independent and never block each
	// other; outcomes are recorded, not retried.
	o.setState(StateDispatching)
	outcomes := make([]dispatch.Outcome, len(o.dispatchers))
	var dwg sync.WaitGroup
	for i, d := range o.dispatchers {
		dwg.Add(1)
		go func(i int, d dispatch.Dispatcher) {
			defer dwg.Done()
			began := o.now()
			outcomes[i] = o.safeDeliver(ctx, d, report)
			o.telemetry.RecordDispatchEvent(telemetry.DispatchEvent{
				Channel:  d.Name(),
				Status:   string(outcomes[i].Status),
				Duration: o.now().Sub(began),
				Detail:   outcomes[i].Detail,
			})
		}(i, d)
	}
	dwg.Wait()

	o.setState(StateDone)
	elapsed := o.now().Sub(startTime)
	o.telemetry.LogSummary(runID, elapsed)

	return RunResult{RunID: runID, Report: report, Outcomes: outcomes, Elapsed: elapsed}, nil
}

// safeFetch guarantees a collector result even if a stage panics.
func (o *Orchestrator) safeFetch(ctx context.Context, c collector.Collector) (res collector.Result) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Printf("[ORCH] collector %s panicked: %v", c.Name(), r)
			res = collector.Failuref(c.Name(), "panic: %v", r)
		}
	}()
	return c.Fetch(ctx)
}

// safeDeliver guarantees a delivery outcome even if a channel panics.
func (o *Orchestrator) safeDeliver(ctx context.Context, d dispatch.Dispatcher, report string) (out dispatch.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Printf("[ORCH] dispatcher %s panicked: %v", d.Name(), r)
			out = dispatch.Outcome{Channel: d.Name(), Status: dispatch.StatusFailed, Detail: fmt.Sprintf("panic: %v", r)}
		}
	}()
	return d.Deliver(ctx, report)
}
