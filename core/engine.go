package core

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/leadscore/schema"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Engine scores enrichment payloads against framework configurations.
// It holds no mutable state, so one Engine may serve many goroutines.
type Engine struct {
	clock   func() time.Time
	workers int
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used for calculated_at and recency windows.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithWorkers bounds how many contacts ScoreAll scores at once.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the logger for batch diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an Engine. Without options it uses the wall clock, one
// worker per CPU and the default slog logger.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		clock:   time.Now,
		workers: runtime.GOMAXPROCS(0),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time {
	return e.clock()
}

// Score evaluates one payload against cfg. An invalid cfg is refused with an
// *schema.InvalidConfigurationError before any dimension is evaluated.
func (e *Engine) Score(payload *schema.EnrichmentPayload, cfg schema.FrameworkConfig) (schema.ScoreResult, error) {
	if err := cfg.Validate(); err != nil {
		return schema.ScoreResult{}, err
	}
	return e.score(payload, &cfg, e.clock()), nil
}

// ScoreFrameworks scores one payload against several frameworks, returning
// results in the order of cfgs. Every configuration is validated first.
func (e *Engine) ScoreFrameworks(payload *schema.EnrichmentPayload, cfgs ...schema.FrameworkConfig) ([]schema.ScoreResult, error) {
	var errs error
	for _, cfg := range cfgs {
		errs = multierr.Append(errs, cfg.Validate())
	}
	if errs != nil {
		return nil, errs
	}

	now := e.clock()
	results := make([]schema.ScoreResult, 0, len(cfgs))
	for i := range cfgs {
		results = append(results, e.score(payload, &cfgs[i], now))
	}
	return results, nil
}

func (e *Engine) score(payload *schema.EnrichmentPayload, cfg *schema.FrameworkConfig, now time.Time) schema.ScoreResult {
	if payload == nil {
		payload = &schema.EnrichmentPayload{}
	}
	return NewScoreResultBuilder(payload, cfg, now).
		EvaluateDimensions().
		CalculateComposite().
		ClassifyTier().
		Build()
}

// outcome is the result slot of one contact in a batch.
type outcome struct {
	done   bool
	result schema.ScoreResult
	err    error
}

// ScoreAll scores every contact against cfg in parallel.
//
// Only an invalid cfg returns an error, and it does so before any contact is
// touched. Everything else is reported in the BatchResult: malformed payloads,
// duplicate ids and panics become per-contact failures. When ctx is canceled no
// new contacts are started; the result reflects exactly the contacts that
// finished and the rest are counted as skipped.
func (e *Engine) ScoreAll(ctx context.Context, contacts []schema.Contact, cfg schema.FrameworkConfig) (schema.BatchResult, error) {
	if err := cfg.Validate(); err != nil {
		return schema.BatchResult{}, err
	}

	runID := uuid.NewString()
	now := e.clock()
	outcomes := make([]outcome, len(contacts))

	seen := make(map[string]int, len(contacts))
	for i, c := range contacts {
		switch first, dup := seen[c.ID]; {
		case c.ID == "":
			outcomes[i] = outcome{done: true, err: fmt.Errorf("%w: missing contact id", schema.ErrMalformedPayload)}
		case dup:
			outcomes[i] = outcome{done: true, err: fmt.Errorf("duplicate contact id (first seen at position %d)", first+1)}
		default:
			seen[c.ID] = i
		}
	}

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i := range contacts {
		if outcomes[i].done {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			outcomes[i] = e.scoreContact(contacts[i], &cfg, now)
			return nil
		})
	}
	_ = g.Wait() // units never return errors

	batch := schema.BatchResult{
		RunID:     runID,
		Framework: cfg.Framework,
		Total:     len(contacts),
		Failed:    []schema.ContactFailure{},
	}
	for i, o := range outcomes {
		switch {
		case !o.done:
			batch.Skipped++
		case o.err != nil:
			batch.Failed = append(batch.Failed, schema.ContactFailure{ContactID: contacts[i].ID, Error: o.err.Error()})
		default:
			batch.Results = append(batch.Results, o.result)
			batch.Scored++
		}
	}
	batch.Canceled = ctx.Err() != nil && batch.Skipped > 0

	e.logger.Debug("Scored batch",
		"run_id", runID,
		"framework", cfg.Framework,
		"total", batch.Total,
		"scored", batch.Scored,
		"failed", len(batch.Failed),
		"skipped", batch.Skipped)
	return batch, nil
}

// scoreContact scores one batch unit. A panic is recovered into that
// contact's failure so it never escapes the batch.
func (e *Engine) scoreContact(c schema.Contact, cfg *schema.FrameworkConfig, now time.Time) (o outcome) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Recovered panic while scoring contact", "contact_id", c.ID, "panic", r)
			o = outcome{done: true, err: fmt.Errorf("internal error while scoring: %v", r)}
		}
	}()

	payload, err := DecodePayload(c.Enrichment)
	if err != nil {
		return outcome{done: true, err: err}
	}
	payload.ContactID = c.ID
	return outcome{done: true, result: e.score(payload, cfg, now)}
}
