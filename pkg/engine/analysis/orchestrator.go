package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/DrSkyle/leastpriv/pkg/engine/aggregate"
	"github.com/DrSkyle/leastpriv/pkg/engine/conditions"
	"github.com/DrSkyle/leastpriv/pkg/engine/denial"
	"github.com/DrSkyle/leastpriv/pkg/engine/permissions"
	"github.com/DrSkyle/leastpriv/pkg/engine/policy"
	"github.com/DrSkyle/leastpriv/pkg/resource"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoSources means no log source produced any source id to analyze.
	ErrNoSources = errors.New("no log sources to analyze")
	// ErrAllSourcesFailed means every source failed to fetch.
	ErrAllSourcesFailed = errors.New("all log sources failed")
	// ErrPartialResult is returned in strict mode when some sources failed.
	ErrPartialResult = errors.New("analysis completed with partial results")
)

// LogSource supplies raw records. Implementations own paging, filtering
// and retries.
type LogSource interface {
	Name() string
	Sources(ctx context.Context) ([]string, error)
	Records(ctx context.Context, sourceID string) ([]denial.LogRecord, error)
}

// Config holds orchestrator settings.
type Config struct {
	// Concurrency bounds parallel fetches. Values below 1 mean sequential.
	Concurrency int

	// StrictMode turns any source failure into ErrPartialResult.
	StrictMode bool
}

// Orchestrator feeds records through parse, aggregate and synthesize.
type Orchestrator struct {
	sources   []LogSource
	inventory resource.Inventory
	rules     *policy.CELEngine
	config    Config
	now       func() time.Time

	Logger *slog.Logger
	Tracer trace.Tracer

	recordsScanned metric.Int64Counter
	denialsFound   metric.Int64Counter
	sourcesFailed  metric.Int64Counter
}

// Option defines a functional configuration override.
type Option func(*Orchestrator)

// WithInventory attaches resource context to denials.
func WithInventory(inv resource.Inventory) Option {
	return func(o *Orchestrator) {
		o.inventory = inv
	}
}

// WithRules sets the suppression rules applied before synthesis.
func WithRules(e *policy.CELEngine) Option {
	return func(o *Orchestrator) {
		o.rules = e
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.Logger = l
	}
}

func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) {
		o.config = cfg
	}
}

// WithClock overrides the generation time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		o.Tracer = t
	}
}

// New builds an Orchestrator over the given sources.
func New(sources []LogSource, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		sources: sources,
		now:     time.Now,
		Logger:  slog.Default(),
		Tracer:  otel.Tracer("leastpriv/analysis"),
	}
	for _, opt := range opts {
		opt(o)
	}

	meter := otel.Meter("leastpriv/analysis")
	var err error
	if o.recordsScanned, err = meter.Int64Counter("leastpriv.records.scanned",
		metric.WithDescription("Log records inspected for denial signatures")); err != nil {
		return nil, fmt.Errorf("records counter: %w", err)
	}
	if o.denialsFound, err = meter.Int64Counter("leastpriv.denials.found",
		metric.WithDescription("Parsed authorization denials")); err != nil {
		return nil, fmt.Errorf("denials counter: %w", err)
	}
	if o.sourcesFailed, err = meter.Int64Counter("leastpriv.sources.failed",
		metric.WithDescription("Log sources that could not be fetched")); err != nil {
		return nil, fmt.Errorf("failed sources counter: %w", err)
	}
	return o, nil
}

type target struct {
	source LogSource
	id     string
}

// fetched is one source after parsing. Raw records are dropped as soon as
// they are parsed, so only denials outlive the fetch.
type fetched struct {
	scanned int
	denials []*denial.Denial
	err     error
}

// Run analyzes every source once. Fetches and parsing may run in parallel
// but denials are merged in source order, so output does not depend on
// Concurrency. A failed source contributes nothing and never aborts the run.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	ctx, span := o.Tracer.Start(ctx, "Analysis.Run")
	defer span.End()

	started := o.now()
	res := &Result{GeneratedAt: started.UTC()}

	targets := o.listTargets(ctx, res)
	if len(targets) == 0 && len(res.FailedSources) == 0 {
		span.SetStatus(codes.Error, ErrNoSources.Error())
		return nil, ErrNoSources
	}

	results, err := o.fetchAll(ctx, targets)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	agg := aggregate.New()
	for i, t := range targets {
		o.ingest(ctx, agg, t.id, results[i], res)
	}

	perms := agg.Permissions(conditions.NewGenerator(started))
	kept, warnings, err := policy.Filter(ctx, o.rules, perms)
	if err != nil {
		return nil, fmt.Errorf("apply rules: %w", err)
	}
	res.Permissions = kept
	res.Warnings = warnings
	res.Stats.Suppressed = len(perms) - len(kept)
	res.Policy = permissions.Synthesize(kept)

	span.SetAttributes(
		attribute.Int("sources.total", res.Stats.Sources),
		attribute.Int("sources.failed", len(res.FailedSources)),
		attribute.Int("records.scanned", res.Stats.RecordsScanned),
		attribute.Int("denials.found", res.Stats.Denials),
		attribute.Int("permissions", len(res.Permissions)),
	)

	if len(res.FailedSources) > 0 {
		if len(res.FailedSources) == res.Stats.Sources {
			span.SetStatus(codes.Error, ErrAllSourcesFailed.Error())
			return res, ErrAllSourcesFailed
		}
		if o.config.StrictMode {
			o.Logger.Error("Strict Mode: failing due to partial results", "failed_sources", len(res.FailedSources))
			return res, ErrPartialResult
		}
		o.Logger.Warn("Analysis finished with failed sources", "failed_sources", len(res.FailedSources))
	}
	return res, nil
}

// listTargets expands every LogSource into source ids. A listing error is
// recorded as a failure under the LogSource name.
func (o *Orchestrator) listTargets(ctx context.Context, res *Result) []target {
	var targets []target
	for _, src := range o.sources {
		ids, err := src.Sources(ctx)
		if err != nil {
			res.Stats.Sources++
			o.fail(ctx, res, src.Name(), fmt.Errorf("list sources: %w", err))
			continue
		}
		for _, id := range ids {
			targets = append(targets, target{source: src, id: id})
		}
	}
	return targets
}

func (o *Orchestrator) fetchAll(ctx context.Context, targets []target) ([]fetched, error) {
	results := make([]fetched, len(targets))

	limit := o.config.Concurrency
	if limit < 1 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, t := range targets {
		g.Go(func() error {
			results[i] = o.fetch(gctx, t)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis cancelled: %w", err)
	}
	return results, nil
}

// fetch retrieves one source. Panics in a source become that source's error.
func (o *Orchestrator) fetch(ctx context.Context, t target) (out fetched) {
	ctx, span := o.Tracer.Start(ctx, "Analysis.Fetch", trace.WithAttributes(
		attribute.String("source.kind", t.source.Name()),
		attribute.String("source.id", t.id),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			span.SetAttributes(attribute.String("crash.stack", string(debug.Stack())))
			out = fetched{err: fmt.Errorf("source panicked: %v", r)}
		}
		if out.err != nil {
			span.RecordError(out.err)
			span.SetStatus(codes.Error, out.err.Error())
		}
	}()

	o.Logger.Debug("Fetching source", "source", t.id)
	recs, err := t.source.Records(ctx, t.id)
	if err != nil {
		return fetched{err: err}
	}
	out = fetched{scanned: len(recs)}
	for _, rec := range recs {
		if d, ok := denial.Parse(rec); ok {
			out.denials = append(out.denials, d)
		}
	}
	span.SetAttributes(attribute.Int("records", out.scanned), attribute.Int("denials", len(out.denials)))
	return out
}

// ingest merges one fetched source's denials.
func (o *Orchestrator) ingest(ctx context.Context, agg *aggregate.Aggregator, id string, f fetched, res *Result) {
	res.Stats.Sources++
	if f.err != nil {
		o.fail(ctx, res, id, f.err)
		return
	}

	found := f.denials
	attrs := metric.WithAttributes(attribute.String("source", id))
	o.recordsScanned.Add(ctx, int64(f.scanned), attrs)
	o.denialsFound.Add(ctx, int64(len(found)), attrs)
	res.Stats.RecordsScanned += f.scanned
	res.Stats.Denials += len(found)

	if len(found) == 0 {
		res.CleanSources = append(res.CleanSources, id)
		o.Logger.Debug("No denials in source", "source", id, "records", f.scanned)
		return
	}

	owner, _ := o.inventory.Owner(id)
	for _, d := range found {
		agg.Merge(aggregate.Observation{
			Denial:               d,
			SourceID:             id,
			AssociatedResourceID: owner,
			SiblingCount:         len(found),
		})
	}
	o.Logger.Info("Denials found", "source", id, "denials", len(found), "owner", owner)
}

func (o *Orchestrator) fail(ctx context.Context, res *Result, id string, err error) {
	res.FailedSources = append(res.FailedSources, SourceFailure{Source: id, Error: err.Error()})
	o.sourcesFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("source", id)))
	o.Logger.Error("Source failed", "source", id, "error", err)
}
