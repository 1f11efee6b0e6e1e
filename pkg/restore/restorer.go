// Package restore rebuilds the control scope of a graph from a stored
// snapshot. A Restorer schedules each pass after the host finishes its
// current evaluation, then discovers the scope, plans the rewrite and
// applies it, carrying captured recipients over to the new controls.
package restore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ormasoftchile/paramsnap/pkg/host"
	"github.com/ormasoftchile/paramsnap/pkg/metrics"
	"github.com/ormasoftchile/paramsnap/pkg/snapshot"
	"github.com/ormasoftchile/paramsnap/pkg/storage"
	"github.com/ormasoftchile/paramsnap/pkg/trace"
)

// ErrPassOutstanding is returned when a restore is requested for a prefix
// whose previous pass has not finished.
var ErrPassOutstanding = errors.New("restore pass already outstanding for prefix")

// State is the lifecycle position of a scope.
type State int

const (
	StateIdle State = iota
	StateTriggered
	StateLoading
	StateRewriting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTriggered:
		return "triggered"
	case StateLoading:
		return "loading"
	case StateRewriting:
		return "rewriting"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Request is everything a pass needs, captured when it is scheduled.
type Request struct {
	Path   string
	Prefix string
	Anchor host.Position
}

// Pass is one scheduled restore. Its results are valid once Done is closed.
type Pass struct {
	ID      string
	Request Request

	done     chan struct{}
	mu       sync.Mutex
	err      error
	report   *Report
	plan     *Plan
	warnings []*snapshot.ValidationError
}

// Done is closed when the pass has finished, successfully or not.
func (p *Pass) Done() <-chan struct{} { return p.done }

// Err returns the failure of the pass: a *snapshot.LoadError when nothing was
// mutated, an *ApplyError when the graph may be partially rewritten.
func (p *Pass) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Report returns what the pass did to the graph, possibly partial.
func (p *Pass) Report() *Report {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.report
}

// Plan returns the plan the pass executed, or nil if it failed before planning.
func (p *Pass) Plan() *Plan {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.plan
}

// Warnings returns the non-fatal validation findings for the loaded snapshot.
func (p *Pass) Warnings() []*snapshot.ValidationError {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.warnings
}

func (p *Pass) finish(rep *Report, plan *Plan, warnings []*snapshot.ValidationError, err error) {
	p.mu.Lock()
	p.report = rep
	p.plan = plan
	p.warnings = warnings
	p.err = err
	p.mu.Unlock()
	close(p.done)
}

type scope struct {
	state   State
	trigger bool
	pending *Pass
}

// Restorer schedules and runs restore passes against a host graph.
type Restorer struct {
	g       host.Graph
	sched   host.Scheduler
	store   storage.Store
	opts    Options
	log     zerolog.Logger
	trace   *trace.Writer
	metrics *metrics.Metrics
	observe func(prefix string, s State)

	mu     sync.Mutex
	scopes map[string]*scope
}

// Option configures a Restorer.
type Option func(*Restorer)

// WithOptions sets the restore options. The default is DefaultOptions.
func WithOptions(o Options) Option {
	return func(r *Restorer) { r.opts = o }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Restorer) { r.log = l }
}

// WithTrace sets the trace writer.
func WithTrace(t *trace.Writer) Option {
	return func(r *Restorer) { r.trace = t }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Restorer) { r.metrics = m }
}

// WithStateObserver registers fn to be called on every state transition.
// fn is called without the restorer lock held.
func WithStateObserver(fn func(prefix string, s State)) Option {
	return func(r *Restorer) { r.observe = fn }
}

// New creates a Restorer that mutates g, defers passes through sched and
// reads snapshots from store.
func New(g host.Graph, sched host.Scheduler, store storage.Store, opts ...Option) *Restorer {
	r := &Restorer{
		g:      g,
		sched:  sched,
		store:  store,
		opts:   DefaultOptions(),
		log:    zerolog.Nop(),
		trace:  trace.Nop(),
		scopes: make(map[string]*scope),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Options returns the options the restorer was built with.
func (r *Restorer) Options() Options { return r.opts }

// State reports the current state of prefix.
func (r *Restorer) State(prefix string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sc, ok := r.scopes[prefix]; ok {
		return sc.state
	}
	return StateIdle
}

func (r *Restorer) scope(prefix string) *scope {
	sc, ok := r.scopes[prefix]
	if !ok {
		sc = &scope{}
		r.scopes[prefix] = sc
	}
	return sc
}

func (r *Restorer) setState(prefix string, s State) {
	r.mu.Lock()
	r.scope(prefix).state = s
	r.mu.Unlock()
	if r.observe != nil {
		r.observe(prefix, s)
	}
}

// Update feeds the current value of the trigger input for req.Prefix. A pass
// is scheduled only when the trigger goes from false to true; otherwise Update
// returns nil, nil.
func (r *Restorer) Update(ctx context.Context, trigger bool, req Request) (*Pass, error) {
	r.mu.Lock()
	sc := r.scope(req.Prefix)
	rising := trigger && !sc.trigger
	sc.trigger = trigger
	r.mu.Unlock()
	if !rising {
		return nil, nil
	}
	return r.Trigger(ctx, req)
}

// Trigger schedules a single restore pass for req. The host runs it after
// the configured delay, once the current evaluation has completed.
func (r *Restorer) Trigger(ctx context.Context, req Request) (*Pass, error) {
	if req.Prefix == "" {
		return nil, ErrEmptyPrefix
	}
	if err := r.opts.Validate(); err != nil {
		return nil, fmt.Errorf("restore options: %w", err)
	}

	r.mu.Lock()
	sc := r.scope(req.Prefix)
	if sc.pending != nil {
		id := sc.pending.ID
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %q (pass %s)", ErrPassOutstanding, req.Prefix, id)
	}
	p := &Pass{
		ID:      uuid.NewString(),
		Request: req,
		done:    make(chan struct{}),
	}
	sc.pending = p
	r.mu.Unlock()

	r.setState(req.Prefix, StateTriggered)
	_ = r.trace.EmitPass(p.ID, trace.EventRestoreScheduled, map[string]any{
		"path":        req.Path,
		"prefix":      req.Prefix,
		"delay_ticks": r.opts.DelayTicks,
	})
	r.log.Debug().
		Str("pass_id", p.ID).
		Str("prefix", req.Prefix).
		Str("path", req.Path).
		Int("delay_ticks", r.opts.DelayTicks).
		Msg("restore scheduled")

	r.sched.ScheduleDeferred(func(ctx context.Context) {
		r.run(ctx, p)
	}, r.opts.DelayTicks)
	return p, nil
}

func (r *Restorer) run(ctx context.Context, p *Pass) {
	req := p.Request
	start := time.Now()
	tw := r.trace.Pass(p.ID)
	log := r.log.With().Str("pass_id", p.ID).Str("prefix", req.Prefix).Logger()

	r.setState(req.Prefix, StateLoading)
	_ = tw.Emit(trace.EventRestoreStart, map[string]any{"path": req.Path, "prefix": req.Prefix})

	s, warnings, err := snapshot.Load(ctx, r.store, req.Path, r.opts.Rules)
	if err != nil {
		log.Error().Err(err).Str("path", req.Path).Msg("restore aborted, graph untouched")
		_ = tw.EmitRestoreFailed("load", err)
		r.metrics.ObservePass(metrics.ResultLoadError, 0, 0, 0, time.Since(start))
		r.complete(p, nil, nil, nil, err)
		return
	}
	warnings = append(warnings, snapshot.CheckRange(s, r.opts.Range.Min, r.opts.Range.Max)...)
	for _, w := range warnings {
		log.Warn().Str("path", w.Path).Msg(w.Message)
	}
	_ = tw.Emit(trace.EventSnapshotLoaded, map[string]any{
		"path":     req.Path,
		"banks":    len(s.BankSizes),
		"values":   s.Total(),
		"points":   len(s.Points),
		"warnings": len(warnings),
	})

	r.setState(req.Prefix, StateRewriting)
	rep, plan, err := r.rewrite(ctx, req, s, tw)
	if err != nil {
		log.Error().Err(err).Msg("restore failed, graph may be partially rewritten")
		_ = tw.EmitRestoreFailed(failedStage(err), err)
		deleted, created, edges := 0, 0, 0
		if rep != nil {
			deleted, created, edges = len(rep.Deleted), rep.Created(), rep.Edges
		}
		r.metrics.ObservePass(metrics.ResultApplyError, deleted, created, edges, time.Since(start))
		r.complete(p, rep, plan, warnings, err)
		return
	}

	for _, c := range plan.Dropped {
		log.Warn().Str("role", c.Role.String()).Int("recipients", len(c.Recipients)).
			Msg("role absent from snapshot, recipients left unconnected")
	}
	elapsed := time.Since(start)
	_ = tw.EmitRestoreComplete(len(rep.Deleted), rep.Created(), rep.Edges, elapsed)
	r.metrics.ObservePass(metrics.ResultOK, len(rep.Deleted), rep.Created(), rep.Edges, elapsed)
	log.Info().
		Int("deleted", len(rep.Deleted)).
		Int("created", rep.Created()).
		Int("edges", rep.Edges).
		Dur("duration", elapsed).
		Msg("restore complete")
	r.complete(p, rep, plan, warnings, nil)
}

func (r *Restorer) rewrite(ctx context.Context, req Request, s *snapshot.Snapshot, tw *trace.PassWriter) (*Report, *Plan, error) {
	d, err := Discover(ctx, r.g, req.Prefix)
	if err != nil {
		return nil, nil, &stageError{stage: StageDiscover, err: err}
	}
	if len(d.Orphans) > 0 {
		r.log.Warn().Str("prefix", req.Prefix).Int("orphans", len(d.Orphans)).
			Msg("in-scope nodes without a role have recipients; their edges will be lost")
	}
	plan, err := BuildPlan(d, s, r.opts, req.Anchor)
	if err != nil {
		return nil, nil, &stageError{stage: StagePlan, err: err}
	}
	rep, err := Apply(ctx, r.g, plan, tw)
	return rep, plan, err
}

// stageError marks a rewrite failure that happened before Apply.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }

func (e *stageError) Unwrap() error { return e.err }

// failedStage names the rewrite stage err came from.
func failedStage(err error) string {
	var se *stageError
	if errors.As(err, &se) {
		return se.stage
	}
	var ae *ApplyError
	if errors.As(err, &ae) {
		return ae.Step
	}
	return StagePlan
}

func (r *Restorer) complete(p *Pass, rep *Report, plan *Plan, warnings []*snapshot.ValidationError, err error) {
	prefix := p.Request.Prefix
	if err != nil {
		r.setState(prefix, StateFailed)
	}
	r.mu.Lock()
	r.scope(prefix).pending = nil
	r.mu.Unlock()
	r.setState(prefix, StateIdle)
	p.finish(rep, plan, warnings, err)
}
