// Package match drives the external job-description match service.
//
// An Orchestrator watches the job-description text and the skills,
// experience and projects of the canonical résumé. When both a job
// description and a skills list are present it asks the Scorer for a
// score, keeping at most one call in flight. Inputs that change while a
// call is running mark the orchestrator dirty; the call's result is
// discarded if its snapshot is no longer current and a new call is made
// for the latest snapshot.
package match

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/RohitMukkala/coding-journey/pkg/httpcache"
	"github.com/RohitMukkala/coding-journey/pkg/resume"
)

// State is the orchestrator's position in the Idle -> Ready -> Matched cycle.
type State string

// Orchestrator states.
const (
	Idle    State = "idle"
	Ready   State = "ready"
	Matched State = "matched"
)

// Result is a score computed for one snapshot of the inputs.
type Result struct {
	Fingerprint     string   `json:"fingerprint"`
	MissingKeywords []string `json:"missing_keywords,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	Score           int      `json:"score"`
}

// Scorer computes a match between a résumé and a job description.
type Scorer interface {
	Score(ctx context.Context, r resume.Record, jobDescription string) (Result, error)
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(ctx context.Context, r resume.Record, jobDescription string) (Result, error)

// Score calls f.
func (f ScorerFunc) Score(ctx context.Context, r resume.Record, jobDescription string) (Result, error) {
	return f(ctx, r, jobDescription)
}

// ServiceError records a failed match call. It is a soft failure: the
// orchestrator stays Ready and retries on the next qualifying input change.
type ServiceError struct {
	Err         error
	Fingerprint string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("match service failed: %v", e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Inputs is a snapshot of everything the orchestrator watches.
type Inputs struct {
	JobDescription string
	Record         resume.Record
}

// Eligible reports whether in carries enough content to be matched.
func (in Inputs) Eligible() bool {
	return strings.TrimSpace(in.JobDescription) != "" && len(in.Record.Skills) > 0
}

// Fingerprint hashes the watched parts of in. Fields outside the
// watched set do not affect it.
func (in Inputs) Fingerprint() string {
	h := sha256.New()
	write := func(tag string, parts ...string) {
		h.Write([]byte(tag))
		for _, p := range parts {
			h.Write([]byte{0})
			h.Write([]byte(p))
		}
		h.Write([]byte{'\n'})
	}
	write("jd", strings.TrimSpace(in.JobDescription))
	write("skills", in.Record.Skills...)
	write("experience", in.Record.Experience...)
	write("projects", in.Record.Projects...)
	return hex.EncodeToString(h.Sum(nil))
}

// Status is a point-in-time view of an orchestrator.
type Status struct {
	Err         error
	Result      *Result
	State       State
	Fingerprint string
	InFlight    bool
}

// Option configures an Orchestrator.
type Option func(*config)

type config struct {
	cache   httpcache.Cacher
	logger  *slog.Logger
	timeout time.Duration
}

// WithCache memoises successful scores by fingerprint.
func WithCache(cache httpcache.Cacher) Option {
	return func(c *config) { c.cache = cache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithTimeout bounds each match call. The default is one minute.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// Orchestrator owns the match state machine for one résumé.
//
//nolint:govet // fieldalignment: readability over alignment
type Orchestrator struct {
	scorer  Scorer
	cache   httpcache.Cacher
	logger  *slog.Logger
	timeout time.Duration

	mu       sync.Mutex
	inputs   Inputs
	fp       string
	state    State
	result   *Result
	err      error
	inFlight bool
	dirty    bool
	// pendingCtx carries request-scoped values to the re-evaluation that
	// runs after the in-flight call settles.
	pendingCtx context.Context //nolint:containedctx // see above
	settled    chan struct{}
}

// New creates an Orchestrator in the Idle state.
func New(scorer Scorer, opts ...Option) *Orchestrator {
	cfg := &config{logger: slog.Default(), timeout: time.Minute}
	for _, opt := range opts {
		opt(cfg)
	}
	settled := make(chan struct{})
	close(settled)
	return &Orchestrator{
		scorer:  scorer,
		cache:   cfg.cache,
		logger:  cfg.logger,
		timeout: cfg.timeout,
		state:   Idle,
		fp:      Inputs{}.Fingerprint(),
		settled: settled,
	}
}

// Update replaces the watched inputs. If the watched snapshot changed, any
// stored result is invalidated and, when eligible, a match call is started
// or queued behind the one in flight. Update never blocks on the call.
//
// The call inherits ctx's values but not its cancellation.
func (o *Orchestrator) Update(ctx context.Context, in Inputs) {
	in.Record = in.Record.Clone()
	fp := in.Fingerprint()

	o.mu.Lock()
	defer o.mu.Unlock()

	o.inputs = in
	if fp == o.fp {
		return
	}
	o.fp = fp
	o.result = nil
	o.err = nil

	if !in.Eligible() {
		o.state = Idle
		if o.inFlight {
			o.dirty = true
		}
		return
	}
	o.state = Ready

	if o.inFlight {
		o.dirty = true
		o.pendingCtx = context.WithoutCancel(ctx)
		o.logger.DebugContext(ctx, "match inputs changed during call", "fingerprint", short(fp))
		return
	}
	o.settled = make(chan struct{})
	o.start(context.WithoutCancel(ctx))
}

// start launches a call for the current snapshot. Callers hold o.mu.
func (o *Orchestrator) start(ctx context.Context) {
	o.inFlight = true
	o.dirty = false
	o.pendingCtx = nil
	go o.run(ctx, o.inputs, o.fp)
}

func (o *Orchestrator) run(ctx context.Context, in Inputs, fp string) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	res, err := o.score(ctx, in, fp)
	cancel()

	o.mu.Lock()
	defer o.mu.Unlock()
	o.inFlight = false

	switch {
	case fp != o.fp:
		o.logger.DebugContext(ctx, "discarding stale match result",
			"call", short(fp), "current", short(o.fp))
	case err != nil:
		o.err = &ServiceError{Err: err, Fingerprint: fp}
		o.state = Ready
		o.logger.WarnContext(ctx, "match service failed", "fingerprint", short(fp), "error", err)
	default:
		res.Fingerprint = fp
		o.result = &res
		o.err = nil
		o.state = Matched
		o.logger.InfoContext(ctx, "match scored", "fingerprint", short(fp), "score", res.Score,
			"missing", len(res.MissingKeywords))
	}

	if o.dirty && o.state == Ready && o.result == nil && o.err == nil {
		next := o.pendingCtx
		if next == nil {
			next = context.WithoutCancel(ctx)
		}
		o.start(next)
		return
	}
	o.dirty = false
	o.pendingCtx = nil
	close(o.settled)
}

func (o *Orchestrator) score(ctx context.Context, in Inputs, fp string) (Result, error) {
	if o.cache == nil {
		return o.scorer.Score(ctx, in.Record, in.JobDescription)
	}
	data, err := o.cache.GetSet(ctx, "match:"+fp, func(ctx context.Context) ([]byte, error) {
		res, err := o.scorer.Score(ctx, in.Record, in.JobDescription)
		if err != nil {
			return nil, err
		}
		return json.Marshal(res)
	}, o.cache.TTL())
	if err != nil {
		return Result{}, err
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return Result{}, fmt.Errorf("decode cached match: %w", err)
	}
	return res, nil
}

// Status returns the current state. Result is nil unless State is Matched.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	st := Status{
		State:       o.state,
		Err:         o.err,
		Fingerprint: o.fp,
		InFlight:    o.inFlight,
	}
	if o.result != nil {
		r := *o.result
		r.MissingKeywords = append([]string(nil), r.MissingKeywords...)
		r.Recommendations = append([]string(nil), r.Recommendations...)
		st.Result = &r
	}
	return st
}

// Wait blocks until no call is in flight and no re-evaluation is pending.
func (o *Orchestrator) Wait(ctx context.Context) error {
	o.mu.Lock()
	ch := o.settled
	o.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func short(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
