// Package journey is the aggregation context for one developer: it owns the
// per-platform stats slots and the canonical résumé record, and wires the
// platform fetchers, the validation gate, the merge engine and the match
// orchestrator together.
//
// Importing journey registers the GitHub, LeetCode, Codeforces and CodeChef
// adapters. Responses are cached on disk when a persistent cache is supplied.
//
// Basic usage:
//
//	cache, err := httpcache.New(24 * time.Hour)
//	if err != nil {
//	    return err
//	}
//	j, err := journey.New(ctx, journey.WithGitHubToken(token), journey.WithHTTPCache(cache))
//	if err != nil {
//	    return err
//	}
//	cycle, err := j.Refresh(ctx, journey.Handles{
//	    GitHub:     "https://github.com/octocat",
//	    Codeforces: "tourist",
//	})
//	for kind, slot := range cycle.Slots {
//	    fmt.Println(kind, slot.State)
//	}
package journey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/RohitMukkala/coding-journey/pkg/achievement"
	"github.com/RohitMukkala/coding-journey/pkg/gate"
	"github.com/RohitMukkala/coding-journey/pkg/httpcache"
	"github.com/RohitMukkala/coding-journey/pkg/match"
	"github.com/RohitMukkala/coding-journey/pkg/profile"
	"github.com/RohitMukkala/coding-journey/pkg/remote"
	"github.com/RohitMukkala/coding-journey/pkg/resume"
)

// ErrNothingToGenerate is returned by Document when the record is empty.
var ErrNothingToGenerate = errors.New("resume record is empty")

// Extractor turns uploaded documents into partial records or text.
type Extractor interface {
	ExtractResume(ctx context.Context, filename string, content []byte) (gate.Extraction, error)
	ExtractLinkedIn(ctx context.Context, filename string, content []byte) (gate.Extraction, error)
	ExtractJobDescription(ctx context.Context, filename string, content []byte) (string, error)
}

// Generator renders the final record into a document.
type Generator interface {
	Generate(ctx context.Context, r resume.Record, result *match.Result) ([]byte, error)
}

// Source identifies where an extracted record came from.
type Source string

// Record sources.
const (
	SourceResume   Source = "resume"
	SourceLinkedIn Source = "linkedin"
)

// Option configures a Journey.
type Option func(*config)

//nolint:govet // fieldalignment: readability over alignment
type config struct {
	cache       httpcache.Cacher
	logger      *slog.Logger
	fetchers    map[profile.Kind]profile.Fetcher
	extractor   Extractor
	scorer      match.Scorer
	generator   Generator
	githubToken string
	serviceURL  string
}

// WithHTTPCache shares a response cache across all platform clients and
// memoises match scores.
func WithHTTPCache(httpCache httpcache.Cacher) Option {
	return func(c *config) { c.cache = httpCache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithGitHubToken sets the GitHub API token.
func WithGitHubToken(token string) Option {
	return func(c *config) { c.githubToken = token }
}

// WithServiceURL points the default extraction, scoring and generation
// client at url.
func WithServiceURL(url string) Option {
	return func(c *config) { c.serviceURL = url }
}

// WithFetcher replaces the registered fetcher for kind.
func WithFetcher(kind profile.Kind, f profile.Fetcher) Option {
	return func(c *config) {
		if c.fetchers == nil {
			c.fetchers = make(map[profile.Kind]profile.Fetcher)
		}
		c.fetchers[kind] = f
	}
}

// WithExtractor replaces the document extraction client.
func WithExtractor(e Extractor) Option {
	return func(c *config) { c.extractor = e }
}

// WithScorer replaces the match scoring client.
func WithScorer(s match.Scorer) Option {
	return func(c *config) { c.scorer = s }
}

// WithGenerator replaces the document generation client.
func WithGenerator(g Generator) Option {
	return func(c *config) { c.generator = g }
}

// Journey aggregates one developer's platform stats and résumé.
//
//nolint:govet // fieldalignment: readability over alignment
type Journey struct {
	fetchers  map[profile.Kind]profile.Fetcher
	extractor Extractor
	generator Generator
	orch      *match.Orchestrator
	validate  *validator.Validate
	logger    *slog.Logger

	mu       sync.Mutex
	slots    map[profile.Kind]Slot
	record   resume.Record
	jd       string
	uploaded map[Source]bool
}

// New creates a Journey. Platform fetchers come from the profile registry
// unless overridden with WithFetcher.
func New(ctx context.Context, opts ...Option) (*Journey, error) {
	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.extractor == nil || cfg.scorer == nil || cfg.generator == nil {
		ropts := []remote.Option{remote.WithLogger(cfg.logger)}
		if cfg.serviceURL != "" {
			ropts = append(ropts, remote.WithBaseURL(cfg.serviceURL))
		}
		client, err := remote.New(ropts...)
		if err != nil {
			return nil, fmt.Errorf("create service client: %w", err)
		}
		if cfg.extractor == nil {
			cfg.extractor = client
		}
		if cfg.scorer == nil {
			cfg.scorer = client
		}
		if cfg.generator == nil {
			cfg.generator = client
		}
	}

	fetchers := make(map[profile.Kind]profile.Fetcher, len(profile.Kinds))
	fcfg := &profile.FetcherConfig{Cache: cfg.cache, Logger: cfg.logger, GitHubToken: cfg.githubToken}
	for _, kind := range profile.Kinds {
		if f, ok := cfg.fetchers[kind]; ok {
			fetchers[kind] = f
			continue
		}
		f, err := profile.NewFetcher(ctx, kind, fcfg)
		if err != nil {
			return nil, fmt.Errorf("create %s fetcher: %w", kind, err)
		}
		fetchers[kind] = f
	}

	mopts := []match.Option{match.WithLogger(cfg.logger)}
	if cfg.cache != nil {
		mopts = append(mopts, match.WithCache(cfg.cache))
	}

	slots := make(map[profile.Kind]Slot, len(profile.Kinds))
	for _, kind := range profile.Kinds {
		slots[kind] = Slot{Kind: kind, State: NotConnected}
	}

	return &Journey{
		fetchers:  fetchers,
		extractor: cfg.extractor,
		generator: cfg.generator,
		orch:      match.New(cfg.scorer, mopts...),
		validate:  newValidator(),
		logger:    cfg.logger,
		slots:     slots,
		uploaded:  make(map[Source]bool),
	}, nil
}

// SlotState is the loading state of one platform slot.
type SlotState string

// Slot states.
const (
	NotConnected SlotState = "not_connected"
	Loading      SlotState = "loading"
	Loaded       SlotState = "loaded"
	Failed       SlotState = "failed"
)

// Slot is one platform's most recent fetch outcome.
type Slot struct {
	UpdatedAt time.Time
	Err       error
	Profile   *profile.PlatformProfile
	Kind      profile.Kind
	State     SlotState
	Username  string
	CycleID   uuid.UUID
}

// Cycle is the outcome of one Refresh.
type Cycle struct {
	Started  time.Time
	Finished time.Time
	Slots    map[profile.Kind]Slot
	ID       uuid.UUID
}

// Failed returns the kinds whose fetch failed in this cycle.
func (c Cycle) Failed() []profile.Kind {
	var out []profile.Kind
	for _, kind := range profile.Kinds {
		if s, ok := c.Slots[kind]; ok && s.State == Failed {
			out = append(out, kind)
		}
	}
	return out
}

// Refresh fetches every platform concurrently and returns once all have
// settled. A failing platform is recorded in its slot and never affects the
// others. Slots are observable through Slots while the cycle runs. The only
// error is an invalid handle, reported before anything is fetched.
//
// A newer cycle supersedes an older one still running: the older cycle's
// late results are not written to the slots.
func (j *Journey) Refresh(ctx context.Context, h Handles) (Cycle, error) {
	h = h.Normalize()
	if err := validateHandles(j.validate, h); err != nil {
		return Cycle{}, err
	}

	cycle := Cycle{ID: uuid.New(), Started: time.Now(), Slots: make(map[profile.Kind]Slot, len(profile.Kinds))}
	logger := j.logger.With("cycle", cycle.ID.String())
	logger.InfoContext(ctx, "refresh started")

	j.mu.Lock()
	for _, kind := range profile.Kinds {
		state := Loading
		if h.For(kind) == "" {
			state = NotConnected
		}
		j.slots[kind] = Slot{Kind: kind, State: state, Username: h.For(kind), CycleID: cycle.ID, UpdatedAt: cycle.Started}
	}
	j.mu.Unlock()

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	for _, kind := range profile.Kinds {
		g.Go(func() error {
			slot := j.fetch(ctx, logger, cycle.ID, kind, h.For(kind))
			mu.Lock()
			cycle.Slots[kind] = slot
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // per-slot errors are captured in the slots

	cycle.Finished = time.Now()
	logger.InfoContext(ctx, "refresh finished",
		"duration", cycle.Finished.Sub(cycle.Started), "failed", len(cycle.Failed()))
	return cycle, nil
}

func (j *Journey) fetch(ctx context.Context, logger *slog.Logger, id uuid.UUID, kind profile.Kind, username string) Slot {
	slot := Slot{Kind: kind, Username: username, CycleID: id}

	if username == "" {
		slot.State = NotConnected
	} else {
		p, err := j.fetchers[kind].Fetch(ctx, username)
		switch {
		case errors.Is(err, profile.ErrNotConnected):
			slot.State = NotConnected
		case err != nil:
			slot.State = Failed
			slot.Err = &profile.FetchError{Kind: kind, Username: username, Err: err}
			var fe *profile.FetchError
			if errors.As(err, &fe) {
				slot.Err = fe
			}
			logger.WarnContext(ctx, "platform fetch failed", "platform", kind, "username", username, "error", err)
		default:
			slot.State = Loaded
			slot.Profile = p
			logger.DebugContext(ctx, "platform loaded", "platform", kind, "username", username)
		}
	}
	slot.UpdatedAt = time.Now()

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.slots[kind].CycleID == id {
		j.slots[kind] = slot
	}
	return slot
}

// Slots returns the current state of every platform slot.
func (j *Journey) Slots() map[profile.Kind]Slot {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make(map[profile.Kind]Slot, len(j.slots))
	for k, v := range j.slots {
		out[k] = v
	}
	return out
}

// Achievements derives badges from the loaded slots.
func (j *Journey) Achievements() []achievement.Badge {
	loaded := make(map[profile.Kind]*profile.PlatformProfile)
	for kind, s := range j.Slots() {
		if s.State == Loaded && s.Profile != nil {
			loaded[kind] = s.Profile
		}
	}
	return achievement.Derive(loaded)
}

// IngestResume extracts a résumé document and merges it into the record.
func (j *Journey) IngestResume(ctx context.Context, filename string, content []byte) error {
	x, err := j.extractor.ExtractResume(ctx, filename, content)
	if err != nil {
		j.setUploaded(SourceResume, false)
		return fmt.Errorf("extract resume: %w", err)
	}
	return j.Ingest(ctx, SourceResume, x)
}

// IngestLinkedIn extracts an exported LinkedIn profile and merges it into the record.
func (j *Journey) IngestLinkedIn(ctx context.Context, filename string, content []byte) error {
	x, err := j.extractor.ExtractLinkedIn(ctx, filename, content)
	if err != nil {
		j.setUploaded(SourceLinkedIn, false)
		return fmt.Errorf("extract linkedin profile: %w", err)
	}
	return j.Ingest(ctx, SourceLinkedIn, x)
}

// Ingest gates an extraction and, if accepted, merges it into the record
// and re-evaluates the match. A rejected extraction changes nothing except
// clearing src's uploaded flag, and is returned as a *gate.RejectionError.
func (j *Journey) Ingest(ctx context.Context, src Source, x gate.Extraction) error {
	if v := gate.CheckRecord(x); !v.OK() {
		j.setUploaded(src, false)
		j.logger.InfoContext(ctx, "extraction rejected", "source", src, "reason", v.Reason, "detail", v.Detail)
		return v.Err()
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.record = resume.Merge(j.record, x.Record)
	j.uploaded[src] = true
	j.logger.InfoContext(ctx, "record merged", "source", src, "fields", len(j.record.Lists()))
	j.updateMatchLocked(ctx)
	return nil
}

// UploadJobDescription extracts a job description document and sets it.
func (j *Journey) UploadJobDescription(ctx context.Context, filename string, content []byte) error {
	text, err := j.extractor.ExtractJobDescription(ctx, filename, content)
	if err != nil {
		return fmt.Errorf("extract job description: %w", err)
	}
	return j.SetJobDescription(ctx, text)
}

// SetJobDescription gates text and makes it the job description to match
// against. Rejected text leaves the current description in place.
func (j *Journey) SetJobDescription(ctx context.Context, text string) error {
	if v := gate.CheckText(text); !v.OK() {
		j.logger.InfoContext(ctx, "job description rejected", "reason", v.Reason)
		return v.Err()
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jd = text
	j.updateMatchLocked(ctx)
	return nil
}

// ClearJobDescription removes the job description.
func (j *Journey) ClearJobDescription(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jd = ""
	j.updateMatchLocked(ctx)
}

// Edit applies an explicit user edit to one field. Unlike a merge, it
// overwrites existing values.
func (j *Journey) Edit(ctx context.Context, field resume.Field, value string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	rec := j.record.Clone()
	if err := rec.Set(field, value); err != nil {
		return err
	}
	j.record = rec
	j.updateMatchLocked(ctx)
	return nil
}

// Record returns a copy of the canonical record.
func (j *Journey) Record() resume.Record {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.record.Clone()
}

// Uploaded reports whether src's most recent upload was accepted.
func (j *Journey) Uploaded(src Source) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.uploaded[src]
}

// Match returns the match orchestrator's status.
func (j *Journey) Match() match.Status {
	return j.orch.Status()
}

// WaitMatch blocks until no match call is in flight.
func (j *Journey) WaitMatch(ctx context.Context) error {
	return j.orch.Wait(ctx)
}

// Document generates a document from the record and, when the match is
// current, the latest match result.
func (j *Journey) Document(ctx context.Context) ([]byte, error) {
	rec := j.Record()
	if rec.IsEmpty() {
		return nil, ErrNothingToGenerate
	}
	var result *match.Result
	if st := j.orch.Status(); st.State == match.Matched {
		result = st.Result
	}
	doc, err := j.generator.Generate(ctx, rec, result)
	if err != nil {
		return nil, fmt.Errorf("generate document: %w", err)
	}
	return doc, nil
}

func (j *Journey) setUploaded(src Source, v bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.uploaded[src] = v
}

// updateMatchLocked hands the current snapshot to the orchestrator. Callers
// hold j.mu so snapshots reach the orchestrator in the order they were
// made; Update never blocks.
func (j *Journey) updateMatchLocked(ctx context.Context) {
	j.orch.Update(ctx, match.Inputs{JobDescription: j.jd, Record: j.record.Clone()})
}
