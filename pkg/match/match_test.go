package match

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RohitMukkala/coding-journey/pkg/httpcache"
	"github.com/RohitMukkala/coding-journey/pkg/resume"
)

func waitSettled(t *testing.T, o *Orchestrator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, o.Wait(ctx))
}

func TestStates(t *testing.T) {
	calls := atomic.Int32{}
	o := New(ScorerFunc(func(_ context.Context, r resume.Record, jd string) (Result, error) {
		calls.Add(1)
		return Result{Score: 72, MissingKeywords: []string{"kubernetes"}}, nil
	}))
	ctx := context.Background()

	require.Equal(t, Idle, o.Status().State)

	// Job description without skills stays idle.
	o.Update(ctx, Inputs{JobDescription: "Go developer", Record: resume.Record{Name: "Ada"}})
	waitSettled(t, o)
	require.Equal(t, Idle, o.Status().State)
	require.Zero(t, calls.Load())

	rec := resume.Record{Name: "Ada", Skills: []string{"Go"}}
	o.Update(ctx, Inputs{JobDescription: "Go developer", Record: rec})
	waitSettled(t, o)

	st := o.Status()
	require.Equal(t, Matched, st.State)
	require.NotNil(t, st.Result)
	assert.Equal(t, 72, st.Result.Score)
	assert.Equal(t, []string{"kubernetes"}, st.Result.MissingKeywords)
	assert.Equal(t, st.Fingerprint, st.Result.Fingerprint)
	assert.EqualValues(t, 1, calls.Load())

	// An unwatched field does not invalidate the result.
	rec.Email = "ada@example.com"
	o.Update(ctx, Inputs{JobDescription: "Go developer", Record: rec})
	waitSettled(t, o)
	assert.Equal(t, Matched, o.Status().State)
	assert.EqualValues(t, 1, calls.Load())

	// Clearing the job description invalidates and goes idle.
	o.Update(ctx, Inputs{Record: rec})
	waitSettled(t, o)
	st = o.Status()
	assert.Equal(t, Idle, st.State)
	assert.Nil(t, st.Result)
}

func TestStaleResponseDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan string, 4)
	o := New(ScorerFunc(func(_ context.Context, _ resume.Record, jd string) (Result, error) {
		started <- jd
		if jd == "first" {
			<-release
			return Result{Score: 10}, nil
		}
		return Result{Score: 90}, nil
	}))
	ctx := context.Background()
	rec := resume.Record{Skills: []string{"Go"}}

	o.Update(ctx, Inputs{JobDescription: "first", Record: rec})
	require.Equal(t, "first", <-started)

	o.Update(ctx, Inputs{JobDescription: "second", Record: rec})
	st := o.Status()
	require.Equal(t, Ready, st.State)
	require.True(t, st.InFlight)
	require.Nil(t, st.Result)

	close(release)
	waitSettled(t, o)

	require.Equal(t, "second", <-started)
	st = o.Status()
	require.Equal(t, Matched, st.State)
	require.NotNil(t, st.Result)
	assert.Equal(t, 90, st.Result.Score)
	assert.Equal(t, Inputs{JobDescription: "second", Record: rec}.Fingerprint(), st.Result.Fingerprint)
}

func TestAtMostOneInFlight(t *testing.T) {
	var (
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	release := make(chan struct{})
	o := New(ScorerFunc(func(context.Context, resume.Record, string) (Result, error) {
		mu.Lock()
		active++
		maxSeen = max(maxSeen, active)
		mu.Unlock()
		<-release
		mu.Lock()
		active--
		mu.Unlock()
		return Result{Score: 50}, nil
	}))
	ctx := context.Background()

	for _, jd := range []string{"a", "b", "c", "d"} {
		o.Update(ctx, Inputs{JobDescription: jd, Record: resume.Record{Skills: []string{"Go"}}})
	}
	close(release)
	waitSettled(t, o)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, Matched, o.Status().State)
}

func TestFailureStaysReady(t *testing.T) {
	errBoom := errors.New("boom")
	fail := atomic.Bool{}
	fail.Store(true)
	calls := atomic.Int32{}
	o := New(ScorerFunc(func(context.Context, resume.Record, string) (Result, error) {
		calls.Add(1)
		if fail.Load() {
			return Result{}, errBoom
		}
		return Result{Score: 64}, nil
	}))
	ctx := context.Background()
	in := Inputs{JobDescription: "Go developer", Record: resume.Record{Skills: []string{"Go"}}}

	o.Update(ctx, in)
	waitSettled(t, o)

	st := o.Status()
	require.Equal(t, Ready, st.State)
	var svcErr *ServiceError
	require.ErrorAs(t, st.Err, &svcErr)
	require.ErrorIs(t, st.Err, errBoom)
	assert.Equal(t, st.Fingerprint, svcErr.Fingerprint)

	// Same snapshot: no retry.
	fail.Store(false)
	o.Update(ctx, in)
	waitSettled(t, o)
	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, Ready, o.Status().State)

	// Qualifying change: retried.
	in.Record.Projects = []string{"coding-journey"}
	o.Update(ctx, in)
	waitSettled(t, o)
	st = o.Status()
	assert.EqualValues(t, 2, calls.Load())
	assert.Equal(t, Matched, st.State)
	assert.NoError(t, st.Err)
}

func TestCachedScores(t *testing.T) {
	calls := atomic.Int32{}
	scorer := ScorerFunc(func(context.Context, resume.Record, string) (Result, error) {
		calls.Add(1)
		return Result{Score: 81, Recommendations: []string{"Add metrics"}}, nil
	})
	cache, err := httpcache.NewWithPath(time.Hour, t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	in := Inputs{JobDescription: "Go developer", Record: resume.Record{Skills: []string{"Go"}}}

	for range 2 {
		o := New(scorer, WithCache(cache))
		o.Update(ctx, in)
		waitSettled(t, o)
		st := o.Status()
		require.Equal(t, Matched, st.State)
		assert.Equal(t, 81, st.Result.Score)
		assert.Equal(t, []string{"Add metrics"}, st.Result.Recommendations)
	}
	assert.EqualValues(t, 1, calls.Load())
}

func TestFingerprint(t *testing.T) {
	base := Inputs{JobDescription: "jd", Record: resume.Record{Skills: []string{"Go"}}}
	same := base
	same.Record.Name = "Ada"
	assert.Equal(t, base.Fingerprint(), same.Fingerprint())

	for name, in := range map[string]Inputs{
		"jd":         {JobDescription: "other", Record: base.Record},
		"skills":     {JobDescription: "jd", Record: resume.Record{Skills: []string{"Go", "SQL"}}},
		"experience": {JobDescription: "jd", Record: resume.Record{Skills: []string{"Go"}, Experience: []string{"x"}}},
		"projects":   {JobDescription: "jd", Record: resume.Record{Skills: []string{"Go"}, Projects: []string{"x"}}},
	} {
		assert.NotEqual(t, base.Fingerprint(), in.Fingerprint(), name)
	}

	// Entry boundaries matter.
	a := Inputs{Record: resume.Record{Skills: []string{"ab", "c"}}}
	b := Inputs{Record: resume.Record{Skills: []string{"a", "bc"}}}
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}
