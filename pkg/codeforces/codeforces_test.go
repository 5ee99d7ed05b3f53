package codeforces

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/RohitMukkala/coding-journey/pkg/profile"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://codeforces.com/profile/tourist", true},
		{"codeforces.com/profile/Petr", true},
		{"https://codeforces.com/contest/1000", false},
		{"https://codechef.com/users/tourist", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := Match(tt.url); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestExtractUsername(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://codeforces.com/profile/tourist", "tourist"},
		{"beast264", "beast264"},
		{"a.b_c-d", "a.b_c-d"},
		{"x", ""},
		{"with space", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := extractUsername(tt.input); got != tt.want {
				t.Errorf("extractUsername(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

const (
	infoJSON = `{"status": "OK", "result": [{
		"handle": "beast264", "rank": "specialist", "maxRank": "expert",
		"rating": 1480, "maxRating": 1620
	}]}`

	statusJSON = `{"status": "OK", "result": [
		{"verdict": "OK", "problem": {"contestId": 1900, "index": "C", "name": "Hard One", "rating": 2100}},
		{"verdict": "WRONG_ANSWER", "problem": {"contestId": 1900, "index": "D", "name": "Failed", "rating": 2400}},
		{"verdict": "OK", "problem": {"contestId": 1800, "index": "B", "name": "Middle", "rating": 1500}},
		{"verdict": "OK", "problem": {"contestId": 1800, "index": "B", "name": "Middle", "rating": 1500}},
		{"verdict": "OK", "problem": {"contestId": 1700, "index": "A", "name": "Warmup", "rating": 800}},
		{"verdict": "OK", "problem": {"contestId": 1999, "index": "A", "name": "Fresh"}},
		{"verdict": "OK", "problem": {"contestId": 1600, "index": "A", "name": "Edge Medium", "rating": 1200}},
		{"verdict": "OK", "problem": {"contestId": 1500, "index": "E", "name": "Edge Hard", "rating": 1900}}
	]}`
)

func TestParseSubmissions(t *testing.T) {
	got, err := parseSubmissions([]byte(statusJSON))
	if err != nil {
		t.Fatalf("parseSubmissions() error = %v", err)
	}

	wantSolved := profile.Solved{Easy: 1, Medium: 2, Hard: 2}
	if diff := cmp.Diff(wantSolved, got.Solved); diff != "" {
		t.Errorf("Solved mismatch (-want +got):\n%s", diff)
	}
	if got.TotalSolved != 6 {
		t.Errorf("TotalSolved = %d, want 6 (unrated counts toward the total)", got.TotalSolved)
	}

	wantRecent := []profile.SolvedProblem{
		{Name: "C. Hard One", Rating: 2100},
		{Name: "B. Middle", Rating: 1500},
		{Name: "A. Warmup", Rating: 800},
		{Name: "A. Fresh"},
		{Name: "A. Edge Medium", Rating: 1200},
	}
	if diff := cmp.Diff(wantRecent, got.RecentProblems); diff != "" {
		t.Errorf("RecentProblems mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSubmissionsFailed(t *testing.T) {
	_, err := parseSubmissions([]byte(`{"status": "FAILED", "comment": "handle: not found"}`))
	if err == nil {
		t.Error("expected error for FAILED status")
	}
}

type mockTransport struct {
	mockURL string
}

func (mt *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = mt.mockURL[7:] // Strip "http://"
	return http.DefaultTransport.RoundTrip(req)
}

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/user.info":
			if r.URL.Query().Get("handles") != "beast264" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(infoJSON)) //nolint:errcheck // test helper
		case "/api/user.status":
			_, _ = w.Write([]byte(statusJSON)) //nolint:errcheck // test helper
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	ctx := context.Background()
	client, err := New(ctx)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	client.httpClient = &http.Client{Transport: &mockTransport{mockURL: server.URL}}

	got, err := client.Fetch(ctx, "https://codeforces.com/profile/beast264")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	cf, ok := got.Stats.(*profile.CodeforcesStats)
	if !ok {
		t.Fatalf("Stats = %T, want *profile.CodeforcesStats", got.Stats)
	}
	if cf.CurrentRating != 1480 || cf.PeakRating != 1620 {
		t.Errorf("ratings = %d/%d, want 1480/1620", cf.CurrentRating, cf.PeakRating)
	}
	if cf.Rank != "specialist" || cf.MaxRank != "expert" {
		t.Errorf("ranks = %q/%q", cf.Rank, cf.MaxRank)
	}
	if cf.TotalSolved != 6 {
		t.Errorf("TotalSolved = %d, want 6", cf.TotalSolved)
	}
}

func TestFetchUnknownHandle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":"FAILED","comment":"handles: User with handle nobody not found"}`)) //nolint:errcheck // test helper
	}))
	defer server.Close()

	ctx := context.Background()
	client, err := New(ctx)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	client.httpClient = &http.Client{Transport: &mockTransport{mockURL: server.URL}}

	if _, err := client.Fetch(ctx, "nobody"); !errors.Is(err, profile.ErrProfileNotFound) {
		t.Errorf("Fetch() error = %v, want ErrProfileNotFound", err)
	}
}

func TestFetchEmptyUsername(t *testing.T) {
	client, err := New(context.Background())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := client.Fetch(context.Background(), ""); !errors.Is(err, profile.ErrNotConnected) {
		t.Errorf("Fetch(\"\") error = %v, want ErrNotConnected", err)
	}
}

func TestHandleFromURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://codeforces.com/profile/tourist", "tourist"},
		{"https://codeforces.com/contest/1", ""},
		{"tourist", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := HandleFromURL(tt.input); got != tt.want {
				t.Errorf("HandleFromURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
