package github

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/RohitMukkala/coding-journey/pkg/profile"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://github.com/torvalds", true},
		{"https://github.com/octocat", true},
		{"github.com/username", true},
		{"https://github.com/user123/", true},
		{"https://github.com/features", false},
		{"https://github.com/marketplace", false},
		{"https://github.com/torvalds/linux", false}, // repo, not profile
		{"https://leetcode.com/u/johndoe", false},
		{"https://example.com", false},
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
		{"https://github.com/torvalds", "torvalds"},
		{"github.com/user-name", "user-name"},
		{"https://github.com/user?tab=repositories", "user"},
		{"https://www.github.com/someone", "someone"},
		{"octocat", "octocat"},
		{"@octocat", "octocat"},
		{"  octocat  ", "octocat"},
		{"https://github.com/features", ""},
		{"not a handle", ""},
		{"-leadinghyphen", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := extractUsername(tt.input); got != tt.want {
				t.Errorf("extractUsername(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	client, err := New(ctx, WithToken("t0ken"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if client.token != "t0ken" {
		t.Errorf("token = %q, want %q", client.token, "t0ken")
	}
}

func TestNewTokenFromEnv(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "from-env")
	client, err := New(context.Background())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if client.token != "from-env" {
		t.Errorf("token = %q, want %q", client.token, "from-env")
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

const (
	userJSON = `{
		"login": "testuser",
		"name": "Test User",
		"bio": "Test bio",
		"avatar_url": "https://avatars.githubusercontent.com/u/12345",
		"public_repos": 3,
		"followers": 100,
		"following": 50
	}`

	reposJSON = `[
		{"name": "a", "language": "Go", "stargazers_count": 7, "forks_count": 1, "fork": false},
		{"name": "b", "language": "Go", "stargazers_count": 3, "forks_count": 0, "fork": false},
		{"name": "c", "language": null, "stargazers_count": 2, "forks_count": 4, "fork": true}
	]`

	graphQLJSON = `{"data": {"user": {
		"contributionsCollection": {
			"totalCommitContributions": 321,
			"restrictedContributionsCount": 12,
			"totalPullRequestContributions": 17,
			"totalIssueContributions": 5,
			"contributionCalendar": {
				"totalContributions": 355,
				"weeks": [
					{"contributionDays": [
						{"date": "2024-03-01", "contributionCount": 1},
						{"date": "2024-03-02", "contributionCount": 0},
						{"date": "2024-03-03", "contributionCount": 3}
					]},
					{"contributionDays": [
						{"date": "2024-03-04", "contributionCount": 2},
						{"date": "2024-03-05", "contributionCount": 1}
					]}
				]
			}
		},
		"repositories": {
			"totalCount": 2,
			"nodes": [
				{"stargazerCount": 7, "languages": {"edges": [
					{"size": 1000, "node": {"name": "Go", "color": "#00ADD8"}},
					{"size": 200, "node": {"name": "Shell", "color": "#89e051"}}
				]}},
				{"stargazerCount": 3, "languages": {"edges": [
					{"size": 500, "node": {"name": "Go", "color": "#00ADD8"}}
				]}}
			]
		}
	}}}`
)

func newTestServer(t *testing.T, failPath string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path == failPath {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/users/testuser":
			_, _ = w.Write([]byte(userJSON)) //nolint:errcheck // test helper
		case "/users/testuser/repos":
			_, _ = w.Write([]byte(reposJSON)) //nolint:errcheck // test helper
		case "/graphql":
			if r.Method != http.MethodPost || r.Header.Get("Authorization") != "Bearer test-token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(graphQLJSON)) //nolint:errcheck // test helper
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	client, err := New(context.Background(), WithToken("test-token"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	client.httpClient = &http.Client{Transport: &mockTransport{mockURL: serverURL}}
	return client
}

func TestFetch(t *testing.T) {
	server, _ := newTestServer(t, "")
	client := newTestClient(t, server.URL)

	got, err := client.Fetch(context.Background(), "https://github.com/testuser")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if got.Kind != profile.KindGitHub {
		t.Errorf("Kind = %q, want %q", got.Kind, profile.KindGitHub)
	}
	if got.Username != "testuser" {
		t.Errorf("Username = %q, want %q", got.Username, "testuser")
	}
	if got.FetchedAt.IsZero() {
		t.Error("FetchedAt should be set")
	}

	hs, ok := got.Stats.(*profile.HostingStats)
	if !ok {
		t.Fatalf("Stats = %T, want *profile.HostingStats", got.Stats)
	}
	if hs.TotalStars != 12 {
		t.Errorf("TotalStars = %d, want 12", hs.TotalStars)
	}
	if hs.Account.Name != "Test User" || hs.Account.Followers != 100 {
		t.Errorf("Account = %+v", hs.Account)
	}

	wantLangs := []profile.Language{{Name: "Go", Count: 2, Percentage: 100.0}}
	if diff := cmp.Diff(wantLangs, hs.Languages); diff != "" {
		t.Errorf("Languages mismatch (-want +got):\n%s", diff)
	}

	wantBytes := []profile.LanguageSize{
		{Name: "Go", Color: "#00ADD8", Bytes: 1500},
		{Name: "Shell", Color: "#89e051", Bytes: 200},
	}
	if diff := cmp.Diff(wantBytes, hs.LanguageBytes); diff != "" {
		t.Errorf("LanguageBytes mismatch (-want +got):\n%s", diff)
	}

	wantContrib := profile.Contributions{
		Commits: 321, Restricted: 12, PullRequests: 17, Issues: 5, CalendarTotal: 355,
		CurrentStreak: 3, LongestStreak: 3,
	}
	if diff := cmp.Diff(wantContrib, hs.Contributions); diff != "" {
		t.Errorf("Contributions mismatch (-want +got):\n%s", diff)
	}
}

func TestFetch_PartialFailure(t *testing.T) {
	for _, path := range []string{"/users/testuser", "/users/testuser/repos", "/graphql"} {
		t.Run(path, func(t *testing.T) {
			server, _ := newTestServer(t, path)
			client := newTestClient(t, server.URL)

			got, err := client.Fetch(context.Background(), "testuser")
			if err == nil {
				t.Fatalf("Fetch() = %+v, want error when %s fails", got, path)
			}
			if got != nil {
				t.Errorf("Fetch() returned partial profile %+v", got)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusInternalServerError {
				t.Errorf("error = %v, want *APIError with status 500", err)
			}
		})
	}
}

func TestFetch_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Fetch(context.Background(), "nonexistent")
	if !errors.Is(err, profile.ErrProfileNotFound) {
		t.Errorf("Fetch() error = %v, want ErrProfileNotFound", err)
	}
}

func TestFetch_EmptyUsername(t *testing.T) {
	server, calls := newTestServer(t, "")
	client := newTestClient(t, server.URL)

	_, err := client.Fetch(context.Background(), "   ")
	if !errors.Is(err, profile.ErrNotConnected) {
		t.Errorf("Fetch() error = %v, want ErrNotConnected", err)
	}
	if calls.Load() != 0 {
		t.Errorf("server received %d requests, want 0", calls.Load())
	}
}

func TestParseGraphQL(t *testing.T) {
	t.Run("null_user", func(t *testing.T) {
		_, err := parseGraphQL([]byte(`{"data": {"user": null}}`))
		if !errors.Is(err, profile.ErrProfileNotFound) {
			t.Errorf("error = %v, want ErrProfileNotFound", err)
		}
	})

	t.Run("not_found_error", func(t *testing.T) {
		_, err := parseGraphQL([]byte(`{"data": {"user": null}, "errors": [{"type": "NOT_FOUND", "message": "Could not resolve"}]}`))
		if !errors.Is(err, profile.ErrProfileNotFound) {
			t.Errorf("error = %v, want ErrProfileNotFound", err)
		}
	})

	t.Run("other_error", func(t *testing.T) {
		_, err := parseGraphQL([]byte(`{"errors": [{"message": "Something went wrong"}]}`))
		if err == nil || !strings.Contains(err.Error(), "Something went wrong") {
			t.Errorf("error = %v, want graphql error message", err)
		}
	})

	t.Run("invalid_json", func(t *testing.T) {
		if _, err := parseGraphQL([]byte(`{`)); err == nil {
			t.Error("expected error for invalid JSON")
		}
	})
}

func TestParseRepos(t *testing.T) {
	repos, err := parseRepos([]byte(reposJSON))
	if err != nil {
		t.Fatalf("parseRepos() error = %v", err)
	}
	if len(repos) != 3 {
		t.Fatalf("len(repos) = %d, want 3", len(repos))
	}
	if repos[2].Language != "" || !repos[2].Fork || repos[2].Forks != 4 {
		t.Errorf("repos[2] = %+v", repos[2])
	}
}

func TestAPIError(t *testing.T) {
	t.Run("rate_limit_error", func(t *testing.T) {
		err := &APIError{
			StatusCode:  403,
			IsRateLimit: true,
			Message:     "rate limit exceeded",
		}
		if !strings.Contains(err.Error(), "rate limited") {
			t.Errorf("Error() = %q, want to contain 'rate limited'", err.Error())
		}
		if !errors.Is(err, profile.ErrRateLimited) {
			t.Error("rate limit error should match profile.ErrRateLimited")
		}
	})

	t.Run("other_error", func(t *testing.T) {
		err := &APIError{
			StatusCode: 401,
			Message:    "bad credentials",
		}
		if !strings.Contains(err.Error(), "401") {
			t.Errorf("Error() = %q, want to contain '401'", err.Error())
		}
		if errors.Is(err, profile.ErrRateLimited) || errors.Is(err, profile.ErrProfileNotFound) {
			t.Error("401 should not map onto a profile error")
		}
	})
}

func TestRegistered(t *testing.T) {
	f, err := profile.NewFetcher(context.Background(), profile.KindGitHub, &profile.FetcherConfig{GitHubToken: "x"})
	if err != nil {
		t.Fatalf("NewFetcher() error = %v", err)
	}
	if _, ok := f.(*Client); !ok {
		t.Errorf("NewFetcher() = %T, want *Client", f)
	}
}

func TestHandleFromURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://github.com/octocat", "octocat"},
		{"github.com/octocat/", "octocat"},
		{"https://github.com/settings", ""},
		{"https://github.com/octocat/hello-world", ""},
		{"octocat", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := HandleFromURL(tt.input); got != tt.want {
				t.Errorf("HandleFromURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
