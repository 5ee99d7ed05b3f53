// Package codeforces fetches Codeforces rating and solve statistics.
package codeforces

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/RohitMukkala/coding-journey/pkg/httpcache"
	"github.com/RohitMukkala/coding-journey/pkg/profile"
	"github.com/RohitMukkala/coding-journey/pkg/stats"
)

const apiBase = "https://codeforces.com/api"

// Problem rating thresholds for the difficulty buckets.
const (
	mediumFrom = 1200
	hardFrom   = 1900
)

// recentLimit caps how many solved problems are kept as examples.
const recentLimit = 5

func init() {
	profile.Register(profile.KindCodeforces, func(ctx context.Context, cfg *profile.FetcherConfig) (profile.Fetcher, error) {
		var opts []Option
		if cfg.Logger != nil {
			opts = append(opts, WithLogger(cfg.Logger))
		}
		if c, ok := cfg.Cache.(httpcache.Cacher); ok {
			opts = append(opts, WithHTTPCache(c))
		}
		return New(ctx, opts...)
	})
}

var (
	usernamePattern = regexp.MustCompile(`(?i)codeforces\.com/profile/([a-zA-Z0-9_.-]+)`)
	handlePattern   = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,24}$`)
)

// HandleFromURL returns the handle named by a profile URL, or "" when
// urlStr is not a profile URL.
func HandleFromURL(urlStr string) string {
	if !Match(urlStr) {
		return ""
	}
	return extractUsername(urlStr)
}

// Match returns true if the URL is a Codeforces profile URL.
func Match(urlStr string) bool {
	lower := strings.ToLower(urlStr)
	if !strings.Contains(lower, "codeforces.com") {
		return false
	}
	return usernamePattern.MatchString(urlStr)
}

// Client handles Codeforces requests.
type Client struct {
	httpClient *http.Client
	cache      httpcache.Cacher
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*config)

type config struct {
	cache  httpcache.Cacher
	logger *slog.Logger
}

// WithHTTPCache sets the HTTP cache.
func WithHTTPCache(httpCache httpcache.Cacher) Option {
	return func(c *config) { c.cache = httpCache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// New creates a Codeforces client.
func New(_ context.Context, opts ...Option) (*Client, error) {
	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      cfg.cache,
		logger:     cfg.logger,
	}, nil
}

type apiResponse[T any] struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
	Result  []T    `json:"result"`
}

type apiUser struct {
	Handle    string `json:"handle"`
	Rank      string `json:"rank"`
	MaxRank   string `json:"maxRank"`
	Rating    int    `json:"rating"`
	MaxRating int    `json:"maxRating"`
}

type apiSubmission struct {
	Verdict string `json:"verdict"`
	Problem struct {
		ProblemsetName string `json:"problemsetName"`
		Index          string `json:"index"`
		Name           string `json:"name"`
		ContestID      int    `json:"contestId"`
		Rating         int    `json:"rating"`
	} `json:"problem"`
}

// Fetch retrieves Codeforces statistics for a handle or profile URL.
// Both the user.info and user.status calls must succeed.
func (c *Client) Fetch(ctx context.Context, username string) (*profile.PlatformProfile, error) {
	if strings.TrimSpace(username) == "" {
		return nil, profile.ErrNotConnected
	}
	handle := extractUsername(username)
	if handle == "" {
		return nil, fmt.Errorf("could not extract username from: %s", username)
	}

	c.logger.InfoContext(ctx, "fetching codeforces stats", "username", handle)

	infoBody, err := c.call(ctx, "user.info", url.Values{"handles": {handle}})
	if err != nil {
		return nil, err
	}
	user, err := parseUser(infoBody)
	if err != nil {
		return nil, err
	}

	statusBody, err := c.call(ctx, "user.status", url.Values{"handle": {handle}})
	if err != nil {
		return nil, err
	}
	st, err := parseSubmissions(statusBody)
	if err != nil {
		return nil, err
	}

	st.Rank = user.Rank
	st.MaxRank = user.MaxRank
	st.CurrentRating = user.Rating
	st.PeakRating = max(user.MaxRating, user.Rating)

	return &profile.PlatformProfile{
		Kind:      profile.KindCodeforces,
		Username:  user.Handle,
		FetchedAt: time.Now(),
		Stats:     st,
	}, nil
}

func (c *Client) call(ctx context.Context, method string, params url.Values) ([]byte, error) {
	apiURL := apiBase + "/" + method + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", httpcache.UserAgent)

	body, err := httpcache.FetchURL(ctx, c.cache, c.httpClient, req, c.logger)
	if err != nil {
		// Unknown handles are answered with 400 and a FAILED status.
		var httpErr *httpcache.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusBadRequest {
			return nil, fmt.Errorf("codeforces %s: %w", method, profile.ErrProfileNotFound)
		}
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("codeforces %s: %w", method, profile.ErrRateLimited)
		}
		return nil, fmt.Errorf("codeforces %s: %w", method, err)
	}
	return body, nil
}

func parseUser(body []byte) (*apiUser, error) {
	var resp apiResponse[apiUser]
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse codeforces user.info: %w", err)
	}
	if resp.Status != "OK" || len(resp.Result) == 0 {
		return nil, profile.ErrProfileNotFound
	}
	return &resp.Result[0], nil
}

// parseSubmissions counts distinct accepted problems.
// Rated problems are bucketed by rating; unrated ones count toward the total only.
func parseSubmissions(body []byte) (*profile.CodeforcesStats, error) {
	var resp apiResponse[apiSubmission]
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse codeforces user.status: %w", err)
	}
	if resp.Status != "OK" {
		return nil, fmt.Errorf("codeforces user.status: %s", resp.Comment)
	}

	seen := make(map[string]bool)
	var counts stats.JudgeCounts
	var recent []profile.SolvedProblem
	for _, s := range resp.Result {
		if s.Verdict != "OK" {
			continue
		}
		p := s.Problem
		key := problemKey(p.ContestID, p.ProblemsetName, p.Index, p.Name)
		if seen[key] {
			continue
		}
		seen[key] = true

		counts.Total++
		switch {
		case p.Rating <= 0:
		case p.Rating < mediumFrom:
			counts.Easy++
		case p.Rating < hardFrom:
			counts.Medium++
		default:
			counts.Hard++
		}

		if len(recent) < recentLimit {
			name := p.Name
			if p.Index != "" {
				name = p.Index + ". " + p.Name
			}
			recent = append(recent, profile.SolvedProblem{Name: name, Rating: p.Rating})
		}
	}

	return &profile.CodeforcesStats{
		RecentProblems: recent,
		JudgeStats:     stats.Judge(counts),
	}, nil
}

func problemKey(contestID int, problemset, index, name string) string {
	if contestID > 0 {
		return strconv.Itoa(contestID) + index
	}
	return problemset + "/" + index + "/" + name
}

func extractUsername(input string) string {
	input = strings.TrimSpace(input)
	if matches := usernamePattern.FindStringSubmatch(input); len(matches) > 1 {
		return matches[1]
	}
	if handlePattern.MatchString(input) {
		return input
	}
	return ""
}
