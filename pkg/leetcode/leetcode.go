// Package leetcode fetches LeetCode solve statistics.
package leetcode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/RohitMukkala/coding-journey/pkg/httpcache"
	"github.com/RohitMukkala/coding-journey/pkg/profile"
	"github.com/RohitMukkala/coding-journey/pkg/stats"
)

const graphQLURL = "https://leetcode.com/graphql"

func init() {
	profile.Register(profile.KindLeetCode, func(ctx context.Context, cfg *profile.FetcherConfig) (profile.Fetcher, error) {
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
	usernamePattern = regexp.MustCompile(`(?i)leetcode\.com/(?:u/)?([a-zA-Z0-9_-]+)`)
	handlePattern   = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// HandleFromURL returns the handle named by a profile URL, or "" when
// urlStr is not a profile URL.
func HandleFromURL(urlStr string) string {
	if !Match(urlStr) {
		return ""
	}
	return extractUsername(urlStr)
}

// Match returns true if the URL is a LeetCode profile URL.
func Match(urlStr string) bool {
	lower := strings.ToLower(urlStr)
	if !strings.Contains(lower, "leetcode.com/") {
		return false
	}
	// Exclude non-profile paths
	excluded := []string{"/problems/", "/contest/", "/discuss/", "/playground/", "/explore/", "/study-plan/"}
	for _, ex := range excluded {
		if strings.Contains(lower, ex) {
			return false
		}
	}
	return usernamePattern.MatchString(urlStr)
}

// Client handles LeetCode requests.
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

// New creates a LeetCode client.
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

const graphQLQuery = `query userStats($username: String!) {
  matchedUser(username: $username) {
    username
    profile { realName ranking }
    submitStatsGlobal { acSubmissionNum { difficulty count } }
    tagProblemCounts { advanced { tagName problemsSolved } }
  }
  userContestRanking(username: $username) {
    rating
    globalRanking
  }
}`

// graphQLRequest represents the GraphQL query structure.
//
//nolint:govet // fieldalignment: struct ordering for JSON readability
type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// graphQLResponse represents the GraphQL response structure.
type graphQLResponse struct {
	Data struct {
		MatchedUser        *apiUser        `json:"matchedUser"`
		UserContestRanking *contestRanking `json:"userContestRanking"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type apiUser struct {
	Profile *struct {
		RealName string `json:"realName"`
		Ranking  int    `json:"ranking"`
	} `json:"profile"`
	SubmitStatsGlobal struct {
		AcSubmissionNum []struct {
			Difficulty string `json:"difficulty"`
			Count      int    `json:"count"`
		} `json:"acSubmissionNum"`
	} `json:"submitStatsGlobal"`
	TagProblemCounts struct {
		Advanced []struct {
			TagName        string `json:"tagName"`
			ProblemsSolved int    `json:"problemsSolved"`
		} `json:"advanced"`
	} `json:"tagProblemCounts"`
	Username string `json:"username"`
}

type contestRanking struct {
	Rating        float64 `json:"rating"`
	GlobalRanking int     `json:"globalRanking"`
}

// Fetch retrieves LeetCode statistics for a username or profile URL.
func (c *Client) Fetch(ctx context.Context, username string) (*profile.PlatformProfile, error) {
	if strings.TrimSpace(username) == "" {
		return nil, profile.ErrNotConnected
	}
	handle := extractUsername(username)
	if handle == "" {
		return nil, fmt.Errorf("could not extract username from: %s", username)
	}

	c.logger.InfoContext(ctx, "fetching leetcode stats", "username", handle)

	jsonBody, err := json.Marshal(graphQLRequest{
		Query:     graphQLQuery,
		Variables: map[string]any{"username": handle},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, graphQLURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Referer", "https://leetcode.com/")
	req.Header.Set("User-Agent", httpcache.UserAgent)

	body, err := httpcache.FetchURL(ctx, c.cache, c.httpClient, req, c.logger)
	if err != nil {
		return nil, err
	}

	st, err := parseStats(body)
	if err != nil {
		return nil, err
	}

	return &profile.PlatformProfile{
		Kind:      profile.KindLeetCode,
		Username:  handle,
		FetchedAt: time.Now(),
		Stats:     st,
	}, nil
}

func parseStats(body []byte) (*profile.LeetCodeStats, error) {
	var resp graphQLResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse leetcode response: %w", err)
	}

	// Users who never entered a contest come back with an error next to
	// valid data; only a missing matchedUser is fatal.
	user := resp.Data.MatchedUser
	if user == nil || user.Username == "" {
		return nil, profile.ErrProfileNotFound
	}

	var counts stats.JudgeCounts
	for _, s := range user.SubmitStatsGlobal.AcSubmissionNum {
		switch s.Difficulty {
		case "All":
			counts.Total = s.Count
		case "Easy":
			counts.Easy = s.Count
		case "Medium":
			counts.Medium = s.Count
		case "Hard":
			counts.Hard = s.Count
		default:
		}
	}
	if user.Profile != nil {
		counts.GlobalRank = user.Profile.Ranking
	}
	if cr := resp.Data.UserContestRanking; cr != nil {
		counts.CurrentRating = int(math.Round(cr.Rating))
	}

	st := &profile.LeetCodeStats{JudgeStats: stats.Judge(counts)}
	for _, tag := range user.TagProblemCounts.Advanced {
		if tag.TagName == "" {
			continue
		}
		st.Tags = append(st.Tags, profile.TagCount{Tag: tag.TagName, Solved: tag.ProblemsSolved})
	}
	return st, nil
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
