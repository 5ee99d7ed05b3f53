// Package codechef fetches CodeChef rating statistics.
package codechef

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/RohitMukkala/coding-journey/pkg/httpcache"
	"github.com/RohitMukkala/coding-journey/pkg/profile"
	"github.com/RohitMukkala/coding-journey/pkg/stats"
)

// DefaultAPIBase is the public CodeChef profile API.
const DefaultAPIBase = "https://codechef-api.vercel.app"

func init() {
	profile.Register(profile.KindCodeChef, func(ctx context.Context, cfg *profile.FetcherConfig) (profile.Fetcher, error) {
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
	usernamePattern = regexp.MustCompile(`(?i)codechef\.com/users/([a-zA-Z0-9_]+)`)
	handlePattern   = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

// HandleFromURL returns the handle named by a profile URL, or "" when
// urlStr is not a profile URL.
func HandleFromURL(urlStr string) string {
	if !Match(urlStr) {
		return ""
	}
	return extractUsername(urlStr)
}

// Match returns true if the URL is a CodeChef profile URL.
func Match(urlStr string) bool {
	lower := strings.ToLower(urlStr)
	if !strings.Contains(lower, "codechef.com") {
		return false
	}
	return usernamePattern.MatchString(urlStr)
}

// Client handles CodeChef requests.
type Client struct {
	httpClient *http.Client
	cache      httpcache.Cacher
	logger     *slog.Logger
	apiBase    string
}

// Option configures a Client.
type Option func(*config)

type config struct {
	cache   httpcache.Cacher
	logger  *slog.Logger
	apiBase string
}

// WithHTTPCache sets the HTTP cache.
func WithHTTPCache(httpCache httpcache.Cacher) Option {
	return func(c *config) { c.cache = httpCache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithAPIBase points the client at a self-hosted copy of the profile API.
func WithAPIBase(base string) Option {
	return func(c *config) { c.apiBase = strings.TrimSuffix(base, "/") }
}

// New creates a CodeChef client.
func New(_ context.Context, opts ...Option) (*Client, error) {
	cfg := &config{logger: slog.Default(), apiBase: DefaultAPIBase}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if _, err := url.Parse(cfg.apiBase); err != nil {
		return nil, fmt.Errorf("invalid codechef api base: %w", err)
	}

	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      cfg.cache,
		logger:     cfg.logger,
		apiBase:    cfg.apiBase,
	}, nil
}

//nolint:govet // fieldalignment: struct ordering for JSON readability
type apiProfile struct {
	Success       bool   `json:"success"`
	Status        int    `json:"status"`
	Name          string `json:"name"`
	CurrentRating int    `json:"currentRating"`
	HighestRating int    `json:"highestRating"`
	CountryName   string `json:"countryName"`
	GlobalRank    int    `json:"globalRank"`
	CountryRank   int    `json:"countryRank"`
	Stars         string `json:"stars"`
}

// Fetch retrieves CodeChef statistics for a handle or profile URL.
func (c *Client) Fetch(ctx context.Context, username string) (*profile.PlatformProfile, error) {
	if strings.TrimSpace(username) == "" {
		return nil, profile.ErrNotConnected
	}
	handle := extractUsername(username)
	if handle == "" {
		return nil, fmt.Errorf("could not extract username from: %s", username)
	}

	c.logger.InfoContext(ctx, "fetching codechef stats", "username", handle)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/handle/"+url.PathEscape(handle), http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", httpcache.UserAgent)

	body, err := httpcache.FetchURL(ctx, c.cache, c.httpClient, req, c.logger)
	if err != nil {
		var httpErr *httpcache.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return nil, profile.ErrProfileNotFound
		}
		return nil, err
	}

	st, err := parseStats(body)
	if err != nil {
		return nil, err
	}

	return &profile.PlatformProfile{
		Kind:      profile.KindCodeChef,
		Username:  handle,
		FetchedAt: time.Now(),
		Stats:     st,
	}, nil
}

func parseStats(body []byte) (*profile.CodeChefStats, error) {
	var data apiProfile
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to parse codechef response: %w", err)
	}
	if !data.Success {
		return nil, profile.ErrProfileNotFound
	}

	return &profile.CodeChefStats{
		Name:    data.Name,
		Country: data.CountryName,
		Stars:   data.Stars,
		JudgeStats: stats.Judge(stats.JudgeCounts{
			CurrentRating: data.CurrentRating,
			PeakRating:    data.HighestRating,
			GlobalRank:    data.GlobalRank,
			CountryRank:   data.CountryRank,
		}),
	}, nil
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
