// Package github fetches GitHub activity statistics.
package github

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/RohitMukkala/coding-journey/pkg/httpcache"
	"github.com/RohitMukkala/coding-journey/pkg/profile"
	"github.com/RohitMukkala/coding-journey/pkg/stats"
)

const (
	apiBase    = "https://api.github.com"
	graphQLURL = apiBase + "/graphql"
)

func init() {
	profile.Register(profile.KindGitHub, newFetcher)
}

func newFetcher(ctx context.Context, cfg *profile.FetcherConfig) (profile.Fetcher, error) {
	var opts []Option
	if cfg.Logger != nil {
		opts = append(opts, WithLogger(cfg.Logger))
	}
	if cfg.GitHubToken != "" {
		opts = append(opts, WithToken(cfg.GitHubToken))
	}
	if c, ok := cfg.Cache.(httpcache.Cacher); ok {
		opts = append(opts, WithHTTPCache(c))
	}
	return New(ctx, opts...)
}

var (
	profileURLPattern = regexp.MustCompile(`(?i)github\.com/([^/?#]+)`)
	handlePattern     = regexp.MustCompile(`^[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,38})$`)
)

// nonProfiles are top-level github.com paths that are not users.
var nonProfiles = map[string]bool{
	"features": true, "security": true, "enterprise": true, "team": true,
	"marketplace": true, "sponsors": true, "topics": true, "trending": true,
	"collections": true, "orgs": true, "login": true, "join": true,
	"pricing": true, "about": true, "explore": true, "new": true,
	"settings": true, "notifications": true, "issues": true, "pulls": true,
	"search": true, "apps": true,
}

// HandleFromURL returns the handle named by a profile URL, or "" when
// urlStr is not a profile URL.
func HandleFromURL(urlStr string) string {
	if !Match(urlStr) {
		return ""
	}
	return extractUsername(urlStr)
}

// Match returns true if the URL is a GitHub profile URL.
func Match(urlStr string) bool {
	lower := strings.ToLower(urlStr)
	idx := strings.Index(lower, "github.com/")
	if idx < 0 {
		return false
	}
	path := strings.TrimSuffix(lower[idx+len("github.com/"):], "/")
	if qIdx := strings.IndexAny(path, "?#"); qIdx >= 0 {
		path = path[:qIdx]
	}
	if strings.Contains(path, "/") {
		return false
	}
	return path != "" && !nonProfiles[path]
}

// Client handles GitHub requests.
type Client struct {
	httpClient *http.Client
	cache      httpcache.Cacher
	logger     *slog.Logger
	token      string
}

// Option configures a Client.
type Option func(*config)

type config struct {
	cache  httpcache.Cacher
	logger *slog.Logger
	token  string
}

// WithHTTPCache sets the HTTP cache.
func WithHTTPCache(httpCache httpcache.Cacher) Option {
	return func(c *config) { c.cache = httpCache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithToken sets the GitHub API token.
func WithToken(token string) Option {
	return func(c *config) { c.token = token }
}

// New creates a GitHub client.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	token := cfg.token
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	if token == "" {
		logger.WarnContext(ctx, "GITHUB_TOKEN not set - the GraphQL API rejects anonymous requests")
	}

	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cache:      cfg.cache,
		logger:     logger,
		token:      token,
	}, nil
}

// Fetch retrieves GitHub statistics for a username or profile URL.
// The account, the repository listing and the contribution query are fetched
// concurrently; if any of them fails no statistics are returned.
func (c *Client) Fetch(ctx context.Context, username string) (*profile.PlatformProfile, error) {
	if strings.TrimSpace(username) == "" {
		return nil, profile.ErrNotConnected
	}
	handle := extractUsername(username)
	if handle == "" {
		return nil, fmt.Errorf("could not extract username from: %s", username)
	}

	c.logger.InfoContext(ctx, "fetching github stats", "username", handle)

	var (
		account profile.Account
		repos   []stats.Repo
		gql     *graphQLUser
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		account, err = c.fetchAccount(gctx, handle)
		return err
	})
	g.Go(func() error {
		var err error
		repos, err = c.fetchRepos(gctx, handle)
		return err
	})
	g.Go(func() error {
		var err error
		gql, err = c.fetchContributions(gctx, handle)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	hs := stats.Hosting(stats.HostingPayload{
		Account:       account,
		Repos:         repos,
		LanguageBytes: gql.languageBytes(),
		Totals:        gql.totals(),
		Calendar:      gql.calendar(),
	})

	return &profile.PlatformProfile{
		Kind:      profile.KindGitHub,
		Username:  handle,
		FetchedAt: time.Now(),
		Stats:     hs,
	}, nil
}

// APIError contains details about a GitHub API error.
//
//nolint:govet // fieldalignment: intentional layout for readability
type APIError struct {
	StatusCode      int
	RateLimitRemain int
	RateLimitReset  time.Time
	Message         string
	IsRateLimit     bool
}

func (e *APIError) Error() string {
	if e.IsRateLimit {
		return fmt.Sprintf("GitHub API rate limited (resets at %s): %s", e.RateLimitReset.Format(time.RFC3339), e.Message)
	}
	return fmt.Sprintf("GitHub API error %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps rate limiting and missing users onto the shared profile errors.
func (e *APIError) Unwrap() error {
	switch {
	case e.IsRateLimit || e.StatusCode == http.StatusTooManyRequests:
		return profile.ErrRateLimited
	case e.StatusCode == http.StatusNotFound:
		return profile.ErrProfileNotFound
	default:
		return nil
	}
}

type apiUser struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	AvatarURL   string `json:"avatar_url"`
	Bio         string `json:"bio"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
	PublicRepos int    `json:"public_repos"`
}

type apiRepo struct {
	Language        string `json:"language"`
	StargazersCount int    `json:"stargazers_count"`
	ForksCount      int    `json:"forks_count"`
	Fork            bool   `json:"fork"`
}

func (c *Client) fetchAccount(ctx context.Context, username string) (profile.Account, error) {
	body, err := c.get(ctx, apiBase+"/users/"+username)
	if err != nil {
		return profile.Account{}, fmt.Errorf("github user: %w", err)
	}
	return parseAccount(body)
}

func parseAccount(body []byte) (profile.Account, error) {
	var u apiUser
	if err := json.Unmarshal(body, &u); err != nil {
		return profile.Account{}, fmt.Errorf("failed to parse github user: %w", err)
	}
	if u.Login == "" {
		return profile.Account{}, profile.ErrProfileNotFound
	}
	return profile.Account{
		Name:        u.Name,
		AvatarURL:   u.AvatarURL,
		Bio:         u.Bio,
		Followers:   u.Followers,
		Following:   u.Following,
		PublicRepos: u.PublicRepos,
	}, nil
}

func (c *Client) fetchRepos(ctx context.Context, username string) ([]stats.Repo, error) {
	body, err := c.get(ctx, apiBase+"/users/"+username+"/repos?per_page=100&type=owner")
	if err != nil {
		return nil, fmt.Errorf("github repos: %w", err)
	}
	return parseRepos(body)
}

func parseRepos(body []byte) ([]stats.Repo, error) {
	var raw []apiRepo
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse github repos: %w", err)
	}
	repos := make([]stats.Repo, 0, len(raw))
	for _, r := range raw {
		repos = append(repos, stats.Repo{
			Language: r.Language,
			Stars:    r.StargazersCount,
			Forks:    r.ForksCount,
			Fork:     r.Fork,
		})
	}
	return repos, nil
}

const contributionsQuery = `query($login: String!) {
  user(login: $login) {
    contributionsCollection {
      totalCommitContributions
      restrictedContributionsCount
      totalPullRequestContributions
      totalIssueContributions
      contributionCalendar {
        totalContributions
        weeks { contributionDays { date contributionCount } }
      }
    }
    repositories(first: 100, ownerAffiliations: OWNER, orderBy: {field: STARGAZERS, direction: DESC}) {
      totalCount
      nodes {
        stargazerCount
        languages(first: 10, orderBy: {field: SIZE, direction: DESC}) {
          edges { size node { name color } }
        }
      }
    }
  }
}`

//nolint:govet // fieldalignment: struct ordering for JSON readability
type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLResponse struct {
	Data struct {
		User *graphQLUser `json:"user"`
	} `json:"data"`
	Errors []struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"errors"`
}

type graphQLUser struct {
	ContributionsCollection struct {
		TotalCommitContributions      int `json:"totalCommitContributions"`
		RestrictedContributionsCount  int `json:"restrictedContributionsCount"`
		TotalPullRequestContributions int `json:"totalPullRequestContributions"`
		TotalIssueContributions       int `json:"totalIssueContributions"`
		ContributionCalendar          struct {
			TotalContributions int `json:"totalContributions"`
			Weeks              []struct {
				ContributionDays []struct {
					Date              string `json:"date"`
					ContributionCount int    `json:"contributionCount"`
				} `json:"contributionDays"`
			} `json:"weeks"`
		} `json:"contributionCalendar"`
	} `json:"contributionsCollection"`
	Repositories struct {
		Nodes []struct {
			Languages struct {
				Edges []struct {
					Node struct {
						Name  string `json:"name"`
						Color string `json:"color"`
					} `json:"node"`
					Size int64 `json:"size"`
				} `json:"edges"`
			} `json:"languages"`
			StargazerCount int `json:"stargazerCount"`
		} `json:"nodes"`
		TotalCount int `json:"totalCount"`
	} `json:"repositories"`
}

func (u *graphQLUser) totals() stats.ContributionTotals {
	cc := u.ContributionsCollection
	return stats.ContributionTotals{
		Commits:       cc.TotalCommitContributions,
		PullRequests:  cc.TotalPullRequestContributions,
		Issues:        cc.TotalIssueContributions,
		Restricted:    cc.RestrictedContributionsCount,
		CalendarTotal: cc.ContributionCalendar.TotalContributions,
	}
}

func (u *graphQLUser) calendar() []stats.Day {
	var days []stats.Day
	for _, w := range u.ContributionsCollection.ContributionCalendar.Weeks {
		for _, d := range w.ContributionDays {
			days = append(days, stats.Day{Date: d.Date, Count: d.ContributionCount})
		}
	}
	return days
}

// languageBytes sums language sizes across repositories, largest first.
func (u *graphQLUser) languageBytes() []profile.LanguageSize {
	index := make(map[string]int)
	var sizes []profile.LanguageSize
	for _, n := range u.Repositories.Nodes {
		for _, e := range n.Languages.Edges {
			if e.Node.Name == "" {
				continue
			}
			i, ok := index[e.Node.Name]
			if !ok {
				i = len(sizes)
				index[e.Node.Name] = i
				sizes = append(sizes, profile.LanguageSize{Name: e.Node.Name, Color: e.Node.Color})
			}
			sizes[i].Bytes += e.Size
		}
	}
	slices.SortStableFunc(sizes, func(a, b profile.LanguageSize) int { return cmp.Compare(b.Bytes, a.Bytes) })
	return sizes
}

func (c *Client) fetchContributions(ctx context.Context, username string) (*graphQLUser, error) {
	jsonBody, err := json.Marshal(graphQLRequest{
		Query:     contributionsQuery,
		Variables: map[string]any{"login": username},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, graphQLURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)

	body, err := c.doAPIRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("github graphql: %w", err)
	}
	return parseGraphQL(body)
}

func parseGraphQL(body []byte) (*graphQLUser, error) {
	var resp graphQLResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse github graphql response: %w", err)
	}
	if len(resp.Errors) > 0 {
		if resp.Errors[0].Type == "NOT_FOUND" {
			return nil, profile.ErrProfileNotFound
		}
		return nil, fmt.Errorf("github graphql error: %s", resp.Errors[0].Message)
	}
	if resp.Data.User == nil {
		return nil, profile.ErrProfileNotFound
	}
	return resp.Data.User, nil
}

func (c *Client) get(ctx context.Context, apiURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	return c.doAPIRequest(ctx, req)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", httpcache.UserAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) doAPIRequest(ctx context.Context, req *http.Request) ([]byte, error) {
	if c.cache == nil {
		c.logger.DebugContext(ctx, "cache disabled", "url", req.URL.String())
		return c.executeAPIRequest(ctx, req)
	}

	// POST bodies are part of the key so distinct GraphQL queries don't collide.
	cacheKey, err := httpcache.RequestKey(req)
	if err != nil {
		return nil, err
	}

	data, err := c.cache.GetSet(ctx, cacheKey, func(ctx context.Context) ([]byte, error) {
		body, fetchErr := c.executeAPIRequest(ctx, req)
		if fetchErr != nil {
			// Cache API errors to avoid hammering servers.
			var apiErr *APIError
			if errors.As(fetchErr, &apiErr) && !apiErr.IsRateLimit {
				return fmt.Appendf(nil, "ERROR:%d", apiErr.StatusCode), nil
			}
			return nil, fetchErr
		}
		return body, nil
	}, c.cache.TTL())
	if err != nil {
		return nil, err
	}

	if code, found := strings.CutPrefix(string(data), "ERROR:"); found {
		status, _ := strconv.Atoi(code) //nolint:errcheck // 0 is acceptable default
		return nil, &APIError{StatusCode: status, Message: "cached error"}
	}

	return data, nil
}

func (c *Client) executeAPIRequest(ctx context.Context, req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // best effort close

	// Parse rate limit headers (parse errors default to 0).
	rateLimitRemain, _ := strconv.Atoi(resp.Header.Get("X-Ratelimit-Remaining"))        //nolint:errcheck // 0 is acceptable default
	rateLimitReset, _ := strconv.ParseInt(resp.Header.Get("X-Ratelimit-Reset"), 10, 64) //nolint:errcheck // 0 is acceptable default
	resetTime := time.Unix(rateLimitReset, 0)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body) //nolint:errcheck // best effort read of error body
		isRateLimit := resp.StatusCode == http.StatusTooManyRequests ||
			(resp.StatusCode == http.StatusForbidden && rateLimitRemain == 0 && resp.Header.Get("X-Ratelimit-Remaining") != "")

		apiErr := &APIError{
			StatusCode:      resp.StatusCode,
			RateLimitRemain: rateLimitRemain,
			RateLimitReset:  resetTime,
			Message:         string(body),
			IsRateLimit:     isRateLimit,
		}

		c.logger.WarnContext(ctx, "GitHub API request failed",
			"url", req.URL.String(),
			"status", resp.StatusCode,
			"rate_limit_remaining", rateLimitRemain,
			"rate_limit_reset", resetTime.Format(time.RFC3339),
			"is_rate_limit", isRateLimit,
		)

		return nil, apiErr
	}

	return io.ReadAll(resp.Body)
}

// extractUsername accepts either a bare handle or a profile URL.
func extractUsername(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "@")
	if matches := profileURLPattern.FindStringSubmatch(input); len(matches) > 1 {
		if nonProfiles[strings.ToLower(matches[1])] {
			return ""
		}
		return matches[1]
	}
	if handlePattern.MatchString(input) {
		return input
	}
	return ""
}
