// Package profile defines the common types for coding-platform activity.
package profile

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Common errors returned by platform packages.
var (
	ErrNotConnected    = errors.New("platform not connected")
	ErrProfileNotFound = errors.New("profile not found")
	ErrRateLimited     = errors.New("rate limited")
)

// Kind identifies the platform a profile was fetched from.
type Kind string

// Platform kinds. GitHub is the hosting platform; the others are judges.
const (
	KindGitHub     Kind = "github"
	KindLeetCode   Kind = "leetcode"
	KindCodeforces Kind = "codeforces"
	KindCodeChef   Kind = "codechef"
)

// Kinds lists every supported platform in display order.
var Kinds = []Kind{KindGitHub, KindLeetCode, KindCodeforces, KindCodeChef}

// FetchError reports a failed fetch for one platform.
// It never aborts an aggregation cycle; the slot is left without stats.
type FetchError struct {
	Err      error
	Kind     Kind
	Username string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s profile %q: %v", e.Kind, e.Username, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PlatformProfile is one platform's normalized activity at a point in time.
// A value is never mutated after construction; the next fetch replaces it.
type PlatformProfile struct {
	FetchedAt time.Time `json:"fetched_at"`
	Stats     Stats     `json:"stats"`
	Kind      Kind      `json:"kind"`
	Username  string    `json:"username"`
}

// Stats is the platform-specific payload of a PlatformProfile.
// Exactly one of *HostingStats, *LeetCodeStats, *CodeforcesStats and
// *CodeChefStats implements it.
type Stats interface {
	Kind() Kind
	sealed()
}

// Language is one primary language's share of a user's repositories.
type Language struct {
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// LanguageSize is the total byte size for a language across repositories.
type LanguageSize struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
	Bytes int64  `json:"bytes"`
}

// Contributions holds the hosting platform's contribution counters.
type Contributions struct {
	Commits       int `json:"commits"`
	PullRequests  int `json:"pull_requests"`
	Issues        int `json:"issues"`
	Restricted    int `json:"restricted"`
	CalendarTotal int `json:"calendar_total"`
	CurrentStreak int `json:"current_streak"`
	LongestStreak int `json:"longest_streak"`
}

// Account is the public account summary of a hosting user.
type Account struct {
	Name        string `json:"name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Bio         string `json:"bio,omitempty"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
	PublicRepos int    `json:"public_repos"`
}

// HostingStats is the GitHub variant.
//
//nolint:govet // fieldalignment: intentional layout for readability
type HostingStats struct {
	Account       Account        `json:"account"`
	TotalStars    int            `json:"total_stars"`
	TotalForks    int            `json:"total_forks"`
	Repositories  int            `json:"repositories"`
	Languages     []Language     `json:"languages,omitempty"`
	LanguageBytes []LanguageSize `json:"language_bytes,omitempty"`
	Contributions Contributions  `json:"contributions"`
}

// Solved counts accepted problems by difficulty.
type Solved struct {
	Easy   int `json:"easy"`
	Medium int `json:"medium"`
	Hard   int `json:"hard"`
}

// JudgeStats is the normalized shape shared by every judge platform.
type JudgeStats struct {
	Solved        Solved `json:"solved"`
	CurrentRating int    `json:"current_rating"`
	PeakRating    int    `json:"peak_rating"`
	GlobalRank    int    `json:"global_rank"`
	CountryRank   int    `json:"country_rank"`
	TotalSolved   int    `json:"total_solved"`
}

// Percentages returns the easy/medium/hard share of TotalSolved, rounded to
// one decimal. A zero total yields zeros.
func (j JudgeStats) Percentages() (easy, medium, hard float64) {
	return Percent(j.Solved.Easy, j.TotalSolved),
		Percent(j.Solved.Medium, j.TotalSolved),
		Percent(j.Solved.Hard, j.TotalSolved)
}

// TagCount is the number of problems solved for one topic tag.
type TagCount struct {
	Tag    string `json:"tag"`
	Solved int    `json:"solved"`
}

// LeetCodeStats is the judge-A variant.
type LeetCodeStats struct {
	Tags []TagCount `json:"tags,omitempty"`
	JudgeStats
}

// SolvedProblem is a problem accepted on Codeforces.
type SolvedProblem struct {
	Name   string `json:"name"`
	Rating int    `json:"rating,omitempty"`
}

// CodeforcesStats is the judge-B variant.
type CodeforcesStats struct {
	Rank           string          `json:"rank,omitempty"`
	MaxRank        string          `json:"max_rank,omitempty"`
	RecentProblems []SolvedProblem `json:"recent_problems,omitempty"`
	JudgeStats
}

// CodeChefStats is the judge-C variant.
type CodeChefStats struct {
	Name    string `json:"name,omitempty"`
	Country string `json:"country,omitempty"`
	Stars   string `json:"stars,omitempty"`
	JudgeStats
}

// Kind implements Stats.
func (*HostingStats) Kind() Kind { return KindGitHub }

// Kind implements Stats.
func (*LeetCodeStats) Kind() Kind { return KindLeetCode }

// Kind implements Stats.
func (*CodeforcesStats) Kind() Kind { return KindCodeforces }

// Kind implements Stats.
func (*CodeChefStats) Kind() Kind { return KindCodeChef }

func (*HostingStats) sealed()    {}
func (*LeetCodeStats) sealed()   {}
func (*CodeforcesStats) sealed() {}
func (*CodeChefStats) sealed()   {}

// Judge returns the shared judge stats for a judge variant.
func Judge(s Stats) (JudgeStats, bool) {
	switch v := s.(type) {
	case *LeetCodeStats:
		return v.JudgeStats, true
	case *CodeforcesStats:
		return v.JudgeStats, true
	case *CodeChefStats:
		return v.JudgeStats, true
	default:
		return JudgeStats{}, false
	}
}

// Percent returns part/total*100 rounded to one decimal, or 0 when total is 0.
func Percent(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return round1(float64(part) / float64(total) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
