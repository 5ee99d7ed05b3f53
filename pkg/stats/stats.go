// Package stats turns raw platform payloads into normalized profile statistics.
package stats

import (
	"cmp"
	"slices"
	"strings"

	"github.com/RohitMukkala/coding-journey/pkg/profile"
)

// Repo is one entry of the REST repository listing.
type Repo struct {
	Language string
	Stars    int
	Forks    int
	Fork     bool
}

// Day is one contribution calendar cell. Date is formatted YYYY-MM-DD.
type Day struct {
	Date  string
	Count int
}

// ContributionTotals are the counters reported by the structured query.
type ContributionTotals struct {
	Commits       int
	PullRequests  int
	Issues        int
	Restricted    int
	CalendarTotal int
}

// HostingPayload is everything the GitHub adapter collected for one user.
//
//nolint:govet // fieldalignment: intentional layout for readability
type HostingPayload struct {
	Account       profile.Account
	Repos         []Repo
	LanguageBytes []profile.LanguageSize
	Totals        ContributionTotals
	Calendar      []Day
}

// Hosting aggregates a hosting payload.
// Stars and forks are summed over Repos, each repo with a primary language adds
// one to that language, and repos without one are left out of the denominator.
// Contribution totals are copied as reported.
func Hosting(p HostingPayload) *profile.HostingStats {
	hs := &profile.HostingStats{
		Account:       p.Account,
		Repositories:  len(p.Repos),
		LanguageBytes: slices.Clone(p.LanguageBytes),
		Languages:     Languages(p.Repos),
	}
	for _, r := range p.Repos {
		hs.TotalStars += r.Stars
		hs.TotalForks += r.Forks
	}

	current, longest := Streaks(p.Calendar)
	hs.Contributions = profile.Contributions{
		Commits:       p.Totals.Commits,
		PullRequests:  p.Totals.PullRequests,
		Issues:        p.Totals.Issues,
		Restricted:    p.Totals.Restricted,
		CalendarTotal: p.Totals.CalendarTotal,
		CurrentStreak: current,
		LongestStreak: longest,
	}
	return hs
}

// Languages returns the primary-language distribution of repos, most used first.
// Ties are broken by name so the order is stable.
func Languages(repos []Repo) []profile.Language {
	counts := make(map[string]int)
	withLanguage := 0
	for _, r := range repos {
		lang := strings.TrimSpace(r.Language)
		if lang == "" {
			continue
		}
		counts[lang]++
		withLanguage++
	}
	if withLanguage == 0 {
		return nil
	}

	langs := make([]profile.Language, 0, len(counts))
	for name, n := range counts {
		langs = append(langs, profile.Language{
			Name:       name,
			Count:      n,
			Percentage: profile.Percent(n, withLanguage),
		})
	}
	slices.SortFunc(langs, func(a, b profile.Language) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return langs
}

// Streaks returns the current and longest runs of consecutive days with at
// least one contribution. The current streak is the run ending on the most
// recent day that has a contribution.
func Streaks(days []Day) (current, longest int) {
	sorted := slices.Clone(days)
	slices.SortFunc(sorted, func(a, b Day) int { return cmp.Compare(a.Date, b.Date) })

	run := 0
	for _, d := range sorted {
		if d.Count > 0 {
			run++
			longest = max(longest, run)
			current = run
		} else {
			run = 0
		}
	}
	return current, longest
}

// JudgeCounts are the raw numbers a judge adapter extracted.
type JudgeCounts struct {
	Easy          int
	Medium        int
	Hard          int
	Total         int
	CurrentRating int
	PeakRating    int
	GlobalRank    int
	CountryRank   int
}

// Judge normalizes judge counts. TotalSolved is never below the bucket sum and
// PeakRating is never below CurrentRating.
func Judge(c JudgeCounts) profile.JudgeStats {
	total := max(c.Total, c.Easy+c.Medium+c.Hard)
	return profile.JudgeStats{
		Solved:        profile.Solved{Easy: c.Easy, Medium: c.Medium, Hard: c.Hard},
		TotalSolved:   total,
		CurrentRating: c.CurrentRating,
		PeakRating:    max(c.PeakRating, c.CurrentRating),
		GlobalRank:    c.GlobalRank,
		CountryRank:   c.CountryRank,
	}
}
