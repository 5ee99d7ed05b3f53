// Package achievement derives milestone badges from platform statistics.
package achievement

import (
	"fmt"

	"github.com/RohitMukkala/coding-journey/pkg/profile"
)

// Badge is a milestone earned on one platform.
type Badge struct {
	ID          string       `json:"id"`
	Platform    profile.Kind `json:"platform"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Earned      bool         `json:"earned"`
}

type rule struct {
	id        string
	title     string
	describe  func(v int) string
	value     func(profile.Stats) (int, bool)
	kind      profile.Kind
	threshold int
}

var rules = []rule{
	{
		id: "consistent-contributor", kind: profile.KindGitHub, title: "Consistent Contributor", threshold: 7,
		value: func(s profile.Stats) (int, bool) {
			hs, ok := s.(*profile.HostingStats)
			if !ok {
				return 0, false
			}
			return hs.Contributions.CurrentStreak, true
		},
		describe: func(v int) string { return fmt.Sprintf("%d day streak!", v) },
	},
	{
		id: "star-collector", kind: profile.KindGitHub, title: "Star Collector", threshold: 10,
		value: func(s profile.Stats) (int, bool) {
			hs, ok := s.(*profile.HostingStats)
			if !ok {
				return 0, false
			}
			return hs.TotalStars, true
		},
		describe: func(v int) string { return fmt.Sprintf("%d repository stars earned", v) },
	},
	{
		id: "century-club", kind: profile.KindLeetCode, title: "Century Club", threshold: 100,
		value:    judgeValue(func(j profile.JudgeStats) int { return j.TotalSolved }),
		describe: func(int) string { return "100+ problems solved" },
	},
	{
		id: "hard-worker", kind: profile.KindLeetCode, title: "Hard Worker", threshold: 10,
		value:    judgeValue(func(j profile.JudgeStats) int { return j.Solved.Hard }),
		describe: func(int) string { return "10+ hard problems solved" },
	},
	{
		id: "codechef-expert", kind: profile.KindCodeChef, title: "CodeChef Expert", threshold: 1800,
		value:    judgeValue(func(j profile.JudgeStats) int { return j.CurrentRating }),
		describe: func(int) string { return "Rating 1800+" },
	},
	{
		id: "codeforces-specialist", kind: profile.KindCodeforces, title: "Codeforces Specialist", threshold: 1400,
		value:    judgeValue(func(j profile.JudgeStats) int { return j.CurrentRating }),
		describe: func(int) string { return "Rating 1400+" },
	},
	{
		id: "problem-solver", kind: profile.KindCodeforces, title: "Problem Solver", threshold: 50,
		value:    judgeValue(func(j profile.JudgeStats) int { return j.TotalSolved }),
		describe: func(int) string { return "50+ problems solved" },
	},
}

func judgeValue(f func(profile.JudgeStats) int) func(profile.Stats) (int, bool) {
	return func(s profile.Stats) (int, bool) {
		j, ok := profile.Judge(s)
		if !ok {
			return 0, false
		}
		return f(j), true
	}
}

// Derive evaluates every badge against the loaded platform profiles.
// Platforms missing from loaded produce no badges at all; for the others
// every badge is returned with Earned set accordingly.
func Derive(loaded map[profile.Kind]*profile.PlatformProfile) []Badge {
	var badges []Badge
	for _, r := range rules {
		p := loaded[r.kind]
		if p == nil || p.Stats == nil || p.Stats.Kind() != r.kind {
			continue
		}
		v, ok := r.value(p.Stats)
		if !ok {
			continue
		}
		badges = append(badges, Badge{
			ID:          r.id,
			Platform:    r.kind,
			Title:       r.title,
			Description: r.describe(v),
			Earned:      v >= r.threshold,
		})
	}
	return badges
}

// Earned filters badges down to the ones that were earned.
func Earned(badges []Badge) []Badge {
	var out []Badge
	for _, b := range badges {
		if b.Earned {
			out = append(out, b)
		}
	}
	return out
}
