// Package match finds the catalog title closest to a free-text query.
//
// Similarity is the difflib sequence ratio (2*M/T over matching blocks) on
// runes, the same measure the bot has always used, not an edit distance.
//
// Matching is a linear scan: each call costs roughly
// O(len(candidates) * len(query) * len(title)). That is fine for a catalog of
// a few thousand posts; a larger catalog needs an indexed approximate-match
// structure in front of this package.
package match

import (
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"moviehub/internal/metrics"
)

// DefaultCutoff is the minimum ratio for a candidate to count as a match.
const DefaultCutoff = 0.6

// Matcher is pure: it reads the candidate slice and nothing else.
type Matcher struct {
	Cutoff float64
}

func New(cutoff float64) Matcher {
	if cutoff <= 0 || cutoff > 1 {
		cutoff = DefaultCutoff
	}
	return Matcher{Cutoff: cutoff}
}

// Match returns the best candidate scoring at least the cutoff. When several
// candidates share the best score, the earliest one in candidates wins.
func (m Matcher) Match(query string, candidates []string) (string, bool) {
	if query == "" || len(candidates) == 0 {
		return "", false
	}
	start := time.Now()
	defer func() {
		metrics.MatchDuration.Observe(time.Since(start).Seconds())
		metrics.CatalogSize.Set(float64(len(candidates)))
	}()

	cutoff := m.cutoff()
	sm := difflib.NewMatcher(nil, runes(query))

	best, bestScore, found := "", 0.0, false
	for _, cand := range candidates {
		sm.SetSeq1(runes(cand))
		// cheap upper bounds first, as get_close_matches does
		if sm.RealQuickRatio() < cutoff || sm.QuickRatio() < cutoff {
			continue
		}
		score := sm.Ratio()
		if score < cutoff {
			continue
		}
		if !found || score > bestScore {
			best, bestScore, found = cand, score, true
		}
	}
	return best, found
}

// Score is the similarity ratio of a and b in [0, 1].
func Score(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	return difflib.NewMatcher(runes(a), runes(b)).Ratio()
}

func (m Matcher) cutoff() float64 {
	if m.Cutoff <= 0 || m.Cutoff > 1 {
		return DefaultCutoff
	}
	return m.Cutoff
}

// runes splits s into one element per code point, so titles in non-Latin
// scripts compare character by character instead of byte by byte.
func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
