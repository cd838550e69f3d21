// Package review implements the spaced-repetition review selector used to
// fill a quiz's single review slot in exploration and exploitation phases.
// The circuit breaker's own review slot uses a narrower 7-14-day window
// (internal/engine/breaker.ReviewCandidate); this package is the
// general-purpose tiered version.
package review

import (
	"time"

	"github.com/tutu-network/jeevibe-iidp/internal/domain"
)

// tierBoundary maps a minimum days-since value to its priority tier.
type tierBoundary struct {
	minDays float64
	tier    int
}

// tiers must be checked in this (descending minDays) order so the first
// match wins.
var tiers = []tierBoundary{
	{30, 5},
	{14, 4},
	{7, 3},
	{3, 2},
	{1, 1},
}

func tierFor(daysSince float64) (int, bool) {
	for _, tb := range tiers {
		if daysSince >= tb.minDays {
			return tb.tier, true
		}
	}
	return 0, false // < 1 day: excluded
}

// Select picks the best review candidate among responses the learner
// previously answered correctly and that are not in recentSet: the one
// with maximum (tier, days_since) lexicographically. Returns false if no
// response qualifies.
func Select(responses []domain.Response, recentSet map[string]bool, now time.Time) (domain.Response, bool) {
	var best domain.Response
	bestTier := -1
	bestDays := -1.0
	found := false

	for _, r := range responses {
		if !r.Correct || recentSet[r.ItemID] {
			continue
		}
		daysSince := now.Sub(r.AnsweredAt).Hours() / 24
		tier, ok := tierFor(daysSince)
		if !ok {
			continue
		}
		if tier > bestTier || (tier == bestTier && daysSince > bestDays) {
			best = r
			bestTier = tier
			bestDays = daysSince
			found = true
		}
	}
	return best, found
}
