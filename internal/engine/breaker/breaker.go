// Package breaker implements the circuit breaker: detecting a failure
// streak in a learner's recent responses and, when triggered, composing a
// recovery quiz biased toward easy items on the learner's weakest topics.
// The trigger check is a pure scan; recovery composition scores candidate
// items the same Fisher-information way as internal/engine/selectitem, just
// against an absolute difficulty band instead of proximity to a target θ.
package breaker

import (
	"sort"
	"time"

	"github.com/tutu-network/jeevibe-iidp/internal/domain"
	"github.com/tutu-network/jeevibe-iidp/internal/engine/irt"
)

// TriggerStreak is the number of consecutive incorrect responses (from the
// newest) that trips the breaker.
const TriggerStreak = 5

// TriggerWindow bounds how far back the trigger check looks.
const TriggerWindow = 10

// PrimaryBMin/PrimaryBMax bound the 7 easy recovery items; MaintenanceBMin/
// MaintenanceBMax bound the 2 medium ones.
const (
	PrimaryBMin      = 0.4
	PrimaryBMax      = 0.7
	MaintenanceBMin  = 0.8
	MaintenanceBMax  = 1.1
	RecoveryAMin     = 1.0
	ReviewMinDays    = 7
	ReviewMaxDays    = 14
)

// Triggered reports whether the breaker fires, given the learner's
// responses ordered newest-first. If fewer than TriggerStreak responses
// exist in total, it never triggers regardless of their outcomes.
func Triggered(responsesNewestFirst []domain.Response) bool {
	if len(responsesNewestFirst) < TriggerStreak {
		return false
	}

	window := responsesNewestFirst
	if len(window) > TriggerWindow {
		window = window[:TriggerWindow]
	}

	streak := 0
	for _, r := range window {
		if r.Correct {
			break
		}
		streak++
	}
	return streak >= TriggerStreak
}

// TopicSlot is how many items a recovery tier should draw from one topic.
type TopicSlot struct {
	TopicID string
	Count   int
}

// WeakestTopics returns up to n tested topic ids ordered by ascending θ
// (weakest first), ties broken lexicographically for determinism.
func WeakestTopics(profile *domain.LearnerProfile, n int) []string {
	type scored struct {
		topicID string
		theta   float64
	}
	items := make([]scored, 0, len(profile.Topics))
	for id, ta := range profile.Topics {
		items = append(items, scored{id, ta.Theta})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].theta != items[j].theta {
			return items[i].theta < items[j].theta
		}
		return items[i].topicID < items[j].topicID
	})
	if n > len(items) {
		n = len(items)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = items[i].topicID
	}
	return out
}

// PrimaryDistribution splits 7 easy-tier items across up to 4 weakest
// topics: 2 each for the first three, 1 for the fourth, adjusted so fewer
// topics still sum to 7 by piling the remainder onto the last (least weak)
// topic in the list.
func PrimaryDistribution(weakest []string) []TopicSlot {
	return distribute(weakest, 7, []int{2, 2, 2, 1})
}

// MaintenanceDistribution splits 2 medium-tier items across the 2 weakest
// topics, one each.
func MaintenanceDistribution(weakest []string) []TopicSlot {
	if len(weakest) > 2 {
		weakest = weakest[:2]
	}
	return distribute(weakest, 2, []int{1, 1})
}

// distribute assigns base counts to the first len(base) topics, then piles
// any shortfall (fewer topics than base slots, or a non-zero remainder)
// onto the last topic in the list so the total always reaches target.
func distribute(topicIDs []string, target int, base []int) []TopicSlot {
	if len(topicIDs) == 0 {
		return nil
	}
	n := len(topicIDs)
	if n > len(base) {
		n = len(base)
	}

	out := make([]TopicSlot, n)
	assigned := 0
	for i := 0; i < n; i++ {
		out[i] = TopicSlot{TopicID: topicIDs[i], Count: base[i]}
		assigned += base[i]
	}
	if remainder := target - assigned; remainder != 0 {
		out[n-1].Count += remainder
	}
	return out
}

// itemInBand filters candidates by topic, absolute difficulty band, a
// minimum discrimination, and recency exclusion — recency is never
// relaxed even under the fallback below.
func itemInBand(candidates []domain.Item, topicID string, bMin, bMax, aMin float64, recentSet map[string]bool, relaxed bool) []domain.Item {
	var out []domain.Item
	for _, item := range candidates {
		if item.TopicID != topicID {
			continue
		}
		if recentSet[item.ID] {
			continue
		}
		if !relaxed {
			if item.B < bMin || item.B > bMax {
				continue
			}
			if item.A < aMin {
				continue
			}
		}
		out = append(out, item)
	}
	return out
}

// PickForSlot chooses the single best item for one recovery slot: highest
// Fisher information at the band midpoint, falling back to a relaxed
// (band- and a_min-agnostic, but still recency-excluding) pool if the
// strict band starves the candidates.
func PickForSlot(candidates []domain.Item, topicID string, bMin, bMax, aMin float64, recentSet map[string]bool) (domain.Item, bool) {
	target := (bMin + bMax) / 2
	for _, relaxed := range []bool{false, true} {
		survivors := itemInBand(candidates, topicID, bMin, bMax, aMin, recentSet, relaxed)
		if len(survivors) == 0 {
			continue
		}
		sort.Slice(survivors, func(i, j int) bool {
			fi := irt.FisherInfo(target, survivors[i].B, survivors[i].A, survivors[i].C)
			fj := irt.FisherInfo(target, survivors[j].B, survivors[j].A, survivors[j].C)
			if fi != fj {
				return fi > fj
			}
			return survivors[i].ID < survivors[j].ID
		})
		return survivors[0], true
	}
	return domain.Item{}, false
}

// ReviewCandidate picks a review item from the weak topics the learner
// answered correctly 7-14 days ago, for the recovery quiz's review slot.
// Returns false if no response qualifies.
func ReviewCandidate(responses []domain.Response, weakTopics []string, now time.Time, recentSet map[string]bool) (domain.Response, bool) {
	weakSet := make(map[string]bool, len(weakTopics))
	for _, t := range weakTopics {
		weakSet[t] = true
	}

	var best domain.Response
	found := false
	for _, r := range responses {
		if !r.Correct || !weakSet[r.TopicID] || recentSet[r.ItemID] {
			continue
		}
		days := now.Sub(r.AnsweredAt).Hours() / 24
		if days < ReviewMinDays || days >= ReviewMaxDays {
			continue
		}
		if !found || r.AnsweredAt.Before(best.AnsweredAt) {
			best = r
			found = true
		}
	}
	return best, found
}
