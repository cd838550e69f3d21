// Package selectitem implements the item selector: given a topic, a target
// θ, and the learner's recently-seen items, it picks the single
// best-scoring candidate item under the 3PL Fisher information objective,
// relaxing its filter cascade when the strict constraints starve the
// candidate pool. Structurally this follows a score-candidates-then-pick-max
// pattern, with item Fisher information standing in for a fitness score.
package selectitem

import (
	"sort"

	"github.com/tutu-network/jeevibe-iidp/internal/domain"
	"github.com/tutu-network/jeevibe-iidp/internal/engine/irt"
)

// ThetaProximity bounds how far an item's difficulty may sit from the
// target θ under the strict filter.
const ThetaProximity = 0.5

// Params bundles one selection request's inputs.
type Params struct {
	TopicID    string
	TargetTheta float64
	RecentSet   map[string]bool // item ids answered within the recency window
	AMin        float64
}

// NeverUntestedTheta is the neutral low-medium target θ used for exploration
// picks against a topic the learner has never attempted.
const NeverUntestedTheta = 0.9

// Select runs the filter cascade against candidates (all assumed to already
// belong to params.TopicID — callers typically source these via a
// repository query scoped to the topic) and returns the item with maximum
// Fisher information at params.TargetTheta, ties broken by item id, along
// with the relaxation level (0-2) that produced it. Returns false if no
// candidate survives even the fully relaxed cascade.
func Select(candidates []domain.Item, params Params) (domain.Item, int, bool) {
	for _, relaxation := range []int{0, 1, 2} {
		survivors := filter(candidates, params, relaxation)
		if len(survivors) == 0 {
			continue
		}
		return pickBest(survivors, params.TargetTheta), relaxation, true
	}
	return domain.Item{}, 0, false
}

// filter applies the strict cascade at relaxation level 0, dropping
// constraint (3) a_min at level 1, and additionally constraint (4) θ
// proximity at level 2.
func filter(candidates []domain.Item, params Params, relaxation int) []domain.Item {
	var out []domain.Item
	for _, item := range candidates {
		if item.TopicID != params.TopicID {
			continue
		}
		if params.RecentSet[item.ID] {
			continue
		}
		if relaxation < 1 && item.A < params.AMin {
			continue
		}
		if relaxation < 2 {
			diff := item.B - params.TargetTheta
			if diff < 0 {
				diff = -diff
			}
			if diff > ThetaProximity {
				continue
			}
		}
		out = append(out, item)
	}
	return out
}

func pickBest(survivors []domain.Item, targetTheta float64) domain.Item {
	sort.Slice(survivors, func(i, j int) bool {
		fi := irt.FisherInfo(targetTheta, survivors[i].B, survivors[i].A, survivors[i].C)
		fj := irt.FisherInfo(targetTheta, survivors[j].B, survivors[j].A, survivors[j].C)
		if fi != fj {
			return fi > fj
		}
		return survivors[i].ID < survivors[j].ID
	})
	return survivors[0]
}
