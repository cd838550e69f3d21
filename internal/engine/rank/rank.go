// Package rank implements the topic ranker: the two priority formulas that
// decide which topic a quiz slot should draw from next, one for the
// exploration phase and one for exploitation. Like irt and phase,
// everything here is a pure function of its inputs.
package rank

import (
	"math"
	"sort"
	"time"

	"github.com/tutu-network/jeevibe-iidp/internal/domain"
	"github.com/tutu-network/jeevibe-iidp/internal/engine/topics"
)

// minExplorationWeightage excludes low-importance topics from exploration
// ranking: only topics with JEE weight >= 0.6 are eligible.
const minExplorationWeightage = 0.6

// maxUnexploredAttempts is the attempts threshold below which a topic still
// counts as "unexplored" for ranking purposes.
const maxUnexploredAttempts = 2

// scored pairs a topic id with its computed priority, kept only long enough
// to sort and then discard.
type scored struct {
	topicID  string
	priority float64
}

// sortDescending orders by priority descending, breaking ties
// lexicographically by topic id for determinism.
func sortDescending(items []scored) []string {
	sort.Slice(items, func(i, j int) bool {
		if items[i].priority != items[j].priority {
			return items[i].priority > items[j].priority
		}
		return items[i].topicID < items[j].topicID
	})
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = s.topicID
	}
	return out
}

// Exploration ranks candidate topics the learner has not yet mastered,
// restricted to those with attempts < 2 and JEE weight ≥ 0.6, highest
// priority first.
func Exploration(candidateTopics []string, profile *domain.LearnerProfile) []string {
	var items []scored
	for _, topicID := range candidateTopics {
		weightage := topics.Weightage(topicID)
		if weightage < minExplorationWeightage {
			continue
		}

		attempts := profile.TopicAttemptCounts[topicID]
		if attempts >= maxUnexploredAttempts {
			continue
		}

		prereqDepth := topics.PrereqDepth(topicID)
		subject := domain.SubjectFromTopicID(topicID)
		subjectShare := profile.SubjectBalance[subject]

		priority := 0.5*weightage +
			0.3*(1-float64(prereqDepth)/3) +
			0.2*(1-math.Abs(subjectShare-1.0/3.0))

		items = append(items, scored{topicID: topicID, priority: priority})
	}
	return sortDescending(items)
}

// maintenancePoolSize caps how many of the learner's strongest tested
// topics are eligible for a maintenance slot draw.
const maintenancePoolSize = 5

// MaintenanceCandidates picks up to count topics at random from the
// maintenancePoolSize tested topics with the highest θ, for exploitation
// maintenance slots that reinforce already-strong topics rather than
// drilling the weakest ones.
func MaintenanceCandidates(profile *domain.LearnerProfile, rng domain.RNG, count int) []string {
	var items []scored
	for topicID, ability := range profile.Topics {
		items = append(items, scored{topicID: topicID, priority: ability.Theta})
	}
	pool := sortDescending(items)
	if len(pool) > maintenancePoolSize {
		pool = pool[:maintenancePoolSize]
	}
	if count > len(pool) {
		count = len(pool)
	}

	remaining := append([]string(nil), pool...)
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		idx := rng.Intn(len(remaining))
		out = append(out, remaining[idx])
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
	return out
}

// Exploitation ranks all topics the learner has tested, weakest θ first,
// with recency and weight breaking near-ties.
func Exploitation(profile *domain.LearnerProfile, now time.Time) []string {
	var items []scored
	for topicID, ability := range profile.Topics {
		daysSince := 0.0
		if ability.LastUpdated != nil {
			daysSince = now.Sub(*ability.LastUpdated).Hours() / 24
		}
		recencyTerm := daysSince / 7
		if recencyTerm > 1 {
			recencyTerm = 1
		}
		weightage := topics.Weightage(topicID)

		priority := 0.6*(1-(ability.Theta+3)/6) +
			0.2*recencyTerm +
			0.2*weightage

		items = append(items, scored{topicID: topicID, priority: priority})
	}
	return sortDescending(items)
}
