// Package ability implements the per-topic latent-ability state machine:
// assessment-driven initialization and per-response Bayesian-flavored
// updates under the 3PL model. Every function here is pure over its
// arguments — the caller (internal/engine) owns loading and persisting
// LearnerProfile state through the repository port.
//
// Structurally this mirrors an EMA-based trust tracker: a keyed record
// updated by a fixed formula and clamped to a valid range, just with θ/SE
// in place of a reputation score and per-(learner,topic) state in place of
// per-node state.
package ability

import (
	"math"
	"time"

	"github.com/tutu-network/jeevibe-iidp/internal/domain"
	"github.com/tutu-network/jeevibe-iidp/internal/engine/topics"
)

// Tuning constants for the learning-rate decay and standard-error shrink.
const (
	BaseLearningRate = 0.3
	LearningDecay    = 0.02
	SEDecayFactor    = 0.95
)

// accuracyBand maps a closed-open accuracy range (and an n-dependent split
// at the 1.0 and 0.0 extremes) to an initial θ.
type accuracyBand struct {
	lo, hi float64 // [lo, hi); accuracy 1.0 is handled before the table
	theta  float64
}

var accuracyTable = []accuracyBand{
	{0.90, 1.0, 2.5},
	{0.75, 0.90, 1.5},
	{0.60, 0.75, 0.5},
	{0.40, 0.60, -0.5},
	{0.20, 0.40, -1.5},
}

// thetaForAccuracy resolves the accuracy→θ table, including the
// n-dependent special cases at accuracy 1.0 and 0.0.
func thetaForAccuracy(accuracy float64, n int) float64 {
	switch {
	case accuracy == 1.0:
		if n >= 5 {
			return 2.0
		}
		return 1.5
	case accuracy == 0.0:
		if n >= 5 {
			return -2.0
		}
		return -1.5
	}
	for _, band := range accuracyTable {
		if accuracy >= band.lo && accuracy < band.hi {
			return band.theta
		}
	}
	// (0.0, 0.20) band — falls through the table above since it has no
	// explicit entry (bounded by the accuracy==0.0 special case on one side).
	return -2.5
}

// initialSE computes the initial standard error from accuracy and attempt
// count: base = 1/√n, penalty = 1+|acc-0.5|, clamped to bounds.
func initialSE(accuracy float64, n int) float64 {
	base := 1 / math.Sqrt(float64(n))
	penalty := 1 + math.Abs(accuracy-0.5)
	return domain.ClampSE(base * penalty)
}

// topicAccumulator tracks correct/total counts for a single topic while
// folding over an assessment's responses.
type topicAccumulator struct {
	correct int
	total   int
}

// InitFromAssessment groups responses by topic, computes per-topic initial
// ability, and returns the resulting topic map plus the JEE-weighted
// overall θ (unmapped topics weight 0.5 by default).
func InitFromAssessment(responses []domain.Response, now time.Time) (map[string]domain.TopicAbility, float64) {
	acc := make(map[string]*topicAccumulator)
	order := make([]string, 0) // preserve first-seen order for determinism
	for _, r := range responses {
		a, ok := acc[r.TopicID]
		if !ok {
			a = &topicAccumulator{}
			acc[r.TopicID] = a
			order = append(order, r.TopicID)
		}
		a.total++
		if r.Correct {
			a.correct++
		}
	}

	result := make(map[string]domain.TopicAbility, len(order))
	var weightedSum, weightSum float64
	for _, topicID := range order {
		a := acc[topicID]
		n := a.total
		accuracy := float64(a.correct) / float64(n)
		theta := thetaForAccuracy(accuracy, n)
		se := initialSE(accuracy, n)

		ta := domain.NewTopicAbility(topicID, theta, se)
		ta.Attempts = n
		acVal := accuracy
		ta.Accuracy = &acVal
		ta.LastUpdated = &now
		result[topicID] = ta

		w := topics.Weightage(topicID)
		weightedSum += w * ta.Theta
		weightSum += w
	}

	overall := 0.0
	if weightSum > 0 {
		overall = weightedSum / weightSum
	}
	return result, domain.ClampTheta(overall)
}

// PriorForUntestedTopic computes the prior ability for a topic the learner
// has never attempted: the average θ across already-tested topics in the
// same subject, falling back to overallTheta, then to 0.
func PriorForUntestedTopic(topicID string, byTopic map[string]domain.TopicAbility, overallTheta float64) domain.TopicAbility {
	subject := domain.SubjectFromTopicID(topicID)

	var sum float64
	var count int
	for id, ta := range byTopic {
		if domain.SubjectFromTopicID(id) == subject {
			sum += ta.Theta
			count++
		}
	}

	theta := 0.0
	switch {
	case count > 0:
		theta = sum / float64(count)
	case overallTheta != 0:
		theta = overallTheta
	}

	ta := domain.NewTopicAbility(topicID, theta, 0.6)
	ta.Attempts = 0
	ta.Accuracy = nil
	return ta
}

// Update applies one response to a topic's ability record, returning the
// updated record and the Δθ that was applied. The caller supplies the IRT
// probability at the pre-update θ to avoid this package importing the irt
// package's clamping concerns directly — kept as a plain float to keep
// Update trivially testable.
func Update(current domain.TopicAbility, probabilityCorrect float64, correct bool, now time.Time) (updated domain.TopicAbility, deltaTheta float64) {
	lr := BaseLearningRate / (1 + LearningDecay*float64(current.Attempts))

	if correct {
		deltaTheta = lr * (1 - probabilityCorrect)
	} else {
		deltaTheta = -lr * probabilityCorrect
	}

	updated = current
	updated.Theta = domain.ClampTheta(current.Theta + deltaTheta)
	updated.SE = domain.ClampSE(current.SE * SEDecayFactor)
	updated.RecordAccuracy(correct) // must run before Attempts is bumped — it uses the pre-update count as n
	updated.Attempts = current.Attempts + 1
	updated.LastUpdated = &now

	return updated, deltaTheta
}
