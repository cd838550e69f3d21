// Package phase implements the pure scheduler that decides a learner's
// learning phase and the resulting per-quiz slot counts from nothing but
// their completed-quiz count. It holds no state and makes no I/O calls,
// the same "pure function over its arguments" discipline as internal/engine/irt.
package phase

import "github.com/tutu-network/jeevibe-iidp/internal/domain"

// PhaseSwitchQuizCount is the completed_quiz_count threshold at which a
// learner moves from exploration into exploitation.
const PhaseSwitchQuizCount = 14

// Slots is the per-quiz slot budget a phase hands to the composer: how many
// items come from exploration/weak-topic targeting, maintenance/deliberate
// practice, and spaced review.
type Slots struct {
	Primary     int // exploration or weak-topic slots
	Maintenance int // deliberate-practice or maintenance slots
	Review      int
}

// Decision is the outcome of evaluating the phase controller for a learner:
// which phase they're in, the exploration ratio that drove it, and the
// resulting slot budget.
type Decision struct {
	Phase           domain.LearningPhase
	ExplorationRatio float64
	Slots           Slots
}

// Evaluate is the phase controller: a pure function of completed_quiz_count.
func Evaluate(completedQuizCount int) Decision {
	if completedQuizCount >= PhaseSwitchQuizCount {
		return Decision{
			Phase:            domain.PhaseExploitation,
			ExplorationRatio: 0,
			Slots:            Slots{Primary: 7, Maintenance: 2, Review: 1},
		}
	}

	// Computed in hundredths so that e.g. q=5 yields exactly 0.4 (and 4
	// exploration slots) rather than 0.39999999999999997.
	ratio := float64(60-4*completedQuizCount) / 100
	if ratio < 0.3 {
		ratio = 0.3
	}

	nExp := int(10 * ratio) // floor via int truncation of a non-negative value
	nReview := 1
	nDeliberate := 10 - nExp - nReview

	return Decision{
		Phase:            domain.PhaseExploration,
		ExplorationRatio: ratio,
		Slots:            Slots{Primary: nExp, Maintenance: nDeliberate, Review: nReview},
	}
}

// RecoverySlots is the fixed slot budget for a circuit-breaker recovery
// quiz: 7 easy weak-topic items, 2 medium items, 1 review item.
func RecoverySlots() Slots {
	return Slots{Primary: 7, Maintenance: 2, Review: 1}
}
