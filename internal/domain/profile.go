package domain

import "time"

// LearningPhase is the quiz-composition regime currently in effect.
type LearningPhase string

const (
	PhaseExploration LearningPhase = "exploration"
	PhaseExploitation LearningPhase = "exploitation"
	PhaseRecovery     LearningPhase = "recovery"
)

// LearnerProfile is the per-learner aggregate the engine mutates.
// It exclusively owns its TopicAbility records.
type LearnerProfile struct {
	LearnerID string `json:"learner_id"`

	Topics       map[string]TopicAbility `json:"topics"`        // topic id → ability
	OverallTheta float64                 `json:"overall_theta"` // JEE-weighted mean over topics

	CompletedQuizCount    int           `json:"completed_quiz_count"` // ≥ 0, monotone
	AssessmentCompletedAt *time.Time    `json:"assessment_completed_at"`
	LearningPhase         LearningPhase `json:"learning_phase"`
	PhaseSwitchedAtQuiz   *int          `json:"phase_switched_at_quiz"` // nil until first exploitation quiz

	TopicAttemptCounts map[string]int       `json:"topic_attempt_counts"`
	SubjectBalance     map[Subject]float64  `json:"subject_balance"` // proportion of attempts per subject

	TotalQuestionsSolved int64 `json:"total_questions_solved"`
}

// NewLearnerProfile returns a zero-value profile ready for first use.
func NewLearnerProfile(learnerID string) *LearnerProfile {
	return &LearnerProfile{
		LearnerID:          learnerID,
		Topics:             make(map[string]TopicAbility),
		LearningPhase:      PhaseExploration,
		TopicAttemptCounts: make(map[string]int),
		SubjectBalance:     make(map[Subject]float64),
	}
}

// Ability returns the learner's ability record for topicID and whether it exists.
func (p *LearnerProfile) Ability(topicID string) (TopicAbility, bool) {
	ta, ok := p.Topics[topicID]
	return ta, ok
}

// SetAbility replaces the ability record for a topic, enforcing bounds.
func (p *LearnerProfile) SetAbility(ta TopicAbility) {
	ta.Theta = ClampTheta(ta.Theta)
	ta.SE = ClampSE(ta.SE)
	p.Topics[ta.TopicID] = ta
}

// RecalculateSubjectBalance recomputes the attempts-proportion per subject
// from TopicAttemptCounts. TopicID→Subject classification is supplied by
// the caller because the profile itself does not know the catalog.
func (p *LearnerProfile) RecalculateSubjectBalance(subjectOf func(topicID string) Subject) {
	totals := make(map[Subject]int)
	var grand int
	for topicID, n := range p.TopicAttemptCounts {
		s := subjectOf(topicID)
		totals[s] += n
		grand += n
	}
	balance := make(map[Subject]float64, len(totals))
	if grand > 0 {
		for s, n := range totals {
			balance[s] = float64(n) / float64(grand)
		}
	}
	p.SubjectBalance = balance
}
