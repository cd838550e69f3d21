// Package engine wires the pure kernels (ability, phase, rank, selectitem,
// breaker, review, compose) into the three public operations the rest of
// the system calls: init from assessment, update after response, and
// generate quiz. It owns per-learner serialization, repository
// orchestration, and event/metric emission — everything the kernels
// themselves stay free of. Structurally this plays the same top-level
// orchestrator role an Executor plays over task execution: a
// mutex-guarded frontend over pure backend logic, reporting stats as it
// goes.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tutu-network/jeevibe-iidp/internal/domain"
	"github.com/tutu-network/jeevibe-iidp/internal/engine/ability"
	"github.com/tutu-network/jeevibe-iidp/internal/engine/breaker"
	"github.com/tutu-network/jeevibe-iidp/internal/engine/compose"
	"github.com/tutu-network/jeevibe-iidp/internal/engine/irt"
	"github.com/tutu-network/jeevibe-iidp/internal/engine/phase"
	"github.com/tutu-network/jeevibe-iidp/internal/engine/rank"
	"github.com/tutu-network/jeevibe-iidp/internal/engine/review"
	"github.com/tutu-network/jeevibe-iidp/internal/engine/selectitem"
	"github.com/tutu-network/jeevibe-iidp/internal/engine/topics"
	"github.com/tutu-network/jeevibe-iidp/internal/infra/lock"
	"github.com/tutu-network/jeevibe-iidp/internal/infra/metrics"
)

// recentWindowDays is the recency exclusion window for item selection:
// an item answered within the last 30 days is never reselected.
const recentWindowDays = 30

// Engine is the top-level IIDP orchestrator.
type Engine struct {
	repo  domain.Repository
	clock domain.Clock
	rng   domain.RNG
	locks *lock.KeyedMutex
	log   *slog.Logger
}

// New builds an Engine over the given repository, clock, and RNG ports.
func New(repo domain.Repository, clock domain.Clock, rng domain.RNG, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{repo: repo, clock: clock, rng: rng, locks: lock.NewKeyedMutex(), log: logger}
}

// InitFromAssessment seeds a learner profile from their placement
// assessment responses.
func (e *Engine) InitFromAssessment(ctx context.Context, learnerID string, responses []domain.Response) (*domain.LearnerProfile, error) {
	var profile *domain.LearnerProfile
	var err error
	e.locks.WithLock(learnerID, func() {
		profile, err = e.initFromAssessment(ctx, learnerID, responses)
	})
	return profile, err
}

func (e *Engine) initFromAssessment(ctx context.Context, learnerID string, responses []domain.Response) (*domain.LearnerProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDeadlineExceeded, err)
	}

	now := e.clock.Now()
	byTopic, overallTheta := ability.InitFromAssessment(responses, now)

	profile := domain.NewLearnerProfile(learnerID)
	profile.OverallTheta = overallTheta
	profile.AssessmentCompletedAt = &now
	for topicID, ta := range byTopic {
		profile.SetAbility(ta)
		profile.TopicAttemptCounts[topicID] = ta.Attempts
	}
	profile.RecalculateSubjectBalance(domain.SubjectFromTopicID)

	if err := e.repo.PutProfile(ctx, profile); err != nil {
		return nil, err
	}
	for _, r := range responses {
		if err := e.repo.AppendResponse(ctx, r); err != nil {
			return nil, err
		}
	}
	return profile, nil
}

// UpdateAfterResponse applies a single answered item to the learner's
// ability state.
func (e *Engine) UpdateAfterResponse(ctx context.Context, learnerID, itemID string, correct bool, elapsedSeconds int) (*domain.Response, error) {
	start := e.clock.Now()
	var response *domain.Response
	var err error
	e.locks.WithLock(learnerID, func() {
		response, err = e.updateAfterResponse(ctx, learnerID, itemID, correct, elapsedSeconds)
	})
	metrics.AbilityUpdateDuration.Observe(e.clock.Now().Sub(start).Seconds())
	return response, err
}

func (e *Engine) updateAfterResponse(ctx context.Context, learnerID, itemID string, correct bool, elapsedSeconds int) (*domain.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDeadlineExceeded, err)
	}

	item, err := e.repo.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	var response domain.Response

	_, err = e.repo.MutateProfile(ctx, learnerID, func(p *domain.LearnerProfile) error {
		current, ok := p.Ability(item.TopicID)
		if !ok {
			current = ability.PriorForUntestedTopic(item.TopicID, p.Topics, p.OverallTheta)
		}

		probability := irt.Probability(current.Theta, item.B, item.A, item.C)
		updated, deltaTheta := ability.Update(current, probability, correct, now)
		p.SetAbility(updated)

		p.TopicAttemptCounts[item.TopicID]++
		p.RecalculateSubjectBalance(domain.SubjectFromTopicID)
		p.OverallTheta = recomputeOverallTheta(p)

		response = domain.Response{
			ID:             uuid.NewString(),
			LearnerID:      learnerID,
			ItemID:         itemID,
			TopicID:        item.TopicID,
			Correct:        correct,
			ElapsedSeconds: elapsedSeconds,
			ThetaBefore:    current.Theta,
			ThetaAfter:     updated.Theta,
			DeltaTheta:     deltaTheta,
			SEBefore:       current.SE,
			SEAfter:        updated.SE,
			AnsweredAt:     now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := e.repo.AppendResponse(ctx, response); err != nil {
		return nil, err
	}
	return &response, nil
}

// recomputeOverallTheta recomputes the JEE-weighted mean θ across a
// profile's topics.
func recomputeOverallTheta(p *domain.LearnerProfile) float64 {
	var weightedSum, weightSum float64
	for topicID, ta := range p.Topics {
		w := topics.Weightage(topicID)
		weightedSum += w * ta.Theta
		weightSum += w
	}
	if weightSum == 0 {
		return 0
	}
	return domain.ClampTheta(weightedSum / weightSum)
}

// GenerateQuiz assembles the next personalized quiz for a learner,
// consulting the circuit breaker before the normal phase/rank/select
// pipeline.
func (e *Engine) GenerateQuiz(ctx context.Context, learnerID string) (*domain.Quiz, error) {
	var quiz *domain.Quiz
	var err error
	e.locks.WithLock(learnerID, func() {
		quiz, err = e.generateQuiz(ctx, learnerID)
	})
	return quiz, err
}

func (e *Engine) generateQuiz(ctx context.Context, learnerID string) (*domain.Quiz, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDeadlineExceeded, err)
	}

	profile, err := e.repo.GetProfile(ctx, learnerID)
	if err != nil {
		return nil, err
	}

	recentResponses, err := e.repo.RecentResponses(ctx, learnerID, recentWindowDays)
	if err != nil {
		return nil, err
	}
	recentSet := make(map[string]bool, len(recentResponses))
	for _, r := range recentResponses {
		recentSet[r.ItemID] = true
	}

	allResponses, err := e.repo.RecentResponses(ctx, learnerID, 365*5)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()

	var quizPhase domain.LearningPhase
	var candidates []compose.SlotItem
	var shortQuiz bool

	if breaker.Triggered(allResponses) {
		quizPhase = domain.PhaseRecovery
		metrics.CircuitBreakerTrips.Inc()
		e.repo.LogEvent(ctx, domain.Event{Kind: domain.EventCircuitBreakerTriggered, LearnerID: learnerID, At: now})
		candidates, shortQuiz, err = e.composeRecoveryQuiz(ctx, profile, allResponses, recentSet, now)
	} else {
		decision := phase.Evaluate(profile.CompletedQuizCount)
		quizPhase = decision.Phase
		candidates, shortQuiz, err = e.composeNormalQuiz(ctx, profile, decision, recentSet, allResponses, now)
	}
	if err != nil {
		return nil, err
	}

	items := compose.Interleave(candidates, e.rng)
	if len(items) < domain.QuizLength {
		shortQuiz = true
	}
	if shortQuiz {
		metrics.ShortQuizzes.Inc()
		e.repo.LogEvent(ctx, domain.Event{Kind: domain.EventShortQuiz, LearnerID: learnerID, At: now})
	}

	quiz := domain.Quiz{
		ID:          uuid.NewString(),
		LearnerID:   learnerID,
		Number:      profile.CompletedQuizCount + 1,
		Phase:       quizPhase,
		Items:       items,
		Topics:      compose.Union(items),
		GeneratedAt: now,
		ShortQuiz:   shortQuiz,
	}

	if err := e.repo.PutQuizMetadata(ctx, quiz); err != nil {
		return nil, err
	}

	_, err = e.repo.MutateProfile(ctx, learnerID, func(p *domain.LearnerProfile) error {
		wasExploitation := p.LearningPhase == domain.PhaseExploitation
		n := p.CompletedQuizCount
		p.LearningPhase = quizPhase
		p.CompletedQuizCount++
		if !wasExploitation && quizPhase == domain.PhaseExploitation && p.PhaseSwitchedAtQuiz == nil {
			p.PhaseSwitchedAtQuiz = &n
			metrics.PhaseTransitions.WithLabelValues(string(domain.PhaseExploitation)).Inc()
			e.repo.LogEvent(ctx, domain.Event{Kind: domain.EventPhaseTransition, LearnerID: learnerID, At: now, Attrs: map[string]string{"phase": string(quizPhase)}})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.QuizGenerated.WithLabelValues(string(quizPhase)).Inc()
	return &quiz, nil
}

// composeNormalQuiz fills exploration/exploitation slots by ranking topics
// and running the item selector against each, plus one review slot.
func (e *Engine) composeNormalQuiz(ctx context.Context, profile *domain.LearnerProfile, decision phase.Decision, recentSet map[string]bool, allResponses []domain.Response, now time.Time) ([]compose.SlotItem, bool, error) {
	var rankedTopics []string
	if decision.Phase == domain.PhaseExploration {
		candidateTopics, err := e.candidateTopicIDs(ctx)
		if err != nil {
			return nil, false, err
		}
		rankedTopics = rank.Exploration(candidateTopics, profile)
	} else {
		rankedTopics = rank.Exploitation(profile, now)
	}

	var out []compose.SlotItem
	short := false

	primarySlots := decision.Slots.Primary
	if err := e.fillTopicSlots(ctx, profile, rankedTopics, 0, decision.Phase, primarySlots, recentSet, &out, &short); err != nil {
		return nil, false, err
	}

	// Exploitation maintenance slots reinforce already-strong topics: draw
	// at random from the highest-θ tested topics rather than continuing
	// down the weakest-first ranking the primary slots just consumed.
	// Exploration's deliberate-practice slots keep drawing from the same
	// importance-ranked list, picking up where the primary slots left off.
	if decision.Phase == domain.PhaseExploitation {
		maintenanceTopics := rank.MaintenanceCandidates(profile, e.rng, decision.Slots.Maintenance)
		if err := e.fillTopicSlots(ctx, profile, maintenanceTopics, 0, decision.Phase, decision.Slots.Maintenance, recentSet, &out, &short); err != nil {
			return nil, false, err
		}
	} else {
		if err := e.fillTopicSlots(ctx, profile, rankedTopics, primarySlots, decision.Phase, decision.Slots.Maintenance, recentSet, &out, &short); err != nil {
			return nil, false, err
		}
	}

	for i := 0; i < decision.Slots.Review; i++ {
		r, ok := review.Select(allResponses, recentSet, now)
		if !ok {
			short = true
			continue
		}
		out = append(out, compose.SlotItem{ItemID: r.ItemID, TopicID: r.TopicID})
		recentSet[r.ItemID] = true
	}

	return out, short, nil
}

// composeRecoveryQuiz fills the circuit-breaker recovery distribution:
// easy weak-topic items, medium weak-topic items, and one review item.
func (e *Engine) composeRecoveryQuiz(ctx context.Context, profile *domain.LearnerProfile, allResponses []domain.Response, recentSet map[string]bool, now time.Time) ([]compose.SlotItem, bool, error) {
	var out []compose.SlotItem
	short := false

	weak4 := breaker.WeakestTopics(profile, 4)
	for _, slot := range breaker.PrimaryDistribution(weak4) {
		items, err := e.repo.QueryItems(ctx, domain.ItemQuery{TopicID: slot.TopicID})
		if err != nil {
			return nil, false, err
		}
		for i := 0; i < slot.Count; i++ {
			item, ok := breaker.PickForSlot(items, slot.TopicID, breaker.PrimaryBMin, breaker.PrimaryBMax, breaker.RecoveryAMin, recentSet)
			if !ok {
				short = true
				continue
			}
			out = append(out, compose.SlotItem{ItemID: item.ID, TopicID: item.TopicID})
			recentSet[item.ID] = true
		}
	}

	weak2 := breaker.WeakestTopics(profile, 2)
	for _, slot := range breaker.MaintenanceDistribution(weak2) {
		items, err := e.repo.QueryItems(ctx, domain.ItemQuery{TopicID: slot.TopicID})
		if err != nil {
			return nil, false, err
		}
		for i := 0; i < slot.Count; i++ {
			item, ok := breaker.PickForSlot(items, slot.TopicID, breaker.MaintenanceBMin, breaker.MaintenanceBMax, breaker.RecoveryAMin, recentSet)
			if !ok {
				short = true
				continue
			}
			out = append(out, compose.SlotItem{ItemID: item.ID, TopicID: item.TopicID})
			recentSet[item.ID] = true
		}
	}

	if r, ok := breaker.ReviewCandidate(allResponses, weak4, now, recentSet); ok {
		out = append(out, compose.SlotItem{ItemID: r.ItemID, TopicID: r.TopicID})
		recentSet[r.ItemID] = true
	} else {
		short = true
	}

	return out, short, nil
}

// fillTopicSlots draws count items against topicsList, cycling through it
// starting at offset, appending each pick to out and marking the quiz
// short if the list is empty or a pick comes up empty.
func (e *Engine) fillTopicSlots(ctx context.Context, profile *domain.LearnerProfile, topicsList []string, offset int, quizPhase domain.LearningPhase, count int, recentSet map[string]bool, out *[]compose.SlotItem, short *bool) error {
	for i := 0; i < count; i++ {
		if len(topicsList) == 0 {
			*short = true
			break
		}
		topicID := topicsList[(offset+i)%len(topicsList)]
		item, ok, err := e.selectOneItem(ctx, profile, topicID, quizPhase, recentSet)
		if err != nil {
			return err
		}
		if !ok {
			*short = true
			continue
		}
		*out = append(*out, compose.SlotItem{ItemID: item.ID, TopicID: item.TopicID})
		recentSet[item.ID] = true
	}
	return nil
}

// selectOneItem resolves a topic's target θ (exploration uses a neutral
// default for never-attempted topics) and runs the item selector against
// the catalog.
func (e *Engine) selectOneItem(ctx context.Context, profile *domain.LearnerProfile, topicID string, quizPhase domain.LearningPhase, recentSet map[string]bool) (domain.Item, bool, error) {
	targetTheta := selectitem.NeverUntestedTheta
	if ta, ok := profile.Ability(topicID); ok {
		targetTheta = ta.Theta
	} else if quizPhase != domain.PhaseExploration {
		targetTheta = profile.OverallTheta
	}

	items, err := e.repo.QueryItems(ctx, domain.ItemQuery{TopicID: topicID})
	if err != nil {
		return domain.Item{}, false, err
	}

	item, depth, ok := selectitem.Select(items, selectitem.Params{
		TopicID:     topicID,
		TargetTheta: targetTheta,
		RecentSet:   recentSet,
		AMin:        1.0,
	})
	if !ok {
		e.repo.LogEvent(ctx, domain.Event{Kind: domain.EventSelectorFallback, LearnerID: profile.LearnerID, At: e.clock.Now(), Attrs: map[string]string{"topic_id": topicID}})
		return item, false, nil
	}
	metrics.SelectorFallbackDepth.Observe(float64(depth))
	return item, ok, nil
}

// candidateTopicIDs collects the set of topic ids the catalog carries items
// for, in first-seen order, from a single unfiltered catalog query. The
// repository's catalog (not the static weightage/prereq tables) is
// authoritative over what topics exist.
func (e *Engine) candidateTopicIDs(ctx context.Context) ([]string, error) {
	items, err := e.repo.QueryItems(ctx, domain.ItemQuery{})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, item := range items {
		if !seen[item.TopicID] {
			seen[item.TopicID] = true
			out = append(out, item.TopicID)
		}
	}
	return out, nil
}
