package engine

import (
	"context"
	"testing"
	"time"

	"github.com/tutu-network/jeevibe-iidp/internal/domain"
	"github.com/tutu-network/jeevibe-iidp/internal/infra/clock"
	"github.com/tutu-network/jeevibe-iidp/internal/infra/rng"
	"github.com/tutu-network/jeevibe-iidp/internal/infra/store"
)

func seedCatalog(t *testing.T, repo *store.MemoryRepository, topicID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		b := 0.4 + float64(i)*0.3
		item, err := domain.NewItem(
			topicID+"-item-"+string(rune('a'+i)), topicID,
			domain.ItemSingleChoice, domain.DifficultyMedium, b, 1.4, 0.2,
		)
		if err != nil {
			t.Fatalf("seed item: %v", err)
		}
		repo.SeedItems(item)
	}
}

func newTestEngine(t *testing.T) (*Engine, *store.MemoryRepository, *clock.Fixed) {
	t.Helper()
	repo := store.NewMemoryRepository()
	fixedClock := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	e := New(repo, fixedClock, rng.NewSequence(0, 1, 0, 1, 0), nil)
	return e, repo, fixedClock
}

func TestInitFromAssessment_PersistsProfile(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	responses := []domain.Response{
		{TopicID: "phy-kinematics", Correct: true},
		{TopicID: "phy-kinematics", Correct: true},
		{TopicID: "phy-kinematics", Correct: false},
	}
	profile, err := e.InitFromAssessment(ctx, "learner-1", responses)
	if err != nil {
		t.Fatalf("InitFromAssessment: %v", err)
	}
	ta, ok := profile.Ability("phy-kinematics")
	if !ok {
		t.Fatal("expected phy-kinematics ability to be set")
	}
	if ta.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", ta.Attempts)
	}

	reloaded, err := e.repo.GetProfile(ctx, "learner-1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if reloaded.CompletedQuizCount != 0 {
		t.Errorf("completed_quiz_count = %d, want 0", reloaded.CompletedQuizCount)
	}
}

func TestUpdateAfterResponse_MovesThetaAndPersistsResponse(t *testing.T) {
	e, repo, _ := newTestEngine(t)
	ctx := context.Background()
	seedCatalog(t, repo, "phy-kinematics", 3)

	if _, err := e.InitFromAssessment(ctx, "learner-1", nil); err != nil {
		t.Fatalf("InitFromAssessment: %v", err)
	}

	resp, err := e.UpdateAfterResponse(ctx, "learner-1", "phy-kinematics-item-a", true, 30)
	if err != nil {
		t.Fatalf("UpdateAfterResponse: %v", err)
	}
	if resp.ThetaAfter <= resp.ThetaBefore {
		t.Errorf("theta did not increase after a correct response: %v -> %v", resp.ThetaBefore, resp.ThetaAfter)
	}

	profile, err := e.repo.GetProfile(ctx, "learner-1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if profile.TopicAttemptCounts["phy-kinematics"] != 1 {
		t.Errorf("attempt count = %d, want 1", profile.TopicAttemptCounts["phy-kinematics"])
	}
}

func TestGenerateQuiz_ProducesItemsAndBumpsCount(t *testing.T) {
	e, repo, _ := newTestEngine(t)
	ctx := context.Background()

	topics := []string{"phy-kinematics", "phy-electrostatics", "chem-mole-concept", "math-integration"}
	for _, topicID := range topics {
		seedCatalog(t, repo, topicID, 6)
	}

	if _, err := e.InitFromAssessment(ctx, "learner-1", nil); err != nil {
		t.Fatalf("InitFromAssessment: %v", err)
	}

	quiz, err := e.GenerateQuiz(ctx, "learner-1")
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	if len(quiz.Items) == 0 {
		t.Fatal("expected at least one item")
	}
	if quiz.Phase != domain.PhaseExploration {
		t.Errorf("phase = %v, want exploration", quiz.Phase)
	}

	profile, err := e.repo.GetProfile(ctx, "learner-1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if profile.CompletedQuizCount != 1 {
		t.Errorf("completed_quiz_count = %d, want 1", profile.CompletedQuizCount)
	}
}

func TestGenerateQuiz_CircuitBreakerTriggersRecovery(t *testing.T) {
	e, repo, fixedClock := newTestEngine(t)
	ctx := context.Background()

	topics := []string{"phy-kinematics", "phy-electrostatics", "chem-mole-concept", "math-integration"}
	for _, topicID := range topics {
		seedCatalog(t, repo, topicID, 6)
	}
	if _, err := e.InitFromAssessment(ctx, "learner-1", nil); err != nil {
		t.Fatalf("InitFromAssessment: %v", err)
	}

	// Drive 5 consecutive incorrect responses to trip the breaker.
	for i := 0; i < 5; i++ {
		if _, err := e.UpdateAfterResponse(ctx, "learner-1", "phy-kinematics-item-a", false, 10); err != nil {
			t.Fatalf("UpdateAfterResponse: %v", err)
		}
		fixedClock.Advance(time.Minute)
	}

	quiz, err := e.GenerateQuiz(ctx, "learner-1")
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	if quiz.Phase != domain.PhaseRecovery {
		t.Errorf("phase = %v, want recovery", quiz.Phase)
	}

	found := false
	for _, ev := range repo.Events() {
		if ev.Kind == domain.EventCircuitBreakerTriggered {
			found = true
		}
	}
	if !found {
		t.Error("expected a circuit_breaker_triggered event to be logged")
	}
}

func TestGenerateQuiz_ContextDeadlineExceeded(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.GenerateQuiz(ctx, "learner-1")
	if err == nil {
		t.Fatal("expected an error for a canceled context")
	}
}
