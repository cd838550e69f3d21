package ability

import (
	"testing"
	"time"

	"github.com/tutu-network/jeevibe-iidp/internal/domain"
)

func mkResponses(topic string, n, correct int) []domain.Response {
	out := make([]domain.Response, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Response{TopicID: topic, Correct: i < correct})
	}
	return out
}

func TestThetaForAccuracy_Table(t *testing.T) {
	tests := []struct {
		name     string
		accuracy float64
		n        int
		want     float64
	}{
		{"perfect, n>=5", 1.0, 5, 2.0},
		{"perfect, n<5", 1.0, 3, 1.5},
		{"high 90-100", 0.95, 10, 2.5},
		{"75-90", 0.80, 10, 1.5},
		{"60-75", 0.65, 10, 0.5},
		{"40-60", 0.50, 10, -0.5},
		{"20-40", 0.30, 10, -1.5},
		{"0-20 exclusive", 0.10, 10, -2.5},
		{"zero, n>=5", 0.0, 5, -2.0},
		{"zero, n<5", 0.0, 2, -1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := thetaForAccuracy(tt.accuracy, tt.n)
			if got != tt.want {
				t.Errorf("thetaForAccuracy(%v, %d) = %v, want %v", tt.accuracy, tt.n, got, tt.want)
			}
		})
	}
}

func TestInitFromAssessment_SingleTopic(t *testing.T) {
	responses := mkResponses("phy-kinematics", 10, 9) // accuracy 0.9
	byTopic, overall := InitFromAssessment(responses, time.Now())

	ta, ok := byTopic["phy-kinematics"]
	if !ok {
		t.Fatal("expected topic in result")
	}
	if ta.Theta != 2.5 {
		t.Errorf("theta = %v, want 2.5", ta.Theta)
	}
	if ta.Attempts != 10 {
		t.Errorf("attempts = %d, want 10", ta.Attempts)
	}
	if ta.Accuracy == nil || *ta.Accuracy != 0.9 {
		t.Errorf("accuracy = %v, want 0.9", ta.Accuracy)
	}
	if overall != ta.Theta {
		t.Errorf("single-topic overall should equal that topic's theta, got %v vs %v", overall, ta.Theta)
	}
}

func TestInitFromAssessment_SEBounds(t *testing.T) {
	responses := mkResponses("phy-kinematics", 1, 1)
	byTopic, _ := InitFromAssessment(responses, time.Now())
	ta := byTopic["phy-kinematics"]
	if ta.SE < domain.SEMin || ta.SE > domain.SEMax {
		t.Errorf("SE = %v, out of bounds [%v,%v]", ta.SE, domain.SEMin, domain.SEMax)
	}
}

func TestPriorForUntestedTopic_AveragesSameSubject(t *testing.T) {
	byTopic := map[string]domain.TopicAbility{
		"phy-kinematics":     {Theta: 1.0},
		"phy-laws-of-motion": {Theta: 2.0},
		"chem-mole-concept":  {Theta: -1.0},
	}
	prior := PriorForUntestedTopic("phy-gravitation", byTopic, 0)
	if prior.Theta != 1.5 {
		t.Errorf("prior theta = %v, want 1.5 (avg of same-subject topics)", prior.Theta)
	}
	if prior.SE != 0.6 {
		t.Errorf("prior SE = %v, want 0.6", prior.SE)
	}
	if prior.Attempts != 0 || prior.Accuracy != nil {
		t.Error("prior should have zero attempts and nil accuracy")
	}
}

func TestPriorForUntestedTopic_FallsBackToOverall(t *testing.T) {
	prior := PriorForUntestedTopic("phy-gravitation", map[string]domain.TopicAbility{}, 0.75)
	if prior.Theta != 0.75 {
		t.Errorf("prior theta = %v, want 0.75 (overall fallback)", prior.Theta)
	}
}

func TestPriorForUntestedTopic_FallsBackToZero(t *testing.T) {
	prior := PriorForUntestedTopic("phy-gravitation", map[string]domain.TopicAbility{}, 0)
	if prior.Theta != 0 {
		t.Errorf("prior theta = %v, want 0", prior.Theta)
	}
}

// ─── Update Monotonicity Tests ───────────────────────────────────────────────

func TestUpdate_CorrectIncreasesTheta(t *testing.T) {
	now := time.Now()
	current := domain.NewTopicAbility("phy-kinematics", 0.5, 0.5)
	updated, delta := Update(current, 0.34, true, now)

	if delta <= 0 {
		t.Errorf("delta = %v, want > 0 for correct response", delta)
	}
	if updated.Theta <= current.Theta {
		t.Errorf("theta did not increase: %v -> %v", current.Theta, updated.Theta)
	}
}

func TestUpdate_IncorrectDecreasesTheta(t *testing.T) {
	now := time.Now()
	current := domain.NewTopicAbility("phy-kinematics", 0.5, 0.5)
	updated, delta := Update(current, 0.6, false, now)

	if delta >= 0 {
		t.Errorf("delta = %v, want < 0 for incorrect response", delta)
	}
	if updated.Theta >= current.Theta {
		t.Errorf("theta did not decrease: %v -> %v", current.Theta, updated.Theta)
	}
}

func TestUpdate_MagnitudeDecreasesWithAttempts(t *testing.T) {
	now := time.Now()
	fresh := domain.NewTopicAbility("phy-kinematics", 0.5, 0.5)
	fresh.Attempts = 0
	_, deltaFresh := Update(fresh, 0.34, true, now)

	seasoned := domain.NewTopicAbility("phy-kinematics", 0.5, 0.5)
	seasoned.Attempts = 50
	_, deltaSeasoned := Update(seasoned, 0.34, true, now)

	if deltaSeasoned >= deltaFresh {
		t.Errorf("delta should shrink with attempts: fresh=%v seasoned=%v", deltaFresh, deltaSeasoned)
	}
}

func TestUpdate_WorkedExample(t *testing.T) {
	// θ=0.5, attempts=0, item (b=1.4,a=1.6,c=0.25), correct, P ≈ 0.34.
	now := time.Now()
	current := domain.NewTopicAbility("phy-kinematics", 0.5, 0.6)
	current.Attempts = 0

	updated, delta := Update(current, 0.34, true, now)

	wantDelta := 0.3 * (1 - 0.34)
	if diff := delta - wantDelta; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("delta = %v, want %v", delta, wantDelta)
	}
	wantTheta := domain.ClampTheta(0.5 + wantDelta)
	if diff := updated.Theta - wantTheta; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("theta = %v, want %v", updated.Theta, wantTheta)
	}
	if updated.SE != 0.6*SEDecayFactor {
		t.Errorf("SE = %v, want %v", updated.SE, 0.6*SEDecayFactor)
	}
}

func TestUpdate_BoundsNeverExceeded(t *testing.T) {
	now := time.Now()
	current := domain.NewTopicAbility("phy-kinematics", domain.ThetaMax, domain.SEMin)
	for i := 0; i < 100; i++ {
		current, _ = Update(current, 0.01, true, now)
		if current.Theta > domain.ThetaMax || current.Theta < domain.ThetaMin {
			t.Fatalf("theta out of bounds: %v", current.Theta)
		}
		if current.SE > domain.SEMax || current.SE < domain.SEMin {
			t.Fatalf("SE out of bounds: %v", current.SE)
		}
	}
}
