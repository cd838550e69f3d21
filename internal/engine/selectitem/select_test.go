package selectitem

import "testing"

import "github.com/tutu-network/jeevibe-iidp/internal/domain"

func mkItem(t *testing.T, id, topic string, b, a, c float64) domain.Item {
	t.Helper()
	item, err := domain.NewItem(id, topic, domain.ItemSingleChoice, domain.DifficultyMedium, b, a, c)
	if err != nil {
		t.Fatalf("NewItem(%s): %v", id, err)
	}
	return item
}

func TestSelect_PicksHighestFisherInfo(t *testing.T) {
	items := []domain.Item{
		mkItem(t, "i1", "phy-kinematics", 0.5, 1.0, 0.25), // far from target a-wise
		mkItem(t, "i2", "phy-kinematics", 0.5, 2.0, 0.1),  // sharper discrimination, better info
	}
	got, _, ok := Select(items, Params{TopicID: "phy-kinematics", TargetTheta: 0.5, AMin: 0.5})
	if !ok {
		t.Fatal("expected a candidate")
	}
	if got.ID != "i2" {
		t.Errorf("Select() = %q, want i2 (higher discrimination at matching b)", got.ID)
	}
}

func TestSelect_ExcludesRecentItems(t *testing.T) {
	items := []domain.Item{mkItem(t, "i1", "phy-kinematics", 0.5, 1.0, 0.25)}
	_, _, ok := Select(items, Params{
		TopicID:     "phy-kinematics",
		TargetTheta: 0.5,
		RecentSet:   map[string]bool{"i1": true},
		AMin:        0.5,
	})
	if ok {
		t.Error("expected no candidate: the only item is in recentSet")
	}
}

func TestSelect_RelaxesAMinWhenStarved(t *testing.T) {
	items := []domain.Item{mkItem(t, "i1", "phy-kinematics", 0.5, 0.3, 0.25)} // a < a_min
	got, depth, ok := Select(items, Params{TopicID: "phy-kinematics", TargetTheta: 0.5, AMin: 1.0})
	if !ok {
		t.Fatal("expected relaxed cascade to surface the only candidate")
	}
	if got.ID != "i1" {
		t.Errorf("got %q, want i1", got.ID)
	}
	if depth != 1 {
		t.Errorf("depth = %d, want 1 (a_min relaxed)", depth)
	}
}

func TestSelect_RelaxesThetaProximityWhenStarved(t *testing.T) {
	items := []domain.Item{mkItem(t, "i1", "phy-kinematics", 2.5, 1.2, 0.25)} // far from target θ
	got, depth, ok := Select(items, Params{TopicID: "phy-kinematics", TargetTheta: 0.5, AMin: 0.5})
	if !ok {
		t.Fatal("expected fully-relaxed cascade to surface the only candidate")
	}
	if got.ID != "i1" {
		t.Errorf("got %q, want i1", got.ID)
	}
	if depth != 2 {
		t.Errorf("depth = %d, want 2 (theta proximity relaxed)", depth)
	}
}

func TestSelect_ReturnsFalseWhenExhausted(t *testing.T) {
	items := []domain.Item{mkItem(t, "i1", "phy-kinematics", 0.5, 1.0, 0.25)}
	_, _, ok := Select(items, Params{
		TopicID:     "phy-kinematics",
		TargetTheta: 0.5,
		RecentSet:   map[string]bool{"i1": true}, // recency is never relaxed
		AMin:        0.5,
	})
	if ok {
		t.Error("expected no candidate: recentSet exclusion is never relaxed")
	}
}

func TestSelect_DeterministicTieBreak(t *testing.T) {
	items := []domain.Item{
		mkItem(t, "i2", "phy-kinematics", 0.5, 1.5, 0.2),
		mkItem(t, "i1", "phy-kinematics", 0.5, 1.5, 0.2), // identical params, smaller id
	}
	got, _, ok := Select(items, Params{TopicID: "phy-kinematics", TargetTheta: 0.5, AMin: 0.5})
	if !ok {
		t.Fatal("expected a candidate")
	}
	if got.ID != "i1" {
		t.Errorf("tie-break picked %q, want i1 (lexicographically smaller)", got.ID)
	}
}
