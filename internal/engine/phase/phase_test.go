package phase

import (
	"testing"

	"github.com/tutu-network/jeevibe-iidp/internal/domain"
)

func TestEvaluate_ExplorationRatio(t *testing.T) {
	tests := []struct {
		q        int
		wantPhase domain.LearningPhase
		wantRatio float64
	}{
		{0, domain.PhaseExploration, 0.6},
		{5, domain.PhaseExploration, 0.4},
		{13, domain.PhaseExploration, 0.3}, // max(0.6-0.52, 0.3) = 0.3
		{14, domain.PhaseExploitation, 0},
		{20, domain.PhaseExploitation, 0},
	}
	for _, tt := range tests {
		got := Evaluate(tt.q)
		if got.Phase != tt.wantPhase {
			t.Errorf("Evaluate(%d).Phase = %v, want %v", tt.q, got.Phase, tt.wantPhase)
		}
		if got.ExplorationRatio != tt.wantRatio {
			t.Errorf("Evaluate(%d).ExplorationRatio = %v, want %v", tt.q, got.ExplorationRatio, tt.wantRatio)
		}
	}
}

func TestEvaluate_SlotsSumToTen(t *testing.T) {
	for q := 0; q < 20; q++ {
		d := Evaluate(q)
		total := d.Slots.Primary + d.Slots.Maintenance + d.Slots.Review
		if total != 10 {
			t.Errorf("Evaluate(%d) slots sum to %d, want 10", q, total)
		}
	}
}

func TestEvaluate_ExploitationFixedSlots(t *testing.T) {
	d := Evaluate(14)
	if d.Slots != (Slots{Primary: 7, Maintenance: 2, Review: 1}) {
		t.Errorf("exploitation slots = %+v, want {7 2 1}", d.Slots)
	}
}

func TestRecoverySlots(t *testing.T) {
	s := RecoverySlots()
	if s != (Slots{Primary: 7, Maintenance: 2, Review: 1}) {
		t.Errorf("RecoverySlots() = %+v, want {7 2 1}", s)
	}
}
