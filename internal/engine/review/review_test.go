package review

import (
	"testing"
	"time"

	"github.com/tutu-network/jeevibe-iidp/internal/domain"
)

func TestSelect_ExcludesIncorrectAndRecent(t *testing.T) {
	now := time.Now()
	responses := []domain.Response{
		{ItemID: "wrong", Correct: false, AnsweredAt: now.Add(-40 * 24 * time.Hour)},
		{ItemID: "recent", Correct: true, AnsweredAt: now.Add(-40 * 24 * time.Hour)},
	}
	_, ok := Select(responses, map[string]bool{"recent": true}, now)
	if ok {
		t.Error("expected no candidate: one is incorrect, the other recently seen")
	}
}

func TestSelect_ExcludesUnderOneDay(t *testing.T) {
	now := time.Now()
	responses := []domain.Response{
		{ItemID: "fresh", Correct: true, AnsweredAt: now.Add(-12 * time.Hour)},
	}
	_, ok := Select(responses, nil, now)
	if ok {
		t.Error("expected no candidate: under 1 day since last answer")
	}
}

func TestSelect_PrefersHigherTier(t *testing.T) {
	now := time.Now()
	responses := []domain.Response{
		{ItemID: "tier2", Correct: true, AnsweredAt: now.Add(-4 * 24 * time.Hour)},  // [3,7) -> tier 2
		{ItemID: "tier5", Correct: true, AnsweredAt: now.Add(-35 * 24 * time.Hour)}, // >=30 -> tier 5
	}
	got, ok := Select(responses, nil, now)
	if !ok || got.ItemID != "tier5" {
		t.Errorf("Select() = %v, ok=%v, want tier5", got, ok)
	}
}

func TestSelect_SameTierPrefersOlder(t *testing.T) {
	now := time.Now()
	responses := []domain.Response{
		{ItemID: "newer", Correct: true, AnsweredAt: now.Add(-31 * 24 * time.Hour)},
		{ItemID: "older", Correct: true, AnsweredAt: now.Add(-60 * 24 * time.Hour)},
	}
	got, ok := Select(responses, nil, now)
	if !ok || got.ItemID != "older" {
		t.Errorf("Select() = %v, ok=%v, want older (same tier, greater days_since)", got, ok)
	}
}
