// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture — it depends on nothing.
package domain

import (
	"fmt"
	"strings"
)

// Subject is the top-level JEE subject an item's topic belongs to.
type Subject string

const (
	SubjectPhysics     Subject = "physics"
	SubjectChemistry   Subject = "chemistry"
	SubjectMathematics Subject = "mathematics"
	SubjectOther       Subject = "other"
)

// SubjectFromTopicID derives a subject from a topic id prefix, e.g.
// "phy-kinematics" → SubjectPhysics. Unrecognized prefixes are SubjectOther.
func SubjectFromTopicID(topicID string) Subject {
	prefix, _, _ := strings.Cut(topicID, "-")
	switch strings.ToLower(prefix) {
	case "phy", "physics":
		return SubjectPhysics
	case "chem", "chemistry":
		return SubjectChemistry
	case "math", "maths", "mathematics":
		return SubjectMathematics
	default:
		return SubjectOther
	}
}

// ItemType distinguishes the response format an item expects.
type ItemType string

const (
	ItemSingleChoice ItemType = "single-choice"
	ItemNumeric      ItemType = "numeric"
)

// DifficultyTier is a coarse human-facing label for an item's b parameter.
type DifficultyTier string

const (
	DifficultyEasy   DifficultyTier = "easy"
	DifficultyMedium DifficultyTier = "medium"
	DifficultyHard   DifficultyTier = "hard"
)

// Item is a single calibrated test item. Items are immutable from the
// engine's point of view — owned and versioned by the catalog.
type Item struct {
	ID         string         `json:"id"`
	TopicID    string         `json:"topic_id"`
	Subject    Subject        `json:"subject"`
	Type       ItemType       `json:"type"`
	Difficulty DifficultyTier `json:"difficulty"`

	// 3PL parameters.
	B float64 `json:"b"` // difficulty, ∈ [0.4, 2.6]
	A float64 `json:"a"` // discrimination, > 0, typical [1.0, 2.0]
	C float64 `json:"c"` // guessing floor, ∈ [0, 1), typical {0.0, 0.25}
}

// NewItem constructs an Item and validates its IRT parameters, deriving
// Subject from TopicID if the caller left it empty.
func NewItem(id, topicID string, typ ItemType, difficulty DifficultyTier, b, a, c float64) (Item, error) {
	if a <= 0 {
		return Item{}, fmt.Errorf("%w: item %s discrimination a=%v must be > 0", ErrInvalidItemParams, id, a)
	}
	if c < 0 || c >= 1 {
		return Item{}, fmt.Errorf("%w: item %s guessing c=%v must be in [0,1)", ErrInvalidItemParams, id, c)
	}
	return Item{
		ID:         id,
		TopicID:    topicID,
		Subject:    SubjectFromTopicID(topicID),
		Type:       typ,
		Difficulty: difficulty,
		B:          b,
		A:          a,
		C:          c,
	}, nil
}
