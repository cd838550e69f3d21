package store

import (
	"context"
	"sync"
	"time"

	"github.com/tutu-network/jeevibe-iidp/internal/domain"
)

// MemoryRepository is an in-memory domain.Repository, used by engine tests
// that need deterministic, dependency-free storage instead of a live
// database.
type MemoryRepository struct {
	mu sync.Mutex

	items     map[string]domain.Item
	profiles  map[string]*domain.LearnerProfile
	responses []domain.Response
	quizzes   []domain.Quiz
	events    []domain.Event
}

// NewMemoryRepository returns an empty, ready-to-use fake repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		items:    make(map[string]domain.Item),
		profiles: make(map[string]*domain.LearnerProfile),
	}
}

// SeedItems loads a catalog into the fake for a test's setup phase.
func (m *MemoryRepository) SeedItems(items ...domain.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range items {
		m.items[item.ID] = item
	}
}

func (m *MemoryRepository) GetItem(_ context.Context, itemID string) (domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok {
		return domain.Item{}, domain.ErrItemNotFound
	}
	return item, nil
}

func (m *MemoryRepository) QueryItems(_ context.Context, q domain.ItemQuery) ([]domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Item
	for _, item := range m.items {
		if q.TopicID != "" && item.TopicID != q.TopicID {
			continue
		}
		if q.BMin != 0 && item.B < q.BMin {
			continue
		}
		if q.BMax != 0 && item.B > q.BMax {
			continue
		}
		if q.AMin != 0 && item.A < q.AMin {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (m *MemoryRepository) GetProfile(_ context.Context, learnerID string) (*domain.LearnerProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[learnerID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return cloneProfile(p), nil
}

func (m *MemoryRepository) PutProfile(_ context.Context, profile *domain.LearnerProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile.LearnerID] = cloneProfile(profile)
	return nil
}

func (m *MemoryRepository) MutateProfile(_ context.Context, learnerID string, patch func(*domain.LearnerProfile) error) (*domain.LearnerProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[learnerID]
	if !ok {
		p = domain.NewLearnerProfile(learnerID)
	}
	working := cloneProfile(p)
	if err := patch(working); err != nil {
		return nil, err
	}
	m.profiles[learnerID] = working
	return cloneProfile(working), nil
}

func (m *MemoryRepository) AppendResponse(_ context.Context, response domain.Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, response)
	return nil
}

func (m *MemoryRepository) RecentResponses(_ context.Context, learnerID string, windowDays int) ([]domain.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().AddDate(0, 0, -windowDays)

	var out []domain.Response
	for i := len(m.responses) - 1; i >= 0; i-- {
		r := m.responses[i]
		if r.LearnerID != learnerID || r.AnsweredAt.Before(cutoff) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *MemoryRepository) CorrectResponses(_ context.Context, learnerID string, since, until time.Time) ([]domain.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Response
	for i := len(m.responses) - 1; i >= 0; i-- {
		r := m.responses[i]
		if r.LearnerID != learnerID || !r.Correct {
			continue
		}
		if r.AnsweredAt.Before(since) || !r.AnsweredAt.Before(until) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *MemoryRepository) PutQuizMetadata(_ context.Context, quiz domain.Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quizzes = append(m.quizzes, quiz)
	return nil
}

func (m *MemoryRepository) ListQuizzes(_ context.Context, learnerID string, limit int) ([]domain.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Quiz
	for i := len(m.quizzes) - 1; i >= 0 && len(out) < limit; i-- {
		if m.quizzes[i].LearnerID == learnerID {
			out = append(out, m.quizzes[i])
		}
	}
	return out, nil
}

func (m *MemoryRepository) LogEvent(_ context.Context, event domain.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

// Events returns a copy of every event logged so far, for test assertions.
func (m *MemoryRepository) Events() []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Event, len(m.events))
	copy(out, m.events)
	return out
}

func cloneProfile(p *domain.LearnerProfile) *domain.LearnerProfile {
	clone := *p
	clone.Topics = make(map[string]domain.TopicAbility, len(p.Topics))
	for k, v := range p.Topics {
		if v.Accuracy != nil {
			acc := *v.Accuracy
			v.Accuracy = &acc
		}
		if v.LastUpdated != nil {
			t := *v.LastUpdated
			v.LastUpdated = &t
		}
		clone.Topics[k] = v
	}
	clone.TopicAttemptCounts = make(map[string]int, len(p.TopicAttemptCounts))
	for k, v := range p.TopicAttemptCounts {
		clone.TopicAttemptCounts[k] = v
	}
	clone.SubjectBalance = make(map[domain.Subject]float64, len(p.SubjectBalance))
	for k, v := range p.SubjectBalance {
		clone.SubjectBalance[k] = v
	}
	if p.AssessmentCompletedAt != nil {
		t := *p.AssessmentCompletedAt
		clone.AssessmentCompletedAt = &t
	}
	if p.PhaseSwitchedAtQuiz != nil {
		n := *p.PhaseSwitchedAtQuiz
		clone.PhaseSwitchedAtQuiz = &n
	}
	return &clone
}

var _ domain.Repository = (*MemoryRepository)(nil)
