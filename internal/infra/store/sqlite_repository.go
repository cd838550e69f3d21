package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/tutu-network/jeevibe-iidp/internal/domain"
	"github.com/tutu-network/jeevibe-iidp/internal/infra/retry"
)

// SQLiteRepository implements domain.Repository over a DB handle.
type SQLiteRepository struct {
	db *DB
}

// NewSQLiteRepository wraps an already-open DB as a domain.Repository.
func NewSQLiteRepository(db *DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// conflictErr marks a version-mismatch write as retryable, per the §7
// Conflict error class.
type conflictErr struct{ err error }

func (e conflictErr) Error() string   { return e.err.Error() }
func (e conflictErr) Unwrap() error   { return e.err }
func (e conflictErr) Retryable() bool { return true }

const timeLayout = time.RFC3339Nano

func (r *SQLiteRepository) GetItem(ctx context.Context, itemID string) (domain.Item, error) {
	row := r.db.conn.QueryRowContext(ctx, `
		SELECT id, topic_id, subject, type, difficulty, b, a, c
		FROM items WHERE id = ?`, itemID)

	var item domain.Item
	var subject, itemType, difficulty string
	err := row.Scan(&item.ID, &item.TopicID, &subject, &itemType, &difficulty, &item.B, &item.A, &item.C)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, domain.ErrItemNotFound
	}
	if err != nil {
		return domain.Item{}, err
	}
	item.Subject = domain.Subject(subject)
	item.Type = domain.ItemType(itemType)
	item.Difficulty = domain.DifficultyTier(difficulty)
	return item, nil
}

func (r *SQLiteRepository) QueryItems(ctx context.Context, q domain.ItemQuery) ([]domain.Item, error) {
	query := `SELECT id, topic_id, subject, type, difficulty, b, a, c FROM items WHERE 1=1`
	var args []any
	if q.TopicID != "" {
		query += ` AND topic_id = ?`
		args = append(args, q.TopicID)
	}
	if q.BMin != 0 {
		query += ` AND b >= ?`
		args = append(args, q.BMin)
	}
	if q.BMax != 0 {
		query += ` AND b <= ?`
		args = append(args, q.BMax)
	}
	if q.AMin != 0 {
		query += ` AND a >= ?`
		args = append(args, q.AMin)
	}

	rows, err := r.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Item
	for rows.Next() {
		var item domain.Item
		var subject, itemType, difficulty string
		if err := rows.Scan(&item.ID, &item.TopicID, &subject, &itemType, &difficulty, &item.B, &item.A, &item.C); err != nil {
			return nil, err
		}
		item.Subject = domain.Subject(subject)
		item.Type = domain.ItemType(itemType)
		item.Difficulty = domain.DifficultyTier(difficulty)
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) PutItem(ctx context.Context, item domain.Item) error {
	_, err := r.db.conn.ExecContext(ctx, `
		INSERT INTO items (id, topic_id, subject, type, difficulty, b, a, c)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			topic_id = excluded.topic_id, subject = excluded.subject, type = excluded.type,
			difficulty = excluded.difficulty, b = excluded.b, a = excluded.a, c = excluded.c
	`, item.ID, item.TopicID, string(item.Subject), string(item.Type), string(item.Difficulty), item.B, item.A, item.C)
	return err
}

func (r *SQLiteRepository) GetProfile(ctx context.Context, learnerID string) (*domain.LearnerProfile, error) {
	profile, _, err := r.loadProfile(ctx, r.db.conn, learnerID)
	return profile, err
}

// loadProfile loads a profile plus its storage version, against any
// *sql.DB or *sql.Tx (querier).
func (r *SQLiteRepository) loadProfile(ctx context.Context, q querier, learnerID string) (*domain.LearnerProfile, int, error) {
	row := q.QueryRowContext(ctx, `
		SELECT overall_theta, completed_quiz_count, assessment_completed_at, learning_phase,
		       phase_switched_at_quiz, topic_attempt_counts_json, subject_balance_json,
		       total_questions_solved, version
		FROM learner_profiles WHERE learner_id = ?`, learnerID)

	var (
		assessmentCompletedAt sql.NullString
		learningPhase         string
		phaseSwitchedAtQuiz   sql.NullInt64
		attemptsJSON          string
		balanceJSON           string
		version               int
	)
	profile := domain.NewLearnerProfile(learnerID)
	err := row.Scan(&profile.OverallTheta, &profile.CompletedQuizCount, &assessmentCompletedAt, &learningPhase,
		&phaseSwitchedAtQuiz, &attemptsJSON, &balanceJSON, &profile.TotalQuestionsSolved, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, 0, err
	}

	profile.LearningPhase = domain.LearningPhase(learningPhase)
	if assessmentCompletedAt.Valid {
		t, err := time.Parse(timeLayout, assessmentCompletedAt.String)
		if err != nil {
			return nil, 0, err
		}
		profile.AssessmentCompletedAt = &t
	}
	if phaseSwitchedAtQuiz.Valid {
		n := int(phaseSwitchedAtQuiz.Int64)
		profile.PhaseSwitchedAtQuiz = &n
	}
	if err := json.Unmarshal([]byte(attemptsJSON), &profile.TopicAttemptCounts); err != nil {
		return nil, 0, err
	}
	if err := json.Unmarshal([]byte(balanceJSON), &profile.SubjectBalance); err != nil {
		return nil, 0, err
	}

	abilities, err := r.loadAbilities(ctx, q, learnerID)
	if err != nil {
		return nil, 0, err
	}
	profile.Topics = abilities

	return profile, version, nil
}

func (r *SQLiteRepository) loadAbilities(ctx context.Context, q querier, learnerID string) (map[string]domain.TopicAbility, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT topic_id, theta, se, attempts, accuracy, last_updated
		FROM topic_abilities WHERE learner_id = ?`, learnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]domain.TopicAbility)
	for rows.Next() {
		var ta domain.TopicAbility
		var accuracy sql.NullFloat64
		var lastUpdated sql.NullString
		if err := rows.Scan(&ta.TopicID, &ta.Theta, &ta.SE, &ta.Attempts, &accuracy, &lastUpdated); err != nil {
			return nil, err
		}
		if accuracy.Valid {
			v := accuracy.Float64
			ta.Accuracy = &v
		}
		if lastUpdated.Valid {
			t, err := time.Parse(timeLayout, lastUpdated.String)
			if err != nil {
				return nil, err
			}
			ta.LastUpdated = &t
		}
		out[ta.TopicID] = ta
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) PutProfile(ctx context.Context, profile *domain.LearnerProfile) error {
	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := r.writeProfile(ctx, tx, profile, 0); err != nil {
		return err
	}
	return tx.Commit()
}

// writeProfile upserts the profile row (bumping version) and replaces its
// topic_abilities rows wholesale — simpler and cheap at this table's size
// than a diff-based update.
func (r *SQLiteRepository) writeProfile(ctx context.Context, tx *sql.Tx, profile *domain.LearnerProfile, expectedVersion int) error {
	attemptsJSON, err := json.Marshal(profile.TopicAttemptCounts)
	if err != nil {
		return err
	}
	balanceJSON, err := json.Marshal(profile.SubjectBalance)
	if err != nil {
		return err
	}
	var assessmentCompletedAt any
	if profile.AssessmentCompletedAt != nil {
		assessmentCompletedAt = profile.AssessmentCompletedAt.Format(timeLayout)
	}
	var phaseSwitchedAtQuiz any
	if profile.PhaseSwitchedAtQuiz != nil {
		phaseSwitchedAtQuiz = *profile.PhaseSwitchedAtQuiz
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO learner_profiles (learner_id, overall_theta, completed_quiz_count, assessment_completed_at,
			learning_phase, phase_switched_at_quiz, topic_attempt_counts_json, subject_balance_json,
			total_questions_solved, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(learner_id) DO UPDATE SET
			overall_theta = excluded.overall_theta,
			completed_quiz_count = excluded.completed_quiz_count,
			assessment_completed_at = excluded.assessment_completed_at,
			learning_phase = excluded.learning_phase,
			phase_switched_at_quiz = excluded.phase_switched_at_quiz,
			topic_attempt_counts_json = excluded.topic_attempt_counts_json,
			subject_balance_json = excluded.subject_balance_json,
			total_questions_solved = excluded.total_questions_solved,
			version = learner_profiles.version + 1
		WHERE ? = 0 OR learner_profiles.version = ?
	`, profile.LearnerID, profile.OverallTheta, profile.CompletedQuizCount, assessmentCompletedAt,
		string(profile.LearningPhase), phaseSwitchedAtQuiz, string(attemptsJSON), string(balanceJSON),
		profile.TotalQuestionsSolved, expectedVersion, expectedVersion)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return conflictErr{domain.ErrProfileConflict}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM topic_abilities WHERE learner_id = ?`, profile.LearnerID); err != nil {
		return err
	}
	for _, ta := range profile.Topics {
		var accuracy any
		if ta.Accuracy != nil {
			accuracy = *ta.Accuracy
		}
		var lastUpdated any
		if ta.LastUpdated != nil {
			lastUpdated = ta.LastUpdated.Format(timeLayout)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO topic_abilities (learner_id, topic_id, theta, se, attempts, accuracy, last_updated)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, profile.LearnerID, ta.TopicID, ta.Theta, ta.SE, ta.Attempts, accuracy, lastUpdated)
		if err != nil {
			return err
		}
	}
	return nil
}

// MutateProfile applies patch under an optimistic compare-and-set on the
// profile's version column, retrying through internal/infra/retry on
// conflict.
func (r *SQLiteRepository) MutateProfile(ctx context.Context, learnerID string, patch func(*domain.LearnerProfile) error) (*domain.LearnerProfile, error) {
	var result *domain.LearnerProfile
	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
		tx, err := r.db.conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		profile, version, err := r.loadProfile(ctx, tx, learnerID)
		if errors.Is(err, domain.ErrProfileNotFound) {
			profile, version = domain.NewLearnerProfile(learnerID), 0
		} else if err != nil {
			return err
		}
		if err := patch(profile); err != nil {
			return err
		}
		if err := r.writeProfile(ctx, tx, profile, version); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		result = profile
		return nil
	})
	return result, err
}

func (r *SQLiteRepository) AppendResponse(ctx context.Context, response domain.Response) error {
	correct := 0
	if response.Correct {
		correct = 1
	}
	_, err := r.db.conn.ExecContext(ctx, `
		INSERT INTO responses (id, learner_id, item_id, topic_id, correct, elapsed_seconds,
			theta_before, theta_after, delta_theta, se_before, se_after, answered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, response.ID, response.LearnerID, response.ItemID, response.TopicID, correct, response.ElapsedSeconds,
		response.ThetaBefore, response.ThetaAfter, response.DeltaTheta, response.SEBefore, response.SEAfter,
		response.AnsweredAt.Format(timeLayout))
	return err
}

func (r *SQLiteRepository) RecentResponses(ctx context.Context, learnerID string, windowDays int) ([]domain.Response, error) {
	cutoff := time.Now().AddDate(0, 0, -windowDays).Format(timeLayout)
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT id, learner_id, item_id, topic_id, correct, elapsed_seconds,
		       theta_before, theta_after, delta_theta, se_before, se_after, answered_at
		FROM responses WHERE learner_id = ? AND answered_at >= ?
		ORDER BY answered_at DESC
	`, learnerID, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanResponses(rows)
}

func (r *SQLiteRepository) CorrectResponses(ctx context.Context, learnerID string, since, until time.Time) ([]domain.Response, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT id, learner_id, item_id, topic_id, correct, elapsed_seconds,
		       theta_before, theta_after, delta_theta, se_before, se_after, answered_at
		FROM responses WHERE learner_id = ? AND correct = 1 AND answered_at >= ? AND answered_at < ?
		ORDER BY answered_at DESC
	`, learnerID, since.Format(timeLayout), until.Format(timeLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanResponses(rows)
}

func scanResponses(rows *sql.Rows) ([]domain.Response, error) {
	var out []domain.Response
	for rows.Next() {
		var r domain.Response
		var correct int
		var answeredAt string
		if err := rows.Scan(&r.ID, &r.LearnerID, &r.ItemID, &r.TopicID, &correct, &r.ElapsedSeconds,
			&r.ThetaBefore, &r.ThetaAfter, &r.DeltaTheta, &r.SEBefore, &r.SEAfter, &answeredAt); err != nil {
			return nil, err
		}
		r.Correct = correct == 1
		t, err := time.Parse(timeLayout, answeredAt)
		if err != nil {
			return nil, err
		}
		r.AnsweredAt = t
		out = append(out, r)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) PutQuizMetadata(ctx context.Context, quiz domain.Quiz) error {
	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	topicsJSON, err := json.Marshal(quiz.Topics)
	if err != nil {
		return err
	}
	shortQuiz := 0
	if quiz.ShortQuiz {
		shortQuiz = 1
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO quizzes (id, learner_id, number, phase, topics_json, generated_at, short_quiz)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, quiz.ID, quiz.LearnerID, quiz.Number, string(quiz.Phase), string(topicsJSON),
		quiz.GeneratedAt.Format(timeLayout), shortQuiz)
	if err != nil {
		return err
	}

	for _, item := range quiz.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO quiz_items (quiz_id, position, item_id, topic_id) VALUES (?, ?, ?, ?)
		`, quiz.ID, item.Position, item.ItemID, item.TopicID)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) ListQuizzes(ctx context.Context, learnerID string, limit int) ([]domain.Quiz, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT id, learner_id, number, phase, topics_json, generated_at, short_quiz
		FROM quizzes WHERE learner_id = ? ORDER BY number DESC LIMIT ?
	`, learnerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Quiz
	for rows.Next() {
		var q domain.Quiz
		var phase, topicsJSON, generatedAt string
		var shortQuiz int
		if err := rows.Scan(&q.ID, &q.LearnerID, &q.Number, &phase, &topicsJSON, &generatedAt, &shortQuiz); err != nil {
			return nil, err
		}
		q.Phase = domain.LearningPhase(phase)
		q.ShortQuiz = shortQuiz == 1
		if err := json.Unmarshal([]byte(topicsJSON), &q.Topics); err != nil {
			return nil, err
		}
		t, err := time.Parse(timeLayout, generatedAt)
		if err != nil {
			return nil, err
		}
		q.GeneratedAt = t

		items, err := r.loadQuizItems(ctx, q.ID)
		if err != nil {
			return nil, err
		}
		q.Items = items
		out = append(out, q)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadQuizItems(ctx context.Context, quizID string) ([]domain.QuizItem, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT position, item_id, topic_id FROM quiz_items WHERE quiz_id = ? ORDER BY position
	`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.QuizItem
	for rows.Next() {
		var item domain.QuizItem
		if err := rows.Scan(&item.Position, &item.ItemID, &item.TopicID); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) LogEvent(ctx context.Context, event domain.Event) {
	attrsJSON, err := json.Marshal(event.Attrs)
	if err != nil {
		return
	}
	_, _ = r.db.conn.ExecContext(ctx, `
		INSERT INTO events (kind, learner_id, at, attrs_json) VALUES (?, ?, ?, ?)
	`, string(event.Kind), event.LearnerID, event.At.Format(timeLayout), string(attrsJSON))
}

// querier is satisfied by both *sql.DB and *sql.Tx, letting loadProfile
// and loadAbilities run against either a plain connection or a transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

var _ domain.Repository = (*SQLiteRepository)(nil)
