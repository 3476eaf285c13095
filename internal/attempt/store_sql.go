package attempt

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edulane/edulane/internal/domain"
	"github.com/edulane/edulane/internal/errors"
)

const codeUniqueViolation = "23505"

type sqlStore struct {
	db *pgxpool.Pool
}

// NewSQLStore returns a Store backed by Postgres. The unique index on
// (user_id, quiz_id, attempt_number) is the backstop for racing submissions.
func NewSQLStore(db *pgxpool.Pool) Store {
	return &sqlStore{db: db}
}

func (s *sqlStore) CountAttempts(ctx context.Context, userID, quizID string) (int, error) {
	const stmt = `SELECT COUNT(*) FROM attempts WHERE user_id = $1 AND quiz_id = $2;`

	var n int
	if err := s.db.QueryRow(ctx, stmt, userID, quizID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}

	return n, nil
}

func (s *sqlStore) LatestAttempt(ctx context.Context, userID, quizID string) (*domain.Attempt, error) {
	const stmt = `
SELECT id, user_id, quiz_id, score, total_points, percentage, attempt_number,
       answers, time_taken, submitted_at, status
FROM attempts
WHERE user_id = $1 AND quiz_id = $2
ORDER BY attempt_number DESC
LIMIT 1;`

	a, err := scanAttempt(s.db.QueryRow(ctx, stmt, userID, quizID))
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest attempt: %w", err)
	}

	return &a, nil
}

func (s *sqlStore) LatestPerQuiz(ctx context.Context, userID string, quizIDs []string) (map[string]domain.Attempt, error) {
	const stmt = `
SELECT DISTINCT ON (quiz_id)
       id, user_id, quiz_id, score, total_points, percentage, attempt_number,
       answers, time_taken, submitted_at, status
FROM attempts
WHERE user_id = $1 AND quiz_id = ANY($2)
ORDER BY quiz_id, attempt_number DESC;`

	rows, err := s.db.Query(ctx, stmt, userID, quizIDs)
	if err != nil {
		return nil, fmt.Errorf("latest per quiz: %w", err)
	}

	attempts, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Attempt, error) {
		return scanAttempt(r)
	})
	if err != nil {
		return nil, fmt.Errorf("collect attempts: %w", err)
	}

	out := make(map[string]domain.Attempt, len(attempts))
	for _, a := range attempts {
		out[a.QuizID] = a
	}

	return out, nil
}

func (s *sqlStore) InsertAttempt(ctx context.Context, a domain.Attempt) error {
	const stmt = `
INSERT INTO attempts (id, user_id, quiz_id, score, total_points, percentage,
                      attempt_number, answers, time_taken, submitted_at, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);`

	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	_, err = s.db.Exec(ctx, stmt,
		a.ID, a.UserID, a.QuizID, a.Score, a.TotalPoints, a.Percentage,
		a.AttemptNumber, answers, a.TimeTaken, a.SubmittedAt, a.Status,
	)

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("attempt already recorded: user=%s quiz=%s attempt=%d", a.UserID, a.QuizID, a.AttemptNumber),
			errors.WithCause(err))
	}
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}

	return nil
}

type row interface {
	Scan(dest ...any) error
}

func scanAttempt(r row) (domain.Attempt, error) {
	var (
		a       domain.Attempt
		answers []byte
	)
	err := r.Scan(
		&a.ID, &a.UserID, &a.QuizID, &a.Score, &a.TotalPoints, &a.Percentage,
		&a.AttemptNumber, &answers, &a.TimeTaken, &a.SubmittedAt, &a.Status,
	)
	if err != nil {
		return domain.Attempt{}, err
	}

	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &a.Answers); err != nil {
			return domain.Attempt{}, fmt.Errorf("unmarshal answers: %w", err)
		}
	}

	return a, nil
}
