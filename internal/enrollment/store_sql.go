package enrollment

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

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
// (user_id, course_id) enforces one enrollment per pair.
func NewSQLStore(db *pgxpool.Pool) Store {
	return &sqlStore{db: db}
}

func (s *sqlStore) InsertEnrollment(ctx context.Context, e domain.Enrollment) error {
	const stmt = `
INSERT INTO enrollments (id, user_id, course_id, progress, status, grade, enrolled_at, last_accessed)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`

	_, err := s.db.Exec(ctx, stmt,
		e.ID, e.UserID, e.CourseID, e.Progress, e.Status, e.Grade, e.EnrolledAt, e.LastAccessed,
	)

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("already enrolled: user=%s course=%s", e.UserID, e.CourseID),
			errors.WithCause(err))
	}
	if err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}

	return nil
}

func (s *sqlStore) DeleteEnrollment(ctx context.Context, userID, courseID string) error {
	const stmt = `DELETE FROM enrollments WHERE user_id = $1 AND course_id = $2;`

	tag, err := s.db.Exec(ctx, stmt, userID, courseID)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.CodeNotFound,
			errors.WithMessagef("enrollment not found: user=%s course=%s", userID, courseID))
	}

	return nil
}

func (s *sqlStore) GetEnrollment(ctx context.Context, userID, courseID string) (domain.Enrollment, error) {
	const stmt = `
SELECT id, user_id, course_id, progress, status, grade, enrolled_at, last_accessed
FROM enrollments
WHERE user_id = $1 AND course_id = $2;`

	var e domain.Enrollment
	err := s.db.QueryRow(ctx, stmt, userID, courseID).Scan(
		&e.ID, &e.UserID, &e.CourseID, &e.Progress, &e.Status, &e.Grade, &e.EnrolledAt, &e.LastAccessed,
	)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return domain.Enrollment{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("enrollment not found: user=%s course=%s", userID, courseID))
	}
	if err != nil {
		return domain.Enrollment{}, fmt.Errorf("get enrollment: %w", err)
	}

	return e, nil
}

func (s *sqlStore) TouchAccessed(ctx context.Context, userID, courseID string, accessed time.Time) (domain.Enrollment, error) {
	const stmt = `
UPDATE enrollments
SET last_accessed = $3
WHERE user_id = $1 AND course_id = $2
RETURNING id, user_id, course_id, progress, status, grade, enrolled_at, last_accessed;`

	var e domain.Enrollment
	err := s.db.QueryRow(ctx, stmt, userID, courseID, accessed).Scan(
		&e.ID, &e.UserID, &e.CourseID, &e.Progress, &e.Status, &e.Grade, &e.EnrolledAt, &e.LastAccessed,
	)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return domain.Enrollment{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("enrollment not found: user=%s course=%s", userID, courseID))
	}
	if err != nil {
		return domain.Enrollment{}, fmt.Errorf("touch enrollment: %w", err)
	}

	return e, nil
}

func (s *sqlStore) CountByCourse(ctx context.Context, courseID string) (int, error) {
	const stmt = `SELECT COUNT(*) FROM enrollments WHERE course_id = $1;`

	var n int
	if err := s.db.QueryRow(ctx, stmt, courseID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}

	return n, nil
}

func (s *sqlStore) UpdateProgress(ctx context.Context, userID, courseID string, progress int, status domain.EnrollmentStatus, grade string, accessed time.Time) (domain.Enrollment, error) {
	const stmt = `
UPDATE enrollments
SET progress = $3, status = $4, grade = $5, last_accessed = $6
WHERE user_id = $1 AND course_id = $2
RETURNING id, user_id, course_id, progress, status, grade, enrolled_at, last_accessed;`

	var e domain.Enrollment
	err := s.db.QueryRow(ctx, stmt, userID, courseID, progress, status, grade, accessed).Scan(
		&e.ID, &e.UserID, &e.CourseID, &e.Progress, &e.Status, &e.Grade, &e.EnrolledAt, &e.LastAccessed,
	)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return domain.Enrollment{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("enrollment not found: user=%s course=%s", userID, courseID))
	}
	if err != nil {
		return domain.Enrollment{}, fmt.Errorf("update progress: %w", err)
	}

	return e, nil
}
