package catalog

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edulane/edulane/internal/domain"
	"github.com/edulane/edulane/internal/errors"
)

const codeForeignKeyViolation = "23503"

type sqlStore struct {
	db *pgxpool.Pool
}

// NewSQLStore returns a Store backed by Postgres.
func NewSQLStore(db *pgxpool.Pool) Store {
	return &sqlStore{db: db}
}

func (s *sqlStore) GetCourse(ctx context.Context, id string) (domain.Course, error) {
	const stmt = `SELECT id, title, is_approved FROM courses WHERE id = $1;`

	var c domain.Course
	err := s.db.QueryRow(ctx, stmt, id).Scan(&c.ID, &c.Title, &c.IsApproved)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return domain.Course{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("course not found: id=%s", id))
	}
	if err != nil {
		return domain.Course{}, fmt.Errorf("get course: %w", err)
	}

	return c, nil
}

func (s *sqlStore) GetModule(ctx context.Context, id string) (domain.Module, error) {
	const stmt = `SELECT id, course_id, title, display_order FROM modules WHERE id = $1;`

	var m domain.Module
	err := s.db.QueryRow(ctx, stmt, id).Scan(&m.ID, &m.CourseID, &m.Title, &m.Order)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return domain.Module{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("module not found: id=%s", id))
	}
	if err != nil {
		return domain.Module{}, fmt.Errorf("get module: %w", err)
	}

	return m, nil
}

func (s *sqlStore) GetLesson(ctx context.Context, id string) (domain.Lesson, error) {
	const stmt = `SELECT id, module_id, title, display_order FROM lessons WHERE id = $1;`

	var l domain.Lesson
	err := s.db.QueryRow(ctx, stmt, id).Scan(&l.ID, &l.ModuleID, &l.Title, &l.Order)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return domain.Lesson{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("lesson not found: id=%s", id))
	}
	if err != nil {
		return domain.Lesson{}, fmt.Errorf("get lesson: %w", err)
	}

	return l, nil
}

func (s *sqlStore) ListModules(ctx context.Context, courseID string) ([]domain.Module, error) {
	const stmt = `
SELECT id, course_id, title, display_order
FROM modules
WHERE course_id = $1
ORDER BY display_order;`

	rows, err := s.db.Query(ctx, stmt, courseID)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}

	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Module, error) {
		var m domain.Module
		err := r.Scan(&m.ID, &m.CourseID, &m.Title, &m.Order)
		return m, err
	})
}

func (s *sqlStore) ListLessons(ctx context.Context, moduleIDs []string) ([]domain.Lesson, error) {
	if len(moduleIDs) == 0 {
		return nil, nil
	}

	const stmt = `
SELECT id, module_id, title, display_order
FROM lessons
WHERE module_id = ANY($1)
ORDER BY module_id, display_order;`

	rows, err := s.db.Query(ctx, stmt, moduleIDs)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}

	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Lesson, error) {
		var l domain.Lesson
		err := r.Scan(&l.ID, &l.ModuleID, &l.Title, &l.Order)
		return l, err
	})
}

func (s *sqlStore) GetQuiz(ctx context.Context, id string) (domain.Quiz, error) {
	const quizStmt = `
SELECT id, COALESCE(course_id, ''), COALESCE(module_id, ''), COALESCE(lesson_id, ''),
       title, time_limit, passing_score, attempts_allowed,
       randomize_questions, show_correct_answers, is_published
FROM quizzes
WHERE id = $1;`

	var q domain.Quiz
	err := s.db.QueryRow(ctx, quizStmt, id).Scan(
		&q.ID, &q.CourseID, &q.ModuleID, &q.LessonID,
		&q.Title, &q.TimeLimit, &q.PassingScore, &q.AttemptsAllowed,
		&q.RandomizeQuestions, &q.ShowCorrectAnswers, &q.IsPublished,
	)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("quiz not found: id=%s", id))
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("get quiz: %w", err)
	}

	const questionStmt = `
SELECT id, quiz_id, text, type, options, correct_answer, points, display_order
FROM questions
WHERE quiz_id = $1
ORDER BY display_order;`

	rows, err := s.db.Query(ctx, questionStmt, id)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("list questions: %w", err)
	}

	q.Questions, err = pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Question, error) {
		var qu domain.Question
		err := r.Scan(&qu.ID, &qu.QuizID, &qu.Text, &qu.Type, &qu.Options, &qu.CorrectAnswer, &qu.Points, &qu.Order)
		return qu, err
	})
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("collect questions: %w", err)
	}

	return q, nil
}

func (s *sqlStore) CourseQuizIDs(ctx context.Context, courseID string, publishedOnly bool) ([]string, error) {
	const stmt = `
SELECT id FROM quizzes
WHERE course_id = $1 AND module_id IS NULL AND lesson_id IS NULL
  AND (NOT $2 OR is_published);`

	return s.quizIDs(ctx, stmt, courseID, publishedOnly)
}

func (s *sqlStore) ModuleQuizIDs(ctx context.Context, moduleIDs []string, publishedOnly bool) ([]string, error) {
	if len(moduleIDs) == 0 {
		return nil, nil
	}

	const stmt = `
SELECT id FROM quizzes
WHERE module_id = ANY($1) AND lesson_id IS NULL
  AND (NOT $2 OR is_published);`

	return s.quizIDs(ctx, stmt, moduleIDs, publishedOnly)
}

func (s *sqlStore) LessonQuizIDs(ctx context.Context, lessonIDs []string, publishedOnly bool) ([]string, error) {
	if len(lessonIDs) == 0 {
		return nil, nil
	}

	const stmt = `
SELECT id FROM quizzes
WHERE lesson_id = ANY($1)
  AND (NOT $2 OR is_published);`

	return s.quizIDs(ctx, stmt, lessonIDs, publishedOnly)
}

func (s *sqlStore) quizIDs(ctx context.Context, stmt string, scope any, publishedOnly bool) ([]string, error) {
	rows, err := s.db.Query(ctx, stmt, scope, publishedOnly)
	if err != nil {
		return nil, fmt.Errorf("quiz ids: %w", err)
	}

	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (string, error) {
		var id string
		err := r.Scan(&id)
		return id, err
	})
}

func (s *sqlStore) SetQuizzesPublished(ctx context.Context, courseID string, published bool) error {
	const stmt = `
UPDATE quizzes SET is_published = $2
WHERE course_id = $1
   OR module_id IN (SELECT id FROM modules WHERE course_id = $1)
   OR lesson_id IN (
        SELECT l.id FROM lessons l
        JOIN modules m ON l.module_id = m.id
        WHERE m.course_id = $1
   );`

	if _, err := s.db.Exec(ctx, stmt, courseID, published); err != nil {
		return fmt.Errorf("set quizzes published: %w", err)
	}

	return nil
}

func (s *sqlStore) MarkLessonComplete(ctx context.Context, lessonID, userID string) error {
	const stmt = `
INSERT INTO lesson_completions (lesson_id, user_id, completed_at)
VALUES ($1, $2, now())
ON CONFLICT (lesson_id, user_id) DO NOTHING;`

	_, err := s.db.Exec(ctx, stmt, lessonID, userID)

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation {
		return errors.New(errors.CodeNotFound,
			errors.WithMessagef("lesson not found: id=%s", lessonID))
	}
	if err != nil {
		return fmt.Errorf("mark lesson complete: %w", err)
	}

	return nil
}

func (s *sqlStore) MarkLessonIncomplete(ctx context.Context, lessonID, userID string) error {
	const stmt = `DELETE FROM lesson_completions WHERE lesson_id = $1 AND user_id = $2;`

	if _, err := s.db.Exec(ctx, stmt, lessonID, userID); err != nil {
		return fmt.Errorf("mark lesson incomplete: %w", err)
	}

	return nil
}

func (s *sqlStore) CompletedLessonIDs(ctx context.Context, userID string, lessonIDs []string) ([]string, error) {
	if len(lessonIDs) == 0 {
		return nil, nil
	}

	const stmt = `
SELECT lesson_id FROM lesson_completions
WHERE user_id = $1 AND lesson_id = ANY($2);`

	rows, err := s.db.Query(ctx, stmt, userID, lessonIDs)
	if err != nil {
		return nil, fmt.Errorf("completed lessons: %w", err)
	}

	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (string, error) {
		var id string
		err := r.Scan(&id)
		return id, err
	})
}
