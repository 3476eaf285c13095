package catalog

import (
	"context"
	"fmt"

	"github.com/edulane/edulane/internal/domain"
	"github.com/edulane/edulane/internal/errors"
)

type Config struct {
	Store Store
}

// Service exposes the course hierarchy to the progress and grading engine:
// quiz scope resolution, lesson completion toggles and the publication hook
// invoked on course approval.
type Service struct {
	store Store
}

func NewService(c Config) *Service {
	return &Service{store: c.Store}
}

func (s *Service) GetCourse(ctx context.Context, id string) (domain.Course, error) {
	return s.store.GetCourse(ctx, id)
}

func (s *Service) GetModule(ctx context.Context, id string) (domain.Module, error) {
	return s.store.GetModule(ctx, id)
}

func (s *Service) GetLesson(ctx context.Context, id string) (domain.Lesson, error) {
	return s.store.GetLesson(ctx, id)
}

// ResolveQuizIDs enumerates every quiz reachable under the course, split by
// the scope it attaches to. A missing course or empty hierarchy resolves to
// empty scopes rather than an error; validating the course is the caller's
// concern. Unpublished quizzes are included only when includeUnpublished is
// set (instructor/admin views).
func (s *Service) ResolveQuizIDs(ctx context.Context, courseID string, includeUnpublished bool) (domain.QuizScopeIDs, error) {
	publishedOnly := !includeUnpublished

	modules, err := s.store.ListModules(ctx, courseID)
	if err != nil {
		return domain.QuizScopeIDs{}, fmt.Errorf("list modules: %w", err)
	}

	moduleIDs := make([]string, 0, len(modules))
	for _, m := range modules {
		moduleIDs = append(moduleIDs, m.ID)
	}

	lessons, err := s.store.ListLessons(ctx, moduleIDs)
	if err != nil {
		return domain.QuizScopeIDs{}, fmt.Errorf("list lessons: %w", err)
	}

	lessonIDs := make([]string, 0, len(lessons))
	for _, l := range lessons {
		lessonIDs = append(lessonIDs, l.ID)
	}

	var scopes domain.QuizScopeIDs
	if scopes.CourseLevel, err = s.store.CourseQuizIDs(ctx, courseID, publishedOnly); err != nil {
		return domain.QuizScopeIDs{}, fmt.Errorf("course quizzes: %w", err)
	}
	if scopes.ModuleLevel, err = s.store.ModuleQuizIDs(ctx, moduleIDs, publishedOnly); err != nil {
		return domain.QuizScopeIDs{}, fmt.Errorf("module quizzes: %w", err)
	}
	if scopes.LessonLevel, err = s.store.LessonQuizIDs(ctx, lessonIDs, publishedOnly); err != nil {
		return domain.QuizScopeIDs{}, fmt.Errorf("lesson quizzes: %w", err)
	}

	return scopes, nil
}

// LessonsInCourse returns all lessons under the course across its modules.
func (s *Service) LessonsInCourse(ctx context.Context, courseID string) ([]domain.Lesson, error) {
	modules, err := s.store.ListModules(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}

	moduleIDs := make([]string, 0, len(modules))
	for _, m := range modules {
		moduleIDs = append(moduleIDs, m.ID)
	}

	return s.store.ListLessons(ctx, moduleIDs)
}

// CompletedLessonIDs returns the subset of the course's lessons the user has
// marked complete.
func (s *Service) CompletedLessonIDs(ctx context.Context, userID, courseID string) ([]string, error) {
	lessons, err := s.LessonsInCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	lessonIDs := make([]string, 0, len(lessons))
	for _, l := range lessons {
		lessonIDs = append(lessonIDs, l.ID)
	}

	return s.store.CompletedLessonIDs(ctx, userID, lessonIDs)
}

// GetPublishedQuiz returns the quiz with its questions. Unpublished quizzes
// are reported as not found: learners must not be able to distinguish an
// unpublished quiz from a missing one.
func (s *Service) GetPublishedQuiz(ctx context.Context, id string) (domain.Quiz, error) {
	q, err := s.store.GetQuiz(ctx, id)
	if err != nil {
		return domain.Quiz{}, err
	}

	if !q.IsPublished {
		return domain.Quiz{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("quiz not found: id=%s", id))
	}

	return q, nil
}

// GetQuiz returns the quiz regardless of publish state, for instructor and
// admin callers.
func (s *Service) GetQuiz(ctx context.Context, id string) (domain.Quiz, error) {
	return s.store.GetQuiz(ctx, id)
}

// CourseIDForQuiz resolves the course owning a quiz by walking up from the
// quiz's scope: directly for course scope, module -> course for module scope,
// lesson -> module -> course for lesson scope.
func (s *Service) CourseIDForQuiz(ctx context.Context, quizID string) (string, error) {
	q, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return "", err
	}

	switch {
	case q.CourseID != "":
		return q.CourseID, nil

	case q.ModuleID != "":
		m, err := s.store.GetModule(ctx, q.ModuleID)
		if err != nil {
			return "", fmt.Errorf("module for quiz %s: %w", quizID, err)
		}
		return m.CourseID, nil

	case q.LessonID != "":
		l, err := s.store.GetLesson(ctx, q.LessonID)
		if err != nil {
			return "", fmt.Errorf("lesson for quiz %s: %w", quizID, err)
		}
		m, err := s.store.GetModule(ctx, l.ModuleID)
		if err != nil {
			return "", fmt.Errorf("module for lesson %s: %w", l.ID, err)
		}
		return m.CourseID, nil
	}

	return "", errors.New(errors.CodeInternal,
		errors.WithMessagef("quiz has no scope: id=%s", quizID))
}

// MarkComplete adds the user to the lesson's completed set. Idempotent.
func (s *Service) MarkComplete(ctx context.Context, lessonID, userID string) error {
	return s.store.MarkLessonComplete(ctx, lessonID, userID)
}

// MarkIncomplete removes the user from the lesson's completed set. Idempotent.
func (s *Service) MarkIncomplete(ctx context.Context, lessonID, userID string) error {
	return s.store.MarkLessonIncomplete(ctx, lessonID, userID)
}

// SetCoursePublished flips is_published on every quiz under the course, at
// all three scopes. Invoked by the admin approval flow.
func (s *Service) SetCoursePublished(ctx context.Context, courseID string, published bool) error {
	if _, err := s.store.GetCourse(ctx, courseID); err != nil {
		return err
	}

	return s.store.SetQuizzesPublished(ctx, courseID, published)
}
