package catalog

import (
	"context"

	"github.com/edulane/edulane/internal/domain"
)

// Store is the read side of the course hierarchy plus the two mutations this
// service owns: lesson completion membership and bulk quiz publication.
type Store interface {
	GetCourse(ctx context.Context, id string) (domain.Course, error)
	GetModule(ctx context.Context, id string) (domain.Module, error)
	GetLesson(ctx context.Context, id string) (domain.Lesson, error)
	ListModules(ctx context.Context, courseID string) ([]domain.Module, error)
	ListLessons(ctx context.Context, moduleIDs []string) ([]domain.Lesson, error)

	GetQuiz(ctx context.Context, id string) (domain.Quiz, error)
	CourseQuizIDs(ctx context.Context, courseID string, publishedOnly bool) ([]string, error)
	ModuleQuizIDs(ctx context.Context, moduleIDs []string, publishedOnly bool) ([]string, error)
	LessonQuizIDs(ctx context.Context, lessonIDs []string, publishedOnly bool) ([]string, error)
	SetQuizzesPublished(ctx context.Context, courseID string, published bool) error

	MarkLessonComplete(ctx context.Context, lessonID, userID string) error
	MarkLessonIncomplete(ctx context.Context, lessonID, userID string) error
	CompletedLessonIDs(ctx context.Context, userID string, lessonIDs []string) ([]string, error)
}
