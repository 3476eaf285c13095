package progress

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/edulane/edulane/internal/attempt"
	"github.com/edulane/edulane/internal/catalog"
	"github.com/edulane/edulane/internal/domain"
	"github.com/edulane/edulane/internal/enrollment"
	"github.com/edulane/edulane/internal/event"
	"github.com/edulane/edulane/internal/metrics"
)

type Config struct {
	Catalog     *catalog.Service
	Ledger      *attempt.Service
	Enrollments *enrollment.Service
	EventBus    *event.Bus
}

// Service recomputes a learner's progress through a course and persists the
// result onto the enrollment. It is the only writer of the enrollment's
// progress, status and grade fields.
type Service struct {
	catalog     *catalog.Service
	ledger      *attempt.Service
	enrollments *enrollment.Service
	eb          *event.Bus
}

func NewService(c Config) *Service {
	return &Service{
		catalog:     c.Catalog,
		ledger:      c.Ledger,
		enrollments: c.Enrollments,
		eb:          c.EventBus,
	}
}

// Recompute derives progress, status and grade for the (user, course) pair
// from current state and writes them to the enrollment. Idempotent: calling
// it again with no state change produces the same result. Any storage error
// aborts the whole recompute before the enrollment write, so a stale but
// consistent record is never replaced with a partial one.
//
// Completable items are the course's lessons plus its published module-level
// and course-level quizzes. Lesson-level quizzes are not counted separately:
// they ride along with their lesson's single completed unit, but they do
// count toward the terminal grade average.
func (s *Service) Recompute(ctx context.Context, userID, courseID string) (domain.Enrollment, error) {
	lessons, err := s.catalog.LessonsInCourse(ctx, courseID)
	if err != nil {
		return domain.Enrollment{}, fmt.Errorf("lessons: %w", err)
	}

	scopes, err := s.catalog.ResolveQuizIDs(ctx, courseID, false)
	if err != nil {
		return domain.Enrollment{}, fmt.Errorf("resolve quizzes: %w", err)
	}

	totalItems := len(lessons) + len(scopes.ModuleLevel) + len(scopes.CourseLevel)

	var (
		progress int
		status   domain.EnrollmentStatus
		grade    string
	)
	if totalItems == 0 {
		// Trivial course: nothing to complete.
		progress, status, grade = 100, domain.StatusCompleted, domain.GradeComplete
	} else {
		completedLessons, err := s.catalog.CompletedLessonIDs(ctx, userID, courseID)
		if err != nil {
			return domain.Enrollment{}, fmt.Errorf("completed lessons: %w", err)
		}

		passedQuizzes, err := s.countPassedQuizzes(ctx, userID, scopes)
		if err != nil {
			return domain.Enrollment{}, err
		}

		completed := len(completedLessons) + passedQuizzes

		progress = roundPercent(completed, totalItems)
		if progress >= 100 {
			progress = 100
			status = domain.StatusCompleted
			if grade, err = s.terminalGrade(ctx, userID, scopes); err != nil {
				return domain.Enrollment{}, err
			}
		} else {
			status = domain.StatusEnrolled
			grade = domain.GradeIncomplete
		}
	}

	e, err := s.enrollments.SetProgress(ctx, userID, courseID, progress, status, grade)
	if err != nil {
		return domain.Enrollment{}, err
	}

	metrics.ProgressRecomputes.Inc()
	slog.InfoContext(ctx, "progress: recomputed",
		"user", userID,
		"course", courseID,
		"progress", e.Progress,
		"status", e.Status,
		"grade", e.Grade,
	)

	if s.eb != nil {
		s.eb.Publish(ctx, domain.EventProgressUpdated{Enrollment: e})
	}

	return e, nil
}

// countPassedQuizzes counts the module- and course-level quizzes whose
// latest attempt passed. Lesson-level quizzes are deliberately excluded:
// they are bundled under their lesson's completed unit.
func (s *Service) countPassedQuizzes(ctx context.Context, userID string, scopes domain.QuizScopeIDs) (int, error) {
	quizIDs := make([]string, 0, len(scopes.ModuleLevel)+len(scopes.CourseLevel))
	quizIDs = append(quizIDs, scopes.ModuleLevel...)
	quizIDs = append(quizIDs, scopes.CourseLevel...)

	latest, err := s.ledger.LatestPerQuiz(ctx, userID, quizIDs)
	if err != nil {
		return 0, fmt.Errorf("latest attempts: %w", err)
	}

	passed := 0
	for _, id := range quizIDs {
		if a, ok := latest[id]; ok && a.Status == domain.AttemptPassed {
			passed++
		}
	}

	return passed, nil
}

// terminalGrade computes the completion grade once progress hits 100%:
// the average of latest-attempt percentages over every quiz in the course
// (all scopes), on a 0-10 scale with one decimal. A latest attempt that
// regressed to failed contributes 0, even if an earlier attempt passed.
func (s *Service) terminalGrade(ctx context.Context, userID string, scopes domain.QuizScopeIDs) (string, error) {
	quizIDs := scopes.All()
	if len(quizIDs) == 0 {
		return domain.GradeComplete, nil
	}

	latest, err := s.ledger.LatestPerQuiz(ctx, userID, quizIDs)
	if err != nil {
		return "", fmt.Errorf("latest attempts: %w", err)
	}

	sum := decimal.Zero
	for _, id := range quizIDs {
		if a, ok := latest[id]; ok && a.Status == domain.AttemptPassed {
			sum = sum.Add(decimal.NewFromInt(int64(a.Percentage)))
		}
	}

	avg := sum.Div(decimal.NewFromInt(int64(len(quizIDs))))
	return avg.Div(decimal.NewFromInt(10)).StringFixed(1), nil
}

func roundPercent(completed, total int) int {
	return int(decimal.NewFromInt(int64(completed * 100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(0).
		IntPart())
}
