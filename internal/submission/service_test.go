package submission_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulane/edulane/internal/attempt"
	"github.com/edulane/edulane/internal/catalog"
	"github.com/edulane/edulane/internal/domain"
	"github.com/edulane/edulane/internal/enrollment"
	"github.com/edulane/edulane/internal/errors"
	"github.com/edulane/edulane/internal/event"
	"github.com/edulane/edulane/internal/grade"
	"github.com/edulane/edulane/internal/progress"
	"github.com/edulane/edulane/internal/submission"
)

type fixture struct {
	catalog *catalog.MemoryStore
	ledger  *attempt.MemoryStore
	enr     *enrollment.Service
	svc     *submission.Service
}

func makeFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		catalog: catalog.NewMemoryStore(),
		ledger:  attempt.NewMemoryStore(),
	}

	cat := catalog.NewService(catalog.Config{Store: f.catalog})
	led := attempt.NewService(attempt.Config{Store: f.ledger})
	f.enr = enrollment.NewService(enrollment.Config{Store: enrollment.NewMemoryStore()})

	grades := grade.NewService(grade.Config{Catalog: cat, Ledger: led})
	prog := progress.NewService(progress.Config{
		Catalog:     cat,
		Ledger:      led,
		Enrollments: f.enr,
		EventBus:    event.NewBus(),
	})

	f.svc = submission.NewService(submission.Config{
		Catalog:  cat,
		Ledger:   led,
		Grades:   grades,
		Progress: prog,
		EventBus: event.NewBus(),
	})

	return f
}

// seed builds a course with one module, one lesson and a module-level quiz
// of two questions worth 5+5 points, passingScore 70, attemptsAllowed 2.
func (f *fixture) seed(t *testing.T) {
	t.Helper()

	f.catalog.PutCourse(domain.Course{ID: "c1"})
	f.catalog.PutModule(domain.Module{ID: "m1", CourseID: "c1", Order: 1})
	f.catalog.PutLesson(domain.Lesson{ID: "l1", ModuleID: "m1", Order: 1})
	f.catalog.PutQuiz(domain.Quiz{
		ID:              "qm",
		ModuleID:        "m1",
		PassingScore:    70,
		AttemptsAllowed: 2,
		IsPublished:     true,
		Questions: []domain.Question{
			{ID: "que1", QuizID: "qm", Type: domain.QuestionMultipleChoice, CorrectAnswer: "B", Points: decimal.NewFromInt(5), Order: 1},
			{ID: "que2", QuizID: "qm", Type: domain.QuestionTrueFalse, CorrectAnswer: "true", Points: decimal.NewFromInt(5), Order: 2},
		},
	})

	_, err := f.enr.Enroll(context.Background(), "u1", "c1")
	require.NoError(t, err)
}

func TestService_Submit(t *testing.T) {
	t.Run("a fully correct submission passes", func(t *testing.T) {
		f := makeFixture(t)
		f.seed(t)

		resp, err := f.svc.Submit(context.Background(), submission.SubmitRequest{
			UserID: "u1",
			QuizID: "qm",
			Answers: []submission.Answer{
				{QuestionID: "que1", Answer: "B"},
				{QuestionID: "que2", Answer: "true"},
			},
			TimeTaken: 120,
		})
		require.NoError(t, err)

		a := resp.Attempt
		assert.Equal(t, 1, a.AttemptNumber)
		assert.Equal(t, 100, a.Percentage)
		assert.Equal(t, domain.AttemptPassed, a.Status)
		assert.True(t, a.Score.Equal(decimal.NewFromInt(10)))
		assert.True(t, a.TotalPoints.Equal(decimal.NewFromInt(10)))
		require.Len(t, a.Answers, 2)
		assert.True(t, a.Answers[0].Correct)
	})

	t.Run("partial credit fails below the threshold", func(t *testing.T) {
		f := makeFixture(t)
		f.seed(t)

		resp, err := f.svc.Submit(context.Background(), submission.SubmitRequest{
			UserID: "u1",
			QuizID: "qm",
			Answers: []submission.Answer{
				{QuestionID: "que1", Answer: "B"},
				{QuestionID: "que2", Answer: "false"},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 50, resp.Attempt.Percentage)
		assert.Equal(t, domain.AttemptFailed, resp.Attempt.Status)
	})

	t.Run("the pass threshold is inclusive", func(t *testing.T) {
		f := makeFixture(t)
		f.seed(t)
		// 7-of-10 points against passingScore 70: exactly on the line.
		f.catalog.PutQuiz(domain.Quiz{
			ID: "qm", ModuleID: "m1", PassingScore: 70, AttemptsAllowed: 2, IsPublished: true,
			Questions: []domain.Question{
				{ID: "que1", QuizID: "qm", CorrectAnswer: "B", Points: decimal.NewFromInt(7), Order: 1},
				{ID: "que2", QuizID: "qm", CorrectAnswer: "true", Points: decimal.NewFromInt(3), Order: 2},
			},
		})

		resp, err := f.svc.Submit(context.Background(), submission.SubmitRequest{
			UserID:  "u1",
			QuizID:  "qm",
			Answers: []submission.Answer{{QuestionID: "que1", Answer: "B"}},
		})
		require.NoError(t, err)
		assert.Equal(t, domain.AttemptPassed, resp.Attempt.Status)
		assert.Equal(t, 70, resp.Attempt.Percentage)
	})

	t.Run("percentage is rounded half up", func(t *testing.T) {
		f := makeFixture(t)
		f.seed(t)
		// 7 of 9 points: 77.78 rounds to 78.
		f.catalog.PutQuiz(domain.Quiz{
			ID: "qm", ModuleID: "m1", PassingScore: 70, AttemptsAllowed: 2, IsPublished: true,
			Questions: []domain.Question{
				{ID: "que1", QuizID: "qm", CorrectAnswer: "B", Points: decimal.NewFromInt(7), Order: 1},
				{ID: "que2", QuizID: "qm", CorrectAnswer: "true", Points: decimal.NewFromInt(2), Order: 2},
			},
		})

		resp, err := f.svc.Submit(context.Background(), submission.SubmitRequest{
			UserID:  "u1",
			QuizID:  "qm",
			Answers: []submission.Answer{{QuestionID: "que1", Answer: "B"}},
		})
		require.NoError(t, err)
		assert.Equal(t, 78, resp.Attempt.Percentage)
	})

	t.Run("checkbox answers require an exact match", func(t *testing.T) {
		f := makeFixture(t)
		f.seed(t)
		f.catalog.PutQuiz(domain.Quiz{
			ID: "qm", ModuleID: "m1", PassingScore: 50, AttemptsAllowed: 2, IsPublished: true,
			Questions: []domain.Question{
				{ID: "que1", QuizID: "qm", Type: domain.QuestionCheckbox, CorrectAnswer: "A,C", Points: decimal.NewFromInt(10), Order: 1},
			},
		})

		resp, err := f.svc.Submit(context.Background(), submission.SubmitRequest{
			UserID:  "u1",
			QuizID:  "qm",
			Answers: []submission.Answer{{QuestionID: "que1", Answer: "C,A"}},
		})
		require.NoError(t, err)
		assert.Equal(t, 0, resp.Attempt.Percentage, "reordered multi-select is not the stored representation")
	})

	t.Run("attempt numbers run 1..N with no gaps", func(t *testing.T) {
		f := makeFixture(t)
		f.seed(t)
		f.catalog.PutQuiz(domain.Quiz{
			ID: "qm", ModuleID: "m1", PassingScore: 70, AttemptsAllowed: 5, IsPublished: true,
			Questions: []domain.Question{
				{ID: "que1", QuizID: "qm", CorrectAnswer: "B", Points: decimal.NewFromInt(5), Order: 1},
			},
		})

		for want := 1; want <= 3; want++ {
			resp, err := f.svc.Submit(context.Background(), submission.SubmitRequest{
				UserID:  "u1",
				QuizID:  "qm",
				Answers: []submission.Answer{{QuestionID: "que1", Answer: "B"}},
			})
			require.NoError(t, err)
			assert.Equal(t, want, resp.Attempt.AttemptNumber)
		}
	})

	t.Run("submission past the attempts cap is rejected", func(t *testing.T) {
		f := makeFixture(t)
		f.seed(t)
		f.catalog.PutQuiz(domain.Quiz{
			ID: "qm", ModuleID: "m1", PassingScore: 70, AttemptsAllowed: 1, IsPublished: true,
			Questions: []domain.Question{
				{ID: "que1", QuizID: "qm", CorrectAnswer: "B", Points: decimal.NewFromInt(5), Order: 1},
			},
		})

		req := submission.SubmitRequest{
			UserID:  "u1",
			QuizID:  "qm",
			Answers: []submission.Answer{{QuestionID: "que1", Answer: "X"}},
		}

		_, err := f.svc.Submit(context.Background(), req)
		require.NoError(t, err, "first submission is within the cap regardless of result")

		_, err = f.svc.Submit(context.Background(), req)
		assert.True(t, errors.Is(err, errors.CodeFailedPrecondition))

		n, err := f.ledger.CountAttempts(context.Background(), "u1", "qm")
		require.NoError(t, err)
		assert.Equal(t, 1, n, "the rejected submission must not write an attempt")
	})

	t.Run("unpublished quiz is not found", func(t *testing.T) {
		f := makeFixture(t)
		f.seed(t)
		f.catalog.PutQuiz(domain.Quiz{ID: "hidden", ModuleID: "m1", AttemptsAllowed: 1, IsPublished: false})

		_, err := f.svc.Submit(context.Background(), submission.SubmitRequest{
			UserID:  "u1",
			QuizID:  "hidden",
			Answers: []submission.Answer{{QuestionID: "que1", Answer: "B"}},
		})
		assert.True(t, errors.Is(err, errors.CodeNotFound))
	})

	t.Run("missing fields are rejected before any read", func(t *testing.T) {
		f := makeFixture(t)

		_, err := f.svc.Submit(context.Background(), submission.SubmitRequest{QuizID: "qm"})
		assert.True(t, errors.Is(err, errors.CodeInvalidArgument))
	})

	t.Run("a passing submission completes the course end to end", func(t *testing.T) {
		f := makeFixture(t)
		f.seed(t)
		require.NoError(t, f.catalog.MarkLessonComplete(context.Background(), "l1", "u1"))

		resp, err := f.svc.Submit(context.Background(), submission.SubmitRequest{
			UserID: "u1",
			QuizID: "qm",
			Answers: []submission.Answer{
				{QuestionID: "que1", Answer: "B"},
				{QuestionID: "que2", Answer: "true"},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, 100, resp.Enrollment.Progress)
		assert.Equal(t, domain.StatusCompleted, resp.Enrollment.Status)
		assert.Equal(t, "10.0", resp.Enrollment.Grade)
		assert.Equal(t, domain.GradeIncomplete, resp.Grade.Letter, "no lesson-scoped quizzes attempted, so the letter metric stays Incomplete")
	})
}

func TestService_Status(t *testing.T) {
	f := makeFixture(t)
	f.seed(t)

	st, err := f.svc.Status(context.Background(), "u1", "qm")
	require.NoError(t, err)
	assert.False(t, st.HasCompleted)
	assert.Nil(t, st.Latest)
	assert.Equal(t, 2, st.AttemptsRemaining)
	assert.True(t, st.CanRetake)

	for i := 0; i < 2; i++ {
		_, err := f.svc.Submit(context.Background(), submission.SubmitRequest{
			UserID:  "u1",
			QuizID:  "qm",
			Answers: []submission.Answer{{QuestionID: "que1", Answer: "B"}},
		})
		require.NoError(t, err)
	}

	st, err = f.svc.Status(context.Background(), "u1", "qm")
	require.NoError(t, err)
	assert.True(t, st.HasCompleted)
	require.NotNil(t, st.Latest)
	assert.Equal(t, 2, st.Latest.AttemptNumber)
	assert.Equal(t, 0, st.AttemptsRemaining)
	assert.False(t, st.CanRetake)

	_, err = f.svc.Status(context.Background(), "u1", "ghost")
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}
