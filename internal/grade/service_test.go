package grade_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulane/edulane/internal/attempt"
	"github.com/edulane/edulane/internal/catalog"
	"github.com/edulane/edulane/internal/domain"
	"github.com/edulane/edulane/internal/grade"
)

func TestScoreToGrade(t *testing.T) {
	tests := map[string]struct {
		avg  string
		want string
	}{
		"8.5 is the A boundary":   {"8.5", "A"},
		"just below A is B":       {"8.4", "B"},
		"7.0 is the B boundary":   {"7.0", "B"},
		"5.5 is the C boundary":   {"5.5", "C"},
		"4.0 is the D boundary":   {"4.0", "D"},
		"below 4.0 fails":         {"3.9", "F"},
		"a perfect score is an A": {"10", "A"},
		"zero is an F":            {"0", "F"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, grade.ScoreToGrade(decimal.RequireFromString(tt.avg)))
		})
	}
}

func TestService_AverageScore(t *testing.T) {
	seed := func() (*catalog.MemoryStore, *attempt.MemoryStore) {
		cat := catalog.NewMemoryStore()
		cat.PutCourse(domain.Course{ID: "c1"})
		cat.PutModule(domain.Module{ID: "m1", CourseID: "c1", Order: 1})
		cat.PutLesson(domain.Lesson{ID: "l1", ModuleID: "m1", Order: 1})
		cat.PutLesson(domain.Lesson{ID: "l2", ModuleID: "m1", Order: 2})
		cat.PutQuiz(domain.Quiz{ID: "ql1", LessonID: "l1", PassingScore: 70, AttemptsAllowed: 3, IsPublished: true})
		cat.PutQuiz(domain.Quiz{ID: "ql2", LessonID: "l2", PassingScore: 70, AttemptsAllowed: 3, IsPublished: true})
		// Module-level quiz must not influence the lesson-quiz letter grade.
		cat.PutQuiz(domain.Quiz{ID: "qm", ModuleID: "m1", PassingScore: 70, AttemptsAllowed: 3, IsPublished: true})
		return cat, attempt.NewMemoryStore()
	}

	record := func(t *testing.T, led *attempt.MemoryStore, quizID string, number int, score, total int64) {
		t.Helper()
		require.NoError(t, led.InsertAttempt(context.Background(), domain.Attempt{
			ID:            quizID + "-" + string(rune('0'+number)),
			UserID:        "u1",
			QuizID:        quizID,
			Score:         decimal.NewFromInt(score),
			TotalPoints:   decimal.NewFromInt(total),
			AttemptNumber: number,
			Status:        domain.AttemptPassed,
		}))
	}

	makeService := func(cat *catalog.MemoryStore, led *attempt.MemoryStore) *grade.Service {
		return grade.NewService(grade.Config{
			Catalog: catalog.NewService(catalog.Config{Store: cat}),
			Ledger:  attempt.NewService(attempt.Config{Store: led}),
		})
	}

	t.Run("no attempts yields Incomplete with nil average", func(t *testing.T) {
		cat, led := seed()
		sum, err := makeService(cat, led).AverageScore(context.Background(), "u1", "c1")
		require.NoError(t, err)
		assert.Equal(t, domain.GradeIncomplete, sum.Letter)
		assert.Nil(t, sum.AverageScore)
	})

	t.Run("averages latest scores of attempted lesson quizzes", func(t *testing.T) {
		cat, led := seed()
		record(t, led, "ql1", 1, 9, 10) // 9.0
		record(t, led, "ql2", 1, 7, 10) // 7.0
		record(t, led, "qm", 1, 1, 10)  // ignored: module scope

		sum, err := makeService(cat, led).AverageScore(context.Background(), "u1", "c1")
		require.NoError(t, err)
		require.NotNil(t, sum.AverageScore)
		assert.Equal(t, "8.0", sum.AverageScore.StringFixed(1))
		assert.Equal(t, "B", sum.Letter)
	})

	t.Run("uses the latest attempt per quiz", func(t *testing.T) {
		cat, led := seed()
		record(t, led, "ql1", 1, 10, 10)
		record(t, led, "ql1", 2, 5, 10) // latest wins: 5.0

		sum, err := makeService(cat, led).AverageScore(context.Background(), "u1", "c1")
		require.NoError(t, err)
		assert.Equal(t, "C", sum.Letter)
		assert.Equal(t, "5.0", sum.AverageScore.StringFixed(1))
	})
}
