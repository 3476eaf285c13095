package grade

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/edulane/edulane/internal/attempt"
	"github.com/edulane/edulane/internal/catalog"
	"github.com/edulane/edulane/internal/domain"
)

type Config struct {
	Catalog *catalog.Service
	Ledger  *attempt.Service
}

// Service computes the quiz letter grade: the average of the learner's
// latest scores on the course's lesson-scoped quizzes, on a 0-10 scale,
// mapped to a letter. This is a read-only derived metric, distinct from the
// completion grade the progress recompute writes onto the enrollment, and
// is never persisted.
type Service struct {
	catalog *catalog.Service
	ledger  *attempt.Service
}

func NewService(c Config) *Service {
	return &Service{
		catalog: c.Catalog,
		ledger:  c.Ledger,
	}
}

// Summary is the outcome of a letter-grade computation. AverageScore is nil
// when the learner has no attempts on any lesson-scoped quiz yet, in which
// case Letter is "Incomplete".
type Summary struct {
	Letter       string
	AverageScore *decimal.Decimal // 0-10
}

// AverageScore resolves the course's published lesson-scoped quizzes, takes
// the latest attempt on each, and averages the scores on a 0-10 scale over
// the attempted quizzes.
func (s *Service) AverageScore(ctx context.Context, userID, courseID string) (Summary, error) {
	scopes, err := s.catalog.ResolveQuizIDs(ctx, courseID, false)
	if err != nil {
		return Summary{}, fmt.Errorf("resolve quizzes: %w", err)
	}

	latest, err := s.ledger.LatestPerQuiz(ctx, userID, scopes.LessonLevel)
	if err != nil {
		return Summary{}, fmt.Errorf("latest attempts: %w", err)
	}

	if len(latest) == 0 {
		return Summary{Letter: domain.GradeIncomplete}, nil
	}

	sum := decimal.Zero
	for _, a := range latest {
		sum = sum.Add(scoreOutOf10(a))
	}

	avg := sum.Div(decimal.NewFromInt(int64(len(latest))))
	return Summary{
		Letter:       ScoreToGrade(avg),
		AverageScore: &avg,
	}, nil
}

// ScoreToGrade maps a 0-10 average to a letter grade.
func ScoreToGrade(avg decimal.Decimal) string {
	switch {
	case avg.GreaterThanOrEqual(decimal.RequireFromString("8.5")):
		return "A"
	case avg.GreaterThanOrEqual(decimal.RequireFromString("7.0")):
		return "B"
	case avg.GreaterThanOrEqual(decimal.RequireFromString("5.5")):
		return "C"
	case avg.GreaterThanOrEqual(decimal.RequireFromString("4.0")):
		return "D"
	default:
		return "F"
	}
}

func scoreOutOf10(a domain.Attempt) decimal.Decimal {
	if a.TotalPoints.IsZero() {
		return decimal.Zero
	}
	return a.Score.Div(a.TotalPoints).Mul(decimal.NewFromInt(10))
}
