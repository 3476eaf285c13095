package submission

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/edulane/edulane/internal/attempt"
	"github.com/edulane/edulane/internal/catalog"
	"github.com/edulane/edulane/internal/domain"
	"github.com/edulane/edulane/internal/errors"
	"github.com/edulane/edulane/internal/event"
	"github.com/edulane/edulane/internal/grade"
	"github.com/edulane/edulane/internal/metrics"
	"github.com/edulane/edulane/internal/progress"
)

type Config struct {
	Catalog  *catalog.Service
	Ledger   *attempt.Service
	Grades   *grade.Service
	Progress *progress.Service
	EventBus *event.Bus
}

// Service evaluates quiz submissions: scores the answers, records the
// attempt, then synchronously drives the grade and progress recomputes for
// the owning course.
type Service struct {
	catalog  *catalog.Service
	ledger   *attempt.Service
	grades   *grade.Service
	progress *progress.Service
	eb       *event.Bus
}

func NewService(c Config) *Service {
	return &Service{
		catalog:  c.Catalog,
		ledger:   c.Ledger,
		grades:   c.Grades,
		progress: c.Progress,
		eb:       c.EventBus,
	}
}

// Answer is one submitted answer, matched to its question by id.
type Answer struct {
	QuestionID string
	Answer     string
}

type SubmitRequest struct {
	UserID    string
	QuizID    string
	Answers   []Answer
	TimeTaken int // seconds
}

type SubmitResponse struct {
	Attempt    domain.Attempt
	Grade      grade.Summary
	Enrollment domain.Enrollment
}

// Submit scores the submission and records the attempt. Preconditions are
// checked in order: the quiz must exist and be published, then the attempts
// cap must not be reached. Nothing is persisted when either fails.
//
// Scoring is an exact match of each submitted answer against the question's
// stored answer key; matched questions earn their full point value. The
// pass threshold is inclusive and compared on the unrounded percentage.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	if req.UserID == "" || req.QuizID == "" || len(req.Answers) == 0 {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("userId, quizId and answers are required"))
	}

	quiz, err := s.catalog.GetPublishedQuiz(ctx, req.QuizID)
	if err != nil {
		return nil, err
	}

	used, err := s.ledger.CountAttempts(ctx, req.UserID, req.QuizID)
	if err != nil {
		return nil, fmt.Errorf("count attempts: %w", err)
	}
	if used >= quiz.AttemptsAllowed {
		metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("max attempts reached: quiz=%s allowed=%d", quiz.ID, quiz.AttemptsAllowed))
	}

	a := s.evaluate(quiz, req)
	a.AttemptNumber = used + 1

	if err := s.record(ctx, &a); err != nil {
		return nil, err
	}
	metrics.SubmissionsTotal.WithLabelValues(string(a.Status)).Inc()

	courseID, err := s.catalog.CourseIDForQuiz(ctx, quiz.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve course: %w", err)
	}

	summary, err := s.grades.AverageScore(ctx, req.UserID, courseID)
	if err != nil {
		return nil, fmt.Errorf("grade: %w", err)
	}

	// The attempt is already recorded; a failure past this point aborts the
	// enrollment update but never the attempt.
	enr, err := s.progress.Recompute(ctx, req.UserID, courseID)
	if err != nil {
		return nil, fmt.Errorf("recompute progress: %w", err)
	}

	if s.eb != nil {
		s.eb.Publish(ctx, domain.EventAttemptRecorded{Attempt: a})
	}

	return &SubmitResponse{
		Attempt:    a,
		Grade:      summary,
		Enrollment: enr,
	}, nil
}

// StatusResponse describes where a learner stands on a quiz.
type StatusResponse struct {
	HasCompleted      bool
	Latest            *domain.Attempt
	AttemptsUsed      int
	AttemptsRemaining int
	CanRetake         bool
	Quiz              domain.Quiz
}

// Status reports the learner's latest attempt and remaining-attempt budget
// for a published quiz.
func (s *Service) Status(ctx context.Context, userID, quizID string) (*StatusResponse, error) {
	quiz, err := s.catalog.GetPublishedQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	latest, err := s.ledger.LatestAttempt(ctx, userID, quizID)
	if err != nil {
		return nil, fmt.Errorf("latest attempt: %w", err)
	}

	used, err := s.ledger.CountAttempts(ctx, userID, quizID)
	if err != nil {
		return nil, fmt.Errorf("count attempts: %w", err)
	}

	remaining := quiz.AttemptsAllowed - used
	if remaining < 0 {
		remaining = 0
	}

	return &StatusResponse{
		HasCompleted:      latest != nil,
		Latest:            latest,
		AttemptsUsed:      used,
		AttemptsRemaining: remaining,
		CanRetake:         remaining > 0,
		Quiz:              quiz,
	}, nil
}

// evaluate scores the submission against the quiz's questions.
func (s *Service) evaluate(quiz domain.Quiz, req SubmitRequest) domain.Attempt {
	submitted := make(map[string]string, len(req.Answers))
	for _, ans := range req.Answers {
		submitted[ans.QuestionID] = ans.Answer
	}

	var (
		totalPoints  = decimal.Zero
		earnedPoints = decimal.Zero
		answers      = make([]domain.AnswerRecord, 0, len(quiz.Questions))
	)
	for _, q := range quiz.Questions {
		totalPoints = totalPoints.Add(q.Points)

		ans, ok := submitted[q.ID]
		rec := domain.AnswerRecord{
			QuestionID:   q.ID,
			Answer:       ans,
			PointsEarned: decimal.Zero,
		}
		if ok && ans == q.CorrectAnswer {
			rec.Correct = true
			rec.PointsEarned = q.Points
			earnedPoints = earnedPoints.Add(q.Points)
		}
		answers = append(answers, rec)
	}

	percentage := decimal.Zero
	if totalPoints.IsPositive() {
		percentage = earnedPoints.Div(totalPoints).Mul(decimal.NewFromInt(100))
	}

	status := domain.AttemptFailed
	if percentage.GreaterThanOrEqual(decimal.NewFromInt(int64(quiz.PassingScore))) {
		status = domain.AttemptPassed
	}

	return domain.Attempt{
		UserID:      req.UserID,
		QuizID:      quiz.ID,
		Score:       earnedPoints,
		TotalPoints: totalPoints,
		Percentage:  int(percentage.Round(0).IntPart()),
		Answers:     answers,
		TimeTaken:   req.TimeTaken,
		SubmittedAt: time.Now().UTC(),
		Status:      status,
	}
}

// record persists the attempt, retrying once on a duplicate attempt number.
// A duplicate means a concurrent submission won the race; the number is
// recomputed and resubmitted. A second duplicate escalates as internal.
func (s *Service) record(ctx context.Context, a *domain.Attempt) error {
	assignID := func() error {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate attempt ID: %w", err)
		}
		a.ID = id.String()
		return nil
	}

	if err := assignID(); err != nil {
		return err
	}

	err := s.ledger.RecordAttempt(ctx, *a)
	if err == nil {
		return nil
	}
	if !errors.Is(err, errors.CodeAlreadyExists) {
		return err
	}

	slog.WarnContext(ctx, "submission: attempt number raced, retrying",
		"user", a.UserID,
		"quiz", a.QuizID,
		"attempt", a.AttemptNumber,
	)

	used, err := s.ledger.CountAttempts(ctx, a.UserID, a.QuizID)
	if err != nil {
		return fmt.Errorf("recount attempts: %w", err)
	}
	a.AttemptNumber = used + 1
	if err := assignID(); err != nil {
		return err
	}

	if err := s.ledger.RecordAttempt(ctx, *a); err != nil {
		if errors.Is(err, errors.CodeAlreadyExists) {
			return errors.New(errors.CodeInternal,
				errors.WithMessagef("attempt number collision persisted: user=%s quiz=%s", a.UserID, a.QuizID),
				errors.WithCause(err))
		}
		return err
	}

	return nil
}
