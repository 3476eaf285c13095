package attempt

import (
	"context"

	"github.com/edulane/edulane/internal/domain"
)

// Store persists attempt rows. Implementations must enforce the uniqueness
// of (userID, quizID, attemptNumber) and report a violation as
// errors.CodeAlreadyExists.
type Store interface {
	CountAttempts(ctx context.Context, userID, quizID string) (int, error)
	LatestAttempt(ctx context.Context, userID, quizID string) (*domain.Attempt, error)
	LatestPerQuiz(ctx context.Context, userID string, quizIDs []string) (map[string]domain.Attempt, error)
	InsertAttempt(ctx context.Context, a domain.Attempt) error
}

type Config struct {
	Store Store
}

// Service is the attempt ledger: an append-only log of quiz submissions.
// Writing an attempt has no side effects; downstream recomputes are the
// caller's responsibility, which keeps the ledger a pure log.
type Service struct {
	store Store
}

func NewService(c Config) *Service {
	return &Service{store: c.Store}
}

// CountAttempts returns the number of submissions the user has made so far.
func (s *Service) CountAttempts(ctx context.Context, userID, quizID string) (int, error) {
	return s.store.CountAttempts(ctx, userID, quizID)
}

// LatestAttempt returns the attempt with the highest attempt number, or nil
// when the user has never submitted.
func (s *Service) LatestAttempt(ctx context.Context, userID, quizID string) (*domain.Attempt, error) {
	return s.store.LatestAttempt(ctx, userID, quizID)
}

// LatestPerQuiz returns the user's latest attempt for each of the given
// quizzes, keyed by quiz id. Quizzes never attempted are absent from the map.
// Attempt numbers are assigned in submission order, so highest-number and
// latest-by-submission-date are the same attempt.
func (s *Service) LatestPerQuiz(ctx context.Context, userID string, quizIDs []string) (map[string]domain.Attempt, error) {
	if len(quizIDs) == 0 {
		return map[string]domain.Attempt{}, nil
	}

	return s.store.LatestPerQuiz(ctx, userID, quizIDs)
}

// RecordAttempt appends a new attempt row. A CodeAlreadyExists error means
// another submission won the race for this attempt number; the caller should
// recompute the number and retry once.
func (s *Service) RecordAttempt(ctx context.Context, a domain.Attempt) error {
	return s.store.InsertAttempt(ctx, a)
}
