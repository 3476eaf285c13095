package attempt

import (
	"context"
	"sync"

	"github.com/edulane/edulane/internal/domain"
	"github.com/edulane/edulane/internal/errors"
)

// MemoryStore is an in-memory Store used by tests and local development. It
// enforces the same (user, quiz, attempt number) uniqueness as the SQL store.
type MemoryStore struct {
	mu       sync.RWMutex
	attempts []domain.Attempt
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) CountAttempts(_ context.Context, userID, quizID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, a := range m.attempts {
		if a.UserID == userID && a.QuizID == quizID {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) LatestAttempt(_ context.Context, userID, quizID string) (*domain.Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *domain.Attempt
	for i, a := range m.attempts {
		if a.UserID != userID || a.QuizID != quizID {
			continue
		}
		if latest == nil || a.AttemptNumber > latest.AttemptNumber {
			latest = &m.attempts[i]
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (m *MemoryStore) LatestPerQuiz(_ context.Context, userID string, quizIDs []string) (map[string]domain.Attempt, error) {
	wanted := make(map[string]bool, len(quizIDs))
	for _, id := range quizIDs {
		wanted[id] = true
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	out := map[string]domain.Attempt{}
	for _, a := range m.attempts {
		if a.UserID != userID || !wanted[a.QuizID] {
			continue
		}
		if prev, ok := out[a.QuizID]; !ok || a.AttemptNumber > prev.AttemptNumber {
			out[a.QuizID] = a
		}
	}
	return out, nil
}

func (m *MemoryStore) InsertAttempt(_ context.Context, a domain.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.attempts {
		if existing.UserID == a.UserID && existing.QuizID == a.QuizID && existing.AttemptNumber == a.AttemptNumber {
			return errors.New(errors.CodeAlreadyExists,
				errors.WithMessagef("attempt already recorded: user=%s quiz=%s attempt=%d", a.UserID, a.QuizID, a.AttemptNumber))
		}
	}
	m.attempts = append(m.attempts, a)
	return nil
}
