package enrollment

import (
	"context"
	"sync"
	"time"

	"github.com/edulane/edulane/internal/domain"
	"github.com/edulane/edulane/internal/errors"
)

// MemoryStore is an in-memory Store used by tests and local development.
type MemoryStore struct {
	mu          sync.RWMutex
	enrollments map[enrollmentKey]domain.Enrollment
}

type enrollmentKey struct {
	userID   string
	courseID string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{enrollments: map[enrollmentKey]domain.Enrollment{}}
}

func (m *MemoryStore) InsertEnrollment(_ context.Context, e domain.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := enrollmentKey{e.UserID, e.CourseID}
	if _, ok := m.enrollments[k]; ok {
		return errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("already enrolled: user=%s course=%s", e.UserID, e.CourseID))
	}
	m.enrollments[k] = e
	return nil
}

func (m *MemoryStore) DeleteEnrollment(_ context.Context, userID, courseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := enrollmentKey{userID, courseID}
	if _, ok := m.enrollments[k]; !ok {
		return errors.New(errors.CodeNotFound,
			errors.WithMessagef("enrollment not found: user=%s course=%s", userID, courseID))
	}
	delete(m.enrollments, k)
	return nil
}

func (m *MemoryStore) GetEnrollment(_ context.Context, userID, courseID string) (domain.Enrollment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.enrollments[enrollmentKey{userID, courseID}]
	if !ok {
		return domain.Enrollment{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("enrollment not found: user=%s course=%s", userID, courseID))
	}
	return e, nil
}

func (m *MemoryStore) TouchAccessed(_ context.Context, userID, courseID string, accessed time.Time) (domain.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := enrollmentKey{userID, courseID}
	e, ok := m.enrollments[k]
	if !ok {
		return domain.Enrollment{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("enrollment not found: user=%s course=%s", userID, courseID))
	}
	e.LastAccessed = accessed
	m.enrollments[k] = e
	return e, nil
}

func (m *MemoryStore) CountByCourse(_ context.Context, courseID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for k := range m.enrollments {
		if k.courseID == courseID {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) UpdateProgress(_ context.Context, userID, courseID string, progress int, status domain.EnrollmentStatus, grade string, accessed time.Time) (domain.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := enrollmentKey{userID, courseID}
	e, ok := m.enrollments[k]
	if !ok {
		return domain.Enrollment{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("enrollment not found: user=%s course=%s", userID, courseID))
	}
	e.Progress = progress
	e.Status = status
	e.Grade = grade
	e.LastAccessed = accessed
	m.enrollments[k] = e
	return e, nil
}
