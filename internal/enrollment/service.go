package enrollment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/edulane/edulane/internal/domain"
)

// Store persists enrollment records. Implementations must enforce the
// one-enrollment-per-(user, course) invariant and report a violation as
// errors.CodeAlreadyExists.
type Store interface {
	InsertEnrollment(ctx context.Context, e domain.Enrollment) error
	DeleteEnrollment(ctx context.Context, userID, courseID string) error
	GetEnrollment(ctx context.Context, userID, courseID string) (domain.Enrollment, error)
	CountByCourse(ctx context.Context, courseID string) (int, error)
	UpdateProgress(ctx context.Context, userID, courseID string, progress int, status domain.EnrollmentStatus, grade string, accessed time.Time) (domain.Enrollment, error)
	TouchAccessed(ctx context.Context, userID, courseID string, accessed time.Time) (domain.Enrollment, error)
}

type Config struct {
	Store Store
}

type Service struct {
	store Store
}

func NewService(c Config) *Service {
	return &Service{store: c.Store}
}

// Enroll creates the enrollment record for the (user, course) pair. Repeat
// enrollment surfaces as CodeAlreadyExists.
func (s *Service) Enroll(ctx context.Context, userID, courseID string) (domain.Enrollment, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return domain.Enrollment{}, fmt.Errorf("generate enrollment ID: %w", err)
	}

	now := time.Now().UTC()
	e := domain.Enrollment{
		ID:           id.String(),
		UserID:       userID,
		CourseID:     courseID,
		Progress:     0,
		Status:       domain.StatusEnrolled,
		Grade:        domain.GradeIncomplete,
		EnrolledAt:   now,
		LastAccessed: now,
	}

	if err := s.store.InsertEnrollment(ctx, e); err != nil {
		return domain.Enrollment{}, err
	}

	return e, nil
}

// Unenroll removes the enrollment record. The course's enrollment count is a
// derived aggregate, so nothing else needs updating.
func (s *Service) Unenroll(ctx context.Context, userID, courseID string) error {
	return s.store.DeleteEnrollment(ctx, userID, courseID)
}

func (s *Service) Get(ctx context.Context, userID, courseID string) (domain.Enrollment, error) {
	return s.store.GetEnrollment(ctx, userID, courseID)
}

// CountForCourse counts current enrollments in the course at read time.
func (s *Service) CountForCourse(ctx context.Context, courseID string) (int, error) {
	return s.store.CountByCourse(ctx, courseID)
}

// Touch stamps last accessed and returns the current enrollment. Learner
// reads go through this so "last accessed" tracks actual course activity.
func (s *Service) Touch(ctx context.Context, userID, courseID string) (domain.Enrollment, error) {
	return s.store.TouchAccessed(ctx, userID, courseID, time.Now().UTC())
}

// SetProgress writes the recomputed progress, status and grade onto the
// enrollment, stamping last accessed. Only the progress recompute calls this.
func (s *Service) SetProgress(ctx context.Context, userID, courseID string, progress int, status domain.EnrollmentStatus, grade string) (domain.Enrollment, error) {
	return s.store.UpdateProgress(ctx, userID, courseID, progress, status, grade, time.Now().UTC())
}
