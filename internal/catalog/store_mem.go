package catalog

import (
	"context"
	"sync"

	"github.com/edulane/edulane/internal/domain"
	"github.com/edulane/edulane/internal/errors"
)

// MemoryStore is an in-memory Store used by tests and local development.
type MemoryStore struct {
	mu          sync.RWMutex
	courses     map[string]domain.Course
	modules     map[string]domain.Module
	lessons     map[string]domain.Lesson
	quizzes     map[string]domain.Quiz
	completions map[string]map[string]bool // lessonID -> set of userIDs
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		courses:     map[string]domain.Course{},
		modules:     map[string]domain.Module{},
		lessons:     map[string]domain.Lesson{},
		quizzes:     map[string]domain.Quiz{},
		completions: map[string]map[string]bool{},
	}
}

// PutCourse, PutModule, PutLesson and PutQuiz seed the store.

func (m *MemoryStore) PutCourse(c domain.Course) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses[c.ID] = c
}

func (m *MemoryStore) PutModule(mod domain.Module) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modules[mod.ID] = mod
}

func (m *MemoryStore) PutLesson(l domain.Lesson) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lessons[l.ID] = l
}

func (m *MemoryStore) PutQuiz(q domain.Quiz) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quizzes[q.ID] = q
}

func (m *MemoryStore) GetCourse(_ context.Context, id string) (domain.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.courses[id]
	if !ok {
		return domain.Course{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("course not found: id=%s", id))
	}
	return c, nil
}

func (m *MemoryStore) GetModule(_ context.Context, id string) (domain.Module, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mod, ok := m.modules[id]
	if !ok {
		return domain.Module{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("module not found: id=%s", id))
	}
	return mod, nil
}

func (m *MemoryStore) GetLesson(_ context.Context, id string) (domain.Lesson, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.lessons[id]
	if !ok {
		return domain.Lesson{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("lesson not found: id=%s", id))
	}
	return l, nil
}

func (m *MemoryStore) ListModules(_ context.Context, courseID string) ([]domain.Module, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Module
	for _, mod := range m.modules {
		if mod.CourseID == courseID {
			out = append(out, mod)
		}
	}
	return out, nil
}

func (m *MemoryStore) ListLessons(_ context.Context, moduleIDs []string) ([]domain.Lesson, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := toSet(moduleIDs)
	var out []domain.Lesson
	for _, l := range m.lessons {
		if ids[l.ModuleID] {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *MemoryStore) GetQuiz(_ context.Context, id string) (domain.Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quizzes[id]
	if !ok {
		return domain.Quiz{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("quiz not found: id=%s", id))
	}
	return q, nil
}

func (m *MemoryStore) CourseQuizIDs(_ context.Context, courseID string, publishedOnly bool) ([]string, error) {
	return m.filterQuizIDs(func(q domain.Quiz) bool {
		return q.CourseID == courseID && q.ModuleID == "" && q.LessonID == ""
	}, publishedOnly), nil
}

func (m *MemoryStore) ModuleQuizIDs(_ context.Context, moduleIDs []string, publishedOnly bool) ([]string, error) {
	ids := toSet(moduleIDs)
	return m.filterQuizIDs(func(q domain.Quiz) bool {
		return ids[q.ModuleID] && q.LessonID == ""
	}, publishedOnly), nil
}

func (m *MemoryStore) LessonQuizIDs(_ context.Context, lessonIDs []string, publishedOnly bool) ([]string, error) {
	ids := toSet(lessonIDs)
	return m.filterQuizIDs(func(q domain.Quiz) bool {
		return ids[q.LessonID]
	}, publishedOnly), nil
}

func (m *MemoryStore) filterQuizIDs(match func(domain.Quiz) bool, publishedOnly bool) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for _, q := range m.quizzes {
		if publishedOnly && !q.IsPublished {
			continue
		}
		if match(q) {
			out = append(out, q.ID)
		}
	}
	return out
}

func (m *MemoryStore) SetQuizzesPublished(ctx context.Context, courseID string, published bool) error {
	modules, _ := m.ListModules(ctx, courseID)
	moduleIDs := make([]string, 0, len(modules))
	for _, mod := range modules {
		moduleIDs = append(moduleIDs, mod.ID)
	}
	lessons, _ := m.ListLessons(ctx, moduleIDs)

	moduleSet := toSet(moduleIDs)
	lessonSet := map[string]bool{}
	for _, l := range lessons {
		lessonSet[l.ID] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, q := range m.quizzes {
		if q.CourseID == courseID || moduleSet[q.ModuleID] || lessonSet[q.LessonID] {
			q.IsPublished = published
			m.quizzes[id] = q
		}
	}
	return nil
}

func (m *MemoryStore) MarkLessonComplete(_ context.Context, lessonID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lessons[lessonID]; !ok {
		return errors.New(errors.CodeNotFound,
			errors.WithMessagef("lesson not found: id=%s", lessonID))
	}
	if m.completions[lessonID] == nil {
		m.completions[lessonID] = map[string]bool{}
	}
	m.completions[lessonID][userID] = true
	return nil
}

func (m *MemoryStore) MarkLessonIncomplete(_ context.Context, lessonID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.completions[lessonID], userID)
	return nil
}

func (m *MemoryStore) CompletedLessonIDs(_ context.Context, userID string, lessonIDs []string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for _, id := range lessonIDs {
		if m.completions[id][userID] {
			out = append(out, id)
		}
	}
	return out, nil
}

func toSet(ids []string) map[string]bool {
	s := make(map[string]bool, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}
