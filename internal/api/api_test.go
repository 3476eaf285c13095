package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulane/edulane/internal/api"
	"github.com/edulane/edulane/internal/attempt"
	"github.com/edulane/edulane/internal/catalog"
	"github.com/edulane/edulane/internal/domain"
	"github.com/edulane/edulane/internal/enrollment"
	"github.com/edulane/edulane/internal/event"
	"github.com/edulane/edulane/internal/grade"
	"github.com/edulane/edulane/internal/progress"
	"github.com/edulane/edulane/internal/submission"
)

type fixture struct {
	router  *gin.Engine
	catalog *catalog.MemoryStore
	eb      *event.Bus
	redis   redis.UniversalClient
}

func makeFixture(t *testing.T) *fixture {
	t.Helper()

	gin.SetMode(gin.TestMode)

	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{rs.Addr()}})

	f := &fixture{
		router:  gin.New(),
		catalog: catalog.NewMemoryStore(),
		eb:      event.NewBus(),
		redis:   rc,
	}

	cat := catalog.NewService(catalog.Config{Store: f.catalog})
	led := attempt.NewService(attempt.Config{Store: attempt.NewMemoryStore()})
	enr := enrollment.NewService(enrollment.Config{Store: enrollment.NewMemoryStore()})
	grades := grade.NewService(grade.Config{Catalog: cat, Ledger: led})
	prog := progress.NewService(progress.Config{
		Catalog:     cat,
		Ledger:      led,
		Enrollments: enr,
		EventBus:    f.eb,
	})
	subs := submission.NewService(submission.Config{
		Catalog:  cat,
		Ledger:   led,
		Grades:   grades,
		Progress: prog,
		EventBus: f.eb,
	})

	api.New(api.Config{
		Router:       f.router,
		EventBus:     f.eb,
		Catalog:      cat,
		Enrollments:  enr,
		Grades:       grades,
		Progress:     prog,
		Submissions:  subs,
		Redis:        rc,
		PubsubPrefix: "edulane",
	})

	return f
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	f.catalog.PutCourse(domain.Course{ID: "c1"})
	f.catalog.PutModule(domain.Module{ID: "m1", CourseID: "c1", Order: 1})
	f.catalog.PutLesson(domain.Lesson{ID: "l1", ModuleID: "m1", Order: 1})
	f.catalog.PutQuiz(domain.Quiz{
		ID: "qm", ModuleID: "m1", PassingScore: 70, AttemptsAllowed: 2, IsPublished: true,
		Questions: []domain.Question{
			{ID: "que1", QuizID: "qm", CorrectAnswer: "B", Points: decimal.NewFromInt(10), Order: 1},
		},
	})
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

func TestAPI_SubmitQuiz(t *testing.T) {
	f := makeFixture(t)
	f.seed(t)

	w := f.do(t, http.MethodPost, "/v1/courses/c1/enroll", gin.H{"userId": "u1"})
	require.Equal(t, http.StatusCreated, w.Code)

	t.Run("missing fields are a 400", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/v1/quiz/submit", gin.H{"userId": "u1"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown quiz is a 404", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/v1/quiz/submit", gin.H{
			"userId":  "u1",
			"quizId":  "ghost",
			"answers": []gin.H{{"questionId": "que1", "answer": "B"}},
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("valid submission returns the attempt and enrollment", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/v1/quiz/submit", gin.H{
			"userId":    "u1",
			"quizId":    "qm",
			"answers":   []gin.H{{"questionId": "que1", "answer": "B"}},
			"timeTaken": 42,
		})
		require.Equal(t, http.StatusOK, w.Code)

		data := decodeData(t, w)
		score := data["score"].(map[string]any)
		assert.Equal(t, float64(100), score["percentage"])
		assert.Equal(t, string(domain.AttemptPassed), score["status"])

		enr := data["enrollment"].(map[string]any)
		assert.Equal(t, float64(50), enr["progress"], "quiz passed, lesson still open: 1 of 2 items")
	})

	t.Run("exceeding the cap is a 422", func(t *testing.T) {
		payload := gin.H{
			"userId":  "u1",
			"quizId":  "qm",
			"answers": []gin.H{{"questionId": "que1", "answer": "X"}},
		}

		w := f.do(t, http.MethodPost, "/v1/quiz/submit", payload)
		require.Equal(t, http.StatusOK, w.Code, "second attempt is still within the cap")

		w = f.do(t, http.MethodPost, "/v1/quiz/submit", payload)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestAPI_QuizStatus(t *testing.T) {
	f := makeFixture(t)
	f.seed(t)

	w := f.do(t, http.MethodGet, "/v1/score/u1/qm", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.Equal(t, false, data["hasCompleted"])
	attempts := data["attempts"].(map[string]any)
	assert.Equal(t, float64(2), attempts["remaining"])
	assert.Equal(t, true, attempts["canRetake"])

	quiz := data["quiz"].(map[string]any)
	assert.NotContains(t, quiz, "questions", "the learner view must not leak the answer key")
}

func TestAPI_LessonToggle(t *testing.T) {
	f := makeFixture(t)
	f.seed(t)

	w := f.do(t, http.MethodPost, "/v1/courses/c1/enroll", gin.H{"userId": "u1"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, http.MethodPut, "/v1/lessons/l1/complete", gin.H{"userId": "u1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(50), decodeData(t, w)["progress"])

	w = f.do(t, http.MethodPut, "/v1/lessons/l1/uncomplete", gin.H{"userId": "u1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decodeData(t, w)["progress"])

	w = f.do(t, http.MethodPut, "/v1/lessons/ghost/complete", gin.H{"userId": "u1"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPut, "/v1/lessons/l1/complete", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_Enrollment(t *testing.T) {
	f := makeFixture(t)
	f.seed(t)

	w := f.do(t, http.MethodPost, "/v1/courses/c1/enroll", gin.H{"userId": "u1"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, http.MethodPost, "/v1/courses/c1/enroll", gin.H{"userId": "u1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/v1/courses/ghost/enroll", gin.H{"userId": "u1"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/v1/courses/c1/enrollment/u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Incomplete", decodeData(t, w)["grade"])

	w = f.do(t, http.MethodDelete, "/v1/courses/c1/enroll", gin.H{"userId": "u1"})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/v1/courses/c1/enrollment/u1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_PublishCourse(t *testing.T) {
	f := makeFixture(t)
	f.seed(t)
	f.catalog.PutQuiz(domain.Quiz{ID: "hidden", ModuleID: "m1", AttemptsAllowed: 1, IsPublished: false})

	w := f.do(t, http.MethodPost, "/v1/courses/c1/publish", gin.H{"published": true})
	require.Equal(t, http.StatusOK, w.Code)

	q, err := f.catalog.GetQuiz(context.Background(), "hidden")
	require.NoError(t, err)
	assert.True(t, q.IsPublished)

	w = f.do(t, http.MethodPost, "/v1/courses/c1/publish", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_PublishProgressUpdated(t *testing.T) {
	f := makeFixture(t)
	f.seed(t)

	sub := f.redis.Subscribe(context.Background(), "edulane:user:u1")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(context.Background())
	require.NoError(t, err, "subscription should be established")

	w := f.do(t, http.MethodPost, "/v1/courses/c1/enroll", gin.H{"userId": "u1"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, http.MethodPut, "/v1/lessons/l1/complete", gin.H{"userId": "u1"})
	require.Equal(t, http.StatusOK, w.Code)
	f.eb.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var n api.Notification
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &n))
	assert.Equal(t, domain.EventNameProgressUpdated, n.Event)

	data := n.Data.(map[string]any)
	assert.Equal(t, "c1", data["course_id"])
	assert.Equal(t, float64(50), data["progress"])
}
