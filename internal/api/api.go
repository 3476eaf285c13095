package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/edulane/edulane/internal/catalog"
	"github.com/edulane/edulane/internal/domain"
	"github.com/edulane/edulane/internal/enrollment"
	"github.com/edulane/edulane/internal/errors"
	"github.com/edulane/edulane/internal/event"
	"github.com/edulane/edulane/internal/grade"
	"github.com/edulane/edulane/internal/progress"
	"github.com/edulane/edulane/internal/submission"
)

type Config struct {
	Router       gin.IRouter
	EventBus     *event.Bus
	Catalog      *catalog.Service
	Enrollments  *enrollment.Service
	Grades       *grade.Service
	Progress     *progress.Service
	Submissions  *submission.Service
	Redis        Redis
	PubsubPrefix string
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// API is the JSON/HTTP surface of the progress and grading engine. The
// upstream gateway authenticates requests; handlers trust the user ids they
// receive.
type API struct {
	catalog     *catalog.Service
	enrollments *enrollment.Service
	grades      *grade.Service
	progress    *progress.Service
	submissions *submission.Service

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		catalog:     c.Catalog,
		enrollments: c.Enrollments,
		grades:      c.Grades,
		progress:    c.Progress,
		submissions: c.Submissions,
		redis:       c.Redis,
		prefix:      c.PubsubPrefix,
	}

	v1 := c.Router.Group("/v1")
	v1.POST("/quiz/submit", a.SubmitQuiz)
	v1.GET("/score/:userId/:quizId", a.QuizStatus)
	v1.PUT("/lessons/:id/complete", a.CompleteLesson)
	v1.PUT("/lessons/:id/uncomplete", a.UncompleteLesson)
	v1.POST("/courses/:id/enroll", a.Enroll)
	v1.DELETE("/courses/:id/enroll", a.Unenroll)
	v1.GET("/courses/:id/enrollment/:userId", a.GetEnrollment)
	v1.GET("/courses/:id/grade/:userId", a.GetQuizGrade)
	v1.POST("/courses/:id/publish", a.PublishCourse)

	c.EventBus.Subscribe(domain.EventNameProgressUpdated, func(ctx context.Context, e event.Event) error {
		return a.PublishProgressUpdated(ctx, e.(domain.EventProgressUpdated))
	})

	return a
}

type submitQuizRequest struct {
	UserID    string         `json:"userId"`
	QuizID    string         `json:"quizId"`
	Answers   []submitAnswer `json:"answers"`
	TimeTaken int            `json:"timeTaken"`
}

type submitAnswer struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

func (a *API) SubmitQuiz(c *gin.Context) {
	var req submitQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid submission payload: %v", err)))
		return
	}

	answers := make([]submission.Answer, 0, len(req.Answers))
	for _, ans := range req.Answers {
		answers = append(answers, submission.Answer{
			QuestionID: ans.QuestionID,
			Answer:     ans.Answer,
		})
	}

	resp, err := a.submissions.Submit(c.Request.Context(), submission.SubmitRequest{
		UserID:    req.UserID,
		QuizID:    req.QuizID,
		Answers:   answers,
		TimeTaken: req.TimeTaken,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"score":        attemptJSON(resp.Attempt),
		"grade":        resp.Grade.Letter,
		"averageScore": averageJSON(resp.Grade),
		"enrollment":   enrollmentJSON(resp.Enrollment),
	}})
}

func (a *API) QuizStatus(c *gin.Context) {
	st, err := a.submissions.Status(c.Request.Context(), c.Param("userId"), c.Param("quizId"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	var latest any
	if st.Latest != nil {
		latest = attemptJSON(*st.Latest)
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"hasCompleted": st.HasCompleted,
		"latestScore":  latest,
		"attempts": gin.H{
			"used":      st.AttemptsUsed,
			"remaining": st.AttemptsRemaining,
			"canRetake": st.CanRetake,
		},
		"quiz": quizJSON(st.Quiz),
	}})
}

type userRequest struct {
	UserID string `json:"userId"`
}

func (a *API) CompleteLesson(c *gin.Context) {
	a.toggleLesson(c, a.catalog.MarkComplete)
}

func (a *API) UncompleteLesson(c *gin.Context) {
	a.toggleLesson(c, a.catalog.MarkIncomplete)
}

func (a *API) toggleLesson(c *gin.Context, toggle func(ctx context.Context, lessonID, userID string) error) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		abortWithError(c, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("userId is required")))
		return
	}

	ctx := c.Request.Context()
	lessonID := c.Param("id")

	lesson, err := a.catalog.GetLesson(ctx, lessonID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	if err := toggle(ctx, lessonID, req.UserID); err != nil {
		abortWithError(c, err)
		return
	}

	module, err := a.catalog.GetModule(ctx, lesson.ModuleID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	e, err := a.progress.Recompute(ctx, req.UserID, module.CourseID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": enrollmentJSON(e)})
}

func (a *API) Enroll(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		abortWithError(c, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("userId is required")))
		return
	}

	ctx := c.Request.Context()
	courseID := c.Param("id")

	if _, err := a.catalog.GetCourse(ctx, courseID); err != nil {
		abortWithError(c, err)
		return
	}

	e, err := a.enrollments.Enroll(ctx, req.UserID, courseID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": enrollmentJSON(e)})
}

func (a *API) Unenroll(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		abortWithError(c, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("userId is required")))
		return
	}

	if err := a.enrollments.Unenroll(c.Request.Context(), req.UserID, c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"unenrolled": true}})
}

// GetEnrollment is a learner read; it stamps last accessed as a side effect.
func (a *API) GetEnrollment(c *gin.Context) {
	e, err := a.enrollments.Touch(c.Request.Context(), c.Param("userId"), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": enrollmentJSON(e)})
}

func (a *API) GetQuizGrade(c *gin.Context) {
	sum, err := a.grades.AverageScore(c.Request.Context(), c.Param("userId"), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"grade":        sum.Letter,
		"averageScore": averageJSON(sum),
	}})
}

type publishRequest struct {
	Published *bool `json:"published"`
}

// PublishCourse is the hook the admin approval flow invokes: approving or
// rejecting a course bulk-flips publication on all its descendant quizzes.
func (a *API) PublishCourse(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Published == nil {
		abortWithError(c, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("published is required")))
		return
	}

	if err := a.catalog.SetCoursePublished(c.Request.Context(), c.Param("id"), *req.Published); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"published": *req.Published}})
}

func abortWithError(c *gin.Context, err error) {
	e := errors.Convert(err)
	c.AbortWithStatusJSON(e.HTTPStatusCode(), gin.H{
		"code":    e.Code,
		"message": e.Message,
	})
}
