package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edulane/edulane/internal/domain"
	"github.com/edulane/edulane/internal/grade"
)

// Attempt scores travel as strings so clients never round them.

func attemptJSON(a domain.Attempt) gin.H {
	return gin.H{
		"id":            a.ID,
		"userId":        a.UserID,
		"quizId":        a.QuizID,
		"score":         a.Score.String(),
		"totalPoints":   a.TotalPoints.String(),
		"percentage":    a.Percentage,
		"attemptNumber": a.AttemptNumber,
		"answers":       a.Answers,
		"timeTaken":     a.TimeTaken,
		"dateSubmitted": a.SubmittedAt.Format(time.RFC3339),
		"status":        a.Status,
	}
}

func enrollmentJSON(e domain.Enrollment) gin.H {
	return gin.H{
		"userId":         e.UserID,
		"courseId":       e.CourseID,
		"progress":       e.Progress,
		"status":         e.Status,
		"grade":          e.Grade,
		"enrollmentDate": e.EnrolledAt.Format(time.RFC3339),
		"lastAccessed":   e.LastAccessed.Format(time.RFC3339),
	}
}

// quizJSON renders the learner-facing view of a quiz: metadata only, never
// the answer key.
func quizJSON(q domain.Quiz) gin.H {
	return gin.H{
		"id":              q.ID,
		"title":           q.Title,
		"timeLimit":       q.TimeLimit,
		"passingScore":    q.PassingScore,
		"attemptsAllowed": q.AttemptsAllowed,
		"questionCount":   len(q.Questions),
	}
}

func averageJSON(s grade.Summary) any {
	if s.AverageScore == nil {
		return nil
	}
	return s.AverageScore.StringFixed(1)
}
