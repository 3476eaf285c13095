package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Course is the root of the content hierarchy. Only approved courses have
// published quizzes; publication is flipped in bulk on approval.
type Course struct {
	ID         string
	Title      string
	IsApproved bool
}

type Module struct {
	ID       string
	CourseID string
	Title    string
	Order    int
}

type Lesson struct {
	ID       string
	ModuleID string
	Title    string
	Order    int
}

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionCheckbox       QuestionType = "checkbox"
	QuestionTrueFalse      QuestionType = "true_false"
)

type Question struct {
	ID     string
	QuizID string
	Text   string
	Type   QuestionType
	// Options the learner picks from, in display order.
	Options []string
	// CorrectAnswer is the stored answer key. Scoring is an exact match of
	// the submitted value against this field, for checkbox questions too.
	CorrectAnswer string
	Points        decimal.Decimal
	Order         int
}

// Quiz attaches to at most one scope: course, module or lesson.
type Quiz struct {
	ID       string
	CourseID string
	ModuleID string
	LessonID string

	Title     string
	Questions []Question

	TimeLimit          int // minutes, 0 = unlimited
	PassingScore       int // 0-100
	AttemptsAllowed    int // >= 1
	RandomizeQuestions bool
	ShowCorrectAnswers bool
	IsPublished        bool
}

// TotalPoints sums the point values of all questions.
func (q Quiz) TotalPoints() decimal.Decimal {
	total := decimal.Zero
	for _, qu := range q.Questions {
		total = total.Add(qu.Points)
	}
	return total
}

// QuizScopeIDs partitions the quizzes reachable under a course by the scope
// they attach to.
type QuizScopeIDs struct {
	CourseLevel []string
	ModuleLevel []string
	LessonLevel []string
}

// All returns the ids of every scope combined.
func (s QuizScopeIDs) All() []string {
	out := make([]string, 0, len(s.CourseLevel)+len(s.ModuleLevel)+len(s.LessonLevel))
	out = append(out, s.CourseLevel...)
	out = append(out, s.ModuleLevel...)
	out = append(out, s.LessonLevel...)
	return out
}

type AttemptStatus string

const (
	AttemptPassed     AttemptStatus = "passed"
	AttemptFailed     AttemptStatus = "failed"
	AttemptIncomplete AttemptStatus = "incomplete"
)

// AnswerRecord is the graded outcome of a single question within an attempt.
type AnswerRecord struct {
	QuestionID   string          `json:"question_id"`
	Answer       string          `json:"answer"`
	Correct      bool            `json:"correct"`
	PointsEarned decimal.Decimal `json:"points_earned"`
}

// Attempt is one row per quiz submission. (UserID, QuizID, AttemptNumber)
// is unique; AttemptNumber is 1-based and assigned at submission time.
type Attempt struct {
	ID            string
	UserID        string
	QuizID        string
	Score         decimal.Decimal // points earned
	TotalPoints   decimal.Decimal
	Percentage    int // round(Score/TotalPoints*100)
	AttemptNumber int
	Answers       []AnswerRecord
	TimeTaken     int // seconds
	SubmittedAt   time.Time
	Status        AttemptStatus
}

type EnrollmentStatus string

const (
	StatusEnrolled  EnrollmentStatus = "enrolled"
	StatusCompleted EnrollmentStatus = "completed"
	StatusDropped   EnrollmentStatus = "dropped"
)

const (
	GradeIncomplete = "Incomplete"
	GradeComplete   = "Complete"
)

// Enrollment is the single record per (user, course). Progress, Status and
// Grade are only ever written by the progress recompute.
type Enrollment struct {
	ID           string
	UserID       string
	CourseID     string
	Progress     int // 0-100
	Status       EnrollmentStatus
	Grade        string // "Incomplete"/"Complete" or a "8.7"-style numeric string
	EnrolledAt   time.Time
	LastAccessed time.Time
}
