package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SubmissionsTotal counts quiz submissions by terminal status
	// (passed, failed, rejected).
	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lms_quiz_submissions_total",
		Help: "Quiz submissions processed, labeled by outcome.",
	}, []string{"status"})

	// ProgressRecomputes counts enrollment progress recomputations.
	ProgressRecomputes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lms_progress_recomputes_total",
		Help: "Enrollment progress recomputations performed.",
	})
)
