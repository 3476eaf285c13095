package domain

const (
	EventNameAttemptRecorded = "attempt.recorded"
	EventNameProgressUpdated = "progress.updated"
)

type EventAttemptRecorded struct {
	Attempt Attempt
}

func (EventAttemptRecorded) Name() string { return EventNameAttemptRecorded }

type EventProgressUpdated struct {
	Enrollment Enrollment
}

func (EventProgressUpdated) Name() string { return EventNameProgressUpdated }
