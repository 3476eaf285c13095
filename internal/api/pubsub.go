package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/edulane/edulane/internal/domain"
)

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	ProgressUpdate struct {
		CourseID string `json:"course_id"`
		Progress int    `json:"progress"`
		Status   string `json:"status"`
		Grade    string `json:"grade"`
	}
)

// PublishProgressUpdated pushes the recomputed enrollment state to the
// learner's redis channel so the frontend can refresh the progress bar
// without polling.
func (a *API) PublishProgressUpdated(ctx context.Context, e domain.EventProgressUpdated) error {
	enr := e.Enrollment

	data := ProgressUpdate{
		CourseID: enr.CourseID,
		Progress: enr.Progress,
		Status:   string(enr.Status),
		Grade:    enr.Grade,
	}

	return a.publishNotification(ctx, enr.UserID, e.Name(), data)
}

func (a *API) publishNotification(ctx context.Context, user, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, fmt.Sprintf("%s:user:%s", a.prefix, user), b).Err()
}
