// Package dispatch routes a parsed Request to the calendar or the task
// collaborator and reports the outcome.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PabloGalante/chatplanner/internal/domain"
	"github.com/PabloGalante/chatplanner/internal/observability"
)

// Outcome is the result of one dispatch. Reason is only set on failure and
// is shown to the user as is.
type Outcome struct {
	OK     bool
	Kind   domain.RequestType
	Item   string
	Reason string
}

func Success(kind domain.RequestType, item string) Outcome {
	return Outcome{OK: true, Kind: kind, Item: item}
}

func Failure(kind domain.RequestType, reason string) Outcome {
	return Outcome{Kind: kind, Reason: reason}
}

// Coordinator sends finished requests to their backend. It never retries.
type Coordinator struct {
	calendar domain.CalendarService
	tasks    domain.TaskService
	timeout  time.Duration
}

// NewCoordinator wires the two backends. timeout bounds every backend call;
// zero means unbounded.
func NewCoordinator(calendar domain.CalendarService, tasks domain.TaskService, timeout time.Duration) *Coordinator {
	return &Coordinator{calendar: calendar, tasks: tasks, timeout: timeout}
}

// Dispatch delivers req on behalf of user.
func (c *Coordinator) Dispatch(ctx context.Context, user *domain.User, req *domain.Request) Outcome {
	log := observability.WithFields(ctx, "client_id", req.ClientID, "type", req.Type)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var err error
	switch req.Type {
	case domain.RequestEvent:
		err = c.calendar.CreateEvent(ctx, domain.CalendarEvent{
			CalendarID:  user.CalendarID,
			Summary:     req.Body,
			Description: req.Extra,
			Start:       req.TimeFrom,
			End:         req.DateTo,
		})
	case domain.RequestGoal:
		err = c.tasks.CreateTask(ctx, user.TaskToken, domain.Task{
			Title:       req.Body,
			Description: req.Extra,
			Due:         req.TimeFrom,
		})
	default:
		return Failure(req.Type, fmt.Sprintf("cannot dispatch a %s request", req.Type))
	}

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warnw("backend call timed out", "timeout", c.timeout)
			return Failure(req.Type, "backend did not answer in time")
		}
		log.Warnw("backend call failed", "error", err)
		return Failure(req.Type, err.Error())
	}

	log.Infow("request dispatched", "item", req.Body)
	return Success(req.Type, req.Body)
}
