// Package calendar creates events in Google Calendar.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/PabloGalante/chatplanner/internal/domain"
	"github.com/PabloGalante/chatplanner/internal/observability"
)

// Google implements domain.CalendarService on the Calendar v3 API. The
// service account behind it must be given access to every user calendar.
type Google struct {
	svc *gcal.Service
}

// NewGoogle builds the client. With an empty credentialsFile the
// application default credentials are used.
func NewGoogle(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*Google, error) {
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	opts = append(opts, option.WithScopes(gcal.CalendarScope))

	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating calendar client: %w", err)
	}
	return &Google{svc: svc}, nil
}

func (g *Google) CreateEvent(ctx context.Context, ev domain.CalendarEvent) error {
	if ev.Start.IsEmpty() {
		return errors.New("event start time is required")
	}
	end := exclusiveEnd(ev.Start, ev.End)

	created, err := g.svc.Events.Insert(ev.CalendarID, &gcal.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       eventTime(ev.Start),
		End:         eventTime(end),
	}).Context(ctx).Do()
	if err != nil {
		return describe(err)
	}

	observability.LoggerFromContext(ctx).Infow("calendar event created",
		"calendar_id", ev.CalendarID,
		"event_id", created.Id,
	)
	return nil
}

// ValidateCredential reports whether calendarID is reachable with the
// service account.
func (g *Google) ValidateCredential(ctx context.Context, calendarID string) (bool, error) {
	_, err := g.svc.Calendars.Get(calendarID).Context(ctx).Do()
	if err == nil {
		return true, nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound, http.StatusForbidden, http.StatusBadRequest:
			return false, nil
		}
	}
	return false, fmt.Errorf("get calendar: %w", err)
}

func eventTime(d domain.TimeDescriptor) *gcal.EventDateTime {
	if d.IsDateTime() {
		return &gcal.EventDateTime{DateTime: d.DateTime}
	}
	return &gcal.EventDateTime{Date: d.Date}
}

// exclusiveEnd returns the end sent to the API. All-day end dates are
// exclusive there, so an all-day end on or before the start becomes the day
// after the start.
func exclusiveEnd(start, end domain.TimeDescriptor) domain.TimeDescriptor {
	if end.IsEmpty() {
		end = start
	}
	if start.IsDateTime() || end.IsDateTime() || end.Date > start.Date {
		return end
	}
	t, err := time.Parse(time.DateOnly, start.Date)
	if err != nil {
		return end
	}
	return domain.TimeDescriptor{Date: t.AddDate(0, 0, 1).Format(time.DateOnly)}
}

// describe turns an API error into the short reason shown to the user.
func describe(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return errors.New("calendar not found")
		case http.StatusForbidden, http.StatusUnauthorized:
			return errors.New("no access to the calendar")
		}
		if apiErr.Message != "" {
			return errors.New(apiErr.Message)
		}
	}
	return fmt.Errorf("calendar: %w", err)
}
