package calendar_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/PabloGalante/chatplanner/internal/adapters/calendar"
	"github.com/PabloGalante/chatplanner/internal/app/timenorm"
	"github.com/PabloGalante/chatplanner/internal/domain"
)

func newGoogle(t *testing.T, h http.HandlerFunc) *calendar.Google {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	g, err := calendar.NewGoogle(context.Background(), "",
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	require.NoError(t, err)
	return g
}

func writeAPIError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": code, "message": msg}})
}

func TestCreateTimedEvent(t *testing.T) {
	var body map[string]any
	g := newGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/calendars/primary/events"), r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"id":"evt-1"}`))
	})

	err := g.CreateEvent(context.Background(), domain.CalendarEvent{
		CalendarID: "primary",
		Summary:    "Встреча с Олегом",
		Start:      domain.TimeDescriptor{DateTime: "2024-12-22T19:00:00+03:00"},
		End:        domain.TimeDescriptor{DateTime: "2024-12-22T20:00:00+03:00"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Встреча с Олегом", body["summary"])
	assert.Equal(t, "2024-12-22T19:00:00+03:00", body["start"].(map[string]any)["dateTime"])
	assert.Equal(t, "2024-12-22T20:00:00+03:00", body["end"].(map[string]any)["dateTime"])
}

func TestCreateAllDayEvent(t *testing.T) {
	var body map[string]any
	g := newGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"id":"evt-2"}`))
	})

	err := g.CreateEvent(context.Background(), domain.CalendarEvent{
		CalendarID: "primary",
		Summary:    "Контрольная",
		Start:      domain.TimeDescriptor{Date: "2024-12-23"},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"date": "2024-12-23"}, body["start"])
	assert.Equal(t, map[string]any{"date": "2024-12-24"}, body["end"], "all-day end is the day after the start")
}

func TestAllDayEventEndIsExclusive(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		want  string
	}{
		{"same day", "2024-12-23", "2024-12-23", "2024-12-24"},
		{"end before start", "2024-12-23", "2024-12-20", "2024-12-24"},
		{"month boundary", "2024-12-31", "", "2025-01-01"},
		{"multi-day range kept", "2024-12-23", "2024-12-26", "2024-12-26"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]any
			g := newGoogle(t, func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				_, _ = w.Write([]byte(`{"id":"evt-3"}`))
			})

			err := g.CreateEvent(context.Background(), domain.CalendarEvent{
				CalendarID: "primary",
				Start:      domain.TimeDescriptor{Date: tt.start},
				End:        domain.TimeDescriptor{Date: tt.end},
			})
			require.NoError(t, err)

			assert.Equal(t, map[string]any{"date": tt.start}, body["start"])
			assert.Equal(t, map[string]any{"date": tt.want}, body["end"])
		})
	}
}

func TestReconciledRelativeDateMakesNonEmptyRange(t *testing.T) {
	var body map[string]any
	g := newGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"id":"evt-4"}`))
	})

	from, to := timenorm.Reconcile(domain.TimeDescriptor{Date: "2024-12-23"}, domain.TimeDescriptor{})
	require.NoError(t, g.CreateEvent(context.Background(), domain.CalendarEvent{
		CalendarID: "primary",
		Summary:    "Контрольная",
		Start:      from,
		End:        to,
	}))

	assert.Equal(t, map[string]any{"date": "2024-12-23"}, body["start"])
	assert.Equal(t, map[string]any{"date": "2024-12-24"}, body["end"])
}

func TestCreateEventWithoutStart(t *testing.T) {
	g := newGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	err := g.CreateEvent(context.Background(), domain.CalendarEvent{CalendarID: "primary", Summary: "x"})
	assert.EqualError(t, err, "event start time is required")
}

func TestCreateEventReasons(t *testing.T) {
	g := newGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusNotFound, "Not Found")
	})

	err := g.CreateEvent(context.Background(), domain.CalendarEvent{
		CalendarID: "missing",
		Start:      domain.TimeDescriptor{Date: "2024-12-23"},
	})
	assert.EqualError(t, err, "calendar not found")
}

func TestValidateCredential(t *testing.T) {
	g := newGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/calendars/primary"):
			_, _ = w.Write([]byte(`{"id":"primary","summary":"Main"}`))
		case strings.HasSuffix(r.URL.Path, "/calendars/broken"):
			writeAPIError(w, http.StatusInternalServerError, "backend error")
		default:
			writeAPIError(w, http.StatusNotFound, "Not Found")
		}
	})

	ok, err := g.ValidateCredential(context.Background(), "primary")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.ValidateCredential(context.Background(), "someone-else")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = g.ValidateCredential(context.Background(), "broken")
	assert.Error(t, err)
	assert.False(t, ok)
}
