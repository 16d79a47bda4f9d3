package dispatch

import (
	"context"
	"strings"
	"sync"

	"github.com/PabloGalante/chatplanner/internal/domain"
	"github.com/PabloGalante/chatplanner/internal/observability"
)

// LogSink is a dry-run backend for both events and tasks: it logs what
// would have been created and remembers it. Used when no real backend is
// configured.
type LogSink struct {
	mu     sync.Mutex
	events []domain.CalendarEvent
	tasks  []domain.Task
}

func NewLogSink() *LogSink {
	return &LogSink{}
}

func (s *LogSink) CreateEvent(ctx context.Context, ev domain.CalendarEvent) error {
	observability.LoggerFromContext(ctx).Infow("dry-run event",
		"calendar_id", ev.CalendarID,
		"summary", ev.Summary,
		"start", ev.Start.Value(),
		"end", ev.End.Value(),
	)
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
	return nil
}

func (s *LogSink) CreateTask(ctx context.Context, _ string, t domain.Task) error {
	observability.LoggerFromContext(ctx).Infow("dry-run task", "title", t.Title, "due", t.Due.Value())
	s.mu.Lock()
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()
	return nil
}

// ValidateCredential accepts any non-blank credential.
func (s *LogSink) ValidateCredential(_ context.Context, credential string) (bool, error) {
	return strings.TrimSpace(credential) != "", nil
}

func (s *LogSink) Events() []domain.CalendarEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.CalendarEvent(nil), s.events...)
}

func (s *LogSink) Tasks() []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Task(nil), s.tasks...)
}
