package domain

import (
	"context"
	"strings"
)

// Purpose labels an oracle call. It is never sent to the oracle; adapters
// use it for logging and the mock oracle uses it to pick a scripted answer.
type Purpose string

const (
	PurposeClassify         Purpose = "classify"
	PurposeEventTitle       Purpose = "event_title"
	PurposeEventDescription Purpose = "event_description"
	PurposeTaskTitle        Purpose = "task_title"
	PurposeTimeFrom         Purpose = "time_from"
	PurposeTimeTo           Purpose = "time_to"
)

// CompletionRequest is a single-prompt completion call.
type CompletionRequest struct {
	Purpose     Purpose
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// Completion mirrors the chat-completions response shape.
type Completion struct {
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Message ChatMessage `json:"message"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Text returns the content of the first choice.
func (c *Completion) Text() (string, error) {
	if c == nil || len(c.Choices) == 0 {
		return "", ErrOracleEmpty
	}
	return strings.TrimSpace(c.Choices[0].Message.Content), nil
}

// Oracle is the natural-language model the pipeline asks questions of.
// Its output is untrusted text.
type Oracle interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// CalendarEvent is the payload handed to the calendar collaborator.
type CalendarEvent struct {
	CalendarID  string
	Summary     string
	Description string
	Start       TimeDescriptor
	End         TimeDescriptor
}

// CalendarService creates events. A returned error carries the reason shown to the user.
type CalendarService interface {
	CreateEvent(ctx context.Context, ev CalendarEvent) error
	ValidateCredential(ctx context.Context, calendarID string) (bool, error)
}

// Task is the payload handed to a task sink.
type Task struct {
	Title       string
	Description string
	Due         TimeDescriptor // empty means no due date
}

// TaskService creates tasks on behalf of the user owning credential.
type TaskService interface {
	CreateTask(ctx context.Context, credential string, t Task) error
	ValidateCredential(ctx context.Context, credential string) (bool, error)
}

// UserStore persists registered users.
type UserStore interface {
	GetUser(ctx context.Context, id UserID) (*User, error)
	SaveUser(ctx context.Context, u *User) error
	DeleteUser(ctx context.Context, id UserID) error
	// ListUsers returns up to limit users ordered by id; limit <= 0 means all.
	ListUsers(ctx context.Context, limit int) ([]*User, error)
}

// SessionStore persists per-user conversation state.
type SessionStore interface {
	GetSession(ctx context.Context, id UserID) (*Session, error)
	SaveSession(ctx context.Context, s *Session) error
}
