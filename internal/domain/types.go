package domain

import "time"

type UserID string

type Timestamp = time.Time

// ConversationState is the per-user position in the chat dialog.
type ConversationState string

const (
	StateUnregistered             ConversationState = "unregistered"
	StateAwaitingCalendarID       ConversationState = "awaiting_calendar_id"
	StateAwaitingTaskServiceToken ConversationState = "awaiting_task_service_token"
	StateIdle                     ConversationState = "idle"                // registered, nothing pending
	StateAwaitingEventText        ConversationState = "awaiting_event_text" // menu picked "event"
	StateAwaitingTaskText         ConversationState = "awaiting_task_text"  // menu picked "task"
)

// AwaitingText reports whether the state expects free text for the pipeline.
func (s ConversationState) AwaitingText() bool {
	return s == StateAwaitingEventText || s == StateAwaitingTaskText
}
