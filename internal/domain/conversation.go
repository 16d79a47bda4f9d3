package domain

// Session is the conversation record of one user. There is exactly one per user id.
type Session struct {
	UserID    UserID
	State     ConversationState
	UpdatedAt Timestamp

	// Calendar id accepted during registration, kept until the task
	// credential is validated and the User record is written.
	PendingCalendarID string
}

// User is the registered credential record of a chat user.
type User struct {
	ClientID   UserID
	CalendarID string
	TaskToken  string // Todoist token or Notion database id, depending on the task backend
	CreatedAt  Timestamp
	UpdatedAt  Timestamp
}
