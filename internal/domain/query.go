package domain

import "time"

// Query is one inbound chat message. It is never mutated after creation, so
// every concurrent sub-call for the same message sees the same CurrentTime.
type Query struct {
	ClientID    UserID
	CurrentTime time.Time
	Content     string
}

// RequestType tags what a message asks for.
type RequestType int

const (
	// RequestPending means classification has not run yet.
	RequestPending RequestType = iota
	RequestEvent
	RequestGoal
	// RequestUnknown means classification ran and could not decide.
	RequestUnknown
)

func (t RequestType) String() string {
	switch t {
	case RequestPending:
		return "pending"
	case RequestEvent:
		return "event"
	case RequestGoal:
		return "goal"
	case RequestUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

func (t RequestType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// TimeDescriptor is a normalized point in time. At most one field is set:
// Date for all-day values, DateTime for timed values. Both empty means the
// time could not be resolved.
type TimeDescriptor struct {
	Date     string `json:"date,omitempty"`     // YYYY-MM-DD
	DateTime string `json:"dateTime,omitempty"` // YYYY-MM-DDTHH:MM:SS+hh:mm
}

func (d TimeDescriptor) IsEmpty() bool {
	return d.Date == "" && d.DateTime == ""
}

func (d TimeDescriptor) IsDateTime() bool {
	return d.DateTime != ""
}

// Value returns whichever field is set.
func (d TimeDescriptor) Value() string {
	if d.DateTime != "" {
		return d.DateTime
	}
	return d.Date
}

// DatePart returns the YYYY-MM-DD prefix of the descriptor, or "".
func (d TimeDescriptor) DatePart() string {
	v := d.Value()
	if len(v) < 10 {
		return v
	}
	return v[:10]
}

// Request is built incrementally while one message is parsed, then frozen
// and handed to the dispatcher.
type Request struct {
	Type     RequestType    `json:"type"`
	ClientID UserID         `json:"client_id"`
	Body     string         `json:"body"`
	TimeFrom TimeDescriptor `json:"timefrom"`
	DateTo   TimeDescriptor `json:"dateto"`
	Extra    string         `json:"extra,omitempty"`
}

// NewRequest returns an empty pending request for the given query.
func NewRequest(q Query) *Request {
	return &Request{Type: RequestPending, ClientID: q.ClientID}
}
