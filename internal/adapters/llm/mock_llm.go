package llm

import (
	"context"
	"strings"
	"sync"

	"github.com/PabloGalante/chatplanner/internal/domain"
)

// MockOracle answers from per-purpose scripts. Each purpose keeps a queue of
// answers; the last answer repeats once the queue is drained. Purposes with
// no script fall back to a crude heuristic so the bot is usable locally.
type MockOracle struct {
	mu      sync.Mutex
	answers map[domain.Purpose][]string
	errs    map[domain.Purpose]error
	calls   []domain.CompletionRequest
}

func NewMockLLM() *MockOracle {
	return &MockOracle{
		answers: make(map[domain.Purpose][]string),
		errs:    make(map[domain.Purpose]error),
	}
}

// On scripts the answers returned for purpose, in order.
func (m *MockOracle) On(p domain.Purpose, answers ...string) *MockOracle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers[p] = append(m.answers[p], answers...)
	return m
}

// Fail makes every call for purpose return err.
func (m *MockOracle) Fail(p domain.Purpose, err error) *MockOracle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[p] = err
	return m
}

// Calls returns a copy of every request received so far.
func (m *MockOracle) Calls() []domain.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.CompletionRequest, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount counts requests for one purpose; an empty purpose counts all.
func (m *MockOracle) CallCount(p domain.Purpose) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p == "" {
		return len(m.calls)
	}
	n := 0
	for _, c := range m.calls {
		if c.Purpose == p {
			n++
		}
	}
	return n
}

func (m *MockOracle) Complete(ctx context.Context, req domain.CompletionRequest) (*domain.Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.calls = append(m.calls, req)
	if err := m.errs[req.Purpose]; err != nil {
		m.mu.Unlock()
		return nil, err
	}
	var text string
	queue := m.answers[req.Purpose]
	switch {
	case len(queue) > 1:
		text = queue[0]
		m.answers[req.Purpose] = queue[1:]
	case len(queue) == 1:
		text = queue[0]
	default:
		text = heuristicAnswer(req)
	}
	m.mu.Unlock()

	return &domain.Completion{
		Choices: []domain.Choice{{Message: domain.ChatMessage{Role: "assistant", Content: text}}},
	}, nil
}

// heuristicAnswer fakes a plausible answer from the quoted user message.
func heuristicAnswer(req domain.CompletionRequest) string {
	msg := quoted(req.Prompt)
	switch req.Purpose {
	case domain.PurposeClassify:
		lower := strings.ToLower(msg)
		if strings.ContainsAny(lower, "0123456789") || strings.Contains(lower, "встреч") || strings.Contains(lower, "meeting") {
			return "event"
		}
		return "task"
	case domain.PurposeEventTitle, domain.PurposeTaskTitle:
		return msg
	case domain.PurposeEventDescription:
		return ""
	case domain.PurposeTimeFrom, domain.PurposeTimeTo:
		lower := strings.ToLower(msg)
		if strings.Contains(lower, "послезавтра") || strings.Contains(lower, "завтра") || strings.Contains(lower, "tomorrow") {
			return "[" + lower + "]"
		}
		return "[]"
	default:
		return ""
	}
}

// quoted returns the text between the first «...» pair of a prompt.
func quoted(prompt string) string {
	start := strings.Index(prompt, "«")
	if start < 0 {
		return ""
	}
	rest := prompt[start+len("«"):]
	end := strings.Index(rest, "»")
	if end < 0 {
		return rest
	}
	return rest[:end]
}
