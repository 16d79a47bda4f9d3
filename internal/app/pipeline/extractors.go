package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/PabloGalante/chatplanner/internal/domain"
)

// Extractor pulls single free-text fields out of a message. Each method is
// exactly one oracle call; results are accepted as they come back.
type Extractor struct {
	oracle      domain.Oracle
	callTimeout time.Duration
}

func NewExtractor(oracle domain.Oracle, opts Options) *Extractor {
	return &Extractor{oracle: oracle, callTimeout: opts.CallTimeout}
}

func (e *Extractor) ExtractEventTitle(ctx context.Context, q domain.Query) (string, error) {
	return e.field(ctx, domain.PurposeEventTitle, eventTitlePrompt(q), eventTitleMaxTokens)
}

func (e *Extractor) ExtractEventDescription(ctx context.Context, q domain.Query) (string, error) {
	return e.field(ctx, domain.PurposeEventDescription, eventDescriptionPrompt(q), descriptionMaxTokens)
}

func (e *Extractor) ExtractTaskTitle(ctx context.Context, q domain.Query) (string, error) {
	return e.field(ctx, domain.PurposeTaskTitle, taskTitlePrompt(q), taskTitleMaxTokens)
}

func (e *Extractor) field(ctx context.Context, p domain.Purpose, prompt string, maxTokens int) (string, error) {
	answer, err := ask(ctx, e.oracle, e.callTimeout, domain.CompletionRequest{
		Purpose:     p,
		Prompt:      prompt,
		MaxTokens:   maxTokens,
		Temperature: extractTemperature,
	})
	if err != nil {
		return "", err
	}
	return trimField(answer), nil
}

// trimField drops whitespace and the quotes the oracle likes to wrap answers in.
func trimField(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "\"'`«»“”"))
}

// ask runs one oracle call bounded by timeout (0 means no bound) and
// returns the trimmed answer.
func ask(ctx context.Context, oracle domain.Oracle, timeout time.Duration, req domain.CompletionRequest) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	res, err := oracle.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	return res.Text()
}
