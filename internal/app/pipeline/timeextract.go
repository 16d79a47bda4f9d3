package pipeline

import (
	"context"
	"time"

	"github.com/PabloGalante/chatplanner/internal/app/timenorm"
	"github.com/PabloGalante/chatplanner/internal/domain"
)

// TimeExtractor asks the oracle for a "[date; time]" answer and normalizes it.
type TimeExtractor struct {
	oracle      domain.Oracle
	norm        *timenorm.Normalizer
	callTimeout time.Duration
}

func NewTimeExtractor(oracle domain.Oracle, norm *timenorm.Normalizer, opts Options) *TimeExtractor {
	if norm == nil {
		norm = timenorm.Default()
	}
	return &TimeExtractor{oracle: oracle, norm: norm, callTimeout: opts.CallTimeout}
}

// ExtractTimeFrom returns the start time of q. An answer that cannot be
// understood gives an empty descriptor, not an error.
func (t *TimeExtractor) ExtractTimeFrom(ctx context.Context, q domain.Query) (domain.TimeDescriptor, error) {
	return t.extract(ctx, q, domain.PurposeTimeFrom, timeFromPrompt(q))
}

// ExtractTimeTo returns the end time of q.
func (t *TimeExtractor) ExtractTimeTo(ctx context.Context, q domain.Query) (domain.TimeDescriptor, error) {
	return t.extract(ctx, q, domain.PurposeTimeTo, timeToPrompt(q))
}

func (t *TimeExtractor) extract(ctx context.Context, q domain.Query, p domain.Purpose, prompt string) (domain.TimeDescriptor, error) {
	answer, err := ask(ctx, t.oracle, t.callTimeout, domain.CompletionRequest{
		Purpose:     p,
		Prompt:      prompt,
		MaxTokens:   timeMaxTokens,
		Temperature: extractTemperature,
	})
	if err != nil {
		return domain.TimeDescriptor{}, err
	}
	return t.norm.Normalize(answer, q.CurrentTime), nil
}
