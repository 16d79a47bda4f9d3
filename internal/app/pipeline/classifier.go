package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/PabloGalante/chatplanner/internal/domain"
	"github.com/PabloGalante/chatplanner/internal/observability"
)

// MaxClassifyAttempts caps how many times one message is sent for
// classification.
const MaxClassifyAttempts = 3

// DefaultTemperatures is the escalation ladder used when none is configured.
var DefaultTemperatures = []float32{0.2, 0.7, 1.2}

// label keyword sets, checked in order; the first set with a hit wins
var labelKeywords = []struct {
	typ      domain.RequestType
	keywords []string
}{
	{domain.RequestEvent, []string{"event", "событие", "мероприятие", "встреча"}},
	{domain.RequestGoal, []string{"task", "todo", "goal", "задача", "задачу", "дело"}},
}

// Classifier labels a message EVENT, GOAL or UNKNOWN.
type Classifier struct {
	oracle       domain.Oracle
	temperatures []float32
	backoff      time.Duration
	callTimeout  time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
}

func NewClassifier(oracle domain.Oracle, opts Options) *Classifier {
	temps := opts.Temperatures
	if len(temps) == 0 {
		temps = DefaultTemperatures
	}
	if len(temps) > MaxClassifyAttempts {
		temps = temps[:MaxClassifyAttempts]
	}
	return &Classifier{
		oracle:       oracle,
		temperatures: temps,
		backoff:      opts.EscalationBackoff,
		callTimeout:  opts.CallTimeout,
		sleep:        sleepCtx,
	}
}

// Classify asks the oracle once at the given temperature. An error means the
// oracle could not be reached; an unrecognized answer is RequestUnknown.
func (c *Classifier) Classify(ctx context.Context, q domain.Query, temperature float32) (domain.RequestType, error) {
	answer, err := ask(ctx, c.oracle, c.callTimeout, domain.CompletionRequest{
		Purpose:     domain.PurposeClassify,
		Prompt:      classifyPrompt(q),
		MaxTokens:   classifyMaxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return domain.RequestUnknown, err
	}
	return MatchLabel(answer), nil
}

// Resolve classifies q, escalating the temperature after every UNKNOWN or
// transport failure. It returns ErrUnclassified once the attempts run out.
func (c *Classifier) Resolve(ctx context.Context, q domain.Query) (domain.RequestType, error) {
	log := observability.WithFields(ctx, "client_id", q.ClientID)

	for attempt, temp := range c.temperatures {
		if attempt > 0 && c.backoff > 0 {
			if err := c.sleep(ctx, jittered(c.backoff, attempt)); err != nil {
				return domain.RequestUnknown, err
			}
		}

		typ, err := c.Classify(ctx, q, temp)
		if err != nil {
			if ctx.Err() != nil {
				return domain.RequestUnknown, ctx.Err()
			}
			log.Warnw("classification call failed", "attempt", attempt+1, "temperature", temp, "error", err)
			continue
		}
		if typ != domain.RequestUnknown {
			log.Debugw("message classified", "type", typ, "attempt", attempt+1)
			return typ, nil
		}
		log.Debugw("classification ambiguous", "attempt", attempt+1, "temperature", temp)
	}

	return domain.RequestUnknown, fmt.Errorf("after %d attempts: %w", len(c.temperatures), domain.ErrUnclassified)
}

// MatchLabel maps a raw classification answer onto a request type.
func MatchLabel(answer string) domain.RequestType {
	lower := strings.ToLower(answer)
	for _, set := range labelKeywords {
		for _, kw := range set.keywords {
			if strings.Contains(lower, kw) {
				return set.typ
			}
		}
	}
	return domain.RequestUnknown
}

// jittered returns base*2^(attempt-1) plus up to base of jitter.
func jittered(base time.Duration, attempt int) time.Duration {
	delay := base << uint(attempt-1)
	return delay + time.Duration(rand.Int63n(int64(base)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
