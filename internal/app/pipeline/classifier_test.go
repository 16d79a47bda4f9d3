package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/chatplanner/internal/adapters/llm"
	"github.com/PabloGalante/chatplanner/internal/app/pipeline"
	"github.com/PabloGalante/chatplanner/internal/domain"
)

// oracleFunc adapts a function to domain.Oracle.
type oracleFunc func(ctx context.Context, req domain.CompletionRequest) (*domain.Completion, error)

func (f oracleFunc) Complete(ctx context.Context, req domain.CompletionRequest) (*domain.Completion, error) {
	return f(ctx, req)
}

func answer(text string) *domain.Completion {
	return &domain.Completion{Choices: []domain.Choice{{Message: domain.ChatMessage{Role: "assistant", Content: text}}}}
}

var msk = time.FixedZone("+03:00", 3*60*60)

func query(text string) domain.Query {
	return domain.Query{
		ClientID:    "42",
		CurrentTime: time.Date(2024, 12, 21, 12, 0, 0, 0, msk),
		Content:     text,
	}
}

func TestMatchLabel(t *testing.T) {
	tests := []struct {
		answer string
		want   domain.RequestType
	}{
		{"event", domain.RequestEvent},
		{"Event.", domain.RequestEvent},
		{"Это событие", domain.RequestEvent},
		{"мероприятие", domain.RequestEvent},
		{"task", domain.RequestGoal},
		{"TODO", domain.RequestGoal},
		{"Задача", domain.RequestGoal},
		{"else", domain.RequestUnknown},
		{"", domain.RequestUnknown},
		{"не знаю", domain.RequestUnknown},
		// event keywords are checked first
		{"event or task", domain.RequestEvent},
	}
	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			assert.Equal(t, tt.want, pipeline.MatchLabel(tt.answer))
		})
	}
}

func TestResolveFirstAttempt(t *testing.T) {
	oracle := llm.NewMockLLM().On(domain.PurposeClassify, "event")
	c := pipeline.NewClassifier(oracle, pipeline.Options{})

	typ, err := c.Resolve(context.Background(), query("Встреча с Олегом завтра в 19:00"))
	require.NoError(t, err)
	assert.Equal(t, domain.RequestEvent, typ)
	assert.Equal(t, 1, oracle.CallCount(domain.PurposeClassify))
}

func TestResolveEscalatesTemperature(t *testing.T) {
	oracle := llm.NewMockLLM().On(domain.PurposeClassify, "else", "hmm", "task")
	c := pipeline.NewClassifier(oracle, pipeline.Options{})

	typ, err := c.Resolve(context.Background(), query("купить продукты"))
	require.NoError(t, err)
	assert.Equal(t, domain.RequestGoal, typ)

	calls := oracle.Calls()
	require.Len(t, calls, 3)
	for i, call := range calls {
		assert.Equal(t, domain.PurposeClassify, call.Purpose)
		assert.Equal(t, 10, call.MaxTokens)
		assert.Contains(t, call.Prompt, "«купить продукты»")
		if i > 0 {
			assert.Greater(t, call.Temperature, calls[i-1].Temperature)
		}
	}
}

func TestResolveGivesUpAfterThreeUnknowns(t *testing.T) {
	oracle := llm.NewMockLLM().On(domain.PurposeClassify, "else")
	c := pipeline.NewClassifier(oracle, pipeline.Options{})

	typ, err := c.Resolve(context.Background(), query("ммм"))
	assert.ErrorIs(t, err, domain.ErrUnclassified)
	assert.Equal(t, domain.RequestUnknown, typ)
	assert.Equal(t, 3, oracle.CallCount(""), "hard cap of three oracle calls")

	var temps []float32
	for _, call := range oracle.Calls() {
		temps = append(temps, call.Temperature)
	}
	assert.Equal(t, []float32{0.2, 0.7, 1.2}, temps)
}

func TestResolveCapsLongTemperatureLadder(t *testing.T) {
	oracle := llm.NewMockLLM().On(domain.PurposeClassify, "else")
	c := pipeline.NewClassifier(oracle, pipeline.Options{Temperatures: []float32{0.1, 0.3, 0.5, 0.7, 0.9}})

	_, err := c.Resolve(context.Background(), query("ммм"))
	assert.ErrorIs(t, err, domain.ErrUnclassified)
	assert.Equal(t, 3, oracle.CallCount(""))
}

func TestResolveTreatsTransportErrorAsUnknown(t *testing.T) {
	var calls int
	oracle := oracleFunc(func(ctx context.Context, req domain.CompletionRequest) (*domain.Completion, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection reset by peer")
		}
		return answer("event"), nil
	})
	c := pipeline.NewClassifier(oracle, pipeline.Options{})

	typ, err := c.Resolve(context.Background(), query("концерт в субботу"))
	require.NoError(t, err)
	assert.Equal(t, domain.RequestEvent, typ)
	assert.Equal(t, 3, calls)
}

func TestResolvePersistentTransportFailure(t *testing.T) {
	oracle := llm.NewMockLLM().Fail(domain.PurposeClassify, errors.New("503"))
	c := pipeline.NewClassifier(oracle, pipeline.Options{})

	_, err := c.Resolve(context.Background(), query("концерт"))
	assert.ErrorIs(t, err, domain.ErrUnclassified)
	assert.Equal(t, 3, oracle.CallCount(domain.PurposeClassify))
}

func TestResolveWithBackoff(t *testing.T) {
	oracle := llm.NewMockLLM().On(domain.PurposeClassify, "else", "event")
	c := pipeline.NewClassifier(oracle, pipeline.Options{EscalationBackoff: time.Millisecond})

	typ, err := c.Resolve(context.Background(), query("концерт"))
	require.NoError(t, err)
	assert.Equal(t, domain.RequestEvent, typ)
}

func TestResolveStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	oracle := llm.NewMockLLM()
	c := pipeline.NewClassifier(oracle, pipeline.Options{})

	_, err := c.Resolve(ctx, query("концерт"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, oracle.CallCount(""))
}

func TestClassifyCallTimeout(t *testing.T) {
	oracle := oracleFunc(func(ctx context.Context, req domain.CompletionRequest) (*domain.Completion, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	c := pipeline.NewClassifier(oracle, pipeline.Options{CallTimeout: 10 * time.Millisecond})

	typ, err := c.Classify(context.Background(), query("концерт"), 0.2)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, domain.RequestUnknown, typ)
}
