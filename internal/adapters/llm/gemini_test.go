package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/chatplanner/internal/adapters/llm"
	"github.com/PabloGalante/chatplanner/internal/domain"
)

func newGemini(t *testing.T, body string) *llm.GeminiClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, ":generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	c, err := llm.NewGeminiClient(context.Background(), llm.GeminiOptions{
		APIKey:     "g-key",
		Model:      "gemini-test",
		BaseURL:    srv.URL + "/",
		HTTPClient: srv.Client(),
	})
	require.NoError(t, err)
	return c
}

func TestGeminiComplete(t *testing.T) {
	c := newGemini(t, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Встреча с Олегом"}]}}]}`)

	res, err := c.Complete(context.Background(), domain.CompletionRequest{
		Purpose:     domain.PurposeEventTitle,
		Prompt:      "title of «встреча с Олегом»",
		MaxTokens:   10,
		Temperature: 0.2,
	})
	require.NoError(t, err)

	text, err := res.Text()
	require.NoError(t, err)
	assert.Equal(t, "Встреча с Олегом", text)
}

func TestGeminiEmptyAnswerIsNotAnError(t *testing.T) {
	c := newGemini(t, `{"candidates":[{"content":{"role":"model","parts":[{"text":""}]}}]}`)

	res, err := c.Complete(context.Background(), domain.CompletionRequest{Purpose: domain.PurposeEventDescription, Prompt: "«x»"})
	require.NoError(t, err)

	text, err := res.Text()
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestGeminiNoCandidates(t *testing.T) {
	c := newGemini(t, `{"candidates":[]}`)

	_, err := c.Complete(context.Background(), domain.CompletionRequest{Purpose: domain.PurposeClassify, Prompt: "«x»"})
	assert.ErrorIs(t, err, domain.ErrOracleEmpty)
}

func TestGeminiRequestCarriesBudget(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"event"}]}}]}`))
	}))
	t.Cleanup(srv.Close)

	c, err := llm.NewGeminiClient(context.Background(), llm.GeminiOptions{
		APIKey:     "g-key",
		BaseURL:    srv.URL + "/",
		HTTPClient: srv.Client(),
	})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), domain.CompletionRequest{
		Purpose:     domain.PurposeClassify,
		Prompt:      "«встреча»",
		MaxTokens:   10,
		Temperature: 0.7,
	})
	require.NoError(t, err)

	gen, ok := got["generationConfig"].(map[string]any)
	require.True(t, ok, "generationConfig missing: %v", got)
	assert.EqualValues(t, 10, gen["maxOutputTokens"])
	assert.InDelta(t, 0.7, gen["temperature"], 0.001)
}
