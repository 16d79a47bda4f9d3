package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PabloGalante/chatplanner/internal/domain"
	"github.com/PabloGalante/chatplanner/internal/observability"
)

// ChatClient implements domain.Oracle against a chat-completions endpoint
// (GigaChat, or anything OpenAI-compatible).
type ChatClient struct {
	baseURL string
	model   string
	tokens  TokenSource
	http    *http.Client
}

func NewChatClient(baseURL, model string, tokens TokenSource, httpClient *http.Client) *ChatClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &ChatClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		tokens:  tokens,
		http:    httpClient,
	}
}

type chatRequest struct {
	Model       string               `json:"model"`
	Messages    []domain.ChatMessage `json:"messages"`
	Stream      bool                 `json:"stream"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
	Temperature float32              `json:"temperature"`
}

// Complete implements domain.Oracle.
func (c *ChatClient) Complete(ctx context.Context, in domain.CompletionRequest) (*domain.Completion, error) {
	prompt := BuildPrompt(in.Prompt)
	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []domain.ChatMessage{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User},
		},
		MaxTokens:   in.MaxTokens,
		Temperature: in.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("oracle: encode request: %w", err)
	}

	log := observability.WithFields(ctx, "purpose", in.Purpose, "temperature", in.Temperature)
	start := time.Now()

	res, err := c.do(ctx, payload)
	if err != nil {
		log.Warnw("oracle call failed", "error", err)
		return nil, err
	}
	log.Debugw("oracle call done", "elapsed_ms", time.Since(start).Milliseconds())
	return res, nil
}

func (c *ChatClient) do(ctx context.Context, payload []byte) (*domain.Completion, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("oracle: token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("oracle: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oracle: request failed: %w", err)
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode == http.StatusUnauthorized {
		c.tokens.Invalidate()
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oracle status=%d body=%s", res.StatusCode, string(body))
	}

	var out domain.Completion
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("oracle: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return nil, domain.ErrOracleEmpty
	}
	return &out, nil
}
