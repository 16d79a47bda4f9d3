package llm

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/PabloGalante/chatplanner/internal/domain"
)

type GeminiOptions struct {
	APIKey string // Gemini API; when empty Vertex AI is used

	ProjectID string
	Location  string

	Model string

	// BaseURL and HTTPClient override the endpoint, mostly for tests.
	BaseURL    string
	HTTPClient *http.Client
}

// GeminiClient implements domain.Oracle with Gemini, either through the
// Gemini API or Vertex AI.
type GeminiClient struct {
	client    *genai.Client
	modelName string
}

func NewGeminiClient(ctx context.Context, opts GeminiOptions) (*GeminiClient, error) {
	cfg := &genai.ClientConfig{
		HTTPClient:  opts.HTTPClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: opts.BaseURL},
	}
	if opts.APIKey != "" {
		cfg.APIKey = opts.APIKey
		cfg.Backend = genai.BackendGeminiAPI
	} else {
		if opts.ProjectID == "" || opts.Location == "" {
			return nil, fmt.Errorf("gemini: project and location are required for Vertex AI")
		}
		cfg.Project = opts.ProjectID
		cfg.Location = opts.Location
		cfg.Backend = genai.BackendVertexAI
	}

	modelName := opts.Model
	if modelName == "" || modelName == "GigaChat" {
		modelName = "gemini-2.5-flash-lite"
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &GeminiClient{
		client:    client,
		modelName: modelName,
	}, nil
}

// Complete implements domain.Oracle.
func (g *GeminiClient) Complete(ctx context.Context, in domain.CompletionRequest) (*domain.Completion, error) {
	prompt := BuildPrompt(in.Prompt)

	temp := in.Temperature
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt.System, genai.RoleUser),
		Temperature:       &temp,
		MaxOutputTokens:   int32(in.MaxTokens),
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt.User, genai.RoleUser),
	}

	res, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	// an empty answer is still an answer; only a response without
	// candidates counts as empty
	if len(res.Candidates) == 0 {
		return nil, domain.ErrOracleEmpty
	}

	return &domain.Completion{
		Choices: []domain.Choice{{Message: domain.ChatMessage{Role: "assistant", Content: res.Text()}}},
	}, nil
}
