// Package todoist creates tasks through the Todoist REST API.
package todoist

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

const DefaultBaseURL = "https://api.todoist.com/rest/v2"

// Client implements domain.TaskService. The credential passed to each call
// is the user's personal API token.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

type createTaskRequest struct {
	Content     string `json:"content"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
	DueDatetime string `json:"due_datetime,omitempty"`
}

func (c *Client) CreateTask(ctx context.Context, token string, t domain.Task) error {
	body := createTaskRequest{Content: t.Title, Description: t.Description}
	if t.Due.IsDateTime() {
		body.DueDatetime = t.Due.DateTime
	} else {
		body.DueDate = t.Due.Date
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("todoist: encode task: %w", err)
	}

	res, err := c.do(ctx, http.MethodPost, "/tasks", token, payload)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusNoContent {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("todoist returned %d: %s", res.StatusCode, strings.TrimSpace(string(msg)))
	}

	var created struct {
		ID string `json:"id"`
	}
	_ = json.NewDecoder(res.Body).Decode(&created)
	observability.LoggerFromContext(ctx).Infow("todoist task created", "task_id", created.ID)
	return nil
}

// ValidateCredential lists the user's projects with token.
func (c *Client) ValidateCredential(ctx context.Context, token string) (bool, error) {
	if strings.TrimSpace(token) == "" {
		return false, nil
	}
	res, err := c.do(ctx, http.MethodGet, "/projects", token, nil)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	switch {
	case res.StatusCode == http.StatusOK:
		return true, nil
	case res.StatusCode == http.StatusUnauthorized, res.StatusCode == http.StatusForbidden:
		return false, nil
	default:
		return false, fmt.Errorf("todoist: validate token: status %d", res.StatusCode)
	}
}

func (c *Client) do(ctx context.Context, method, path, token string, payload []byte) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("todoist: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("todoist: %w", err)
	}
	return res, nil
}
