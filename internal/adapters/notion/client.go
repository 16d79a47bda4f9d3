// Package notion adds tasks as pages of a Notion database.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.notion.com/v1"
	apiVersion     = "2022-06-28"

	// StatusTodo is the select value of a freshly created task.
	StatusTodo = "Не выполнено"
)

// Database property names.
const (
	propTitle  = "Название"
	propDate   = "Дата"
	propStatus = "Статус"
)

// Client talks to the Notion API with one integration token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), token: token, http: httpClient}
}

// Page is the part of a created page the caller needs.
type Page struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// AddTask creates a page in databaseID. date may be empty.
func (c *Client) AddTask(ctx context.Context, databaseID, title, date string) (*Page, error) {
	props := map[string]any{
		propTitle: map[string]any{
			"title": []any{map[string]any{"text": map[string]any{"content": title}}},
		},
		propStatus: map[string]any{
			"select": map[string]any{"name": StatusTodo},
		},
	}
	if date != "" {
		props[propDate] = map[string]any{"date": map[string]any{"start": date}}
	}

	payload, err := json.Marshal(map[string]any{
		"parent":     map[string]any{"database_id": databaseID},
		"properties": props,
	})
	if err != nil {
		return nil, fmt.Errorf("notion: encode page: %w", err)
	}

	var page Page
	if err := c.call(ctx, http.MethodPost, "/pages", payload, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ValidateCredential reports whether databaseID is shared with the integration.
func (c *Client) ValidateCredential(ctx context.Context, databaseID string) (bool, error) {
	if strings.TrimSpace(databaseID) == "" {
		return false, nil
	}
	err := c.call(ctx, http.MethodGet, "/databases/"+databaseID, nil, nil)
	if err == nil {
		return true, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusNotFound, http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			return false, nil
		}
	}
	return false, err
}

// APIError is a non-2xx answer of the Notion API.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("notion returned %d", e.Status)
}

func (c *Client) call(ctx context.Context, method, path string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("notion: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("notion: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("notion: read response: %w", err)
	}
	if res.StatusCode/100 != 2 {
		apiErr := &APIError{Status: res.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("notion: decode response: %w", err)
	}
	return nil
}
