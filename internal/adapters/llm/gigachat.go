package llm

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// TokenSource yields the bearer token for the chat endpoint.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	// Invalidate drops a cached token after the endpoint rejected it.
	Invalidate()
}

// StaticToken is a fixed API key.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }
func (t StaticToken) Invalidate()                          {}

// GigaChatAuth exchanges a base64 client key for short-lived access tokens
// and caches them until shortly before expiry.
type GigaChatAuth struct {
	authURL string
	authKey string
	scope   string
	http    *http.Client
	now     func() time.Time

	// bounds one token exchange, independent of whichever caller started it
	fetchTimeout time.Duration
	group        singleflight.Group

	mu          sync.Mutex
	token       string
	tokenExpire time.Time
}

func NewGigaChatAuth(authURL, authKey, scope string, httpClient *http.Client) *GigaChatAuth {
	if scope == "" {
		scope = "GIGACHAT_API_PERS"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &GigaChatAuth{
		authURL: authURL,
		authKey: authKey,
		scope:   scope,
		http:    httpClient,
		now:     time.Now,

		fetchTimeout: 20 * time.Second,
	}
}

func (a *GigaChatAuth) Token(ctx context.Context) (string, error) {
	a.mu.Lock()
	if a.token != "" && a.now().Before(a.tokenExpire) {
		tok := a.token
		a.mu.Unlock()
		return tok, nil
	}
	a.mu.Unlock()

	// concurrent sub-queries of one message all land here at once; the
	// shared fetch must not die with the first caller's deadline
	ch := a.group.DoChan("token", func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.fetchTimeout)
		defer cancel()
		return a.fetch(fctx)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return "", r.Err
		}
		return r.Val.(string), nil
	}
}

func (a *GigaChatAuth) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = ""
	a.tokenExpire = time.Time{}
}

func (a *GigaChatAuth) fetch(ctx context.Context) (string, error) {
	form := url.Values{"scope": {a.scope}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("gigachat auth: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("RqUID", uuid.NewString())
	req.Header.Set("Authorization", "Basic "+a.authKey)

	res, err := a.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("gigachat auth: %w", err)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gigachat auth status=%d body=%s", res.StatusCode, string(body))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresAt   int64  `json:"expires_at"` // unix millis
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("gigachat auth: decode: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("gigachat auth: empty access_token")
	}

	expire := a.now().Add(25 * time.Minute)
	if payload.ExpiresAt > 0 {
		expire = time.UnixMilli(payload.ExpiresAt).Add(-time.Minute)
	}

	a.mu.Lock()
	a.token = payload.AccessToken
	a.tokenExpire = expire
	a.mu.Unlock()

	return payload.AccessToken, nil
}

// NewHTTPClient returns the client used for oracle calls. GigaChat endpoints
// are served with a certificate chain that is often missing from system
// stores, hence the opt-in skipVerify.
func NewHTTPClient(timeout time.Duration, skipVerify bool) *http.Client {
	c := &http.Client{Timeout: timeout}
	if skipVerify {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		c.Transport = tr
	}
	return c
}
