// Package engine is the client for the external workflow execution engine.
// The engine accepts start-workflow requests; everything that happens after a
// workflow starts is its concern, not this module's.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// ErrAuthRefresh indicates the credential refresh itself failed (bad API key
// or unreachable auth endpoint). Fatal for all dispatches until resolved.
var ErrAuthRefresh = errors.New("credential refresh failed")

// tokenExpiryMargin: a token is treated as valid only while more than this
// margin remains before its expiry.
const tokenExpiryMargin = 60 * time.Second

// CredentialProvider supplies a bearer token for the execution engine,
// refreshing it proactively. Injected rather than held in process-global
// state so refresh races stay testable.
type CredentialProvider interface {
	// EnsureValid returns a token with more than the expiry margin remaining,
	// authenticating first when needed.
	EnsureValid(ctx context.Context) (string, error)

	// Invalidate discards the cached token so the next EnsureValid
	// re-authenticates.
	Invalidate()
}

// APICredentialProvider authenticates against the engine's auth endpoint with
// an API key and caches the resulting token until close to expiry.
type APICredentialProvider struct {
	authURL    string
	apiKey     string
	httpClient *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewAPICredentialProvider(authURL, apiKey string, httpClient *http.Client) *APICredentialProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &APICredentialProvider{
		authURL:    authURL,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

func (p *APICredentialProvider) EnsureValid(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && time.Until(p.expiresAt) > tokenExpiryMargin {
		return p.token, nil
	}

	token, expiresAt, err := p.authenticate(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAuthRefresh, err)
	}

	p.token = token
	p.expiresAt = expiresAt

	return p.token, nil
}

func (p *APICredentialProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.token = ""
	p.expiresAt = time.Time{}
}

type authRequest struct {
	APIKey string `json:"api_key"`
}

type authResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"` // Seconds
}

func (p *APICredentialProvider) authenticate(ctx context.Context) (string, time.Time, error) {
	payload, err := json.Marshal(authRequest{APIKey: p.apiKey})
	if err != nil {
		return "", time.Time{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.authURL, bytes.NewReader(payload))
	if err != nil {
		return "", time.Time{}, err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, fmt.Errorf("auth endpoint returned status %d", resp.StatusCode)
	}

	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return "", time.Time{}, err
	}

	if auth.Token == "" {
		return "", time.Time{}, errors.New("auth endpoint returned an empty token")
	}

	return auth.Token, time.Now().Add(time.Duration(auth.ExpiresIn) * time.Second), nil
}
