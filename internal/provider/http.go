package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// requestTimeout bounds every call to the provider; an exceeded deadline surfaces as an upstream error
var requestTimeout = 10 * time.Second

// HTTPClient implements the Client interface against the provider's REST API
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTP provider client
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// CreateSession provisions a new remote VM session with the given lease duration (seconds)
func (client *HTTPClient) CreateSession(ctx context.Context, expiresIn int) (*Session, error) {
	payload, err := json.Marshal(map[string]int{"expires_in": expiresIn})
	if err != nil {
		return nil, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, client.baseURL+"/vm", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Authorization", "Bearer "+client.apiKey)
	request.Header.Set("Content-Type", "application/json")

	response, err := client.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("session provider unreachable: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read the session provider response: %w", err)
	}

	data := new(struct {
		SessionID    string `json:"session_id"`
		AdminToken   string `json:"admin_token"`
		EmbedURL     string `json:"embed_url"`
		ErrorMessage string `json:"error"`
	})
	// A malformed body is handled just like a body with missing fields
	_ = json.Unmarshal(body, data)

	if response.StatusCode < 200 || response.StatusCode >= 300 || data.SessionID == "" || data.AdminToken == "" || data.EmbedURL == "" {
		message := data.ErrorMessage
		if message == "" {
			message = "session creation failed"
		}
		return nil, &Error{
			StatusCode: response.StatusCode,
			Message:    message,
		}
	}

	return &Session{
		SessionID:  data.SessionID,
		AdminToken: data.AdminToken,
		EmbedURL:   data.EmbedURL,
	}, nil
}

// DeleteSession terminates a remote VM session using its admin token
func (client *HTTPClient) DeleteSession(ctx context.Context, sessionID, adminToken string) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodDelete, client.baseURL+"/vm/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return err
	}
	request.Header.Set("Authorization", "Bearer "+adminToken)
	request.Header.Set("Content-Type", "application/json")

	response, err := client.client.Do(request)
	if err != nil {
		return fmt.Errorf("session provider unreachable: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		body, _ := io.ReadAll(response.Body)
		message := strings.TrimSpace(string(body))
		if message == "" {
			message = "session termination failed"
		}
		return &Error{
			StatusCode: response.StatusCode,
			Message:    message,
		}
	}
	return nil
}
