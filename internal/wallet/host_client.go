package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HostClient talks to the auth bridge exposed by the host wallet app. One
// client is shared; ForSession binds it to the token of a single webview.
type HostClient struct {
	baseURL string
	client  *http.Client
}

func NewHostClient(baseURL string, timeout time.Duration) *HostClient {
	return &HostClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// ForSession returns an Authenticator for one webview. An empty token means
// the webview did not come from the host app.
func (c *HostClient) ForSession(token string) Authenticator {
	if token == "" || c.baseURL == "" {
		return Demo{}
	}
	return &hostSession{client: c, token: token}
}

type authenticateRequest struct {
	ChainID string `json:"chain_id"`
}

func (c *HostClient) authenticate(ctx context.Context, token, chain string) (Result, error) {
	body, err := json.Marshal(authenticateRequest{ChainID: chain})
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode auth request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/authenticate", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("failed to build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("auth bridge unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("auth bridge returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, fmt.Errorf("failed to decode auth response: %w", err)
	}
	if result.Status == StatusSuccess && result.WalletID == "" {
		return Result{Status: StatusFailed, Reason: "wallet id missing"}, nil
	}
	return result, nil
}

type hostSession struct {
	client *HostClient
	token  string
}

func (s *hostSession) IsInsideHostContainer(context.Context) bool {
	return true
}

func (s *hostSession) Authenticate(ctx context.Context, chain string) (Result, error) {
	return s.client.authenticate(ctx, s.token, chain)
}
