package identity

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

	"chatforum/pkg/config"
)

// Client implements Provider over the identity provider's REST API,
// authenticated with the secret key as a bearer token.
type Client struct {
	baseURL string
	secret  string
	httpc   *http.Client
}

func NewClient(cfg config.IdentityConfig) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("identity base_url not configured")
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("identity secret_key not configured")
	}
	return &Client{
		baseURL: base,
		secret:  cfg.SecretKey,
		httpc:   &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("identity %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) GetUser(ctx context.Context, userID string) (Profile, error) {
	if userID == "" {
		return Profile{}, fmt.Errorf("empty user id")
	}
	var p Profile
	if err := c.do(ctx, http.MethodGet, "/v1/users/"+url.PathEscape(userID), nil, &p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func (c *Client) UpdateMetadata(ctx context.Context, userID string, meta map[string]any) error {
	if userID == "" {
		return fmt.Errorf("empty user id")
	}
	payload := map[string]any{"public_metadata": meta}
	return c.do(ctx, http.MethodPatch, "/v1/users/"+url.PathEscape(userID)+"/metadata", payload, nil)
}
