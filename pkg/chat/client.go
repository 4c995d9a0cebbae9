package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"chatforum/pkg/config"
	"chatforum/pkg/models"
)

// Client implements Backend over the chat provider's REST API. Requests
// carry the app key as a query parameter and a server-scoped token in
// the Authorization header.
type Client struct {
	baseURL     string
	apiKey      string
	apiSecret   string
	httpc       *http.Client
	serverToken string
}

func NewClient(cfg config.ChatConfig) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("chat base_url not configured")
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	tok, err := signToken(cfg.APISecret, map[string]any{"server": true})
	if err != nil {
		return nil, fmt.Errorf("mint server token: %w", err)
	}
	return &Client{
		baseURL:     base,
		apiKey:      cfg.APIKey,
		apiSecret:   cfg.APISecret,
		httpc:       &http.Client{Timeout: 15 * time.Second},
		serverToken: tok,
	}, nil
}

func (c *Client) CreateToken(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("empty user id")
	}
	return signToken(c.apiSecret, map[string]any{"user_id": userID})
}

// do issues one request and decodes the response into out (when non-nil).
// Non-2xx statuses become errors carrying the trimmed body.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any) error {
	u := c.baseURL + path
	if q == nil {
		q = url.Values{}
	}
	q.Set("api_key", c.apiKey)
	u += "?" + q.Encode()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.serverToken)
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
		return fmt.Errorf("chat backend %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) UpsertUser(ctx context.Context, u User) error {
	if u.ID == "" {
		return fmt.Errorf("empty user id")
	}
	payload := map[string]map[string]User{"users": {u.ID: u}}
	return c.do(ctx, http.MethodPost, "/users", nil, payload, nil)
}

func (c *Client) EnsureChannel(ctx context.Context, ch Channel) error {
	if ch.Type == "" || ch.ID == "" {
		return fmt.Errorf("channel type and id required")
	}
	payload := map[string]any{
		"data": map[string]any{
			"name":          ch.Name,
			"image":         ch.Image,
			"created_by_id": ch.CreatedBy,
			"members":       ch.Members,
		},
	}
	path := fmt.Sprintf("/channels/%s/%s", url.PathEscape(ch.Type), url.PathEscape(ch.ID))
	return c.do(ctx, http.MethodPost, path, nil, payload, nil)
}

func (c *Client) AddMembers(ctx context.Context, channelType, channelID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	payload := map[string]any{"add_members": userIDs}
	path := fmt.Sprintf("/channels/%s/%s/members", url.PathEscape(channelType), url.PathEscape(channelID))
	return c.do(ctx, http.MethodPost, path, nil, payload, nil)
}

func (c *Client) Messages(ctx context.Context, channelType, channelID string, limit int) ([]models.RawMessage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := fmt.Sprintf("/channels/%s/%s/messages", url.PathEscape(channelType), url.PathEscape(channelID))
	var out struct {
		Messages []models.RawMessage `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, path, q, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (c *Client) SendMessage(ctx context.Context, channelType, channelID string, msg models.RawMessage) (models.RawMessage, error) {
	path := fmt.Sprintf("/channels/%s/%s/message", url.PathEscape(channelType), url.PathEscape(channelID))
	var out struct {
		Message models.RawMessage `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, path, nil, map[string]any{"message": msg}, &out); err != nil {
		return models.RawMessage{}, err
	}
	return out.Message, nil
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, nil)
}
