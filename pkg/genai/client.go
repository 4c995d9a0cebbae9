// Package genai is the client for the hosted text-generation endpoint.
// The endpoint speaks the OpenAI chat-completion dialect, so any
// compatible backend works by pointing base_url at it.
package genai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"chatforum/pkg/config"
)

// completionClient is the slice of the SDK the client uses, kept as an
// interface for tests.
type completionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

const requestTimeout = 60 * time.Second

type Client struct {
	api       completionClient
	model     string
	maxTokens int
}

func NewClient(cfg config.GenerationConfig) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &Client{
		api:       openai.NewClientWithConfig(oc),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

// Generate sends one prompt and returns the trimmed completion text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
	}
	if c.maxTokens > 0 {
		req.MaxTokens = c.maxTokens
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Prompt renders the reply-suggestion prompt for one candidate. The
// transcript is oldest-first; option is 1-based.
func Prompt(transcript, userName string, option, total int) string {
	return fmt.Sprintf(`You are participating in a chat conversation. Below is the conversation history. Generate a natural, contextual reply specifically tailored for %[1]q based on their participation in the conversation.

CONVERSATION HISTORY:
%[2]s

USER CONTEXT: You are generating response option %[3]d of %[4]d for %[1]q.

Instructions:
- Generate a conversational reply as if you're responding specifically to %[1]q
- Keep the tone friendly and engaging
- If someone asks a question, answer it directly
- If it's a discussion, add valuable insights or ask follow-up questions
- If someone shares something, respond appropriately (congratulate, empathize, etc.)
- Keep your reply concise but meaningful (1-3 sentences)
- Don't introduce yourself or mention you're an AI
- Make each response option unique and different from the others

Reply Option %[3]d:`, userName, transcript, option, total)
}
