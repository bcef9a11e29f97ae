// Package llm wraps an OpenAI-compatible chat completion API for the voice
// assistant and the skin image pre-check.
package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ErrEmptyReply is returned when the model answers with no choices.
var ErrEmptyReply = errors.New("llm: empty reply")

// Client is what the domain packages depend on.
type Client interface {
	// Chat sends a single system+user exchange and returns the reply text.
	Chat(ctx context.Context, system, user string) (string, error)
	// Vision asks prompt about an image and returns the reply text.
	Vision(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}

// Recorder receives per-call outcomes. *metrics.Metrics satisfies it.
type Recorder interface {
	Upstream(service string, err error, d time.Duration)
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	rec     Recorder
}

// NewOpenAI returns nil when no API key is configured, so callers can treat
// a nil Client as "LLM disabled".
func NewOpenAI(cfg Config, rec Recorder) *OpenAIClient {
	if cfg.APIKey == "" {
		return nil
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIClient{
		client:  openai.NewClientWithConfig(oc),
		model:   model,
		timeout: timeout,
		rec:     rec,
	}
}

func (c *OpenAIClient) Chat(ctx context.Context, system, user string) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: user})
	return c.complete(ctx, msgs, 0.3)
}

func (c *OpenAIClient) Vision(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))
	msgs := []openai.ChatCompletionMessage{{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: prompt},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL, Detail: openai.ImageURLDetailLow}},
		},
	}}
	return c.complete(ctx, msgs, 0)
}

func (c *OpenAIClient) complete(ctx context.Context, msgs []openai.ChatCompletionMessage, temperature float32) (reply string, err error) {
	start := time.Now()
	defer func() {
		if c.rec != nil {
			c.rec.Upstream("llm", err, time.Since(start))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// ExtractJSON returns the first {...} object in s, stripping markdown code
// fences models like to wrap JSON in.
func ExtractJSON(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
