// Package synthesizer turns retrieved passages and a question into a
// context-grounded answer via an OpenAI-compatible chat completions endpoint.
package synthesizer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"policyqa/internal/domain"
)

const systemPrompt = `You are an expert insurance policy analyst.
Based ONLY on the context provided from a policy document, answer the user's question.
Do not use any external knowledge or make assumptions.
If the answer cannot be found in the provided context, state that clearly.`

const emptyCompletionAnswer = "The model returned an empty response for this question."

// Client generates grounded answers. A transient failure is retried once;
// generation is not retried aggressively since providers may charge or
// rate-limit per call.
type Client struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// Config configures the chat completions client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// NewClient creates a synthesizer client. The API key is read from the
// environment variable named by APIKeyEnv.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	clientConfig := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}
	return &Client{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Synthesize answers the question using only the supplied passages.
func (c *Client) Synthesize(ctx context.Context, question string, passages []domain.RetrievedPassage) (string, error) {
	prompt := buildPrompt(question, passages)
	answer, err := c.complete(ctx, prompt)
	if err != nil && transient(err) {
		answer, err = c.complete(ctx, prompt)
	}
	if err != nil {
		return "", &domain.GenerationError{Question: question, Err: err}
	}
	return answer, nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: 0,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return emptyCompletionAnswer, nil
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return emptyCompletionAnswer, nil
	}
	return answer, nil
}

// buildPrompt inlines the retrieved passages verbatim, separated by blank
// lines, followed by the question.
func buildPrompt(question string, passages []domain.RetrievedPassage) string {
	texts := make([]string, 0, len(passages))
	for _, p := range passages {
		texts = append(texts, p.Text)
	}
	var b strings.Builder
	b.WriteString("CONTEXT:\n---\n")
	b.WriteString(strings.Join(texts, "\n\n"))
	b.WriteString("\n---\n\nQUESTION: ")
	b.WriteString(question)
	b.WriteString("\n\nANSWER:")
	return b.String()
}

func transient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	return true
}
