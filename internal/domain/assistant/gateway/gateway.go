// Package gateway sends grounded prompts to a language model.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Role of a turn in the prompt history
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one message of the prompt history
type Turn struct {
	Role Role
	Text string
}

// Prompt is a system instruction plus the ordered conversation turns.
// The last turn is the message being answered.
type Prompt struct {
	System string
	Turns  []Turn
}

// Size returns the number of prompt bytes sent to the model
func (p Prompt) Size() int {
	n := len(p.System)
	for _, t := range p.Turns {
		n += len(t.Text)
	}
	return n
}

// Gateway produces a completion for a prompt
type Gateway interface {
	Complete(ctx context.Context, p Prompt) (string, error)
	Model() string
}

// ErrEmptyResponse is returned when the model answers with no text
var ErrEmptyResponse = errors.New("empty response from model")

// GeminiGateway is the Gateway backed by the Gemini API
type GeminiGateway struct {
	client *genai.Client
	model  string
}

// NewGeminiGateway creates a Gemini client for model
func NewGeminiGateway(ctx context.Context, apiKey, model string) (*GeminiGateway, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiGateway{client: client, model: model}, nil
}

// Model returns the configured model name
func (g *GeminiGateway) Model() string {
	return g.model
}

// Complete sends the prompt and returns the model's text
func (g *GeminiGateway) Complete(ctx context.Context, p Prompt) (string, error) {
	contents := make([]*genai.Content, 0, len(p.Turns))
	for _, t := range p.Turns {
		contents = append(contents, &genai.Content{
			Role:  string(t.Role),
			Parts: []*genai.Part{{Text: t.Text}},
		})
	}

	var cfg *genai.GenerateContentConfig
	if p.System != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: p.System}}},
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

var _ Gateway = (*GeminiGateway)(nil)
