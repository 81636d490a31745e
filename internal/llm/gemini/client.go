// Package gemini adapts Google's Gemini models to llm.Completer.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"summarize-backend/internal/llm"
	"summarize-backend/internal/shared/apperr"
)

// Client implements llm.Completer using the Gemini API.
type Client struct {
	client *genai.Client
}

// NewClient constructs a Gemini client authenticated with apiKey.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("LLM_API_KEY is required for gemini")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{client: client}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// Complete sends system messages as the system instruction and the rest as user content.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	if strings.TrimSpace(req.Model) == "" {
		return llm.Response{}, apperr.New(apperr.KindInternal, "LLM_MODEL is required", nil)
	}
	model := c.client.GenerativeModel(req.Model)
	if req.Temperature != nil {
		model.SetTemperature(float32(*req.Temperature))
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	system, parts := splitMessages(req.Messages)
	if system != nil {
		model.SystemInstruction = system
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return llm.Response{}, llm.ClassifyTransportError(ctx, "gemini", err)
	}
	return responseText(resp)
}

// splitMessages folds system turns into one instruction and keeps the rest as text parts.
func splitMessages(messages []llm.Message) (*genai.Content, []genai.Part) {
	var system []genai.Part
	var parts []genai.Part
	for _, m := range messages {
		if m.Role == llm.RoleSystem {
			system = append(system, genai.Text(m.Content))
			continue
		}
		parts = append(parts, genai.Text(m.Content))
	}
	if len(system) == 0 {
		return nil, parts
	}
	return &genai.Content{Parts: system}, parts
}

func responseText(resp *genai.GenerateContentResponse) (llm.Response, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return llm.Response{}, apperr.New(apperr.KindUpstream, "gemini response has no candidates", nil)
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return llm.Response{}, apperr.New(apperr.KindUpstream, "gemini response has no text", nil)
	}
	out := llm.Response{Text: sb.String()}
	if resp.UsageMetadata != nil {
		out.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

var _ llm.Completer = (*Client)(nil)
