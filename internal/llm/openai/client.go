package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/oauth2"

	"summarize-backend/internal/llm"
	"summarize-backend/internal/shared/apperr"
)

const (
	// OpenAIURL is the default chat-completions endpoint.
	OpenAIURL = "https://api.openai.com/v1/chat/completions"
	// GroqURL is Groq's OpenAI-compatible chat-completions endpoint.
	GroqURL = "https://api.groq.com/openai/v1/chat/completions"

	maxErrorBody = 4 << 10
	maxBody      = 4 << 20
)

// Client implements llm.Completer against an OpenAI-compatible chat-completions endpoint.
type Client struct {
	name       string
	url        string
	httpClient *http.Client
}

// Options configures a Client.
type Options struct {
	// Name labels the provider in errors and logs. Defaults to "openai".
	Name    string
	APIKey  string
	BaseURL string
	// HTTPClient is the base transport; the bearer token is layered on top of it.
	HTTPClient *http.Client
}

// NewClient constructs a new chat-completions client.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("LLM_API_KEY is required for %s", nameOr(opts.Name))
	}
	url := strings.TrimSpace(opts.BaseURL)
	if url == "" {
		url = OpenAIURL
	}
	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{}
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.APIKey, TokenType: "Bearer"})
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	return &Client{
		name:       nameOr(opts.Name),
		url:        url,
		httpClient: oauth2.NewClient(ctx, src),
	}, nil
}

func nameOr(name string) string {
	if strings.TrimSpace(name) == "" {
		return "openai"
	}
	return name
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage,omitempty"`
}

type errorResponse struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// responseSchema is the minimal envelope a completion must have before it is read.
const responseSchema = `{
  "type": "object",
  "required": ["choices"],
  "properties": {
    "choices": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["message"],
        "properties": {
          "message": {
            "type": "object",
            "required": ["content"],
            "properties": {"content": {"type": "string", "minLength": 1}}
          }
        }
      }
    }
  }
}`

var envelope = compileSchema()

func compileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("chat_completion.json", strings.NewReader(responseSchema)); err != nil {
		panic(fmt.Sprintf("add completion schema: %v", err))
	}
	return compiler.MustCompile("chat_completion.json")
}

// Complete performs one chat-completion call.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	if strings.TrimSpace(req.Model) == "" {
		return llm.Response{}, apperr.New(apperr.KindInternal, "LLM_MODEL is required", nil)
	}
	messages := make([]chatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	body := chatRequest{Model: req.Model, Messages: messages, MaxTokens: req.MaxTokens}
	if req.Temperature != nil {
		temp := *req.Temperature
		body.Temperature = &temp
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return llm.Response{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return llm.Response{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return llm.Response{}, llm.ClassifyTransportError(ctx, c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return llm.Response{}, apperr.New(apperr.KindUpstream,
			fmt.Sprintf("%s returned status %d", c.name, resp.StatusCode), errorDetail(raw))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return llm.Response{}, llm.ClassifyTransportError(ctx, c.name, err)
	}
	return decodeResponse(c.name, raw)
}

func decodeResponse(name string, raw []byte) (llm.Response, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return llm.Response{}, apperr.New(apperr.KindUpstream, name+" response is not JSON", err)
	}
	if err := envelope.Validate(doc); err != nil {
		return llm.Response{}, apperr.New(apperr.KindUpstream, name+" response has no completion", err)
	}
	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return llm.Response{}, apperr.New(apperr.KindUpstream, name+" response could not be decoded", err)
	}
	out := llm.Response{Text: parsed.Choices[0].Message.Content, Model: parsed.Model}
	if parsed.Usage != nil {
		out.PromptTokens = parsed.Usage.PromptTokens
		out.CompletionTokens = parsed.Usage.CompletionTokens
	}
	return out, nil
}

func errorDetail(raw []byte) error {
	var parsed errorResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error != nil && parsed.Error.Message != "" {
		return fmt.Errorf("%s (%s)", parsed.Error.Message, parsed.Error.Type)
	}
	if text := strings.TrimSpace(string(raw)); text != "" {
		return fmt.Errorf("%s", text)
	}
	return nil
}

var _ llm.Completer = (*Client)(nil)
