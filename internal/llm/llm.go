// Package llm defines the completion provider interface and the summarizer that drives it.
package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"summarize-backend/internal/shared/apperr"
)

// Completer abstracts chat-completion providers.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Message is one chat turn.
type Message struct {
	Role    string
	Content string
}

// Request is a single chat-completion call.
type Request struct {
	Model    string
	Messages []Message
	// Temperature is sent only when set; nil leaves the provider default.
	Temperature *float64
	MaxTokens   int
}

// Response carries the completion text and the usage the provider reported, if any.
type Response struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// PromptString flattens messages as "role: content" blocks.
func PromptString(messages []Message) string {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}

// HashPrompt returns the hex sha256 of the given parts joined by "|".
func HashPrompt(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// ClassifyTransportError maps a failed provider call onto the upstream error kinds.
// Errors that already carry a kind are returned as is.
func ClassifyTransportError(ctx context.Context, provider string, err error) error {
	var typed *apperr.Error
	if errors.As(err, &typed) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperr.New(apperr.KindUpstreamTimeout, provider+" completion timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return apperr.New(apperr.KindCanceled, "request canceled", err)
	}
	return apperr.New(apperr.KindUpstream, provider+" completion request failed", err)
}
