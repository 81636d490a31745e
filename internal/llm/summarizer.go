package llm

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"summarize-backend/internal/contract"
	"summarize-backend/internal/shared/apperr"
	"summarize-backend/internal/shared/telemetry"
)

// DefaultTimeout bounds one completion call when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Summarizer builds the contract prompt for a document and performs one bounded completion call.
type Summarizer struct {
	Completer   Completer
	Contract    contract.Contract
	Model       string
	Timeout     time.Duration
	Temperature *float64
	MaxTokens   int
	// MaxPromptChars truncates the document text before prompting. Zero embeds it verbatim.
	MaxPromptChars int
}

// BuildRequest returns the two-message request for text.
func (s *Summarizer) BuildRequest(text string) Request {
	if s.MaxPromptChars > 0 {
		text = Truncate(text, s.MaxPromptChars)
	}
	return Request{
		Model: s.Model,
		Messages: []Message{
			{Role: RoleSystem, Content: s.Contract.Persona},
			{Role: RoleUser, Content: s.Contract.UserMessage(text)},
		},
		Temperature: s.Temperature,
		MaxTokens:   s.MaxTokens,
	}
}

// CacheKey identifies the completion a request would produce under the current contract.
func (s *Summarizer) CacheKey(req Request) string {
	return HashPrompt(req.Model, s.Contract.Version, PromptString(req.Messages))
}

// Summarize returns the raw completion text for req.
//
// The call is bounded by Timeout even when the provider ignores ctx. Exceeding the bound is an
// upstream timeout; cancellation of ctx by the caller is reported as canceled.
func (s *Summarizer) Summarize(ctx context.Context, req Request) (string, error) {
	if s.Completer == nil {
		return "", apperr.New(apperr.KindInternal, "completion provider is not configured", nil)
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		resp Response
		err  error
	}
	done := make(chan outcome, 1)
	start := time.Now()
	go func() {
		resp, err := s.Completer.Complete(callCtx, req)
		done <- outcome{resp: resp, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-callCtx.Done():
		out = outcome{err: callCtx.Err()}
	}

	fields := map[string]any{
		"model":       req.Model,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if out.err != nil {
		err := s.classify(ctx, callCtx, out.err)
		fields["kind"] = string(apperr.KindOf(err))
		fields["error"] = out.err
		telemetry.Warn("llm.completion_failed", fields)
		return "", err
	}
	if out.resp.PromptTokens > 0 || out.resp.CompletionTokens > 0 {
		fields["prompt_tokens"] = out.resp.PromptTokens
		fields["completion_tokens"] = out.resp.CompletionTokens
	}
	telemetry.Info("llm.completion", fields)

	text := strings.TrimSpace(out.resp.Text)
	if text == "" {
		return "", apperr.New(apperr.KindUpstream, "completion response contained no text", nil)
	}
	return text, nil
}

func (s *Summarizer) classify(parent, callCtx context.Context, err error) error {
	if errors.Is(parent.Err(), context.Canceled) {
		return apperr.New(apperr.KindCanceled, "request canceled", parent.Err())
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return apperr.New(apperr.KindUpstreamTimeout, "completion exceeded "+s.timeoutString(), err)
	}
	return ClassifyTransportError(callCtx, "upstream", err)
}

func (s *Summarizer) timeoutString() string {
	if s.Timeout <= 0 {
		return DefaultTimeout.String()
	}
	return s.Timeout.String()
}

// Truncate cuts s to at most max runes and marks the cut with "...".
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
