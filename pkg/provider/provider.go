// Package provider adapts upstream language-model services to a single
// Generator capability and tries them in a fixed fallback order.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/aitarf0921/AI-Secretary/pkg/models"
)

// NoAnswerText replaces an empty upstream answer.
const NoAnswerText = "Sorry, I could not find anything useful in our knowledge base."

// Request is one generation call.
type Request struct {
	Query     string
	Knowledge string
	Model     string
}

// Generator produces an answer for a request or fails.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Failure is the diagnostic of one failed attempt. It never carries credentials.
type Failure struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Name       string `json:"name"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"httpStatus,omitempty"`
}

func (f *Failure) Error() string {
	if f.HTTPStatus != 0 {
		return fmt.Sprintf("%s/%s: %s: %s (http %d)", f.Provider, f.Model, f.Name, f.Message, f.HTTPStatus)
	}
	return fmt.Sprintf("%s/%s: %s: %s", f.Provider, f.Model, f.Name, f.Message)
}

// ExhaustedError is returned when every candidate failed.
type ExhaustedError struct {
	Attempts int
	Last     *Failure
}

func (e *ExhaustedError) Error() string {
	if e.Last == nil {
		return "no candidate models to try"
	}
	return fmt.Sprintf("all %d candidate models failed, last: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	if e.Last == nil {
		return nil
	}
	return e.Last
}

// Hints returns operator hints for the last failure, if any are known.
func (e *ExhaustedError) Hints() []string {
	if e.Last == nil || !strings.HasPrefix(e.Last.Model, "arn:aws:bedrock") {
		return nil
	}
	return []string{
		"Enable model access for the candidate models in the Bedrock console.",
		"Check that the knowledge base is ACTIVE and its data source has finished syncing.",
		"Use the same region for the knowledge base, its storage and the model ARNs.",
	}
}

// Chain tries candidates in order until one succeeds.
type Chain struct {
	generators map[string]Generator
	timeout    time.Duration
	logger     *zap.Logger
}

// NewChain creates a Chain. generators is keyed by provider name; timeout
// bounds each attempt.
func NewChain(generators map[string]Generator, timeout time.Duration, logger *zap.Logger) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{generators: generators, timeout: timeout, logger: logger}
}

// Answer asks each candidate in turn and returns the first success.
func (c *Chain) Answer(ctx context.Context, query, knowledge string, candidates []models.ProviderCandidate) (models.AnswerResult, error) {
	exhausted := &ExhaustedError{}

	for _, cand := range candidates {
		exhausted.Attempts++

		answer, err := c.attempt(ctx, cand, Request{Query: query, Knowledge: knowledge, Model: cand.Model})
		if err == nil {
			if strings.TrimSpace(answer) == "" {
				answer = NoAnswerText
			}
			return models.AnswerResult{Answer: answer, ModelUsed: cand.Model}, nil
		}

		failure := toFailure(cand, err)
		exhausted.Last = failure
		c.logger.Warn("candidate model failed, trying next",
			zap.String("provider", failure.Provider),
			zap.String("model", failure.Model),
			zap.String("name", failure.Name),
			zap.String("message", failure.Message),
			zap.Int("http_status", failure.HTTPStatus),
		)

		if ctx.Err() != nil {
			break
		}
	}

	return models.AnswerResult{}, exhausted
}

func (c *Chain) attempt(ctx context.Context, cand models.ProviderCandidate, req Request) (string, error) {
	gen, ok := c.generators[cand.Provider]
	if !ok {
		return "", &Failure{Name: "UnknownProvider", Message: "provider is not configured"}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return gen.Generate(ctx, req)
}

// toFailure maps any attempt error to a Failure tagged with the candidate.
func toFailure(cand models.ProviderCandidate, err error) *Failure {
	f := &Failure{}
	var known *Failure
	var apiErr smithy.APIError
	var status interface{ HTTPStatusCode() int }

	switch {
	case errors.As(err, &known):
		*f = *known
	case errors.Is(err, context.DeadlineExceeded):
		f.Name = "TimeoutError"
		f.Message = "attempt timed out"
	case errors.Is(err, context.Canceled):
		f.Name = "AbortError"
		f.Message = "request canceled"
	case errors.As(err, &apiErr):
		f.Name = apiErr.ErrorCode()
		f.Message = apiErr.ErrorMessage()
	default:
		f.Name = "Error"
		f.Message = err.Error()
	}
	if f.HTTPStatus == 0 && errors.As(err, &status) {
		f.HTTPStatus = status.HTTPStatusCode()
	}
	f.Provider = cand.Provider
	f.Model = cand.Model
	return f
}
