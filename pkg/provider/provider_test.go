package provider

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aitarf0921/AI-Secretary/pkg/models"
)

type fakeGenerator struct {
	calls   map[string]int
	answers map[string]string
	errs    map[string]error
}

func newFake() *fakeGenerator {
	return &fakeGenerator{calls: map[string]int{}, answers: map[string]string{}, errs: map[string]error{}}
}

func (f *fakeGenerator) Generate(_ context.Context, req Request) (string, error) {
	f.calls[req.Model]++
	if err := f.errs[req.Model]; err != nil {
		return "", err
	}
	return f.answers[req.Model], nil
}

type statusErr struct {
	error
	status int
}

func (e statusErr) HTTPStatusCode() int { return e.status }
func (e statusErr) Unwrap() error       { return e.error }

func candidates(ids ...string) []models.ProviderCandidate {
	out := make([]models.ProviderCandidate, len(ids))
	for i, m := range ids {
		out[i] = models.ProviderCandidate{Provider: "fake", Model: m}
	}
	return out
}

func TestChainFallbackOrder(t *testing.T) {
	gen := newFake()
	gen.errs["a"] = errors.New("boom")
	gen.errs["b"] = &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "no access"}
	gen.answers["c"] = "Dear visitor, happy to help"

	chain := NewChain(map[string]Generator{"fake": gen}, time.Second, zap.NewNop())
	res, err := chain.Answer(context.Background(), "hi", "kb", candidates("a", "b", "c"))
	require.NoError(t, err)

	assert.Equal(t, "c", res.ModelUsed)
	assert.Equal(t, "Dear visitor, happy to help", res.Answer)
	assert.False(t, res.ServedFromCache)
	assert.Equal(t, map[string]int{"a": 1, "b": 1, "c": 1}, gen.calls)
}

func TestChainStopsAtFirstSuccess(t *testing.T) {
	gen := newFake()
	gen.answers["a"] = "first"

	chain := NewChain(map[string]Generator{"fake": gen}, time.Second, nil)
	res, err := chain.Answer(context.Background(), "hi", "", candidates("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, "a", res.ModelUsed)
	assert.Zero(t, gen.calls["b"])
}

func TestChainExhausted(t *testing.T) {
	gen := newFake()
	gen.errs["a"] = errors.New("first failure")
	gen.errs["b"] = statusErr{
		error:  &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"},
		status: 429,
	}

	chain := NewChain(map[string]Generator{"fake": gen}, time.Second, zap.NewNop())
	_, err := chain.Answer(context.Background(), "hi", "", candidates("a", "b"))

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 2, exhausted.Attempts)
	assert.Equal(t, &Failure{
		Provider:   "fake",
		Model:      "b",
		Name:       "ThrottlingException",
		Message:    "slow down",
		HTTPStatus: 429,
	}, exhausted.Last)
	assert.NotContains(t, err.Error(), "first failure")
}

func TestChainNoCandidates(t *testing.T) {
	chain := NewChain(map[string]Generator{}, time.Second, nil)
	_, err := chain.Answer(context.Background(), "hi", "", nil)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Nil(t, exhausted.Last)
}

func TestChainUnknownProvider(t *testing.T) {
	gen := newFake()
	gen.answers["m"] = "ok"
	chain := NewChain(map[string]Generator{"fake": gen}, time.Second, nil)

	res, err := chain.Answer(context.Background(), "hi", "", []models.ProviderCandidate{
		{Provider: "missing", Model: "x"},
		{Provider: "fake", Model: "m"},
	})
	require.NoError(t, err)
	assert.Equal(t, "m", res.ModelUsed)
}

func TestChainAttemptTimeout(t *testing.T) {
	slow := GeneratorFunc(func(ctx context.Context, _ Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	fast := GeneratorFunc(func(context.Context, Request) (string, error) { return "fast", nil })

	chain := NewChain(map[string]Generator{"slow": slow, "fast": fast}, 20*time.Millisecond, nil)
	res, err := chain.Answer(context.Background(), "hi", "", []models.ProviderCandidate{
		{Provider: "slow", Model: "s"},
		{Provider: "fast", Model: "f"},
	})
	require.NoError(t, err)
	assert.Equal(t, "f", res.ModelUsed)
}

func TestChainCanceledRequestStops(t *testing.T) {
	gen := newFake()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen.errs["a"] = context.Canceled

	chain := NewChain(map[string]Generator{"fake": gen}, time.Second, nil)
	_, err := chain.Answer(ctx, "hi", "", candidates("a", "b"))

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, "AbortError", exhausted.Last.Name)
	assert.Zero(t, gen.calls["b"])
}

func TestChainEmptyAnswer(t *testing.T) {
	gen := newFake()
	gen.answers["a"] = "  "
	chain := NewChain(map[string]Generator{"fake": gen}, time.Second, nil)

	res, err := chain.Answer(context.Background(), "hi", "", candidates("a"))
	require.NoError(t, err)
	assert.Equal(t, NoAnswerText, res.Answer)
}

func TestExhaustedHints(t *testing.T) {
	e := &ExhaustedError{Attempts: 1, Last: &Failure{Model: "arn:aws:bedrock:us-east-1::foundation-model/x"}}
	assert.Len(t, e.Hints(), 3)

	e.Last.Model = "deepseek-chat"
	assert.Empty(t, e.Hints())
}

func TestPrompts(t *testing.T) {
	sys := SystemPrompt("Who are you?", "Acme sells anvils.")
	assert.Contains(t, sys, `"Who are you?"`)
	assert.True(t, strings.HasSuffix(sys, "Acme sells anvils."))
	assert.Contains(t, UserPrompt("price?"), "Question: price?")

	tpl := BedrockTemplate("Costs $5")
	assert.Contains(t, tpl, "$search_results$")
	assert.Contains(t, tpl, "$query$")
	assert.Contains(t, tpl, "Costs 5")
	assert.NotContains(t, BedrockTemplate(""), "Site knowledge")
}
