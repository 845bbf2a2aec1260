package otp

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aitarf0921/AI-Secretary/pkg/cache"
	"github.com/aitarf0921/AI-Secretary/pkg/knowledge"
)

type recordingSender struct {
	sent []string
	err  error
}

func (r *recordingSender) Send(_ context.Context, to, _, _ string) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, to)
	return nil
}

type fixture struct {
	svc    *Service
	cache  *cache.Memory
	store  *knowledge.Static
	sender *recordingSender
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	f.cache = cache.NewMemory(cache.WithClock(func() time.Time { return f.now }))
	t.Cleanup(func() { _ = f.cache.Close() })
	f.store = knowledge.NewStatic("", "site")
	f.sender = &recordingSender{}
	f.svc = New(f.cache, f.store, f.sender, time.Minute, nil)
	f.svc.newCode = func() (string, error) { return "042137", nil }
	return f
}

func TestRequestPendingWithinTTL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.Equal(t, StatusOK, f.svc.Request(ctx, "Visitor@Example.com"))
	assert.Equal(t, StatusPending, f.svc.Request(ctx, "visitor@example.com"))
	assert.Equal(t, []string{"visitor@example.com"}, f.sender.sent, "second request must not send")

	f.now = f.now.Add(time.Minute)
	assert.Equal(t, StatusOK, f.svc.Request(ctx, "visitor@example.com"))
	assert.Len(t, f.sender.sent, 2)
}

func TestRequestRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, bad := range []string{"", "nobody", "Name <a@example.com>", "a@localhost"} {
		assert.Equal(t, StatusRejected, f.svc.Request(ctx, bad), bad)
	}

	f.sender.err = errors.New("smtp down")
	assert.Equal(t, StatusRejected, f.svc.Request(ctx, "a@example.com"))
	_, pending := f.cache.Get(ctx, cache.EmailKey("a@example.com"))
	assert.False(t, pending, "failed send must not leave a code behind")
}

func TestVerifySingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.Equal(t, StatusOK, f.svc.Request(ctx, "a@example.com"))

	res, err := f.svc.Verify(ctx, "a@example.com", "042137")
	require.NoError(t, err)
	assert.Equal(t, StatusOK, res.Code)
	assert.Regexp(t, regexp.MustCompile(`^site_[0-9A-Za-z]{12}$`), res.SiteID)

	again, err := f.svc.Verify(ctx, "a@example.com", "042137")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, again.Code)

	assert.True(t, f.svc.Verified(ctx, "A@example.com"))
	assert.False(t, f.svc.Verified(ctx, "b@example.com"))
	f.now = f.now.Add(VerifiedTTL)
	assert.False(t, f.svc.Verified(ctx, "a@example.com"))
}

func TestVerifyReturnsExistingSite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, err := f.store.Provision(ctx, "a@example.com")
	require.NoError(t, err)
	_, err = f.store.SetKnowledge(ctx, "a@example.com", "Acme sells anvils to coyotes.")
	require.NoError(t, err)

	require.Equal(t, StatusOK, f.svc.Request(ctx, "a@example.com"))
	res, err := f.svc.Verify(ctx, "a@example.com", "042137")
	require.NoError(t, err)
	assert.Equal(t, VerifyResult{Code: StatusOK, KnowledgeContext: "Acme sells anvils to coyotes.", SiteID: rec.SiteID}, res)
}

func TestVerifyFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.Equal(t, StatusOK, f.svc.Request(ctx, "a@example.com"))

	tests := []struct {
		name  string
		email string
		code  string
		want  Status
	}{
		{name: "malformed email", email: "nope", code: "042137", want: StatusMalformed},
		{name: "malformed code", email: "a@example.com", code: "42", want: StatusMalformed},
		{name: "letters", email: "a@example.com", code: "abcdef", want: StatusMalformed},
		{name: "mismatch", email: "a@example.com", code: "000000", want: StatusRejected},
		{name: "no pending code", email: "b@example.com", code: "042137", want: StatusRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.svc.Verify(ctx, tt.email, tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Code)
		})
	}

	f.now = f.now.Add(time.Minute)
	res, err := f.svc.Verify(ctx, "a@example.com", "042137")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, res.Code, "expired code")
}

func TestRandomCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := randomCode()
		require.NoError(t, err)
		assert.True(t, validCode(code), code)
	}
}
