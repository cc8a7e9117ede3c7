package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/yenceelabs/speak-to-slides/internal/infra/logger"
	apperrors "github.com/yenceelabs/speak-to-slides/pkg/errors"
)

type fakeClient struct {
	reply string
	err   error
	calls int
}

func (f *fakeClient) Complete(_ context.Context, _ string, _ []Message, _ int, _ Tier) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func userMsg(content string) []Message {
	return []Message{{Role: RoleUser, Content: content}}
}

func TestService_PrimarySucceeds(t *testing.T) {
	t.Parallel()

	primary := &fakeClient{reply: "hello"}
	fallback := &fakeClient{reply: "never"}
	svc := New(primary, fallback, logger.NewNop())

	out, err := svc.Complete(context.Background(), "sys", userMsg("hi"), 100, TierFast)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "hello" {
		t.Fatalf("out=%q, want hello", out)
	}
	if fallback.calls != 0 {
		t.Fatalf("fallback called %d times, want 0", fallback.calls)
	}
}

func TestService_FallbackOnlyOnRateLimit(t *testing.T) {
	t.Parallel()

	primary := &fakeClient{err: errors.New("request failed: 429 rate limit exceeded")}
	fallback := &fakeClient{reply: "from fallback"}
	svc := New(primary, fallback, logger.NewNop())

	out, err := svc.Complete(context.Background(), "sys", userMsg("hi"), 100, TierFast)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "from fallback" {
		t.Fatalf("out=%q, want from fallback", out)
	}
	if fallback.calls != 1 {
		t.Fatalf("fallback called %d times, want exactly 1", fallback.calls)
	}
}

func TestService_NoFallbackOnOtherErrors(t *testing.T) {
	t.Parallel()

	primary := &fakeClient{err: errors.New("invalid request: bad model name")}
	fallback := &fakeClient{reply: "should not be used"}
	svc := New(primary, fallback, logger.NewNop())

	_, err := svc.Complete(context.Background(), "sys", userMsg("hi"), 100, TierFast)
	if err == nil {
		t.Fatalf("expected error to surface")
	}
	if !apperrors.Is(err, apperrors.ErrCodeLLMAPI) {
		t.Fatalf("code=%q, want %q", apperrors.Code(err), apperrors.ErrCodeLLMAPI)
	}
	if fallback.calls != 0 {
		t.Fatalf("fallback called %d times on a non-rate-limit error, want 0", fallback.calls)
	}
}

func TestService_RateLimitWithoutFallbackConfigured(t *testing.T) {
	t.Parallel()

	primary := &fakeClient{err: errors.New("overloaded")}
	svc := New(primary, nil, logger.NewNop())

	_, err := svc.Complete(context.Background(), "sys", userMsg("hi"), 100, TierFast)
	if err == nil {
		t.Fatalf("expected error when no fallback configured")
	}
	if !apperrors.Is(err, apperrors.ErrCodeLLMAPI) {
		t.Fatalf("code=%q, want %q", apperrors.Code(err), apperrors.ErrCodeLLMAPI)
	}
}

func TestTrimLeadingNonUser(t *testing.T) {
	t.Parallel()

	msgs := []Message{
		{Role: RoleAssistant, Content: "welcome"},
		{Role: RoleAssistant, Content: "still me"},
		{Role: RoleUser, Content: "first user turn"},
		{Role: RoleAssistant, Content: "reply"},
	}
	got := TrimLeadingNonUser(msgs)
	if len(got) != 2 {
		t.Fatalf("len=%d, want 2", len(got))
	}
	if got[0].Role != RoleUser {
		t.Fatalf("first role=%q, want user", got[0].Role)
	}

	if got := TrimLeadingNonUser([]Message{{Role: RoleAssistant, Content: "only"}}); len(got) != 0 {
		t.Fatalf("all-assistant history should trim to empty, got %d", len(got))
	}
}

func TestService_EmptyHistoryRejected(t *testing.T) {
	t.Parallel()

	primary := &fakeClient{reply: "x"}
	svc := New(primary, nil, logger.NewNop())

	_, err := svc.Complete(context.Background(), "sys",
		[]Message{{Role: RoleAssistant, Content: "hi"}}, 100, TierFast)
	if err == nil {
		t.Fatalf("expected validation error for history with no user turns")
	}
	if primary.calls != 0 {
		t.Fatalf("primary called %d times before validation, want 0", primary.calls)
	}
}

func TestIsRateLimited(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want bool
	}{
		{errors.New("429 too many requests"), true},
		{errors.New("anthropic: Overloaded"), true},
		{errors.New("rate limit hit"), true},
		{errors.New("connection refused"), false},
		{errors.New("invalid api key"), false},
	}
	for _, tc := range cases {
		if got := IsRateLimited(tc.err); got != tc.want {
			t.Fatalf("IsRateLimited(%v)=%v, want %v", tc.err, got, tc.want)
		}
	}
}
