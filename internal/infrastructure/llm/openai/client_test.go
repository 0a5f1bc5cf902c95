package openai

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/avolkhin/findoc-analyzer/internal/core/domain"
	"github.com/avolkhin/findoc-analyzer/internal/infrastructure/resilience"
)

type completionFake struct {
	responses []openai.ChatCompletionResponse
	errs      []error
	calls     int
	callTimes []time.Time
}

func (f *completionFake) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	idx := f.calls
	f.calls++
	f.callTimes = append(f.callTimes, time.Now())
	if idx < len(f.errs) && f.errs[idx] != nil {
		return openai.ChatCompletionResponse{}, f.errs[idx]
	}
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return openai.ChatCompletionResponse{}, errors.New("no scripted response")
}

func respWith(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func newTestBackend(api completionAPI, exec *resilience.Executor) *Backend {
	return &Backend{
		api:         api,
		model:       "test-model",
		limiter:     rate.NewLimiter(rate.Inf, 1),
		executor:    exec,
		callTimeout: time.Second,
	}
}

func TestInvokeReturnsCompletionText(t *testing.T) {
	fake := &completionFake{responses: []openai.ChatCompletionResponse{respWith("  draft analysis  ")}}
	b := newTestBackend(fake, nil)

	got, err := b.Invoke(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if got != "draft analysis" {
		t.Fatalf("unexpected completion text: %q", got)
	}
}

func TestInvokeMapsQuotaErrorToTypedFailure(t *testing.T) {
	quotaErr := &openai.APIError{
		HTTPStatusCode: http.StatusTooManyRequests,
		Code:           "insufficient_quota",
		Message:        "You exceeded your current quota",
	}
	fake := &completionFake{errs: []error{quotaErr}}
	b := newTestBackend(fake, nil)

	_, err := b.Invoke(context.Background(), "system", "user")
	failure, ok := domain.AsBackendFailure(err)
	if !ok {
		t.Fatalf("expected BackendFailure, got %v", err)
	}
	if failure.Kind != domain.FailureQuotaExceeded {
		t.Fatalf("expected quota_exceeded kind, got %s", failure.Kind)
	}
}

func TestInvokeDoesNotRetryQuotaError(t *testing.T) {
	quotaErr := &openai.APIError{
		HTTPStatusCode: http.StatusTooManyRequests,
		Code:           "insufficient_quota",
	}
	fake := &completionFake{errs: []error{quotaErr, quotaErr, quotaErr}}
	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})
	b := newTestBackend(fake, exec)

	_, err := b.Invoke(context.Background(), "system", "user")
	if failure, ok := domain.AsBackendFailure(err); !ok || failure.Kind != domain.FailureQuotaExceeded {
		t.Fatalf("expected quota_exceeded failure, got %v", err)
	}
	if fake.calls != 1 {
		t.Fatalf("quota failures must not retry, got %d calls", fake.calls)
	}
}

func TestInvokeRetriesServerErrors(t *testing.T) {
	serverErr := &openai.APIError{HTTPStatusCode: http.StatusServiceUnavailable}
	fake := &completionFake{
		errs:      []error{serverErr, nil},
		responses: []openai.ChatCompletionResponse{{}, respWith("recovered")},
	}
	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})
	b := newTestBackend(fake, exec)

	got, err := b.Invoke(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("expected recovery after retry, got %v", err)
	}
	if got != "recovered" {
		t.Fatalf("unexpected text: %q", got)
	}
	if fake.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", fake.calls)
	}
}

func TestInvokeMapsEmptyChoicesToInvalidResponse(t *testing.T) {
	fake := &completionFake{responses: []openai.ChatCompletionResponse{{}}}
	b := newTestBackend(fake, nil)

	_, err := b.Invoke(context.Background(), "system", "user")
	failure, ok := domain.AsBackendFailure(err)
	if !ok {
		t.Fatalf("expected BackendFailure, got %v", err)
	}
	if failure.Kind != domain.FailureInvalidResponse {
		t.Fatalf("expected invalid_response kind, got %s", failure.Kind)
	}
}

func TestInvokeHonorsRateLimiterOrdering(t *testing.T) {
	fake := &completionFake{responses: []openai.ChatCompletionResponse{respWith("a"), respWith("b")}}
	b := newTestBackend(fake, nil)
	// 20ms between permitted calls.
	b.limiter = rate.NewLimiter(rate.Every(20*time.Millisecond), 1)

	if _, err := b.Invoke(context.Background(), "s", "u"); err != nil {
		t.Fatalf("first invoke: %v", err)
	}
	if _, err := b.Invoke(context.Background(), "s", "u"); err != nil {
		t.Fatalf("second invoke: %v", err)
	}
	if len(fake.callTimes) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(fake.callTimes))
	}
	if gap := fake.callTimes[1].Sub(fake.callTimes[0]); gap < 15*time.Millisecond {
		t.Fatalf("limiter did not space calls, gap = %v", gap)
	}
}

func TestInvokeMapsDeadlineToTimeoutFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	<-ctx.Done()

	fake := &completionFake{}
	b := newTestBackend(fake, nil)
	b.limiter = rate.NewLimiter(rate.Every(time.Hour), 0)

	_, err := b.Invoke(ctx, "s", "u")
	failure, ok := domain.AsBackendFailure(err)
	if !ok {
		t.Fatalf("expected BackendFailure, got %v", err)
	}
	if failure.Kind != domain.FailureTimeout {
		t.Fatalf("expected timeout kind, got %s", failure.Kind)
	}
}
