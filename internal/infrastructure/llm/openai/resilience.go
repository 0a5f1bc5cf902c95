package openai

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/avolkhin/findoc-analyzer/internal/core/domain"
	"github.com/avolkhin/findoc-analyzer/internal/infrastructure/resilience"
)

func classifyBackendError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	if isQuotaError(err) {
		// Exhausted quota does not recover within a retry budget.
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if isRetryableHTTPStatus(apiErr.HTTPStatusCode) {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}

	var failure *domain.BackendFailure
	if errors.As(err, &failure) {
		// Malformed completions occasionally succeed on a second attempt.
		return resilience.ErrorClassification{
			Retryable:     failure.Kind == domain.FailureInvalidResponse,
			RecordFailure: false,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

// toBackendFailure folds any invocation error into the typed failure the
// orchestrator branches on. Nothing escapes as an untyped error.
func toBackendFailure(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if failure, ok := domain.AsBackendFailure(err); ok {
		return failure
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewBackendFailure(domain.FailureTimeout, "backend", err)
	}
	if errors.Is(err, context.Canceled) {
		return classifyContextError(ctx, err)
	}
	if isQuotaError(err) {
		return domain.NewBackendFailure(domain.FailureQuotaExceeded, "backend", err)
	}
	return domain.NewBackendFailure(domain.FailureOther, "backend", err)
}

func classifyContextError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.NewBackendFailure(domain.FailureTimeout, "backend", err)
	}
	return domain.NewBackendFailure(domain.FailureOther, "backend", err)
}

func isQuotaError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if code, ok := apiErr.Code.(string); ok && code == "insufficient_quota" {
			return true
		}
		if apiErr.Type == "insufficient_quota" {
			return true
		}
	}
	return strings.Contains(err.Error(), "insufficient_quota")
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
