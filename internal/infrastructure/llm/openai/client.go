package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/avolkhin/findoc-analyzer/internal/core/domain"
	"github.com/avolkhin/findoc-analyzer/internal/infrastructure/resilience"
)

const maxTokens = 2048

// completionAPI is the slice of the SDK the backend needs; tests substitute it.
type completionAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Backend adapts the chat-completions API to the model backend port. All
// invocations pass through the shared rate limiter: the provider's
// requests-per-minute budget is one resource across every concurrent
// pipeline run.
type Backend struct {
	api         completionAPI
	model       string
	limiter     *rate.Limiter
	executor    *resilience.Executor
	callTimeout time.Duration
}

type Options struct {
	APIKey            string
	BaseURL           string
	Model             string
	RequestsPerMinute int
	CallTimeout       time.Duration
	Executor          *resilience.Executor
}

func New(opts Options) *Backend {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	rpm := opts.RequestsPerMinute
	if rpm <= 0 {
		rpm = 10
	}
	callTimeout := opts.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 60 * time.Second
	}

	return &Backend{
		api:         openai.NewClientWithConfig(cfg),
		model:       opts.Model,
		limiter:     rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		executor:    opts.Executor,
		callTimeout: callTimeout,
	}
}

func (b *Backend) Invoke(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return "", classifyContextError(ctx, err)
	}

	var content string
	call := func(callCtx context.Context) error {
		timeoutCtx, cancel := context.WithTimeout(callCtx, b.callTimeout)
		defer cancel()

		resp, err := b.api.CreateChatCompletion(timeoutCtx, openai.ChatCompletionRequest{
			Model:       b.model,
			Temperature: 0.2,
			MaxTokens:   maxTokens,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userPrompt},
			},
		})
		if err != nil {
			return fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return domain.NewBackendFailure(domain.FailureInvalidResponse, "backend", errors.New("empty choices"))
		}
		content = strings.TrimSpace(resp.Choices[0].Message.Content)
		if content == "" {
			return domain.NewBackendFailure(domain.FailureInvalidResponse, "backend", errors.New("empty completion text"))
		}
		return nil
	}

	var err error
	if b.executor != nil {
		err = b.executor.Execute(ctx, "backend.invoke", call, classifyBackendError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", toBackendFailure(ctx, err)
	}
	return content, nil
}
