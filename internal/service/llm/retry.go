package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sethvargo/go-retry"

	"storyboard/internal/domain"
)

// openStream opens a completion stream, retrying transient failures up to
// MaxRetries times with an exponentially growing delay.
func (s *chatService) openStream(ctx context.Context, client ChatClient, req openai.ChatCompletionRequest) (CompletionStream, error) {
	var lastErr error
	attempt := 0
	stream, err := retry.DoValue(ctx, s.retryBackoff(), func(ctx context.Context) (CompletionStream, error) {
		if attempt > 0 {
			chatRetries.Inc()
			s.logger.Warn("retrying model request", "model", req.Model, "attempt", attempt, "error", lastErr)
		}
		attempt++

		stream, err := client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			lastErr = err
			if isTransient(err) {
				return nil, retry.RetryableError(err)
			}
			return nil, err
		}
		return stream, nil
	})
	if err == nil {
		return stream, nil
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return nil, &domain.UpstreamError{Provider: req.Model, Status: statusOf(err), Err: err}
}

func (s *chatService) retryBackoff() retry.Backoff {
	delay := s.config.RetryDelay
	if delay <= 0 {
		delay = time.Millisecond
	}
	maxRetries := max(s.config.MaxRetries, 0)
	return retry.WithMaxRetries(uint64(maxRetries), retry.NewExponential(delay))
}

// isTransient reports whether a failed request may succeed when repeated
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if status := statusOf(err); status != 0 {
		return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func statusOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
