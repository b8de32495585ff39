package analysis

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"content-analyzer/internal/llm"
	"content-analyzer/internal/shared/telemetry"
	"content-analyzer/internal/shared/util"
)

const retryDelay = 300 * time.Millisecond

type retryingCompleter struct {
	base  llm.Completer
	delay time.Duration
}

// WithRetry retries a retryable inference failure once after a short pause.
func WithRetry(base llm.Completer) llm.Completer {
	if base == nil {
		return nil
	}
	if _, ok := base.(retryingCompleter); ok {
		return base
	}
	return retryingCompleter{base: base, delay: retryDelay}
}

func (r retryingCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	answer, err := r.base.Complete(ctx, req)
	if err == nil || !shouldRetry(ctx, err) {
		return answer, err
	}

	telemetry.Warn("llm.retry", map[string]any{"attempt": 1, "error": util.SanitizeError(err)})
	select {
	case <-time.After(r.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return r.base.Complete(ctx, req)
}

func shouldRetry(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"timeout",
		"throttl",
		"connection reset",
		"connection refused",
		"broken pipe",
		"unexpected eof",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
