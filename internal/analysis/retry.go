package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"vidinsight/internal/logging"
	"vidinsight/internal/services"
)

// ConnectionError reports that the inference service could not produce an
// answer: a non-transient failure, or transient failures on every attempt.
type ConnectionError struct {
	Attempts   int
	Exhausted  bool
	StatusCode int
	Status     string
	Detail     string
	Err        error
}

func (e *ConnectionError) Error() string {
	var b strings.Builder
	b.WriteString(services.ErrConnection.Error())
	if e.Exhausted {
		fmt.Fprintf(&b, ": retries exhausted after %d attempts", e.Attempts)
	} else {
		fmt.Fprintf(&b, " on attempt %d", e.Attempts)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": http %d", e.StatusCode)
		if e.Status != "" {
			b.WriteString(" ")
			b.WriteString(e.Status)
		}
	}
	if detail := strings.TrimSpace(e.Detail); detail != "" {
		b.WriteString(": ")
		b.WriteString(detail)
	}
	return b.String()
}

// Is matches services.ErrConnection.
func (e *ConnectionError) Is(target error) bool {
	return target == services.ErrConnection
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func newConnectionError(attempts int, exhausted bool, err error) *ConnectionError {
	connErr := &ConnectionError{Attempts: attempts, Exhausted: exhausted, Err: err}
	var statusErr *services.StatusError
	if errors.As(err, &statusErr) {
		connErr.StatusCode = statusErr.StatusCode
		connErr.Status = statusErr.Status
		connErr.Detail = statusErr.Message
	} else if err != nil {
		connErr.Detail = err.Error()
	}
	return connErr
}

func (a *Analyzer) generateWithRetry(ctx context.Context, logger *slog.Logger, svc Service, req GenerateRequest) (string, error) {
	attempts := a.retryAttempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		logger.Info("requesting analysis", logging.Int("attempt", attempt), logging.Int("max_attempts", attempts))
		text, err := svc.Generate(ctx, req)
		if err == nil {
			return text, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("analysis: generate interrupted: %w", ctxErr)
		}
		if errors.Is(err, services.ErrInvalidResponse) {
			return "", err
		}
		if !a.isTransient(err) {
			return "", newConnectionError(attempt, false, err)
		}
		lastErr = err
		if attempt == attempts {
			break
		}

		delay := a.retryDelay(err, attempt)
		logger.Info("transient service error, retrying",
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
		if err := a.sleep(ctx, delay); err != nil {
			return "", fmt.Errorf("analysis: retry wait interrupted: %w", err)
		}
	}

	return "", newConnectionError(attempts, true, lastErr)
}

func (a *Analyzer) isTransient(err error) bool {
	var statusErr *services.StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	if _, ok := a.codes[statusErr.StatusCode]; ok {
		return true
	}
	_, ok := a.statuses[strings.ToUpper(strings.TrimSpace(statusErr.Status))]
	return ok
}

func (a *Analyzer) retryAttempts() int {
	if a.cfg.MaxAttempts <= 0 {
		return 1
	}
	return a.cfg.MaxAttempts
}

// retryDelay returns the wait before the attempt after attempt: base*2^(n-1),
// capped by RetryMaxDelay, or the service's Retry-After when that is longer.
func (a *Analyzer) retryDelay(err error, attempt int) time.Duration {
	delay := a.backoffDelay(attempt)
	var statusErr *services.StatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > delay {
		return statusErr.RetryAfter
	}
	return delay
}

func (a *Analyzer) backoffDelay(attempt int) time.Duration {
	base := a.cfg.RetryBaseDelay
	if base <= 0 {
		return 0
	}
	if attempt <= 0 {
		attempt = 1
	}
	maxDelay := a.cfg.RetryMaxDelay

	// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, ...
	delay := base
	for i := 1; i < attempt; i++ {
		if maxDelay > 0 && delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		if delay > time.Duration(1<<62) {
			break
		}
		delay *= 2
	}
	if maxDelay > 0 && delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (a *Analyzer) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if a.sleeper != nil {
		a.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
