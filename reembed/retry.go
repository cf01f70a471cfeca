// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reembed

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// maxRetryDelay caps the wait between two attempts.
const maxRetryDelay = 30 * time.Second

// backoff yields the wait before each retry: baseDelay, then doubling up to
// maxRetryDelay.
type backoff struct {
	next time.Duration
}

func (b *backoff) delay() time.Duration {
	d := b.next
	b.next = min(b.next*2, maxRetryDelay)
	return d
}

// wait blocks for d or until ctx ends, whichever comes first.
func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryWithBackoff calls operation up to maxAttempts times, waiting between
// failures. When every attempt fails the error wraps ErrRetriesExhausted and
// the last failure. If ctx ends first its error is returned alongside the
// last failure seen.
func RetryWithBackoff(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	b := &backoff{next: min(baseDelay, maxRetryDelay)}
	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return withLast(err, lastErr)
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if attempt == maxAttempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt, lastErr)
		}

		d := b.delay()
		slog.Debug("operation failed, retrying", "attempt", attempt, "maxAttempts", maxAttempts, "delay", d, "err", lastErr)
		if err := wait(ctx, d); err != nil {
			return withLast(err, lastErr)
		}
	}
}

func withLast(ctxErr, lastErr error) error {
	if lastErr == nil {
		return ctxErr
	}
	return fmt.Errorf("%w (last error: %w)", ctxErr, lastErr)
}
