package periodic

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/moffittboard/moffittboard/internal/logging"
)

type Runner struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Call task once immediately and then every interval until Stop is called or ctx is done
//
// Each call gets a context with the given timeout. Calls never overlap, a call that
// runs past the next tick delays it. Errors are logged and do not stop the runner.
func Start(ctx context.Context, name string, interval time.Duration, timeout time.Duration, task func(ctx context.Context) error) *Runner {
	ctx, cancel := context.WithCancel(ctx)
	runner := &Runner{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	logger := logging.FromContext(ctx).With(slog.String("task", name))
	ctx = logging.AddToContext(ctx, logger)

	runOnce := func() {
		taskCtx, cancelTask := context.WithTimeout(ctx, timeout)
		defer cancelTask()

		if err := task(taskCtx); err != nil {
			logger.ErrorContext(taskCtx, "Periodic task failed", "error", err)
		}
	}

	go func() {
		defer close(runner.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		runOnce()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// Prefer stopping over running when both are ready
				if ctx.Err() != nil {
					return
				}
				runOnce()
			}
		}
	}()

	return runner
}

// Cancel the runner and wait for an in-flight call to return
//
// No call starts after Stop returns. Safe to call more than once.
func (r *Runner) Stop() {
	r.once.Do(r.cancel)
	<-r.done
}
