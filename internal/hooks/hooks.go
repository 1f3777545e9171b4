// Package hooks runs side effects after a mutation has been committed.
// A failing hook never changes the outcome of the mutation.
package hooks

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/MasterGowen/open-discussions/infrastructure/logger"
)

// Hook is a named side effect of a committed entity.
type Hook[T any] struct {
	Name string
	Run  func(ctx context.Context, entity T) error
}

// FailureRecorder counts failed hooks.
type FailureRecorder interface {
	RecordHookFailure(hook string)
}

// Runner executes hooks and reports their failures.
type Runner struct {
	log     logger.Logger
	metrics FailureRecorder
}

// NewRunner creates a Runner. metrics may be nil.
func NewRunner(log logger.Logger, metrics FailureRecorder) *Runner {
	if log == nil {
		log = logger.NewNop()
	}
	return &Runner{log: log, metrics: metrics}
}

// Persist runs mutate and, when it succeeds, every hook with the committed
// entity. The returned entity and error are those of mutate.
func Persist[T any](
	ctx context.Context, r *Runner, mutate func(context.Context) (T, error), hooks ...Hook[T],
) (T, error) {
	entity, err := mutate(ctx)
	if err != nil {
		return entity, err
	}

	if hookErr := Run(ctx, r, entity, hooks...); hookErr != nil {
		r.log.Error("Post-commit hooks failed", logger.Error(hookErr))
	}
	return entity, nil
}

// Run calls every hook in order, including after a failure, and returns
// the combined errors. A panicking hook counts as failed.
func Run[T any](ctx context.Context, r *Runner, entity T, hooks ...Hook[T]) error {
	var errs *multierror.Error
	for _, hook := range hooks {
		if err := r.call(ctx, hook.Name, func(ctx context.Context) error { return hook.Run(ctx, entity) }); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("hook %s: %w", hook.Name, err))
			if r.metrics != nil {
				r.metrics.RecordHookFailure(hook.Name)
			}
		}
	}
	return errs.ErrorOrNil()
}

func (r *Runner) call(ctx context.Context, name string, fn func(context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
			r.log.Error("Post-commit hook panicked", logger.String("hook", name), logger.Any("panic", p))
		}
	}()
	return fn(ctx)
}
