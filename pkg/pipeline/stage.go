// Package pipeline provides the stage infrastructure of an export run.
package pipeline

import (
	"context"
	"time"

	"github.com/user/karaexport/pkg/ports"
)

// Stage is one step of an export run: preflight, export or verify.
type Stage[In, Out any] interface {
	Execute(ctx context.Context, input In) (Out, error)
}

// StageFunc adapts a function to Stage.
type StageFunc[In, Out any] func(ctx context.Context, input In) (Out, error)

func (f StageFunc[In, Out]) Execute(ctx context.Context, input In) (Out, error) {
	return f(ctx, input)
}

// Timed logs the duration of every execution of s at debug level.
func Timed[In, Out any](name string, s Stage[In, Out], log ports.Logger) Stage[In, Out] {
	return StageFunc[In, Out](func(ctx context.Context, input In) (Out, error) {
		start := time.Now()
		out, err := s.Execute(ctx, input)
		elapsed := time.Since(start).Round(time.Millisecond)
		if err != nil {
			log.Debug("Stage %s failed after %s: %v", name, elapsed, err)
		} else {
			log.Debug("Stage %s finished in %s", name, elapsed)
		}
		return out, err
	})
}
