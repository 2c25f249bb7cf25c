package core

import (
	"fmt"
	"net/http"
	"sort"
	apperrors "transferly/pkg/errors"
)

type Engine struct {
	flows   map[string]Flow
	limiter *Limiter
}

func NewEngine(limiter *Limiter, flows ...Flow) *Engine {
	m := map[string]Flow{}
	for _, f := range flows {
		m[f.Name()] = f
	}
	return &Engine{flows: m, limiter: limiter}
}

// Run executes the named flow's steps in order and stops at the first
// failing step. The step error is wrapped, so its AppError code survives.
func (e *Engine) Run(flowName string, ctx *CheckoutContext) error {
	f, exists := e.flows[flowName]
	if !exists {
		return apperrors.NotFound(fmt.Sprintf("flow %q", flowName))
	}

	run := func() error {
		defer ctx.runCleanups()
		for _, step := range f.Steps() {
			if err := ctx.Ctx.Err(); err != nil {
				return apperrors.Wrap(err, apperrors.CodeTimeout, "request cancelled before "+step.Name, http.StatusGatewayTimeout)
			}
			ctx.Log.Debug("running step", "flow", flowName, "step", step.Name)
			if err := step.Execute(ctx); err != nil {
				return fmt.Errorf("%s step failed: %w", step.Name, err)
			}
		}
		return nil
	}

	if e.limiter == nil {
		return run()
	}
	return e.limiter.Run(ctx.Ctx, run)
}

// Names lists the registered flows in alphabetical order.
func (e *Engine) Names() []string {
	names := make([]string, 0, len(e.flows))
	for name := range e.flows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
