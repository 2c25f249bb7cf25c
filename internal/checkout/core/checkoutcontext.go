package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	apperrors "transferly/pkg/errors"
	"transferly/pkg/logger"
	"transferly/pkg/model"
)

// CheckoutContext carries one flow execution: the caller's input, values
// passed between steps and the output returned to the caller.
type CheckoutContext struct {
	Ctx     context.Context
	Input   map[string]any
	Process map[string]any
	Output  map[string]any
	Deps    *Deps
	Log     *logger.Logger

	cleanups []func()
}

func NewCheckoutContext(ctx context.Context, input map[string]any, deps *Deps, log *logger.Logger) *CheckoutContext {
	if input == nil {
		input = map[string]any{}
	}
	return &CheckoutContext{
		Ctx:     ctx,
		Input:   input,
		Process: make(map[string]any),
		Output:  make(map[string]any),
		Deps:    deps,
		Log:     log,
	}
}

// OnCleanup registers fn to run once the flow ends, whether it finished,
// failed or was cancelled. Cleanups run in reverse order of registration.
func (c *CheckoutContext) OnCleanup(fn func()) {
	c.cleanups = append(c.cleanups, fn)
}

func (c *CheckoutContext) runCleanups() {
	for i := len(c.cleanups) - 1; i >= 0; i-- {
		c.cleanups[i]()
	}
	c.cleanups = nil
}

func IsMissing(str string) bool {
	return len(strings.TrimSpace(str)) == 0
}

func MissingParamErr(paramName string) error {
	return apperrors.InvalidInput(fmt.Sprintf("required param [%v] is missing", paramName))
}

func invalidParamErr(paramName, want string) error {
	return apperrors.InvalidInput(fmt.Sprintf("param [%v] must be %s", paramName, want))
}

// RequireString returns a non-blank string input.
func (c *CheckoutContext) RequireString(key string) (string, error) {
	v, ok := c.Input[key]
	if !ok || v == nil {
		return "", MissingParamErr(key)
	}
	s, ok := v.(string)
	if !ok {
		return "", invalidParamErr(key, "a string")
	}
	if IsMissing(s) {
		return "", MissingParamErr(key)
	}
	return strings.TrimSpace(s), nil
}

// OptionalAmount reads a price given as a JSON number or numeric string.
// Absent means zero.
func (c *CheckoutContext) OptionalAmount(key string) (model.Amount, error) {
	v, ok := c.Input[key]
	if !ok || v == nil {
		return 0, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return 0, invalidParamErr(key, "an amount")
	}
	var a model.Amount
	if err := a.UnmarshalJSON(raw); err != nil {
		return 0, invalidParamErr(key, "an amount")
	}
	return a, nil
}

func (c *CheckoutContext) RequireTime(key string) (time.Time, error) {
	s, err := c.RequireString(key)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, invalidParamErr(key, "an RFC 3339 timestamp")
	}
	return t, nil
}

// Decode re-encodes the whole input into dst, which gives typed access to
// nested objects.
func (c *CheckoutContext) Decode(dst any) error {
	raw, err := json.Marshal(c.Input)
	if err != nil {
		return apperrors.InvalidInput("input is not valid JSON")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperrors.InvalidInput(fmt.Sprintf("invalid input: %v", err))
	}
	return nil
}
