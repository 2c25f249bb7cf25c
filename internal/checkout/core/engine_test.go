package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	apperrors "transferly/pkg/errors"
	"transferly/pkg/logger"
	"transferly/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(input map[string]any) *CheckoutContext {
	return NewCheckoutContext(context.Background(), input, &Deps{}, logger.Discard())
}

func TestEngine_RunsStepsInOrder(t *testing.T) {
	var order []string
	step := func(name string) *Step {
		return NewStep(name, func(ctx *CheckoutContext) error {
			order = append(order, name)
			ctx.Output[name] = true
			return nil
		})
	}
	engine := NewEngine(nil, NewFlow("f", step("a"), step("b"), step("c")))

	ctx := newContext(nil)
	require.NoError(t, engine.Run("f", ctx))

	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Len(t, ctx.Output, 3)
}

func TestEngine_StopsAtFirstFailure(t *testing.T) {
	var ran []string
	engine := NewEngine(nil, NewFlow("f",
		NewStep("first", func(ctx *CheckoutContext) error { ran = append(ran, "first"); return nil }),
		NewStep("second", func(ctx *CheckoutContext) error {
			ran = append(ran, "second")
			return apperrors.CardError("declined", nil)
		}),
		NewStep("third", func(ctx *CheckoutContext) error { ran = append(ran, "third"); return nil }),
	))

	err := engine.Run("f", newContext(nil))

	require.Error(t, err)
	assert.Equal(t, []string{"first", "second"}, ran)
	assert.Contains(t, err.Error(), "second step failed")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeCardError))
}

func TestEngine_UnknownFlow(t *testing.T) {
	engine := NewEngine(nil)
	err := engine.Run("nope", newContext(nil))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestEngine_CancelledContext(t *testing.T) {
	var called bool
	engine := NewEngine(nil, NewFlow("f", NewStep("s", func(ctx *CheckoutContext) error {
		called = true
		return nil
	})))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := engine.Run("f", NewCheckoutContext(ctx, nil, &Deps{}, logger.Discard()))

	assert.True(t, apperrors.HasCode(err, apperrors.CodeTimeout))
	assert.False(t, called)
}

func TestEngine_CleanupsRunOnEveryExit(t *testing.T) {
	tests := []struct {
		name      string
		second    func(ctx *CheckoutContext) error
		cancelIn1 bool
		wantRan2  bool
	}{
		{"success", func(ctx *CheckoutContext) error { return nil }, false, true},
		{"step failure", func(ctx *CheckoutContext) error { return errors.New("boom") }, false, true},
		{"cancelled between steps", func(ctx *CheckoutContext) error { return nil }, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parent, cancel := context.WithCancel(context.Background())
			defer cancel()

			var order []string
			var ran2 bool
			engine := NewEngine(NewLimiter(1), NewFlow("f",
				NewStep("first", func(ctx *CheckoutContext) error {
					ctx.OnCleanup(func() { order = append(order, "a") })
					ctx.OnCleanup(func() { order = append(order, "b") })
					if tt.cancelIn1 {
						cancel()
					}
					return nil
				}),
				NewStep("second", func(ctx *CheckoutContext) error {
					ran2 = true
					return tt.second(ctx)
				}),
			))

			_ = engine.Run("f", NewCheckoutContext(parent, nil, &Deps{}, logger.Discard()))

			assert.Equal(t, tt.wantRan2, ran2)
			assert.Equal(t, []string{"b", "a"}, order)
		})
	}
}

func TestEngine_NamesSorted(t *testing.T) {
	engine := NewEngine(nil, NewFlow("zeta"), NewFlow("alpha"), NewFlow("mid"))
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, engine.Names())
}

func TestLimiter_CapsConcurrency(t *testing.T) {
	limiter := NewLimiter(2)
	var active, peak atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = limiter.Run(context.Background(), func() error {
				n := active.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				active.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, 0, limiter.InUse())
}

func TestLimiter_GivesUpWhenContextEnds(t *testing.T) {
	limiter := NewLimiter(1)
	hold := make(chan struct{})
	go func() {
		_ = limiter.Run(context.Background(), func() error { <-hold; return nil })
	}()
	require.Eventually(t, func() bool { return limiter.InUse() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := limiter.Run(ctx, func() error { return errors.New("must not run") })

	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnavailable))
	close(hold)
}

func TestLimiter_DefaultSize(t *testing.T) {
	assert.Equal(t, DefaultMaxConcurrentFlows, cap(NewLimiter(0).slots))
}

func TestCheckoutContext_RequireString(t *testing.T) {
	ctx := newContext(map[string]any{
		"booking_id": "  b-1 ",
		"blank":      "   ",
		"number":     42,
	})

	v, err := ctx.RequireString("booking_id")
	require.NoError(t, err)
	assert.Equal(t, "b-1", v)

	for _, key := range []string{"blank", "number", "absent"} {
		_, err := ctx.RequireString(key)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput), key)
	}
}

func TestCheckoutContext_OptionalAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   map[string]any
		want    model.Amount
		wantErr bool
	}{
		{"absent", map[string]any{}, 0, false},
		{"number", map[string]any{"amount": 85.4}, 8540, false},
		{"string", map[string]any{"amount": "120.50"}, 12050, false},
		{"garbage", map[string]any{"amount": "abc"}, 0, true},
		{"object", map[string]any{"amount": map[string]any{"x": 1}}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newContext(tt.input).OptionalAmount("amount")
			if tt.wantErr {
				assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckoutContext_RequireTime(t *testing.T) {
	ctx := newContext(map[string]any{"at": "2026-03-01T09:30:00Z", "bad": "tomorrow"})

	at, err := ctx.RequireTime("at")
	require.NoError(t, err)
	assert.Equal(t, 9, at.Hour())

	_, err = ctx.RequireTime("bad")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}

func TestCheckoutContext_Decode(t *testing.T) {
	ctx := newContext(map[string]any{"name": "x", "count": 3})

	var dst struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	require.NoError(t, ctx.Decode(&dst))
	assert.Equal(t, "x", dst.Name)
	assert.Equal(t, 3, dst.Count)

	var wrong struct {
		Name int `json:"name"`
	}
	assert.True(t, apperrors.HasCode(ctx.Decode(&wrong), apperrors.CodeInvalidInput))
}
