package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/wavedash/internal/registry"
	"github.com/roach88/wavedash/internal/value"
)

func TestResults(t *testing.T) {
	u := Update(value.Number(1), value.String("x"))
	assert.Equal(t, OutcomeUpdate, u.Outcome)
	assert.Len(t, u.Values, 2)

	assert.Equal(t, OutcomeNoOp, NoOp().Outcome)

	f := Fail(errors.New("boom"))
	assert.Equal(t, OutcomeError, f.Outcome)
	assert.EqualError(t, f.Err, "boom")

	assert.Error(t, Fail(nil).Err)
	assert.EqualError(t, Failf("bad %d", 3).Err, "bad 3")
	assert.Equal(t, "noop", OutcomeNoOp.String())
}

func TestCallAccessors(t *testing.T) {
	call := Call{
		Triggers:  []value.Value{value.String("ALL")},
		State:     []value.Value{value.Number(3)},
		Triggered: []registry.Ref{registry.R("site", "value")},
	}
	assert.Equal(t, value.String("ALL"), call.Trigger(0))
	assert.True(t, value.IsAbsent(call.Trigger(1)))
	assert.Equal(t, value.Number(3), call.StateValue(0))
	assert.True(t, value.IsAbsent(call.StateValue(-1)))
	assert.True(t, call.WasTriggered(registry.R("site", "value")))
	assert.False(t, call.WasTriggered(registry.R("slider", "value")))
}

func TestHandlerFunc(t *testing.T) {
	h := HandlerFunc(func(_ context.Context, c Call) Result {
		return Update(c.Trigger(0))
	})
	res := h.Handle(context.Background(), Call{Triggers: []value.Value{value.Bool(true)}})
	assert.Equal(t, []value.Value{value.Bool(true)}, res.Values)
}
