package observe

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeliverOrdersByPriority(t *testing.T) {
	var order []int
	reg := NewRegistry[func()](nil)
	reg.Add(func() { order = append(order, 2) }, 2)
	reg.Add(func() { order = append(order, 0) }, 0)
	reg.Add(func() { order = append(order, 1) }, 1)

	Deliver(reg, func(fn func()) error {
		fn()
		return nil
	})

	require.Equal(t, []int{0, 1, 2}, order)
}

func TestDeliverIsolatesPanicsAndErrors(t *testing.T) {
	var hookCalls []error
	var delivered []string

	reg := NewRegistry[func() error](func(id uint64, err error) {
		hookCalls = append(hookCalls, err)
	})
	reg.Add(func() error { panic("boom") }, 0)
	reg.Add(func() error { return errors.New("explicit failure") }, 1)
	reg.Add(func() error { delivered = append(delivered, "third"); return nil }, 2)

	Deliver(reg, func(fn func() error) error { return fn() })

	require.Equal(t, []string{"third"}, delivered)
	require.Len(t, hookCalls, 2)
}

func TestRemoveStopsFurtherDelivery(t *testing.T) {
	calls := 0
	reg := NewRegistry[func()](nil)
	id := reg.Add(func() { calls++ }, 0)
	reg.Remove(id)

	Deliver(reg, func(fn func()) error {
		fn()
		return nil
	})

	require.Equal(t, 0, calls)
}
