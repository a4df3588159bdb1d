package coordinate

import (
	"context"

	"taskrun/internal/phase"
	"taskrun/internal/runsnap"
	"taskrun/internal/runspec"
)

// CompositeCoordinator evaluates its children left to right and returns
// the first non-Continue signal, remembering which child produced it so
// ExecState delegates to that same child. Release releases every child,
// so a slot taken by a child that returned Continue is freed as well. If
// every child returns Continue, the composite itself returns Continue.
type CompositeCoordinator struct {
	children []Coordinator
	current  Coordinator
}

// Composite chains coordinators: each must signal Continue before the
// next is consulted, e.g. Composite(Latch(PENDING), NoSync{}).
func Composite(children ...Coordinator) *CompositeCoordinator {
	return &CompositeCoordinator{children: children}
}

func (c *CompositeCoordinator) SetSignal(ctx context.Context, snap *runsnap.Snapshot) (Signal, error) {
	for _, child := range c.children {
		sig, err := child.SetSignal(ctx, snap)
		if err != nil {
			return None, err
		}
		if sig != Continue {
			c.current = child
			return sig, nil
		}
	}
	c.current = nil
	return Continue, nil
}

func (c *CompositeCoordinator) ExecState() phase.State {
	if c.current == nil {
		return phase.WAITING
	}
	return c.current.ExecState()
}

func (c *CompositeCoordinator) Release() {
	for _, child := range c.children {
		child.Release()
	}
}

func (c *CompositeCoordinator) Parameters() []runspec.Param {
	var out []runspec.Param
	for _, child := range c.children {
		out = append(out, child.Parameters()...)
	}
	return out
}
