package engine

import (
	"context"

	"github.com/roach88/reflux/internal/action"
)

type dispatchKey struct{}

// dispatchInfo marks a context as belonging to a running cycle.
type dispatchInfo struct {
	engine   *Engine
	flow     string
	constant action.Constant
	depth    int
}

func withDispatch(ctx context.Context, info dispatchInfo) context.Context {
	return context.WithValue(ctx, dispatchKey{}, info)
}

func fromContext(ctx context.Context) (dispatchInfo, bool) {
	if ctx == nil {
		return dispatchInfo{}, false
	}
	info, ok := ctx.Value(dispatchKey{}).(dispatchInfo)
	return info, ok
}

// FlowFromContext returns the flow token of the cycle that produced ctx.
func FlowFromContext(ctx context.Context) (string, bool) {
	info, ok := fromContext(ctx)
	return info.flow, ok
}
