package dispatch

import (
	"context"

	"cronkeeper/internal/domain"
)

// Dispatcher hands a fired job to whatever performs the outbound call
type Dispatcher interface {
	Dispatch(ctx context.Context, req *domain.ExecutionRequest) error
}

// DispatcherFunc allows functions to implement Dispatcher
type DispatcherFunc func(ctx context.Context, req *domain.ExecutionRequest) error

func (f DispatcherFunc) Dispatch(ctx context.Context, req *domain.ExecutionRequest) error {
	return f(ctx, req)
}
