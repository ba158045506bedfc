// Package accessguard enforces that mutating business logic is only ever
// invoked through the RPC dispatch layer, never called directly from a
// stray goroutine or test harness that forgot to go through internal/rpc.
// It does this with a context marker set exactly once, by the dispatcher,
// per inbound request.
package accessguard

import "context"

type rpcContextKey struct{}

// WithRPCContext marks ctx as having arrived through the RPC dispatcher.
// Called exactly once, by internal/rpc, before invoking a method handler.
func WithRPCContext(ctx context.Context, method string) context.Context {
	return context.WithValue(ctx, rpcContextKey{}, method)
}

// IsRPCContext reports whether ctx was produced by WithRPCContext.
func IsRPCContext(ctx context.Context) bool {
	_, ok := ctx.Value(rpcContextKey{}).(string)
	return ok
}

// CallingMethod returns the method name the dispatcher stamped onto ctx,
// or "" if ctx never passed through WithRPCContext.
func CallingMethod(ctx context.Context) string {
	m, _ := ctx.Value(rpcContextKey{}).(string)
	return m
}

// RequireRPC panics if ctx did not arrive through the dispatcher. Business
// logic constructors call this once at the top of any method that mutates
// shared state (store writes, file writes, workflow transitions) as a
// programming-error guard, not a security boundary — it exists to catch a
// package wired up wrong, not to authenticate a caller.
func RequireRPC(ctx context.Context) {
	if !IsRPCContext(ctx) {
		panic("accessguard: mutating call made outside RPC dispatch context")
	}
}
