package auth

import "context"

type remoteAddrContextKey struct{}

// WithRemoteAddr attaches the caller's network address to ctx. The Engine
// uses it as the rate-limit subject while no identity is pinned in state.
func WithRemoteAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, remoteAddrContextKey{}, addr)
}

func remoteAddrFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	addr, _ := ctx.Value(remoteAddrContextKey{}).(string)
	return addr
}
