package session

import "context"

type contextKey struct{}

// NewContext returns a context carrying m.
func NewContext(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, contextKey{}, m)
}

// FromContext returns the manager carried by ctx. Calling it outside a
// context built by NewContext is a programming error and panics.
func FromContext(ctx context.Context) *Manager {
	m, ok := ctx.Value(contextKey{}).(*Manager)
	if !ok || m == nil {
		panic("session: FromContext called outside a session scope; wrap the context with session.NewContext")
	}
	return m
}
