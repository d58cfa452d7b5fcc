package config

import "context"

// ContextKey is an alias used for storing values in context
type ContextKey string

const (
	// StoreCtxKey is the context key used to store the *Store instance
	StoreCtxKey ContextKey = "config_store"
)

// ContextWithStore stores the configuration store in the context
func ContextWithStore(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, StoreCtxKey, s)
}

// StoreFromContext retrieves the configuration store from the context, or nil.
func StoreFromContext(ctx context.Context) *Store {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(StoreCtxKey).(*Store)
	return s
}
