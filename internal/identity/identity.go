// Package identity resolves the authenticated user behind a request.
package identity

import "context"

type ctxKey struct{}

// WithUserID returns a copy of ctx carrying uid.
func WithUserID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, ctxKey{}, uid)
}

// UserID returns the user stored by WithUserID, if any.
func UserID(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(ctxKey{}).(string)
	return uid, ok && uid != ""
}

// ContextProvider resolves the current user from the request context.
type ContextProvider struct{}

func (ContextProvider) CurrentUserID(ctx context.Context) (string, bool) {
	return UserID(ctx)
}
