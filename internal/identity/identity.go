package identity

import "context"

// Identity is a verified caller as asserted by the auth service
type Identity struct {
	// Subject is the stable id the auth service assigns to the account
	Subject string
	Email   string
}

type identityContextKey struct{}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	if !ok || id.Subject == "" {
		return Identity{}, false
	}
	return id, true
}

func AddToContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}
