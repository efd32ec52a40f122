package core

import "context"

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	identityKey contextKey = iota
)

// SetIdentity stores the authenticated identity in the context.
// This is a helper for adapters to call after authentication succeeds.
func SetIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext retrieves the authenticated identity from the context.
// It returns ErrIdentityNotFound when none was stored.
//
//	id, err := core.IdentityFromContext(r.Context())
//	if err != nil {
//	    return err
//	}
//	log.Println(id.Subject)
func IdentityFromContext(ctx context.Context) (*Identity, error) {
	id, ok := ctx.Value(identityKey).(*Identity)
	if !ok || id == nil {
		return nil, ErrIdentityNotFound
	}
	return id, nil
}

// HasIdentity checks if an identity exists in the context without retrieving it.
func HasIdentity(ctx context.Context) bool {
	id, ok := ctx.Value(identityKey).(*Identity)
	return ok && id != nil
}
