package auth

import (
	"context"
	"time"
)

// Identity is the authenticated user behind a session token.
type Identity struct {
	UserID   int       `json:"userId"`
	Username string    `json:"username"`
	Token    string    `json:"-"`
	LoggedAt time.Time `json:"loggedAt"`
}

type identityCtxKey struct{}

func ContextWithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityCtxKey{}).(Identity)
	return identity, ok
}
