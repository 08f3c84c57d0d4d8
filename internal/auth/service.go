package auth

import (
	"context"
	"errors"
	"fmt"
)

// GuestID is the identity bound to connections that present no credential.
const GuestID = "guest"

var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrCredentialExpired = fmt.Errorf("%w: credential expired", ErrUnauthorized)
	ErrMalformed         = fmt.Errorf("%w: credential malformed", ErrUnauthorized)
	ErrMissingClaims     = fmt.Errorf("%w: required claims missing", ErrUnauthorized)
	ErrCredentialNeeded  = fmt.Errorf("%w: credential required", ErrUnauthorized)
)

// Identity is the verified caller of a connection.
type Identity struct {
	ID    string
	Guest bool
}

func Guest() Identity {
	return Identity{ID: GuestID, Guest: true}
}

// Resolver turns a handshake credential into an identity. An empty
// credential resolves to a guest unless the resolver requires one.
type Resolver interface {
	Resolve(ctx context.Context, credential string) (Identity, error)
}
