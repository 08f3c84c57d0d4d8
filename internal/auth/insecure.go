package auth

import (
	"context"
	"regexp"
	"strings"
)

var identityPattern = regexp.MustCompile(`^[A-Za-z0-9_.:\-]{3,128}$`)

// InsecureResolver trusts the credential as the identity. Local development only.
type InsecureResolver struct{}

func (InsecureResolver) Resolve(_ context.Context, credential string) (Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Guest(), nil
	}
	if !identityPattern.MatchString(credential) || strings.EqualFold(credential, GuestID) {
		return Identity{}, ErrMalformed
	}
	return Identity{ID: credential}, nil
}
