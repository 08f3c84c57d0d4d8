package auth

import (
	"fmt"
	"strings"
	"time"
)

const (
	ModeJWT      = "jwt"
	ModeInsecure = "insecure"
)

type Options struct {
	Mode              string
	JWTSecret         string
	JWTIssuer         string
	IdentityClaim     string
	Leeway            time.Duration
	RequireCredential bool
}

func normalizeMode(raw string) string {
	mode := strings.ToLower(strings.TrimSpace(raw))
	switch mode {
	case "", ModeJWT, "bearer":
		return ModeJWT
	case ModeInsecure, "dev", "none":
		return ModeInsecure
	default:
		return mode
	}
}

// NewResolver builds the resolver for opts.Mode and reports the resolved mode.
func NewResolver(opts Options) (Resolver, string, error) {
	mode := normalizeMode(opts.Mode)
	switch mode {
	case ModeJWT:
		r, err := NewJWTResolver(opts.JWTSecret, opts.JWTIssuer, opts.IdentityClaim, opts.Leeway, opts.RequireCredential)
		if err != nil {
			return nil, mode, err
		}
		return r, mode, nil
	case ModeInsecure:
		return InsecureResolver{}, mode, nil
	default:
		return nil, mode, fmt.Errorf("invalid auth mode %q (supported: %s, %s)", mode, ModeJWT, ModeInsecure)
	}
}
