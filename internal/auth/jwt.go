package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultIdentityClaim = "sub"

// JWTResolver verifies HS256 bearer tokens minted by the wallet login service.
type JWTResolver struct {
	secret            []byte
	issuer            string
	identityClaim     string
	leeway            time.Duration
	requireCredential bool
}

func NewJWTResolver(secret, issuer, identityClaim string, leeway time.Duration, requireCredential bool) (*JWTResolver, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if identityClaim == "" {
		identityClaim = defaultIdentityClaim
	}
	return &JWTResolver{
		secret:            []byte(secret),
		issuer:            issuer,
		identityClaim:     identityClaim,
		leeway:            leeway,
		requireCredential: requireCredential,
	}, nil
}

func (r *JWTResolver) Resolve(_ context.Context, credential string) (Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		if r.requireCredential {
			return Identity{}, ErrCredentialNeeded
		}
		return Guest(), nil
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(r.leeway),
	}
	if r.issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.issuer))
	}
	token, err := jwt.Parse(credential, func(*jwt.Token) (interface{}, error) {
		return r.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrCredentialExpired
		}
		if errors.Is(err, jwt.ErrTokenRequiredClaimMissing) || errors.Is(err, jwt.ErrTokenInvalidIssuer) {
			return Identity{}, fmt.Errorf("%w: %v", ErrMissingClaims, err)
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, ErrMalformed
	}
	id, _ := claims[r.identityClaim].(string)
	id = strings.TrimSpace(id)
	if id == "" {
		return Identity{}, fmt.Errorf("%w: %s", ErrMissingClaims, r.identityClaim)
	}
	if strings.EqualFold(id, GuestID) {
		return Identity{}, fmt.Errorf("%w: reserved identity", ErrMalformed)
	}
	return Identity{ID: id}, nil
}

// Issuer mints tokens the JWTResolver accepts. It backs the token command and tests.
type Issuer struct {
	secret        []byte
	issuer        string
	identityClaim string
}

func NewIssuer(secret, issuer, identityClaim string) *Issuer {
	if identityClaim == "" {
		identityClaim = defaultIdentityClaim
	}
	return &Issuer{secret: []byte(secret), issuer: issuer, identityClaim: identityClaim}
}

func (i *Issuer) Issue(identity string, ttl time.Duration) (string, error) {
	if i == nil || len(i.secret) == 0 {
		return "", fmt.Errorf("issuer secret is required")
	}
	if strings.TrimSpace(identity) == "" {
		return "", fmt.Errorf("identity is required")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		i.identityClaim: identity,
		"iat":           now.Unix(),
		"exp":           now.Add(ttl).Unix(),
	}
	if i.identityClaim != "sub" {
		claims["sub"] = identity
	}
	if i.issuer != "" {
		claims["iss"] = i.issuer
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}
