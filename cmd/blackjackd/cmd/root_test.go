package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"blackjack-lite/internal/auth"
)

func TestTokenCommandMintsVerifiableCredential(t *testing.T) {
	t.Setenv("BLACKJACK_AUTH_JWT_SECRET", "test-secret")
	t.Setenv("BLACKJACK_AUTH_JWT_ISSUER", "blackjackd")

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"token", "alice", "--ttl", "1h"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	tok := strings.TrimSpace(out.String())
	resolver, err := auth.NewJWTResolver("test-secret", "blackjackd", "sub", time.Second, true)
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	id, err := resolver.Resolve(context.Background(), tok)
	if err != nil {
		t.Fatalf("resolve minted token: %v", err)
	}
	if id.ID != "alice" || id.Guest {
		t.Fatalf("identity = %+v, want alice", id)
	}
}

func TestTokenCommandRequiresSecret(t *testing.T) {
	t.Setenv("BLACKJACK_AUTH_JWT_SECRET", "")

	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"token", "alice"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected error without a secret")
	}
}

func TestServeRejectsInvalidConfig(t *testing.T) {
	t.Setenv("BLACKJACK_LEDGER_MODE", "carrier-pigeon")

	root := NewRootCmd()
	root.SetArgs([]string{"serve", "--addr", "127.0.0.1:0"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected config validation error")
	}
}
