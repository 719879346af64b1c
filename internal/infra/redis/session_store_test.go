package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)
	ctx := context.Background()

	if err := store.SetToken(ctx, "sess-1", "token-1"); err != nil {
		t.Fatalf("set token: %v", err)
	}
	if !mr.Exists("session:token:sess-1") {
		t.Fatalf("expected redis key to be set")
	}

	token, err := store.Token(ctx, "sess-1")
	if err != nil || token != "token-1" {
		t.Fatalf("expected token-1, got %q err %v", token, err)
	}

	if err := store.Clear(ctx, "sess-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if mr.Exists("session:token:sess-1") {
		t.Fatalf("expected redis key to be removed")
	}
}

func TestSessionStoreExpiresTokens(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)
	ctx := context.Background()

	if err := store.SetToken(ctx, "sess-1", "token-1"); err != nil {
		t.Fatalf("set token: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	// An expired session reads as no credential, not as an error.
	token, err := store.Token(ctx, "sess-1")
	if err != nil || token != "" {
		t.Fatalf("expected empty token after expiry, got %q err %v", token, err)
	}
}
