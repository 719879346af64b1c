package memory

import (
	"context"
	"testing"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	if err := store.SetToken(ctx, "sess-1", "token-1"); err != nil {
		t.Fatalf("set token: %v", err)
	}
	token, err := store.Token(ctx, "sess-1")
	if err != nil || token != "token-1" {
		t.Fatalf("expected token-1, got %q err %v", token, err)
	}

	if err := store.Clear(ctx, "sess-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	token, err = store.Token(ctx, "sess-1")
	if err != nil || token != "" {
		t.Fatalf("expected cleared token, got %q err %v", token, err)
	}
}
