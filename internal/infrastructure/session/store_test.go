package session

import (
	"context"
	"os"
	"testing"

	"skincare-client/internal/infrastructure/redisclient"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "token"); err != nil || ok {
		t.Fatalf("expected missing token, ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, "token", "abc"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, "user", `{"id_usuario":1}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, ok, _ := s.Get(ctx, "token"); !ok || v != "abc" {
		t.Fatalf("unexpected token %q ok=%v", v, ok)
	}
	if err := s.Delete(ctx, "token", "user"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "user"); ok {
		t.Fatalf("expected user removed")
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_URL")
	if addr == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	client, err := redisclient.New(context.Background(), addr)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	exerciseStore(t, NewRedisStore(client, "test-session"))
}

func TestRedisStoreKeyNamespace(t *testing.T) {
	for _, prefix := range []string{"storefront:session", "storefront:session:"} {
		if got := NewRedisStore(nil, prefix).key("token"); got != "storefront:session:token" {
			t.Errorf("prefix %q: got key %q", prefix, got)
		}
	}
}
