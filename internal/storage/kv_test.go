package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/redis/go-redis/v9"
)

func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	if _, err := kv.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := kv.Set(ctx, "a", "1"); err != nil {
		t.Fatalf("set a: %v", err)
	}
	if err := kv.Set(ctx, "b", "2"); err != nil {
		t.Fatalf("set b: %v", err)
	}
	if v, err := kv.Get(ctx, "a"); err != nil || v != "1" {
		t.Fatalf("get a: %q %v", v, err)
	}
	if err := kv.Set(ctx, "a", "3"); err != nil {
		t.Fatalf("overwrite a: %v", err)
	}
	if v, _ := kv.Get(ctx, "a"); v != "3" {
		t.Fatalf("expected overwritten value, got %q", v)
	}
	if err := kv.Delete(ctx, "a", "b", "never-set"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	for _, k := range []string{"a", "b"} {
		if _, err := kv.Get(ctx, k); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected %s deleted, got %v", k, err)
		}
	}
}

func TestMemoryKV(t *testing.T) {
	exerciseKV(t, NewMemoryKV())
}

func TestFileKV(t *testing.T) {
	kv, err := NewFileKV(filepath.Join(t.TempDir(), "nested", "session.json"))
	if err != nil {
		t.Fatalf("new file kv: %v", err)
	}
	exerciseKV(t, kv)
}

func TestFileKVPersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	ctx := context.Background()

	first, _ := NewFileKV(path)
	if err := first.Set(ctx, "adminToken", "tok"); err != nil {
		t.Fatalf("set: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 permissions, got %o", perm)
	}

	second, _ := NewFileKV(path)
	if v, err := second.Get(ctx, "adminToken"); err != nil || v != "tok" {
		t.Fatalf("expected persisted token, got %q %v", v, err)
	}
}

func TestFileKVCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte(`{"adminToken":"tok","user":`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	ctx := context.Background()
	kv, _ := NewFileKV(path)
	if _, err := kv.Get(ctx, "adminToken"); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}

	if err := kv.Delete(ctx, "adminToken"); err != nil {
		t.Fatalf("delete on corrupt document: %v", err)
	}
	if _, err := kv.Get(ctx, "adminToken"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected document reset, got %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "{}" {
		t.Fatalf("expected empty document, got %q %v", data, err)
	}
}

func TestFileKVSetReplacesCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	ctx := context.Background()
	kv, _ := NewFileKV(path)
	if err := kv.Set(ctx, "adminToken", "tok"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, err := kv.Get(ctx, "adminToken"); err != nil || v != "tok" {
		t.Fatalf("unexpected %q %v", v, err)
	}
}

func TestNamespacedKV(t *testing.T) {
	ctx := context.Background()
	base := NewMemoryKV()
	exerciseKV(t, Namespace(base, "web:a"))

	a := Namespace(base, "web:a")
	b := Namespace(base, "web:b")
	if err := a.Set(ctx, "adminToken", "tok-a"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := b.Get(ctx, "adminToken"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("namespaces must not share keys, got %v", err)
	}
	if v, err := base.Get(ctx, "web:a:adminToken"); err != nil || v != "tok-a" {
		t.Fatalf("unexpected raw key %q %v", v, err)
	}
	if err := b.Delete(ctx, "adminToken"); err != nil || base.Len() != 1 {
		t.Fatalf("delete in b must not touch a: %v len=%d", err, base.Len())
	}
}

func TestNewFileKVRequiresPath(t *testing.T) {
	if _, err := NewFileKV(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestRedisKV(t *testing.T) {
	addr := os.Getenv("CONSOLE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CONSOLE_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	exerciseKV(t, NewRedisKV(client, "console:test"))
}
