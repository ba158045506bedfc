package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/babar-raza/tbcv/internal/cache"
)

func TestFileBackendSetGetDelete(t *testing.T) {
	dir := t.TempDir()
	fb, err := cache.NewFileBackend(dir)
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}
	defer fb.Close()

	ctx := context.Background()
	if err := fb.Set(ctx, "k1", []byte("v1"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	v, ok, err := fb.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok || string(v) != "v1" {
		t.Fatalf("Get(k1) = (%q, %v), want (v1, true)", v, ok)
	}

	if err := fb.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := fb.Get(ctx, "k1"); ok {
		t.Error("Get(k1) = true after Delete, want false")
	}
}

func TestFileBackendExpiry(t *testing.T) {
	dir := t.TempDir()
	fb, err := cache.NewFileBackend(dir)
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}
	defer fb.Close()

	ctx := context.Background()
	fb.Set(ctx, "k1", []byte("v1"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	if _, ok, _ := fb.Get(ctx, "k1"); ok {
		t.Error("Get(k1) = true after TTL expiry, want false")
	}
}

func TestFileBackendReloadsSnapshotAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	fb1, err := cache.NewFileBackend(dir)
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}
	fb1.Set(ctx, "k1", []byte("persisted"), 0)
	if err := fb1.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	fb2, err := cache.NewFileBackend(dir)
	if err != nil {
		t.Fatalf("second NewFileBackend() error = %v", err)
	}
	defer fb2.Close()

	v, ok, err := fb2.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok || string(v) != "persisted" {
		t.Fatalf("Get(k1) after reload = (%q, %v), want (persisted, true)", v, ok)
	}
}
