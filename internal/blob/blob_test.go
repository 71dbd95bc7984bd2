package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()
	fsStore, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystem: %v", err)
	}
	return map[string]Store{"fs": fsStore, "memory": NewMemory()}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			info, err := store.Put(ctx, "run1/flx/flx_gas-pco2.txt", bytes.NewReader([]byte("time adv\n1 2\n")))
			if err != nil {
				t.Fatalf("put: %v", err)
			}
			if info.Key != "run1/flx/flx_gas-pco2.txt" || info.Size != 13 {
				t.Fatalf("unexpected info %+v", info)
			}

			// Puts overwrite.
			if _, err := store.Put(ctx, "run1/flx/flx_gas-pco2.txt", bytes.NewReader([]byte("x"))); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			rc, err := store.Get(ctx, "run1/flx/flx_gas-pco2.txt")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			b, _ := io.ReadAll(rc)
			if err := rc.Close(); err != nil {
				t.Fatalf("close: %v", err)
			}
			if string(b) != "x" {
				t.Fatalf("content = %q", b)
			}

			if _, err := store.Get(ctx, "run1/missing.txt"); !errors.Is(err, fs.ErrNotExist) {
				t.Fatalf("missing get: %v", err)
			}

			if _, err := store.Put(ctx, "run1/prof/prof.txt", bytes.NewReader([]byte("p"))); err != nil {
				t.Fatalf("put: %v", err)
			}
			list, err := store.List(ctx, "run1/")
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(list) != 2 || list[0].Key != "run1/flx/flx_gas-pco2.txt" || list[1].Key != "run1/prof/prof.txt" {
				t.Fatalf("list = %+v", list)
			}

			if err := store.Delete(ctx, "run1/prof/prof.txt"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			// Deleting a missing key is not an error.
			if err := store.Delete(ctx, "run1/prof/prof.txt"); err != nil {
				t.Fatalf("delete missing: %v", err)
			}
			list, err = store.List(ctx, "run1/")
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(list) != 1 {
				t.Fatalf("list after delete = %+v", list)
			}
		})
	}
}

func TestFilesystemRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	store, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystem: %v", err)
	}
	for _, key := range []string{"../escape.txt", "/abs.txt", "a/../../b"} {
		if _, err := store.Put(ctx, key, bytes.NewReader([]byte("x"))); err == nil {
			t.Fatalf("key %q should be rejected", key)
		}
	}
}

func TestPushPullRun(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	src := t.TempDir()
	runDir := filepath.Join(src, "run1")
	for _, f := range []string{"flx/flx_gas-pco2.txt", "prof/prof.txt", "check_results.res"} {
		path := filepath.Join(runDir, f)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("content of "+f), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	n, err := PushRun(ctx, store, src, "run1")
	if err != nil {
		t.Fatalf("PushRun: %v", err)
	}
	if n != 3 {
		t.Fatalf("pushed %d objects, want 3", n)
	}

	dst := t.TempDir()
	n, err = PullRun(ctx, store, dst, "run1")
	if err != nil {
		t.Fatalf("PullRun: %v", err)
	}
	if n != 3 {
		t.Fatalf("pulled %d objects, want 3", n)
	}
	b, err := os.ReadFile(filepath.Join(dst, "run1", "flx", "flx_gas-pco2.txt"))
	if err != nil {
		t.Fatalf("read pulled file: %v", err)
	}
	if string(b) != "content of flx/flx_gas-pco2.txt" {
		t.Fatalf("content = %q", b)
	}

	if err := DeleteRun(ctx, store, "run1"); err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}
	list, err := store.List(ctx, "run1/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("objects after DeleteRun: %+v", list)
	}
}

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()
	mem, err := Open(ctx, DriverMemory, "")
	if err != nil {
		t.Fatalf("Open memory: %v", err)
	}
	if mem.Driver() != DriverMemory {
		t.Fatalf("driver = %v", mem.Driver())
	}
	fsStore, err := Open(ctx, DriverFilesystem, t.TempDir())
	if err != nil {
		t.Fatalf("Open fs: %v", err)
	}
	if fsStore.Driver() != DriverFilesystem {
		t.Fatalf("driver = %v", fsStore.Driver())
	}
	if _, err := Open(ctx, Driver("bogus"), ""); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
