package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startWatcher(t *testing.T, path string) *Watcher {
	t.Helper()
	w, err := New(path)
	if err != nil {
		t.Fatalf("New(%s) error = %v", path, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
		w.Close()
	})
	return w
}

func waitEvent(w *Watcher, d time.Duration) bool {
	select {
	case <-w.Events():
		return true
	case <-time.After(d):
		return false
	}
}

func TestWatcher_Write(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.cpp")
	if err := os.WriteFile(src, []byte("int main() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w := startWatcher(t, src)

	if err := os.WriteFile(src, []byte("int main() { return 1; }\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !waitEvent(w, 5*time.Second) {
		t.Fatalf("no event after writing %s", src)
	}
}

func TestWatcher_RenameOver(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.rs")
	if err := os.WriteFile(src, []byte("fn main() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w := startWatcher(t, src)

	tmp := filepath.Join(dir, ".main.rs.swp")
	if err := os.WriteFile(tmp, []byte("fn main() { }\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, src); err != nil {
		t.Fatal(err)
	}
	if !waitEvent(w, 5*time.Second) {
		t.Fatalf("no event after renaming over %s", src)
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.cpp")
	w := startWatcher(t, src)

	if err := os.WriteFile(filepath.Join(dir, "other.cpp"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if waitEvent(w, 300*time.Millisecond) {
		t.Errorf("event delivered for an unrelated file")
	}
}

func TestWatcher_Cancel(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "main.cpp"))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx); err != nil {
		t.Errorf("Run(cancelled) = %v; want nil", err)
	}
}

func TestNew_MissingDirectory(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "nope", "main.cpp")); err == nil {
		t.Errorf("New() in a missing directory returned no error")
	}
}
