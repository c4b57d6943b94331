package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/go-cmp/cmp"
)

type recordingInvalidator struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingInvalidator) Invalidate(folder, templateID string) {
	r.mu.Lock()
	r.calls = append(r.calls, folder+"/"+templateID)
	r.mu.Unlock()
}

func (r *recordingInvalidator) InvalidateAll() {
	r.mu.Lock()
	r.calls = append(r.calls, "*")
	r.mu.Unlock()
}

func (r *recordingInvalidator) seen(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.calls {
		if c == key {
			return true
		}
	}
	return false
}

func TestWatcher_InvalidatesChangedDefinition(t *testing.T) {
	root := t.TempDir()
	folder := filepath.Join(root, "hero_banner")
	if err := os.MkdirAll(folder, 0755); err != nil {
		t.Fatal(err)
	}

	rec := &recordingInvalidator{}
	w, err := NewWatcher(root, rec, nil)
	if err != nil {
		t.Fatalf("NewWatcher() failed: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	if err := os.WriteFile(filepath.Join(folder, "hero_banner_1.json"), []byte(`{"html":"x"}`), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for !rec.seen("hero_banner/hero_banner_1") {
		if time.Now().After(deadline) {
			t.Fatal("watcher did not invalidate hero_banner/hero_banner_1")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestWatcher_HandleEventScopes(t *testing.T) {
	root := t.TempDir()
	rec := &recordingInvalidator{}
	w, err := NewWatcher(root, rec, nil)
	if err != nil {
		t.Fatalf("NewWatcher() failed: %v", err)
	}
	defer w.Close()

	w.handle(fsnotify.Event{Name: filepath.Join(root, "footer", "footer_2.yaml"), Op: fsnotify.Write})
	w.handle(fsnotify.Event{Name: filepath.Join(root, "footer", "notes.txt"), Op: fsnotify.Write})
	w.handle(fsnotify.Event{Name: filepath.Join(root, "hero_banner"), Op: fsnotify.Remove})
	w.handle(fsnotify.Event{Name: root, Op: fsnotify.Rename})
	w.handle(fsnotify.Event{Name: filepath.Join(filepath.Dir(root), "elsewhere.json"), Op: fsnotify.Write})

	want := []string{"footer/footer_2", "hero_banner/", "*"}
	if diff := cmp.Diff(want, rec.calls); diff != "" {
		t.Errorf("invalidations mismatch (-want +got):\n%s", diff)
	}
}
