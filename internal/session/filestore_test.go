package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"servicedesk/internal/desk"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	state := desk.NewConversationState("thread-1")
	state.Messages = append(state.Messages, desk.Message{Role: "user", Content: "hello"})
	state.Intent = desk.IntentHR
	state.Confidence = 0.95
	state.Phase = desk.PhaseCompleted

	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := store.Load(ctx, "thread-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Intent != desk.IntentHR || loaded.Confidence != 0.95 {
		t.Fatalf("loaded %s/%v", loaded.Intent, loaded.Confidence)
	}
	if loaded.Phase != desk.PhaseCompleted {
		t.Fatalf("phase = %s", loaded.Phase)
	}
	if len(loaded.Messages) != 1 || loaded.Messages[0].Content != "hello" {
		t.Fatalf("messages = %+v", loaded.Messages)
	}
}

func TestFileStoreMissingThread(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := store.Load(context.Background(), "nope"); !errors.Is(err, desk.ErrThreadNotFound) {
		t.Fatalf("err = %v, want ErrThreadNotFound", err)
	}
}

func TestFileStoreSanitizesThreadIDs(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	state := desk.NewConversationState("../escape/attempt")
	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries in base dir, want 1", len(entries))
	}
	if strings.ContainsAny(entries[0].Name(), "/\\") || filepath.Dir(filepath.Join(dir, entries[0].Name())) != dir {
		t.Fatalf("state escaped base dir: %q", entries[0].Name())
	}

	loaded, err := store.Load(ctx, "../escape/attempt")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.ThreadID != "../escape/attempt" {
		t.Fatalf("thread id = %q", loaded.ThreadID)
	}
}

func TestFileStoreSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := store.Save(context.Background(), desk.NewConversationState("t")); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("leftover files: %v", names)
	}
}

func TestKeyedMutexSerializesSameThread(t *testing.T) {
	k := newKeyedMutex()

	var mu sync.Mutex
	var active, maxActive int

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := k.Acquire("same")
			defer release()
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()
			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Fatalf("%d holders of the same thread lock at once", maxActive)
	}
	if len(k.locks) != 0 {
		t.Fatalf("%d lock entries leaked", len(k.locks))
	}
}

func TestKeyedMutexReleaseIsIdempotent(t *testing.T) {
	k := newKeyedMutex()
	release := k.Acquire("t")
	release()
	release()

	done := make(chan struct{})
	go func() {
		r := k.Acquire("t")
		r()
		close(done)
	}()
	<-done
}
