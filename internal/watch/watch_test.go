package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestTriggerAfterChange(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	triggered := make(chan struct{}, 1)

	w, err := New([]string{root}, 50*time.Millisecond, func() {
		select {
		case triggered <- struct{}{}:
		default:
		}
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Run(ctx)

	if err := os.WriteFile(filepath.Join(root, "song.ini"), []byte("[song]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-triggered:
	case <-time.After(5 * time.Second):
		t.Fatal("trigger did not fire after file change")
	}
}

func TestBurstDebouncesToOneTrigger(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	triggered := make(chan struct{}, 16)

	w, err := New([]string{root}, 200*time.Millisecond, func() {
		triggered <- struct{}{}
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Run(ctx)

	// A burst of writes inside the debounce window.
	for i := 0; i < 5; i++ {
		path := filepath.Join(root, "file"+string(rune('a'+i)))
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}

		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-triggered:
	case <-time.After(5 * time.Second):
		t.Fatal("trigger did not fire")
	}

	// The quiet period after the burst yields exactly one trigger.
	select {
	case <-triggered:
		t.Error("burst produced more than one trigger")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestNewDirectoryIsWatched(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	triggered := make(chan struct{}, 16)

	w, err := New([]string{root}, 50*time.Millisecond, func() {
		triggered <- struct{}{}
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Run(ctx)

	sub := filepath.Join(root, "newsongs")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	// Wait out the mkdir's own trigger.
	select {
	case <-triggered:
	case <-time.After(5 * time.Second):
		t.Fatal("mkdir trigger did not fire")
	}

	// A write inside the new directory must also be seen.
	if err := os.WriteFile(filepath.Join(sub, "song.ini"), []byte("[song]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-triggered:
	case <-time.After(5 * time.Second):
		t.Fatal("write in new directory did not trigger")
	}
}
