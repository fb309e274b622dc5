package presets

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParse_EmptyKeepsDefaults(t *testing.T) {
	d, err := Parse(Raw{})
	if err != nil {
		t.Fatal(err)
	}
	if d != Default() {
		t.Errorf("Parse(empty) = %+v, want defaults", d)
	}
}

func TestParse_Overrides(t *testing.T) {
	d, err := Parse(Raw{Appear: "150ms", InsertDelay: "0s"})
	if err != nil {
		t.Fatal(err)
	}
	if d.Appear != 150*time.Millisecond {
		t.Errorf("Appear = %v, want 150ms", d.Appear)
	}
	if d.InsertDelay != 0 {
		t.Errorf("InsertDelay = %v, want 0", d.InsertDelay)
	}
	if d.Remove != Default().Remove {
		t.Errorf("Remove = %v, want default", d.Remove)
	}
}

func TestParse_Malformed(t *testing.T) {
	if _, err := Parse(Raw{Remove: "fast"}); err == nil {
		t.Error("malformed duration should fail")
	}
	if _, err := Parse(Raw{Hide: "-10ms"}); err == nil {
		t.Error("negative duration should fail")
	}
}

func TestStore_SwapIsVisible(t *testing.T) {
	s := NewStore(Default())
	want := Durations{Appear: time.Second}
	s.Swap(want)
	if got := s.Current(); got != want {
		t.Errorf("Current = %+v, want %+v", got, want)
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(Default())
	loaded := make(chan Durations, 1)
	load := func() (Durations, error) {
		d := Durations{Appear: 123 * time.Millisecond}
		select {
		case loaded <- d:
		default:
		}
		return d, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Watch(ctx, path, slog.New(slog.NewTextHandler(os.Stderr, nil)), load)
	}()

	// Give the watcher a moment to register, then touch the file.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("y"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-loaded:
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for reload")
	}

	// The debounce timer must fire and swap before we assert.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Current().Appear == 123*time.Millisecond {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if got := s.Current().Appear; got != 123*time.Millisecond {
		t.Errorf("Appear = %v, want 123ms after reload", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}
