package control

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCheckpointPassesWhileRunning(t *testing.T) {
	c := New()
	if err := c.Checkpoint(context.Background()); err != nil {
		t.Fatalf("unexpected checkpoint error: %v", err)
	}
}

func TestCheckpointBlocksWhilePausedUntilResume(t *testing.T) {
	c := New()
	c.Pause()

	released := make(chan error, 1)
	go func() {
		released <- c.Checkpoint(context.Background())
	}()

	select {
	case err := <-released:
		t.Fatalf("checkpoint returned while paused: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	c.Resume()
	select {
	case err := <-released:
		if err != nil {
			t.Fatalf("expected clean release, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("checkpoint did not release after resume")
	}
}

func TestCancelReleasesPausedCheckpoint(t *testing.T) {
	c := New()
	c.Pause()

	released := make(chan error, 1)
	go func() {
		released <- c.Checkpoint(context.Background())
	}()

	c.Cancel()
	select {
	case err := <-released:
		if !errors.Is(err, ErrCancelled) {
			t.Fatalf("expected ErrCancelled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("checkpoint did not release after cancel")
	}
}

func TestCancelIsTerminal(t *testing.T) {
	c := New()
	c.Cancel()
	c.Resume()
	if c.State() != StateCancelled {
		t.Fatalf("resume after cancel changed state: %s", c.State())
	}
	if err := c.Checkpoint(context.Background()); !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestCheckpointHonorsContext(t *testing.T) {
	c := New()
	c.Pause()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := c.Checkpoint(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}
