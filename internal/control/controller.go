// Package control implements the cooperative pause/resume/cancel token used
// by the download loop. Work-in-progress checks in at well-defined
// checkpoints; pausing blocks at the next checkpoint until resumed or
// cancelled, and cancellation is observed without busy-waiting.
package control

import (
	"context"
	"errors"
	"sync"
)

// State is the controller's externally visible mode.
type State string

const (
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCancelled State = "cancelled"
)

// ErrCancelled is returned from checkpoints once Cancel has been called.
var ErrCancelled = errors.New("cancelled by user")

// Controller coordinates pause/resume/cancel across goroutines. The zero
// value is not usable; construct with New.
type Controller struct {
	mu     sync.Mutex
	state  State
	change chan struct{}
}

// New returns a running controller.
func New() *Controller {
	return &Controller{state: StateRunning, change: make(chan struct{})}
}

// State reports the current mode.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pause moves the controller to paused. No-op once cancelled.
func (c *Controller) Pause() {
	c.transition(StatePaused)
}

// Resume moves the controller back to running. No-op once cancelled.
func (c *Controller) Resume() {
	c.transition(StateRunning)
}

// Cancel is terminal: all current and future checkpoints fail with
// ErrCancelled.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateCancelled {
		return
	}
	c.state = StateCancelled
	close(c.change)
	c.change = make(chan struct{})
}

func (c *Controller) transition(next State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateCancelled || c.state == next {
		return
	}
	c.state = next
	close(c.change)
	c.change = make(chan struct{})
}

// Checkpoint blocks while paused and returns nil when running. It returns
// ErrCancelled after Cancel and the context error if ctx ends first.
func (c *Controller) Checkpoint(ctx context.Context) error {
	for {
		c.mu.Lock()
		state, change := c.state, c.change
		c.mu.Unlock()

		switch state {
		case StateCancelled:
			return ErrCancelled
		case StateRunning:
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-change:
		}
	}
}
