package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"crate/internal/control"
)

// runControlLoop reads pause/resume/cancel/status commands from r and applies
// them to the controller until the returned stop function is called or the
// reader closes.
func runControlLoop(r io.Reader, controller *control.Controller, out io.Writer) func() {
	var stopped atomic.Bool

	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if stopped.Load() {
				return
			}
			switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
			case "":
			case "pause":
				controller.Pause()
				fmt.Fprintln(out, "Paused; `resume` to continue, `cancel` to stop.")
			case "resume":
				controller.Resume()
				fmt.Fprintln(out, "Resumed.")
			case "cancel":
				controller.Cancel()
				fmt.Fprintln(out, "Cancelling at the next checkpoint...")
				return
			case "status":
				fmt.Fprintf(out, "State: %s\n", controller.State())
			default:
				fmt.Fprintln(out, "Commands: pause, resume, cancel, status")
			}
		}
	}()

	return func() { stopped.Store(true) }
}
