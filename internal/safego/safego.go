// Package safego provides a panic-recovering goroutine launcher for background work.
package safego

import "log/slog"

// Go launches fn in a new goroutine under the given name. If fn panics, the
// panic is recovered and logged rather than crashing the process. Use this for
// all fire-and-forget goroutines (background jobs, async notification email
// delivery, etc.) where an unrecovered panic would silently kill the goroutine
// forever.
func Go(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("recovered panic in background goroutine", "goroutine", name, "panic", r)
			}
		}()
		fn()
	}()
}
