// Package safego runs side-port servers and other background work without
// letting a panic take the API process down.
package safego

import (
	"log/slog"
	"runtime/debug"
)

// Go runs fn in its own goroutine under the given task name. A panic inside fn
// is logged with its stack and swallowed; the goroutine is not restarted.
func Go(name string, fn func()) {
	go func() {
		defer recoverAndLog(name)
		fn()
	}()
}

func recoverAndLog(name string) {
	if r := recover(); r != nil {
		slog.Error("recovered panic in background goroutine",
			"task", name,
			"panic", r,
			"stack", string(debug.Stack()))
	}
}
