package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrQuit is returned when the user leaves the wizard before the
	// application was created. Progress is saved first when a store is
	// configured.
	ErrQuit = errors.New("tui: quit before submitting")
)
