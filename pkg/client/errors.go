package client

import "errors"

var (
	// ErrDaemonNotRunning is returned when the daemon is not running
	ErrDaemonNotRunning = errors.New("daemon not running")

	// ErrPermissionDenied is returned when the user does not have permission to perform the requested action
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when 404 is returned from the daemon
	ErrNotFound = errors.New("404 not found")

	// ErrBadRequest is returned when the daemon rejects the value sent, e.g. a non-numeric level
	ErrBadRequest = errors.New("rejected by daemon")

	// ErrNoToolbar is returned when the widget has no toolbar button to toggle
	ErrNoToolbar = errors.New("widget has no toolbar button")
)
