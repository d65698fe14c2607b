package reconcile

import (
	"errors"
	"log/slog"
)

// Level distinguishes success notices from failures.
type Level int

const (
	LevelSuccess Level = iota
	LevelError
)

func (l Level) String() string {
	if l == LevelError {
		return "error"
	}
	return "success"
}

// Notice is a transient, user-visible outcome message.
type Notice struct {
	Level   Level
	Message string
}

// Notifier receives every notice exactly once.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// LogNotifier writes notices to slog. It is the default when no notifier is given.
type LogNotifier struct{}

func (LogNotifier) Notify(n Notice) {
	if n.Level == LevelError {
		slog.Error("Workflow: " + n.Message)
		return
	}
	slog.Info("Workflow: " + n.Message)
}

// Confirmer asks the user to approve a destructive action.
type Confirmer func(prompt string) bool

// noticeError marks an error that was already surfaced as a notice.
type noticeError struct {
	err error
}

func (e *noticeError) Error() string { return e.err.Error() }
func (e *noticeError) Unwrap() error { return e.err }

// Notified reports whether err was already delivered to the Notifier, so callers
// that render notices do not show it twice.
func Notified(err error) bool {
	var n *noticeError
	return errors.As(err, &n)
}
