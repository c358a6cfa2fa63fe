// Package notify delivers transient user notifications (toasts).
package notify

import (
	"log/slog"
	"sync"
)

// Notifier shows transient success and error messages.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Discard drops every notification.
type Discard struct{}

func (Discard) Success(string) {}
func (Discard) Error(string)   {}

// Tee forwards every notification to all of ns.
type Tee []Notifier

func (t Tee) Success(msg string) {
	for _, n := range t {
		n.Success(msg)
	}
}

func (t Tee) Error(msg string) {
	for _, n := range t {
		n.Error(msg)
	}
}

// Log writes notifications to a logger.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Success(msg string) { l.logger().Info("notify", "kind", "success", "text", msg) }
func (l Log) Error(msg string)   { l.logger().Warn("notify", "kind", "error", "text", msg) }

func (l Log) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

// Func forwards notifications to a single callback.
type Func func(kind Kind, msg string)

func (f Func) Success(msg string) { f(KindSuccess, msg) }
func (f Func) Error(msg string)   { f(KindError, msg) }

// Kind is the kind of a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Recorder keeps notifications in memory.
type Recorder struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (r *Recorder) Success(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes = append(r.successes, msg)
}

func (r *Recorder) Error(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}

// Successes returns the recorded success messages.
func (r *Recorder) Successes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.successes...)
}

// Errors returns the recorded error messages.
func (r *Recorder) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...)
}
