// Package diag holds the env-gated debug log and the error classification
// shared by the command-line and tool-server front ends.
package diag

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"
)

const defaultLogFile = "spanmark-debug.log"

var (
	debugEnabled = os.Getenv("SPANMARK_DEBUG") == "1"
	debugFile    = os.Getenv("SPANMARK_DEBUG_FILE")
	debugMu      sync.Mutex
	debugClock   = time.Now
)

// Debugf appends one timestamped line to the debug log. It is a no-op unless
// SPANMARK_DEBUG=1. Write failures are dropped.
func Debugf(format string, args ...interface{}) {
	if !debugEnabled {
		return
	}
	debugMu.Lock()
	defer debugMu.Unlock()

	path := debugFile
	if path == "" {
		path = defaultLogFile
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	timestamp := debugClock().Format(time.RFC3339Nano)
	_, _ = fmt.Fprintf(f, "%s "+format+"\n", append([]interface{}{timestamp}, args...)...)
	_ = f.Close()
}

// Code is a stable, machine-readable error category.
type Code string

const (
	CodeNotFound Code = "not_found"
	CodeInvalid  Code = "invalid"
	CodeIO       Code = "io"
	CodeCancel   Code = "cancel"
	CodeUnknown  Code = "unknown"
)

var (
	notFoundErrs []error
	invalidErrs  []error
	registerMu   sync.RWMutex
)

// RegisterNotFound marks errors that Classify should report as not_found.
func RegisterNotFound(errs ...error) {
	registerMu.Lock()
	notFoundErrs = append(notFoundErrs, errs...)
	registerMu.Unlock()
}

// RegisterInvalid marks errors that Classify should report as invalid.
func RegisterInvalid(errs ...error) {
	registerMu.Lock()
	invalidErrs = append(invalidErrs, errs...)
	registerMu.Unlock()
}

// Classify maps err to a Code. Registered sentinels win over the generic
// cancellation and filesystem checks.
func Classify(err error) Code {
	if err == nil {
		return ""
	}
	registerMu.RLock()
	defer registerMu.RUnlock()
	for _, target := range notFoundErrs {
		if errors.Is(err, target) {
			return CodeNotFound
		}
	}
	for _, target := range invalidErrs {
		if errors.Is(err, target) {
			return CodeInvalid
		}
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCancel
	case errors.Is(err, fs.ErrNotExist):
		return CodeNotFound
	case errors.Is(err, fs.ErrPermission), errors.Is(err, fs.ErrInvalid):
		return CodeIO
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return CodeIO
	}
	return CodeUnknown
}
