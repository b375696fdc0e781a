package diag

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	errMissing := errors.New("missing selection")
	errBad := errors.New("bad request")
	RegisterNotFound(errMissing)
	RegisterInvalid(errBad)

	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, ""},
		{"registered not found", fmt.Errorf("locate: %w", errMissing), CodeNotFound},
		{"registered invalid", fmt.Errorf("apply: %w", errBad), CodeInvalid},
		{"cancelled", fmt.Errorf("read: %w", context.Canceled), CodeCancel},
		{"deadline", context.DeadlineExceeded, CodeCancel},
		{"missing file", &fs.PathError{Op: "open", Path: "x", Err: fs.ErrNotExist}, CodeNotFound},
		{"permission", &fs.PathError{Op: "open", Path: "x", Err: fs.ErrPermission}, CodeIO},
		{"other path error", &fs.PathError{Op: "write", Path: "x", Err: errors.New("disk full")}, CodeIO},
		{"plain", errors.New("boom"), CodeUnknown},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("%s: Classify = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestDebugfWritesWhenEnabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	prevEnabled, prevFile, prevClock := debugEnabled, debugFile, debugClock
	t.Cleanup(func() { debugEnabled, debugFile, debugClock = prevEnabled, prevFile, prevClock })

	debugEnabled = false
	debugFile = path
	Debugf("dropped %d", 1)
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected no log file while disabled, stat err = %v", err)
	}

	debugEnabled = true
	debugClock = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	Debugf("locate path=%s candidates=%d", "a.md", 2)
	Debugf("second")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %q", data)
	}
	if lines[0] != "2024-01-02T03:04:05Z locate path=a.md candidates=2" {
		t.Fatalf("unexpected line %q", lines[0])
	}
}
