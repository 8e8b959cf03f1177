// Package fmtx is the controller's log façade: a single mutex-guarded writer
// so that radio-ISR-context log lines (TPMS scan callback, local-radio write
// callback) can be serialized with loop-context log lines without the
// caller managing its own lock. Grounded on jangala-dev-devicecode-go's
// x/fmtx, collapsed to a single host-only implementation (no MCU build-tag
// variant: this controller targets a Linux-class board, not a TinyGo image).
package fmtx

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu  sync.Mutex
	out io.Writer = os.Stderr
)

// SetOutput redirects all log output; tests use this to capture lines.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// Logf writes one formatted, newline-terminated line. Safe to call from
// radio/BLE callback context as well as the scheduler loop.
func Logf(format string, a ...any) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(out, format+"\n", a...)
}

func Sprintf(format string, a ...any) string { return fmt.Sprintf(format, a...) }
func Errorf(format string, a ...any) error   { return fmt.Errorf(format, a...) }
