// Package dbg provides zero-overhead-when-disabled structural tracing. The
// parser engine's main loop is its only caller; the PVbuf subsystem and the
// accelerator pipeline do not trace.
//
// Tracing is gated behind the [Enabled] flag rather than a build tag: XDP2
// graphs are built once and reused across many packets, so the cost of the
// boolean check is negligible next to a single parse call, and keeping it a
// runtime flag lets tests flip it on for one case without a separate test
// binary.
package dbg

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Enabled turns on structural tracing for Parse operations. It is false by
// default; tests and callers that want a trace
// set it explicitly, or via the XDP2_DEBUG=1 environment variable.
var Enabled = os.Getenv("XDP2_DEBUG") != ""

var (
	mu  sync.Mutex
	out = os.Stderr
)

// SetOutput redirects trace output, primarily for tests that want to capture
// and assert on it.
func SetOutput(w *os.File) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// Log writes one structural trace line. prefix, when non-nil, is a
// printf-style (format, args...) pair rendered before op; it is typically
// used to identify which instance (parser, manager, pipeline) emitted the
// line.
func Log(prefix []any, op, format string, args ...any) {
	if !Enabled {
		return
	}

	mu.Lock()
	defer mu.Unlock()

	var b strings.Builder
	if len(prefix) > 0 {
		pf, _ := prefix[0].(string)
		fmt.Fprintf(&b, pf, prefix[1:]...)
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-8s ", op)
	fmt.Fprintf(&b, format, args...)
	fmt.Fprintln(out, b.String())
}
