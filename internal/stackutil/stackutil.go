package stackutil

import (
	"fmt"
	"runtime"
	"strings"
)

// GetStack returns up to depth frames of the calling goroutine's stack,
// starting skip frames above the caller of GetStack.
func GetStack(depth, skip int) []runtime.Frame {
	pc := make([]uintptr, depth)

	// runtime.Callers and GetStack itself
	n := runtime.Callers(skip+2, pc)
	if n == 0 {
		return []runtime.Frame{}
	}

	frames := runtime.CallersFrames(pc[:n])

	var a []runtime.Frame

	for {
		frame, more := frames.Next()

		a = append(a, frame)

		if !more {
			break
		}
	}

	return a
}

// WithoutRuntime drops frames that belong to the runtime package, which is
// where recovered panics spend their first few frames.
func WithoutRuntime(a []runtime.Frame) []runtime.Frame {
	var r []runtime.Frame

	for _, e := range a {
		if strings.HasPrefix(e.Function, "runtime.") {
			continue
		}

		r = append(r, e)
	}

	return r
}

func FormatStack(a []runtime.Frame) []string {
	r := make([]string, len(a))
	for i, e := range a {
		r[i] = FormatStackFrame(e)
	}
	return r
}

func FormatStackFrame(f runtime.Frame) string {
	return fmt.Sprintf("%s:%d: %s", f.File, f.Line, f.Function)
}
