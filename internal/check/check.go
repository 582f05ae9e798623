// Package check provides the assertion primitive used to guard programming
// errors in the allocator stack.
//
// Assertions abort with file, line and condition diagnostics in debug builds.
// Building with -tags release turns Enabled into a false constant and every
// guarded branch is removed by the compiler.
package check

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/warfish/bootleg/internal/logger"
)

// AssertionError is the panic value raised by a failed assertion.
type AssertionError struct {
	File string
	Line int
	Cond string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion %q failed at %s:%d", e.Cond, e.File, e.Line)
}

// Assert aborts with an *AssertionError when cond is false and assertions
// are enabled. cond names the violated condition in the diagnostic.
func Assert(ok bool, cond string) {
	if Enabled && !ok {
		fail(cond)
	}
}

// Assertf is Assert with a formatted condition description. Arguments are
// only formatted on failure.
func Assertf(ok bool, format string, args ...any) {
	if Enabled && !ok {
		fail(fmt.Sprintf(format, args...))
	}
}

func fail(cond string) {
	_, file, line, _ := runtime.Caller(2)
	err := &AssertionError{File: filepath.Base(file), Line: line, Cond: cond}
	logger.Error("assertion failed", "cond", cond, "file", err.File, "line", line)
	panic(err)
}
