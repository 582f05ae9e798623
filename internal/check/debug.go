//go:build !release

package check

// Enabled reports whether assertions are compiled in.
const Enabled = true
