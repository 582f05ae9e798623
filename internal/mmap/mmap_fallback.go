//go:build !linux && !darwin && !freebsd

// Package mmap provides page-backed anonymous memory for simulated physical
// regions.
package mmap

import "fmt"

// Anon allocates size zeroed bytes on the Go heap when mmap is not available.
func Anon(size int) ([]byte, func() error, error) {
	if size < 0 {
		return nil, nil, fmt.Errorf("mmap: negative size %d", size)
	}
	return make([]byte, size), func() error { return nil }, nil
}
