package heap

import "log/slog"

const (
	// DefaultMinOrder is the smallest size class: 64-byte blocks.
	DefaultMinOrder = 6

	// DefaultMaxOrder is the largest size class: 1024-byte blocks.
	DefaultMaxOrder = 10
)

// Option configures a Heap.
type Option func(*Heap)

// WithOrders sets the inclusive size-class range.
func WithOrders(minOrder, maxOrder uint8) Option {
	return func(h *Heap) {
		h.minOrder = minOrder
		h.maxOrder = maxOrder
	}
}

// WithLogger sets the logger. Default: the process-wide logger.L.
func WithLogger(l *slog.Logger) Option {
	return func(h *Heap) { h.logger = l }
}
