package platform

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/warfish/bootleg/internal/logger"
	"github.com/warfish/bootleg/mem"
	"github.com/warfish/bootleg/mem/dataseg"
	"github.com/warfish/bootleg/mem/heap"
)

// Backing provides the bytes behind a region.
type Backing func(mem.Region) (*mem.Memory, error)

// HostBacking maps every region as anonymous host memory.
func HostBacking(r mem.Region) (*mem.Memory, error) { return mem.Map(r) }

// BufferBacking backs every region with a Go byte slice.
func BufferBacking(r mem.Region) (*mem.Memory, error) {
	return mem.FromBytes(r, make([]byte, r.Size))
}

type bootConfig struct {
	backing Backing
	abort   func(error)
	logger  *slog.Logger
}

// BootOption configures Boot.
type BootOption func(*bootConfig)

// WithBacking selects how regions are backed. Default: HostBacking.
func WithBacking(b Backing) BootOption {
	return func(c *bootConfig) { c.backing = b }
}

// WithAbort installs the fatal-abort primitive for segment exhaustion.
func WithAbort(abort func(error)) BootOption {
	return func(c *bootConfig) { c.abort = abort }
}

// WithLogger sets the logger used by every component.
func WithLogger(l *slog.Logger) BootOption {
	return func(c *bootConfig) { c.logger = l }
}

// System is the handle to the booted allocator stack. It is the only owner
// of the allocator state; pass it (or its Heap) to the rest of the system.
//
// NOT thread-safe.
type System struct {
	Layout  Layout
	Segment *dataseg.Allocator
	Heap    *heap.Heap

	segMem  *mem.Memory
	heapMem *mem.Memory
	slotMem *mem.Memory
}

// Boot maps the regions of l and brings the allocator stack up in order.
func Boot(l Layout, opts ...BootOption) (*System, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	cfg := bootConfig{backing: HostBacking}
	for _, opt := range opts {
		opt(&cfg)
	}
	log := cfg.logger
	if log == nil {
		log = logger.L
	}

	s := &System{Layout: l}
	var err error
	if s.segMem, err = cfg.backing(l.Segment); err != nil {
		return nil, fmt.Errorf("map segment: %w", err)
	}
	if s.slotMem, err = cfg.backing(l.LookupSlot()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("map lookup slot: %w", err)
	}
	if s.heapMem, err = cfg.backing(l.Heap); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("map heap: %w", err)
	}

	segOpts := []dataseg.Option{dataseg.WithWord(l.Word)}
	if cfg.abort != nil {
		segOpts = append(segOpts, dataseg.WithAbort(cfg.abort))
	}
	if cfg.logger != nil {
		segOpts = append(segOpts, dataseg.WithLogger(cfg.logger))
	}
	if s.Segment, err = dataseg.New(s.segMem, segOpts...); err != nil {
		_ = s.Close()
		return nil, err
	}

	heapOpts := []heap.Option{heap.WithOrders(l.MinOrder, l.MaxOrder)}
	if cfg.logger != nil {
		heapOpts = append(heapOpts, heap.WithLogger(cfg.logger))
	}
	if s.Heap, err = heap.New(s.Segment, s.heapMem, heapOpts...); err != nil {
		_ = s.Close()
		return nil, err
	}

	s.Segment.Init()
	if err := s.Heap.Init(); err != nil {
		_ = s.Close()
		return nil, err
	}
	if err := s.slotMem.PutWord(l.LookupSlot().Base, l.Word, uint64(s.Heap.Lookup())); err != nil {
		_ = s.Close()
		return nil, err
	}

	log.Info("memory foundation up",
		"segment", l.Segment.String(), "heap", l.Heap.String(),
		"segment_used", s.Segment.Used(), "segment_free", s.Segment.Available())
	return s, nil
}

// LookupPointer reads the heap lookup table address back from its slot.
func (s *System) LookupPointer() (mem.Addr, error) {
	v, err := s.slotMem.ReadWord(s.Layout.LookupSlot().Base, s.Layout.Word)
	return mem.Addr(v), err
}

// Close unmaps every region. The System must not be used afterwards.
func (s *System) Close() error {
	var errs []error
	for _, m := range []*mem.Memory{s.heapMem, s.slotMem, s.segMem} {
		if m != nil {
			errs = append(errs, m.Close())
		}
	}
	return errors.Join(errs...)
}
