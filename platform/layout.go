package platform

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/warfish/bootleg/internal/format"
	"github.com/warfish/bootleg/mem"
	"github.com/warfish/bootleg/mem/heap"
)

// ErrBadLayout indicates an inconsistent data map.
var ErrBadLayout = errors.New("platform: bad layout")

// Layout is the static data map of the firmware image.
type Layout struct {
	// Segment is the never-freed bookkeeping region.
	Segment mem.Region `yaml:"segment" json:"segment"`

	// Heap is the region partitioned into size-class arenas.
	Heap mem.Region `yaml:"heap" json:"heap"`

	// MinOrder and MaxOrder bound the heap size classes (block = 2^order).
	MinOrder uint8 `yaml:"min_order" json:"min_order"`
	MaxOrder uint8 `yaml:"max_order" json:"max_order"`

	// Word is the target pointer width in bytes (4 or 8).
	Word mem.Word `yaml:"word" json:"word"`
}

// DefaultLayout returns the reference data map: a 4 KiB segment at
// 0xD0000 and a 64 KiB heap at 0xC0000 with 64..1024-byte blocks on a
// 32-bit target.
func DefaultLayout() Layout {
	return Layout{
		Segment:  mem.Region{Base: 0x000D0000, Size: 0x1000},
		Heap:     mem.Region{Base: 0x000C0000, Size: 64 << 10},
		MinOrder: heap.DefaultMinOrder,
		MaxOrder: heap.DefaultMaxOrder,
		Word:     mem.Word32,
	}
}

// LookupSlot is the word right after the segment region that holds the heap
// lookup table address.
func (l Layout) LookupSlot() mem.Region {
	return mem.Region{Base: l.Segment.End(), Size: l.Word.Bytes()}
}

// Validate checks the layout for consistency.
func (l Layout) Validate() error {
	if !l.Word.Valid() {
		return fmt.Errorf("%w: word %d: %w", ErrBadLayout, l.Word, mem.ErrBadWord)
	}
	if err := l.Segment.Validate(); err != nil {
		return fmt.Errorf("%w: segment: %w", ErrBadLayout, err)
	}
	if err := l.Heap.Validate(); err != nil {
		return fmt.Errorf("%w: heap: %w", ErrBadLayout, err)
	}
	if err := l.LookupSlot().Validate(); err != nil {
		return fmt.Errorf("%w: lookup slot: %w", ErrBadLayout, err)
	}
	if !format.IsAligned(uint64(l.Segment.Base), l.Word.Bytes()) {
		return fmt.Errorf("%w: segment base %s not %d-byte aligned", ErrBadLayout, l.Segment.Base, l.Word)
	}
	if l.Segment.Size <= l.Word.Bytes() {
		return fmt.Errorf("%w: segment must be larger than one word", ErrBadLayout)
	}
	if l.MinOrder > l.MaxOrder || l.MaxOrder > format.MaxOrder {
		return fmt.Errorf("%w: orders %d..%d", ErrBadLayout, l.MinOrder, l.MaxOrder)
	}

	regions := []struct {
		name string
		r    mem.Region
	}{
		{"segment", l.Segment},
		{"lookup slot", l.LookupSlot()},
		{"heap", l.Heap},
	}
	for i := range regions {
		for j := i + 1; j < len(regions); j++ {
			if regions[i].r.Overlaps(regions[j].r) {
				return fmt.Errorf("%w: %s %s overlaps %s %s", ErrBadLayout,
					regions[i].name, regions[i].r, regions[j].name, regions[j].r)
			}
		}
	}
	return nil
}

// ParseLayout decodes a YAML data map. Fields missing from data keep their
// DefaultLayout values.
func ParseLayout(data []byte) (Layout, error) {
	l := DefaultLayout()
	if err := yaml.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("%w: %w", ErrBadLayout, err)
	}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// LoadLayout reads a YAML data map from path.
func LoadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read layout: %w", err)
	}
	return ParseLayout(data)
}
