package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warfish/bootleg/mem"
	"github.com/warfish/bootleg/mem/arena"
	"github.com/warfish/bootleg/platform"
)

func init() {
	rootCmd.AddCommand(newLayoutCmd())
}

func newLayoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Show the memory map produced by a data layout",
		Long: `The layout command boots the allocator stack on scratch buffers and prints
the resulting memory map: the segment region, the lookup-pointer slot, the
heap region and the arena every size class received.

Example:
  bootleg layout
  bootleg layout --layout board.yaml
  bootleg layout --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout(args)
		},
	}
	return cmd
}

type layoutReport struct {
	Layout        platform.Layout `json:"layout"`
	LookupSlot    mem.Region      `json:"lookup_slot"`
	Lookup        mem.Addr        `json:"lookup"`
	HeaderSize    uint64          `json:"header_size"`
	SegmentUsed   uint64          `json:"segment_used"`
	SegmentFree   uint64          `json:"segment_free"`
	Arenas        []arena.Stats   `json:"arenas"`
	MissingOrders []uint8         `json:"missing_orders,omitempty"`
}

func buildLayoutReport(l platform.Layout) (layoutReport, error) {
	s, err := bootLayout(l, platform.BufferBacking)
	if err != nil {
		return layoutReport{}, err
	}
	defer s.Close()

	lookup, err := s.LookupPointer()
	if err != nil {
		return layoutReport{}, err
	}
	rep := layoutReport{
		Layout:      l,
		LookupSlot:  l.LookupSlot(),
		Lookup:      lookup,
		HeaderSize:  s.Heap.HeaderSize(),
		SegmentUsed: s.Segment.Used(),
		SegmentFree: s.Segment.Available(),
		Arenas:      s.Heap.Stats().Arenas,
	}
	for o := l.MinOrder; o <= l.MaxOrder; o++ {
		if s.Heap.Arena(o) == nil {
			rep.MissingOrders = append(rep.MissingOrders, o)
		}
	}
	return rep, nil
}

func runLayout(args []string) error {
	l, err := loadLayout()
	if err != nil {
		return err
	}
	rep, err := buildLayoutReport(l)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(rep)
	}

	printInfo("%s\n\n", render(headerStyle, fmt.Sprintf("Memory map (%s words)", l.Word)))
	printInfo("  segment      %s  %s\n", render(addrStyle, l.Segment.String()), formatBytes(l.Segment.Size))
	printInfo("  lookup slot  %s  -> %s\n", render(addrStyle, rep.LookupSlot.String()), rep.Lookup)
	printInfo("  heap         %s  %s\n\n", render(addrStyle, l.Heap.String()), formatBytes(l.Heap.Size))

	printInfo("Segment: %d of %d bytes used, %d free\n", rep.SegmentUsed, l.Segment.Size, rep.SegmentFree)
	printInfo("Allocation header: %d bytes\n\n", rep.HeaderSize)

	t := &table{header: []string{"ORDER", "BLOCK", "BLOCKS", "REGION", "HEADER"}}
	for _, a := range rep.Arenas {
		t.add([]string{
			fmt.Sprintf("%d", a.Order),
			formatBytes(a.BlockSize),
			fmt.Sprintf("%d", a.Blocks),
			a.Region.String(),
			a.Header.String(),
		}, nil)
	}
	printInfo("%s", t.String())

	for _, o := range rep.MissingOrders {
		printInfo("%s\n", render(warnStyle, fmt.Sprintf("order %d: no blocks (allocations of this class fail)", o)))
	}
	return nil
}
