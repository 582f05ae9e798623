package main

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/warfish/bootleg/internal/logger"
	"github.com/warfish/bootleg/mem"
	"github.com/warfish/bootleg/mem/heap"
	"github.com/warfish/bootleg/platform"
)

var (
	simSizes     []int
	simOps       int
	simSeed      int64
	simFreeRatio float64
	simBacking   string
)

func init() {
	cmd := newSimulateCmd()
	cmd.Flags().IntSliceVar(&simSizes, "sizes", []int{1, 16, 60, 100, 250, 500, 1000},
		"Request sizes to draw from")
	cmd.Flags().IntVarP(&simOps, "ops", "n", 10000, "Number of operations")
	cmd.Flags().Int64Var(&simSeed, "seed", 1, "Workload seed")
	cmd.Flags().Float64Var(&simFreeRatio, "free-ratio", 0.4, "Probability that an operation frees")
	cmd.Flags().StringVar(&simBacking, "backing", "host", "Region backing: host (mmap) or buffer")
	rootCmd.AddCommand(cmd)
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a seeded allocation workload",
		Long: `The simulate command boots the allocator stack, then performs a random mix
of heap allocations and frees drawn from --sizes. Every live payload is
filled with a tag and checked again when it is freed. At the end the heap
is verified and per-arena occupancy is printed.

Example:
  bootleg simulate
  bootleg simulate --ops 50000 --seed 7 --sizes 8,64,700
  bootleg simulate --layout board.yaml --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(args)
		},
	}
	return cmd
}

type workload struct {
	Sizes     []int
	Ops       int
	Seed      int64
	FreeRatio float64
}

type simReport struct {
	Seed        int64      `json:"seed"`
	Ops         int        `json:"ops"`
	Allocs      int        `json:"allocs"`
	Frees       int        `json:"frees"`
	NoSpace     int        `json:"no_space"`
	TooLarge    int        `json:"too_large"`
	Live        int        `json:"live"`
	PeakLive    int        `json:"peak_live"`
	SegmentUsed uint64     `json:"segment_used"`
	Heap        heap.Stats `json:"heap"`
}

type liveAlloc struct {
	p   mem.Addr
	tag byte
	n   int
}

// simulate runs w against h. Live allocations are released before it
// returns unless keepLive is set.
func simulate(h *heap.Heap, w workload, keepLive bool) (simReport, error) {
	if len(w.Sizes) == 0 {
		return simReport{}, errors.New("no request sizes")
	}
	rng := rand.New(rand.NewSource(w.Seed))
	rep := simReport{Seed: w.Seed, Ops: w.Ops}
	var live []liveAlloc

	release := func(i int) error {
		la := live[i]
		b, err := h.Bytes(la.p)
		if err != nil {
			return err
		}
		if !bytes.Equal(b[:la.n], bytes.Repeat([]byte{la.tag}, la.n)) {
			return fmt.Errorf("payload at %s corrupted", la.p)
		}
		h.Free(la.p)
		live[i] = live[len(live)-1]
		live = live[:len(live)-1]
		rep.Frees++
		return nil
	}

	for op := 0; op < w.Ops; op++ {
		if len(live) > 0 && rng.Float64() < w.FreeRatio {
			if err := release(rng.Intn(len(live))); err != nil {
				return rep, err
			}
			continue
		}

		size := w.Sizes[rng.Intn(len(w.Sizes))]
		p, err := h.Alloc(uint64(size))
		switch {
		case errors.Is(err, heap.ErrNoSpace):
			rep.NoSpace++
			continue
		case errors.Is(err, heap.ErrTooLarge):
			rep.TooLarge++
			continue
		case err != nil:
			return rep, err
		}

		b, err := h.Bytes(p)
		if err != nil {
			return rep, err
		}
		tag := byte(op)
		for i := 0; i < size; i++ {
			b[i] = tag
		}
		live = append(live, liveAlloc{p: p, tag: tag, n: size})
		rep.Allocs++
		rep.PeakLive = max(rep.PeakLive, len(live))
	}

	rep.Live = len(live)
	rep.Heap = h.Stats()
	if err := h.Verify(); err != nil {
		return rep, err
	}
	if !keepLive {
		for len(live) > 0 {
			if err := release(len(live) - 1); err != nil {
				return rep, err
			}
		}
	}
	return rep, nil
}

func runSimulate(args []string) error {
	l, err := loadLayout()
	if err != nil {
		return err
	}

	var backing platform.Backing
	switch simBacking {
	case "host":
		backing = platform.HostBacking
	case "buffer":
		backing = platform.BufferBacking
	default:
		return fmt.Errorf("unknown backing %q (want host or buffer)", simBacking)
	}

	s, err := bootLayout(l, backing)
	if err != nil {
		return err
	}
	defer s.Close()

	logger.Info("simulate", "ops", simOps, "seed", simSeed, "sizes", simSizes, "backing", simBacking)

	printVerbose("Booted %s heap at %s, running %d ops (seed %d)\n", formatBytes(l.Heap.Size), l.Heap, simOps, simSeed)

	rep, err := simulate(s.Heap, workload{
		Sizes:     simSizes,
		Ops:       simOps,
		Seed:      simSeed,
		FreeRatio: simFreeRatio,
	}, true)
	if err != nil {
		return err
	}
	rep.SegmentUsed = s.Segment.Used()
	if rep.NoSpace > 0 || rep.TooLarge > 0 {
		logger.Warn("simulate: allocations refused", "no_space", rep.NoSpace, "too_large", rep.TooLarge)
	}

	if jsonOut {
		return printJSON(rep)
	}

	printInfo("%s\n\n", render(headerStyle, fmt.Sprintf("Workload: %d ops, seed %d", rep.Ops, rep.Seed)))
	printInfo("  allocs:     %d\n", rep.Allocs)
	printInfo("  frees:      %d\n", rep.Frees)
	printInfo("  no space:   %s\n", failures(rep.NoSpace))
	printInfo("  too large:  %s\n", failures(rep.TooLarge))
	printInfo("  live:       %d (peak %d)\n", rep.Live, rep.PeakLive)
	printInfo("  in use:     %s of %s\n", formatBytes(rep.Heap.BytesInUse), formatBytes(rep.Heap.Region.Size))
	printInfo("  segment:    %d bytes\n\n", rep.SegmentUsed)

	t := &table{header: []string{"ORDER", "BLOCK", "USED", "FREE", "USAGE", "DOUBLE FREES"}}
	for _, a := range rep.Heap.Arenas {
		pct := 100 * float64(a.Used) / float64(a.Blocks)
		t.add([]string{
			fmt.Sprintf("%d", a.Order),
			formatBytes(a.BlockSize),
			fmt.Sprintf("%d", a.Used),
			fmt.Sprintf("%d", a.Free),
			fmt.Sprintf("%.1f%%", pct),
			fmt.Sprintf("%d", a.DoubleFrees),
		}, []lipgloss.Style{mutedStyle, mutedStyle, mutedStyle, mutedStyle, usageStyle(pct)})
	}
	printInfo("%s", t.String())
	return nil
}

func failures(n int) string {
	if n == 0 {
		return render(okStyle, "0")
	}
	return render(warnStyle, fmt.Sprintf("%d", n))
}
