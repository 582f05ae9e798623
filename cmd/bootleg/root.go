package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/warfish/bootleg/internal/logger"
	"github.com/warfish/bootleg/mem/dataseg"
	"github.com/warfish/bootleg/platform"
)

var (
	// Global flags
	verbose    bool
	quiet      bool
	jsonOut    bool
	noColor    bool
	debugLog   bool
	layoutPath string

	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "bootleg",
	Short: "Simulate the firmware memory foundation on the host",
	Long: `bootleg boots the fixed-address segment allocator and the power-of-two
size-class heap on host memory. It prints the memory map produced by a data
layout and runs seeded allocation workloads against it.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logCloser = logger.Init(logger.Options{
			Enabled: debugLog,
			Level:   slog.LevelDebug,
			Console: true,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().
		BoolVarP(&debugLog, "debug", "d", false, "Log allocator events to stderr (CP437 console encoding)")
	rootCmd.PersistentFlags().
		StringVarP(&layoutPath, "layout", "l", "", "YAML data layout (default: reference layout)")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v\n", err)
		os.Exit(1)
	}
}

// loadLayout returns the layout named by --layout, or the reference layout.
func loadLayout() (platform.Layout, error) {
	if layoutPath == "" {
		return platform.DefaultLayout(), nil
	}
	printVerbose("Loading layout: %s\n", layoutPath)
	return platform.LoadLayout(layoutPath)
}

// bootLayout boots l on backing. A segment too small for the heap
// bookkeeping aborts bring-up with a *dataseg.FatalError panic; it is
// reported as an error here so the CLI exits cleanly.
func bootLayout(l platform.Layout, backing platform.Backing) (s *platform.System, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		var fe *dataseg.FatalError
		if e, ok := r.(error); ok && errors.As(e, &fe) {
			s, err = nil, fmt.Errorf("boot: segment %s too small for heap bookkeeping: %w", fe.Region, fe)
			return
		}
		panic(r)
	}()

	s, err = platform.Boot(l, platform.WithBacking(backing))
	if err != nil {
		return nil, fmt.Errorf("boot: %w", err)
	}
	logger.Debug("booted", "segment", l.Segment.String(), "heap", l.Heap.String(), "word", l.Word.String())
	return s, nil
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
