package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pavanmanishd/netbuf/arena"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose   bool
	arenaSize int
)

var rootCmd = &cobra.Command{
	Use:   "chainctl",
	Short: "Drive the arena and buffer chain pipeline from the command line",
	Long: `chainctl pushes files and header blocks through the per-connection
arena, the segmented header list and the output chain, and reports how much
memory each run needed.`,
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log arena diagnostics to stderr")
	rootCmd.PersistentFlags().IntVar(&arenaSize, "arena-size", arena.DefaultSize, "Size of every arena block in bytes")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger returns a debug logger on stderr in verbose mode and a
// discarding one otherwise.
func newLogger() *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// newArena creates the arena for one run.
func newArena() (*arena.Arena, error) {
	return arena.New(arenaSize, arena.WithLogger(newLogger()))
}

// printMetrics writes arena statistics to w.
func printMetrics(w io.Writer, m arena.Metrics) {
	fmt.Fprintf(w, "blocks: %d x %d bytes\n", m.NumBlocks, m.BlockSize)
	fmt.Fprintf(w, "in use: %d of %d bytes (%.2f%%)\n", m.SizeInUse, m.Capacity, m.Utilization*100)
	fmt.Fprintf(w, "large:  %d allocations, %d bytes\n", m.NumLarge, m.LargeBytes)
}
