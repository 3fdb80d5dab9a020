package main

import (
	"github.com/spf13/cobra"

	"github.com/joshuapare/unitalloc/mem"
	"github.com/joshuapare/unitalloc/mem/alloc"
)

func init() {
	rootCmd.AddCommand(newStatsCmd())
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <file>",
		Short: "Show allocator counters for a region file",
		Long: `The stats command attaches to a region file and reports its unit count,
free units and byte totals.

Example:
  unitctl stats heap.bin
  unitctl stats heap.bin --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(args[0])
		},
	}
	return cmd
}

func runStats(path string) error {
	return withRegionFile(path, func(rf *regionFile) error {
		st := rf.alloc.Stats()
		if jsonOut {
			return printJSON(st)
		}
		printInfo("Region: %s\n", path)
		printStats(st)
		return nil
	})
}

func printStats(st alloc.Stats) {
	if !st.Active {
		printInfo("  Allocator: inactive (%s bytes offered)\n", formatNumber(st.TotalBytes))
		return
	}
	printInfo("  Base: %s\n", mem.Addr(st.Base))
	printInfo("  Data Base: %s\n", mem.Addr(st.DataBase))
	printInfo("  Total: %s (%s bytes)\n", formatBytes(st.TotalBytes), formatNumber(st.TotalBytes))
	printInfo("  Units: %s x %d bytes\n", formatNumber(st.Units), st.UnitSize)
	printInfo("  Free Units: %s\n", formatNumber(st.FreeUnits))
	printInfo("  Used: %s bytes (%s)\n", formatNumber(st.UsedBytes), formatPercent(st.UsedBytes, st.AvailableBytes))
	printInfo("  Available: %s bytes\n", formatNumber(st.AvailableBytes))
}
