package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/unitalloc/mem/alloc"
)

var (
	createSize  uint64
	createForce bool
)

func init() {
	cmd := newCreateCmd()
	cmd.Flags().Uint64Var(&createSize, "size", 1<<20, "Region size in bytes, bitmap reserve included")
	cmd.Flags().BoolVarP(&createForce, "force", "f", false, "Overwrite an existing file")
	rootCmd.AddCommand(cmd)
}

func newCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <file>",
		Short: "Create a region file with every unit free",
		Long: `The create command writes a new region file: a zeroed bitmap reserve
followed by the data area. The region must be larger than the bitmap reserve
and small enough for the bitmap to track.

Example:
  unitctl create heap.bin --size 1048576
  unitctl create heap.bin --size 0x100000 --base 0x40000000 --force`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd.Context(), args[0], createSize, createForce)
		},
	}
	return cmd
}

func runCreate(ctx context.Context, path string, size uint64, force bool) error {
	if size <= alloc.BitmapReserve {
		return fmt.Errorf("size %d must exceed the %d byte bitmap reserve", size, alloc.BitmapReserve)
	}
	if _, err := os.Stat(path); err == nil {
		if !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}

	printVerbose("Creating %s (%s bytes)\n", path, formatNumber(size))
	rf, err := newRegionFile(path, int(size))
	if err != nil {
		return err
	}
	rf.alloc.Init(rf.space.All())
	if !rf.alloc.Active() {
		_ = rf.close()
		_ = os.Remove(path)
		return fmt.Errorf("region of %d bytes cannot be tracked by a %d unit bitmap", size, alloc.MaxUnits)
	}
	st := rf.alloc.Stats()
	if err := rf.commitAndClose(ctx); err != nil {
		return err
	}

	if jsonOut {
		return printJSON(st)
	}
	printInfo("Created %s\n", path)
	printStats(st)
	return nil
}
