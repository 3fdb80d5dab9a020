package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/unitalloc/mem"
)

var extendSize uint64

func init() {
	cmd := newExtendCmd()
	cmd.Flags().Uint64Var(&extendSize, "size", 1<<16, "Bytes to append to the region")
	rootCmd.AddCommand(cmd)
}

func newExtendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extend <file>",
		Short: "Grow a region file",
		Long: `The extend command appends memory to the end of a region file and hands it
to the allocator. Existing allocations are kept. Growth that adds no whole
unit, or more units than the bitmap can track, is rejected and the file is
left at its original size.

Example:
  unitctl extend heap.bin --size 65536`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtend(cmd.Context(), args[0], extendSize)
		},
	}
	return cmd
}

func runExtend(ctx context.Context, path string, size uint64) error {
	if size == 0 {
		return fmt.Errorf("extension size must be positive")
	}
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	oldSize := uint64(fi.Size())

	printVerbose("Growing %s from %s to %s bytes\n", path, formatNumber(oldSize), formatNumber(oldSize+size))
	rf, err := newRegionFile(path, int(oldSize+size))
	if err != nil {
		return err
	}

	if err := extendRegion(rf, oldSize, size); err != nil {
		return errors.Join(err, rf.close(), os.Truncate(path, int64(oldSize)))
	}

	st := rf.alloc.Stats()
	if err := rf.commitAndClose(ctx); err != nil {
		return err
	}
	if jsonOut {
		return printJSON(st)
	}
	printInfo("Extended %s by %s bytes\n", path, formatNumber(size))
	printStats(st)
	return nil
}

func extendRegion(rf *regionFile, oldSize, size uint64) error {
	base := rf.space.Base()
	cur, err := rf.space.Region(base, oldSize)
	if err != nil {
		return err
	}
	if err := rf.alloc.Attach(cur); err != nil {
		return fmt.Errorf("failed to attach %s: %w", rf.path, err)
	}
	ext, err := rf.space.Region(base+mem.Addr(oldSize), size)
	if err != nil {
		return err
	}
	if err := rf.alloc.Extend(ext); err != nil {
		return fmt.Errorf("failed to extend %s: %w", rf.path, err)
	}
	return nil
}
