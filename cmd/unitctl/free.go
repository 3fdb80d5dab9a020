package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joshuapare/unitalloc/mem"
)

var (
	freeSize  uint64
	freeAlign uint64
)

func init() {
	cmd := newFreeCmd()
	cmd.Flags().Uint64Var(&freeSize, "size", 32, "Size the memory was allocated with")
	cmd.Flags().Uint64Var(&freeAlign, "align", 1, "Alignment the memory was allocated with")
	rootCmd.AddCommand(cmd)
}

func newFreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "free <file> <addr>...",
		Short: "Release allocations in a region file",
		Long: `The free command returns memory obtained from alloc. The size must match
the size used to allocate it. Releasing memory that is not allocated is an
error.

Example:
  unitctl free heap.bin 0x10006000 --size 100
  unitctl free heap.bin 0x10006000 0x10006080 --size 64`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFree(cmd.Context(), args[0], args[1:], freeSize, freeAlign)
		},
	}
	return cmd
}

func parseAddr(s string) (mem.Addr, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return mem.Addr(v), nil
}

func runFree(ctx context.Context, path string, addrs []string, size, align uint64) error {
	parsed := make([]mem.Addr, 0, len(addrs))
	for _, s := range addrs {
		addr, err := parseAddr(s)
		if err != nil {
			return err
		}
		parsed = append(parsed, addr)
	}

	rf, err := openRegionFile(path)
	if err != nil {
		return err
	}

	var freeErr error
	freed := 0
	for _, addr := range parsed {
		if freeErr = rf.alloc.TryDealloc(addr, size, align); freeErr != nil {
			freeErr = fmt.Errorf("failed to free %s: %w", addr, freeErr)
			break
		}
		freed++
		printVerbose("Freed %s\n", addr)
	}

	if err := rf.commitAndClose(ctx); err != nil {
		return err
	}
	if !jsonOut {
		printInfo("Freed %d of %d allocations\n", freed, len(parsed))
	} else if err := printJSON(map[string]int{"freed": freed, "requested": len(parsed)}); err != nil {
		return err
	}
	return freeErr
}
