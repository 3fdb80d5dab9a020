package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/unitalloc/mem"
)

var (
	allocSize  uint64
	allocAlign uint64
	allocCount int
	allocData  string
)

func init() {
	cmd := newAllocCmd()
	cmd.Flags().Uint64Var(&allocSize, "size", 32, "Bytes to allocate")
	cmd.Flags().Uint64Var(&allocAlign, "align", 1, "Alignment in bytes (power of two)")
	cmd.Flags().IntVarP(&allocCount, "count", "n", 1, "Number of allocations to make")
	cmd.Flags().StringVar(&allocData, "data", "", "Bytes to store in each allocation")
	rootCmd.AddCommand(cmd)
}

func newAllocCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alloc <file>",
		Short: "Allocate memory from a region file",
		Long: `The alloc command reserves the first run of free units large enough for
the request and prints its address. The allocation persists in the file until
it is released with free.

Example:
  unitctl alloc heap.bin --size 100
  unitctl alloc heap.bin --size 256 --align 64 -n 4
  unitctl alloc heap.bin --size 16 --data "hello"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAlloc(cmd.Context(), args[0], allocSize, allocAlign, allocCount, allocData)
		},
	}
	return cmd
}

type allocResult struct {
	Addr  string `json:"addr"`
	Size  uint64 `json:"size"`
	Align uint64 `json:"align"`
}

func runAlloc(ctx context.Context, path string, size, align uint64, count int, data string) error {
	if count < 1 {
		return fmt.Errorf("count must be at least 1, got %d", count)
	}
	if uint64(len(data)) > size {
		return fmt.Errorf("data is %d bytes but the allocation is %d", len(data), size)
	}

	rf, err := openRegionFile(path)
	if err != nil {
		return err
	}

	results := make([]allocResult, 0, count)
	var allocErr error
	for i := 0; i < count; i++ {
		var addr mem.Addr
		addr, allocErr = rf.alloc.Alloc(size, align)
		if allocErr != nil {
			allocErr = fmt.Errorf("allocation %d of %d failed: %w", i+1, count, allocErr)
			break
		}
		if data != "" {
			if allocErr = rf.write(addr, []byte(data)); allocErr != nil {
				break
			}
		}
		results = append(results, allocResult{Addr: addr.String(), Size: size, Align: align})
	}

	// Allocations made before a failure are kept.
	if err := rf.commitAndClose(ctx); err != nil {
		return err
	}

	if jsonOut {
		if err := printJSON(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			printInfo("%s\n", r.Addr)
		}
	}
	return allocErr
}
