package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/unitalloc/mem"
	"github.com/joshuapare/unitalloc/mem/alloc"
	"github.com/joshuapare/unitalloc/mem/snapshot"
)

var (
	snapshotData bool
	restoreForce bool
)

func init() {
	snapCmd := newSnapshotCmd()
	snapCmd.Flags().BoolVar(&snapshotData, "data", false, "Include the data area in the snapshot")
	rootCmd.AddCommand(snapCmd)

	restoreCmd := newRestoreCmd()
	restoreCmd.Flags().BoolVarP(&restoreForce, "force", "f", false, "Overwrite an existing file")
	rootCmd.AddCommand(restoreCmd)

	rootCmd.AddCommand(newInspectCmd())
}

func newSnapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <file> <out>",
		Short: "Write a CBOR snapshot of a region file",
		Long: `The snapshot command records the allocator counters and bitmap of a region
file as CBOR. With --data the data area is included and restore reproduces
the file exactly.

Example:
  unitctl snapshot heap.bin heap.cbor
  unitctl snapshot heap.bin heap.cbor --data`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(args[0], args[1], snapshotData)
		},
	}
}

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <snapshot> <file>",
		Short: "Rebuild a region file from a snapshot",
		Long: `The restore command creates a region file from a snapshot. The region is
placed at the base address recorded in the snapshot.

Example:
  unitctl restore heap.cbor heap-copy.bin`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(args[0], args[1], restoreForce)
		},
	}
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <snapshot>",
		Short: "Show the contents of a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(args[0])
		},
	}
}

func writeSnapshot(path string, st *snapshot.State) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return snapshot.Encode(f, st)
}

func readSnapshot(path string) (*snapshot.State, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return snapshot.Decode(f)
}

func runSnapshot(path, out string, withData bool) error {
	return withRegionFile(path, func(rf *regionFile) error {
		st, err := snapshot.Capture(rf.alloc, withData)
		if err != nil {
			return err
		}
		if err := writeSnapshot(out, st); err != nil {
			return err
		}
		printInfo("Wrote %s (%s units, %s free)\n", out, formatNumber(st.Units), formatNumber(st.FreeUnits))
		return nil
	})
}

func runRestore(in, path string, force bool) error {
	st, err := readSnapshot(in)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		if !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}

	sp, err := mem.OpenSpace(path, mem.Addr(st.Base), int(st.Total))
	if err != nil {
		return fmt.Errorf("failed to map %s: %w", path, err)
	}
	a, err := snapshot.Restore(st, sp, &alloc.Options{Logger: appLog})
	if err != nil {
		_ = sp.Close()
		_ = os.Remove(path)
		return err
	}
	if err := errors.Join(sp.Sync(0, sp.Len()), sp.Close()); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if jsonOut {
		return printJSON(a.Stats())
	}
	printInfo("Restored %s\n", path)
	printStats(a.Stats())
	return nil
}

type inspectResult struct {
	Version   uint8  `json:"version"`
	Base      string `json:"base"`
	Total     uint64 `json:"total_bytes"`
	UnitSize  uint64 `json:"unit_size"`
	Units     uint64 `json:"units"`
	FreeUnits uint64 `json:"free_units"`
	Bitmap    int    `json:"bitmap_bytes"`
	Data      int    `json:"data_bytes"`
}

func runInspect(path string) error {
	st, err := readSnapshot(path)
	if err != nil {
		return err
	}
	res := inspectResult{
		Version:   st.Version,
		Base:      mem.Addr(st.Base).String(),
		Total:     st.Total,
		UnitSize:  st.UnitSize,
		Units:     st.Units,
		FreeUnits: st.FreeUnits,
		Bitmap:    len(st.Bitmap),
		Data:      len(st.Data),
	}
	if jsonOut {
		return printJSON(res)
	}
	printInfo("Snapshot: %s\n", path)
	printInfo("  Version: %d\n", res.Version)
	printInfo("  Base: %s\n", res.Base)
	printInfo("  Total: %s bytes\n", formatNumber(res.Total))
	printInfo("  Units: %s x %d bytes\n", formatNumber(res.Units), res.UnitSize)
	printInfo("  Free Units: %s\n", formatNumber(res.FreeUnits))
	printInfo("  Bitmap: %s bytes\n", formatNumber(uint64(res.Bitmap)))
	if res.Data > 0 {
		printInfo("  Data: %s bytes\n", formatNumber(uint64(res.Data)))
	}
	return nil
}
