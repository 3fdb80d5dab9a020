package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/unitalloc/mem/snapshot"
)

var simulateSnapshot string

func init() {
	cmd := newSimulateCmd()
	cmd.Flags().StringVar(&simulateSnapshot, "snapshot", "", "Write the final allocator state as a CBOR snapshot")
	rootCmd.AddCommand(cmd)
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate <scenario.yaml>",
		Short: "Run an allocation scenario against an in-memory region",
		Long: `The simulate command reserves anonymous memory, initializes an allocator
over the scenario region and runs each step in order. A step whose outcome
differs from its expectation stops the run with an error.

Example:
  unitctl simulate fragmentation.yaml
  unitctl simulate fragmentation.yaml --snapshot final.cbor --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(args[0], simulateSnapshot)
		},
	}
	return cmd
}

func runSimulate(path, snapOut string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open scenario: %w", err)
	}
	sc, err := loadScenario(f)
	f.Close()
	if err != nil {
		return err
	}

	sim, err := newSimulation(sc, appLog)
	if err != nil {
		return err
	}
	defer sim.close()

	results, runErr := sim.run()

	if jsonOut {
		if err := printJSON(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			line := fmt.Sprintf("%3d %-6s", r.Index, r.Op)
			if r.Name != "" {
				line += " " + r.Name
			}
			if r.Addr != "" {
				line += " @ " + r.Addr
			}
			if r.Error != "" {
				line += " error: " + r.Error
			}
			printInfo("%s\n", line)
			printVerbose("    used %s of %s bytes, %s units free\n",
				formatNumber(r.Stats.UsedBytes), formatNumber(r.Stats.AvailableBytes), formatNumber(r.Stats.FreeUnits))
		}
		printInfo("\nFinal state:\n")
		printStats(sim.alloc.Stats())
	}

	if snapOut != "" {
		st, err := snapshot.Capture(sim.alloc, false)
		if err != nil {
			return errors.Join(runErr, err)
		}
		if err := writeSnapshot(snapOut, st); err != nil {
			return errors.Join(runErr, err)
		}
		printVerbose("Wrote snapshot %s\n", snapOut)
	}
	return runErr
}
