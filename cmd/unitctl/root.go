package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/joshuapare/unitalloc/internal/logger"
)

const (
	// The prefix for configuration keys inside environment.
	envPrefix = "UNITCTL"

	// defaultBase is the nominal address regions are placed at.
	defaultBase = 0x1000_0000

	keyConfig = "config"
)

var (
	// Global flags
	verbose   bool
	quiet     bool
	jsonOut   bool
	baseAddr  uint64
	cfgFile   string
	logLevel  string
	logFormat string
	logOutput string

	// appLog is replaced in PersistentPreRunE once flags are resolved.
	appLog      = logger.Discard()
	closeAppLog = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "unitctl",
	Short: "Create, inspect and exercise unit allocator regions",
	Long: `unitctl manages regions served by the 32-byte unit allocator. A region
file holds the occupancy bitmap followed by the data area, so allocations
persist between invocations. Scenarios drive an in-memory allocator from a
YAML script, and snapshots checkpoint allocator state as CBOR.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initializeConfig(cmd); err != nil {
			return fmt.Errorf("failed to initialize configuration: %w", err)
		}
		return initLogger()
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeAppLog()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().
		Uint64Var(&baseAddr, "base", defaultBase, "Nominal base address of the region (accepts 0x prefix)")
	rootCmd.PersistentFlags().StringVar(&cfgFile, keyConfig, "", "Config file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Logging level: DEBUG, INFO, WARN, ERROR")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")
	rootCmd.PersistentFlags().StringVar(&logOutput, "log-file", "stderr", "Log destination: stderr, stdout, discard or a file path")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initializeConfig reads in the config file and environment variables and
// applies them to flags the user did not set explicitly.
func initializeConfig(cmd *cobra.Command) error {
	v := viper.New()

	if cfgFile == "" {
		cfgFile = os.Getenv(envPrefix + "_CONFIG")
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading %s: %w", cfgFile, err)
		}
	}

	// --log-level binds to UNITCTL_LOG_LEVEL.
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return bindFlags(cmd, v)
}

// bindFlags applies each viper value to its cobra flag when the flag was not set.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var bindFlagErr []error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Name == keyConfig {
			return
		}
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				bindFlagErr = append(bindFlagErr, fmt.Errorf("setting flag %q value: %w", f.Name, err))
			}
		}
	})
	return errors.Join(bindFlagErr...)
}

func initLogger() error {
	level := logLevel
	if verbose && strings.EqualFold(level, "warn") {
		level = "debug"
	}
	l, closeFn, err := logger.New(logger.Options{Output: logOutput, Level: level, Format: logFormat})
	if err != nil {
		return err
	}
	appLog, closeAppLog = l, closeFn
	slog.SetDefault(appLog)
	return nil
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
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
