// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"time"

	"spectrum/internal/config"
	"spectrum/pkg/build"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// flagValues holds raw command line values before they are merged over the
// loaded configuration.
type flagValues struct {
	configPath string
	device     int
	input      string
	loop       bool
	refresh    time.Duration
	logLevel   string
	verbose    bool
}

// ParseArgs parses args (without the program name) and returns the merged
// configuration. A nil config with a nil error means cobra already handled
// the request (help or version) and there is nothing to run.
func ParseArgs(args []string) (*config.Config, error) {
	buildInfo := build.GetBuildFlags()

	var (
		flags   flagValues
		options *config.Config
	)

	load := func(cmd *cobra.Command, command string) error {
		cfg, err := config.LoadConfig(flags.configPath)
		if err != nil {
			return err
		}
		if err := flags.apply(cmd.Flags(), cfg); err != nil {
			return err
		}
		cfg.Command = command
		options = cfg
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Real-time terminal spectrum visualizer",
		Version:       buildInfo.Version,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, "")
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, "list")
		},
	}
	rootCmd.AddCommand(listCmd)

	pf := rootCmd.PersistentFlags()

	// Configuration file
	pf.StringVarP(&flags.configPath, "config", "f", "",
		"Path to a YAML configuration file (default: ./"+config.DefaultConfigFile+" if present)")

	// Input selection
	pf.IntVarP(&flags.device, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	pf.StringVarP(&flags.input, "input", "i", "",
		"Replay a WAV file instead of capturing from a device")
	pf.BoolVar(&flags.loop, "loop", false,
		"Restart the WAV file when it ends (requires --input)")

	// Display
	pf.DurationVarP(&flags.refresh, "refresh", "r", config.DefaultRefresh,
		"Time between spectrum frames")

	// Debug Configuration
	pf.StringVar(&flags.logLevel, "log-level", config.DefaultLogLevel,
		"Log level (debug, info, warn, error)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false,
		"Show verbose output (same as --log-level debug)")

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	return options, nil
}

// apply copies every explicitly set flag over cfg and revalidates.
func (f *flagValues) apply(fs *pflag.FlagSet, cfg *config.Config) error {
	if fs.Changed("device") {
		cfg.Audio.InputDevice = f.device
	}
	if fs.Changed("input") {
		cfg.Audio.InputFile = f.input
	}
	if fs.Changed("loop") {
		cfg.Audio.Loop = f.loop
	}
	if fs.Changed("refresh") {
		cfg.Display.Refresh = f.refresh
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if f.verbose {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}
