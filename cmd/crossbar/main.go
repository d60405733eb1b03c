package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tirem/crossbar/internal/app"
	"github.com/tirem/crossbar/internal/bar/palette"
	"github.com/tirem/crossbar/internal/config"
	"github.com/tirem/crossbar/internal/input/adapter"
	"github.com/tirem/crossbar/internal/persist"
	"github.com/tirem/crossbar/internal/sim"
)

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "crossbar",
	Short: "Controller crossbar and hotbar input engine",
	Long: `crossbar resolves controller trigger combos into slot bank lookups and
manages palettes, slot bindings, and keybinds for hotbar-style UIs.

Run without arguments to start the interactive simulator.

Examples:
  crossbar                             # Start the simulator
  crossbar simulate --job 3 --subjob 5 # Simulate a specific job context
  crossbar validate -c crossbar.toml   # Check a settings file
  crossbar migrate old.json new.json   # Upgrade a v1 snapshot`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSimulate()
	},
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the interactive terminal simulator",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSimulate()
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a settings file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		fmt.Printf("%s: ok\n", flagConfig)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate <in.json> <out.json>",
	Short: "Upgrade a version 1 snapshot file to the current format",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		migrated, err := persist.MigrateV1(data)
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[1], migrated, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", args[1], err)
		}
		fmt.Printf("migrated %s -> %s\n", args[0], args[1])
		return nil
	},
}

var (
	flagConfig string
	flagJob    int
	flagSubJob int
	flagWatch  bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", defaultConfigPath(), "settings file")
	rootCmd.PersistentFlags().IntVar(&flagJob, "job", 1, "job context (1-22)")
	rootCmd.PersistentFlags().IntVar(&flagSubJob, "subjob", 0, "subjob context (0 = none)")
	rootCmd.PersistentFlags().BoolVar(&flagWatch, "watch", true, "reload settings on change")

	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(migrateCmd)
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "crossbar.toml"
	}
	return dir + "/crossbar/crossbar.toml"
}

func runSimulate() error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var scheme *adapter.Scheme
	if cfg.Paths.Layout != "" {
		scheme, err = adapter.LoadScheme(cfg.Paths.Layout)
		if err != nil {
			return err
		}
	}
	pad := adapter.NewMappedAdapter(scheme)
	recorder := sim.NewRecorder(8)

	a, err := app.New(app.Options{
		ConfigPath:  flagConfig,
		Adapter:     pad,
		Dispatcher:  recorder,
		WatchConfig: flagWatch,
	})
	if err != nil {
		return err
	}
	if err := a.Engine().SetContext(flagJob, palette.SubJobID(flagSubJob)); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.StartWatcher(ctx); err != nil {
		return err
	}
	defer a.StopWatcher()

	simulator, err := sim.New(a, pad, recorder)
	if err != nil {
		return err
	}
	return simulator.Run(ctx)
}
