package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/virtforge/virtforge/internal/config"
	"github.com/virtforge/virtforge/internal/hypervisor"
	"github.com/virtforge/virtforge/internal/output"
	"github.com/virtforge/virtforge/internal/toolexec"
)

var (
	version = "dev"
	commit  = "unknown"
)

var (
	outputFormat string
	noHeaders    bool
	configPath   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "virtforge",
	Short: "Virtforge - single-host libvirt VM lifecycle tool",
	Long: `Virtforge manages the lifecycle of virtual machines on one libvirt host.

It provides commands to provision, inspect, start, stop, snapshot, and
delete domains, and to expose their spice consoles through websocket
relays.`,
	Version: fmt.Sprintf("%s (commit: %s)", version, commit),
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table, yaml, json)")
	rootCmd.PersistentFlags().BoolVar(&noHeaders, "no-headers", false, "Omit headers in table output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML settings file (default $VIRTFORGE_CONFIG)")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(detailsCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(rebootCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(testConnCmd)
}

// app bundles the configuration and shared collaborators every command
// needs. The libvirt session inside hv is established lazily, so building
// an app never touches the daemon.
type app struct {
	cfg    config.Host
	logger zerolog.Logger
	hv     *hypervisor.Client
	runner toolexec.Runner
}

func newApp() (*app, error) {
	// A missing .env is fine; the environment still applies.
	_ = godotenv.Load()

	cfg, err := config.LoadHost(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	return &app{
		cfg:    cfg,
		logger: logger,
		hv:     hypervisor.NewClient(cfg.SocketPath, 0, logger),
		runner: toolexec.NewRunner(cfg.ToolTimeout, logger),
	}, nil
}

func (a *app) close() {
	if err := a.hv.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("closing libvirt session failed")
	}
}

func (a *app) formatter() (output.Formatter, error) {
	if err := output.ValidateFormat(outputFormat); err != nil {
		return nil, err
	}
	return output.NewFormatter(output.Options{
		Format:    output.Format(outputFormat),
		NoHeaders: noHeaders,
	})
}

var testConnCmd = &cobra.Command{
	Use:   "test-conn",
	Short: "Test libvirt connection",
	Long:  `Test connectivity to the libvirt daemon and display version information.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		fmt.Println("Testing libvirt connection...")

		if err := a.hv.Ping(); err != nil {
			return fmt.Errorf("connection test failed: %w", err)
		}
		fmt.Println("✓ Connected to libvirt daemon")

		// libvirt encodes the version as major*1000000 + minor*1000 + release.
		v, err := a.hv.Version()
		if err != nil {
			return fmt.Errorf("failed to get libvirt version: %w", err)
		}
		fmt.Printf("✓ Libvirt version: %d.%d.%d\n", v/1000000, (v%1000000)/1000, v%1000)

		fmt.Println("\nConnection test successful!")
		return nil
	},
}
