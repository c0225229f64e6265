package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/virtforge/virtforge/internal/console"
)

var consoleCmd = &cobra.Command{
	Use:   "console <domain>",
	Short: "Expose a domain's spice console through a websocket relay",
	Long: `Make a running domain's spice console reachable from a browser.

A websocket relay is started for the domain's console port if one is not
already serving it; repeated calls reuse the existing relay. The command
prints the console and relay endpoints to connect to.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		formatter, err := a.formatter()
		if err != nil {
			return err
		}

		conn, err := a.hv.Connect()
		if err != nil {
			return err
		}
		sup := console.NewSupervisor(conn, a.runner, a.cfg, a.logger)

		connection, err := sup.Ensure(args[0])
		if err != nil {
			return fmt.Errorf("failed to expose console: %w", err)
		}

		result, err := formatter.FormatConnection(connection)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		fmt.Print(result)
		return nil
	},
}
