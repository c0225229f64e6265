package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/virtforge/virtforge/internal/inspect"
)

func (a *app) inspector() (*inspect.Inspector, error) {
	conn, err := a.hv.Connect()
	if err != nil {
		return nil, err
	}
	return inspect.NewInspector(conn, a.logger), nil
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List domains",
	Long: `List all domains defined on the hypervisor.

Shows name, state, memory, and vCPU count for each domain.`,
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

		insp, err := a.inspector()
		if err != nil {
			return err
		}
		domains, err := insp.List()
		if err != nil {
			return fmt.Errorf("failed to list domains: %w", err)
		}

		result, err := formatter.FormatDomainList(domains)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		fmt.Print(result)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show domain status with guest IPs",
	Long: `Show every domain together with its guest IP address.

The IP is discovered through the guest agent and is best-effort: a
domain without an agent, or one that has not yet acquired an address,
shows an empty IP.`,
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

		insp, err := a.inspector()
		if err != nil {
			return err
		}
		byName, err := insp.Status()
		if err != nil {
			return fmt.Errorf("failed to get domain status: %w", err)
		}

		statuses := make([]inspect.DomainStatus, 0, len(byName))
		for _, s := range byName {
			statuses = append(statuses, s)
		}
		sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })

		result, err := formatter.FormatStatusList(statuses)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		fmt.Print(result)
		return nil
	},
}

var detailsCmd = &cobra.Command{
	Use:   "details <domain>",
	Short: "Show full details for one domain",
	Long: `Show one domain's configuration and runtime state.

Includes disks, network interfaces, graphics consoles, and guest memory
statistics when the balloon driver reports them.

Output formats:
  -o table  Human-readable sections (default)
  -o yaml   Full YAML document
  -o json   Full JSON document`,
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

		insp, err := a.inspector()
		if err != nil {
			return err
		}
		detail, err := insp.Details(args[0])
		if err != nil {
			return fmt.Errorf("failed to get domain details: %w", err)
		}

		result, err := formatter.FormatDomainDetail(detail)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		fmt.Print(result)
		return nil
	},
}
