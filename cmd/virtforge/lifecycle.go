package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/virtforge/virtforge/internal/config"
	"github.com/virtforge/virtforge/internal/storage"
	"github.com/virtforge/virtforge/internal/vm"
)

var (
	stopForce     bool
	removeStorage bool
)

func init() {
	stopCmd.Flags().BoolVarP(&stopForce, "force", "f", false, "Hard-stop the domain instead of requesting a guest shutdown")
	deleteCmd.Flags().BoolVar(&removeStorage, "remove-storage", false, "Also delete the domain's disk images")
}

func (a *app) controller() (*vm.Controller, error) {
	conn, err := a.hv.Connect()
	if err != nil {
		return nil, err
	}
	mgr := storage.NewManager(conn, a.logger)
	return vm.NewController(conn, mgr, a.runner, a.cfg, a.logger), nil
}

// printResult renders an ActionResult even when the action failed: the
// result carries the operation id and error text the operator needs.
func (a *app) printResult(result vm.ActionResult, err error) error {
	formatter, ferr := a.formatter()
	if ferr != nil {
		return ferr
	}
	out, ferr := formatter.FormatResult(result)
	if ferr != nil {
		return ferr
	}
	fmt.Print(out)
	return err
}

var startCmd = &cobra.Command{
	Use:   "start <domain>",
	Short: "Start a domain",
	Long:  `Boot a defined domain from its persisted configuration.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctrl, err := a.controller()
		if err != nil {
			return err
		}
		result, err := ctrl.Start(args[0])
		return a.printResult(result, err)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop <domain>",
	Short: "Stop a domain",
	Long: `Request a guest shutdown via ACPI.

The guest may ignore the signal; use --force to hard-stop the domain
immediately.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctrl, err := a.controller()
		if err != nil {
			return err
		}
		result, err := ctrl.Stop(args[0], stopForce)
		return a.printResult(result, err)
	},
}

var rebootCmd = &cobra.Command{
	Use:   "reboot <domain>",
	Short: "Reboot a domain",
	Long:  `Send a guest-level ACPI reboot signal to a running domain.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctrl, err := a.controller()
		if err != nil {
			return err
		}
		result, err := ctrl.Reboot(args[0])
		return a.printResult(result, err)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <domain>",
	Short: "Delete a domain",
	Long: `Delete a domain: stop it if running, then remove its definition
together with managed-save state, snapshot metadata, and NVRAM.

With --remove-storage the disk images referenced by the domain are
deleted first. Each volume is removed best-effort, so a broken volume
never blocks removal of the domain itself.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctrl, err := a.controller()
		if err != nil {
			return err
		}
		result, err := ctrl.Delete(args[0], removeStorage)
		return a.printResult(result, err)
	},
}

var createCmd = &cobra.Command{
	Use:   "create <request.yaml>",
	Short: "Provision a new domain from a request file",
	Long: `Provision a new domain from a YAML request file.

The request defines the domain's name, resources, install media, network,
and optional cloud-init settings. Provisioning allocates a qcow2 disk in
the configured storage pool, optionally builds a cloud-init seed ISO, and
defines and boots the domain. On failure, artifacts created so far are
rolled back.

Example request:

  name: vm-new
  memory_mb: 2048
  vcpus: 2
  disk_size_gb: 20
  iso_image: /srv/iso/debian-12.iso`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		req, err := config.LoadRequest(args[0])
		if err != nil {
			return fmt.Errorf("failed to load request: %w", err)
		}

		ctrl, err := a.controller()
		if err != nil {
			return err
		}
		result, err := ctrl.Create(context.Background(), req)
		return a.printResult(result, err)
	},
}
