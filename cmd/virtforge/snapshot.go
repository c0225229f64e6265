package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/virtforge/virtforge/internal/snapshot"
)

var snapshotDescription string

func init() {
	snapshotCreateCmd.Flags().StringVarP(&snapshotDescription, "description", "d", "", "Free-form snapshot description")

	snapshotCmd.AddCommand(snapshotListCmd)
	snapshotCmd.AddCommand(snapshotCreateCmd)
}

func (a *app) snapshots() (*snapshot.Manager, error) {
	conn, err := a.hv.Connect()
	if err != nil {
		return nil, err
	}
	return snapshot.NewManager(conn, a.logger), nil
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage domain snapshots",
	Long:  `List and create snapshots of a domain's disk and memory state.`,
}

var snapshotListCmd = &cobra.Command{
	Use:   "list <domain>",
	Short: "List a domain's snapshots",
	Long: `List every snapshot of a domain.

Shows name, creation time, guest state at capture, parent snapshot, and
description. Snapshots whose metadata cannot be read are skipped.`,
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

		mgr, err := a.snapshots()
		if err != nil {
			return err
		}
		snaps, err := mgr.List(args[0])
		if err != nil {
			return fmt.Errorf("failed to list snapshots: %w", err)
		}

		result, err := formatter.FormatSnapshotList(snaps)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		fmt.Print(result)
		return nil
	},
}

var snapshotCreateCmd = &cobra.Command{
	Use:   "create <domain> <name>",
	Short: "Create a snapshot",
	Long: `Create a named snapshot of a domain.

A running domain's memory state is captured alongside its disks, so the
snapshot can restore the domain mid-flight.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		mgr, err := a.snapshots()
		if err != nil {
			return err
		}
		result, err := mgr.Create(args[0], args[1], snapshotDescription)
		return a.printResult(result, err)
	},
}
