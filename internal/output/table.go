package output

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/virtforge/virtforge/internal/console"
	"github.com/virtforge/virtforge/internal/inspect"
	"github.com/virtforge/virtforge/internal/snapshot"
	"github.com/virtforge/virtforge/internal/vm"
)

// TableFormatter formats resources as human-readable tables.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool
}

// FormatDomainList formats the domain inventory as a table.
func (f *TableFormatter) FormatDomainList(domains []inspect.Domain) (string, error) {
	if len(domains) == 0 {
		return "No domains found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "NAME\tSTATE\tMEMORY\tMAX MEMORY\tVCPUS")
	}
	for _, d := range domains {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
			d.Name, d.StateName, formatMemory(d.MemoryKB), formatMemory(d.MaxMemoryKB), d.VCPUCount)
	}

	_ = w.Flush()
	return buf.String(), nil
}

// FormatStatusList formats domains with their guest IPs as a table.
func (f *TableFormatter) FormatStatusList(statuses []inspect.DomainStatus) (string, error) {
	if len(statuses) == 0 {
		return "No domains found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "NAME\tSTATE\tIP")
	}
	for _, s := range statuses {
		ip := s.GuestIP
		if ip == "" {
			ip = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, s.StateName, ip)
	}

	_ = w.Flush()
	return buf.String(), nil
}

// FormatDomainDetail formats one domain's configuration as labelled sections.
func (f *TableFormatter) FormatDomainDetail(detail *inspect.DomainDetail) (string, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Name:\t%s\n", detail.Name)
	fmt.Fprintf(&buf, "State:\t%s\n", detail.StateName)
	fmt.Fprintf(&buf, "Memory:\t%s / %s\n", formatMemory(detail.MemoryKB), formatMemory(detail.MaxMemoryKB))
	fmt.Fprintf(&buf, "VCPUs:\t%d\n", detail.VCPUCount)

	if detail.MemoryStats != (inspect.MemoryStats{}) {
		fmt.Fprintf(&buf, "Guest memory:\t%s used, %s available\n",
			formatMemory(detail.MemoryStats.ActualUsedKB), formatMemory(detail.MemoryStats.AvailableKB))
	}

	if len(detail.Disks) > 0 {
		buf.WriteString("\nDisks:\n")
		w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		if !f.NoHeaders {
			_, _ = fmt.Fprintln(w, "  DEVICE\tFORMAT\tBUS\tSOURCE")
		}
		for _, d := range detail.Disks {
			_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", d.Device, orDash(d.DriverType), orDash(d.Bus), orDash(d.SourcePath))
		}
		_ = w.Flush()
	}

	if len(detail.Interfaces) > 0 {
		buf.WriteString("\nInterfaces:\n")
		w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		if !f.NoHeaders {
			_, _ = fmt.Fprintln(w, "  TYPE\tMAC\tMODEL\tBRIDGE")
		}
		for _, n := range detail.Interfaces {
			_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", n.Type, orDash(n.MACAddress), orDash(n.ModelType), orDash(n.BridgeName))
		}
		_ = w.Flush()
	}

	if len(detail.Graphics) > 0 {
		buf.WriteString("\nGraphics:\n")
		for _, g := range detail.Graphics {
			fmt.Fprintf(&buf, "  %s port %d listen %s\n", g.Type, g.Port, orDash(g.ListenAddress))
		}
	}

	return buf.String(), nil
}

// FormatSnapshotList formats a domain's snapshots as a table.
func (f *TableFormatter) FormatSnapshotList(snapshots []snapshot.Snapshot) (string, error) {
	if len(snapshots) == 0 {
		return "No snapshots found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "NAME\tCREATED\tGUEST STATE\tPARENT\tDESCRIPTION")
	}
	for _, s := range snapshots {
		created := "-"
		if !s.CreatedAt.IsZero() {
			created = s.CreatedAt.Format("2006-01-02 15:04:05")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			s.Name, created, orDash(s.GuestState), orDash(s.Parent), orDash(s.Description))
	}

	_ = w.Flush()
	return buf.String(), nil
}

// FormatResult formats a lifecycle action outcome as a single line.
func (f *TableFormatter) FormatResult(result vm.ActionResult) (string, error) {
	if result.Success {
		return fmt.Sprintf("%s: %s succeeded (operation %s)\n", result.Domain, result.Action, result.OperationID), nil
	}
	return fmt.Sprintf("%s: %s failed: %s (operation %s)\n", result.Domain, result.Action, result.Error, result.OperationID), nil
}

// FormatConnection formats console relay connection details.
func (f *TableFormatter) FormatConnection(conn *console.Connection) (string, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Console:\t%s:%d\n", conn.Host, conn.ConsolePort)
	fmt.Fprintf(&buf, "Relay:\t%s:%d\n", conn.Host, conn.RelayPort)
	return buf.String(), nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// formatMemory renders a KiB quantity with a human unit.
// Examples: "512 KiB", "2048 MiB", "4.0 GiB"
func formatMemory(kib uint64) string {
	const (
		mib = 1024
		gib = 1024 * 1024
	)
	switch {
	case kib >= gib:
		return fmt.Sprintf("%.1f GiB", float64(kib)/float64(gib))
	case kib >= mib:
		return fmt.Sprintf("%d MiB", kib/mib)
	default:
		return fmt.Sprintf("%d KiB", kib)
	}
}
