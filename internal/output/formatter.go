// Package output renders virtforge resources for the CLI in table, YAML,
// and JSON form.
package output

import (
	"fmt"

	"github.com/virtforge/virtforge/internal/console"
	"github.com/virtforge/virtforge/internal/inspect"
	"github.com/virtforge/virtforge/internal/snapshot"
	"github.com/virtforge/virtforge/internal/vm"
)

// Format represents an output format type.
type Format string

const (
	// FormatTable is a human-readable table format.
	FormatTable Format = "table"
	// FormatYAML is a YAML format.
	FormatYAML Format = "yaml"
	// FormatJSON is a JSON format for machine consumption.
	FormatJSON Format = "json"
)

// Formatter renders virtforge resources for output.
type Formatter interface {
	// FormatDomainList renders the domain inventory.
	FormatDomainList(domains []inspect.Domain) (string, error)

	// FormatStatusList renders domains with their guest IPs.
	FormatStatusList(statuses []inspect.DomainStatus) (string, error)

	// FormatDomainDetail renders one domain's full configuration.
	FormatDomainDetail(detail *inspect.DomainDetail) (string, error)

	// FormatSnapshotList renders a domain's snapshots.
	FormatSnapshotList(snapshots []snapshot.Snapshot) (string, error)

	// FormatResult renders the outcome of a lifecycle action.
	FormatResult(result vm.ActionResult) (string, error)

	// FormatConnection renders console relay connection details.
	FormatConnection(conn *console.Connection) (string, error)
}

// Options contains options for formatting output.
type Options struct {
	// Format specifies the output format.
	Format Format
	// NoHeaders omits headers in table format.
	NoHeaders bool
}

// NewFormatter creates a new Formatter based on the specified format.
func NewFormatter(opts Options) (Formatter, error) {
	switch opts.Format {
	case FormatTable:
		return &TableFormatter{NoHeaders: opts.NoHeaders}, nil
	case FormatYAML:
		return &YAMLFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (supported: table, yaml, json)", opts.Format)
	}
}

// ValidateFormat checks if a format string is valid.
func ValidateFormat(format string) error {
	switch Format(format) {
	case FormatTable, FormatYAML, FormatJSON:
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid formats: table, yaml, json)", format)
	}
}
