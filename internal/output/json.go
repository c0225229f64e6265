package output

import (
	"encoding/json"
	"fmt"

	"github.com/virtforge/virtforge/internal/console"
	"github.com/virtforge/virtforge/internal/inspect"
	"github.com/virtforge/virtforge/internal/snapshot"
	"github.com/virtforge/virtforge/internal/vm"
)

// JSONFormatter formats resources as JSON.
type JSONFormatter struct{}

// FormatDomainList formats the domain inventory as a JSON array.
func (f *JSONFormatter) FormatDomainList(domains []inspect.Domain) (string, error) {
	if len(domains) == 0 {
		return "[]\n", nil
	}
	return marshalJSON(domains)
}

// FormatStatusList formats domains with their guest IPs as a JSON array.
func (f *JSONFormatter) FormatStatusList(statuses []inspect.DomainStatus) (string, error) {
	if len(statuses) == 0 {
		return "[]\n", nil
	}
	return marshalJSON(statuses)
}

// FormatDomainDetail formats one domain's configuration as JSON.
func (f *JSONFormatter) FormatDomainDetail(detail *inspect.DomainDetail) (string, error) {
	return marshalJSON(detail)
}

// FormatSnapshotList formats a domain's snapshots as a JSON array.
func (f *JSONFormatter) FormatSnapshotList(snapshots []snapshot.Snapshot) (string, error) {
	if len(snapshots) == 0 {
		return "[]\n", nil
	}
	return marshalJSON(snapshots)
}

// FormatResult formats a lifecycle action outcome as JSON.
func (f *JSONFormatter) FormatResult(result vm.ActionResult) (string, error) {
	return marshalJSON(result)
}

// FormatConnection formats console relay connection details as JSON.
func (f *JSONFormatter) FormatConnection(conn *console.Connection) (string, error) {
	return marshalJSON(conn)
}

func marshalJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal to JSON: %w", err)
	}
	return string(data) + "\n", nil
}
