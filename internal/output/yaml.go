package output

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/virtforge/virtforge/internal/console"
	"github.com/virtforge/virtforge/internal/inspect"
	"github.com/virtforge/virtforge/internal/snapshot"
	"github.com/virtforge/virtforge/internal/vm"
)

// YAMLFormatter formats resources as YAML.
type YAMLFormatter struct{}

// FormatDomainList formats the domain inventory as a YAML sequence.
func (f *YAMLFormatter) FormatDomainList(domains []inspect.Domain) (string, error) {
	if len(domains) == 0 {
		return "[]\n", nil
	}
	return marshalYAML(domains)
}

// FormatStatusList formats domains with their guest IPs as a YAML sequence.
func (f *YAMLFormatter) FormatStatusList(statuses []inspect.DomainStatus) (string, error) {
	if len(statuses) == 0 {
		return "[]\n", nil
	}
	return marshalYAML(statuses)
}

// FormatDomainDetail formats one domain's configuration as YAML.
func (f *YAMLFormatter) FormatDomainDetail(detail *inspect.DomainDetail) (string, error) {
	return marshalYAML(detail)
}

// FormatSnapshotList formats a domain's snapshots as a YAML sequence.
func (f *YAMLFormatter) FormatSnapshotList(snapshots []snapshot.Snapshot) (string, error) {
	if len(snapshots) == 0 {
		return "[]\n", nil
	}
	return marshalYAML(snapshots)
}

// FormatResult formats a lifecycle action outcome as YAML.
func (f *YAMLFormatter) FormatResult(result vm.ActionResult) (string, error) {
	return marshalYAML(result)
}

// FormatConnection formats console relay connection details as YAML.
func (f *YAMLFormatter) FormatConnection(conn *console.Connection) (string, error) {
	return marshalYAML(conn)
}

func marshalYAML(v interface{}) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal to YAML: %w", err)
	}
	return string(data), nil
}
