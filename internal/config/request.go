package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/virtforge/virtforge/internal/virterr"
)

// NetworkDefault is the sentinel bridge name selecting libvirt's NAT network
// instead of an explicit host bridge.
const NetworkDefault = "default"

// DefaultOSVariant is passed to the definition tool when the request does not
// name one.
const DefaultOSVariant = "generic"

// Request describes one VM to provision.
type Request struct {
	Name          string `yaml:"name"`
	MemoryMB      int    `yaml:"memory_mb"`
	VCPUCount     int    `yaml:"vcpus"`
	DiskSizeGB    int    `yaml:"disk_size_gb"`
	ISOImagePath  string `yaml:"iso_image"`
	NetworkBridge string `yaml:"network_bridge,omitempty"`
	OSVariant     string `yaml:"os_variant,omitempty"`
	Autostart     bool   `yaml:"autostart,omitempty"`

	CloudInit *CloudInit `yaml:"cloud_init,omitempty"`
}

// CloudInit carries the optional NoCloud seed data attached to a new VM.
type CloudInit struct {
	FQDN             string   `yaml:"fqdn,omitempty"`
	SSHKeys          []string `yaml:"ssh_keys,omitempty"`
	RootPasswordHash string   `yaml:"root_password_hash,omitempty"`
}

// Domain names follow libvirt rules: alphanumeric ends, hyphens/underscores
// inside.
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9_-]*[a-zA-Z0-9])?$`)

// Validate checks the request structure. It performs no hypervisor or
// filesystem checks; those belong to the provisioning workflow.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if !namePattern.MatchString(r.Name) {
		return fmt.Errorf("name %q must start and end with alphanumeric characters and contain only alphanumerics, hyphens, or underscores", r.Name)
	}
	if r.MemoryMB <= 0 {
		return fmt.Errorf("memory_mb must be > 0, got %d", r.MemoryMB)
	}
	if r.VCPUCount <= 0 {
		return fmt.Errorf("vcpus must be > 0, got %d", r.VCPUCount)
	}
	if r.DiskSizeGB <= 0 {
		return fmt.Errorf("disk_size_gb must be > 0, got %d", r.DiskSizeGB)
	}
	if strings.TrimSpace(r.ISOImagePath) == "" {
		return fmt.Errorf("iso_image is required")
	}
	return nil
}

// Normalize fills defaulted fields in place.
func (r *Request) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	if r.NetworkBridge == "" {
		r.NetworkBridge = NetworkDefault
	}
	if r.OSVariant == "" {
		r.OSVariant = DefaultOSVariant
	}
}

// LoadRequest reads, normalizes, and validates a provisioning request from a
// YAML file. Malformed documents, including non-numeric values in numeric
// fields, are invalid requests, not internal failures.
func LoadRequest(path string) (*Request, error) {
	const op = "config.load_request"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, virterr.Wrap(virterr.KindInvalidRequest, op, path, err)
	}

	var req Request
	if err := yaml.Unmarshal(data, &req); err != nil {
		return nil, virterr.Wrap(virterr.KindInvalidRequest, op, path, err)
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, virterr.Wrap(virterr.KindInvalidRequest, op, req.Name, err)
	}
	return &req, nil
}
