// Package config holds virtforge host configuration and the provisioning
// request format.
//
// Host settings are layered: defaults, then an optional YAML settings file,
// then VIRTFORGE_* environment variables (optionally seeded from a .env file
// by the CLI), each layer overriding the one below. Provisioning requests
// are YAML documents loaded per-invocation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Host configures the daemon-facing side: where libvirt lives, which pool
// backs provisioning, and how the console relays are run and advertised.
type Host struct {
	// SocketPath is the libvirt control socket. Empty means qemu:///system.
	SocketPath string

	// StoragePool is the pool provisioning places disk images in.
	StoragePool string

	// AdvertisedHost is the name or address console clients connect to.
	// Defaults to os.Hostname().
	AdvertisedHost string

	// DiskImageTool creates copy-on-write disk images.
	DiskImageTool string

	// DefineTool defines and boots new domains.
	DefineTool string

	// RelayTool bridges a console port to a browser-usable transport.
	RelayTool string

	// ToolTimeout bounds every external tool invocation.
	ToolTimeout time.Duration

	// RegisterWait bounds how long provisioning waits for a freshly
	// defined domain to become resolvable.
	RegisterWait time.Duration

	// LogLevel is a zerolog level name ("debug", "info", "warn", ...).
	LogLevel string
}

// Defaults for Host fields.
const (
	DefaultStoragePool  = "default"
	DefaultDiskTool     = "qemu-img"
	DefaultDefineTool   = "virt-install"
	DefaultRelayTool    = "websockify"
	DefaultToolTimeout  = 2 * time.Minute
	DefaultRegisterWait = 10 * time.Second
)

// fileSettings mirrors Host in the on-disk YAML settings document.
// Durations are whole seconds, matching the environment variables.
type fileSettings struct {
	SocketPath     string `yaml:"socket,omitempty"`
	StoragePool    string `yaml:"pool,omitempty"`
	AdvertisedHost string `yaml:"host,omitempty"`
	DiskImageTool  string `yaml:"disk_tool,omitempty"`
	DefineTool     string `yaml:"define_tool,omitempty"`
	RelayTool      string `yaml:"relay_tool,omitempty"`
	ToolTimeoutS   int    `yaml:"tool_timeout_s,omitempty"`
	RegisterWaitS  int    `yaml:"register_wait_s,omitempty"`
	LogLevel       string `yaml:"log_level,omitempty"`
}

// HostFromEnv builds a Host from defaults and VIRTFORGE_* environment
// variables, without a settings file.
func HostFromEnv() (Host, error) {
	return LoadHost("")
}

// LoadHost builds a Host by layering defaults, the optional YAML settings
// file at path (or $VIRTFORGE_CONFIG when path is empty), and VIRTFORGE_*
// environment variables, in increasing precedence. An empty resolved path
// skips the file layer; a named file that is missing is an error.
func LoadHost(path string) (Host, error) {
	h := Host{
		StoragePool:   DefaultStoragePool,
		DiskImageTool: DefaultDiskTool,
		DefineTool:    DefaultDefineTool,
		RelayTool:     DefaultRelayTool,
		ToolTimeout:   DefaultToolTimeout,
		RegisterWait:  DefaultRegisterWait,
		LogLevel:      "info",
	}

	if path == "" {
		path = os.Getenv("VIRTFORGE_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Host{}, fmt.Errorf("read settings file: %w", err)
		}
		var fs fileSettings
		if err := yaml.Unmarshal(data, &fs); err != nil {
			return Host{}, fmt.Errorf("parse settings file %s: %w", path, err)
		}
		applyFile(&h, fs)
	}

	applyString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	applyString(&h.SocketPath, "VIRTFORGE_SOCKET")
	applyString(&h.StoragePool, "VIRTFORGE_POOL")
	applyString(&h.AdvertisedHost, "VIRTFORGE_HOST")
	applyString(&h.DiskImageTool, "VIRTFORGE_DISK_TOOL")
	applyString(&h.DefineTool, "VIRTFORGE_DEFINE_TOOL")
	applyString(&h.RelayTool, "VIRTFORGE_RELAY_TOOL")
	applyString(&h.LogLevel, "VIRTFORGE_LOG_LEVEL")

	if v := os.Getenv("VIRTFORGE_TOOL_TIMEOUT_S"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return Host{}, fmt.Errorf("invalid VIRTFORGE_TOOL_TIMEOUT_S %q", v)
		}
		h.ToolTimeout = time.Duration(secs) * time.Second
	}
	if v := os.Getenv("VIRTFORGE_REGISTER_WAIT_S"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return Host{}, fmt.Errorf("invalid VIRTFORGE_REGISTER_WAIT_S %q", v)
		}
		h.RegisterWait = time.Duration(secs) * time.Second
	}

	if h.AdvertisedHost == "" {
		name, err := os.Hostname()
		if err != nil {
			return Host{}, fmt.Errorf("resolve hostname: %w", err)
		}
		h.AdvertisedHost = name
	}

	return h, nil
}

func applyFile(h *Host, fs fileSettings) {
	if fs.SocketPath != "" {
		h.SocketPath = fs.SocketPath
	}
	if fs.StoragePool != "" {
		h.StoragePool = fs.StoragePool
	}
	if fs.AdvertisedHost != "" {
		h.AdvertisedHost = fs.AdvertisedHost
	}
	if fs.DiskImageTool != "" {
		h.DiskImageTool = fs.DiskImageTool
	}
	if fs.DefineTool != "" {
		h.DefineTool = fs.DefineTool
	}
	if fs.RelayTool != "" {
		h.RelayTool = fs.RelayTool
	}
	if fs.ToolTimeoutS > 0 {
		h.ToolTimeout = time.Duration(fs.ToolTimeoutS) * time.Second
	}
	if fs.RegisterWaitS > 0 {
		h.RegisterWait = time.Duration(fs.RegisterWaitS) * time.Second
	}
	if fs.LogLevel != "" {
		h.LogLevel = fs.LogLevel
	}
}
