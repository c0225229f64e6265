package inspect

// Domain state codes, matching libvirt's VIR_DOMAIN_* values.
const (
	StateRunning = 1
	StateShutoff = 5
)

// Domain is a point-in-time projection of one hypervisor domain. It is
// re-read on every query and never cached.
type Domain struct {
	Name        string `json:"name" yaml:"name"`
	State       int32  `json:"state" yaml:"state"`
	StateName   string `json:"state_name" yaml:"state_name"`
	MemoryKB    uint64 `json:"memory_kb" yaml:"memory_kb"`
	MaxMemoryKB uint64 `json:"max_memory_kb" yaml:"max_memory_kb"`
	VCPUCount   uint16 `json:"vcpus" yaml:"vcpus"`
	CPUTimeNs   uint64 `json:"cpu_time_ns" yaml:"cpu_time_ns"`
}

// DomainStatus is the per-name status entry with best-effort guest IP.
type DomainStatus struct {
	Domain  `yaml:",inline"`
	GuestIP string `json:"guest_ip" yaml:"guest_ip"`
}

// Disk is one <disk device="disk"> entry from the domain descriptor.
type Disk struct {
	Device     string `json:"device" yaml:"device"`
	DriverType string `json:"driver_type" yaml:"driver_type"`
	SourcePath string `json:"source_path" yaml:"source_path"`
	Bus        string `json:"bus" yaml:"bus"`
}

// NetworkInterface is one <interface> entry from the domain descriptor.
type NetworkInterface struct {
	Type       string `json:"type" yaml:"type"`
	MACAddress string `json:"mac_address" yaml:"mac_address"`
	ModelType  string `json:"model_type" yaml:"model_type"`
	BridgeName string `json:"bridge_name" yaml:"bridge_name"`
}

// GraphicsConsole is one <graphics> entry from the domain descriptor.
type GraphicsConsole struct {
	Type          string `json:"type" yaml:"type"`
	Port          int    `json:"port" yaml:"port"`
	ListenAddress string `json:"listen_address" yaml:"listen_address"`
	Password      string `json:"password,omitempty" yaml:"password,omitempty"`
}

// MemoryStats carries the guest memory figures derived from the balloon
// driver's tagged stats.
type MemoryStats struct {
	ActualUsedKB uint64 `json:"actual_used_kb" yaml:"actual_used_kb"`
	AvailableKB  uint64 `json:"available_kb" yaml:"available_kb"`
}

// DomainDetail extends Domain with facts parsed from the descriptor.
type DomainDetail struct {
	Domain      `yaml:",inline"`
	Disks       []Disk             `json:"disks" yaml:"disks"`
	Interfaces  []NetworkInterface `json:"interfaces" yaml:"interfaces"`
	Graphics    []GraphicsConsole  `json:"graphics" yaml:"graphics"`
	MemoryStats MemoryStats        `json:"memory_stats" yaml:"memory_stats"`
}

// stateName converts a libvirt domain state code to its canonical name.
func stateName(state int32) string {
	switch state {
	case 0:
		return "no state"
	case 1:
		return "running"
	case 2:
		return "blocked"
	case 3:
		return "paused"
	case 4:
		return "shutdown"
	case 5:
		return "shutoff"
	case 6:
		return "crashed"
	case 7:
		return "pmsuspended"
	default:
		return "unknown"
	}
}
