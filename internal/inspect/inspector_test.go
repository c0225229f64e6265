package inspect

import (
	"errors"
	"testing"

	"github.com/digitalocean/go-libvirt"
	"github.com/rs/zerolog"

	"github.com/virtforge/virtforge/internal/virterr"
)

const testDomainXML = `
<domain type="kvm">
  <name>vm-test</name>
  <devices>
    <disk type="file" device="disk">
      <driver name="qemu" type="qcow2"/>
      <source file="/var/lib/libvirt/images/vm-test.qcow2"/>
      <target dev="vda" bus="virtio"/>
    </disk>
    <disk type="file" device="cdrom">
      <driver name="qemu" type="raw"/>
      <source file="/iso/os.iso"/>
      <target dev="sda" bus="sata"/>
    </disk>
    <interface type="bridge">
      <mac address="52:54:00:aa:bb:cc"/>
      <source bridge="br0"/>
      <model type="virtio"/>
    </interface>
    <interface type="network">
      <mac address="52:54:00:dd:ee:ff"/>
      <source network="default"/>
      <model type="virtio"/>
    </interface>
    <graphics type="spice" port="5900" autoport="no" listen="127.0.0.1" passwd="secret"/>
  </devices>
</domain>`

// mockLibvirtClient implements the inspector's libvirtClient interface.
type mockLibvirtClient struct {
	listFunc     func(needResults int32, flags libvirt.ConnectListAllDomainsFlags) ([]libvirt.Domain, uint32, error)
	lookupFunc   func(name string) (libvirt.Domain, error)
	infoFunc     func(dom libvirt.Domain) (uint8, uint64, uint64, uint16, uint64, error)
	xmlFunc      func(dom libvirt.Domain, flags libvirt.DomainXMLFlags) (string, error)
	memStatsFunc func(dom libvirt.Domain, maxStats uint32, flags uint32) ([]libvirt.DomainMemoryStat, error)
}

func (m *mockLibvirtClient) ConnectListAllDomains(needResults int32, flags libvirt.ConnectListAllDomainsFlags) ([]libvirt.Domain, uint32, error) {
	if m.listFunc != nil {
		return m.listFunc(needResults, flags)
	}
	return []libvirt.Domain{{Name: "vm-test"}}, 1, nil
}

func (m *mockLibvirtClient) DomainLookupByName(name string) (libvirt.Domain, error) {
	if m.lookupFunc != nil {
		return m.lookupFunc(name)
	}
	return libvirt.Domain{Name: name}, nil
}

func (m *mockLibvirtClient) DomainGetInfo(dom libvirt.Domain) (uint8, uint64, uint64, uint16, uint64, error) {
	if m.infoFunc != nil {
		return m.infoFunc(dom)
	}
	return 1, 4194304, 2097152, 2, 123456789, nil
}

func (m *mockLibvirtClient) DomainGetXMLDesc(dom libvirt.Domain, flags libvirt.DomainXMLFlags) (string, error) {
	if m.xmlFunc != nil {
		return m.xmlFunc(dom, flags)
	}
	return testDomainXML, nil
}

func (m *mockLibvirtClient) DomainMemoryStats(dom libvirt.Domain, maxStats uint32, flags uint32) ([]libvirt.DomainMemoryStat, error) {
	if m.memStatsFunc != nil {
		return m.memStatsFunc(dom, maxStats, flags)
	}
	return []libvirt.DomainMemoryStat{
		{Tag: memStatRSS, Val: 1048576},
		{Tag: memStatUsable, Val: 2000000},
	}, nil
}

func newInspector(m *mockLibvirtClient) *Inspector {
	return NewInspector(m, zerolog.Nop())
}

func TestList(t *testing.T) {
	ins := newInspector(&mockLibvirtClient{})

	domains, err := ins.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(domains) != 1 {
		t.Fatalf("expected 1 domain, got %d", len(domains))
	}
	d := domains[0]
	if d.Name != "vm-test" || d.State != StateRunning || d.StateName != "running" {
		t.Errorf("unexpected domain: %+v", d)
	}
	if d.MemoryKB != 2097152 || d.MaxMemoryKB != 4194304 || d.VCPUCount != 2 {
		t.Errorf("unexpected resources: %+v", d)
	}
}

func TestList_SkipsVanishedDomains(t *testing.T) {
	mock := &mockLibvirtClient{
		listFunc: func(int32, libvirt.ConnectListAllDomainsFlags) ([]libvirt.Domain, uint32, error) {
			return []libvirt.Domain{{Name: "gone"}, {Name: "vm-test"}}, 2, nil
		},
		infoFunc: func(dom libvirt.Domain) (uint8, uint64, uint64, uint16, uint64, error) {
			if dom.Name == "gone" {
				return 0, 0, 0, 0, 0, errors.New("domain not found")
			}
			return 1, 4194304, 2097152, 2, 0, nil
		},
	}
	ins := newInspector(mock)

	domains, err := ins.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(domains) != 1 || domains[0].Name != "vm-test" {
		t.Errorf("expected only the surviving domain, got %+v", domains)
	}
}

func TestList_EnumerationFailure(t *testing.T) {
	mock := &mockLibvirtClient{
		listFunc: func(int32, libvirt.ConnectListAllDomainsFlags) ([]libvirt.Domain, uint32, error) {
			return nil, 0, errors.New("connection reset")
		},
	}
	ins := newInspector(mock)

	if _, err := ins.List(); !virterr.IsKind(err, virterr.KindActionFailed) {
		t.Errorf("expected action_failed, got %v", err)
	}
}

func TestStatus_GuestIP(t *testing.T) {
	xmlWithIP := `<domain><name>vm-test</name><devices><interface type="bridge"><ip address="192.168.122.50" prefix="24"/></interface></devices></domain>`
	mock := &mockLibvirtClient{
		xmlFunc: func(libvirt.Domain, libvirt.DomainXMLFlags) (string, error) {
			return xmlWithIP, nil
		},
	}
	ins := newInspector(mock)

	status, err := ins.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	entry, ok := status["vm-test"]
	if !ok {
		t.Fatal("expected vm-test entry")
	}
	if entry.GuestIP != "192.168.122.50" {
		t.Errorf("GuestIP = %q, want 192.168.122.50", entry.GuestIP)
	}
}

func TestStatus_NoGuestIP(t *testing.T) {
	mock := &mockLibvirtClient{
		xmlFunc: func(libvirt.Domain, libvirt.DomainXMLFlags) (string, error) {
			return `<domain><name>vm-test</name></domain>`, nil
		},
	}
	ins := newInspector(mock)

	status, err := ins.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if ip := status["vm-test"].GuestIP; ip != "" {
		t.Errorf("GuestIP = %q, want empty", ip)
	}
}

func TestDetails(t *testing.T) {
	ins := newInspector(&mockLibvirtClient{})

	detail, err := ins.Details("vm-test")
	if err != nil {
		t.Fatalf("Details failed: %v", err)
	}

	// CD-ROM must be excluded.
	if len(detail.Disks) != 1 {
		t.Fatalf("expected 1 disk, got %d", len(detail.Disks))
	}
	disk := detail.Disks[0]
	if disk.SourcePath != "/var/lib/libvirt/images/vm-test.qcow2" || disk.DriverType != "qcow2" || disk.Bus != "virtio" {
		t.Errorf("unexpected disk: %+v", disk)
	}

	if len(detail.Interfaces) != 2 {
		t.Fatalf("expected 2 interfaces, got %d", len(detail.Interfaces))
	}
	if detail.Interfaces[0].Type != "bridge" || detail.Interfaces[0].BridgeName != "br0" {
		t.Errorf("unexpected first interface: %+v", detail.Interfaces[0])
	}
	if detail.Interfaces[1].Type != "network" || detail.Interfaces[1].BridgeName != "default" {
		t.Errorf("unexpected second interface: %+v", detail.Interfaces[1])
	}

	if len(detail.Graphics) != 1 {
		t.Fatalf("expected 1 graphics console, got %d", len(detail.Graphics))
	}
	g := detail.Graphics[0]
	if g.Type != "spice" || g.Port != 5900 || g.ListenAddress != "127.0.0.1" || g.Password != "secret" {
		t.Errorf("unexpected graphics: %+v", g)
	}

	if detail.MemoryStats.ActualUsedKB != 1048576 || detail.MemoryStats.AvailableKB != 2000000 {
		t.Errorf("unexpected memory stats: %+v", detail.MemoryStats)
	}
}

func TestDetails_DomainNotFound(t *testing.T) {
	mock := &mockLibvirtClient{
		lookupFunc: func(name string) (libvirt.Domain, error) {
			return libvirt.Domain{}, errors.New("no such domain")
		},
	}
	ins := newInspector(mock)

	if _, err := ins.Details("missing"); !virterr.IsKind(err, virterr.KindDomainNotFound) {
		t.Errorf("expected domain_not_found, got %v", err)
	}
}

func TestDetails_InvalidDescriptor(t *testing.T) {
	mock := &mockLibvirtClient{
		xmlFunc: func(libvirt.Domain, libvirt.DomainXMLFlags) (string, error) {
			return "<domain><unclosed", nil
		},
	}
	ins := newInspector(mock)

	if _, err := ins.Details("vm-test"); !virterr.IsKind(err, virterr.KindInvalidDescriptor) {
		t.Errorf("expected invalid_descriptor, got %v", err)
	}
}

func TestDeriveMemoryStats(t *testing.T) {
	tests := []struct {
		name      string
		stats     []libvirt.DomainMemoryStat
		maxMemory uint64
		wantUsed  uint64
		wantAvail uint64
	}{
		{
			name: "usable wins",
			stats: []libvirt.DomainMemoryStat{
				{Tag: memStatRSS, Val: 1000},
				{Tag: memStatUsable, Val: 3000},
				{Tag: memStatUnused, Val: 500},
			},
			maxMemory: 8000,
			wantUsed:  1000,
			wantAvail: 3000,
		},
		{
			name: "unused plus disk caches",
			stats: []libvirt.DomainMemoryStat{
				{Tag: memStatUnused, Val: 1000},
				{Tag: memStatDiskCaches, Val: 500},
			},
			maxMemory: 8000,
			wantUsed:  0,
			wantAvail: 1500,
		},
		{
			name: "max minus rss fallback",
			stats: []libvirt.DomainMemoryStat{
				{Tag: memStatRSS, Val: 3000},
			},
			maxMemory: 8000,
			wantUsed:  3000,
			wantAvail: 5000,
		},
		{
			name: "fallback clamped at zero",
			stats: []libvirt.DomainMemoryStat{
				{Tag: memStatRSS, Val: 9000},
			},
			maxMemory: 8000,
			wantUsed:  9000,
			wantAvail: 0,
		},
		{
			name:      "no stats at all",
			stats:     nil,
			maxMemory: 8000,
			wantUsed:  0,
			wantAvail: 8000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := deriveMemoryStats(tt.stats, tt.maxMemory)
			if got.ActualUsedKB != tt.wantUsed {
				t.Errorf("ActualUsedKB = %d, want %d", got.ActualUsedKB, tt.wantUsed)
			}
			if got.AvailableKB != tt.wantAvail {
				t.Errorf("AvailableKB = %d, want %d", got.AvailableKB, tt.wantAvail)
			}
		})
	}
}

func TestDetails_MemoryStatsUnavailable(t *testing.T) {
	mock := &mockLibvirtClient{
		memStatsFunc: func(libvirt.Domain, uint32, uint32) ([]libvirt.DomainMemoryStat, error) {
			return nil, errors.New("domain not running")
		},
	}
	ins := newInspector(mock)

	detail, err := ins.Details("vm-test")
	if err != nil {
		t.Fatalf("Details failed: %v", err)
	}
	// Falls back to max memory minus zero RSS.
	if detail.MemoryStats.AvailableKB != 4194304 {
		t.Errorf("AvailableKB = %d, want max memory", detail.MemoryStats.AvailableKB)
	}
}
