// Package inspect provides read-only queries over the hypervisor's domains.
//
// Everything here is a read-through projection: each call re-queries libvirt
// and returns state as of that moment. Domains that disappear mid-enumeration
// are skipped, not errors; the hypervisor owns the data and may change it
// between any two calls.
package inspect

import (
	"regexp"

	"github.com/digitalocean/go-libvirt"
	"github.com/rs/zerolog"
	"libvirt.org/go/libvirtxml"

	"github.com/virtforge/virtforge/internal/virterr"
)

// Balloon stat tags, the fixed numeric schema libvirt reports memory
// statistics under.
const (
	memStatUnused     int32 = 4  // VIR_DOMAIN_MEMORY_STAT_UNUSED
	memStatRSS        int32 = 7  // VIR_DOMAIN_MEMORY_STAT_RSS
	memStatUsable     int32 = 8  // VIR_DOMAIN_MEMORY_STAT_USABLE
	memStatDiskCaches int32 = 10 // VIR_DOMAIN_MEMORY_STAT_DISK_CACHES
)

// maxMemoryStats caps how many tagged entries one stats call returns.
const maxMemoryStats = 16

// libvirtClient defines the read-only operations the inspector needs.
// Satisfied by *libvirt.Libvirt in production and by mocks in tests.
type libvirtClient interface {
	ConnectListAllDomains(needResults int32, flags libvirt.ConnectListAllDomainsFlags) ([]libvirt.Domain, uint32, error)
	DomainLookupByName(name string) (libvirt.Domain, error)
	DomainGetInfo(dom libvirt.Domain) (state uint8, maxMem uint64, memory uint64, nrVirtCPU uint16, cpuTime uint64, err error)
	DomainGetXMLDesc(dom libvirt.Domain, flags libvirt.DomainXMLFlags) (string, error)
	DomainMemoryStats(dom libvirt.Domain, maxStats uint32, flags uint32) ([]libvirt.DomainMemoryStat, error)
}

// guestIPPattern is the deliberately simple first-match extraction for a
// guest address embedded in the descriptor. No guest agent data means no IP.
var guestIPPattern = regexp.MustCompile(`(?:\d{1,3}\.){3}\d{1,3}`)

// Inspector answers read-only queries about domains.
type Inspector struct {
	client libvirtClient
	logger zerolog.Logger
}

// NewInspector returns an Inspector backed by the given libvirt client.
func NewInspector(client libvirtClient, logger zerolog.Logger) *Inspector {
	return &Inspector{client: client, logger: logger}
}

// List enumerates every domain, active and inactive, in discovery order.
// Domains whose info fetch fails mid-enumeration are skipped.
func (i *Inspector) List() ([]Domain, error) {
	domains, _, err := i.client.ConnectListAllDomains(1, 0)
	if err != nil {
		return nil, virterr.Wrap(virterr.KindActionFailed, "inspect.list", "", err)
	}

	out := make([]Domain, 0, len(domains))
	for _, dom := range domains {
		d, err := i.domainInfo(dom)
		if err != nil {
			i.logger.Debug().Str("domain", dom.Name).Err(err).Msg("domain vanished during enumeration, skipping")
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// Status enumerates all domains keyed by name, each with a best-effort guest
// IP extracted from its descriptor.
func (i *Inspector) Status() (map[string]DomainStatus, error) {
	domains, _, err := i.client.ConnectListAllDomains(1, 0)
	if err != nil {
		return nil, virterr.Wrap(virterr.KindActionFailed, "inspect.status", "", err)
	}

	out := make(map[string]DomainStatus, len(domains))
	for _, dom := range domains {
		d, err := i.domainInfo(dom)
		if err != nil {
			i.logger.Debug().Str("domain", dom.Name).Err(err).Msg("domain vanished during enumeration, skipping")
			continue
		}

		ip := ""
		if desc, err := i.client.DomainGetXMLDesc(dom, 0); err == nil {
			ip = guestIPPattern.FindString(desc)
		}
		out[dom.Name] = DomainStatus{Domain: d, GuestIP: ip}
	}
	return out, nil
}

// Details looks up one domain and returns its descriptor-derived facts plus
// memory statistics.
func (i *Inspector) Details(name string) (*DomainDetail, error) {
	const op = "inspect.details"

	dom, err := i.client.DomainLookupByName(name)
	if err != nil {
		return nil, virterr.Wrap(virterr.KindDomainNotFound, op, name, err)
	}

	d, err := i.domainInfo(dom)
	if err != nil {
		return nil, virterr.Wrap(virterr.KindDomainNotFound, op, name, err)
	}

	desc, err := i.client.DomainGetXMLDesc(dom, 0)
	if err != nil {
		return nil, virterr.Wrap(virterr.KindInvalidDescriptor, op, name, err)
	}

	var parsed libvirtxml.Domain
	if err := parsed.Unmarshal(desc); err != nil {
		return nil, virterr.Wrap(virterr.KindInvalidDescriptor, op, name, err)
	}

	detail := &DomainDetail{Domain: d}
	if parsed.Devices != nil {
		detail.Disks = extractDisks(parsed.Devices.Disks)
		detail.Interfaces = extractInterfaces(parsed.Devices.Interfaces)
		detail.Graphics = extractGraphics(parsed.Devices.Graphics)
	}

	// Memory stats are best-effort: a stopped domain or a guest without a
	// balloon driver reports nothing, and the fallback covers that.
	stats, err := i.client.DomainMemoryStats(dom, maxMemoryStats, 0)
	if err != nil {
		i.logger.Debug().Str("domain", name).Err(err).Msg("memory stats unavailable")
		stats = nil
	}
	detail.MemoryStats = deriveMemoryStats(stats, d.MaxMemoryKB)

	return detail, nil
}

func (i *Inspector) domainInfo(dom libvirt.Domain) (Domain, error) {
	state, maxMem, memory, nrVirtCPU, cpuTime, err := i.client.DomainGetInfo(dom)
	if err != nil {
		return Domain{}, err
	}
	return Domain{
		Name:        dom.Name,
		State:       int32(state),
		StateName:   stateName(int32(state)),
		MemoryKB:    memory,
		MaxMemoryKB: maxMem,
		VCPUCount:   nrVirtCPU,
		CPUTimeNs:   cpuTime,
	}, nil
}

// deriveMemoryStats applies the two-level availability fallback: USABLE when
// reported, else UNUSED+DISK_CACHES, else max memory minus RSS clamped at
// zero.
func deriveMemoryStats(stats []libvirt.DomainMemoryStat, maxMemoryKB uint64) MemoryStats {
	tags := make(map[int32]uint64, len(stats))
	for _, s := range stats {
		tags[s.Tag] = s.Val
	}

	out := MemoryStats{ActualUsedKB: tags[memStatRSS]}

	if usable, ok := tags[memStatUsable]; ok {
		out.AvailableKB = usable
		return out
	}

	unused, hasUnused := tags[memStatUnused]
	caches, hasCaches := tags[memStatDiskCaches]
	if hasUnused || hasCaches {
		out.AvailableKB = unused + caches
		return out
	}

	if maxMemoryKB > out.ActualUsedKB {
		out.AvailableKB = maxMemoryKB - out.ActualUsedKB
	}
	return out
}

func extractDisks(disks []libvirtxml.DomainDisk) []Disk {
	out := make([]Disk, 0, len(disks))
	for _, d := range disks {
		// CD-ROM and floppy devices are not disks.
		if d.Device != "disk" {
			continue
		}
		disk := Disk{Device: d.Device}
		if d.Driver != nil {
			disk.DriverType = d.Driver.Type
		}
		if d.Source != nil && d.Source.File != nil {
			disk.SourcePath = d.Source.File.File
		}
		if d.Target != nil {
			disk.Bus = d.Target.Bus
		}
		out = append(out, disk)
	}
	return out
}

func extractInterfaces(ifaces []libvirtxml.DomainInterface) []NetworkInterface {
	out := make([]NetworkInterface, 0, len(ifaces))
	for _, iface := range ifaces {
		ni := NetworkInterface{}
		if iface.MAC != nil {
			ni.MACAddress = iface.MAC.Address
		}
		if iface.Model != nil {
			ni.ModelType = iface.Model.Type
		}
		if iface.Source != nil {
			switch {
			case iface.Source.Bridge != nil:
				ni.Type = "bridge"
				ni.BridgeName = iface.Source.Bridge.Bridge
			case iface.Source.Network != nil:
				ni.Type = "network"
				ni.BridgeName = iface.Source.Network.Network
			case iface.Source.Direct != nil:
				ni.Type = "direct"
			case iface.Source.User != nil:
				ni.Type = "user"
			}
		}
		out = append(out, ni)
	}
	return out
}

func extractGraphics(graphics []libvirtxml.DomainGraphic) []GraphicsConsole {
	out := make([]GraphicsConsole, 0, len(graphics))
	for _, g := range graphics {
		switch {
		case g.Spice != nil:
			out = append(out, GraphicsConsole{
				Type:          "spice",
				Port:          g.Spice.Port,
				ListenAddress: g.Spice.Listen,
				Password:      g.Spice.Passwd,
			})
		case g.VNC != nil:
			out = append(out, GraphicsConsole{
				Type:          "vnc",
				Port:          g.VNC.Port,
				ListenAddress: g.VNC.Listen,
				Password:      g.VNC.Passwd,
			})
		}
	}
	return out
}
