// Package snapshot enumerates and creates point-in-time snapshots of
// domains.
//
// Snapshots form a forest per domain: each entry carries its parent's name so
// callers can reconstruct lineage, but the manager neither validates nor
// flattens it.
package snapshot

import (
	"strconv"
	"strings"
	"time"

	"github.com/digitalocean/go-libvirt"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"libvirt.org/go/libvirtxml"

	"github.com/virtforge/virtforge/internal/virterr"
	"github.com/virtforge/virtforge/internal/vm"
)

// ActionSnapshot is the action kind reported for snapshot creation.
const ActionSnapshot = "snapshot"

// maxSnapshotNames caps a single enumeration call.
const maxSnapshotNames = 512

// Snapshot is one point-in-time snapshot of a domain, as of the last query.
type Snapshot struct {
	Name        string    `json:"name" yaml:"name"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	GuestState  string    `json:"guest_state" yaml:"guest_state"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Parent      string    `json:"parent,omitempty" yaml:"parent,omitempty"`
}

// libvirtClient defines the snapshot operations needed from the hypervisor.
type libvirtClient interface {
	DomainLookupByName(name string) (libvirt.Domain, error)
	DomainSnapshotListNames(dom libvirt.Domain, maxNames int32, flags uint32) ([]string, error)
	DomainSnapshotLookupByName(dom libvirt.Domain, name string, flags uint32) (libvirt.DomainSnapshot, error)
	DomainSnapshotGetXMLDesc(snap libvirt.DomainSnapshot, flags uint32) (string, error)
	DomainSnapshotCreateXML(dom libvirt.Domain, xml string, flags uint32) (libvirt.DomainSnapshot, error)
}

// Manager answers snapshot queries and creates new snapshots.
type Manager struct {
	client libvirtClient
	logger zerolog.Logger
}

// NewManager returns a Manager backed by the given libvirt client.
func NewManager(client libvirtClient, logger zerolog.Logger) *Manager {
	return &Manager{client: client, logger: logger}
}

// List enumerates a domain's snapshots. Snapshots whose descriptor fails to
// parse are logged and skipped; one broken snapshot must not hide the rest.
func (m *Manager) List(domainName string) ([]Snapshot, error) {
	const op = "snapshot.list"

	dom, err := m.client.DomainLookupByName(domainName)
	if err != nil {
		return nil, virterr.Wrap(virterr.KindDomainNotFound, op, domainName, err)
	}

	names, err := m.client.DomainSnapshotListNames(dom, maxSnapshotNames, 0)
	if err != nil {
		return nil, virterr.Wrap(virterr.KindActionFailed, op, domainName, err)
	}

	out := make([]Snapshot, 0, len(names))
	for _, name := range names {
		snap, err := m.client.DomainSnapshotLookupByName(dom, name, 0)
		if err != nil {
			m.logger.Warn().Str("domain", domainName).Str("snapshot", name).Err(err).
				Msg("snapshot vanished during enumeration, skipping")
			continue
		}
		desc, err := m.client.DomainSnapshotGetXMLDesc(snap, 0)
		if err != nil {
			m.logger.Warn().Str("domain", domainName).Str("snapshot", name).Err(err).
				Msg("snapshot descriptor unavailable, skipping")
			continue
		}

		var parsed libvirtxml.DomainSnapshot
		if err := parsed.Unmarshal(desc); err != nil {
			m.logger.Warn().Str("domain", domainName).Str("snapshot", name).Err(err).
				Msg("snapshot descriptor unparseable, skipping")
			continue
		}

		entry := Snapshot{
			Name:        name,
			GuestState:  parsed.State,
			Description: parsed.Description,
		}
		if parsed.Parent != nil {
			entry.Parent = parsed.Parent.Name
		}
		if secs, err := strconv.ParseInt(strings.TrimSpace(parsed.CreationTime), 10, 64); err == nil {
			entry.CreatedAt = time.Unix(secs, 0).UTC()
		}
		out = append(out, entry)
	}
	return out, nil
}

// Create takes a new snapshot of a domain with default system-checkpoint
// semantics.
func (m *Manager) Create(domainName, snapshotName, description string) (vm.ActionResult, error) {
	const op = "snapshot.create"
	opID := uuid.NewString()

	if strings.TrimSpace(snapshotName) == "" {
		verr := virterr.New(virterr.KindInvalidSnapshot, op, domainName)
		return failResult(opID, domainName, verr), verr
	}

	dom, err := m.client.DomainLookupByName(domainName)
	if err != nil {
		verr := virterr.Wrap(virterr.KindDomainNotFound, op, domainName, err)
		return failResult(opID, domainName, verr), verr
	}

	doc := libvirtxml.DomainSnapshot{
		Name:        snapshotName,
		Description: description,
	}
	xml, err := doc.Marshal()
	if err != nil {
		verr := virterr.Wrap(virterr.KindActionFailed, op, domainName, err)
		return failResult(opID, domainName, verr), verr
	}

	if _, err := m.client.DomainSnapshotCreateXML(dom, xml, 0); err != nil {
		verr := virterr.Wrap(virterr.KindActionFailed, op, domainName, err)
		m.logger.Error().Str("domain", domainName).Str("snapshot", snapshotName).Err(err).
			Msg("snapshot creation failed")
		return failResult(opID, domainName, verr), verr
	}

	m.logger.Info().Str("domain", domainName).Str("snapshot", snapshotName).
		Str("operation_id", opID).Msg("snapshot created")
	return vm.ActionResult{
		Success:     true,
		Domain:      domainName,
		Action:      ActionSnapshot,
		OperationID: opID,
	}, nil
}

func failResult(opID, domain string, err error) vm.ActionResult {
	return vm.ActionResult{
		Domain:      domain,
		Action:      ActionSnapshot,
		Error:       err.Error(),
		OperationID: opID,
	}
}
