package storage

import (
	"github.com/digitalocean/go-libvirt"
	"github.com/rs/zerolog"
	"libvirt.org/go/libvirtxml"

	"github.com/virtforge/virtforge/internal/virterr"
)

// libvirtClient defines the storage operations needed from the hypervisor.
// Satisfied by *libvirt.Libvirt in production and by mocks in tests.
type libvirtClient interface {
	StoragePoolLookupByName(name string) (libvirt.StoragePool, error)
	StoragePoolGetXMLDesc(pool libvirt.StoragePool, flags libvirt.StorageXMLFlags) (string, error)
	ConnectListAllStoragePools(needResults int32, flags libvirt.ConnectListAllStoragePoolsFlags) ([]libvirt.StoragePool, uint32, error)
	StoragePoolRefresh(pool libvirt.StoragePool, flags uint32) error
	StorageVolLookupByPath(path string) (libvirt.StorageVol, error)
	StorageVolDelete(vol libvirt.StorageVol, flags libvirt.StorageVolDeleteFlags) error
}

// Manager performs pool and volume operations against one hypervisor.
type Manager struct {
	client libvirtClient
	logger zerolog.Logger
}

// NewManager returns a Manager backed by the given libvirt client.
func NewManager(client libvirtClient, logger zerolog.Logger) *Manager {
	return &Manager{client: client, logger: logger}
}

// PoolPath resolves a pool name to its base filesystem path by parsing the
// pool descriptor.
func (m *Manager) PoolPath(poolName string) (string, error) {
	pool, err := m.client.StoragePoolLookupByName(poolName)
	if err != nil {
		return "", virterr.Wrap(virterr.KindPoolNotFound, "storage.pool_path", poolName, err)
	}

	desc, err := m.client.StoragePoolGetXMLDesc(pool, 0)
	if err != nil {
		return "", virterr.Wrap(virterr.KindPoolXMLInvalid, "storage.pool_path", poolName, err)
	}

	var parsed libvirtxml.StoragePool
	if err := parsed.Unmarshal(desc); err != nil {
		return "", virterr.Wrap(virterr.KindPoolXMLInvalid, "storage.pool_path", poolName, err)
	}

	if parsed.Target == nil || parsed.Target.Path == "" {
		return "", virterr.New(virterr.KindPoolPathMissing, "storage.pool_path", poolName)
	}
	return parsed.Target.Path, nil
}

// RefreshAll refreshes every storage pool so volume lookups see current
// on-disk state. Per-pool failures are logged and skipped.
func (m *Manager) RefreshAll() {
	pools, _, err := m.client.ConnectListAllStoragePools(1, 0)
	if err != nil {
		m.logger.Warn().Err(err).Msg("listing storage pools for refresh failed")
		return
	}
	for _, pool := range pools {
		if err := m.client.StoragePoolRefresh(pool, 0); err != nil {
			m.logger.Warn().Str("pool", pool.Name).Err(err).Msg("storage pool refresh failed")
		}
	}
}

// DeleteVolumeByPath resolves a file path to its storage volume and deletes
// it.
func (m *Manager) DeleteVolumeByPath(path string) error {
	vol, err := m.client.StorageVolLookupByPath(path)
	if err != nil {
		return virterr.Wrap(virterr.KindActionFailed, "storage.delete_volume", path, err)
	}
	if err := m.client.StorageVolDelete(vol, 0); err != nil {
		return virterr.Wrap(virterr.KindActionFailed, "storage.delete_volume", path, err)
	}
	return nil
}
