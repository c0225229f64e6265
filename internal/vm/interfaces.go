package vm

import (
	"github.com/digitalocean/go-libvirt"
)

// libvirtClient defines the domain operations the controller needs.
// Satisfied by *libvirt.Libvirt in production and by mocks in tests.
type libvirtClient interface {
	DomainLookupByName(name string) (libvirt.Domain, error)
	DomainGetState(dom libvirt.Domain, flags uint32) (state int32, reason int32, err error)
	DomainCreate(dom libvirt.Domain) error
	DomainShutdown(dom libvirt.Domain) error
	DomainDestroy(dom libvirt.Domain) error
	DomainReboot(dom libvirt.Domain, flags libvirt.DomainRebootFlagValues) error
	DomainUndefineFlags(dom libvirt.Domain, flags libvirt.DomainUndefineFlagsValues) error
	DomainUndefine(dom libvirt.Domain) error
	DomainGetXMLDesc(dom libvirt.Domain, flags libvirt.DomainXMLFlags) (string, error)
	DomainSetAutostart(dom libvirt.Domain, autostart int32) error
}

// storageManager defines the storage operations the controller needs.
// Satisfied by *storage.Manager in production.
type storageManager interface {
	PoolPath(poolName string) (string, error)
	RefreshAll()
	DeleteVolumeByPath(path string) error
}
