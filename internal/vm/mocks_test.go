package vm

import (
	"context"
	"errors"

	"github.com/digitalocean/go-libvirt"
)

var errNotFound = errors.New("no domain with matching name")

// mockLibvirtClient implements libvirtClient with per-method function
// fields. Unset methods fail the call so tests only wire what they expect.
type mockLibvirtClient struct {
	domainLookupByName  func(name string) (libvirt.Domain, error)
	domainGetState      func(dom libvirt.Domain, flags uint32) (int32, int32, error)
	domainCreate        func(dom libvirt.Domain) error
	domainShutdown      func(dom libvirt.Domain) error
	domainDestroy       func(dom libvirt.Domain) error
	domainReboot        func(dom libvirt.Domain, flags libvirt.DomainRebootFlagValues) error
	domainUndefineFlags func(dom libvirt.Domain, flags libvirt.DomainUndefineFlagsValues) error
	domainUndefine      func(dom libvirt.Domain) error
	domainGetXMLDesc    func(dom libvirt.Domain, flags libvirt.DomainXMLFlags) (string, error)
	domainSetAutostart  func(dom libvirt.Domain, autostart int32) error

	destroyCalls   int
	undefineCalls  int
	autostartCalls int
}

func (m *mockLibvirtClient) DomainLookupByName(name string) (libvirt.Domain, error) {
	if m.domainLookupByName == nil {
		return libvirt.Domain{}, errors.New("unexpected DomainLookupByName call")
	}
	return m.domainLookupByName(name)
}

func (m *mockLibvirtClient) DomainGetState(dom libvirt.Domain, flags uint32) (int32, int32, error) {
	if m.domainGetState == nil {
		return 0, 0, errors.New("unexpected DomainGetState call")
	}
	return m.domainGetState(dom, flags)
}

func (m *mockLibvirtClient) DomainCreate(dom libvirt.Domain) error {
	if m.domainCreate == nil {
		return errors.New("unexpected DomainCreate call")
	}
	return m.domainCreate(dom)
}

func (m *mockLibvirtClient) DomainShutdown(dom libvirt.Domain) error {
	if m.domainShutdown == nil {
		return errors.New("unexpected DomainShutdown call")
	}
	return m.domainShutdown(dom)
}

func (m *mockLibvirtClient) DomainDestroy(dom libvirt.Domain) error {
	m.destroyCalls++
	if m.domainDestroy == nil {
		return errors.New("unexpected DomainDestroy call")
	}
	return m.domainDestroy(dom)
}

func (m *mockLibvirtClient) DomainReboot(dom libvirt.Domain, flags libvirt.DomainRebootFlagValues) error {
	if m.domainReboot == nil {
		return errors.New("unexpected DomainReboot call")
	}
	return m.domainReboot(dom, flags)
}

func (m *mockLibvirtClient) DomainUndefineFlags(dom libvirt.Domain, flags libvirt.DomainUndefineFlagsValues) error {
	m.undefineCalls++
	if m.domainUndefineFlags == nil {
		return errors.New("unexpected DomainUndefineFlags call")
	}
	return m.domainUndefineFlags(dom, flags)
}

func (m *mockLibvirtClient) DomainUndefine(dom libvirt.Domain) error {
	if m.domainUndefine == nil {
		return errors.New("unexpected DomainUndefine call")
	}
	return m.domainUndefine(dom)
}

func (m *mockLibvirtClient) DomainGetXMLDesc(dom libvirt.Domain, flags libvirt.DomainXMLFlags) (string, error) {
	if m.domainGetXMLDesc == nil {
		return "", errors.New("unexpected DomainGetXMLDesc call")
	}
	return m.domainGetXMLDesc(dom, flags)
}

func (m *mockLibvirtClient) DomainSetAutostart(dom libvirt.Domain, autostart int32) error {
	m.autostartCalls++
	if m.domainSetAutostart == nil {
		return errors.New("unexpected DomainSetAutostart call")
	}
	return m.domainSetAutostart(dom, autostart)
}

// mockStorage implements storageManager.
type mockStorage struct {
	poolPath           func(poolName string) (string, error)
	deleteVolumeByPath func(path string) error

	refreshCalls int
	deleted      []string
}

func (m *mockStorage) PoolPath(poolName string) (string, error) {
	if m.poolPath == nil {
		return "", errors.New("unexpected PoolPath call")
	}
	return m.poolPath(poolName)
}

func (m *mockStorage) RefreshAll() {
	m.refreshCalls++
}

func (m *mockStorage) DeleteVolumeByPath(path string) error {
	m.deleted = append(m.deleted, path)
	if m.deleteVolumeByPath == nil {
		return nil
	}
	return m.deleteVolumeByPath(path)
}

// mockRunner implements toolexec.Runner and records every invocation.
type mockRunner struct {
	run func(name string, args ...string) (string, error)

	runCalls [][]string
}

func (m *mockRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	m.runCalls = append(m.runCalls, append([]string{name}, args...))
	if m.run == nil {
		return "", nil
	}
	return m.run(name, args...)
}

func (m *mockRunner) StartDetached(name string, args ...string) error {
	return errors.New("unexpected StartDetached call")
}
