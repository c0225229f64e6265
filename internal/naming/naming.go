// Package naming provides the deterministic naming conventions virtforge
// uses for libvirt resources and console relays. These rules are shared by
// provisioning, teardown, and the console supervisor so that every component
// derives the same names from the same inputs.
package naming

import (
	"fmt"
	"path"
)

// RelayPortOffset is added to a VM's console port to obtain the port its
// browser-facing relay listens on. A fixed offset keeps the mapping
// re-derivable from the hypervisor alone, at the cost of collisions if two
// VMs ever share a console port.
const RelayPortOffset = 1000

// DiskImagePath returns the primary disk image path for a domain inside a
// storage pool: {poolPath}/{name}.qcow2.
func DiskImagePath(poolPath, domainName string) string {
	return path.Join(poolPath, domainName+".qcow2")
}

// SeedISOPath returns the cloud-init seed ISO path for a domain inside a
// storage pool: {poolPath}/{name}-seed.iso.
func SeedISOPath(poolPath, domainName string) string {
	return path.Join(poolPath, domainName+"-seed.iso")
}

// RelayPort derives the relay listen port from a console port.
func RelayPort(consolePort int) int {
	return consolePort + RelayPortOffset
}

// RelayTarget formats the host:port a relay forwards to.
func RelayTarget(host string, consolePort int) string {
	return fmt.Sprintf("%s:%d", host, consolePort)
}
