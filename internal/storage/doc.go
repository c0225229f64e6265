// Package storage resolves libvirt storage pools and cleans up volumes on
// behalf of the lifecycle workflows.
//
// Provisioning uses it to turn the configured pool name into a filesystem
// path for new disk images; teardown uses it to refresh the host's pools and
// delete the volumes a domain's descriptor referenced. Pool refresh and
// volume deletion are best-effort by design: a broken secondary pool must
// never block removal of a domain's own disks.
package storage
