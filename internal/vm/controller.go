package vm

import (
	"path/filepath"
	"time"

	"github.com/digitalocean/go-libvirt"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"libvirt.org/go/libvirtxml"

	"github.com/virtforge/virtforge/internal/cloudinit"
	"github.com/virtforge/virtforge/internal/config"
	"github.com/virtforge/virtforge/internal/inspect"
	"github.com/virtforge/virtforge/internal/toolexec"
	"github.com/virtforge/virtforge/internal/virterr"
)

// undefineFlags drops everything libvirt persists alongside the definition:
// managed-save state, snapshot metadata, and firmware NVRAM.
const undefineFlags = libvirt.DomainUndefineManagedSave |
	libvirt.DomainUndefineSnapshotsMetadata |
	libvirt.DomainUndefineNvram

const lookupRetryInterval = 500 * time.Millisecond

// Controller performs mutating domain lifecycle operations.
type Controller struct {
	client  libvirtClient
	storage storageManager
	runner  toolexec.Runner
	cfg     config.Host
	logger  zerolog.Logger

	// writeSeedISO is injectable for tests.
	writeSeedISO func(ci *config.CloudInit, domainName, path string) error
}

// NewController wires a Controller from its collaborators.
func NewController(client libvirtClient, storage storageManager, runner toolexec.Runner, cfg config.Host, logger zerolog.Logger) *Controller {
	return &Controller{
		client:       client,
		storage:      storage,
		runner:       runner,
		cfg:          cfg,
		logger:       logger,
		writeSeedISO: cloudinit.WriteSeedISO,
	}
}

// Start boots a defined domain from its persisted configuration.
func (c *Controller) Start(name string) (ActionResult, error) {
	return c.simpleAction(name, ActionStart, "vm.start", c.client.DomainCreate)
}

// Stop requests a guest shutdown. With force set the domain is hard-stopped
// immediately; otherwise the guest receives an ACPI signal it may ignore.
func (c *Controller) Stop(name string, force bool) (ActionResult, error) {
	act := c.client.DomainShutdown
	if force {
		act = c.client.DomainDestroy
	}
	return c.simpleAction(name, ActionStop, "vm.stop", act)
}

// Reboot sends a guest-level ACPI reboot signal. A guest that refuses leaves
// the domain unchanged.
func (c *Controller) Reboot(name string) (ActionResult, error) {
	return c.simpleAction(name, ActionReboot, "vm.reboot", func(dom libvirt.Domain) error {
		return c.client.DomainReboot(dom, 0)
	})
}

func (c *Controller) simpleAction(name, action, op string, act func(libvirt.Domain) error) (ActionResult, error) {
	opID := uuid.NewString()

	dom, err := c.client.DomainLookupByName(name)
	if err != nil {
		verr := virterr.Wrap(virterr.KindDomainNotFound, op, name, err)
		return failed(opID, name, action, verr), verr
	}

	if err := act(dom); err != nil {
		verr := virterr.Wrap(virterr.KindActionFailed, op, name, err)
		c.logger.Error().Str("domain", name).Str("action", action).Err(err).Msg("domain action failed")
		return failed(opID, name, action, verr), verr
	}

	c.logger.Info().Str("domain", name).Str("action", action).Str("operation_id", opID).Msg("domain action completed")
	return succeeded(opID, name, action), nil
}

// Delete removes a domain: stop if running, then undefine together with its
// managed-save state, snapshot metadata, and NVRAM. With removeStorage set,
// the disk images referenced by the descriptor are deleted first, each one
// best-effort so a broken volume never blocks removal of the domain itself.
func (c *Controller) Delete(name string, removeStorage bool) (ActionResult, error) {
	const op = "vm.delete"
	opID := uuid.NewString()

	dom, err := c.client.DomainLookupByName(name)
	if err != nil {
		verr := virterr.Wrap(virterr.KindDomainNotFound, op, name, err)
		return failed(opID, name, ActionDelete, verr), verr
	}

	if removeStorage {
		c.removeDomainStorage(name, dom)
	}

	// Stop-if-running; failures here are logged, undefine decides the outcome.
	state, _, err := c.client.DomainGetState(dom, 0)
	if err == nil && state == inspect.StateRunning {
		if err := c.client.DomainDestroy(dom); err != nil {
			c.logger.Warn().Str("domain", name).Err(err).Msg("force stop before undefine failed")
		}
	}

	if err := c.client.DomainUndefineFlags(dom, undefineFlags); err != nil {
		// Older daemons reject flags they do not know; retry plain.
		if fallbackErr := c.client.DomainUndefine(dom); fallbackErr != nil {
			verr := virterr.Wrap(virterr.KindActionFailed, op, name, err)
			return failed(opID, name, ActionDelete, verr), verr
		}
	}

	c.logger.Info().Str("domain", name).Bool("remove_storage", removeStorage).
		Str("operation_id", opID).Msg("domain deleted")
	return succeeded(opID, name, ActionDelete), nil
}

// removeDomainStorage deletes every disk image the domain descriptor
// references, plus the provisioning seed ISO if one is attached. All
// best-effort: failures are logged and remaining deletions continue.
func (c *Controller) removeDomainStorage(name string, dom libvirt.Domain) {
	c.storage.RefreshAll()

	desc, err := c.client.DomainGetXMLDesc(dom, 0)
	if err != nil {
		c.logger.Warn().Str("domain", name).Err(err).Msg("descriptor unavailable, skipping storage cleanup")
		return
	}

	var parsed libvirtxml.Domain
	if err := parsed.Unmarshal(desc); err != nil {
		c.logger.Warn().Str("domain", name).Err(err).Msg("descriptor unparseable, skipping storage cleanup")
		return
	}
	if parsed.Devices == nil {
		return
	}

	seedISO := name + "-seed.iso"
	for _, disk := range parsed.Devices.Disks {
		if disk.Source == nil || disk.Source.File == nil || disk.Source.File.File == "" {
			continue
		}
		path := disk.Source.File.File
		if disk.Device != "disk" && filepath.Base(path) != seedISO {
			continue
		}
		if err := c.storage.DeleteVolumeByPath(path); err != nil {
			c.logger.Warn().Str("domain", name).Str("path", path).Err(err).Msg("volume delete failed, continuing")
			continue
		}
		c.logger.Info().Str("domain", name).Str("path", path).Msg("volume deleted")
	}
}
