package vm

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/digitalocean/go-libvirt"
	"github.com/google/uuid"

	"github.com/virtforge/virtforge/internal/config"
	"github.com/virtforge/virtforge/internal/naming"
	"github.com/virtforge/virtforge/internal/virterr"
)

// cleanupStack records compensating actions as provisioning artifacts are
// created. On the first failure it is unwound in reverse order; on success it
// is discarded.
type cleanupStack struct {
	steps []func()
}

func (s *cleanupStack) push(step func()) {
	s.steps = append(s.steps, step)
}

func (s *cleanupStack) unwind() {
	for i := len(s.steps) - 1; i >= 0; i-- {
		s.steps[i]()
	}
	s.steps = nil
}

// Create provisions a new domain: validate, allocate a copy-on-write disk
// image, optionally build a cloud-init seed ISO, define and boot via the
// external definition tool, then confirm the domain is actually resolvable.
//
// Success is the lookup resolving, not the tool's exit code: a definition
// tool can report success before registration is visible, so the final lookup
// retries within the configured window.
func (c *Controller) Create(ctx context.Context, req *config.Request) (ActionResult, error) {
	const op = "vm.create"
	opID := uuid.NewString()

	req.Normalize()
	if err := req.Validate(); err != nil {
		verr := virterr.Wrap(virterr.KindInvalidRequest, op, req.Name, err)
		return failed(opID, req.Name, ActionCreate, verr), verr
	}

	if _, err := c.client.DomainLookupByName(req.Name); err == nil {
		verr := virterr.New(virterr.KindInvalidRequest, op, req.Name)
		verr.Detail = "domain already exists"
		return failed(opID, req.Name, ActionCreate, verr), verr
	}

	poolPath, err := c.storage.PoolPath(c.cfg.StoragePool)
	if err != nil {
		return failed(opID, req.Name, ActionCreate, err), err
	}
	diskPath := naming.DiskImagePath(poolPath, req.Name)

	var cleanup cleanupStack

	// Disk image first; nothing exists yet, so its failure needs no cleanup.
	out, err := c.runner.Run(ctx, c.cfg.DiskImageTool,
		"create", "-f", "qcow2", diskPath, fmt.Sprintf("%dG", req.DiskSizeGB))
	if err != nil {
		verr := &virterr.Error{Kind: virterr.KindDiskCreateFailed, Op: op, Name: req.Name, Detail: out, Err: err}
		return failed(opID, req.Name, ActionCreate, verr), verr
	}
	cleanup.push(func() { c.removeArtifact(req.Name, diskPath) })

	seedPath := ""
	if req.CloudInit != nil {
		seedPath = naming.SeedISOPath(poolPath, req.Name)
		if err := c.writeSeedISO(req.CloudInit, req.Name, seedPath); err != nil {
			cleanup.unwind()
			verr := virterr.Wrap(virterr.KindDiskCreateFailed, op, req.Name, err)
			return failed(opID, req.Name, ActionCreate, verr), verr
		}
		cleanup.push(func() { c.removeArtifact(req.Name, seedPath) })
	}

	out, err = c.runner.Run(ctx, c.cfg.DefineTool, defineArgs(req, diskPath, seedPath)...)
	if err != nil {
		cleanup.unwind()
		verr := &virterr.Error{Kind: virterr.KindDomainCreateFailed, Op: op, Name: req.Name, Detail: out, Err: err}
		return failed(opID, req.Name, ActionCreate, verr), verr
	}

	// The tool exited 0; confirm registration. A domain that never shows up
	// is reported as a creation failure, but the artifacts stay on disk for
	// the operator: the definition may be half-registered.
	dom, err := c.awaitDomain(ctx, req.Name)
	if err != nil {
		verr := &virterr.Error{Kind: virterr.KindDomainCreateFailed, Op: op, Name: req.Name, Detail: out, Err: err}
		return failed(opID, req.Name, ActionCreate, verr), verr
	}

	if req.Autostart {
		if err := c.client.DomainSetAutostart(dom, 1); err != nil {
			c.logger.Warn().Str("domain", req.Name).Err(err).Msg("enabling autostart failed")
		}
	}

	c.logger.Info().Str("domain", req.Name).Str("disk", diskPath).
		Str("operation_id", opID).Msg("domain provisioned")
	return succeeded(opID, req.Name, ActionCreate), nil
}

// defineArgs builds the definition tool invocation. Graphics are pinned to
// spice so the console supervisor can relay the result.
func defineArgs(req *config.Request, diskPath, seedPath string) []string {
	args := []string{
		"--name", req.Name,
		"--memory", fmt.Sprintf("%d", req.MemoryMB),
		"--vcpus", fmt.Sprintf("%d", req.VCPUCount),
		"--disk", fmt.Sprintf("path=%s,format=qcow2,bus=virtio", diskPath),
		"--cdrom", req.ISOImagePath,
	}
	if seedPath != "" {
		args = append(args, "--disk", fmt.Sprintf("path=%s,device=cdrom", seedPath))
	}
	if req.NetworkBridge == config.NetworkDefault {
		args = append(args, "--network", "network=default")
	} else {
		args = append(args, "--network", "bridge="+req.NetworkBridge)
	}
	args = append(args,
		"--graphics", "spice,listen=0.0.0.0",
		"--os-variant", req.OSVariant,
		"--noautoconsole",
	)
	return args
}

// awaitDomain polls for the freshly defined domain until the registration
// window closes. Registration is asynchronous on some daemons, so a single
// lookup right after the tool exits can miss a domain that appears moments
// later.
func (c *Controller) awaitDomain(ctx context.Context, name string) (libvirt.Domain, error) {
	deadline := time.Now().Add(c.cfg.RegisterWait)
	ticker := time.NewTicker(lookupRetryInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		dom, err := c.client.DomainLookupByName(name)
		if err == nil {
			return dom, nil
		}
		lastErr = err

		if time.Now().After(deadline) {
			return libvirt.Domain{}, fmt.Errorf("domain not resolvable within %s: %w", c.cfg.RegisterWait, lastErr)
		}
		select {
		case <-ctx.Done():
			return libvirt.Domain{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// removeArtifact deletes a provisioning artifact during rollback. A missing
// file is fine; anything else is logged.
func (c *Controller) removeArtifact(domainName, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		c.logger.Warn().Str("domain", domainName).Str("path", path).Err(err).Msg("rollback artifact removal failed")
		return
	}
	c.logger.Info().Str("domain", domainName).Str("path", path).Msg("rollback removed artifact")
}
