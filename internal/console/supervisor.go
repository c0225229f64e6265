// Package console brokers browser access to a VM's spice console.
//
// For each VM with an active console port the supervisor ensures exactly one
// relay process bridges that port to a websocket-capable one. Relays are
// deduplicated through an in-process registry guarded by a mutex; the live
// process table backs the registry up, both to verify registered relays are
// still alive and to rediscover relays spawned before a virtforge restart.
package console

import (
	"strconv"
	"sync"
	"time"

	"github.com/digitalocean/go-libvirt"
	"github.com/rs/zerolog"
	"libvirt.org/go/libvirtxml"

	"github.com/virtforge/virtforge/internal/config"
	"github.com/virtforge/virtforge/internal/naming"
	"github.com/virtforge/virtforge/internal/toolexec"
	"github.com/virtforge/virtforge/internal/virterr"
)

// spawnSettle is how long the supervisor waits before confirming a freshly
// spawned relay actually came up.
const spawnSettle = 300 * time.Millisecond

// Connection tells the caller where to point its browser-side client.
type Connection struct {
	ConsolePort int    `json:"console_port" yaml:"console_port"`
	RelayPort   int    `json:"relay_port" yaml:"relay_port"`
	Host        string `json:"host" yaml:"host"`
}

// libvirtClient defines the read operations the supervisor needs.
type libvirtClient interface {
	DomainLookupByName(name string) (libvirt.Domain, error)
	DomainGetXMLDesc(dom libvirt.Domain, flags libvirt.DomainXMLFlags) (string, error)
}

// Supervisor ensures one live relay per console port.
type Supervisor struct {
	client libvirtClient
	runner toolexec.Runner
	finder relayFinder
	cfg    config.Host
	logger zerolog.Logger

	settle time.Duration

	mu     sync.Mutex
	relays map[int]bool // relay ports this process believes are live
}

// NewSupervisor wires a Supervisor from its collaborators.
func NewSupervisor(client libvirtClient, runner toolexec.Runner, cfg config.Host, logger zerolog.Logger) *Supervisor {
	return &Supervisor{
		client: client,
		runner: runner,
		finder: newProcessScanner(cfg.RelayTool),
		cfg:    cfg,
		logger: logger,
		settle: spawnSettle,
		relays: make(map[int]bool),
	}
}

// Ensure makes the domain's spice console reachable through a relay,
// spawning one only if none is already serving the derived port. Calling it
// twice in quick succession yields the same relay port and at most one
// spawn.
func (s *Supervisor) Ensure(domainName string) (*Connection, error) {
	const op = "console.ensure"

	dom, err := s.client.DomainLookupByName(domainName)
	if err != nil {
		return nil, virterr.Wrap(virterr.KindDomainNotFound, op, domainName, err)
	}

	consolePort, err := s.consolePort(dom, domainName)
	if err != nil {
		return nil, err
	}
	relayPort := naming.RelayPort(consolePort)

	s.mu.Lock()
	defer s.mu.Unlock()

	running, err := s.relayAlive(relayPort)
	if err != nil {
		s.logger.Warn().Str("domain", domainName).Err(err).Msg("process table scan failed, assuming no relay")
		running = false
	}

	if !running {
		if err := s.spawnRelay(domainName, consolePort, relayPort); err != nil {
			return nil, err
		}
	}
	s.relays[relayPort] = true

	return &Connection{
		ConsolePort: consolePort,
		RelayPort:   relayPort,
		Host:        s.cfg.AdvertisedHost,
	}, nil
}

// consolePort extracts the spice port from the descriptor. Only an explicit
// spice graphics element with a positive port counts; a stopped VM has none.
func (s *Supervisor) consolePort(dom libvirt.Domain, domainName string) (int, error) {
	const op = "console.ensure"

	desc, err := s.client.DomainGetXMLDesc(dom, 0)
	if err != nil {
		return 0, virterr.Wrap(virterr.KindInvalidDescriptor, op, domainName, err)
	}

	var parsed libvirtxml.Domain
	if err := parsed.Unmarshal(desc); err != nil {
		return 0, virterr.Wrap(virterr.KindInvalidDescriptor, op, domainName, err)
	}

	if parsed.Devices != nil {
		for _, g := range parsed.Devices.Graphics {
			if g.Spice != nil && g.Spice.Port > 0 {
				return g.Spice.Port, nil
			}
		}
	}
	return 0, virterr.New(virterr.KindNoConsolePort, op, domainName)
}

// relayAlive checks the registry first, falling back to (and recovering
// from) the process table. A registered port that fails table verification
// is evicted so the relay gets respawned.
func (s *Supervisor) relayAlive(relayPort int) (bool, error) {
	alive, err := s.finder.Running(relayPort)
	if err != nil {
		return false, err
	}
	if !alive {
		delete(s.relays, relayPort)
	}
	return alive, nil
}

func (s *Supervisor) spawnRelay(domainName string, consolePort, relayPort int) error {
	const op = "console.ensure"

	err := s.runner.StartDetached(s.cfg.RelayTool,
		strconv.Itoa(relayPort),
		naming.RelayTarget("localhost", consolePort),
	)
	if err != nil {
		return virterr.Wrap(virterr.KindRelaySpawnFailed, op, domainName, err)
	}

	time.Sleep(s.settle)

	alive, err := s.finder.Running(relayPort)
	if err != nil {
		return virterr.Wrap(virterr.KindRelaySpawnFailed, op, domainName, err)
	}
	if !alive {
		verr := virterr.New(virterr.KindRelaySpawnFailed, op, domainName)
		verr.Detail = "relay exited immediately after spawn"
		return verr
	}

	s.logger.Info().Str("domain", domainName).
		Int("console_port", consolePort).Int("relay_port", relayPort).
		Msg("console relay started")
	return nil
}
