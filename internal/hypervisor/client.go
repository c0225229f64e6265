// Package hypervisor owns the process-wide connection to the local libvirt
// daemon.
//
// A single Client is shared by every component. The underlying RPC session is
// established lazily on first use, verified before reuse, and re-established
// transparently when the daemon drops it. The handle lives for the lifetime
// of the process; Close is only used by tests and shutdown paths.
package hypervisor

import (
	"sync"
	"time"

	"github.com/digitalocean/go-libvirt"
	"github.com/digitalocean/go-libvirt/socket/dialers"
	"github.com/rs/zerolog"

	"github.com/virtforge/virtforge/internal/virterr"
)

// DefaultSocketPath is the qemu:///system control socket.
const DefaultSocketPath = "/var/run/libvirt/libvirt-sock"

const defaultDialTimeout = 5 * time.Second

// Client is a lazily-connected, reusable handle to the local libvirt daemon.
// It is safe for concurrent use; first-use initialization is serialized so
// concurrent callers never race to establish duplicate sessions.
type Client struct {
	socketPath  string
	dialTimeout time.Duration
	logger      zerolog.Logger

	mu   sync.Mutex
	conn *libvirt.Libvirt
}

// NewClient returns an unconnected Client. If socketPath is empty the
// qemu:///system socket is used.
func NewClient(socketPath string, dialTimeout time.Duration, logger zerolog.Logger) *Client {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	return &Client{
		socketPath:  socketPath,
		dialTimeout: dialTimeout,
		logger:      logger,
	}
}

// Connect returns the live libvirt handle, establishing the session on first
// use. An existing handle is verified with a version call and replaced if the
// daemon no longer answers.
func (c *Client) Connect() (*libvirt.Libvirt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		if _, err := c.conn.ConnectGetLibVersion(); err == nil {
			return c.conn, nil
		}
		c.logger.Warn().Str("socket", c.socketPath).Msg("libvirt session went stale, reconnecting")
		_ = c.conn.Disconnect()
		c.conn = nil
	}

	dialer := dialers.NewLocal(
		dialers.WithSocket(c.socketPath),
		dialers.WithLocalTimeout(c.dialTimeout),
	)
	conn := libvirt.NewWithDialer(dialer)
	if err := conn.Connect(); err != nil {
		return nil, &virterr.Error{
			Kind: virterr.KindConnection,
			Op:   "hypervisor.connect",
			Err:  err,
		}
	}

	c.logger.Debug().Str("socket", c.socketPath).Msg("libvirt session established")
	c.conn = conn
	return c.conn, nil
}

// Ping verifies the daemon answers, connecting first if needed.
func (c *Client) Ping() error {
	conn, err := c.Connect()
	if err != nil {
		return err
	}
	if _, err := conn.ConnectGetLibVersion(); err != nil {
		return virterr.Wrap(virterr.KindConnection, "hypervisor.ping", "", err)
	}
	return nil
}

// Version reports the libvirt daemon version, encoded libvirt-style as
// major*1000000 + minor*1000 + release.
func (c *Client) Version() (uint64, error) {
	conn, err := c.Connect()
	if err != nil {
		return 0, err
	}
	v, err := conn.ConnectGetLibVersion()
	if err != nil {
		return 0, virterr.Wrap(virterr.KindConnection, "hypervisor.version", "", err)
	}
	return v, nil
}

// Close tears down the session if one exists. Safe to call repeatedly.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Disconnect()
	c.conn = nil
	return err
}
