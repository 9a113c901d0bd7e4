// Package nfsclient is a hand-rolled, user-space NFSv3 client: it
// issues Portmap, MOUNT v3, and NFS v3 RPC calls over TCP, maintains a
// handle-based path resolver, and streams reads/writes with adaptive
// chunk sizing and reconnection (spec.md §4.1–§4.3, components C1–C3).
//
// There is no module-level mutable state (spec.md Design Notes: "no
// module-level state"); every connection is owned by a Client value.
package nfsclient

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/Wazzaps/ampm/internal/bytesize"
	"github.com/Wazzaps/ampm/internal/logger"
	"github.com/Wazzaps/ampm/internal/nfsclient/wire"
)

const (
	portmapPort = 111

	// DefaultChunkSize is the initial READ/WRITE chunk size limit
	// (spec.md §4.3: "default 32 KiB").
	DefaultChunkSize = 32 * bytesize.KiB
	// MaxChunkSize is the configurable ceiling (spec.md §4.3: "max 1 GiB").
	MaxChunkSize = 1 * bytesize.GiB
	// minChunkSize is the floor below which the adaptive retry policy
	// gives up and surfaces the error (spec.md §4.3: "chunk_size > 1024").
	minChunkSize = bytesize.ByteSize(1024)
)

// Client is a connected session against one NFS export. It is not
// safe for concurrent use by multiple goroutines — ampm's scheduling
// model is single-threaded per process (spec.md §5).
type Client struct {
	Host       string
	ExportPath string

	auth *rpcAuth

	mu                  sync.Mutex
	mountConn           *conn
	nfsConn             *conn
	rootHandle          wire.FileHandle
	chunkSizeLimit      bytesize.ByteSize
	supportsReaddirplus bool
}

// New creates a disconnected Client for the given host and NFS export
// path (e.g. "/exports/data"). Call Connect before use.
func New(host, exportPath string, chunkSizeLimit bytesize.ByteSize) *Client {
	if chunkSizeLimit == 0 {
		chunkSizeLimit = DefaultChunkSize
	}
	if chunkSizeLimit > MaxChunkSize {
		chunkSizeLimit = MaxChunkSize
	}
	return &Client{
		Host:                host,
		ExportPath:          exportPath,
		auth:                newRPCAuth(),
		chunkSizeLimit:      chunkSizeLimit,
		supportsReaddirplus: true,
	}
}

// Connect performs the connection sequence from spec.md §4.1:
// TCP-connect Portmap -> getport(MOUNT, v3) -> connect MOUNT ->
// MNT(exportPath) -> capture root file handle -> getport(NFS, v3) ->
// connect NFS.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	pmAddr := net.JoinHostPort(c.Host, strconv.Itoa(portmapPort))
	pmConn, err := dialProgram(ctx, pmAddr, wire.ProgramPortmap, wire.PortmapVersion2)
	if err != nil {
		return fmt.Errorf("connect portmap: %w", err)
	}
	defer pmConn.close()

	mountPort, err := getport(pmConn, wire.ProgramMount, wire.MountVersion3)
	if err != nil {
		return fmt.Errorf("resolve mount port: %w", err)
	}

	mountAddr := net.JoinHostPort(c.Host, strconv.Itoa(int(mountPort)))
	mountConn, err := dialProgram(ctx, mountAddr, wire.ProgramMount, wire.MountVersion3)
	if err != nil {
		return fmt.Errorf("connect mount: %w", err)
	}

	rootHandle, err := mnt(mountConn, c.auth, c.ExportPath)
	if err != nil {
		mountConn.close()
		return fmt.Errorf("mount %s:%s: %w", c.Host, c.ExportPath, err)
	}

	nfsPort, err := getport(pmConn, wire.ProgramNFS, wire.NFSVersion3)
	if err != nil {
		mountConn.close()
		return fmt.Errorf("resolve nfs port: %w", err)
	}

	nfsAddr := net.JoinHostPort(c.Host, strconv.Itoa(int(nfsPort)))
	nfsConn, err := dialProgram(ctx, nfsAddr, wire.ProgramNFS, wire.NFSVersion3)
	if err != nil {
		mountConn.close()
		return fmt.Errorf("connect nfs: %w", err)
	}

	c.mountConn = mountConn
	c.nfsConn = nfsConn
	c.rootHandle = rootHandle
	c.supportsReaddirplus = true

	logger.Debugf("connected to nfs://%s%s", c.Host, c.ExportPath)
	return nil
}

// Close tears down the session, issuing a best-effort UMNT first
// (spec.md §4.1: "Teardown reverses the order with best-effort UMNT").
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	if c.mountConn != nil {
		if err := umnt(c.mountConn, c.auth, c.ExportPath); err != nil {
			logger.Debugf("best-effort UMNT failed: %v", err)
		}
		_ = c.mountConn.close()
		c.mountConn = nil
	}
	if c.nfsConn != nil {
		err := c.nfsConn.close()
		c.nfsConn = nil
		return err
	}
	return nil
}

// reconnect tears down and re-establishes the session, used by the
// adaptive chunk-retry policy (spec.md §4.3) after a chunked I/O
// failure. File handles remain valid across a reconnect since NFSv3
// handles are opaque, persistent identifiers, not connection-scoped.
func (c *Client) reconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.closeLocked()
	return c.connectLocked(ctx)
}

// ChunkSizeLimit returns the current adaptive chunk size limit.
func (c *Client) ChunkSizeLimit() bytesize.ByteSize {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chunkSizeLimit
}

// RootHandle returns the export's root file handle.
func (c *Client) RootHandle() wire.FileHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rootHandle
}

func (c *Client) nfsCall(proc uint32, args []byte) ([]byte, error) {
	c.mu.Lock()
	nfsConn := c.nfsConn
	auth := c.auth
	c.mu.Unlock()
	if nfsConn == nil {
		return nil, fmt.Errorf("nfsclient: not connected")
	}
	return nfsConn.call(proc, auth.unix(), args)
}
