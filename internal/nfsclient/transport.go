package nfsclient

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/Wazzaps/ampm/internal/protocol/rpc"
)

// callTimeout is the per-RPC-call timeout from spec.md §4.1: "each
// RPC has a per-call timeout (default 16 s)".
const callTimeout = 16 * time.Second

// conn is a single TCP connection dedicated to one RPC program
// (Portmap, MOUNT, or NFS). ampm dials a fresh conn per program,
// mirroring the Python original's NfsConnection, which opens separate
// sockets for portmap/mount/nfs rather than multiplexing.
type conn struct {
	program uint32
	version uint32
	nc      net.Conn
	xid     uint32
}

func dialProgram(ctx context.Context, addr string, program, version uint32) (*conn, error) {
	d := net.Dialer{}
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &conn{program: program, version: version, nc: nc}, nil
}

func (c *conn) close() error {
	if c.nc == nil {
		return nil
	}
	return c.nc.Close()
}

// call sends one RPC CALL for proc with auth credential auth and
// pre-encoded argument body args, and returns the raw reply body
// (post accept_stat == SUCCESS). Any RPC-level failure (timeout,
// transport error, non-SUCCESS accept_stat) is returned as an error;
// the caller's adaptive-retry wrapper (C3) decides whether to react.
func (c *conn) call(proc uint32, auth *rpc.UnixAuth, args []byte) ([]byte, error) {
	xid := atomic.AddUint32(&c.xid, 1)

	msg, err := rpc.BuildCall(rpc.CallHeader{
		XID:     xid,
		Program: c.program,
		Version: c.version,
		Proc:    proc,
		Auth:    auth,
	}, args)
	if err != nil {
		return nil, fmt.Errorf("build call: %w", err)
	}

	if err := c.nc.SetDeadline(time.Now().Add(callTimeout)); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	if _, err := c.nc.Write(msg); err != nil {
		return nil, fmt.Errorf("write call: %w", err)
	}

	raw, err := rpc.ReadRecord(c.nc)
	if err != nil {
		return nil, fmt.Errorf("read reply: %w", err)
	}

	reply, err := rpc.ParseReply(raw)
	if err != nil {
		return nil, fmt.Errorf("parse reply: %w", err)
	}
	if reply.XID != xid {
		return nil, fmt.Errorf("xid mismatch: sent %d, got %d", xid, reply.XID)
	}
	if reply.Status != rpc.Success {
		return nil, fmt.Errorf("rpc call failed: %s", rpc.StatusName(reply.Status))
	}

	return reply.Body, nil
}
