// Package rpc implements the client side of Sun RPC (RFC 5531) call
// construction, record marking, and reply parsing used to talk to
// Portmap, MOUNT v3, and NFS v3 servers over TCP.
//
// Unlike the teacher's server-side rpc package (which parses incoming
// calls and authenticates AUTH_UNIX credentials), this package only
// ever plays the client role: it builds outgoing CALL messages and
// parses the REPLY messages that come back.
package rpc

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Wazzaps/ampm/internal/protocol/xdr"
)

// Message types. RFC 5531 Section 9.
const (
	Call  = uint32(0)
	Reply = uint32(1)
)

// Reply statuses. RFC 5531 Section 9.
const (
	MsgAccepted = uint32(0)
	MsgDenied   = uint32(1)
)

// Accept statuses. RFC 5531 Section 9.
const (
	Success      = uint32(0)
	ProgUnavail  = uint32(1)
	ProgMismatch = uint32(2)
	ProcUnavail  = uint32(3)
	GarbageArgs  = uint32(4)
	SystemErr    = uint32(5)
)

// Auth flavors. RFC 5531 Section 8.2.
const (
	AuthNull  = uint32(0)
	AuthUnix  = uint32(1)
	AuthShort = uint32(2)
	AuthDES   = uint32(3)
)

// RPCVersion is the only Sun RPC version in use: version 2.
const RPCVersion = uint32(2)

// UnixAuth is the client's AUTH_UNIX credential, presented with every
// call against Portmap, MOUNT, and NFS. The spec's ambient-trust model
// means the server takes these at face value; ampm sends the calling
// process's real uid/gid so NFS permission checks behave sensibly.
type UnixAuth struct {
	Stamp       uint32
	MachineName string
	UID         uint32
	GID         uint32
	GIDs        []uint32
}

// Encode serializes the credential body per RFC 5531 Section 8.3 (the
// body that follows the AUTH_UNIX flavor tag and length prefix).
func (a *UnixAuth) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := xdr.WriteUint32(buf, a.Stamp); err != nil {
		return nil, err
	}
	if err := xdr.WriteXDRString(buf, a.MachineName); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(buf, a.UID); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(buf, a.GID); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(buf, uint32(len(a.GIDs))); err != nil {
		return nil, err
	}
	for _, gid := range a.GIDs {
		if err := xdr.WriteUint32(buf, gid); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// CallHeader identifies the procedure a Call message invokes.
type CallHeader struct {
	XID     uint32
	Program uint32
	Version uint32
	Proc    uint32
	Auth    *UnixAuth // nil means AUTH_NULL
}

// BuildCall constructs a full RPC CALL message (record-marked, ready to
// write to the wire) for the given procedure and pre-encoded argument
// body.
func BuildCall(hdr CallHeader, args []byte) ([]byte, error) {
	buf := new(bytes.Buffer)

	if err := xdr.WriteUint32(buf, hdr.XID); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(buf, Call); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(buf, RPCVersion); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(buf, hdr.Program); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(buf, hdr.Version); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(buf, hdr.Proc); err != nil {
		return nil, err
	}

	if hdr.Auth == nil {
		// AUTH_NULL credential: flavor=0, length=0
		if err := xdr.WriteUint32(buf, AuthNull); err != nil {
			return nil, err
		}
		if err := xdr.WriteUint32(buf, 0); err != nil {
			return nil, err
		}
	} else {
		credBody, err := hdr.Auth.Encode()
		if err != nil {
			return nil, fmt.Errorf("encode auth_unix credential: %w", err)
		}
		if err := xdr.WriteUint32(buf, AuthUnix); err != nil {
			return nil, err
		}
		if err := xdr.WriteXDROpaque(buf, credBody); err != nil {
			return nil, err
		}
	}

	// Verifier: always AUTH_NULL from the client.
	if err := xdr.WriteUint32(buf, AuthNull); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(buf, 0); err != nil {
		return nil, err
	}

	if _, err := buf.Write(args); err != nil {
		return nil, fmt.Errorf("write call args: %w", err)
	}

	return addRecordMark(buf.Bytes()), nil
}

// addRecordMark prepends the 4-byte fragment header defined in RFC
// 5531 Section 11 ("Record Marking Standard"). ampm never fragments
// outgoing calls, so the last-fragment bit (0x80000000) is always set.
func addRecordMark(payload []byte) []byte {
	out := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(out, 0x80000000|uint32(len(payload)))
	copy(out[4:], payload)
	return out
}

// Reply is a parsed RPC reply: the accept/reject status and, on
// success, the procedure-specific result body that follows the reply
// header and verifier.
type Reply struct {
	XID    uint32
	Status uint32 // Success, ProgMismatch, ProgUnavail, ProcUnavail, GarbageArgs, SystemErr
	Low    uint32 // only meaningful when Status == ProgMismatch
	High   uint32 // only meaningful when Status == ProgMismatch
	Body   []byte
}

// ParseReply decodes a full RPC reply message body (the bytes that
// follow the record-mark header, i.e. exactly one RPC fragment).
func ParseReply(data []byte) (*Reply, error) {
	r := bytes.NewReader(data)

	xid, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read xid: %w", err)
	}
	msgType, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read msg_type: %w", err)
	}
	if msgType != Reply {
		return nil, fmt.Errorf("expected REPLY message, got type %d", msgType)
	}

	replyStat, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read reply_stat: %w", err)
	}

	if replyStat == MsgDenied {
		// We don't attempt to recover from rejected calls (bad RPC
		// version or bad auth); surface it as a generic connection
		// failure to the caller.
		return nil, fmt.Errorf("rpc call rejected by server (MSG_DENIED)")
	}
	if replyStat != MsgAccepted {
		return nil, fmt.Errorf("unexpected reply_stat %d", replyStat)
	}

	// Verifier: flavor + opaque body.
	if _, err := xdr.DecodeUint32(r); err != nil {
		return nil, fmt.Errorf("read verf flavor: %w", err)
	}
	if _, err := xdr.DecodeOpaque(r); err != nil {
		return nil, fmt.Errorf("read verf body: %w", err)
	}

	acceptStat, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read accept_stat: %w", err)
	}

	reply := &Reply{XID: xid, Status: acceptStat}

	if acceptStat == ProgMismatch {
		low, err := xdr.DecodeUint32(r)
		if err != nil {
			return nil, fmt.Errorf("read mismatch_info.low: %w", err)
		}
		high, err := xdr.DecodeUint32(r)
		if err != nil {
			return nil, fmt.Errorf("read mismatch_info.high: %w", err)
		}
		reply.Low, reply.High = low, high
		return reply, nil
	}

	if acceptStat != Success {
		return reply, nil
	}

	rest := make([]byte, r.Len())
	if _, err := r.Read(rest); err != nil && r.Len() > 0 {
		return nil, fmt.Errorf("read reply body: %w", err)
	}
	reply.Body = rest
	return reply, nil
}

// StatusName renders an accept_stat as a short symbolic name, falling
// back to the decimal value for anything unrecognized (per spec.md
// Design Notes: never crash on an unknown status).
func StatusName(status uint32) string {
	switch status {
	case Success:
		return "SUCCESS"
	case ProgUnavail:
		return "PROG_UNAVAIL"
	case ProgMismatch:
		return "PROG_MISMATCH"
	case ProcUnavail:
		return "PROC_UNAVAIL"
	case GarbageArgs:
		return "GARBAGE_ARGS"
	case SystemErr:
		return "SYSTEM_ERR"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", status)
	}
}
