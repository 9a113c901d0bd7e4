// Package nfstest is an in-process fake Portmap/MOUNT/NFSv3 server for
// exercising internal/nfsclient and pkg/repo against a real TCP
// round-trip instead of mocking the conn type directly, mirroring the
// teacher's own style of spinning up a real net.Listen("tcp",
// "127.0.0.1:0") server in-process for protocol-level integration
// tests rather than reaching for testcontainers-go (this module has
// no SQL component to containerize; see DESIGN.md).
//
// The server does not implement full RFC 1813 wire fidelity — it only
// needs to be byte-compatible with the one client in this module
// (internal/nfsclient's hand-rolled encoder/decoder), so sattr3/wcc_data
// fields the client never reads back are written as empty/absent
// rather than fully populated.
package nfstest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/Wazzaps/ampm/internal/nfsclient/wire"
	"github.com/Wazzaps/ampm/internal/protocol/rpc"
	"github.com/Wazzaps/ampm/internal/protocol/xdr"
)

// node is one file or directory in the server's in-memory tree.
type node struct {
	name     string
	isDir    bool
	data     []byte
	children map[string]*node
}

// Server is a running fake Portmap+MOUNT+NFS listener set. Host is
// always "127.0.0.1"; Export is the MOUNT export path the client must
// mount to reach Root.
type Server struct {
	Host   string
	Export string

	mu      sync.Mutex
	root    *node
	handles map[string]*node
	nextID  uint64

	pmLn, mountLn, nfsLn net.Listener
	mountPort, nfsPort   uint16
}

// Start binds a fake portmap listener on 127.0.0.1:111 (the port
// internal/nfsclient hardcodes) plus ephemeral MOUNT and NFS
// listeners, and serves all three until the test ends. Port 111 is a
// privileged port on most systems; when binding it fails for any
// reason (lack of privilege, or the port already in use), the test is
// skipped rather than failed.
func Start(tb testing.TB, exportPath string) *Server {
	tb.Helper()

	root := &node{name: "", isDir: true, children: map[string]*node{}}
	s := &Server{
		Host:    "127.0.0.1",
		Export:  exportPath,
		root:    root,
		handles: map[string]*node{},
	}
	s.handleFor(root)

	pmLn, err := net.Listen("tcp", "127.0.0.1:111")
	if err != nil {
		tb.Skipf("nfstest: cannot bind portmap port 111 (needs root/CAP_NET_BIND_SERVICE): %v", err)
		return nil
	}
	mountLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("nfstest: bind mount listener: %v", err)
	}
	nfsLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("nfstest: bind nfs listener: %v", err)
	}

	s.pmLn, s.mountLn, s.nfsLn = pmLn, mountLn, nfsLn
	s.mountPort = uint16(mountLn.Addr().(*net.TCPAddr).Port)
	s.nfsPort = uint16(nfsLn.Addr().(*net.TCPAddr).Port)

	go s.serve(pmLn, s.handlePortmapCall)
	go s.serve(mountLn, s.handleMountCall)
	go s.serve(nfsLn, s.handleNFSCall)

	tb.Cleanup(func() {
		_ = pmLn.Close()
		_ = mountLn.Close()
		_ = nfsLn.Close()
	})

	return s
}

// WriteFile seeds path (slash-separated, relative to the export root)
// with contents before the client connects.
func (s *Server) WriteFile(path string, contents []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dir := s.root
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for _, seg := range parts[:len(parts)-1] {
		dir = s.mkdirLocked(dir, seg)
	}
	name := parts[len(parts)-1]
	n := &node{name: name, data: append([]byte(nil), contents...)}
	dir.children[name] = n
	s.handleFor(n)
}

// ReadFile returns the current contents of path, or (nil, false) if it
// does not exist or is a directory.
func (s *Server) ReadFile(path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.walk(s.root, strings.Split(strings.Trim(path, "/"), "/"))
	if n == nil || n.isDir {
		return nil, false
	}
	return append([]byte(nil), n.data...), true
}

func (s *Server) walk(dir *node, parts []string) *node {
	cur := dir
	for _, seg := range parts {
		if seg == "" {
			continue
		}
		if cur == nil || !cur.isDir {
			return nil
		}
		cur = cur.children[seg]
	}
	return cur
}

func (s *Server) mkdirLocked(dir *node, name string) *node {
	if existing, ok := dir.children[name]; ok {
		return existing
	}
	n := &node{name: name, isDir: true, children: map[string]*node{}}
	dir.children[name] = n
	s.handleFor(n)
	return n
}

// handleFor mints a fresh 8-byte handle for n and registers it in the
// handle table, so any handle this server ever puts on the wire can
// always be resolved back to n by a later call. Node identity
// (pointer) is the source of truth; a node may accumulate more than
// one valid handle over its lifetime, which is harmless for a fake.
func (s *Server) handleFor(n *node) wire.FileHandle {
	s.nextID++
	h := make([]byte, 8)
	binary.BigEndian.PutUint64(h, s.nextID)
	s.handles[string(h)] = n
	return h
}

// serve accepts connections on ln until it is closed, dispatching each
// complete RPC record read from a connection to handle.
func (s *Server) serve(ln net.Listener, handle func(call *callHeader, body []byte) (acceptStat uint32, resp []byte)) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go s.serveConn(conn, handle)
	}
}

func (s *Server) serveConn(conn net.Conn, handle func(call *callHeader, body []byte) (acceptStat uint32, resp []byte)) {
	defer conn.Close()
	for {
		raw, err := rpc.ReadRecord(conn)
		if err != nil {
			return
		}
		call, body, err := parseCall(raw)
		if err != nil {
			return
		}
		acceptStat, resp := handle(call, body)
		if _, err := conn.Write(buildReply(call.xid, acceptStat, resp)); err != nil {
			return
		}
	}
}

// callHeader is the subset of an RPC CALL header handlers need.
type callHeader struct {
	xid     uint32
	program uint32
	version uint32
	proc    uint32
}

func parseCall(raw []byte) (*callHeader, []byte, error) {
	r := bytes.NewReader(raw)
	xid, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, nil, err
	}
	msgType, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, nil, err
	}
	if msgType != rpc.Call {
		return nil, nil, fmt.Errorf("expected CALL, got msg_type %d", msgType)
	}
	if _, err := xdr.DecodeUint32(r); err != nil { // rpcvers
		return nil, nil, err
	}
	program, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, nil, err
	}
	version, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, nil, err
	}
	proc, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, nil, err
	}
	// cred: flavor + opaque body (AUTH_NULL's zero-length body is
	// wire-identical to an empty opaque).
	if _, err := xdr.DecodeUint32(r); err != nil { // flavor
		return nil, nil, err
	}
	if _, err := xdr.DecodeOpaque(r); err != nil {
		return nil, nil, err
	}
	// verifier: same shape.
	if _, err := xdr.DecodeUint32(r); err != nil {
		return nil, nil, err
	}
	if _, err := xdr.DecodeOpaque(r); err != nil {
		return nil, nil, err
	}

	rest := make([]byte, r.Len())
	_, _ = r.Read(rest)
	return &callHeader{xid: xid, program: program, version: version, proc: proc}, rest, nil
}

func buildReply(xid uint32, acceptStat uint32, body []byte) []byte {
	buf := new(bytes.Buffer)
	_ = xdr.WriteUint32(buf, xid)
	_ = xdr.WriteUint32(buf, rpc.Reply)
	_ = xdr.WriteUint32(buf, rpc.MsgAccepted)
	_ = xdr.WriteUint32(buf, rpc.AuthNull) // verifier flavor
	_ = xdr.WriteUint32(buf, 0)            // verifier length
	_ = xdr.WriteUint32(buf, acceptStat)
	if acceptStat == rpc.Success {
		buf.Write(body)
	}
	out := make([]byte, 4+buf.Len())
	binary.BigEndian.PutUint32(out, 0x80000000|uint32(buf.Len()))
	copy(out[4:], buf.Bytes())
	return out
}

// ---------------------------------------------------------------------
// Portmap (program 100000, version 2)
// ---------------------------------------------------------------------

func (s *Server) handlePortmapCall(call *callHeader, body []byte) (uint32, []byte) {
	switch call.proc {
	case wire.PortmapProcNull:
		return rpc.Success, nil
	case wire.PortmapProcGetport:
		r := bytes.NewReader(body)
		program, err := xdr.DecodeUint32(r)
		if err != nil {
			return rpc.GarbageArgs, nil
		}
		port := uint16(0)
		switch program {
		case wire.ProgramMount:
			port = s.mountPort
		case wire.ProgramNFS:
			port = s.nfsPort
		}
		buf := new(bytes.Buffer)
		_ = xdr.WriteUint32(buf, uint32(port))
		return rpc.Success, buf.Bytes()
	default:
		return rpc.ProcUnavail, nil
	}
}

// ---------------------------------------------------------------------
// MOUNT (program 100005, version 3)
// ---------------------------------------------------------------------

func (s *Server) handleMountCall(call *callHeader, body []byte) (uint32, []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch call.proc {
	case wire.MountProcNull:
		return rpc.Success, nil
	case wire.MountProcMnt:
		r := bytes.NewReader(body)
		path, err := xdr.DecodeString(r)
		if err != nil {
			return rpc.GarbageArgs, nil
		}
		buf := new(bytes.Buffer)
		if path != s.Export {
			_ = xdr.WriteUint32(buf, wire.MountErrNoEnt)
			return rpc.Success, buf.Bytes()
		}
		_ = xdr.WriteUint32(buf, wire.MountOK)
		_ = xdr.WriteXDROpaque(buf, s.handleFor(s.root))
		_ = xdr.WriteUint32(buf, 1) // auth_flavors count
		_ = xdr.WriteUint32(buf, rpc.AuthNull)
		return rpc.Success, buf.Bytes()
	case wire.MountProcUmnt:
		return rpc.Success, nil
	default:
		return rpc.ProcUnavail, nil
	}
}

// ---------------------------------------------------------------------
// NFS v3 (program 100003, version 3)
// ---------------------------------------------------------------------

func (s *Server) handleNFSCall(call *callHeader, body []byte) (uint32, []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := bytes.NewReader(body)
	switch call.proc {
	case wire.NFSProcNull:
		return rpc.Success, nil
	case wire.NFSProcGetAttr:
		return s.nfsGetattr(r)
	case wire.NFSProcLookup:
		return s.nfsLookup(r)
	case wire.NFSProcCreate:
		return s.nfsCreateOrMkdir(r, false)
	case wire.NFSProcMkdir:
		return s.nfsCreateOrMkdir(r, true)
	case wire.NFSProcRemove:
		return s.nfsRemove(r, false)
	case wire.NFSProcRmdir:
		return s.nfsRemove(r, true)
	case wire.NFSProcRename:
		return s.nfsRename(r)
	case wire.NFSProcRead:
		return s.nfsRead(r)
	case wire.NFSProcWrite:
		return s.nfsWrite(r)
	case wire.NFSProcCommit:
		return s.nfsCommit(r)
	case wire.NFSProcReaddirplus:
		return s.nfsReaddirplus(r)
	case wire.NFSProcReaddir:
		return s.nfsReaddir(r)
	default:
		return rpc.ProcUnavail, nil
	}
}

func decodeHandleAndName(r *bytes.Reader) (wire.FileHandle, string, error) {
	h, err := xdr.DecodeOpaque(r)
	if err != nil {
		return nil, "", err
	}
	name, err := xdr.DecodeString(r)
	if err != nil {
		return nil, "", err
	}
	return h, name, nil
}

func statusOnly(status uint32) []byte {
	buf := new(bytes.Buffer)
	_ = xdr.WriteUint32(buf, status)
	return buf.Bytes()
}

func writePostOpAttrAbsent(buf *bytes.Buffer) { _ = xdr.WriteBool(buf, false) }

func writeWccDataAbsent(buf *bytes.Buffer) {
	_ = xdr.WriteBool(buf, false) // pre_op_attr absent
	writePostOpAttrAbsent(buf)    // post_op_attr absent
}

func encodeFattr3(buf *bytes.Buffer, n *node) {
	typ := wire.NF3Reg
	size := uint64(len(n.data))
	if n.isDir {
		typ = wire.NF3Dir
		size = 0
	}
	_ = xdr.WriteUint32(buf, typ)
	_ = xdr.WriteUint32(buf, 0o777) // mode
	_ = xdr.WriteUint32(buf, 1)     // nlink
	_ = xdr.WriteUint32(buf, 0)     // uid
	_ = xdr.WriteUint32(buf, 0)     // gid
	_ = xdr.WriteUint64(buf, size)  // size
	_ = xdr.WriteUint64(buf, size)  // used
	_ = xdr.WriteUint32(buf, 0)     // rdev[0]
	_ = xdr.WriteUint32(buf, 0)     // rdev[1]
	_ = xdr.WriteUint64(buf, 0)     // fsid
	_ = xdr.WriteUint64(buf, 0)     // fileid
	for i := 0; i < 3; i++ {        // atime, mtime, ctime
		_ = xdr.WriteUint32(buf, 0)
		_ = xdr.WriteUint32(buf, 0)
	}
}

func (s *Server) nfsGetattr(r *bytes.Reader) (uint32, []byte) {
	h, err := xdr.DecodeOpaque(r)
	if err != nil {
		return rpc.GarbageArgs, nil
	}
	n := s.handles[string(h)]
	if n == nil {
		return rpc.Success, statusOnly(wire.NFS3ErrStale)
	}
	buf := new(bytes.Buffer)
	_ = xdr.WriteUint32(buf, wire.NFS3OK)
	encodeFattr3(buf, n)
	return rpc.Success, buf.Bytes()
}

func (s *Server) nfsLookup(r *bytes.Reader) (uint32, []byte) {
	dirHandle, name, err := decodeHandleAndName(r)
	if err != nil {
		return rpc.GarbageArgs, nil
	}
	dir := s.handles[string(dirHandle)]
	if dir == nil || !dir.isDir {
		return rpc.Success, statusOnly(wire.NFS3ErrNotDir)
	}
	child, ok := dir.children[name]
	if !ok {
		return rpc.Success, statusOnly(wire.NFS3ErrNoEnt)
	}
	buf := new(bytes.Buffer)
	_ = xdr.WriteUint32(buf, wire.NFS3OK)
	_ = xdr.WriteXDROpaque(buf, s.handleFor(child))
	_ = xdr.WriteBool(buf, true)
	encodeFattr3(buf, child)
	writePostOpAttrAbsent(buf) // dir_attributes, unread by the client
	return rpc.Success, buf.Bytes()
}

// nfsCreateOrMkdir consumes the sattr3-ish tail exactly as
// writeDefaultSAttr (ops.go) encodes it: a present mode field, three
// bools (uid, gid, size), then two discriminant uint32s (atime,
// mtime). CREATE additionally has a
// leading createmode3 discriminant, which ampm always sets to
// UNCHECKED(0).
func (s *Server) nfsCreateOrMkdir(r *bytes.Reader, isDir bool) (uint32, []byte) {
	dirHandle, name, err := decodeHandleAndName(r)
	if err != nil {
		return rpc.GarbageArgs, nil
	}
	if !isDir {
		if _, err := xdr.DecodeUint32(r); err != nil { // createmode3
			return rpc.GarbageArgs, nil
		}
	}
	if _, err := xdr.DecodeBool(r); err != nil { // mode present
		return rpc.GarbageArgs, nil
	}
	if _, err := xdr.DecodeUint32(r); err != nil { // mode value
		return rpc.GarbageArgs, nil
	}
	for i := 0; i < 3; i++ {
		if _, err := xdr.DecodeBool(r); err != nil {
			return rpc.GarbageArgs, nil
		}
	}
	if _, err := xdr.DecodeUint32(r); err != nil {
		return rpc.GarbageArgs, nil
	}
	if _, err := xdr.DecodeUint32(r); err != nil {
		return rpc.GarbageArgs, nil
	}

	dir := s.handles[string(dirHandle)]
	if dir == nil || !dir.isDir {
		return rpc.Success, statusOnly(wire.NFS3ErrNotDir)
	}
	if existing, ok := dir.children[name]; ok {
		if isDir {
			return rpc.Success, statusOnly(wire.NFS3ErrExist)
		}
		// UNCHECKED create of an existing file truncates it.
		existing.data = nil
		return s.createReply(existing)
	}
	n := &node{name: name, isDir: isDir}
	if isDir {
		n.children = map[string]*node{}
	}
	dir.children[name] = n
	s.handleFor(n)
	return s.createReply(n)
}

func (s *Server) createReply(n *node) (uint32, []byte) {
	buf := new(bytes.Buffer)
	_ = xdr.WriteUint32(buf, wire.NFS3OK)
	_ = xdr.WriteBool(buf, true) // post_op_fh3 present
	_ = xdr.WriteXDROpaque(buf, s.handleFor(n))
	_ = xdr.WriteBool(buf, true) // post_op_attr present
	encodeFattr3(buf, n)
	writeWccDataAbsent(buf)
	return rpc.Success, buf.Bytes()
}

func (s *Server) nfsRemove(r *bytes.Reader, isDir bool) (uint32, []byte) {
	dirHandle, name, err := decodeHandleAndName(r)
	if err != nil {
		return rpc.GarbageArgs, nil
	}
	dir := s.handles[string(dirHandle)]
	if dir == nil || !dir.isDir {
		return rpc.Success, statusOnly(wire.NFS3ErrNotDir)
	}
	target, ok := dir.children[name]
	if !ok {
		return rpc.Success, statusOnly(wire.NFS3ErrNoEnt)
	}
	if isDir && len(target.children) > 0 {
		return rpc.Success, statusOnly(wire.NFS3ErrNotEmpty)
	}
	delete(dir.children, name)
	buf := new(bytes.Buffer)
	_ = xdr.WriteUint32(buf, wire.NFS3OK)
	writeWccDataAbsent(buf)
	return rpc.Success, buf.Bytes()
}

func (s *Server) nfsRename(r *bytes.Reader) (uint32, []byte) {
	fromDirH, fromName, err := decodeHandleAndName(r)
	if err != nil {
		return rpc.GarbageArgs, nil
	}
	toDirH, toName, err := decodeHandleAndName(r)
	if err != nil {
		return rpc.GarbageArgs, nil
	}
	fromDir := s.handles[string(fromDirH)]
	toDir := s.handles[string(toDirH)]
	if fromDir == nil || toDir == nil {
		return rpc.Success, statusOnly(wire.NFS3ErrStale)
	}
	n, ok := fromDir.children[fromName]
	if !ok {
		return rpc.Success, statusOnly(wire.NFS3ErrNoEnt)
	}
	delete(fromDir.children, fromName)
	n.name = toName
	toDir.children[toName] = n
	buf := new(bytes.Buffer)
	_ = xdr.WriteUint32(buf, wire.NFS3OK)
	writeWccDataAbsent(buf)
	writeWccDataAbsent(buf)
	return rpc.Success, buf.Bytes()
}

func (s *Server) nfsRead(r *bytes.Reader) (uint32, []byte) {
	h, err := xdr.DecodeOpaque(r)
	if err != nil {
		return rpc.GarbageArgs, nil
	}
	offset, err := xdr.DecodeUint64(r)
	if err != nil {
		return rpc.GarbageArgs, nil
	}
	count, err := xdr.DecodeUint32(r)
	if err != nil {
		return rpc.GarbageArgs, nil
	}
	n := s.handles[string(h)]
	if n == nil || n.isDir {
		return rpc.Success, statusOnly(wire.NFS3ErrIsDir)
	}
	start := int(offset)
	if start > len(n.data) {
		start = len(n.data)
	}
	end := start + int(count)
	if end > len(n.data) {
		end = len(n.data)
	}
	chunk := n.data[start:end]
	eof := end >= len(n.data)

	buf := new(bytes.Buffer)
	_ = xdr.WriteUint32(buf, wire.NFS3OK)
	writePostOpAttrAbsent(buf)
	_ = xdr.WriteUint32(buf, uint32(len(chunk)))
	_ = xdr.WriteBool(buf, eof)
	_ = xdr.WriteXDROpaque(buf, chunk)
	return rpc.Success, buf.Bytes()
}

func (s *Server) nfsWrite(r *bytes.Reader) (uint32, []byte) {
	h, err := xdr.DecodeOpaque(r)
	if err != nil {
		return rpc.GarbageArgs, nil
	}
	offset, err := xdr.DecodeUint64(r)
	if err != nil {
		return rpc.GarbageArgs, nil
	}
	if _, err := xdr.DecodeUint32(r); err != nil { // count (redundant with opaque length)
		return rpc.GarbageArgs, nil
	}
	if _, err := xdr.DecodeUint32(r); err != nil { // stable_how
		return rpc.GarbageArgs, nil
	}
	data, err := xdr.DecodeOpaque(r)
	if err != nil {
		return rpc.GarbageArgs, nil
	}
	n := s.handles[string(h)]
	if n == nil || n.isDir {
		return rpc.Success, statusOnly(wire.NFS3ErrIsDir)
	}
	end := int(offset) + len(data)
	if end > len(n.data) {
		grown := make([]byte, end)
		copy(grown, n.data)
		n.data = grown
	}
	copy(n.data[offset:], data)

	buf := new(bytes.Buffer)
	_ = xdr.WriteUint32(buf, wire.NFS3OK)
	writeWccDataAbsent(buf)
	_ = xdr.WriteUint32(buf, uint32(len(data)))
	return rpc.Success, buf.Bytes()
}

func (s *Server) nfsCommit(r *bytes.Reader) (uint32, []byte) {
	if _, err := xdr.DecodeOpaque(r); err != nil {
		return rpc.GarbageArgs, nil
	}
	buf := new(bytes.Buffer)
	_ = xdr.WriteUint32(buf, wire.NFS3OK)
	writeWccDataAbsent(buf)
	return rpc.Success, buf.Bytes()
}

func (s *Server) nfsReaddirplus(r *bytes.Reader) (uint32, []byte) {
	h, err := xdr.DecodeOpaque(r)
	if err != nil {
		return rpc.GarbageArgs, nil
	}
	dir := s.handles[string(h)]
	if dir == nil || !dir.isDir {
		return rpc.Success, statusOnly(wire.NFS3ErrNotDir)
	}

	buf := new(bytes.Buffer)
	_ = xdr.WriteUint32(buf, wire.NFS3OK)
	writePostOpAttrAbsent(buf)
	_ = xdr.WriteXDROpaque(buf, make([]byte, 8)) // cookieverf

	names := sortedNames(dir.children)
	var fileID uint64
	for _, name := range names {
		child := dir.children[name]
		fileID++
		_ = xdr.WriteBool(buf, true)
		_ = xdr.WriteUint64(buf, fileID)
		_ = xdr.WriteXDRString(buf, name)
		_ = xdr.WriteUint64(buf, fileID) // cookie
		_ = xdr.WriteBool(buf, true)     // name_attributes present
		encodeFattr3(buf, child)
		_ = xdr.WriteBool(buf, true) // name_handle present
		_ = xdr.WriteXDROpaque(buf, s.handleFor(child))
	}
	_ = xdr.WriteBool(buf, false) // end of entry list
	_ = xdr.WriteBool(buf, true)  // eof: this fake never paginates
	return rpc.Success, buf.Bytes()
}

func (s *Server) nfsReaddir(r *bytes.Reader) (uint32, []byte) {
	h, err := xdr.DecodeOpaque(r)
	if err != nil {
		return rpc.GarbageArgs, nil
	}
	dir := s.handles[string(h)]
	if dir == nil || !dir.isDir {
		return rpc.Success, statusOnly(wire.NFS3ErrNotDir)
	}

	buf := new(bytes.Buffer)
	_ = xdr.WriteUint32(buf, wire.NFS3OK)
	writePostOpAttrAbsent(buf)
	_ = xdr.WriteXDROpaque(buf, make([]byte, 8))

	names := sortedNames(dir.children)
	var fileID uint64
	for _, name := range names {
		fileID++
		_ = xdr.WriteBool(buf, true)
		_ = xdr.WriteUint64(buf, fileID)
		_ = xdr.WriteXDRString(buf, name)
		_ = xdr.WriteUint64(buf, fileID)
	}
	_ = xdr.WriteBool(buf, false)
	_ = xdr.WriteBool(buf, true)
	return rpc.Success, buf.Bytes()
}

func sortedNames(children map[string]*node) []string {
	names := make([]string, 0, len(children))
	for name := range children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
