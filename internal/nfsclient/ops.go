package nfsclient

import (
	"bytes"

	"github.com/Wazzaps/ampm/internal/nfsclient/wire"
	"github.com/Wazzaps/ampm/internal/protocol/xdr"
)

// ============================================================================
// Shared XDR helpers for NFS v3 compound structures (RFC 1813 §2).
// ============================================================================

func writeDirOpArgs(buf *bytes.Buffer, dir wire.FileHandle, name string) error {
	if err := xdr.WriteXDROpaque(buf, dir); err != nil {
		return err
	}
	return xdr.WriteXDRString(buf, name)
}

// writeDefaultSAttr writes an sattr3 with only the mode field present,
// set to 0777 — every CREATE/MKDIR/SYMLINK in ampm uses this mode per
// spec.md §4.2/§4.6 ("CREATE(UNCHECKED, mode=0777)", "MKDIR(mode=0777)").
func writeDefaultSAttr(buf *bytes.Buffer) error {
	if err := xdr.WriteBool(buf, true); err != nil { // mode present
		return err
	}
	if err := xdr.WriteUint32(buf, 0o777); err != nil {
		return err
	}
	for i := 0; i < 3; i++ { // uid, gid, size absent
		if err := xdr.WriteBool(buf, false); err != nil {
			return err
		}
	}
	// atime and mtime set_mtime discriminants (DONT_CHANGE = 0)
	if err := xdr.WriteUint32(buf, 0); err != nil {
		return err
	}
	if err := xdr.WriteUint32(buf, 0); err != nil {
		return err
	}
	return nil
}

// readPostOpAttr decodes a post_op_attr (bool + optional fattr3),
// returning nil when absent.
func readPostOpAttr(r *bytes.Reader) (*wire.FileAttr, error) {
	present, err := xdr.DecodeBool(r)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	rest := make([]byte, r.Len())
	n, _ := r.Read(rest)
	attr, consumed, err := wire.DecodeFileAttr(rest[:n])
	if err != nil {
		return nil, err
	}
	// rewind the reader to just past the consumed fattr3 bytes
	_, err = r.Seek(-int64(n-consumed), 1)
	if err != nil {
		return nil, err
	}
	return attr, nil
}

// readPostOpFh decodes a post_op_fh3 (bool + optional nfs_fh3).
func readPostOpFh(r *bytes.Reader) (wire.FileHandle, error) {
	present, err := xdr.DecodeBool(r)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	return xdr.DecodeOpaque(r)
}

// skipWccData consumes a wcc_data (pre_op_attr + post_op_attr); ampm
// does not use weak cache consistency data for anything beyond
// RFC-mandated decoding symmetry.
func skipWccData(r *bytes.Reader) error {
	present, err := xdr.DecodeBool(r)
	if err != nil {
		return err
	}
	if present {
		if _, err := xdr.DecodeUint64(r); err != nil { // size
			return err
		}
		if _, err := xdr.DecodeUint32(r); err != nil { // mtime.seconds
			return err
		}
		if _, err := xdr.DecodeUint32(r); err != nil { // mtime.nseconds
			return err
		}
		if _, err := xdr.DecodeUint32(r); err != nil { // ctime.seconds
			return err
		}
		if _, err := xdr.DecodeUint32(r); err != nil { // ctime.nseconds
			return err
		}
	}
	_, err = readPostOpAttr(r)
	return err
}

// ============================================================================
// LOOKUP (RFC 1813 §3.3.3)
// ============================================================================

// lookup resolves name inside dir, returning its handle and attributes.
func (c *Client) lookup(dir wire.FileHandle, name string) (wire.FileHandle, *wire.FileAttr, uint32, error) {
	buf := new(bytes.Buffer)
	if err := writeDirOpArgs(buf, dir, name); err != nil {
		return nil, nil, 0, err
	}

	body, err := c.nfsCall(wire.NFSProcLookup, buf.Bytes())
	if err != nil {
		return nil, nil, 0, err
	}

	r := bytes.NewReader(body)
	status, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, nil, 0, err
	}
	if status != wire.NFS3OK {
		return nil, nil, status, nil
	}

	handle, err := xdr.DecodeOpaque(r)
	if err != nil {
		return nil, nil, 0, err
	}
	attr, err := readPostOpAttr(r)
	if err != nil {
		return nil, nil, 0, err
	}
	return wire.FileHandle(handle), attr, status, nil
}

// ============================================================================
// GETATTR (RFC 1813 §3.3.1)
// ============================================================================

func (c *Client) getattr(handle wire.FileHandle) (*wire.FileAttr, uint32, error) {
	buf := new(bytes.Buffer)
	if err := xdr.WriteXDROpaque(buf, handle); err != nil {
		return nil, 0, err
	}

	body, err := c.nfsCall(wire.NFSProcGetAttr, buf.Bytes())
	if err != nil {
		return nil, 0, err
	}

	r := bytes.NewReader(body)
	status, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, 0, err
	}
	if status != wire.NFS3OK {
		return nil, status, nil
	}

	rest := make([]byte, r.Len())
	n, _ := r.Read(rest)
	attr, _, err := wire.DecodeFileAttr(rest[:n])
	if err != nil {
		return nil, 0, err
	}
	return attr, status, nil
}

// ============================================================================
// CREATE (RFC 1813 §3.3.8), MKDIR (§3.3.9)
// ============================================================================

func (c *Client) createUnchecked(dir wire.FileHandle, name string) (wire.FileHandle, uint32, error) {
	buf := new(bytes.Buffer)
	if err := writeDirOpArgs(buf, dir, name); err != nil {
		return nil, 0, err
	}
	if err := xdr.WriteUint32(buf, wire.CreateModeUnchecked); err != nil {
		return nil, 0, err
	}
	if err := writeDefaultSAttr(buf); err != nil {
		return nil, 0, err
	}

	body, err := c.nfsCall(wire.NFSProcCreate, buf.Bytes())
	if err != nil {
		return nil, 0, err
	}
	return decodeDirOpResult(body)
}

func (c *Client) mkdir(dir wire.FileHandle, name string) (wire.FileHandle, uint32, error) {
	buf := new(bytes.Buffer)
	if err := writeDirOpArgs(buf, dir, name); err != nil {
		return nil, 0, err
	}
	if err := writeDefaultSAttr(buf); err != nil {
		return nil, 0, err
	}

	body, err := c.nfsCall(wire.NFSProcMkdir, buf.Bytes())
	if err != nil {
		return nil, 0, err
	}
	return decodeDirOpResult(body)
}

// decodeDirOpResult decodes the common CREATE3res/MKDIR3res/SYMLINK3res
// shape: status; if OK, post_op_fh3 handle + post_op_attr + wcc_data.
func decodeDirOpResult(body []byte) (wire.FileHandle, uint32, error) {
	r := bytes.NewReader(body)
	status, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, 0, err
	}
	if status != wire.NFS3OK {
		return nil, status, nil
	}

	handle, err := readPostOpFh(r)
	if err != nil {
		return nil, 0, err
	}
	if _, err := readPostOpAttr(r); err != nil {
		return nil, 0, err
	}
	if err := skipWccData(r); err != nil {
		return nil, 0, err
	}
	return handle, status, nil
}

// ============================================================================
// REMOVE (§3.3.12), RMDIR (§3.3.13)
// ============================================================================

func (c *Client) remove(dir wire.FileHandle, name string) (uint32, error) {
	buf := new(bytes.Buffer)
	if err := writeDirOpArgs(buf, dir, name); err != nil {
		return 0, err
	}
	body, err := c.nfsCall(wire.NFSProcRemove, buf.Bytes())
	if err != nil {
		return 0, err
	}
	return decodeStatusAndWcc(body)
}

func (c *Client) rmdir(dir wire.FileHandle, name string) (uint32, error) {
	buf := new(bytes.Buffer)
	if err := writeDirOpArgs(buf, dir, name); err != nil {
		return 0, err
	}
	body, err := c.nfsCall(wire.NFSProcRmdir, buf.Bytes())
	if err != nil {
		return 0, err
	}
	return decodeStatusAndWcc(body)
}

func decodeStatusAndWcc(body []byte) (uint32, error) {
	r := bytes.NewReader(body)
	status, err := xdr.DecodeUint32(r)
	if err != nil {
		return 0, err
	}
	if status != wire.NFS3OK {
		return status, nil
	}
	return status, skipWccData(r)
}

// ============================================================================
// RENAME (§3.3.14)
// ============================================================================

func (c *Client) rename(fromDir wire.FileHandle, fromName string, toDir wire.FileHandle, toName string) (uint32, error) {
	buf := new(bytes.Buffer)
	if err := writeDirOpArgs(buf, fromDir, fromName); err != nil {
		return 0, err
	}
	if err := writeDirOpArgs(buf, toDir, toName); err != nil {
		return 0, err
	}
	body, err := c.nfsCall(wire.NFSProcRename, buf.Bytes())
	if err != nil {
		return 0, err
	}
	r := bytes.NewReader(body)
	status, err := xdr.DecodeUint32(r)
	if err != nil {
		return 0, err
	}
	if status != wire.NFS3OK {
		return status, nil
	}
	if err := skipWccData(r); err != nil { // fromdir_wcc
		return 0, err
	}
	return status, skipWccData(r) // todir_wcc
}

// ============================================================================
// SYMLINK (§3.3.10), READLINK (§3.3.5)
// ============================================================================

func (c *Client) symlink(dir wire.FileHandle, name, target string) (uint32, error) {
	buf := new(bytes.Buffer)
	if err := writeDirOpArgs(buf, dir, name); err != nil {
		return 0, err
	}
	if err := writeDefaultSAttr(buf); err != nil {
		return 0, err
	}
	if err := xdr.WriteXDRString(buf, target); err != nil {
		return 0, err
	}
	body, err := c.nfsCall(wire.NFSProcSymlink, buf.Bytes())
	if err != nil {
		return 0, err
	}
	_, status, err := decodeDirOpResult(body)
	return status, err
}

func (c *Client) readlink(handle wire.FileHandle) (string, uint32, error) {
	buf := new(bytes.Buffer)
	if err := xdr.WriteXDROpaque(buf, handle); err != nil {
		return "", 0, err
	}
	body, err := c.nfsCall(wire.NFSProcReadlink, buf.Bytes())
	if err != nil {
		return "", 0, err
	}

	r := bytes.NewReader(body)
	status, err := xdr.DecodeUint32(r)
	if err != nil {
		return "", 0, err
	}
	if status != wire.NFS3OK {
		return "", status, nil
	}
	if _, err := readPostOpAttr(r); err != nil {
		return "", 0, err
	}
	target, err := xdr.DecodeString(r)
	if err != nil {
		return "", 0, err
	}
	return target, status, nil
}

// ============================================================================
// READ (§3.3.6), WRITE (§3.3.7), COMMIT (§3.3.21)
// ============================================================================

// stableUnstable is the WRITE stable_how discriminant ampm always
// uses (spec.md §4.3: "UNSTABLE writes followed by a final COMMIT").
const stableUnstable = uint32(0)

func (c *Client) read(handle wire.FileHandle, offset uint64, count uint32) (data []byte, eof bool, status uint32, err error) {
	buf := new(bytes.Buffer)
	if err := xdr.WriteXDROpaque(buf, handle); err != nil {
		return nil, false, 0, err
	}
	if err := xdr.WriteUint64(buf, offset); err != nil {
		return nil, false, 0, err
	}
	if err := xdr.WriteUint32(buf, count); err != nil {
		return nil, false, 0, err
	}

	body, err := c.nfsCall(wire.NFSProcRead, buf.Bytes())
	if err != nil {
		return nil, false, 0, err
	}

	r := bytes.NewReader(body)
	status, err = xdr.DecodeUint32(r)
	if err != nil {
		return nil, false, 0, err
	}
	if status != wire.NFS3OK {
		return nil, false, status, nil
	}
	if _, err := readPostOpAttr(r); err != nil {
		return nil, false, 0, err
	}
	if _, err := xdr.DecodeUint32(r); err != nil { // count (redundant w/ data length)
		return nil, false, 0, err
	}
	eof, err = xdr.DecodeBool(r)
	if err != nil {
		return nil, false, 0, err
	}
	data, err = xdr.DecodeOpaque(r)
	if err != nil {
		return nil, false, 0, err
	}
	return data, eof, status, nil
}

func (c *Client) write(handle wire.FileHandle, offset uint64, data []byte) (written uint32, status uint32, err error) {
	buf := new(bytes.Buffer)
	if err := xdr.WriteXDROpaque(buf, handle); err != nil {
		return 0, 0, err
	}
	if err := xdr.WriteUint64(buf, offset); err != nil {
		return 0, 0, err
	}
	if err := xdr.WriteUint32(buf, uint32(len(data))); err != nil {
		return 0, 0, err
	}
	if err := xdr.WriteUint32(buf, stableUnstable); err != nil {
		return 0, 0, err
	}
	if err := xdr.WriteXDROpaque(buf, data); err != nil {
		return 0, 0, err
	}

	body, err := c.nfsCall(wire.NFSProcWrite, buf.Bytes())
	if err != nil {
		return 0, 0, err
	}

	r := bytes.NewReader(body)
	status, err = xdr.DecodeUint32(r)
	if err != nil {
		return 0, 0, err
	}
	if status != wire.NFS3OK {
		return 0, status, nil
	}
	if err := skipWccData(r); err != nil {
		return 0, 0, err
	}
	written, err = xdr.DecodeUint32(r)
	if err != nil {
		return 0, 0, err
	}
	return written, status, nil
}

func (c *Client) commit(handle wire.FileHandle) (uint32, error) {
	buf := new(bytes.Buffer)
	if err := xdr.WriteXDROpaque(buf, handle); err != nil {
		return 0, err
	}
	if err := xdr.WriteUint64(buf, 0); err != nil { // offset
		return 0, err
	}
	if err := xdr.WriteUint32(buf, 0); err != nil { // count=0 => whole file
		return 0, err
	}

	body, err := c.nfsCall(wire.NFSProcCommit, buf.Bytes())
	if err != nil {
		return 0, err
	}
	return decodeStatusAndWcc(body)
}

// ============================================================================
// READDIR (§3.3.16), READDIRPLUS (§3.3.17)
// ============================================================================

// DirEntry is one entry returned by a directory listing.
type DirEntry struct {
	Name   string
	Handle wire.FileHandle // only set by READDIRPLUS
	Attr   *wire.FileAttr  // only set by READDIRPLUS
}

func (c *Client) readdirplus(dir wire.FileHandle, cookie uint64, cookieverf [8]byte) (entries []DirEntry, eof bool, newVerf [8]byte, status uint32, err error) {
	buf := new(bytes.Buffer)
	if err := xdr.WriteXDROpaque(buf, dir); err != nil {
		return nil, false, newVerf, 0, err
	}
	if err := xdr.WriteUint64(buf, cookie); err != nil {
		return nil, false, newVerf, 0, err
	}
	if err := xdr.WriteXDROpaque(buf, cookieverf[:]); err != nil {
		return nil, false, newVerf, 0, err
	}
	if err := xdr.WriteUint32(buf, 4096); err != nil { // dircount
		return nil, false, newVerf, 0, err
	}
	if err := xdr.WriteUint32(buf, 32*1024); err != nil { // maxcount
		return nil, false, newVerf, 0, err
	}

	body, err := c.nfsCall(wire.NFSProcReaddirplus, buf.Bytes())
	if err != nil {
		return nil, false, newVerf, 0, err
	}

	r := bytes.NewReader(body)
	status, err = xdr.DecodeUint32(r)
	if err != nil {
		return nil, false, newVerf, 0, err
	}
	if status != wire.NFS3OK {
		return nil, false, newVerf, status, nil
	}
	if _, err := readPostOpAttr(r); err != nil {
		return nil, false, newVerf, 0, err
	}
	verf, err := xdr.DecodeOpaque(r)
	if err != nil {
		return nil, false, newVerf, 0, err
	}
	copy(newVerf[:], verf)

	for {
		hasNext, err := xdr.DecodeBool(r)
		if err != nil {
			return nil, false, newVerf, 0, err
		}
		if !hasNext {
			break
		}
		_, err = xdr.DecodeUint64(r) // fileid
		if err != nil {
			return nil, false, newVerf, 0, err
		}
		name, err := xdr.DecodeString(r)
		if err != nil {
			return nil, false, newVerf, 0, err
		}
		cookie, err := xdr.DecodeUint64(r)
		if err != nil {
			return nil, false, newVerf, 0, err
		}
		_ = cookie
		attr, err := readPostOpAttr(r)
		if err != nil {
			return nil, false, newVerf, 0, err
		}
		handle, err := readPostOpFh(r)
		if err != nil {
			return nil, false, newVerf, 0, err
		}
		entries = append(entries, DirEntry{Name: name, Handle: handle, Attr: attr})
	}

	eof, err = xdr.DecodeBool(r)
	if err != nil {
		return nil, false, newVerf, 0, err
	}
	return entries, eof, newVerf, status, nil
}

func (c *Client) readdir(dir wire.FileHandle, cookie uint64, cookieverf [8]byte) (entries []DirEntry, eof bool, newVerf [8]byte, status uint32, err error) {
	buf := new(bytes.Buffer)
	if err := xdr.WriteXDROpaque(buf, dir); err != nil {
		return nil, false, newVerf, 0, err
	}
	if err := xdr.WriteUint64(buf, cookie); err != nil {
		return nil, false, newVerf, 0, err
	}
	if err := xdr.WriteXDROpaque(buf, cookieverf[:]); err != nil {
		return nil, false, newVerf, 0, err
	}
	if err := xdr.WriteUint32(buf, 8192); err != nil { // count
		return nil, false, newVerf, 0, err
	}

	body, err := c.nfsCall(wire.NFSProcReaddir, buf.Bytes())
	if err != nil {
		return nil, false, newVerf, 0, err
	}

	r := bytes.NewReader(body)
	status, err = xdr.DecodeUint32(r)
	if err != nil {
		return nil, false, newVerf, 0, err
	}
	if status != wire.NFS3OK {
		return nil, false, newVerf, status, nil
	}
	if _, err := readPostOpAttr(r); err != nil {
		return nil, false, newVerf, 0, err
	}
	verf, err := xdr.DecodeOpaque(r)
	if err != nil {
		return nil, false, newVerf, 0, err
	}
	copy(newVerf[:], verf)

	for {
		hasNext, err := xdr.DecodeBool(r)
		if err != nil {
			return nil, false, newVerf, 0, err
		}
		if !hasNext {
			break
		}
		if _, err := xdr.DecodeUint64(r); err != nil { // fileid
			return nil, false, newVerf, 0, err
		}
		name, err := xdr.DecodeString(r)
		if err != nil {
			return nil, false, newVerf, 0, err
		}
		if _, err := xdr.DecodeUint64(r); err != nil { // cookie
			return nil, false, newVerf, 0, err
		}
		entries = append(entries, DirEntry{Name: name})
	}

	eof, err = xdr.DecodeBool(r)
	if err != nil {
		return nil, false, newVerf, 0, err
	}
	return entries, eof, newVerf, status, nil
}
