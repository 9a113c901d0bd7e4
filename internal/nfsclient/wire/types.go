package wire

import (
	"bytes"

	xdr2 "github.com/rasky/go-xdr/xdr2"
)

// TimeVal is an NFS v3 time value (nfstime3, RFC 1813 Section 2.6).
type TimeVal struct {
	Seconds  uint32
	Nseconds uint32
}

// FileAttr is the NFS v3 fattr3 structure (RFC 1813 Section 2.5),
// returned inline by most successful replies.
type FileAttr struct {
	Type   uint32
	Mode   uint32
	Nlink  uint32
	UID    uint32
	GID    uint32
	Size   uint64
	Used   uint64
	Rdev   [2]uint32
	Fsid   uint64
	Fileid uint64
	Atime  TimeVal
	Mtime  TimeVal
	Ctime  TimeVal
}

// IsDir reports whether the attributes describe a directory.
func (f *FileAttr) IsDir() bool { return f.Type == NF3Dir }

// IsRegular reports whether the attributes describe a regular file.
func (f *FileAttr) IsRegular() bool { return f.Type == NF3Reg }

// IsSymlink reports whether the attributes describe a symbolic link.
func (f *FileAttr) IsSymlink() bool { return f.Type == NF3Lnk }

// WccAttr is the pre-operation subset of weak cache consistency data
// (wcc_attr, RFC 1813 Section 2.6).
type WccAttr struct {
	Size  uint64
	Mtime TimeVal
	Ctime TimeVal
}

// DecodeFileAttr decodes a fattr3 from its fixed-shape XDR encoding.
// FileAttr has no variable-length fields, so it is a good fit for
// go-xdr's reflection-based Unmarshal — the same split the teacher
// uses (hand-rolled encode for variable-length calls, go-xdr for
// simple fixed-shape decode targets).
func DecodeFileAttr(body []byte) (*FileAttr, int, error) {
	var attr FileAttr
	n, err := xdr2.Unmarshal(bytes.NewReader(body), &attr)
	if err != nil {
		return nil, 0, err
	}
	return &attr, n, nil
}

// FileHandle is an opaque NFS v3 file handle (nfs_fh3, up to 64 bytes).
type FileHandle []byte
