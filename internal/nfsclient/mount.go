package nfsclient

import (
	"bytes"
	"fmt"

	"github.com/Wazzaps/ampm/internal/nfsclient/wire"
	"github.com/Wazzaps/ampm/internal/protocol/xdr"
)

// mnt issues MOUNTPROC3_MNT for exportPath and returns the export's
// root file handle. RFC 1813 Appendix I.
func mnt(mountConn *conn, auth *rpcAuth, exportPath string) (wire.FileHandle, error) {
	buf := new(bytes.Buffer)
	if err := xdr.WriteXDRString(buf, exportPath); err != nil {
		return nil, err
	}

	body, err := mountConn.call(wire.MountProcMnt, auth.unix(), buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("MNT(%q): %w", exportPath, err)
	}

	r := bytes.NewReader(body)
	status, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("decode MNT status: %w", err)
	}
	if status != wire.MountOK {
		return nil, fmt.Errorf("MNT(%q) failed: mount status %d", exportPath, status)
	}

	handle, err := xdr.DecodeOpaque(r)
	if err != nil {
		return nil, fmt.Errorf("decode MNT file handle: %w", err)
	}
	// auth flavors array follows; we don't need it and are done with body.
	return wire.FileHandle(handle), nil
}

// umnt issues MOUNTPROC3_UMNT for exportPath. Best-effort: called only
// during teardown, errors are not fatal to the caller.
func umnt(mountConn *conn, auth *rpcAuth, exportPath string) error {
	buf := new(bytes.Buffer)
	if err := xdr.WriteXDRString(buf, exportPath); err != nil {
		return err
	}
	_, err := mountConn.call(wire.MountProcUmnt, auth.unix(), buf.Bytes())
	return err
}
