package nfsclient

import (
	"bytes"
	"fmt"

	"github.com/Wazzaps/ampm/internal/nfsclient/wire"
	"github.com/Wazzaps/ampm/internal/protocol/xdr"
)

// getport asks the Portmap service reached through pmConn (always TCP
// port 111) for the TCP port that serves (program, version), per spec.md
// §4.1's connection sequence.
func getport(pmConn *conn, program, version uint32) (uint16, error) {
	buf := new(bytes.Buffer)
	if err := xdr.WriteUint32(buf, program); err != nil {
		return 0, err
	}
	if err := xdr.WriteUint32(buf, version); err != nil {
		return 0, err
	}
	if err := xdr.WriteUint32(buf, wire.ProtoTCP); err != nil {
		return 0, err
	}
	if err := xdr.WriteUint32(buf, 0); err != nil { // port (ignored in request)
		return 0, err
	}

	body, err := pmConn.call(wire.PortmapProcGetport, nil, buf.Bytes())
	if err != nil {
		return 0, fmt.Errorf("portmap GETPORT(%d,%d): %w", program, version, err)
	}

	r := bytes.NewReader(body)
	port, err := xdr.DecodeUint32(r)
	if err != nil {
		return 0, fmt.Errorf("decode GETPORT reply: %w", err)
	}
	if port == 0 {
		return 0, fmt.Errorf("portmap has no mapping for program %d version %d", program, version)
	}
	return uint16(port), nil
}
