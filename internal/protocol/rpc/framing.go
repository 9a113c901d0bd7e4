package rpc

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxRecordSize guards against a misbehaving server claiming an
// absurd fragment length and exhausting memory.
const maxRecordSize = 64 << 20 // 64 MiB

// ReadRecord reads one complete RPC message from conn, reassembling it
// from one or more record-marked fragments (RFC 5531 Section 11). Each
// fragment is a 4-byte big-endian header (high bit = last fragment,
// low 31 bits = fragment length) followed by that many bytes.
func ReadRecord(r io.Reader) ([]byte, error) {
	var out []byte
	for {
		var header [4]byte
		if _, err := io.ReadFull(r, header[:]); err != nil {
			return nil, fmt.Errorf("read fragment header: %w", err)
		}
		raw := binary.BigEndian.Uint32(header[:])
		last := raw&0x80000000 != 0
		length := raw & 0x7FFFFFFF
		if length > maxRecordSize {
			return nil, fmt.Errorf("fragment length %d exceeds maximum %d", length, maxRecordSize)
		}

		frag := make([]byte, length)
		if _, err := io.ReadFull(r, frag); err != nil {
			return nil, fmt.Errorf("read fragment body: %w", err)
		}
		out = append(out, frag...)

		if last {
			return out, nil
		}
	}
}
