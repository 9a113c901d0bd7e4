package rpc

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validUnixAuth() *UnixAuth {
	return &UnixAuth{
		Stamp:       12345,
		MachineName: "testhost",
		UID:         1000,
		GID:         1000,
		GIDs:        []uint32{4, 24, 27},
	}
}

func TestBuildCall(t *testing.T) {
	t.Run("SetsLastFragmentBit", func(t *testing.T) {
		msg, err := BuildCall(CallHeader{XID: 0x1, Program: 100003, Version: 3, Proc: 0}, nil)
		require.NoError(t, err)

		fragHeader := binary.BigEndian.Uint32(msg[0:4])
		assert.True(t, fragHeader&0x80000000 != 0)
		assert.Equal(t, uint32(len(msg)-4), fragHeader&0x7FFFFFFF)
	})

	t.Run("EncodesAuthNullWhenNoCredential", func(t *testing.T) {
		msg, err := BuildCall(CallHeader{XID: 0x42, Program: 100005, Version: 3, Proc: 1}, nil)
		require.NoError(t, err)

		// fragment(4) + xid(4) + msgtype(4) + rpcvers(4) + prog(4) + vers(4) + proc(4) = 28
		authFlavor := binary.BigEndian.Uint32(msg[28:32])
		assert.Equal(t, AuthNull, authFlavor)
	})

	t.Run("EncodesAuthUnixCredential", func(t *testing.T) {
		auth := validUnixAuth()
		msg, err := BuildCall(CallHeader{XID: 0x1, Program: 100003, Version: 3, Proc: 1, Auth: auth}, nil)
		require.NoError(t, err)

		authFlavor := binary.BigEndian.Uint32(msg[28:32])
		assert.Equal(t, AuthUnix, authFlavor)
	})

	t.Run("EchoesXID", func(t *testing.T) {
		msg, err := BuildCall(CallHeader{XID: 0xCAFEBABE, Program: 100003, Version: 3, Proc: 0}, nil)
		require.NoError(t, err)
		xid := binary.BigEndian.Uint32(msg[4:8])
		assert.Equal(t, uint32(0xCAFEBABE), xid)
	})

	t.Run("AppendsArgBody", func(t *testing.T) {
		args := []byte{0xDE, 0xAD, 0xBE, 0xEF}
		msg, err := BuildCall(CallHeader{XID: 1, Program: 1, Version: 1, Proc: 1}, args)
		require.NoError(t, err)
		assert.True(t, bytes.HasSuffix(msg, args))
	})
}

func buildSuccessReply(xid uint32, body []byte) []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.BigEndian, xid)
	_ = binary.Write(buf, binary.BigEndian, Reply)
	_ = binary.Write(buf, binary.BigEndian, MsgAccepted)
	_ = binary.Write(buf, binary.BigEndian, AuthNull) // verf flavor
	_ = binary.Write(buf, binary.BigEndian, uint32(0)) // verf len
	_ = binary.Write(buf, binary.BigEndian, Success)
	buf.Write(body)
	return buf.Bytes()
}

func TestParseReply(t *testing.T) {
	t.Run("ParsesSuccessWithBody", func(t *testing.T) {
		body := []byte{0, 0, 0, 1}
		raw := buildSuccessReply(0xABCD, body)

		reply, err := ParseReply(raw)
		require.NoError(t, err)
		assert.Equal(t, uint32(0xABCD), reply.XID)
		assert.Equal(t, Success, reply.Status)
		assert.Equal(t, body, reply.Body)
	})

	t.Run("ParsesProgMismatch", func(t *testing.T) {
		buf := new(bytes.Buffer)
		_ = binary.Write(buf, binary.BigEndian, uint32(1))
		_ = binary.Write(buf, binary.BigEndian, Reply)
		_ = binary.Write(buf, binary.BigEndian, MsgAccepted)
		_ = binary.Write(buf, binary.BigEndian, AuthNull)
		_ = binary.Write(buf, binary.BigEndian, uint32(0))
		_ = binary.Write(buf, binary.BigEndian, ProgMismatch)
		_ = binary.Write(buf, binary.BigEndian, uint32(2))
		_ = binary.Write(buf, binary.BigEndian, uint32(4))

		reply, err := ParseReply(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, ProgMismatch, reply.Status)
		assert.Equal(t, uint32(2), reply.Low)
		assert.Equal(t, uint32(4), reply.High)
	})

	t.Run("RejectsMsgDenied", func(t *testing.T) {
		buf := new(bytes.Buffer)
		_ = binary.Write(buf, binary.BigEndian, uint32(1))
		_ = binary.Write(buf, binary.BigEndian, Reply)
		_ = binary.Write(buf, binary.BigEndian, MsgDenied)

		_, err := ParseReply(buf.Bytes())
		require.Error(t, err)
	})

	t.Run("RejectsNonReplyMessage", func(t *testing.T) {
		buf := new(bytes.Buffer)
		_ = binary.Write(buf, binary.BigEndian, uint32(1))
		_ = binary.Write(buf, binary.BigEndian, Call)

		_, err := ParseReply(buf.Bytes())
		require.Error(t, err)
	})
}

func TestStatusName(t *testing.T) {
	t.Run("KnownStatus", func(t *testing.T) {
		assert.Equal(t, "SUCCESS", StatusName(Success))
		assert.Equal(t, "PROG_MISMATCH", StatusName(ProgMismatch))
	})

	t.Run("UnknownStatusRendersDecimal", func(t *testing.T) {
		assert.Equal(t, "UNKNOWN(99)", StatusName(99))
	})
}

func TestAuthFlavorsUnique(t *testing.T) {
	flavors := []uint32{AuthNull, AuthUnix, AuthShort, AuthDES}
	seen := make(map[uint32]bool)
	for _, f := range flavors {
		assert.False(t, seen[f])
		seen[f] = true
	}
}
