package nfsclient

import (
	"os"
	"os/user"
	"strconv"
	"time"

	"github.com/Wazzaps/ampm/internal/protocol/rpc"
)

// rpcAuth builds the AUTH_UNIX credential ampm presents with every
// call. The spec's ambient-trust model (spec.md §1 Non-goals: no
// authentication/authorization) means this is taken at face value by
// the server; ampm still sends the real calling identity so ordinary
// NFS permission bits behave as expected.
type rpcAuth struct {
	hostname string
	uid      uint32
	gid      uint32
	gids     []uint32
}

func newRPCAuth() *rpcAuth {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	a := &rpcAuth{hostname: hostname, uid: 0, gid: 0}

	if u, err := user.Current(); err == nil {
		if uid, err := strconv.Atoi(u.Uid); err == nil {
			a.uid = uint32(uid)
		}
		if gid, err := strconv.Atoi(u.Gid); err == nil {
			a.gid = uint32(gid)
		}
		if gidStrs, err := u.GroupIds(); err == nil {
			for _, g := range gidStrs {
				if gid, err := strconv.Atoi(g); err == nil {
					a.gids = append(a.gids, uint32(gid))
				}
			}
		}
	}

	return a
}

func (a *rpcAuth) unix() *rpc.UnixAuth {
	return &rpc.UnixAuth{
		Stamp:       uint32(time.Now().Unix()),
		MachineName: a.hostname,
		UID:         a.uid,
		GID:         a.gid,
		GIDs:        a.gids,
	}
}
