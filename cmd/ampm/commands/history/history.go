// Package history implements the supplemented `ampm history` command:
// the original Python tooling never exposed a way to inspect a
// metadata edit's previous revision, but RemoteRepo.EditArtifact
// already rotates the prior `.toml` to `.toml.bak` before writing the
// new one (mirroring NfsRepo.edit_artifact's publish sequence), so the
// previous revision is sitting on the remote for the taking.
package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/Wazzaps/ampm/cmd/ampm/cmdutil"
	"github.com/Wazzaps/ampm/pkg/apperr"
	"github.com/Wazzaps/ampm/pkg/query"
	"github.com/spf13/cobra"
)

// Cmd is the `ampm history` command.
var Cmd = &cobra.Command{
	Use:   "history <type>:<hash>",
	Short: "Print the previous metadata revision (.toml.bak) left by the last edit",
	Args:  cobra.ExactArgs(1),
	RunE:  run,
}

func run(cmd *cobra.Command, args []string) error {
	q, err := query.Parse(args[0], nil)
	if err != nil {
		return cmdutil.HandleError(err)
	}
	if !q.IsExact() {
		return cmdutil.HandleError(&apperr.ValidationError{Field: "identifier", Reason: "history requires an exact type:hash identifier"})
	}

	group, err := cmdutil.OpenGroup()
	if err != nil {
		return cmdutil.HandleError(err)
	}
	if group.Remote == nil {
		return cmdutil.HandleError(&apperr.ValidationError{Field: "server", Reason: "history requires a remote repository"})
	}

	ctx := context.Background()
	if err := group.Remote.Client.Connect(ctx); err != nil {
		return cmdutil.HandleError(&apperr.ConnectionError{Endpoint: group.Remote.Host, Err: err})
	}
	defer group.Remote.Client.Close()

	var buf strings.Builder
	bakPath := group.Remote.MetadataPath(q.Type, q.Hash, ".toml.bak")
	err = group.Remote.Client.ReadStream(ctx, bakPath, func(chunk []byte) error {
		buf.Write(chunk)
		return nil
	})
	if err != nil {
		return cmdutil.HandleError(&apperr.QueryNotFoundError{Query: q.AsAppErr()})
	}

	fmt.Print(buf.String())
	return nil
}
