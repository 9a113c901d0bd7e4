// Package remoterm implements `ampm remote-rm`.
package remoterm

import (
	"context"
	"fmt"

	"github.com/Wazzaps/ampm/cmd/ampm/cmdutil"
	"github.com/Wazzaps/ampm/pkg/apperr"
	"github.com/Wazzaps/ampm/pkg/query"
	"github.com/spf13/cobra"
)

var confirmed bool

// Cmd is the `ampm remote-rm` command.
var Cmd = &cobra.Command{
	Use:   "remote-rm <type>:<hash>",
	Short: "Permanently remove an artifact from the remote repository",
	Args:  cobra.ExactArgs(1),
	RunE:  run,
}

func init() {
	Cmd.Flags().BoolVar(&confirmed, "i-realise-this-may-break-other-peoples-builds-in-the-future", false,
		"required acknowledgement: removing a remote artifact can break any build still depending on it")
}

func run(cmd *cobra.Command, args []string) error {
	if !confirmed {
		return cmdutil.HandleError(&apperr.ValidationError{
			Field:  "i-realise-this-may-break-other-peoples-builds-in-the-future",
			Reason: "pass this flag to confirm you understand that removing a published artifact can break other people's builds",
		})
	}

	q, err := query.Parse(args[0], nil)
	if err != nil {
		return cmdutil.HandleError(err)
	}

	group, err := cmdutil.OpenGroup()
	if err != nil {
		return cmdutil.HandleError(err)
	}
	if group.Remote == nil {
		return cmdutil.HandleError(&apperr.ValidationError{Field: "server", Reason: "remote-rm requires a remote repository"})
	}

	candidate, err := group.LookupSingle(context.Background(), q)
	if err != nil {
		return cmdutil.HandleError(err)
	}

	if err := group.Remote.RemoveArtifact(context.Background(), candidate.Metadata, candidate.Hash); err != nil {
		return cmdutil.HandleError(err)
	}

	fmt.Printf("removed %s:%s\n", candidate.Metadata.Type, candidate.Hash)
	return nil
}
