// Package env implements `ampm env`.
package env

import (
	"context"
	"fmt"
	"os"

	"github.com/Wazzaps/ampm/cmd/ampm/cmdutil"
	"github.com/Wazzaps/ampm/pkg/query"
	"github.com/spf13/cobra"
)

// Cmd is the `ampm env` command.
var Cmd = &cobra.Command{
	Use:   "env <type>:<hash>",
	Short: "Print an artifact's generated .env file contents",
	Args:  cobra.ExactArgs(1),
	RunE:  run,
}

func run(cmd *cobra.Command, args []string) error {
	q, err := query.Parse(args[0], nil)
	if err != nil {
		return cmdutil.HandleError(err)
	}

	group, err := cmdutil.OpenGroup()
	if err != nil {
		return cmdutil.HandleError(err)
	}

	if _, _, err := group.GetSingle(context.Background(), q); err != nil {
		return cmdutil.HandleError(err)
	}

	candidate, err := group.LookupSingle(context.Background(), q)
	if err != nil {
		return cmdutil.HandleError(err)
	}

	data, err := os.ReadFile(group.Local.MetadataPath(candidate.Metadata.Type, candidate.Hash, ".env"))
	if err != nil {
		return cmdutil.HandleError(err)
	}
	fmt.Print(string(data))
	return nil
}
