// Package get implements `ampm get`.
package get

import (
	"context"
	"fmt"

	"github.com/Wazzaps/ampm/cmd/ampm/cmdutil"
	"github.com/Wazzaps/ampm/pkg/query"
	"github.com/spf13/cobra"
)

var attrFlags []string

// Cmd is the `ampm get` command.
var Cmd = &cobra.Command{
	Use:   "get <type>[:<hash>]",
	Short: "Resolve an artifact query and print its local path, downloading it if necessary",
	Args:  cobra.ExactArgs(1),
	RunE:  run,
}

func init() {
	Cmd.Flags().StringArrayVarP(&attrFlags, "attr", "a", nil, "attribute filter key=value (repeatable)")
}

func run(cmd *cobra.Command, args []string) error {
	attr, err := cmdutil.ParseKV(attrFlags)
	if err != nil {
		return cmdutil.HandleError(err)
	}

	q, err := query.Parse(args[0], attr)
	if err != nil {
		return cmdutil.HandleError(err)
	}

	group, err := cmdutil.OpenGroup()
	if err != nil {
		return cmdutil.HandleError(err)
	}

	path, _, err := group.GetSingle(context.Background(), q)
	if err != nil {
		return cmdutil.HandleError(err)
	}

	fmt.Println(path)
	return nil
}
