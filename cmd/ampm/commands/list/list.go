// Package list implements `ampm list`.
package list

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/Wazzaps/ampm/cmd/ampm/cmdutil"
	"github.com/Wazzaps/ampm/internal/cli/output"
	"github.com/Wazzaps/ampm/internal/cli/timeutil"
	"github.com/Wazzaps/ampm/pkg/adapter"
	"github.com/Wazzaps/ampm/pkg/query"
	"github.com/spf13/cobra"
)

var (
	attrFlags []string
	format    string
)

// Cmd is the `ampm list` command.
var Cmd = &cobra.Command{
	Use:   "list [<type>[:<hash>]]",
	Short: "List artifacts matching a type and/or attribute query",
	Args:  cobra.MaximumNArgs(1),
	RunE:  run,
}

func init() {
	Cmd.Flags().StringArrayVarP(&attrFlags, "attr", "a", nil, "attribute filter key=value (repeatable)")
	Cmd.Flags().StringVarP(&format, "format", "f", "pretty", "pretty|json|yaml|short|index-file|index-webpage")
}

func run(cmd *cobra.Command, args []string) error {
	identifier := ""
	if len(args) == 1 {
		identifier = args[0]
	}

	attr, err := cmdutil.ParseKV(attrFlags)
	if err != nil {
		return cmdutil.HandleError(err)
	}

	q, err := query.Parse(identifier, attr)
	if err != nil {
		return cmdutil.HandleError(err)
	}

	group, err := cmdutil.OpenGroup()
	if err != nil {
		return cmdutil.HandleError(err)
	}

	candidates, err := group.Lookup(context.Background(), q)
	if err != nil {
		return cmdutil.HandleError(err)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Hash < candidates[j].Hash })

	switch format {
	case "short":
		for _, c := range candidates {
			fmt.Printf("%s:%s\n", c.Metadata.Type, c.Hash)
		}
		return nil
	case "index-file", "index-webpage":
		return renderIndex(candidates, format == "index-webpage")
	case "pretty", "":
		return printTable(candidates)
	default:
		printer, err := cmdutil.Printer(format)
		if err != nil {
			return cmdutil.HandleError(err)
		}
		return printer.Print(listData(candidates))
	}
}

type row struct {
	Type    string            `json:"type" yaml:"type"`
	Hash    string            `json:"hash" yaml:"hash"`
	Name    string            `json:"name" yaml:"name"`
	PubDate string            `json:"pubdate" yaml:"pubdate"`
	Attrs   map[string]string `json:"attrs" yaml:"attrs"`
}

func listData(candidates []query.Candidate) []row {
	rows := make([]row, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, row{
			Type:    c.Metadata.Type,
			Hash:    c.Hash,
			Name:    c.Metadata.Name,
			PubDate: c.Metadata.PubDate.Format(time.RFC3339),
			Attrs:   c.Metadata.CombinedAttrs(),
		})
	}
	return rows
}

type tableData struct{ candidates []query.Candidate }

func (t tableData) Headers() []string { return []string{"TYPE", "HASH", "NAME", "PUBDATE", "ATTRS"} }

func (t tableData) Rows() [][]string {
	rows := make([][]string, 0, len(t.candidates))
	for _, c := range t.candidates {
		attrs := c.Metadata.CombinedAttrs()
		keys := make([]string, 0, len(attrs))
		for k := range attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%s", k, attrs[k]))
		}
		rows = append(rows, []string{
			c.Metadata.Type,
			c.Hash,
			c.Metadata.Name,
			timeutil.FormatTime(c.Metadata.PubDate.Format(time.RFC3339)),
			strings.Join(pairs, ", "),
		})
	}
	return rows
}

func printTable(candidates []query.Candidate) error {
	return output.PrintTable(os.Stdout, tableData{candidates: candidates})
}

const indexTemplate = `<html><body><h1>ampm artifact index</h1><ul>
{{foreach items}}<li>{{entry}}</li>
{{end foreach items}}</ul></body></html>
`

func renderIndex(candidates []query.Candidate, webpage bool) error {
	items := make([]adapter.Context, 0, len(candidates))
	for _, c := range candidates {
		if webpage {
			items = append(items, adapter.Context{"entry": fmt.Sprintf("%s:%s (%s)", c.Metadata.Type, c.Hash, c.Metadata.Name)})
		} else {
			items = append(items, adapter.Context{"entry": fmt.Sprintf("%s:%s", c.Metadata.Type, c.Hash)})
		}
	}
	page, err := adapter.FormatPage(indexTemplate, adapter.Context{"items": items})
	if err != nil {
		return cmdutil.HandleError(err)
	}
	fmt.Print(page)
	return nil
}
