// Package cmdutil provides shared utilities for ampm's cobra commands:
// global flag storage, repo.Group construction from config/flags, and
// the single top-level error-to-exit-code mapping.
package cmdutil

import (
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/Wazzaps/ampm/internal/bytesize"
	"github.com/Wazzaps/ampm/internal/cli/output"
	"github.com/Wazzaps/ampm/internal/config"
	"github.com/Wazzaps/ampm/pkg/apperr"
	"github.com/Wazzaps/ampm/pkg/repo"
)

// Flags stores global flag values accessible by every subcommand.
var Flags = &GlobalFlags{}

// GlobalFlags holds the persistent, root-level flag values.
type GlobalFlags struct {
	Server    string
	ChunkSize string
	LocalRoot string
	Offline   bool
	NoColor   bool
}

// OpenGroup builds a repo.Group from the loaded config overlaid with
// any explicit --server/--chunk-size/--local-root/--offline flags.
func OpenGroup() (*repo.Group, error) {
	cfg, _, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if Flags.Server != "" {
		cfg.Server = Flags.Server
	}
	if Flags.LocalRoot != "" {
		cfg.LocalRoot = Flags.LocalRoot
	}
	if Flags.Offline {
		cfg.Offline = true
	}
	if Flags.ChunkSize != "" {
		size, err := bytesize.ParseByteSize(Flags.ChunkSize)
		if err != nil {
			return nil, &apperr.ValidationError{Field: "chunk-size", Reason: err.Error()}
		}
		cfg.ChunkSize = size
	}

	local := repo.NewLocalRepo(cfg.LocalRoot)
	if err := ensureWritable(cfg.LocalRoot); err != nil {
		return nil, err
	}

	if cfg.Offline || cfg.Server == "" {
		return repo.NewGroup(local, nil), nil
	}

	proto, rest, ok := strings.Cut(cfg.Server, "://")
	if !ok || proto != "nfs" {
		return nil, &apperr.ValidationError{Field: "server", Reason: fmt.Sprintf("expected nfs://host/mount#repo, got: %s", cfg.Server)}
	}
	remote, err := repo.NewRemoteRepoFromURIPart(rest, cfg.ChunkSize)
	if err != nil {
		return nil, err
	}
	return repo.NewGroup(local, remote), nil
}

// ensureWritable checks that root exists and is writable, mirroring
// ampm/cli.py's top-level `except PermissionError` handler which
// prints a `sudo mkdir -p ... && sudo chown ...` remediation rather
// than a bare traceback.
func ensureWritable(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		username := "$USER"
		if u, uerr := user.Current(); uerr == nil {
			username = u.Username
		}
		return &apperr.PermissionError{
			Path:   root,
			Remedy: fmt.Sprintf("sudo mkdir -p %s && sudo chown %s %s", root, username, root),
			Err:    err,
		}
	}
	return nil
}

// Printer returns an output.Printer for formatStr honoring --no-color.
// formatStr is one of output.ParseFormat's recognized values
// ("table" or empty, "json", "yaml"/"yml"); callers handle any
// command-specific extra formats (e.g. list's "short"/"index-file"/
// "index-webpage") before reaching here.
func Printer(formatStr string) (*output.Printer, error) {
	format, err := output.ParseFormat(formatStr)
	if err != nil {
		return nil, &apperr.ValidationError{Field: "format", Reason: err.Error()}
	}
	return output.NewPrinter(os.Stdout, format, !Flags.NoColor), nil
}

// HandleError maps the apperr taxonomy to a stderr message, mirroring
// the teacher's single top-level-handler convention. It always
// returns a non-nil error so cobra's RunE plumbing reports failure;
// the message itself is already final (cobra is configured with
// SilenceErrors so it isn't printed twice).
func HandleError(err error) error {
	if err == nil {
		return nil
	}

	switch e := err.(type) {
	case *apperr.QueryNotFoundError:
		fmt.Fprintf(os.Stderr, "error: %s\n", e.Error())
	case *apperr.AmbiguousQueryError:
		fmt.Fprintf(os.Stderr, "error: %s\n", e.Error())
		for _, opt := range e.Options {
			fmt.Fprintf(os.Stderr, "  - %s\n", opt)
		}
	case *apperr.AmbiguousComparisonError:
		fmt.Fprintf(os.Stderr, "error: %s\n", e.Error())
		fmt.Fprintln(os.Stderr, "  hint: narrow the query with an additional \"-a <key>=@ignore\" filter")
	case *apperr.ArtifactCorruptedError:
		fmt.Fprintf(os.Stderr, "error: %s\n", e.Error())
	case *apperr.ConnectionError:
		fmt.Fprintf(os.Stderr, "error: %s\n", e.Error())
	case *apperr.PermissionError:
		fmt.Fprintf(os.Stderr, "error: %s\n", e.Error())
		if e.Remedy != "" {
			fmt.Fprintf(os.Stderr, "  try: %s\n", e.Remedy)
		}
	case *apperr.PathTraversalError:
		fmt.Fprintf(os.Stderr, "nice try: %s\n", e.Error())
	case *apperr.ValidationError:
		fmt.Fprintf(os.Stderr, "error: %s\n", e.Error())
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return err
}
