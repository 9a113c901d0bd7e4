// Package commands implements ampm's CLI command tree.
package commands

import (
	"net/http"
	"os"

	"github.com/Wazzaps/ampm/cmd/ampm/cmdutil"
	"github.com/Wazzaps/ampm/cmd/ampm/commands/env"
	"github.com/Wazzaps/ampm/cmd/ampm/commands/get"
	"github.com/Wazzaps/ampm/cmd/ampm/commands/history"
	"github.com/Wazzaps/ampm/cmd/ampm/commands/list"
	"github.com/Wazzaps/ampm/cmd/ampm/commands/remoterm"
	"github.com/Wazzaps/ampm/cmd/ampm/commands/search"
	"github.com/Wazzaps/ampm/cmd/ampm/commands/upload"
	"github.com/Wazzaps/ampm/internal/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// Version information injected at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "ampm",
	Short: "ampm - a content-addressed artifact package manager over NFSv3",
	Long: `ampm stores named, typed, attributed artifacts (files, directories,
gzip, or tar+gzip payloads) in a content-addressed store layered over
a raw NFSv3 share, and resolves them either by exact type:hash or by
attribute queries with ordered comparators (semver, number, date,
glob, regex).

Use "ampm [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "INFO"
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = "DEBUG"
		}
		if err := logger.Init(logger.Config{Level: level, Format: "text", Output: "stderr"}); err != nil {
			return err
		}
		startMetricsServer()
		return nil
	},
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

// startMetricsServer exposes the process-wide byte-count counters
// (internal/metrics) over HTTP when AMPM_METRICS_ADDR is set. A
// one-shot CLI invocation has no scrape window worth the cost of an
// always-on listener, so this stays opt-in rather than the teacher's
// config.InitializeMetrics(cfg)-is-default-enabled server.
func startMetricsServer() {
	addr := os.Getenv("AMPM_METRICS_ADDR")
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warnf("metrics server on %s stopped: %v", addr, err)
		}
	}()
	logger.Infof("metrics server listening on %s", addr)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cmdutil.Flags.Server, "server", "", "remote repository URI, e.g. nfs://host/mount#repo (default: $AMPM_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cmdutil.Flags.ChunkSize, "chunk-size", "", "NFS transport chunk size, e.g. 64KiB (default: $AMPM_CHUNK_SIZE or 32KiB)")
	rootCmd.PersistentFlags().StringVar(&cmdutil.Flags.LocalRoot, "local-root", "", "local artifact cache directory (default: $AMPM_LOCAL_ROOT or /var/ampm)")
	rootCmd.PersistentFlags().BoolVar(&cmdutil.Flags.Offline, "offline", false, "disable all remote repository access")
	rootCmd.PersistentFlags().BoolVar(&cmdutil.Flags.NoColor, "no-color", false, "disable colorized output")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")

	rootCmd.AddCommand(get.Cmd)
	rootCmd.AddCommand(list.Cmd)
	rootCmd.AddCommand(env.Cmd)
	rootCmd.AddCommand(upload.Cmd)
	rootCmd.AddCommand(remoterm.Cmd)
	rootCmd.AddCommand(search.Cmd)
	rootCmd.AddCommand(history.Cmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Printf("ampm %s (commit: %s, built: %s)\n", Version, Commit, Date)
		return nil
	},
}
