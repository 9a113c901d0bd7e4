// Package upload implements `ampm upload`.
package upload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Wazzaps/ampm/cmd/ampm/cmdutil"
	"github.com/Wazzaps/ampm/internal/nfsclient/compress"
	"github.com/Wazzaps/ampm/pkg/apperr"
	"github.com/Wazzaps/ampm/pkg/artifact"
	"github.com/spf13/cobra"
)

var (
	artifactType string
	compressed   bool
	uncompressed bool
	remotePath   string
	attrFlags    []string
	envFlags     []string
	description  string
)

// Cmd is the `ampm upload` command.
var Cmd = &cobra.Command{
	Use:   "upload <localPath>",
	Short: "Publish a local file or directory as a new artifact",
	Args:  cobra.ExactArgs(1),
	RunE:  run,
}

func init() {
	Cmd.Flags().StringVar(&artifactType, "type", "", "artifact type (required)")
	Cmd.Flags().BoolVar(&compressed, "compressed", false, "store the payload gzip- (file) or tar.gz- (directory) compressed")
	Cmd.Flags().BoolVar(&uncompressed, "uncompressed", false, "store the payload as-is (default)")
	Cmd.Flags().StringVar(&remotePath, "remote-path", "", "override the payload's remote location (absolute path under the export)")
	Cmd.Flags().StringArrayVarP(&attrFlags, "attr", "a", nil, "immutable attribute key=value (repeatable)")
	Cmd.Flags().StringArrayVarP(&envFlags, "env", "e", nil, "immutable env export key=value (repeatable); value may contain ${BASE_DIR}")
	Cmd.Flags().StringVar(&description, "description", "", "human-readable description")
	_ = Cmd.MarkFlagRequired("type")
}

func run(cmd *cobra.Command, args []string) error {
	localPath := args[0]

	if compressed && uncompressed {
		return cmdutil.HandleError(&apperr.ValidationError{Field: "compressed", Reason: "cannot pass both --compressed and --uncompressed"})
	}
	if err := artifact.ValidateType(artifactType); err != nil {
		return cmdutil.HandleError(err)
	}

	attrs, err := cmdutil.ParseKV(attrFlags)
	if err != nil {
		return cmdutil.HandleError(err)
	}
	envs, err := cmdutil.ParseKV(envFlags)
	if err != nil {
		return cmdutil.HandleError(err)
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return cmdutil.HandleError(&apperr.ValidationError{Field: "localPath", Reason: err.Error()})
	}

	stagedPath, pathType, pathHash, cleanup, err := stagePayload(localPath, info, compressed)
	if err != nil {
		return cmdutil.HandleError(err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	m := &artifact.Metadata{
		Name:         filepath.Base(localPath),
		Description:  description,
		PubDate:      time.Now(),
		Type:         artifactType,
		Attributes:   attrs,
		Env:          envs,
		PathType:     pathType,
		PathHash:     pathHash,
		PathLocation: remotePath,
	}

	hash, err := m.Hash()
	if err != nil {
		return cmdutil.HandleError(err)
	}

	group, err := cmdutil.OpenGroup()
	if err != nil {
		return cmdutil.HandleError(err)
	}
	if group.Remote == nil {
		return cmdutil.HandleError(&apperr.ValidationError{Field: "server", Reason: "upload requires a remote repository; the local cache never accepts uploads and --offline/unset $AMPM_SERVER disables remote access"})
	}

	if err := group.Remote.Upload(context.Background(), m, hash, stagedPath); err != nil {
		return cmdutil.HandleError(err)
	}

	fmt.Printf("%s:%s\n", artifactType, hash)
	return nil
}

// stagePayload prepares the on-disk payload that RemoteRepo.Upload
// should stage: the source unchanged for file/dir, or a freshly
// written gz/tar.gz temp file when compression is requested. It
// returns the payload's content hash (empty for a directory, per
// spec.md §3's "hash optional; absent for dir").
func stagePayload(localPath string, info os.FileInfo, compress_ bool) (path string, pathType artifact.PathType, hash string, cleanup func(), err error) {
	if info.IsDir() {
		if !compress_ {
			return localPath, artifact.PathTypeDir, "", nil, nil
		}
		return stageTarGz(localPath)
	}
	if !compress_ {
		h, err := hashFile(localPath)
		if err != nil {
			return "", "", "", nil, err
		}
		return localPath, artifact.PathTypeFile, h, nil, nil
	}
	return stageGz(localPath)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func stageGz(localPath string) (string, artifact.PathType, string, func(), error) {
	tmp, err := os.CreateTemp("", "ampm-upload-*.gz")
	if err != nil {
		return "", "", "", nil, err
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	src, err := os.Open(localPath)
	if err != nil {
		cleanup()
		return "", "", "", nil, err
	}
	defer src.Close()

	h := sha256.New()
	gz := compress.GzipWriter(io.MultiWriter(tmp, h))
	if _, err := io.Copy(gz, src); err != nil {
		tmp.Close()
		cleanup()
		return "", "", "", nil, err
	}
	if err := gz.Close(); err != nil {
		tmp.Close()
		cleanup()
		return "", "", "", nil, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", "", "", nil, err
	}
	return tmp.Name(), artifact.PathTypeGz, hex.EncodeToString(h.Sum(nil)), cleanup, nil
}

func stageTarGz(localDir string) (string, artifact.PathType, string, func(), error) {
	tmp, err := os.CreateTemp("", "ampm-upload-*.tar.gz")
	if err != nil {
		return "", "", "", nil, err
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	h := sha256.New()
	if err := compress.CreateTarGz(localDir, io.MultiWriter(tmp, h)); err != nil {
		tmp.Close()
		cleanup()
		return "", "", "", nil, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", "", "", nil, err
	}
	return tmp.Name(), artifact.PathTypeTarGz, hex.EncodeToString(h.Sum(nil)), cleanup, nil
}
