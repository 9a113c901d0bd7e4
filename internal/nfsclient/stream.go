package nfsclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Wazzaps/ampm/internal/bytesize"
	"github.com/Wazzaps/ampm/internal/logger"
	"github.com/Wazzaps/ampm/internal/metrics"
	"github.com/Wazzaps/ampm/internal/nfsclient/wire"
	"github.com/Wazzaps/ampm/pkg/bufpool"
)

// roundUpToKiB rounds n up to the nearest KiB boundary, matching the
// Python original's chunk-halving policy (spec.md §4.3: "halve
// chunk_size (rounded up to a KiB boundary)").
func roundUpToKiB(n bytesize.ByteSize) bytesize.ByteSize {
	if n%bytesize.KiB == 0 {
		return n
	}
	return (n/bytesize.KiB + 1) * bytesize.KiB
}

// withAdaptiveRetry implements spec.md §4.3's "retry on error -> halve
// chunk -> reconnect" policy: attempt runs once per try, receiving the
// current chunk size. On any error it halves the chunk size (clamping
// the client's ChunkSizeLimit to the new value) and reconnects, unless
// the chunk size has already reached the floor, in which case the
// error is surfaced.
func (c *Client) withAdaptiveRetry(ctx context.Context, attempt func(chunkSize bytesize.ByteSize) error) error {
	for {
		chunkSize := c.ChunkSizeLimit()
		err := attempt(chunkSize)
		if err == nil {
			return nil
		}

		if chunkSize <= minChunkSize {
			return fmt.Errorf("nfsclient: giving up after chunk size reached floor (%s): %w", minChunkSize, err)
		}

		newSize := roundUpToKiB(chunkSize / 2)
		if newSize >= chunkSize {
			newSize = chunkSize - bytesize.KiB
		}
		if newSize < minChunkSize {
			newSize = minChunkSize
		}

		logger.Warnf("nfs i/o error, halving chunk size %s -> %s and reconnecting: %v", chunkSize, newSize, err)

		c.mu.Lock()
		c.chunkSizeLimit = newSize
		c.mu.Unlock()

		if rerr := c.reconnect(ctx); rerr != nil {
			return fmt.Errorf("nfsclient: reconnect after chunk-size reduction failed: %w", rerr)
		}
	}
}

// ReadStream streams the regular file at remotePath in
// ChunkSizeLimit()-sized reads, calling onChunk for each chunk read.
// It fails fast if the target is not NF3REG (spec.md §4.3).
func (c *Client) ReadStream(ctx context.Context, remotePath string, onChunk func(chunk []byte) error) error {
	handle, attr, err := c.Open(SplitPath(remotePath))
	if err != nil {
		return err
	}
	if attr != nil && !attr.IsRegular() {
		return fmt.Errorf("read_stream %q: not a regular file", remotePath)
	}

	var offset uint64
	for {
		var data []byte
		var eof bool

		readErr := c.withAdaptiveRetry(ctx, func(chunkSize bytesize.ByteSize) error {
			d, e, status, err := c.read(handle, offset, uint32(chunkSize))
			if err != nil {
				return err
			}
			if status != wire.NFS3OK {
				return fmt.Errorf("read %q at offset %d: %s", remotePath, offset, wire.StatusName(status))
			}
			data, eof = d, e
			return nil
		})
		if readErr != nil {
			return readErr
		}

		metrics.AddBytesRead(len(data))

		if len(data) > 0 {
			if err := onChunk(data); err != nil {
				return err
			}
			offset += uint64(len(data))
		}
		if eof || len(data) == 0 {
			return nil
		}
	}
}

// WriteStream streams data to remotePath (created via
// CreateWithDirs), issuing UNSTABLE writes followed by a final
// COMMIT (spec.md §4.3). A short WRITE reply is handled internally by
// re-entering the write loop with the remaining slice.
func (c *Client) WriteStream(ctx context.Context, remotePath string, data io.Reader) error {
	handle, err := c.CreateWithDirs(SplitPath(remotePath))
	if err != nil {
		return err
	}

	var offset uint64
	buf := bufpool.Get(int(DefaultChunkSize))
	defer bufpool.Put(buf)

	for {
		chunkSize := c.ChunkSizeLimit()
		if len(buf) < int(chunkSize) {
			bufpool.Put(buf)
			buf = bufpool.Get(int(chunkSize))
		}

		n, readErr := data.Read(buf[:chunkSize])
		if n > 0 {
			pending := buf[:n]
			for len(pending) > 0 {
				var written uint32
				writeErr := c.withAdaptiveRetry(ctx, func(_ bytesize.ByteSize) error {
					w, status, err := c.write(handle, offset, pending)
					if err != nil {
						return err
					}
					if status != wire.NFS3OK {
						return fmt.Errorf("write %q at offset %d: %s", remotePath, offset, wire.StatusName(status))
					}
					written = w
					return nil
				})
				if writeErr != nil {
					return writeErr
				}
				metrics.AddBytesWritten(int(written))
				offset += uint64(written)
				pending = pending[written:]
			}
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("write_stream %q: read local data: %w", remotePath, readErr)
		}
	}

	status, err := c.commit(handle)
	if err != nil {
		return err
	}
	if status != wire.NFS3OK {
		return fmt.Errorf("commit %q: %s", remotePath, wire.StatusName(status))
	}
	return nil
}

// Download copies remotePath into localDir, recreating its directory
// structure. When the walk yields exactly one regular file, Download
// hashes it on the fly and returns the hex SHA-256 digest; directory
// artifacts return an empty digest since "the manifest is the
// combined tree, not a single digest" (spec.md §4.3). A source that is
// a symlink is reproduced as a local symlink with no hash.
func (c *Client) Download(ctx context.Context, remotePath, localDir string) (hexDigest string, err error) {
	rootHandle, rootAttr, err := c.Open(SplitPath(remotePath))
	if err != nil {
		return "", err
	}

	if rootAttr != nil && rootAttr.IsSymlink() {
		target, err := c.Readlink(remotePath)
		if err != nil {
			return "", err
		}
		if err := os.MkdirAll(filepath.Dir(localDir), 0o755); err != nil {
			return "", err
		}
		if err := os.Symlink(target, localDir); err != nil {
			return "", err
		}
		return "", nil
	}

	if rootAttr != nil && !rootAttr.IsDir() {
		_ = rootHandle
		h := sha256.New()
		localPath := localDir
		if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
			return "", err
		}
		f, err := os.OpenFile(localPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
		if err != nil {
			return "", err
		}
		defer f.Close()

		err = c.ReadStream(ctx, remotePath, func(chunk []byte) error {
			h.Write(chunk)
			_, err := f.Write(chunk)
			return err
		})
		if err != nil {
			return "", err
		}
		return hex.EncodeToString(h.Sum(nil)), nil
	}

	entries, err := c.WalkFiles(remotePath, false)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return "", err
	}

	var fileCount int
	var lastDigest string
	for _, e := range entries {
		localPath := filepath.Join(localDir, filepath.FromSlash(e.Path))
		remoteChildPath := remotePath + "/" + e.Path

		if e.Attr != nil && e.Attr.IsSymlink() {
			target, err := c.Readlink(remoteChildPath)
			if err != nil {
				return "", err
			}
			if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
				return "", err
			}
			if err := os.Symlink(target, localPath); err != nil {
				return "", err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
			return "", err
		}
		f, err := os.OpenFile(localPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
		if err != nil {
			return "", err
		}
		h := sha256.New()
		err = c.ReadStream(ctx, remoteChildPath, func(chunk []byte) error {
			h.Write(chunk)
			_, err := f.Write(chunk)
			return err
		})
		f.Close()
		if err != nil {
			return "", err
		}
		fileCount++
		lastDigest = hex.EncodeToString(h.Sum(nil))
	}

	if fileCount == 1 {
		return lastDigest, nil
	}
	return "", nil
}

// Upload copies localPath (a regular file, symlink, or — when allowDir
// is true — a directory tree) to remotePath (spec.md §4.3).
func (c *Client) Upload(ctx context.Context, localPath, remotePath string, allowDir bool) error {
	info, err := os.Lstat(localPath)
	if err != nil {
		return err
	}

	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(localPath)
		if err != nil {
			return err
		}
		return c.Symlink(target, remotePath)
	}

	if info.IsDir() {
		if !allowDir {
			return fmt.Errorf("upload %q: directories require allowDir", localPath)
		}
		return c.uploadDir(ctx, localPath, remotePath)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return c.WriteStream(ctx, remotePath, f)
}

func (c *Client) uploadDir(ctx context.Context, localDir, remotePath string) error {
	entries, err := os.ReadDir(localDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		childLocal := filepath.Join(localDir, e.Name())
		childRemote := remotePath + "/" + e.Name()
		if err := c.Upload(ctx, childLocal, childRemote, true); err != nil {
			return err
		}
	}
	return nil
}
