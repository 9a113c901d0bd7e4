package nfsclient

import (
	"fmt"
	"strings"

	"github.com/Wazzaps/ampm/internal/logger"
	"github.com/Wazzaps/ampm/internal/nfsclient/wire"
)

// SplitPath splits a POSIX-style path into path segments, dropping
// empty segments and "." (spec.md §4.2: "Splitting drops empty
// segments and '.'; '..' is not resolved here — it is rejected by the
// validator").
func SplitPath(path string) []string {
	var parts []string
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || seg == "." {
			continue
		}
		parts = append(parts, seg)
	}
	return parts
}

// Open walks parts segment by segment via LOOKUP starting at the
// export root, returning the final handle and attributes. Any
// non-OK status fails with a connection-class I/O error (spec.md
// §4.2: "open(parts) → (handle, attrs): ... any non-OK status fails
// with I/O").
func (c *Client) Open(parts []string) (wire.FileHandle, *wire.FileAttr, error) {
	handle := c.RootHandle()
	var attr *wire.FileAttr

	for _, part := range parts {
		h, a, status, err := c.lookup(handle, part)
		if err != nil {
			return nil, nil, err
		}
		if status != wire.NFS3OK {
			return nil, nil, fmt.Errorf("lookup %q: %s", part, wire.StatusName(status))
		}
		handle, attr = h, a
	}
	return handle, attr, nil
}

// MkdirP walks parts, creating any directory segment that does not
// yet exist, and returns the final directory's handle (spec.md §4.2:
// "mkdir_p(parts) → handle: for each segment, MKDIR; on
// NFS3ERR_EXIST verify it is a directory ... and fall back to
// LOOKUP").
func (c *Client) MkdirP(parts []string) (wire.FileHandle, error) {
	handle := c.RootHandle()

	for _, part := range parts {
		h, status, err := c.mkdir(handle, part)
		if err != nil {
			return nil, err
		}

		switch status {
		case wire.NFS3OK:
			handle = h
		case wire.NFS3ErrExist:
			existing, attr, lookupStatus, err := c.lookup(handle, part)
			if err != nil {
				return nil, err
			}
			if lookupStatus != wire.NFS3OK {
				return nil, fmt.Errorf("mkdir_p: %q exists but lookup failed: %s", part, wire.StatusName(lookupStatus))
			}
			if attr != nil && !attr.IsDir() {
				return nil, fmt.Errorf("mkdir_p: %q exists and is not a directory", part)
			}
			handle = existing
		default:
			return nil, fmt.Errorf("mkdir %q: %s", part, wire.StatusName(status))
		}
	}

	return handle, nil
}

// CreateWithDirs creates parents (via MkdirP) and then the final
// path segment as a regular file, UNCHECKED mode 0777 (spec.md §4.2).
func (c *Client) CreateWithDirs(parts []string) (wire.FileHandle, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("create_with_dirs: empty path")
	}
	parentHandle, err := c.MkdirP(parts[:len(parts)-1])
	if err != nil {
		return nil, err
	}
	name := parts[len(parts)-1]
	handle, status, err := c.createUnchecked(parentHandle, name)
	if err != nil {
		return nil, err
	}
	if status != wire.NFS3OK {
		return nil, fmt.Errorf("create %q: %s", name, wire.StatusName(status))
	}
	if handle == nil {
		// Some servers omit the handle from CREATE3res; look it up.
		handle, _, lookupStatus, err := c.lookup(parentHandle, name)
		if err != nil {
			return nil, err
		}
		if lookupStatus != wire.NFS3OK {
			return nil, fmt.Errorf("create %q: post-create lookup failed: %s", name, wire.StatusName(lookupStatus))
		}
		return handle, nil
	}
	return handle, nil
}

// ReadDirAll returns every name in the directory at path, looping the
// cookie/cookieverf protocol until eof (spec.md §4.2).
func (c *Client) ReadDirAll(path string) ([]string, error) {
	handle, _, err := c.Open(SplitPath(path))
	if err != nil {
		return nil, err
	}

	var names []string
	var cookie uint64
	var verf [8]byte
	for {
		entries, eof, newVerf, status, err := c.readdir(handle, cookie, verf)
		if err != nil {
			return nil, err
		}
		if status != wire.NFS3OK {
			return nil, fmt.Errorf("readdir: %s", wire.StatusName(status))
		}
		for _, e := range entries {
			if e.Name == "." || e.Name == ".." {
				continue
			}
			names = append(names, e.Name)
			cookie++
		}
		verf = newVerf
		if eof || len(entries) == 0 {
			break
		}
	}
	return names, nil
}

// WalkEntry is one file or directory discovered by WalkFiles.
type WalkEntry struct {
	Path   string // path relative to the walk root
	Handle wire.FileHandle
	Attr   *wire.FileAttr
	IsDir  bool
}

// WalkFiles walks the remote tree rooted at path, preferring
// READDIRPLUS (it returns child types inline) and falling back to
// READDIR+LOOKUP when the server reports NFS3ERR_NOTSUPP, at which
// point readdirplus support is disabled for the rest of the client's
// lifetime (spec.md §4.1 "capability probing", §4.2 "walk_files").
// Hidden entries (names starting with ".") are skipped. When the
// target is not a directory, WalkFiles yields the single file and
// stops.
func (c *Client) WalkFiles(path string, includeDirs bool) ([]WalkEntry, error) {
	rootHandle, rootAttr, err := c.Open(SplitPath(path))
	if err != nil {
		return nil, err
	}

	if rootAttr == nil || !rootAttr.IsDir() {
		return []WalkEntry{{Path: lastSegment(path), Handle: rootHandle, Attr: rootAttr, IsDir: false}}, nil
	}

	var out []WalkEntry
	err = c.walkDir(rootHandle, "", includeDirs, &out)
	return out, err
}

func (c *Client) walkDir(dir wire.FileHandle, prefix string, includeDirs bool, out *[]WalkEntry) error {
	entries, err := c.listDirEntries(dir)
	if err != nil {
		return err
	}

	for _, e := range entries {
		if strings.HasPrefix(e.Name, ".") {
			continue
		}
		childPath := e.Name
		if prefix != "" {
			childPath = prefix + "/" + e.Name
		}

		handle := e.Handle
		attr := e.Attr
		if handle == nil {
			h, a, status, err := c.lookup(dir, e.Name)
			if err != nil {
				return err
			}
			if status != wire.NFS3OK {
				return fmt.Errorf("lookup %q during walk: %s", childPath, wire.StatusName(status))
			}
			handle, attr = h, a
		}

		if attr != nil && attr.IsDir() {
			if includeDirs {
				*out = append(*out, WalkEntry{Path: childPath, Handle: handle, Attr: attr, IsDir: true})
			}
			if err := c.walkDir(handle, childPath, includeDirs, out); err != nil {
				return err
			}
		} else {
			*out = append(*out, WalkEntry{Path: childPath, Handle: handle, Attr: attr, IsDir: false})
		}
	}
	return nil
}

// WalkFilesDirsAtEnd performs a post-order traversal (files and nested
// dirs before their parent), used by recursive remove (spec.md §4.2
// "walk_files_dirs_at_end").
func (c *Client) WalkFilesDirsAtEnd(path string) ([]WalkEntry, error) {
	flat, err := c.WalkFiles(path, true)
	if err != nil {
		return nil, err
	}
	// Deepest paths (by segment count) come first so that a
	// directory's children are always removed before the directory
	// itself. The order among paths of equal depth is not defined.
	files := make([]WalkEntry, len(flat))
	copy(files, flat)
	for i := 0; i < len(files); i++ {
		for j := i + 1; j < len(files); j++ {
			if depth(files[j].Path) > depth(files[i].Path) {
				files[i], files[j] = files[j], files[i]
			}
		}
	}
	return files, nil
}

func depth(path string) int { return strings.Count(path, "/") }

func (c *Client) listDirEntries(dir wire.FileHandle) ([]DirEntry, error) {
	var all []DirEntry
	var cookie uint64
	var verf [8]byte

	for {
		if c.readdirplusSupported() {
			entries, eof, newVerf, status, err := c.readdirplus(dir, cookie, verf)
			if status == wire.NFS3ErrNotSupp {
				c.disableReaddirplus()
				continue
			}
			if err != nil {
				return nil, err
			}
			if status != wire.NFS3OK {
				return nil, fmt.Errorf("readdirplus: %s", wire.StatusName(status))
			}
			for _, e := range entries {
				if e.Name != "." && e.Name != ".." {
					all = append(all, e)
				}
			}
			verf = newVerf
			cookie += uint64(len(entries))
			if eof || len(entries) == 0 {
				return all, nil
			}
			continue
		}

		entries, eof, newVerf, status, err := c.readdir(dir, cookie, verf)
		if err != nil {
			return nil, err
		}
		if status != wire.NFS3OK {
			return nil, fmt.Errorf("readdir: %s", wire.StatusName(status))
		}
		for _, e := range entries {
			if e.Name != "." && e.Name != ".." {
				all = append(all, e)
			}
		}
		verf = newVerf
		cookie += uint64(len(entries))
		if eof || len(entries) == 0 {
			return all, nil
		}
	}
}

func (c *Client) readdirplusSupported() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.supportsReaddirplus
}

func (c *Client) disableReaddirplus() {
	c.mu.Lock()
	c.supportsReaddirplus = false
	c.mu.Unlock()
	logger.Debug("server returned NFS3ERR_NOTSUPP for READDIRPLUS; falling back to READDIR for this connection's lifetime")
}

// Rename performs mkdir_p on the parent of newPath, then RENAME
// (spec.md §4.2).
func (c *Client) Rename(oldPath, newPath string) error {
	oldParts := SplitPath(oldPath)
	newParts := SplitPath(newPath)
	if len(oldParts) == 0 || len(newParts) == 0 {
		return fmt.Errorf("rename: empty path")
	}

	fromDir, err := c.MkdirP(oldParts[:len(oldParts)-1])
	if err != nil {
		return err
	}
	toDir, err := c.MkdirP(newParts[:len(newParts)-1])
	if err != nil {
		return err
	}

	status, err := c.rename(fromDir, oldParts[len(oldParts)-1], toDir, newParts[len(newParts)-1])
	if err != nil {
		return err
	}
	if status != wire.NFS3OK {
		return fmt.Errorf("rename %q -> %q: %s", oldPath, newPath, wire.StatusName(status))
	}
	return nil
}

// Symlink creates linkPath as a symbolic link pointing at target.
func (c *Client) Symlink(target, linkPath string) error {
	parts := SplitPath(linkPath)
	if len(parts) == 0 {
		return fmt.Errorf("symlink: empty path")
	}
	dir, err := c.MkdirP(parts[:len(parts)-1])
	if err != nil {
		return err
	}
	status, err := c.symlink(dir, parts[len(parts)-1], target)
	if err != nil {
		return err
	}
	if status != wire.NFS3OK {
		return fmt.Errorf("symlink %q -> %q: %s", linkPath, target, wire.StatusName(status))
	}
	return nil
}

// Readlink returns the target of the symlink at path.
func (c *Client) Readlink(path string) (string, error) {
	handle, attr, err := c.Open(SplitPath(path))
	if err != nil {
		return "", err
	}
	if attr != nil && !attr.IsSymlink() {
		return "", fmt.Errorf("readlink %q: not a symlink", path)
	}
	target, status, err := c.readlink(handle)
	if err != nil {
		return "", err
	}
	if status != wire.NFS3OK {
		return "", fmt.Errorf("readlink %q: %s", path, wire.StatusName(status))
	}
	return target, nil
}

// Remove deletes a single file.
func (c *Client) Remove(path string) error {
	parts := SplitPath(path)
	if len(parts) == 0 {
		return fmt.Errorf("remove: empty path")
	}
	parentHandle, err := c.parentHandle(parts)
	if err != nil {
		return err
	}
	status, err := c.remove(parentHandle, parts[len(parts)-1])
	if err != nil {
		return err
	}
	if status != wire.NFS3OK {
		return fmt.Errorf("remove %q: %s", path, wire.StatusName(status))
	}
	return nil
}

func (c *Client) parentHandle(parts []string) (wire.FileHandle, error) {
	if len(parts) == 1 {
		return c.RootHandle(), nil
	}
	h, _, err := c.Open(parts[:len(parts)-1])
	return h, err
}

// Rmtree recursively removes path: walk_files_dirs_at_end then remove
// each leaf (files then empty dirs), per spec.md §4.2.
func (c *Client) Rmtree(path string) error {
	rootParts := SplitPath(path)
	if len(rootParts) == 0 {
		return nil
	}

	_, rootAttr, err := c.Open(rootParts)
	if err != nil {
		return err
	}

	// A plain file has nothing underneath it to walk; WalkFiles
	// reports it as a single entry naming itself rather than a
	// descendant, which the loop below isn't shaped for (it expects
	// every entry's Path to be relative to, and strictly under, path).
	if rootAttr == nil || !rootAttr.IsDir() {
		return c.removeLeaf(rootParts, false)
	}

	entries, err := c.WalkFilesDirsAtEnd(path)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fullParts := append(append([]string{}, rootParts...), SplitPath(e.Path)...)
		if err := c.removeLeaf(fullParts, e.IsDir); err != nil {
			return err
		}
	}

	return c.removeLeaf(rootParts, true)
}

// removeLeaf removes the file or (empty) directory named by the last
// segment of parts, tolerating NFS3ERR_NOENT so Rmtree is idempotent
// against a path that is already gone.
func (c *Client) removeLeaf(parts []string, isDir bool) error {
	parentHandle, err := c.parentHandle(parts)
	if err != nil {
		return err
	}
	name := parts[len(parts)-1]

	var status uint32
	if isDir {
		status, err = c.rmdir(parentHandle, name)
	} else {
		status, err = c.remove(parentHandle, name)
	}
	if err != nil {
		return err
	}
	if status != wire.NFS3OK && status != wire.NFS3ErrNoEnt {
		return fmt.Errorf("rmtree: remove %q: %s", strings.Join(parts, "/"), wire.StatusName(status))
	}
	return nil
}

func lastSegment(path string) string {
	parts := SplitPath(path)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}
