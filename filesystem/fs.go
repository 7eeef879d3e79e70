package filesystem

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// File is an open file handle the engine streams through, one chunk per
// poll tick.
type File interface {
	io.Reader
	io.Writer
	io.Closer
}

// EntryInfo describes one directory entry for the listing commands.
type EntryInfo struct {
	Name  string
	Size  int64
	IsDir bool
}

// FS is the interface that wraps the file operations the FTP engine
// needs. All names are absolute virtual paths rooted at "/"; the
// implementation maps them onto its own storage.
type FS interface {
	// Open opens an existing file for reading.
	Open(name string) (File, error)
	// Create creates or truncates a file for writing.
	Create(name string) (File, error)
	// Append opens an existing file for appending, creating it if needed.
	Append(name string) (File, error)
	// Exists reports whether a regular file exists at name.
	Exists(name string) bool
	// IsDir reports whether a directory exists at name.
	IsDir(name string) bool
	// Size returns the byte size of the file at name.
	Size(name string) (int64, error)
	// ReadDir lists the entries of the directory at name.
	ReadDir(name string) ([]EntryInfo, error)
	// Remove removes the file at name.
	Remove(name string) error
	// RemoveDir removes the empty directory at name.
	RemoveDir(name string) error
	// MakeDir creates a new directory at name.
	MakeDir(name string) error
	// Rename renames the file/directory or moves it to a different directory.
	Rename(original string, target string) error
}

// Ensure that LocalFS implements the FS interface
var _ FS = &LocalFS{}

// LocalFS serves a local directory as the virtual root of the FTP tree.
type LocalFS struct {
	localDir string // local directory to serve as the ftp virtual root
}

func NewLocalFS(localDir string) *LocalFS {
	return &LocalFS{localDir: localDir}
}

// localPath maps a virtual path onto the local directory. It cleans the
// path relative to the virtual root first, so the result can never escape
// localDir.
func (FS *LocalFS) localPath(name string) (string, error) {
	cleaned := path.Clean("/" + strings.TrimPrefix(name, "/"))
	full := filepath.Join(FS.localDir, filepath.FromSlash(cleaned))
	if full != FS.localDir && !strings.HasPrefix(full, FS.localDir+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the served directory", name)
	}
	return full, nil
}

func (FS *LocalFS) Open(name string) (File, error) {
	name, err := FS.localPath(name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	return file, nil
}

func (FS *LocalFS) Create(name string) (File, error) {
	return FS.openWrite(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC)
}

func (FS *LocalFS) Append(name string) (File, error) {
	return FS.openWrite(name, os.O_RDWR|os.O_CREATE|os.O_APPEND)
}

func (FS *LocalFS) openWrite(name string, access int) (File, error) {
	name, err := FS.localPath(name)
	if err != nil {
		return nil, err
	}
	file, err := os.OpenFile(name, access, 0666)
	if err != nil {
		return nil, fmt.Errorf("creating file error: %w", err)
	}
	return file, nil
}

func (FS *LocalFS) Exists(name string) bool {
	name, err := FS.localPath(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(name)
	return err == nil && !info.IsDir()
}

func (FS *LocalFS) IsDir(name string) bool {
	name, err := FS.localPath(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(name)
	return err == nil && info.IsDir()
}

func (FS *LocalFS) Size(name string) (int64, error) {
	name, err := FS.localPath(name)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(name)
	if err != nil {
		return 0, fmt.Errorf("error getting file info: %w", err)
	}
	return info.Size(), nil
}

func (FS *LocalFS) ReadDir(name string) ([]EntryInfo, error) {
	name, err := FS.localPath(name)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(name)
	if err != nil {
		return nil, fmt.Errorf("error reading directory: %w", err)
	}
	list := make([]EntryInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("error getting file info: %w", err)
		}
		size := info.Size()
		if info.IsDir() {
			size = 0
		}
		list = append(list, EntryInfo{
			Name:  entry.Name(),
			Size:  size,
			IsDir: entry.IsDir(),
		})
	}
	return list, nil
}

func (FS *LocalFS) Remove(name string) (err error) {
	name, err = FS.localPath(name)
	if err != nil {
		return err
	}
	if err = os.Remove(name); err != nil {
		return fmt.Errorf("error removing file: %w", err)
	}
	return
}

func (FS *LocalFS) RemoveDir(name string) (err error) {
	name, err = FS.localPath(name)
	if err != nil {
		return err
	}
	if err = os.Remove(name); err != nil {
		return fmt.Errorf("error removing directory: %w", err)
	}
	return
}

func (FS *LocalFS) MakeDir(name string) (err error) {
	name, err = FS.localPath(name)
	if err != nil {
		return err
	}
	if err = os.Mkdir(name, 0777); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}
	return
}

// Rename renames the file/directory or moves it to a different directory.
func (FS *LocalFS) Rename(original, target string) (err error) {
	original, err = FS.localPath(original)
	if err != nil {
		return err
	}
	target, err = FS.localPath(target)
	if err != nil {
		return err
	}
	if err = os.Rename(original, target); err != nil {
		return fmt.Errorf("error renaming file: %w", err)
	}
	return
}
