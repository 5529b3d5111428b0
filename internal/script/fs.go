// Package script loads Lua source files into a sandbox, individually or as
// a directory tree, always executing through the sandbox's protected-call
// pipeline.
package script

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
)

var (
	// ErrSourceNotFound reports a file-service miss for a requested path.
	ErrSourceNotFound = errors.New("source not found")
	// ErrInvalidPathKind reports a path that is neither a directory nor a
	// recognized script file.
	ErrInvalidPathKind = errors.New("invalid path kind")
)

// SourceUnit is one script body plus its logical path. The loader borrows it
// read-only for a single load/execute call.
type SourceUnit struct {
	Path string
	Data []byte
}

// Entry is one result of enumerating a directory.
type Entry struct {
	Path  string
	IsDir bool
}

// Info describes what a path refers to.
type Info struct {
	Exists bool
	IsDir  bool
	IsFile bool
}

// FileService is the loader's view of script storage. Paths are logical and
// slash-separated regardless of host platform.
type FileService interface {
	// Read returns the source unit at path, or an error wrapping
	// ErrSourceNotFound if there is none.
	Read(path string) (*SourceUnit, error)
	// Enumerate lists the entries of dir in an enumerator-defined order,
	// including subdirectories when includeDirs is set.
	Enumerate(dir string, includeDirs bool) ([]Entry, error)
	// Lookup reports what kind of object path refers to.
	Lookup(path string) Info
}

// OSFileService serves script files from a root directory on the host
// filesystem. Logical paths resolve strictly under Root.
type OSFileService struct {
	Root string
}

// NewOSFileService creates a file service rooted at root.
func NewOSFileService(root string) *OSFileService {
	return &OSFileService{Root: root}
}

func (f *OSFileService) resolve(logical string) string {
	return filepath.Join(f.Root, filepath.FromSlash(logical))
}

func (f *OSFileService) Read(logical string) (*SourceUnit, error) {
	data, err := os.ReadFile(f.resolve(logical))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%q: %w", logical, ErrSourceNotFound)
		}
		return nil, fmt.Errorf("read %q: %w", logical, err)
	}
	return &SourceUnit{Path: logical, Data: data}, nil
}

func (f *OSFileService) Enumerate(dir string, includeDirs bool) ([]Entry, error) {
	entries, err := os.ReadDir(f.resolve(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%q: %w", dir, ErrSourceNotFound)
		}
		return nil, fmt.Errorf("enumerate %q: %w", dir, err)
	}
	var result []Entry
	for _, e := range entries {
		if e.IsDir() && !includeDirs {
			continue
		}
		result = append(result, Entry{
			Path:  path.Join(dir, e.Name()),
			IsDir: e.IsDir(),
		})
	}
	return result, nil
}

func (f *OSFileService) Lookup(logical string) Info {
	st, err := os.Stat(f.resolve(logical))
	if err != nil {
		return Info{}
	}
	return Info{
		Exists: true,
		IsDir:  st.IsDir(),
		IsFile: st.Mode().IsRegular(),
	}
}
