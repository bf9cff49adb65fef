// Package fakefs provides an in-memory FileSystem implementation for testing.
package fakefs

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/acolita/truerand/internal/ports"
	"github.com/bmatcuk/doublestar/v4"
)

// FS is an in-memory filesystem for testing.
type FS struct {
	mu      sync.RWMutex
	files   map[string]*fakeFile
	dirs    map[string]bool
	homeDir string
	env     map[string]string
}

type fakeFile struct {
	data []byte
	mode fs.FileMode
}

// New creates a new in-memory filesystem.
func New() *FS {
	return &FS{
		files:   make(map[string]*fakeFile),
		dirs:    map[string]bool{"/": true},
		homeDir: "/home/test",
		env:     make(map[string]string),
	}
}

// ReadFile reads the named file and returns its contents.
func (f *FS) ReadFile(name string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	name = filepath.Clean(name)
	file, ok := f.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}

	data := make([]byte, len(file.data))
	copy(data, file.data)
	return data, nil
}

// Stat returns file info for the named file or directory.
func (f *FS) Stat(name string) (fs.FileInfo, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	name = filepath.Clean(name)
	if file, ok := f.files[name]; ok {
		return &fakeFileInfo{
			name: filepath.Base(name),
			size: int64(len(file.data)),
			mode: file.mode,
		}, nil
	}
	if f.dirs[name] {
		return &fakeFileInfo{
			name:  filepath.Base(name),
			mode:  fs.ModeDir | 0755,
			isDir: true,
		}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

// Glob matches pattern against every file and directory, in lexical order.
func (f *FS) Glob(pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, doublestar.ErrBadPattern
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	var matches []string
	for name := range f.files {
		if ok, _ := doublestar.Match(pattern, name); ok {
			matches = append(matches, name)
		}
	}
	for name := range f.dirs {
		if ok, _ := doublestar.Match(pattern, name); ok {
			matches = append(matches, name)
		}
	}
	sort.Strings(matches)
	return matches, nil
}

// UserHomeDir returns the fake home directory.
func (f *FS) UserHomeDir() (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.homeDir, nil
}

// Getenv returns the fake environment variable.
func (f *FS) Getenv(key string) string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.env[key]
}

// AddFile adds a file, creating its parent directories.
func (f *FS) AddFile(name string, data []byte, mode fs.FileMode) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name = filepath.Clean(name)
	f.files[name] = &fakeFile{data: data, mode: mode}
	f.addParentsLocked(name)
}

// AddDevice adds an empty character device node.
func (f *FS) AddDevice(name string) {
	f.AddFile(name, nil, fs.ModeDevice|fs.ModeCharDevice|0444)
}

// AddDir adds a directory and its parents.
func (f *FS) AddDir(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name = filepath.Clean(name)
	f.dirs[name] = true
	f.addParentsLocked(name)
}

func (f *FS) addParentsLocked(name string) {
	for dir := filepath.Dir(name); !f.dirs[dir]; dir = filepath.Dir(dir) {
		f.dirs[dir] = true
		if dir == "/" || dir == "." || strings.TrimSpace(dir) == "" {
			break
		}
	}
}

// SetHomeDir sets the fake home directory.
func (f *FS) SetHomeDir(dir string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.homeDir = dir
}

// SetEnv sets a fake environment variable.
func (f *FS) SetEnv(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.env[key] = value
}

type fakeFileInfo struct {
	name  string
	size  int64
	mode  fs.FileMode
	isDir bool
}

func (fi *fakeFileInfo) Name() string       { return fi.name }
func (fi *fakeFileInfo) Size() int64        { return fi.size }
func (fi *fakeFileInfo) Mode() fs.FileMode  { return fi.mode }
func (fi *fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (fi *fakeFileInfo) IsDir() bool        { return fi.isDir }
func (fi *fakeFileInfo) Sys() any           { return nil }

// Ensure FS implements ports.FileSystem.
var _ ports.FileSystem = (*FS)(nil)
