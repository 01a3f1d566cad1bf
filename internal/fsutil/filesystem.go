// Package fsutil provides the filesystem abstraction used by trace loaders and
// report exporters, so both can run against an in-memory tree in tests.
package fsutil

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FileSystem is the set of filesystem operations the loaders, exporters and
// CLI use. OSFileSystem is the real one; MemoryFileSystem backs tests.
type FileSystem interface {
	Open(name string) (fs.File, error)
	// Create creates or truncates name. The parent directory must exist on
	// disk; MemoryFileSystem creates it implicitly.
	Create(name string) (io.WriteCloser, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
	Stat(name string) (fs.FileInfo, error)
	MkdirAll(path string, perm os.FileMode) error
	// ReadDir lists the entries of a directory sorted by name.
	ReadDir(name string) ([]fs.DirEntry, error)
	Exists(name string) bool
}

// OSFileSystem implements FileSystem with the os package.
type OSFileSystem struct{}

func (OSFileSystem) Open(name string) (fs.File, error)          { return os.Open(name) }
func (OSFileSystem) Create(name string) (io.WriteCloser, error) { return os.Create(name) }
func (OSFileSystem) ReadFile(name string) ([]byte, error)       { return os.ReadFile(name) }
func (OSFileSystem) Stat(name string) (fs.FileInfo, error)      { return os.Stat(name) }
func (OSFileSystem) ReadDir(name string) ([]fs.DirEntry, error) { return os.ReadDir(name) }

func (OSFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}

func (OSFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (OSFileSystem) Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// MemoryFileSystem is an in-memory tree keyed by cleaned path. Writing a
// file creates its ancestors. Safe for concurrent use.
type MemoryFileSystem struct {
	mu    sync.RWMutex
	nodes map[string]*memNode
}

type memNode struct {
	data []byte
	mode os.FileMode
	dir  bool
}

// NewMemoryFileSystem returns an empty tree containing only the root.
func NewMemoryFileSystem() *MemoryFileSystem {
	return &MemoryFileSystem{nodes: map[string]*memNode{
		"/": {dir: true, mode: 0o755},
		".": {dir: true, mode: 0o755},
	}}
}

func notExist(op, name string) error {
	return &fs.PathError{Op: op, Path: name, Err: fs.ErrNotExist}
}

// file returns the regular file at name. Caller holds mu.
func (m *MemoryFileSystem) file(op, name string) (*memNode, error) {
	n, ok := m.nodes[name]
	if !ok || n.dir {
		return nil, notExist(op, name)
	}
	return n, nil
}

func (m *MemoryFileSystem) Open(name string) (fs.File, error) {
	name = filepath.Clean(name)
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, err := m.file("open", name)
	if err != nil {
		return nil, err
	}
	return &memReader{Reader: bytes.NewReader(n.data), info: n.info(name)}, nil
}

// Create truncates name immediately; the written content appears on Close.
func (m *MemoryFileSystem) Create(name string) (io.WriteCloser, error) {
	name = filepath.Clean(name)
	m.put(name, nil, 0o644)
	return &memWriter{fs: m, name: name}, nil
}

func (m *MemoryFileSystem) ReadFile(name string) ([]byte, error) {
	name = filepath.Clean(name)
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, err := m.file("read", name)
	if err != nil {
		return nil, err
	}
	return bytes.Clone(n.data), nil
}

func (m *MemoryFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	m.put(filepath.Clean(name), bytes.Clone(data), perm)
	return nil
}

func (m *MemoryFileSystem) Stat(name string) (fs.FileInfo, error) {
	name = filepath.Clean(name)
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[name]
	if !ok {
		return nil, notExist("stat", name)
	}
	return n.info(name), nil
}

func (m *MemoryFileSystem) MkdirAll(path string, perm os.FileMode) error {
	path = filepath.Clean(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mkdirLocked(path, perm)
	return nil
}

func (m *MemoryFileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	name = filepath.Clean(name)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n, ok := m.nodes[name]; !ok || !n.dir {
		return nil, notExist("readdir", name)
	}
	var entries []fs.DirEntry
	for p, n := range m.nodes {
		if p != name && filepath.Dir(p) == name {
			entries = append(entries, fs.FileInfoToDirEntry(n.info(p)))
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

func (m *MemoryFileSystem) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.nodes[filepath.Clean(name)]
	return ok
}

func (m *MemoryFileSystem) put(name string, data []byte, perm os.FileMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mkdirLocked(filepath.Dir(name), 0o755)
	m.nodes[name] = &memNode{data: data, mode: perm}
}

// mkdirLocked records path and its ancestors as directories. Caller holds mu.
func (m *MemoryFileSystem) mkdirLocked(path string, perm os.FileMode) {
	for p := path; ; p = filepath.Dir(p) {
		if n, ok := m.nodes[p]; !ok || !n.dir {
			m.nodes[p] = &memNode{dir: true, mode: perm}
		}
		if filepath.Dir(p) == p {
			return
		}
	}
}

func (n *memNode) info(name string) fs.FileInfo {
	return memInfo{name: filepath.Base(name), size: int64(len(n.data)), mode: n.mode, dir: n.dir}
}

type memInfo struct {
	name string
	size int64
	mode os.FileMode
	dir  bool
}

func (i memInfo) Name() string       { return i.name }
func (i memInfo) Size() int64        { return i.size }
func (i memInfo) ModTime() time.Time { return time.Time{} }
func (i memInfo) IsDir() bool        { return i.dir }
func (i memInfo) Sys() any           { return nil }

func (i memInfo) Mode() fs.FileMode {
	if i.dir {
		return i.mode | fs.ModeDir
	}
	return i.mode
}

type memReader struct {
	*bytes.Reader
	info fs.FileInfo
}

func (r *memReader) Stat() (fs.FileInfo, error) { return r.info, nil }
func (r *memReader) Close() error               { return nil }

type memWriter struct {
	bytes.Buffer
	fs   *MemoryFileSystem
	name string
}

func (w *memWriter) Close() error {
	w.fs.put(w.name, bytes.Clone(w.Bytes()), 0o644)
	return nil
}
