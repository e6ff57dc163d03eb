package host

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
)

// MemFS is an in-memory FileSystem for tests and the standalone CLI.
type MemFS struct {
	mu    sync.RWMutex
	files map[string]string
	dirs  map[string]bool
}

func NewMemFS() *MemFS {
	return &MemFS{
		files: map[string]string{},
		dirs:  map[string]bool{"/": true},
	}
}

func normalize(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func (m *MemFS) Read(p string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p = normalize(p)
	content, ok := m.files[p]
	if !ok {
		return "", fmt.Errorf("file not found: %s", p)
	}
	return content, nil
}

// Write creates missing parent directories, mirroring the lenient
// behavior scripts expect from the host shell.
func (m *MemFS) Write(p string, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = normalize(p)
	if m.dirs[p] {
		return fmt.Errorf("is a directory: %s", p)
	}
	m.mkdirAll(path.Dir(p))
	m.files[p] = content
	return nil
}

func (m *MemFS) Delete(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = normalize(p)
	if _, ok := m.files[p]; ok {
		delete(m.files, p)
		return nil
	}
	if m.dirs[p] {
		if p == "/" {
			return fmt.Errorf("cannot delete the root directory")
		}
		prefix := p + "/"
		for f := range m.files {
			if strings.HasPrefix(f, prefix) {
				delete(m.files, f)
			}
		}
		for d := range m.dirs {
			if d == p || strings.HasPrefix(d, prefix) {
				delete(m.dirs, d)
			}
		}
		return nil
	}
	return fmt.Errorf("file not found: %s", p)
}

func (m *MemFS) MkDir(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = normalize(p)
	if _, ok := m.files[p]; ok {
		return fmt.Errorf("file exists: %s", p)
	}
	m.mkdirAll(p)
	return nil
}

func (m *MemFS) mkdirAll(p string) {
	for !m.dirs[p] {
		m.dirs[p] = true
		p = path.Dir(p)
	}
}

func (m *MemFS) Exists(p string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p = normalize(p)
	if _, ok := m.files[p]; ok {
		return true, nil
	}
	return m.dirs[p], nil
}

// List returns the sorted names of the direct children of a directory.
func (m *MemFS) List(p string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p = normalize(p)
	if !m.dirs[p] {
		return nil, fmt.Errorf("directory not found: %s", p)
	}
	prefix := p + "/"
	if p == "/" {
		prefix = "/"
	}
	seen := map[string]bool{}
	collect := func(full string) {
		if !strings.HasPrefix(full, prefix) || full == p {
			return
		}
		rest := strings.TrimPrefix(full, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			rest = rest[:i]
		}
		if rest != "" {
			seen[rest] = true
		}
	}
	for f := range m.files {
		collect(f)
	}
	for d := range m.dirs {
		collect(d)
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}
