package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	apperrors "valavatar/pkg/errors"
)

// Manager writes avatar files durably and remembers what it wrote this run
type Manager struct {
	outputDir string
	written   map[string]int64
	mu        sync.RWMutex
}

// NewManager creates a new storage manager
func NewManager(outputDir string) (*Manager, error) {
	// Create output directory if it doesn't exist
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, apperrors.New(apperrors.KindStorage, "create output directory", "",
			fmt.Errorf("failed to create output directory: %w", err))
	}

	return &Manager{
		outputDir: outputDir,
		written:   make(map[string]int64),
	}, nil
}

// Save streams r into path. Data goes to path+".tmp" first, is synced and
// closed, then renamed over path, so path only ever holds a complete file.
func (m *Manager) Save(r io.Reader, path string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, storageErr("create directory", path, err)
	}

	tempFile := path + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return 0, storageErr("create temporary file", path, err)
	}

	n, err := io.Copy(out, r)
	if err != nil {
		out.Close()
		os.Remove(tempFile)
		return n, apperrors.New(apperrors.KindNetwork, "write image", path, err)
	}

	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(tempFile)
		return n, storageErr("sync file", path, err)
	}

	if err := out.Close(); err != nil {
		os.Remove(tempFile)
		return n, storageErr("close file", path, err)
	}

	// Atomic rename
	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return n, storageErr("rename temporary file", path, err)
	}

	m.mu.Lock()
	m.written[path] = n
	m.mu.Unlock()

	return n, nil
}

// IsWritten reports whether path was saved by this manager
func (m *Manager) IsWritten(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.written[path]
	return ok
}

// Written returns the saved paths in sorted order
func (m *Manager) Written() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	paths := make([]string, 0, len(m.written))
	for p := range m.written {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// GetWrittenCount returns the number of saved files
func (m *Manager) GetWrittenCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.written)
}

func storageErr(op, path string, err error) error {
	return apperrors.New(apperrors.KindStorage, op, path, err)
}
