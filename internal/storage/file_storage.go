package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/beauty-engine/backend/internal/export"
)

// ErrNotFound is returned by Get for an unknown report id.
var ErrNotFound = errors.New("report not found")

// ReportStorage defines the interface for archiving generated reports
type ReportStorage interface {
	Save(report *export.Report) error
	Get(id string) (*export.Report, error)
	List() ([]string, error)
	Close() error
}

// FileStorage implements ReportStorage using the local file system
type FileStorage struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileStorage creates a new file-based storage
func NewFileStorage(baseDir string) (*FileStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStorage{
		baseDir: baseDir,
	}, nil
}

// Save writes the report to a JSON file named after its id
func (fs *FileStorage) Save(report *export.Report) error {
	filename, err := safeFilename(report.ID)
	if err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.WriteFile(filepath.Join(fs.baseDir, filename), data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// Get retrieves a report from disk
func (fs *FileStorage) Get(id string) (*export.Report, error) {
	filename, err := safeFilename(id)
	if err != nil {
		return nil, ErrNotFound
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(fs.baseDir, filename))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var report export.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}

	return &report, nil
}

// List returns the ids of all archived reports, sorted
func (fs *FileStorage) List() ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	entries, err := os.ReadDir(fs.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list storage directory: %w", err)
	}

	var ids []string
	for _, e := range entries {
		id, ok := strings.CutSuffix(e.Name(), ".json")
		if !ok || e.IsDir() {
			continue
		}
		if _, err := uuid.Parse(id); err == nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Close is a no-op for file storage
func (fs *FileStorage) Close() error {
	return nil
}

// safeFilename maps a report id to its file name. Only canonical UUIDs are
// accepted, so ids can never escape the storage directory.
func safeFilename(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("invalid report id %q: %w", id, err)
	}
	return parsed.String() + ".json", nil
}
