// Package screenshot stores the PNG captures of a rendered session.
package screenshot

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidName is returned for names that could escape the store.
	ErrInvalidName = errors.New("invalid screenshot name")
	// ErrNotFound is returned when no stored file has the given name.
	ErrNotFound = errors.New("screenshot not found")
)

// Sink turns captured PNG bytes into the reference stored in the record.
type Sink interface {
	Save(label string, png []byte) (string, error)
}

// Info describes one stored screenshot.
type Info struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// FileStore writes screenshots as files under one directory.
type FileStore struct {
	dir      string
	now      func() time.Time
	cleaning sync.Mutex
}

var _ Sink = (*FileStore)(nil)

// NewFileStore creates dir if needed. now stamps file names and drives
// Cleanup; nil means time.Now.
func NewFileStore(dir string, now func() time.Time) (*FileStore, error) {
	if now == nil {
		now = time.Now
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("screenshot: create dir: %w", err)
	}
	return &FileStore{dir: dir, now: now}, nil
}

// Dir returns the directory files are written to.
func (s *FileStore) Dir() string { return s.dir }

// Save writes png as <timestamp>_<id>_<label>.png and returns its path.
func (s *FileStore) Save(label string, png []byte) (string, error) {
	name := fmt.Sprintf("%s_%s_%s.png",
		s.now().Format("20060102_150405"),
		uuid.NewString()[:8],
		label,
	)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("screenshot: write %s: %w", name, err)
	}
	return path, nil
}

// List returns stored PNGs, newest first.
func (s *FileStore) List() ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("screenshot: list: %w", err)
	}

	out := make([]Info, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".png") {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Info{Name: e.Name(), Size: fi.Size(), ModTime: fi.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModTime.After(out[j].ModTime) })
	return out, nil
}

// Count returns the number of stored PNGs, 0 if the directory is unreadable.
func (s *FileStore) Count() int {
	list, err := s.List()
	if err != nil {
		return 0
	}
	return len(list)
}

// Path resolves a stored file name to its path.
func (s *FileStore) Path(name string) (string, error) {
	if !ValidName(name) {
		return "", ErrInvalidName
	}
	path := filepath.Join(s.dir, name)
	fi, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && fi.IsDir()) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("screenshot: stat %s: %w", name, err)
	}
	return path, nil
}

// Cleanup removes PNGs older than maxAge and returns how many went. A call
// made while another is running returns immediately.
func (s *FileStore) Cleanup(maxAge time.Duration) (int, error) {
	if !s.cleaning.TryLock() {
		return 0, nil
	}
	defer s.cleaning.Unlock()

	list, err := s.List()
	if err != nil {
		return 0, err
	}
	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, f := range list {
		if !f.ModTime.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, f.Name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("screenshot: remove %s: %w", f.Name, err)
		}
		removed++
	}
	return removed, nil
}

// ValidName reports whether name is a bare file name.
func ValidName(name string) bool {
	return name != "" &&
		!strings.Contains(name, "/") &&
		!strings.Contains(name, `\`) &&
		!strings.Contains(name, "..")
}

// Base64Sink inlines screenshots as data URIs.
type Base64Sink struct{}

var _ Sink = Base64Sink{}

func (Base64Sink) Save(_ string, png []byte) (string, error) {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
