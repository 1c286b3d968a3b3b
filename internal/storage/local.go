package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore writes media below a directory that the server exposes at
// baseURL.
type LocalStore struct {
	dir     string
	baseURL string
	now     func() time.Time
}

var _ MediaStore = (*LocalStore)(nil)

// NewLocalStore creates dir if needed and serves keys under baseURL.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: baseURL, now: time.Now}, nil
}

// Dir is the root directory files are written under.
func (s *LocalStore) Dir() string { return s.dir }

// Put writes the upload under a generated key below Dir.
func (s *LocalStore) Put(ctx context.Context, up Upload) (*UploadResult, error) {
	mt, err := Classify(up.Filename)
	if err != nil {
		return nil, err
	}

	key := objectKey(up, s.now().UTC())
	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create media folder: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create media file: %w", err)
	}
	n, err := io.Copy(f, up.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("write media file: %w", err)
	}

	return &UploadResult{Key: key, URL: publicURL(s.baseURL, key), MediaType: mt, Size: n}, nil
}

// Delete removes a stored file. Missing files are not an error.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return fmt.Errorf("invalid media key %q", key)
	}
	err := os.Remove(filepath.Join(s.dir, clean))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete media file: %w", err)
	}
	return nil
}
