package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"summarize-backend/internal/shared/storage/object"
	"summarize-backend/internal/shared/util"
)

// Store implements ObjectStore using the local filesystem.
type Store struct {
	baseDir string
}

// New creates a new local object store rooted at baseDir.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Save writes the reader to disk under the owner's namespace with a random prefix.
func (s *Store) Save(ctx context.Context, ownerID string, fileName string, r io.Reader) (object.Info, error) {
	sanitizedName, err := util.SanitizeFileName(fileName)
	if err != nil {
		return object.Info{}, fmt.Errorf("sanitize file name: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return object.Info{}, err
	}

	ownerKey := util.OwnerKey(ownerID)
	finalName := fmt.Sprintf("%s_%s", uuid.NewString(), sanitizedName)

	dirPath := filepath.Join(s.baseDir, ownerKey)
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return object.Info{}, fmt.Errorf("mkdir: %w", err)
	}

	head, contentType, err := object.Sniff(r)
	if err != nil {
		return object.Info{}, fmt.Errorf("read sniff: %w", err)
	}

	fullPath := filepath.Join(dirPath, finalName)
	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return object.Info{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	size := int64(0)
	if len(head) > 0 {
		if _, err := f.Write(head); err != nil {
			return object.Info{}, fmt.Errorf("write sniff: %w", err)
		}
		size += int64(len(head))
	}
	written, err := io.Copy(f, r)
	if err != nil {
		return object.Info{}, fmt.Errorf("write body: %w", err)
	}
	size += written

	return object.Info{
		Key:         filepath.ToSlash(filepath.Join(ownerKey, finalName)),
		Size:        size,
		ContentType: contentType,
	}, nil
}

// Open opens a stored object for reading.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, object.ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("open: %w", err)
	}
	return f, nil
}

// Delete removes a stored object. Missing objects are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

func (s *Store) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", object.ErrInvalidKey
	}
	return filepath.Join(s.baseDir, clean), nil
}

var _ object.ObjectStore = (*Store)(nil)
