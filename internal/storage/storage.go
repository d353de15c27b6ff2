package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	// ErrEmptyFile indicates an upload with no content
	ErrEmptyFile = errors.New("file is empty")

	// ErrFileTooLarge indicates an upload over the size limit
	ErrFileTooLarge = errors.New("file is too large")

	// ErrNotImage indicates an upload whose content is not an image
	ErrNotImage = errors.New("file must be an image")
)

// ValidateImage checks that data is a non-empty image no larger than maxBytes.
// The type is sniffed from the content, not taken from the filename.
// It returns the detected MIME type and its canonical extension.
func ValidateImage(data []byte, maxBytes int64) (string, string, error) {
	if len(data) == 0 {
		return "", "", ErrEmptyFile
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", "", fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, len(data), maxBytes)
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", "", fmt.Errorf("%w: got %s", ErrNotImage, mtype.String())
	}
	return mtype.String(), mtype.Extension(), nil
}

// Store persists uploaded files and returns a reference to them
type Store interface {
	Save(prefix string, data []byte, ext string) (string, error)
}

// DiskStore writes uploads into a directory on the local filesystem
type DiskStore struct {
	dir string
}

// NewDiskStore creates the upload directory if needed
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Save writes data under a generated name and returns the relative reference
func (s *DiskStore) Save(prefix string, data []byte, ext string) (string, error) {
	name := fmt.Sprintf("%s-%s%s", prefix, uuid.New().String(), ext)
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	return filepath.ToSlash(filepath.Join(filepath.Base(s.dir), name)), nil
}

// Remove deletes the file behind a reference returned by Save. A file that
// is already gone is not an error.
func (s *DiskStore) Remove(ref string) error {
	name := filepath.Base(filepath.FromSlash(ref))
	if name == "." || name == string(filepath.Separator) {
		return fmt.Errorf("invalid upload reference %q", ref)
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove upload: %w", err)
	}
	return nil
}
