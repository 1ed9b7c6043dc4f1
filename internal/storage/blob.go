package storage

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// dirPerm is the mode for created blob directories.
const dirPerm = 0o755

// filePerm is the mode for written blobs.
const filePerm = 0o644

// BlobStore persists raw document and resource bytes under a root directory.
// Paths are relative to the root; the layout
// <accountID>/<sourceKey>/{html|resources}/<name> is decided by callers.
// Paths that resolve outside the root are rejected.
type BlobStore struct {
	fs   afero.Fs
	root string
}

// NewBlobStore creates a blob store rooted at root on the given filesystem.
func NewBlobStore(fs afero.Fs, root string) *BlobStore {
	return &BlobStore{fs: fs, root: root}
}

// NewOsBlobStore creates a blob store on the real filesystem.
func NewOsBlobStore(root string) *BlobStore {
	return NewBlobStore(afero.NewOsFs(), root)
}

// Write stores data at the relative path, creating parent directories as
// needed, and returns the number of bytes written.
func (s *BlobStore) Write(relPath string, data []byte) (int64, error) {
	full, err := s.resolve(relPath)
	if err != nil {
		return 0, err
	}

	if err := s.fs.MkdirAll(filepath.Dir(full), dirPerm); err != nil {
		return 0, fmt.Errorf("failed to create blob directory: %w", err)
	}

	if err := afero.WriteFile(s.fs, full, data, filePerm); err != nil {
		return 0, fmt.Errorf("failed to write blob %s: %w", relPath, err)
	}

	return int64(len(data)), nil
}

// Read returns the stored bytes at the relative path.
func (s *BlobStore) Read(relPath string) ([]byte, error) {
	full, err := s.resolve(relPath)
	if err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(s.fs, full)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", relPath, err)
	}

	return data, nil
}

// Exists reports whether a blob is stored at the relative path.
func (s *BlobStore) Exists(relPath string) (bool, error) {
	full, err := s.resolve(relPath)
	if err != nil {
		return false, err
	}

	ok, err := afero.Exists(s.fs, full)
	if err != nil {
		return false, fmt.Errorf("failed to stat blob %s: %w", relPath, err)
	}

	return ok, nil
}

// resolve joins the relative path onto the root and verifies the result is
// still contained by it. Parts of the path come from fetched article content,
// so traversal sequences must not escape the root.
func (s *BlobStore) resolve(relPath string) (string, error) {
	full := filepath.Join(s.root, filepath.FromSlash(relPath))

	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("blob path %s escapes the storage root", relPath)
	}

	return full, nil
}
