package storage

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// FileStore keeps document bytes under a root directory, one folder per
// submission. Paths handed out are relative to the root.
type FileStore struct {
	fs   afero.Fs
	root string
}

func NewFileStore(fs afero.Fs, root string) *FileStore {
	return &FileStore{fs: fs, root: root}
}

// NewOSFileStore stores files on the local disk under root.
func NewOSFileStore(root string) *FileStore {
	return NewFileStore(afero.NewOsFs(), root)
}

// Save writes data for a submission and returns its relative path. A name
// that is already taken on disk gets a short random prefix.
func (s *FileStore) Save(submissionID uuid.UUID, fileName string, data []byte) (string, error) {
	name := SanitizeFileName(fileName)
	dir := path.Join("submissions", submissionID.String())
	if err := s.fs.MkdirAll(s.abs(dir), 0o755); err != nil {
		return "", fmt.Errorf("create dir %s: %w", dir, err)
	}

	rel := path.Join(dir, name)
	exists, err := afero.Exists(s.fs, s.abs(rel))
	if err != nil {
		return "", err
	}
	if exists {
		rel = path.Join(dir, uuid.NewString()[:8]+"_"+name)
	}

	if err := afero.WriteFile(s.fs, s.abs(rel), data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", rel, err)
	}
	return rel, nil
}

func (s *FileStore) Read(rel string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, s.abs(rel))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	return data, nil
}

// Remove deletes a stored file; a missing file is not an error.
func (s *FileStore) Remove(rel string) error {
	if err := s.fs.Remove(s.abs(rel)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", rel, err)
	}
	return nil
}

func (s *FileStore) abs(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

// SanitizeFileName drops directory components and characters that are
// unsafe in file names.
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, strings.ContainsRune(`<>:"|?*`, r):
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == "/" || name == ".." {
		return "file"
	}
	return name
}
