// Package blobstore implements the local-disk store for uploaded images.
// Stored files get a random name under a sub directory of the upload dir;
// the relative path is what gets persisted on the owning record.
package blobstore

import (
	"errors"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/silkcms/silk-admin/internal/uniuri"
)

// nameLen is the length of generated file names.
const nameLen = 32

// ErrInvalidPath is returned for stored paths escaping the upload directory.
var ErrInvalidPath = errors.New("invalid storage path")

// Store is a local-disk blob store rooted at one directory.
type Store struct {
	dir     string
	baseURL string
}

// New creates a Store writing below dir and building absolute URLs from baseURL.
func New(dir, baseURL string) *Store {
	return &Store{
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Save stores an uploaded file under subdir with a generated name and
// returns the relative path to persist.
func (s *Store) Save(file *multipart.FileHeader, subdir string) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	relPath := path.Join(subdir, uniuri.NewLen(nameLen)+strings.ToLower(filepath.Ext(file.Filename)))

	absPath, err := s.abs(relPath)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o750); err != nil {
		return "", err
	}

	dst, err := os.Create(absPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}

	return relPath, nil
}

// Delete removes a stored file. A missing file is not an error.
func (s *Store) Delete(relPath string) error {
	if relPath == "" {
		return nil
	}

	absPath, err := s.abs(relPath)
	if err != nil {
		return err
	}

	err = os.Remove(absPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}

// URL builds the absolute URL a stored path is served under.
func (s *Store) URL(relPath string) string {
	if relPath == "" {
		return ""
	}

	return s.baseURL + "/storage/" + relPath
}

// Dir returns the root directory of the store.
func (s *Store) Dir() string {
	return s.dir
}

// abs resolves a relative stored path, rejecting traversal outside the root.
func (s *Store) abs(relPath string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(relPath))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", ErrInvalidPath
	}

	return filepath.Join(s.dir, clean), nil
}
