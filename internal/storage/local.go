package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Directories under the upload root.
const (
	DirAttachments = "attachments"
	DirProfiles    = "profiles"
)

var ErrInvalidPath = errors.New("invalid storage path")

// Upload is a file received from a client. Size is the length the client
// declared; writers cap the copy independently of it.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// SavedFile describes a file written by Save.
type SavedFile struct {
	StoredName string
	Path       string
	Size       int64
}

// LocalStore keeps uploads on the local filesystem under root and hands out
// paths beginning with prefix, e.g. /uploads/attachments/<uuid>.pdf.
type LocalStore struct {
	root   string
	prefix string
}

func NewLocalStore(root, prefix string) *LocalStore {
	if prefix == "" {
		prefix = "/uploads"
	}
	return &LocalStore{root: root, prefix: "/" + strings.Trim(prefix, "/")}
}

// Root is the directory served under the public prefix.
func (s *LocalStore) Root() string { return s.root }

// Prefix is the public path prefix.
func (s *LocalStore) Prefix() string { return s.prefix }

// Save copies r into dir under a fresh name that keeps the extension of
// originalName.
func (s *LocalStore) Save(dir, originalName string, r io.Reader) (SavedFile, error) {
	if dir == "" || strings.ContainsAny(dir, `/\`) || dir == ".." {
		return SavedFile{}, ErrInvalidPath
	}
	target := filepath.Join(s.root, dir)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return SavedFile{}, fmt.Errorf("create %s: %w", target, err)
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	f, err := os.OpenFile(filepath.Join(target, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return SavedFile{}, fmt.Errorf("create file: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return SavedFile{}, fmt.Errorf("write file: %w", err)
	}

	return SavedFile{
		StoredName: name,
		Path:       path.Join(s.prefix, dir, name),
		Size:       n,
	}, nil
}

// Open returns a reader for a path previously returned by Save.
func (s *LocalStore) Open(p string) (io.ReadCloser, error) {
	full, err := s.resolve(p)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

// Remove deletes the file at p. A missing file is not an error.
func (s *LocalStore) Remove(p string) error {
	full, err := s.resolve(p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStore) resolve(p string) (string, error) {
	clean := path.Clean("/" + p)
	rel, ok := strings.CutPrefix(clean, s.prefix+"/")
	if !ok || rel == "" {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, filepath.FromSlash(rel)), nil
}
