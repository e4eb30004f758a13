// Package blob stores uploaded media on an afero filesystem and serves it back.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const tmpDir = "tmp"

// ErrEmptyFile is returned when an upload has no content.
var ErrEmptyFile = errors.New("uploaded file is empty")

// File is an upload waiting to be stored.
type File struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// Store persists uploads and returns their public URL.
type Store interface {
	Put(ctx context.Context, folder string, file File) (string, error)
}

// FSStore writes uploads under root on fs and builds URLs from baseURL.
type FSStore struct {
	fs      afero.Fs
	root    string
	baseURL string
}

// NewFSStore returns a store rooted at root. baseURL is the public prefix the
// upload handler is mounted on, for example http://localhost:5000/uploads.
func NewFSStore(fs afero.Fs, root, baseURL string) *FSStore {
	return &FSStore{fs: fs, root: filepath.Clean(root), baseURL: strings.TrimRight(baseURL, "/")}
}

// Put stages the upload under tmp/ and moves it into folder once fully written.
func (s *FSStore) Put(ctx context.Context, folder string, file File) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if file.Body == nil {
		return "", ErrEmptyFile
	}

	folder = strings.Trim(path.Clean("/"+folder), "/")
	name := uuid.NewString() + strings.ToLower(path.Ext(file.Name))

	staging := filepath.Join(s.root, tmpDir)
	target := filepath.Join(s.root, filepath.FromSlash(folder))
	for _, dir := range []string{staging, target} {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create upload dir: %w", err)
		}
	}

	stagedPath := filepath.Join(staging, name)
	f, err := s.fs.Create(stagedPath)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	written, err := io.Copy(f, file.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && written == 0 {
		err = ErrEmptyFile
	}
	if err != nil {
		_ = s.fs.Remove(stagedPath)
		if errors.Is(err, ErrEmptyFile) {
			return "", err
		}
		return "", fmt.Errorf("write upload: %w", err)
	}

	if err := s.fs.Rename(stagedPath, filepath.Join(target, name)); err != nil {
		_ = s.fs.Remove(stagedPath)
		return "", fmt.Errorf("move upload: %w", err)
	}

	return s.baseURL + "/" + path.Join(folder, name), nil
}

// Handler serves stored uploads. Staged files under tmp/ are not exposed.
func (s *FSStore) Handler() http.Handler {
	files := http.FileServer(afero.NewHttpFs(s.fs).Dir(s.root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clean := path.Clean("/" + r.URL.Path)
		if clean == "/"+tmpDir || strings.HasPrefix(clean, "/"+tmpDir+"/") || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}
