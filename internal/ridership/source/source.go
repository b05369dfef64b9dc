// Package source opens the byte streams the pipeline loads ridership data from.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/ridership3d/pkg/ridership/models"
)

// Source yields a seekable stream of raw CSV bytes. Callers must Close the
// stream once decoding has finished, whatever the outcome.
type Source interface {
	Kind() models.SourceKind
	Name() string
	Open(ctx context.Context) (io.ReadSeekCloser, error)
}

// Upload is an in-memory file received from a user.
type Upload struct {
	name string
	data []byte
}

func NewUpload(name string, data []byte) *Upload {
	return &Upload{name: name, data: data}
}

func (u *Upload) Kind() models.SourceKind { return models.SourceUpload }
func (u *Upload) Name() string            { return u.name }

func (u *Upload) Open(ctx context.Context) (io.ReadSeekCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nopCloser{bytes.NewReader(u.data)}, nil
}

type nopCloser struct {
	io.ReadSeeker
}

func (nopCloser) Close() error { return nil }

// File is the curated dataset on the local filesystem.
type File struct {
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Kind() models.SourceKind { return models.SourceFixed }
func (f *File) Name() string            { return f.path }

func (f *File) Open(ctx context.Context) (io.ReadSeekCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("data file not found: %s: %w", f.path, err)
	}
	if err != nil {
		return nil, fmt.Errorf("opening data file %s: %w", f.path, err)
	}
	return file, nil
}
