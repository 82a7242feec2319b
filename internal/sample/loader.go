package sample

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Loader fetches and decodes the asset a sample ref names.
type Loader interface {
	Load(ctx context.Context, ref string) (*Buffer, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, ref string) (*Buffer, error)

func (f LoaderFunc) Load(ctx context.Context, ref string) (*Buffer, error) {
	return f(ctx, ref)
}

// FSLoader loads refs as slash-separated paths inside a file system.
type FSLoader struct {
	fsys       fs.FS
	sampleRate int
}

// NewFSLoader returns a loader that decodes files from fsys at sampleRate.
func NewFSLoader(fsys fs.FS, sampleRate int) *FSLoader {
	return &FSLoader{fsys: fsys, sampleRate: sampleRate}
}

// NewDirLoader loads refs relative to a directory on disk.
func NewDirLoader(dir string, sampleRate int) *FSLoader {
	return NewFSLoader(os.DirFS(dir), sampleRate)
}

func (l *FSLoader) Load(ctx context.Context, ref string) (*Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := strings.TrimPrefix(ref, "/")
	raw, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return nil, errors.Wrapf(err, "open sample %q", ref)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Decode(name, bytes.NewReader(raw), l.sampleRate)
}

// List returns the decodable files directly inside dir of fsys, sorted.
func List(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, errors.Wrapf(err, "list %q", dir)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !Supported(e.Name()) {
			continue
		}
		if dir == "." || dir == "" {
			names = append(names, e.Name())
		} else {
			names = append(names, dir+"/"+e.Name())
		}
	}
	return names, nil
}

// Supported reports whether Decode has a decoder for name's extension.
func Supported(name string) bool {
	n := strings.ToLower(name)
	for _, ext := range []string{".wav", ".wave", ".mp3", ".ogg", ".oga"} {
		if strings.HasSuffix(n, ext) {
			return true
		}
	}
	return false
}
