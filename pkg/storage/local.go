package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalSink writes images below a directory served by the API.
type LocalSink struct {
	dir       string
	urlPrefix string
	folder    string
}

// NewLocalSink stores files in dir; URLs are urlPrefix + "/" + key.
func NewLocalSink(dir, urlPrefix string) *LocalSink {
	return &LocalSink{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/")}
}

func (s *LocalSink) WithFolder(folder string) Sink {
	cp := *s
	cp.folder = cleanFolder(joinKey(s.folder, folder))
	return &cp
}

func (s *LocalSink) Dir() string { return s.dir }

func (s *LocalSink) Store(ctx context.Context, obj Object) (Details, error) {
	if err := validName(obj.Name); err != nil {
		return Details{}, err
	}
	if err := ctx.Err(); err != nil {
		return Details{}, err
	}

	dir := filepath.Join(s.dir, filepath.FromSlash(s.folder))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Details{}, fmt.Errorf("failed to create upload directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, obj.Name), obj.Buffer, 0o644); err != nil {
		return Details{}, fmt.Errorf("failed to write %s: %w", obj.Name, err)
	}

	return Details{Name: obj.Name, Blend: obj.Blend, URL: s.URL(obj.Name)}, nil
}

// Delete removes the file. A missing file is not an error.
func (s *LocalSink) Delete(_ context.Context, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(s.folder), name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalSink) URL(name string) string {
	return s.urlPrefix + "/" + joinKey(s.folder, name)
}
