package storage

import (
	"context"
	"errors"
	"path"
	"strings"
)

// ErrInvalidName is returned for object names that would escape the sink's
// folder.
var ErrInvalidName = errors.New("storage: invalid object name")

// Object is a finished image waiting to be stored.
type Object struct {
	Buffer      []byte
	Name        string
	Blend       string
	ContentType string
}

// Details describes where a stored object can be fetched from.
type Details struct {
	Name  string `json:"name"`
	Blend string `json:"blend"`
	URL   string `json:"url"`
}

// Sink stores rendered images and hands back a URL for each.
type Sink interface {
	Store(ctx context.Context, obj Object) (Details, error)
	Delete(ctx context.Context, name string) error
	URL(name string) string
}

// FolderSink is a Sink that can be scoped to a sub folder, such as the
// folder belonging to one QR code.
type FolderSink interface {
	Sink
	WithFolder(folder string) Sink
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return ErrInvalidName
	}
	return nil
}

func joinKey(folder, name string) string {
	if folder == "" {
		return name
	}
	return path.Join(folder, name)
}

func cleanFolder(folder string) string {
	folder = strings.Trim(path.Clean("/"+folder), "/")
	if folder == "." {
		return ""
	}
	return folder
}
