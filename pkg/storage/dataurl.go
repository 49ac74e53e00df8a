package storage

import (
	"context"
	"encoding/base64"
)

// DataURLSink inlines images as base64 data URLs. Nothing is persisted, so it
// is used for previews.
type DataURLSink struct{}

func NewDataURLSink() DataURLSink { return DataURLSink{} }

func (DataURLSink) Store(_ context.Context, obj Object) (Details, error) {
	mime := obj.ContentType
	if mime == "" {
		mime = "application/octet-stream"
	}
	return Details{
		Name:  obj.Name,
		Blend: obj.Blend,
		URL:   "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(obj.Buffer),
	}, nil
}

func (DataURLSink) Delete(context.Context, string) error { return nil }

// URL is empty because the data only exists in the Store result.
func (DataURLSink) URL(string) string { return "" }
