package model

import "context"

// Uploader delivers a rendered export document somewhere: a writer, a
// directory or anything else able to store bytes.
type Uploader interface {
	Upload(ctx context.Context, raw []byte) error
}

type UploadCloser interface {
	Uploader
	Close() error
}
