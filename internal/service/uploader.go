package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/ardent-labs/sleuth/internal/model"
)

// Uploaders returns the uploaders for cfg: a directory when service.dir is
// set, standard output otherwise.
func Uploaders(_ context.Context, cfg model.Service, format Format) ([]model.Uploader, error) {
	if cfg.Dir == "" {
		return []model.Uploader{NewWriteUploader(os.Stdout)}, nil
	}
	u, err := NewOSRootUploader(cfg.Dir, format)
	if err != nil {
		return nil, err
	}
	return []model.Uploader{u}, nil
}

type WriteUploader struct {
	w io.Writer
}

func NewWriteUploader(w io.Writer) WriteUploader {
	return WriteUploader{w: w}
}

func (u WriteUploader) Upload(_ context.Context, raw []byte) error {
	if u.w == nil {
		u.w = os.Stdout
	}
	_, err := u.w.Write(raw)
	return err
}

// OSRootUploader stores every export as a timestamped file inside a directory
type OSRootUploader struct {
	root   *os.Root
	format Format
	now    func() time.Time
}

func NewOSRootUploader(path string, format Format) (*OSRootUploader, error) {
	root, err := os.OpenRoot(path)
	if err != nil {
		return nil, err
	}
	return &OSRootUploader{root: root, format: format, now: time.Now}, nil
}

// Name returns the file name an export created at t is stored under
func (u *OSRootUploader) Name(t time.Time) string {
	return "sleuth-" + t.Format("2006-01-02-15-04-05") + u.format.Ext()
}

func (u *OSRootUploader) Upload(ctx context.Context, b []byte) error {
	if u.root == nil {
		return errors.New("root already closed")
	}

	path := u.Name(u.now())

	f, err := u.root.Create(path)
	if err != nil {
		return fmt.Errorf("creating export: %w", err)
	}
	_, err = f.Write(b)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("saving export: %w", err)
	}
	err = f.Close()
	if err != nil {
		return fmt.Errorf("closing export: %w", err)
	}
	slog.InfoContext(ctx, "export saved", "path", path)
	return nil
}

func (u *OSRootUploader) Close() error {
	if u.root == nil {
		return errors.New("uploader already closed")
	}
	err := u.root.Close()
	u.root = nil
	return err
}
