//go:build !tesseract

package recognizer

import (
	"context"
	"image"
)

type defaultBackend struct{}

func newDefaultBackend(Options) (Backend, error) { return &defaultBackend{}, nil }

func (d *defaultBackend) Recognize(_ context.Context, _ image.Image, _ Options) (Result, error) {
	return Result{}, ErrNoBackend
}

func (d *defaultBackend) Close() error { return nil }
