// Package validation checks uploaded animal photos before they reach storage:
// size limits and content sniffing. A photo that fails validation is never
// written to a backend.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const (
	// DefaultMaxPhotoSize is used when no limit is configured (5MB)
	DefaultMaxPhotoSize = 5 * 1024 * 1024
)

var (
	ErrPhotoEmpty           = errors.New("photo is empty")
	ErrPhotoTooLarge        = errors.New("photo exceeds maximum allowed size")
	ErrUnsupportedPhotoType = errors.New("photo must be a JPEG, PNG, GIF or WebP image")
)

// photoTypes maps the accepted sniffed content types to object key extensions
var photoTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Photo is a validated image held in memory
type Photo struct {
	Data        []byte
	ContentType string
	Ext         string
}

// Size returns the photo size in bytes
func (p *Photo) Size() int64 { return int64(len(p.Data)) }

// Reader returns a fresh reader over the photo bytes
func (p *Photo) Reader() io.Reader { return bytes.NewReader(p.Data) }

// ReadPhoto reads at most maxSize bytes from reader and checks that they form
// a supported image. The declared content type of the upload is ignored; the
// type is sniffed from the bytes.
func ReadPhoto(reader io.Reader, maxSize int64) (*Photo, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxPhotoSize
	}

	data, err := io.ReadAll(io.LimitReader(reader, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read photo: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrPhotoEmpty
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w (%d bytes)", ErrPhotoTooLarge, maxSize)
	}

	contentType := http.DetectContentType(data)
	ext, ok := photoTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: detected %s", ErrUnsupportedPhotoType, contentType)
	}

	return &Photo{Data: data, ContentType: contentType, Ext: ext}, nil
}
