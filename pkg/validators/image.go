package validators

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"slices"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrNoFile               = errors.New("no file provided")
	ErrFileTooLarge         = errors.New("file too large")
	ErrFileNameTooLong      = errors.New("file name is too long")
	ErrImageTypeUnsupported = errors.New("unsupported image type")
)

const maxFileNameSize = 255

// ImageRules limits what an uploaded product image may be
type ImageRules struct {
	MaxSize      int64    // bytes
	AllowedTypes []string // MIME types, e.g. image/png
}

// ImageValidator checks the header first and then sniffs the actual content,
// since the Content-Type header is trivial to spoof. On success it returns the
// opened file rewound to the start together with its detected MIME type.
func ImageValidator(fh *multipart.FileHeader, r ImageRules) (code int, f multipart.File, mime string, err error) {
	if fh == nil {
		return http.StatusBadRequest, nil, "", ErrNoFile
	}

	if len(fh.Filename) > maxFileNameSize {
		return http.StatusBadRequest, nil, "", ErrFileNameTooLong
	}

	if r.MaxSize > 0 && fh.Size > r.MaxSize {
		return http.StatusRequestEntityTooLarge, nil, "", ErrFileTooLarge
	}

	f, err = fh.Open()
	if err != nil {
		return http.StatusInternalServerError, nil, "", fmt.Errorf("failed to open multipart file, %w", err)
	}

	detected, err := mimetype.DetectReader(f)
	if err != nil {
		f.Close()
		return http.StatusInternalServerError, nil, "", fmt.Errorf("failed to detect mime type, %w", err)
	}

	if !slices.ContainsFunc(r.AllowedTypes, detected.Is) {
		f.Close()
		return http.StatusBadRequest, nil, "", ErrImageTypeUnsupported
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return http.StatusInternalServerError, nil, "", fmt.Errorf("failed to rewind file, %w", err)
	}

	return 0, f, detected.String(), nil
}
