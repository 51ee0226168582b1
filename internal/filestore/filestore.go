// Package filestore keeps uploaded avatar files and hands back the public url to reach them
package filestore

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/nkiryanov/expensify/internal/apperrors"
)

// Uploaded file as it comes from the client
type Upload struct {
	Filename string
	Body     io.Reader
}

type Store interface {
	// Save upload and return url the file is reachable by
	Put(ctx context.Context, upload Upload) (string, error)

	// Remove file previously returned by Put
	// Unknown url is not an error
	Delete(ctx context.Context, url string) error
}

// Accepted extensions and the content type files are served with
var imageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Content type of the image by its file name
// apperrors.ErrAvatarNotImage for anything but known image extensions
func ImageType(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	contentType, ok := imageTypes[ext]
	if !ok {
		return "", fmt.Errorf("%w: got %q", apperrors.ErrAvatarNotImage, ext)
	}
	return contentType, nil
}

// Random object name keeping the image extension
func objectName(filename string) (name string, contentType string, err error) {
	contentType, err = ImageType(filename)
	if err != nil {
		return "", "", err
	}
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	return uuid.NewString() + ext, contentType, nil
}
