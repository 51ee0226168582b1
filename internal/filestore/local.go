package filestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const DefaultURLPrefix = "/uploads/"

// Keep files on local disk, router serves them under URLPrefix
type Local struct {
	dir    string
	prefix string
}

func NewLocal(dir string, urlPrefix string) (*Local, error) {
	if urlPrefix == "" {
		urlPrefix = DefaultURLPrefix
	}
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("can't create upload dir. Err: %w", err)
	}

	return &Local{dir: dir, prefix: urlPrefix}, nil
}

func (s *Local) Dir() string { return s.dir }

func (s *Local) Put(ctx context.Context, upload Upload) (string, error) {
	name, _, err := objectName(upload.Filename)
	if err != nil {
		return "", err
	}

	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("can't create file. Err: %w", err)
	}

	_, err = io.Copy(f, upload.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("can't write file. Err: %w", err)
	}

	return s.prefix + name, nil
}

func (s *Local) Delete(ctx context.Context, url string) error {
	name, ok := strings.CutPrefix(url, s.prefix)
	if !ok || name == "" || name != path.Base(name) {
		return nil
	}

	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("can't remove file. Err: %w", err)
	}
	return nil
}
