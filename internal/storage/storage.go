// Package storage keeps uploaded payment proofs and hands back the public URL
// they are served from.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type FileStorage interface {
	Upload(ctx context.Context, folder, fileName string, r io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}

type localStorage struct {
	dir     string
	baseURL string
}

func NewLocalStorage(dir, publicBaseURL string) (FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &localStorage{
		dir:     dir,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

func (s *localStorage) Upload(ctx context.Context, folder, fileName string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(fileName))
	target := filepath.Join(s.dir, folder, name)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}

	f, err := os.Create(target)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(target)
		return "", fmt.Errorf("write %s: %w", name, err)
	}

	return s.baseURL + "/" + path.Join(folder, name), nil
}

func (s *localStorage) Delete(ctx context.Context, url string) error {
	rel, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok {
		return fmt.Errorf("url %s not owned by this storage", url)
	}
	rel = path.Clean(rel)
	if strings.HasPrefix(rel, "..") {
		return fmt.Errorf("url %s escapes storage root", url)
	}
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
