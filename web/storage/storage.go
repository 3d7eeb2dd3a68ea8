// Package storage is the object store for profile photos.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var ErrBadPath = errors.New("invalid object path")

type ObjectStore interface {
	// Upload stores data under objectPath and returns a URL it can be fetched from.
	Upload(ctx context.Context, objectPath string, data []byte) (string, error)
}

// Local writes objects below Dir; they are served at BaseURL (the web service
// mounts Dir on /uploads).
type Local struct {
	Dir     string
	BaseURL string
}

func NewLocal(dir, baseURL string) *Local {
	return &Local{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}
}

func cleanPath(p string) (string, error) {
	if p == "" || strings.Contains(p, "\\") {
		return "", ErrBadPath
	}
	clean := path.Clean("/" + p)[1:]
	if clean == "" || clean != strings.TrimPrefix(p, "/") {
		return "", ErrBadPath
	}
	return clean, nil
}

func (l *Local) Upload(ctx context.Context, objectPath string, data []byte) (string, error) {
	rel, err := cleanPath(objectPath)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	full := filepath.Join(l.Dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return l.BaseURL + "/" + rel, nil
}

// DetectImage sniffs data and returns its MIME type and canonical extension,
// or an error when it is not a supported image.
func DetectImage(data []byte) (string, string, error) {
	mt := mimetype.Detect(data)
	for _, allowed := range []string{"image/jpeg", "image/png", "image/gif", "image/webp"} {
		if mt.Is(allowed) {
			return mt.String(), mt.Extension(), nil
		}
	}
	return "", "", fmt.Errorf("unsupported content type %s", mt.String())
}
