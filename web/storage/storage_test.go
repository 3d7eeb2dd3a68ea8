package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestLocalUpload(t *testing.T) {
	dir := t.TempDir()
	s := NewLocal(dir, "http://localhost:8080/uploads/")

	url, err := s.Upload(context.Background(), "profiles/u1.png", pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/profiles/u1.png", url)

	got, err := os.ReadFile(filepath.Join(dir, "profiles", "u1.png"))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, got)
}

func TestLocalUploadRejectsTraversal(t *testing.T) {
	s := NewLocal(t.TempDir(), "http://x")
	for _, p := range []string{"", "../etc/passwd", "a/../../b", "a\\b", "a/./b"} {
		_, err := s.Upload(context.Background(), p, pngHeader)
		assert.ErrorIs(t, err, ErrBadPath, p)
	}
}

func TestDetectImage(t *testing.T) {
	mime, ext, err := DetectImage(pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, ".png", ext)

	_, _, err = DetectImage([]byte("hello, plain text"))
	assert.Error(t, err)
}
