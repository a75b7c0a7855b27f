package chat

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polychat/polychat/pkg/types"
)

func TestLoadAttachmentURL(t *testing.T) {
	part, err := LoadAttachment("https://example.com/cat.png")
	require.NoError(t, err)

	img, ok := part.(*types.ImagePart)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/cat.png", img.URL)
	assert.Equal(t, "auto", img.Detail)
}

func TestLoadAttachmentLocalImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pixel.png")
	require.NoError(t, os.WriteFile(path, []byte{0x89, 0x50, 0x4e, 0x47}, 0o644))

	part, err := LoadAttachment(path)
	require.NoError(t, err)

	img, ok := part.(*types.ImagePart)
	require.True(t, ok)
	assert.Contains(t, img.URL, "data:image/png;base64,")
}

func TestLoadAttachmentFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	part, err := LoadAttachment(path)
	require.NoError(t, err)

	file, ok := part.(*types.FilePart)
	require.True(t, ok)
	assert.Equal(t, "notes.txt", file.Name)
	assert.Contains(t, file.MimeType, "text/plain")
	assert.Equal(t, "aGVsbG8=", file.Data)
}

func TestLoadAttachmentMissingFile(t *testing.T) {
	_, err := LoadAttachment("/nonexistent/file.bin")
	assert.Error(t, err)
}
