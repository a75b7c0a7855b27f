package chat

import (
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/polychat/polychat/pkg/types"
)

// LoadAttachment turns a local file path or image URL into a content part.
// Images become ImageRef parts (local images are inlined as data URLs);
// everything else becomes a File part with base64 payload and inferred MIME
// type.
func LoadAttachment(pathOrURL string) (types.ContentPart, error) {
	if strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://") {
		return types.NewImagePart(pathOrURL, ""), nil
	}

	data, err := os.ReadFile(pathOrURL)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(pathOrURL))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	encoded := base64.StdEncoding.EncodeToString(data)

	if strings.HasPrefix(mimeType, "image/") {
		dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, encoded)
		return types.NewImagePart(dataURL, ""), nil
	}

	return &types.FilePart{
		Type:     "file",
		Name:     filepath.Base(pathOrURL),
		MimeType: mimeType,
		Data:     encoded,
	}, nil
}
