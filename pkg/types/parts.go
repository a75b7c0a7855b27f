package types

import (
	"encoding/json"
	"fmt"
)

// ContentPart is one typed unit of message content.
type ContentPart interface {
	PartType() string
}

// TextPart holds plain text content.
type TextPart struct {
	Type string `json:"type"` // always "text"
	Text string `json:"text"`
}

func (p *TextPart) PartType() string { return "text" }

// NewTextPart creates a text content part.
func NewTextPart(text string) *TextPart {
	return &TextPart{Type: "text", Text: text}
}

// ImagePart references an image by URL (remote or data URL).
type ImagePart struct {
	Type   string `json:"type"` // always "image_url"
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"` // "auto" | "low" | "high"
}

func (p *ImagePart) PartType() string { return "image_url" }

// NewImagePart creates an image content part with the given detail level.
func NewImagePart(url, detail string) *ImagePart {
	if detail == "" {
		detail = "auto"
	}
	return &ImagePart{Type: "image_url", URL: url, Detail: detail}
}

// FilePart carries an inline file attachment.
type FilePart struct {
	Type     string `json:"type"` // always "file"
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64 payload
}

func (p *FilePart) PartType() string { return "file" }

// UnmarshalPart decodes a JSON content part into its concrete type.
func UnmarshalPart(data []byte) (ContentPart, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	switch probe.Type {
	case "text":
		var p TextPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case "image_url":
		var p ImagePart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case "file":
		var p FilePart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	default:
		return nil, fmt.Errorf("unknown content part type %q", probe.Type)
	}
}
