package models

import (
	"encoding/base64"
	"strings"
)

// SelectedImage is a photo accepted for analysis.
type SelectedImage struct {
	Filename string
	MIMEType string
	Data     []byte
}

// Size is the image length in bytes.
func (img *SelectedImage) Size() int {
	return len(img.Data)
}

// PreviewURL returns the image as a data URL for the preview card.
func (img *SelectedImage) PreviewURL() string {
	var b strings.Builder
	b.Grow(len("data:;base64,") + len(img.MIMEType) + base64.StdEncoding.EncodedLen(len(img.Data)))
	b.WriteString("data:")
	b.WriteString(img.MIMEType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(img.Data))
	return b.String()
}
