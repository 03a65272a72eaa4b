package services

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/rahul4469/meal-analyzer/internal/models"
)

// DefaultMaxImageBytes matches the "up to 10MB" limit shown on the upload card.
const DefaultMaxImageBytes = 10 << 20

// ImageSelector validates user-provided files and turns them into
// SelectedImages. It serves drag-and-drop, the file picker and camera
// capture alike; all three arrive as the same multipart field.
type ImageSelector struct {
	maxBytes int64
}

func NewImageSelector(maxBytes int64) *ImageSelector {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &ImageSelector{maxBytes: maxBytes}
}

// MaxBytes is the largest accepted image.
func (s *ImageSelector) MaxBytes() int64 {
	return s.maxBytes
}

// MaxSizeLabel is MaxBytes for display, e.g. "10MB".
func (s *ImageSelector) MaxSizeLabel() string {
	return formatBytes(s.maxBytes)
}

// Select reads r and returns the image, or a *models.ValidationError when
// the content is empty, too large, or not an image.
func (s *ImageSelector) Select(filename, declaredType string, r io.Reader) (*models.SelectedImage, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	if len(data) == 0 {
		return nil, &models.ValidationError{Issue: "file is empty"}
	}
	if int64(len(data)) > s.maxBytes {
		return nil, &models.ValidationError{Issue: "file is larger than " + formatBytes(s.maxBytes)}
	}

	mimeType := detectImageType(declaredType, data)
	if !strings.HasPrefix(mimeType, "image/") {
		if declared := normalizeMediaType(declaredType); strings.HasPrefix(declared, "image/") {
			return nil, &models.ValidationError{Issue: fmt.Sprintf("declared %s but the content is %s, not an image", declared, mimeType)}
		}
		return nil, &models.ValidationError{Issue: fmt.Sprintf("%s is not an image", mimeType)}
	}

	return &models.SelectedImage{
		Filename: filename,
		MIMEType: mimeType,
		Data:     data,
	}, nil
}

// SelectFileHeader is Select for an uploaded multipart file.
func (s *ImageSelector) SelectFileHeader(fh *multipart.FileHeader) (*models.SelectedImage, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	return s.Select(fh.Filename, fh.Header.Get("Content-Type"), f)
}

// detectImageType prefers the browser-declared type, but the sniffed type
// wins when the content is recognisably something other than an image.
func detectImageType(declared string, data []byte) string {
	declared = normalizeMediaType(declared)
	sniffed := normalizeMediaType(http.DetectContentType(data))

	switch {
	case declared == "" || declared == "application/octet-stream":
		return sniffed
	case strings.HasPrefix(declared, "image/"):
		// the sniffer does not know every image format (HEIC, for one)
		if strings.HasPrefix(sniffed, "image/") || sniffed == "application/octet-stream" {
			return declared
		}
		// SVG is markup and sniffs as text
		if declared == "image/svg+xml" && (sniffed == "text/xml" || sniffed == "text/plain") {
			return declared
		}
		return sniffed
	default:
		return declared
	}
}

func formatBytes(n int64) string {
	if n >= 1<<20 && n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	return fmt.Sprintf("%d bytes", n)
}

func normalizeMediaType(v string) string {
	if v == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(v)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(v))
	}
	return mediaType
}
