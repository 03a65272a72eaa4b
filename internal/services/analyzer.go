package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/rahul4469/meal-analyzer/internal/models"
)

// ImageFieldName is the multipart field the webhook reads the photo from.
const ImageFieldName = "image"

// maxResponseBytes caps how much of a webhook reply is read.
const maxResponseBytes = 4 << 20

// NutritionAnalyzer sends meal photos to the analysis webhook.
type NutritionAnalyzer struct {
	webhookURL string
	httpClient *http.Client
}

// NewNutritionAnalyzer creates a client for webhookURL. A zero timeout
// leaves the transport default in place.
func NewNutritionAnalyzer(webhookURL string, timeout time.Duration) *NutritionAnalyzer {
	return &NutritionAnalyzer{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Analyze posts img to the webhook once and returns the normalized result.
// Errors are *models.NetworkError, *models.ParseError or *models.EmptyResultError.
func (a *NutritionAnalyzer) Analyze(ctx context.Context, img *models.SelectedImage) (*models.NutritionResult, error) {
	if img == nil {
		return nil, models.ErrNoImageSelected
	}

	body, contentType, err := encodeImageForm(img)
	if err != nil {
		return nil, fmt.Errorf("failed to build request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.webhookURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, &models.NetworkError{Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &models.NetworkError{StatusCode: resp.StatusCode, Cause: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &models.NetworkError{
			StatusCode: resp.StatusCode,
			Body:       truncate(string(respBody), 512),
		}
	}

	return ParseResponse(respBody)
}

// encodeImageForm writes img as the single "image" part of a multipart form.
func encodeImageForm(img *models.SelectedImage) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	filename := img.Filename
	if filename == "" {
		filename = "meal"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		ImageFieldName, escapeQuotes(filename)))
	h.Set("Content-Type", img.MIMEType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
