package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// OCRClient talks to the OCR sidecar service over HTTP. Recognition can be
// slow on large scans, hence the generous timeout.
type OCRClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewOCRClient(baseURL string) *OCRClient {
	return &OCRClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

type ocrResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
	Error   string `json:"error,omitempty"`
}

// Recognize runs OCR over the full image and returns whatever text the
// service found, which may legitimately be empty.
func (c *OCRClient) Recognize(ctx context.Context, r io.Reader, filename string) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fw, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return "", fmt.Errorf("copy image data: %w", err)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ocr/extract", &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ocr service status %d: %s", resp.StatusCode, string(body))
	}

	var ocrResp ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&ocrResp); err != nil {
		return "", fmt.Errorf("decode ocr response: %w", err)
	}
	if !ocrResp.Success {
		return "", fmt.Errorf("ocr processing failed: %s", ocrResp.Error)
	}
	return ocrResp.Text, nil
}

// Healthy probes the sidecar's health endpoint.
func (c *OCRClient) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Close releases resources.
func (c *OCRClient) Close() {
	c.httpClient.CloseIdleConnections()
}

// ImageExtractor recognizes text in PNG/JPEG uploads through the OCR sidecar.
// Without a configured sidecar, image uploads fail extraction.
type ImageExtractor struct {
	OCR *OCRClient
}

func (e *ImageExtractor) Extract(ctx context.Context, r io.Reader, filename string) (string, error) {
	if e.OCR == nil {
		return "", fmt.Errorf("no OCR service configured")
	}
	return e.OCR.Recognize(ctx, r, filename)
}
