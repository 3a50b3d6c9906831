// Package parser provides the document parsing adapter: a client for an HTTP
// text-extraction service that handles PDF and legacy Word files.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// DefaultServiceURL is where the extraction service listens by default.
const DefaultServiceURL = "http://localhost:8081"

// ServiceParser implements ports.DocumentParser by POSTing the raw file to
// the extraction service's /parse endpoint.
type ServiceParser struct {
	serviceURL string
	client     *http.Client
	logger     *zap.Logger
}

// NewServiceParser creates a parser client for serviceURL.
func NewServiceParser(serviceURL string, logger *zap.Logger) *ServiceParser {
	if serviceURL == "" {
		serviceURL = DefaultServiceURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ServiceParser{
		serviceURL: serviceURL,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger.Named("parser"),
	}
}

// parseResponse is the extraction service response format.
type parseResponse struct {
	Text    string `json:"text"`
	Pages   int    `json:"pages"`
	Library string `json:"library,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Parse extracts text from document bytes.
func (p *ServiceParser) Parse(ctx context.Context, data []byte, filename string) (string, error) {
	endpoint := p.serviceURL + "/parse?filename=" + url.QueryEscape(filename)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling parser service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var result parseResponse
	if err := json.Unmarshal(body, &result); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("parser service returned status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if result.Error != "" {
		return "", fmt.Errorf("parse %s: %s", filename, result.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("parser service returned status %d", resp.StatusCode)
	}

	p.logger.Debug("parsed document",
		zap.String("filename", filename),
		zap.Int("pages", result.Pages),
		zap.String("library", result.Library))
	return result.Text, nil
}

// SupportedFormats returns formats this parser handles.
func (p *ServiceParser) SupportedFormats() []string {
	return []string{"pdf", "doc"}
}

// Healthy reports whether the extraction service answers its health check.
func (p *ServiceParser) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.serviceURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
