package convert

import (
	"context"
	"time"
)

// TextExtractor runs pdftotext and returns the document text.
type TextExtractor struct {
	tool    string
	timeout time.Duration
}

var _ Extractor = (*TextExtractor)(nil)

// NewTextExtractor creates an extractor running tool.
func NewTextExtractor(tool string, timeout time.Duration) *TextExtractor {
	return &TextExtractor{tool: tool, timeout: timeout}
}

// Extract implements Extractor.
func (e *TextExtractor) Extract(ctx context.Context, path string) (string, error) {
	out, err := run(ctx, e.timeout, e.tool, "-enc", "UTF-8", "-q", path, "-")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
