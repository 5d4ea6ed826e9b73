package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// MIME types accepted by the ingestion pipeline. Anything else is rejected
// at upload time and never reaches Text.
const (
	MimeText = "text/plain"
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// ErrEmptyPDF is returned when a PDF yields no text after cleanup.
var ErrEmptyPDF = errors.New("pdf contains no extractable text")

var docxStrip = regexp.MustCompile(`[^a-zA-Z0-9\s.]+`)

// Supported reports whether the mime type is on the upload allow-list.
func Supported(mimeType string) bool {
	switch mimeType {
	case MimeText, MimePDF, MimeDOCX:
		return true
	default:
		return false
	}
}

// Text converts raw document bytes to plain text based on the mime type.
// Library used: github.com/ledongthuc/pdf for PDF parsing.
func Text(ctx context.Context, data []byte, mimeType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch mimeType {
	case MimeText:
		return string(data), nil
	case MimePDF:
		return extractPDF(data)
	case MimeDOCX:
		return extractDOCX(data), nil
	default:
		return "", fmt.Errorf("unsupported mime type: %s", mimeType)
	}
}

func extractPDF(data []byte) (text string, err error) {
	// The pdf package panics on some malformed inputs; a bad upload must
	// surface as an error, not take down the worker goroutine.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}

	cleaned := cleanupPDFText(buf.String())
	if cleaned == "" {
		return "", ErrEmptyPDF
	}
	return cleaned, nil
}

// cleanupPDFText collapses whitespace runs to a single space, keeping a
// single newline when the run crossed a line boundary.
func cleanupPDFText(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	inRun := false
	runHasNewline := false
	for _, r := range raw {
		switch r {
		case ' ', '\t', '\r', '\f', '\v':
			inRun = true
		case '\n':
			inRun = true
			runHasNewline = true
		default:
			if inRun {
				if runHasNewline {
					b.WriteByte('\n')
				} else {
					b.WriteByte(' ')
				}
				inRun = false
				runHasNewline = false
			}
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// extractDOCX is a best-effort conversion: decode as UTF-8 and keep only
// letters, digits, whitespace and periods. It does not unpack the OOXML
// container.
func extractDOCX(data []byte) string {
	return docxStrip.ReplaceAllString(string(data), "")
}
