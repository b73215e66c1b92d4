// Package docreader turns staged files into plain-text documents ready for
// chunking. PDFs yield one document per page; Markdown and CSV files yield
// one document each.
package docreader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"supportlens/internal/pkg/pdfextract"
)

var ErrUnsupported = errors.New("unsupported file type")

// Document is the text of a file, or of one page of a PDF. ID is FilePath for
// whole files and "<FilePath>#page=<n>" for PDF pages.
type Document struct {
	ID       string
	FilePath string
	Text     string
}

// Supported reports whether the file's extension can be read.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".md", ".csv":
		return true
	default:
		return false
	}
}

// ReadFile reads the file at path and labels the resulting documents with
// relPath. Documents without text are dropped.
func ReadFile(path, relPath string) ([]Document, error) {
	if !Supported(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s failed: %w", relPath, err)
	}
	relPath = filepath.ToSlash(relPath)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return readPDF(raw, relPath)
	case ".md":
		return single(relPath, StripMarkdown(string(raw))), nil
	default:
		text, err := CSVText(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("parse csv %s failed: %w", relPath, err)
		}
		return single(relPath, text), nil
	}
}

func readPDF(raw []byte, relPath string) ([]Document, error) {
	pages, err := pdfextract.ExtractPages(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("extract pdf %s failed: %w", relPath, err)
	}
	docs := make([]Document, 0, len(pages))
	for _, p := range pages {
		docs = append(docs, Document{
			ID:       fmt.Sprintf("%s#page=%d", relPath, p.Number),
			FilePath: relPath,
			Text:     p.Text,
		})
	}
	return docs, nil
}

func single(relPath, text string) []Document {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return []Document{{ID: relPath, FilePath: relPath, Text: text}}
}

var (
	mdFence      = regexp.MustCompile("(?m)^[ \\t]*(```|~~~).*$")
	mdInlineCode = regexp.MustCompile("`([^`]+)`")
	mdImage      = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	mdLink       = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	mdHeading    = regexp.MustCompile(`(?m)^ {0,3}#{1,6}[ \t]+`)
	mdBold       = regexp.MustCompile(`(\*\*|__)(.+?)(\*\*|__)`)
	mdItalic     = regexp.MustCompile(`(^|[^*\w])[*_]([^*_\n]+)[*_]`)
	mdQuote      = regexp.MustCompile(`(?m)^[ \t]*>[ \t]?`)
	mdRule       = regexp.MustCompile(`(?m)^[ \t]*([-*_][ \t]*){3,}$`)
	mdHTML       = regexp.MustCompile(`<[^>]+>`)
	mdBlankRuns  = regexp.MustCompile(`\n{3,}`)
)

// StripMarkdown reduces Markdown to plain text. Code inside fences is kept,
// the fences are not; image alt text and link text replace the markup.
func StripMarkdown(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = mdFence.ReplaceAllString(s, "")
	s = mdImage.ReplaceAllString(s, "$1")
	s = mdLink.ReplaceAllString(s, "$1")
	s = mdInlineCode.ReplaceAllString(s, "$1")
	s = mdRule.ReplaceAllString(s, "")
	s = mdHeading.ReplaceAllString(s, "")
	s = mdQuote.ReplaceAllString(s, "")
	s = mdBold.ReplaceAllString(s, "$2")
	s = mdItalic.ReplaceAllString(s, "$1$2")
	s = mdHTML.ReplaceAllString(s, "")
	s = mdBlankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// CSVText renders every record, header included, as one line of
// comma-and-space separated values.
func CSVText(r io.Reader) (string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var lines []string
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		lines = append(lines, strings.Join(record, ", "))
	}
	return strings.Join(lines, "\n"), nil
}
