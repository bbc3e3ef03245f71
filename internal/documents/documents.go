// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package documents finds project submissions on disk and reads them as
// plain text. Markdown is the primary format; PDF submissions are read
// through a text extractor and office documents through a markitdown
// container.
package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding/charmap"
)

// Format is a supported submission file format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
	FormatOffice   Format = "office"
)

// extensions maps file extensions to formats, in shadowing order: when two
// files share a stem, the earlier format wins.
var extensions = []struct {
	ext    string
	format Format
}{
	{".md", FormatMarkdown},
	{".pdf", FormatPDF},
	{".docx", FormatOffice},
	{".pptx", FormatOffice},
	{".odt", FormatOffice},
}

// Document is one project submission.
type Document struct {
	// ID is the file name without extension.
	ID     string
	Path   string
	Format Format
}

// Reader turns a submission file into plain text. Per-format backends
// implement it. Read returns when ctx is done even if the backend is
// still working.
type Reader interface {
	Read(ctx context.Context, path string) (string, error)
}

// ReadTimeout bounds the conversion of one submission.
var ReadTimeout = 2 * time.Minute

// ErrReadTimeout is returned when a conversion exceeds ReadTimeout.
var ErrReadTimeout = errors.New("document conversion timed out")

var readers = map[Format]Reader{
	FormatMarkdown: markdownReader{},
	FormatPDF:      pdfReader{extract: extractPDFText},
	FormatOffice:   newOfficeReader(),
}

// List returns the submissions in dir sorted by ID. Subdirectories and
// unsupported files are ignored. A Markdown file shadows a PDF with the
// same stem, and a PDF shadows an office document.
func List(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading projects directory: %w", err)
	}

	byID := make(map[string]Document)
	rank := make(map[string]int)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := strings.ToLower(filepath.Ext(name))
		for i, cand := range extensions {
			if ext != cand.ext {
				continue
			}
			id := strings.TrimSuffix(name, filepath.Ext(name))
			if prev, ok := rank[id]; ok && prev <= i {
				break
			}
			byID[id] = Document{ID: id, Path: filepath.Join(dir, name), Format: cand.format}
			rank[id] = i
			break
		}
	}

	docs := make([]Document, 0, len(byID))
	for _, d := range byID {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// ReadText returns the document content as text. The read is bounded by
// ctx and by ReadTimeout.
func ReadText(ctx context.Context, doc Document) (string, error) {
	r, ok := readers[doc.Format]
	if !ok {
		return "", fmt.Errorf("unsupported format %q for %s", doc.Format, doc.Path)
	}
	ctx, cancel := context.WithTimeout(ctx, ReadTimeout)
	defer cancel()
	text, err := r.Read(ctx, doc.Path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", doc.ID, err)
	}
	return text, nil
}

// ReadFile reads a text file such as a task statement or rubric.
func ReadFile(path string) (string, error) {
	return readMarkdown(path)
}

// EstimateTokens approximates the token count of text at four bytes per
// token.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// markdownReader reads UTF-8 text, falling back to ISO-8859-1 for files
// saved by older editors.
type markdownReader struct{}

func (markdownReader) Read(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return readMarkdown(path)
}

func readMarkdown(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return decodeText(data)
}

func decodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data), nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decoding latin-1: %w", err)
	}
	return string(out), nil
}

// pdfReader extracts the plain text layer of a PDF. The extractor runs in
// its own goroutine because a malformed page tree can make it loop
// forever; such a goroutine is abandoned when ctx ends.
type pdfReader struct {
	extract func(path string) (string, error)
}

func (r pdfReader) Read(ctx context.Context, path string) (string, error) {
	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- result{err: fmt.Errorf("malformed pdf: %v", p)}
			}
		}()
		text, err := r.extract(path)
		done <- result{text, err}
	}()

	select {
	case res := <-done:
		return res.text, res.err
	case <-ctx.Done():
		return "", timeoutErr(ctx)
	}
}

// timeoutErr reports a deadline as ErrReadTimeout and passes cancellation
// through.
func timeoutErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrReadTimeout, ReadTimeout)
	}
	return ctx.Err()
}

func extractPDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}
	text := strings.TrimSpace(buf.String())
	if text == "" {
		return "", fmt.Errorf("pdf has no text layer")
	}
	return text, nil
}
