// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package documents

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pdiddy/submission-analyzer/internal/container"
)

// MarkitdownImage converts office documents to Markdown on stdout.
const MarkitdownImage = "markitdown:latest"

// officeReader pipes a .docx, .pptx or .odt file through the markitdown
// image. The container is killed when ctx ends. detect is swapped in tests.
type officeReader struct {
	image  string
	detect func(ctx context.Context) (container.Runtime, error)
}

func newOfficeReader() officeReader {
	return officeReader{image: MarkitdownImage, detect: container.Detect}
}

func (r officeReader) Read(ctx context.Context, path string) (string, error) {
	rt, err := r.detect(ctx)
	if err != nil {
		return "", fmt.Errorf("converting office document: %w", err)
	}
	if err := rt.ImageExists(ctx, r.image); err != nil {
		return "", fmt.Errorf("converting office document: %w (build it with: %s build -t %s .)",
			err, rt.Name(), r.image)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var out bytes.Buffer
	if err := rt.Run(ctx, r.image, f, &out); err != nil {
		if ctx.Err() != nil {
			return "", timeoutErr(ctx)
		}
		return "", fmt.Errorf("converting office document: %w", err)
	}
	text, err := decodeText(out.Bytes())
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("office document converted to empty text")
	}
	return text, nil
}
