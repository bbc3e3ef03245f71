// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package documents

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/submission-analyzer/internal/container"
)

// fakeRuntime echoes stdin uppercased as a heading unless configured
// otherwise.
type fakeRuntime struct {
	imageErr error
	runErr   error
	output   string
	block    bool
	gotImage string
}

func (f *fakeRuntime) Name() string                             { return "docker" }
func (f *fakeRuntime) Available(context.Context) bool           { return true }
func (f *fakeRuntime) ImageExists(context.Context, string) error { return f.imageErr }

func (f *fakeRuntime) Run(ctx context.Context, image string, stdin io.Reader, stdout io.Writer, _ ...string) error {
	f.gotImage = image
	if f.block {
		<-ctx.Done()
		return errors.New("signal: killed")
	}
	if f.runErr != nil {
		return f.runErr
	}
	if f.output != "" {
		_, err := io.WriteString(stdout, f.output)
		return err
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return err
	}
	_, err = io.WriteString(stdout, "# "+strings.ToUpper(string(data))+"\n")
	return err
}

func readerWith(rt container.Runtime, detectErr error) officeReader {
	return officeReader{
		image: MarkitdownImage,
		detect: func(context.Context) (container.Runtime, error) {
			if detectErr != nil {
				return nil, detectErr
			}
			return rt, nil
		},
	}
}

func TestListOfficeShadowing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "team-a.docx", "doc")
	writeFile(t, dir, "team-a.pdf", "%PDF")
	writeFile(t, dir, "team-b.pptx", "slides")
	writeFile(t, dir, "team-c.ODT", "odt")

	docs, err := List(dir)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, FormatPDF, docs[0].Format)
	assert.Equal(t, FormatOffice, docs[1].Format)
	assert.Equal(t, FormatOffice, docs[2].Format)
	assert.Equal(t, "team-c", docs[2].ID)
}

func TestOfficeReader(t *testing.T) {
	p := writeFile(t, t.TempDir(), "team.docx", "report body")
	rt := &fakeRuntime{}

	got, err := readerWith(rt, nil).Read(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "# REPORT BODY", got)
	assert.Equal(t, MarkitdownImage, rt.gotImage)
}

func TestOfficeReaderErrors(t *testing.T) {
	p := writeFile(t, t.TempDir(), "team.docx", "x")
	tests := []struct {
		name      string
		rt        *fakeRuntime
		detectErr error
		want      string
	}{
		{"no runtime", nil, errors.New("no container runtime available"), "no container runtime"},
		{"missing image", &fakeRuntime{imageErr: errors.New("image markitdown:latest not found")}, nil, "build -t markitdown:latest"},
		{"conversion fails", &fakeRuntime{runErr: errors.New("exit status 1")}, nil, "exit status 1"},
		{"empty output", &fakeRuntime{output: "  \n"}, nil, "empty text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rt container.Runtime
			if tt.rt != nil {
				rt = tt.rt
			}
			_, err := readerWith(rt, tt.detectErr).Read(context.Background(), p)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestOfficeReaderStopsWithContext(t *testing.T) {
	p := writeFile(t, t.TempDir(), "team.docx", "x")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := readerWith(&fakeRuntime{block: true}, nil).Read(ctx, p)
	require.ErrorIs(t, err, ErrReadTimeout)
}
