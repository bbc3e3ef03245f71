// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container runs one-shot conversion containers through docker or
// podman. The document reader uses it to turn office submissions into
// Markdown with the markitdown image.
package container

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

const (
	binDocker = "docker"
	binPodman = "podman"
)

// Runtime runs containers with stdin and stdout attached.
type Runtime interface {
	// Name returns "docker" or "podman".
	Name() string

	// Available reports whether the binary is on PATH and its daemon or
	// service answers.
	Available(ctx context.Context) bool

	// ImageExists returns nil when image is present locally.
	ImageExists(ctx context.Context, image string) error

	// Run starts a throwaway container from image with no network, feeding
	// stdin and collecting stdout. Extra arguments follow the image name.
	Run(ctx context.Context, image string, stdin io.Reader, stdout io.Writer, args ...string) error
}

// executor abstracts command execution for tests.
type executor interface {
	LookPath(file string) (string, error)
	RunSilent(ctx context.Context, name string, args ...string) error
	RunPiped(ctx context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error
}

type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (osExecutor) RunSilent(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

func (osExecutor) RunPiped(ctx context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// cli implements Runtime for one binary. Docker and podman differ only in
// the subcommand that checks for a local image.
type cli struct {
	bin        string
	imageCheck []string
	exec       executor
}

func (c *cli) Name() string { return c.bin }

func (c *cli) Available(ctx context.Context) bool {
	if _, err := c.exec.LookPath(c.bin); err != nil {
		return false
	}
	return c.exec.RunSilent(ctx, c.bin, "info") == nil
}

func (c *cli) ImageExists(ctx context.Context, image string) error {
	args := append(append([]string{}, c.imageCheck...), image)
	if err := c.exec.RunSilent(ctx, c.bin, args...); err != nil {
		return fmt.Errorf("image %s not found in %s: %w", image, c.bin, err)
	}
	return nil
}

func (c *cli) Run(ctx context.Context, image string, stdin io.Reader, stdout io.Writer, args ...string) error {
	full := append([]string{"run", "--rm", "-i", "--network", "none", image}, args...)
	var stderr strings.Builder
	if err := c.exec.RunPiped(ctx, c.bin, full, stdin, stdout, &stderr); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("running %s container %s: %w: %s", c.bin, image, err, msg)
		}
		return fmt.Errorf("running %s container %s: %w", c.bin, image, err)
	}
	return nil
}

func newDocker(e executor) *cli {
	return &cli{bin: binDocker, imageCheck: []string{"image", "inspect"}, exec: e}
}

func newPodman(e executor) *cli {
	return &cli{bin: binPodman, imageCheck: []string{"image", "exists"}, exec: e}
}

// Detect returns docker when it answers, otherwise podman.
func Detect(ctx context.Context) (Runtime, error) {
	return detect(ctx, osExecutor{})
}

func detect(ctx context.Context, e executor) (Runtime, error) {
	for _, rt := range []*cli{newDocker(e), newPodman(e)} {
		if rt.Available(ctx) {
			return rt, nil
		}
	}
	return nil, fmt.Errorf("no container runtime available: neither %s nor %s found or operational",
		binDocker, binPodman)
}
