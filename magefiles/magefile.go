//go:build mage

// Package main contains Mage build targets for submission-analyzer developer tooling.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir    = "bin"
	binName   = "submission-analyzer"
	cmdPkg    = "./cmd/submission-analyzer"
	batchRoot = "batches"
)

// batchFiles are the skeleton documents Init writes into a new batch.
var batchFiles = map[string]string{
	"task.md":   "# Assignment statement\n\nDescribe the assignment the projects answer.\n",
	"rubric.md": "# Grading rubric\n\nList the criteria and their weights.\n",
}

// Init creates the directory skeleton of a batch under batches/<id>.
func Init(id string) error {
	dir := filepath.Join(batchRoot, id)
	for _, sub := range []string{"projects", "results"} {
		p := filepath.Join(dir, sub)
		if err := os.MkdirAll(p, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", p, err)
		}
		fmt.Println("  ", p)
	}
	for name, body := range batchFiles {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			continue
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", p, err)
		}
		fmt.Println("  ", p)
	}
	fmt.Printf("Batch %s initialized. Put one document per project in %s.\n", id, filepath.Join(dir, "projects"))
	return nil
}

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Analyze builds the CLI and runs the full analysis of batch id.
func Analyze(id string) error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), id)
}

// Stats prints the size of batch id: submissions per file type, word
// counts of the task, rubric and Markdown submissions, and how many
// extraction records the last runs left behind.
func Stats(id string) error {
	dir := filepath.Join(batchRoot, id)
	projects := filepath.Join(dir, "projects")
	entries, err := os.ReadDir(projects)
	if err != nil {
		return fmt.Errorf("reading %s: %w", projects, err)
	}

	byExt := make(map[string]int)
	submissionWords := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		byExt[ext]++
		if ext == ".md" {
			n, err := wordsIn(filepath.Join(projects, e.Name()))
			if err != nil {
				return err
			}
			submissionWords += n
		}
	}

	taskWords, err := wordsIn(filepath.Join(dir, "task.md"))
	if err != nil {
		return err
	}
	rubricWords, err := wordsIn(filepath.Join(dir, "rubric.md"))
	if err != nil {
		return err
	}
	records, err := filepath.Glob(filepath.Join(dir, "results", "phase1_extractions", "*_extraction.json"))
	if err != nil {
		return err
	}

	exts := make([]string, 0, len(byExt))
	for ext := range byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)

	fmt.Printf("Batch %s\n", id)
	for _, ext := range exts {
		name := ext
		if name == "" {
			name = "(no extension)"
		}
		fmt.Printf("  %-16s %d\n", name, byExt[ext])
	}
	fmt.Printf("Words (task):                 %d\n", taskWords)
	fmt.Printf("Words (rubric):               %d\n", rubricWords)
	fmt.Printf("Words (Markdown submissions): %d\n", submissionWords)
	fmt.Printf("Extraction records:           %d\n", len(records))
	return nil
}

// wordsIn counts whitespace-separated words in path. A missing file has
// none.
func wordsIn(path string) (int, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	return len(strings.Fields(string(data))), nil
}
