package note

import (
	"fmt"
	"os"
	"strings"
)

// TextBuffer is the text-buffer collaborator: the only way the
// orchestrator touches source files. Hosts embedding this package
// (an editor plugin) supply their own implementation; the CLI uses
// the filesystem-backed one below.
//
// Lines are zero-based. DeleteLines removes the half-open range
// [start, end).
type TextBuffer interface {
	Read(path string) (string, error)
	InsertAt(path string, line int, text string) error
	DeleteLines(path string, start, end int) error
}

// FSBuffer edits source files directly on disk.
type FSBuffer struct{}

func (FSBuffer) Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// InsertAt inserts text before the given line. A line index at or past
// the end appends. text is expected to be newline-terminated.
func (FSBuffer) InsertAt(path string, line int, text string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	lines := strings.SplitAfter(string(data), "\n")
	// SplitAfter leaves a phantom empty element when the file ends
	// with a newline.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	var b strings.Builder
	if line > len(lines) {
		line = len(lines)
	}
	for i, l := range lines {
		if i == line {
			b.WriteString(text)
		}
		b.WriteString(l)
	}
	if line == len(lines) {
		b.WriteString(text)
	}

	return writeBack(path, b.String())
}

// DeleteLines removes lines [start, end), including their line breaks.
func (FSBuffer) DeleteLines(path string, start, end int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	lines := strings.SplitAfter(string(data), "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	if start < 0 {
		start = 0
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start >= end {
		return nil
	}

	var b strings.Builder
	for i, l := range lines {
		if i >= start && i < end {
			continue
		}
		b.WriteString(l)
	}

	return writeBack(path, b.String())
}

func writeBack(path, content string) error {
	info, err := os.Stat(path)
	mode := os.FileMode(0644)
	if err == nil {
		mode = info.Mode()
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
