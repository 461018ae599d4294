package output

import (
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
)

// packFilePerm is the mode for written pack files.
const packFilePerm = 0o644

// Sink delivers rendered pack text.
type Sink interface {
	// Deliver writes content and returns a human-readable destination name.
	Deliver(content string) (string, error)
}

// StdoutSink writes the pack to a stream, os.Stdout in production.
type StdoutSink struct {
	W io.Writer
}

func (s StdoutSink) Deliver(content string) (string, error) {
	w := s.W
	if w == nil {
		w = os.Stdout
	}

	if _, err := io.WriteString(w, content); err != nil {
		return "", fmt.Errorf("write pack: %w", err)
	}

	return "stdout", nil
}

// FileSink writes the pack to a file.
type FileSink struct {
	Path string
}

func (s FileSink) Deliver(content string) (string, error) {
	if err := os.WriteFile(s.Path, []byte(content), packFilePerm); err != nil {
		return "", fmt.Errorf("write pack to %s: %w", s.Path, err)
	}

	return s.Path, nil
}

// ClipboardSink copies the pack to the system clipboard.
type ClipboardSink struct{}

func (ClipboardSink) Deliver(content string) (string, error) {
	if err := clipboard.WriteAll(content); err != nil {
		return "", fmt.Errorf("copy pack to clipboard: %w", err)
	}

	return "clipboard", nil
}
