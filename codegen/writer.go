package codegen

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const generatedBanner = "Code generated by rapidgen. DO NOT EDIT."

// bannerLine is how the banner appears in a rendered file.
var bannerLine = []byte("// " + generatedBanner)

// ErrMissingBanner is returned when asked to write content that would not be
// recognized as generated on the next run.
var ErrMissingBanner = errors.New("writing generated file without generatedBanner")

// FileConflictError reports an existing file that was not written by rapidgen.
type FileConflictError struct {
	Path string
}

func (e *FileConflictError) Error() string {
	return fmt.Sprintf("%s already exists and is not a generated file", e.Path)
}

// IsGenerated reports whether content carries the generated banner.
func IsGenerated(content []byte) bool {
	return bytes.Contains(content, bannerLine)
}

// WriteGeneratedFile writes content to path, refusing to replace a file
// that is not itself generated.
func WriteGeneratedFile(path string, content []byte) error {
	if !IsGenerated(content) {
		return ErrMissingBanner
	}

	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		if !IsGenerated(existing) {
			return &FileConflictError{Path: path}
		}
		if bytes.Equal(existing, content) {
			return nil
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("reading %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, content, 0o644)
}
