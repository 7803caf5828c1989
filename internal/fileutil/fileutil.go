// Package fileutil provides filesystem helpers shared across the pipeline:
// atomic file replacement and filename sanitization.
package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// WriteFileAtomic writes data to a temporary file in path's directory and
// renames it into place, so readers never observe a truncated file.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	tmpName = ""
	return nil
}

// CopyFile streams src to dst with default permissions (0o644).
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

var (
	reservedChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	nonWordChars  = regexp.MustCompile(`[^\w\s-]`)
	dashRuns      = regexp.MustCompile(`[-\s]+`)
)

// SanitizeFilename strips characters that are unsafe in file names, collapses
// whitespace and dash runs into single dashes, and caps the result at 100
// runes. Empty or fully-stripped input yields "unknown_file".
func SanitizeFilename(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "unknown_file"
	}

	trimmed = reservedChars.ReplaceAllString(trimmed, "")
	trimmed = nonWordChars.ReplaceAllString(trimmed, "")
	trimmed = dashRuns.ReplaceAllString(trimmed, "-")
	trimmed = strings.Trim(trimmed, "-")

	runes := []rune(trimmed)
	if len(runes) > 100 {
		trimmed = string(runes[:100])
	}
	if trimmed == "" {
		return "unknown_file"
	}
	return trimmed
}
