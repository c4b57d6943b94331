package fsutils

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/natefinch/atomic"
)

// CreateDir creates a directory, including parents, if it doesn't exist.
func CreateDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// RemoveDir removes a directory tree. A missing directory is not an error.
func RemoveDir(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove directory %q: %w", path, err)
	}
	return nil
}

// WriteToFile atomically replaces the file at path with content. Readers see either
// the old or the new file, never a partial write. The parent directory must exist.
// New files are created 0644; replaced files keep their mode.
func WriteToFile(path string, content []byte) error {
	existed := FileExists(path)
	if err := atomic.WriteFile(path, bytes.NewReader(content)); err != nil {
		return err
	}
	if !existed {
		if err := os.Chmod(path, 0644); err != nil {
			return fmt.Errorf("failed to set permissions on %q: %w", path, err)
		}
	}
	return nil
}

// FileExists checks if a path exists and is a regular file (not a directory).
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// DirExists checks if a path exists and is a directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// CopyDir recursively copies a directory from src to dst and returns the number of
// files copied. It creates the destination directory if it doesn't exist.
// Existing files in the destination will be overwritten.
func CopyDir(src, dst string) (int, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("failed to stat source directory %q: %w", src, err)
	}
	if !srcInfo.IsDir() {
		return 0, fmt.Errorf("source %q is not a directory", src)
	}

	if err := os.MkdirAll(dst, srcInfo.Mode().Perm()); err != nil {
		return 0, fmt.Errorf("failed to create destination directory %q: %w", dst, err)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return 0, fmt.Errorf("failed to read source directory %q: %w", src, err)
	}

	copied := 0
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			n, err := CopyDir(srcPath, dstPath)
			copied += n
			if err != nil {
				return copied, fmt.Errorf("failed to copy subdirectory %q to %q: %w", srcPath, dstPath, err)
			}
			continue
		}
		if err := copyFile(srcPath, dstPath); err != nil {
			return copied, fmt.Errorf("failed to copy file %q to %q: %w", srcPath, dstPath, err)
		}
		copied++
	}
	return copied, nil
}

// copyFile copies a single file from src to dst, keeping its permissions.
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file %q: %w", src, err)
	}
	defer srcFile.Close()

	if err := atomic.WriteFile(dst, srcFile); err != nil {
		return fmt.Errorf("failed to write destination file %q: %w", dst, err)
	}

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat source file %q for permissions: %w", src, err)
	}
	if err := os.Chmod(dst, srcInfo.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to set permissions on destination file %q: %w", dst, err)
	}
	return nil
}

var nonIdentifierRegex = regexp.MustCompile(`[^a-z0-9_]+`)
var collapseUnderscoreRegex = regexp.MustCompile(`_+`)

// SanitizeIdentifier converts a display name into a widget folder or template ID:
// lowercase letters, digits and single underscores, with no leading or trailing
// underscore. It returns "" when nothing usable remains.
func SanitizeIdentifier(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	sanitized := nonIdentifierRegex.ReplaceAllString(lower, "_")
	collapsed := collapseUnderscoreRegex.ReplaceAllString(sanitized, "_")
	return strings.Trim(collapsed, "_")
}
