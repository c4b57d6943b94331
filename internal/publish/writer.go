package publish

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"go-site-builder/pkg/fsutils"
)

const (
	stylesDir  = "styles"
	scriptsDir = "scripts"
)

// PublishedPage locates the files written for one page, relative to the build directory.
type PublishedPage struct {
	ID       string `json:"id,omitempty"`
	Title    string `json:"title"`
	FileName string `json:"fileName"`
	HTMLPath string `json:"htmlPath"`
	CSSPath  string `json:"cssPath"`
}

// Writer writes pages into a build directory laid out as
// <dir>/<name>.html, <dir>/styles/<name>.css and <dir>/scripts/*.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates a Writer for the build directory dir.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Writer{dir: dir, logger: logger}
}

// Dir returns the build directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Prepare creates the build and styles directories. With clean set, an existing
// build directory is removed first.
func (w *Writer) Prepare(clean bool) error {
	if clean && fsutils.DirExists(w.dir) {
		w.logger.Info("Cleaning existing build directory", "path", w.dir)
		if err := fsutils.RemoveDir(w.dir); err != nil {
			return err
		}
	}
	if err := fsutils.CreateDir(filepath.Join(w.dir, stylesDir)); err != nil {
		return fmt.Errorf("failed to create build directories in %q: %w", w.dir, err)
	}
	return nil
}

// WritePage writes the HTML document and stylesheet of one page.
func (w *Writer) WritePage(fileName, document, css string) (PublishedPage, error) {
	if fileName == "" || fileName != filepath.Base(fileName) || fileName == "." || fileName == ".." {
		return PublishedPage{}, fmt.Errorf("invalid page file name %q", fileName)
	}
	if err := w.Prepare(false); err != nil {
		return PublishedPage{}, err
	}

	htmlRel := fileName + ".html"
	cssRel := filepath.ToSlash(filepath.Join(stylesDir, fileName+".css"))
	if err := fsutils.WriteToFile(filepath.Join(w.dir, htmlRel), []byte(document)); err != nil {
		return PublishedPage{}, fmt.Errorf("failed to write page %q: %w", htmlRel, err)
	}
	if err := fsutils.WriteToFile(filepath.Join(w.dir, cssRel), []byte(css)); err != nil {
		return PublishedPage{}, fmt.Errorf("failed to write stylesheet %q: %w", cssRel, err)
	}

	w.logger.Info("Wrote page", "file", htmlRel, "bytes", len(document), "cssBytes", len(css))
	return PublishedPage{FileName: fileName, HTMLPath: htmlRel, CSSPath: cssRel}, nil
}

// CopyLib copies the script library directory src into <dir>/scripts and returns
// the number of files copied.
func (w *Writer) CopyLib(src string) (int, error) {
	dst := filepath.Join(w.dir, scriptsDir)
	n, err := fsutils.CopyDir(src, dst)
	if err != nil {
		return n, fmt.Errorf("failed to copy script library: %w", err)
	}
	w.logger.Info("Copied script library", "from", src, "to", dst, "files", n)
	return n, nil
}
