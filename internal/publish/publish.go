// Package publish turns assembled page content into static files.
package publish

import (
	"html"
	"regexp"
	"strings"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeFileName derives a page file name from its title: lowercase, runs of
// other characters collapsed to one hyphen, no leading or trailing hyphen. Titles
// that leave nothing behind fall back to "page-{id}".
func NormalizeFileName(title, id string) string {
	name := nonAlphanumeric.ReplaceAllString(strings.ToLower(title), "-")
	name = strings.Trim(name, "-")
	if name == "" {
		return "page-" + id
	}
	return name
}

// Document wraps page content in a complete HTML document linking
// styles/{cssFileName}.css and each script under scripts/.
func Document(title, content, cssFileName string, scripts []string) string {
	if title == "" {
		title = "Untitled Page"
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n")
	b.WriteString("<html lang=\"en\">\n<head>\n")
	b.WriteString("  <meta charset=\"UTF-8\">\n")
	b.WriteString("  <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	b.WriteString("  <title>" + html.EscapeString(title) + "</title>\n")
	b.WriteString("  <link rel=\"stylesheet\" href=\"styles/" + html.EscapeString(cssFileName) + ".css\">\n")
	b.WriteString("</head>\n<body>\n  ")
	b.WriteString(content)
	b.WriteString("\n")
	for _, src := range scripts {
		b.WriteString("  <script src=\"scripts/" + html.EscapeString(src) + "\"></script>\n")
	}
	b.WriteString("</body>\n</html>")
	return b.String()
}
