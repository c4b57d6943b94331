package publish

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// PageInfo describes a published page found in a build directory.
type PageInfo struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	HTMLPath string `json:"htmlPath"`
	CSSPath  string `json:"cssPath"`
}

// ListPages lists the HTML pages directly under dir, sorted by name. The title comes
// from the page's <title> element, or the file name when there is none. A missing
// directory yields an empty list.
func ListPages(dir string) ([]PageInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []PageInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read build directory %q: %w", dir, err)
	}

	pages := []PageInfo{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".html" {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".html")
		info := PageInfo{
			Name:     name,
			Title:    name,
			HTMLPath: entry.Name(),
			CSSPath:  stylesDir + "/" + name + ".css",
		}
		if title := readTitle(filepath.Join(dir, entry.Name())); title != "" {
			info.Title = title
		}
		pages = append(pages, info)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Name < pages[j].Name })
	return pages, nil
}

// readTitle returns the text of the first <title> element, or "".
func readTitle(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	z := html.NewTokenizer(f)
	inTitle := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			name, _ := z.TagName()
			inTitle = string(name) == "title"
		case html.TextToken:
			if inTitle {
				return strings.TrimSpace(string(z.Text()))
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if n := string(name); n == "title" || n == "head" {
				return ""
			}
		}
	}
}
