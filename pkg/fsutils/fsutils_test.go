package fsutils

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// writeTree creates files (relative path -> content) under root.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

// readTree returns every regular file under root keyed by slash-separated relative path.
func readTree(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("reading tree %s: %v", root, err)
	}
	return out
}

func TestCreateAndRemoveDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "build", "styles")

	if err := CreateDir(dir); err != nil {
		t.Fatalf("CreateDir(%q) failed: %v", dir, err)
	}
	if err := CreateDir(dir); err != nil {
		t.Fatalf("CreateDir() on an existing directory failed: %v", err)
	}
	if !DirExists(dir) {
		t.Fatalf("DirExists(%q) = false after CreateDir", dir)
	}

	build := filepath.Dir(dir)
	if err := RemoveDir(build); err != nil {
		t.Fatalf("RemoveDir(%q) failed: %v", build, err)
	}
	if DirExists(build) {
		t.Errorf("%q still exists after RemoveDir", build)
	}
	if err := RemoveDir(build); err != nil {
		t.Errorf("RemoveDir() on a missing directory = %v, want nil", err)
	}
}

func TestWriteToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "home.html")

	for _, content := range []string{"<p>first</p>", "<p>second, longer than the first</p>", ""} {
		if err := WriteToFile(path, []byte(content)); err != nil {
			t.Fatalf("WriteToFile(%q) failed: %v", content, err)
		}
		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != content {
			t.Errorf("file content = %q, want %q", got, content)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0644 {
		t.Errorf("new file mode = %v, want 0644", info.Mode().Perm())
	}

	// No temporary files are left beside the target.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries after atomic writes, want 1", len(entries))
	}

	if err := WriteToFile(filepath.Join(dir, "missing", "x.css"), []byte("x")); err == nil {
		t.Error("WriteToFile() into a missing directory succeeded")
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "page.html")
	writeTree(t, dir, map[string]string{"page.html": "x"})

	tests := []struct {
		path        string
		file, isDir bool
	}{
		{file, true, false},
		{dir, false, true},
		{filepath.Join(dir, "nope"), false, false},
		{"", false, false},
	}
	for _, tt := range tests {
		if got := FileExists(tt.path); got != tt.file {
			t.Errorf("FileExists(%q) = %v, want %v", tt.path, got, tt.file)
		}
		if got := DirExists(tt.path); got != tt.isDir {
			t.Errorf("DirExists(%q) = %v, want %v", tt.path, got, tt.isDir)
		}
	}
}

func TestSanitizeIdentifier(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Hero Banner", "hero_banner"},
		{"Features!@#$%^&*()_+=", "features"},
		{"header_navigation_1", "header_navigation_1"},
		{"SomeMixed_Case", "somemixed_case"},
		{"  leading and trailing  ", "leading_and_trailing"},
		{"a!!b@#c", "a_b_c"},
		{"", ""},
		{"!@#$", ""},
		{"1st_widget", "1st_widget"},
		{"你好世界", ""},
		{"file.name.ext", "file_name_ext"},
		{"__dunder__", "dunder"},
		{"../etc/passwd", "etc_passwd"},
	}
	for _, tt := range tests {
		if got := SanitizeIdentifier(tt.input); got != tt.want {
			t.Errorf("SanitizeIdentifier(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCopyDir(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "lib")
	files := map[string]string{
		"splide.min.js":         "/* splide */",
		"vendor/swiper.js":      "/* swiper */",
		"vendor/css/swiper.css": ".swiper{}",
	}
	writeTree(t, src, files)
	if err := os.Chmod(filepath.Join(src, "splide.min.js"), 0600); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(root, "build", "scripts")
	writeTree(t, dst, map[string]string{"splide.min.js": "stale"})

	n, err := CopyDir(src, dst)
	if err != nil {
		t.Fatalf("CopyDir() failed: %v", err)
	}
	if n != len(files) {
		t.Errorf("CopyDir() copied %d files, want %d", n, len(files))
	}
	if diff := cmp.Diff(files, readTree(t, dst)); diff != "" {
		t.Errorf("copied tree mismatch (-want +got):\n%s", diff)
	}
	info, err := os.Stat(filepath.Join(dst, "splide.min.js"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("copied file mode = %v, want 0600", info.Mode().Perm())
	}

	empty := filepath.Join(root, "empty")
	if err := CreateDir(empty); err != nil {
		t.Fatal(err)
	}
	if n, err := CopyDir(empty, filepath.Join(root, "empty_copy")); err != nil || n != 0 {
		t.Errorf("CopyDir(empty) = %d, %v; want 0, nil", n, err)
	}
	if !DirExists(filepath.Join(root, "empty_copy")) {
		t.Error("CopyDir(empty) did not create the destination")
	}

	if _, err := CopyDir(filepath.Join(root, "missing"), filepath.Join(root, "x")); err == nil {
		t.Error("CopyDir() from a missing source succeeded")
	}
	if _, err := CopyDir(filepath.Join(src, "splide.min.js"), filepath.Join(root, "y")); err == nil {
		t.Error("CopyDir() from a file succeeded")
	}
}
