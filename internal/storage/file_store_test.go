package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"go-site-builder/internal/model"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
)

const yamlDefinition = `
title: Standard Hero Banner
html: |
  <h1>{{title}}</h1>
css: |
  .hero { color: {{styles.textColor}}; }
schema:
  title:
    type: text
    label: Title
    validation:
      required: true
      maxLength: 80
defaultData:
  title: Welcome
  styles:
    textColor: "#222222"
metadata:
  customizableSections:
    - id: content
      title: Content
      fields: [title]
`

func newMemStore(t *testing.T) (*FileStore, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	store, err := NewFileStore(fs, "/widgets", nil)
	if err != nil {
		t.Fatalf("NewFileStore() failed: %v", err)
	}
	return store, fs
}

func TestNewFileStore(t *testing.T) {
	store, fs := newMemStore(t)
	if ok, _ := afero.DirExists(fs, "/widgets"); !ok {
		t.Error("NewFileStore() did not create the base directory")
	}
	if store.GetBasePath() != "/widgets" {
		t.Errorf("GetBasePath() returned %q, want %q", store.GetBasePath(), "/widgets")
	}
}

func TestFileStore_LoadYAML(t *testing.T) {
	store, fs := newMemStore(t)
	path := filepath.Join("/widgets", "hero_banner", "hero_banner_1.yaml")
	if err := afero.WriteFile(fs, path, []byte(yamlDefinition), 0644); err != nil {
		t.Fatal(err)
	}

	def, err := store.Load(context.Background(), "hero_banner", "hero_banner_1")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if def.Folder != "hero_banner" || def.ID != "hero_banner_1" {
		t.Errorf("Load() identity = %s, want hero_banner/hero_banner_1", def.Key())
	}
	if def.Title != "Standard Hero Banner" {
		t.Errorf("Title = %q", def.Title)
	}
	if got := def.Schema["title"].Validation; got == nil || !got.Required || *got.MaxLength != 80 {
		t.Errorf("schema validation not decoded: %+v", got)
	}
	styles, ok := def.DefaultData["styles"].(map[string]any)
	if !ok || styles["textColor"] != "#222222" {
		t.Errorf("defaultData not decoded as nested map: %#v", def.DefaultData)
	}
	if def.Metadata == nil || len(def.Metadata.CustomizableSections) != 1 {
		t.Errorf("metadata not decoded: %+v", def.Metadata)
	}
}

func TestFileStore_SaveLoadList(t *testing.T) {
	ctx := context.Background()
	store, _ := newMemStore(t)

	original := sampleDefinition("features", "features_1")
	original.DefaultData = map[string]any{"title": "Our Features"}
	if err := store.Save(original); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := store.Save(sampleDefinition("footer", "footer_1")); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	// A fresh store over the same files must not rely on the cache.
	store.InvalidateAll()
	loaded, err := store.Load(ctx, "features", "features_1")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if diff := cmp.Diff(original, loaded); diff != "" {
		t.Errorf("Load() mismatch (-saved +loaded):\n%s", diff)
	}

	defs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	var keys []string
	for _, d := range defs {
		keys = append(keys, d.Key())
	}
	if diff := cmp.Diff([]string{"features/features_1", "footer/footer_1"}, keys); diff != "" {
		t.Errorf("List() keys mismatch (-want +got):\n%s", diff)
	}
}

func TestFileStore_NotFoundAndInvalidKeys(t *testing.T) {
	ctx := context.Background()
	store, _ := newMemStore(t)

	if _, err := store.Load(ctx, "hero_banner", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() returned %v, want ErrNotFound", err)
	}
	for _, key := range [][2]string{{"", "x"}, {"x", ""}, {"..", "x"}, {"a/b", "x"}, {"x", `a\b`}} {
		if _, err := store.Load(ctx, key[0], key[1]); !errors.Is(err, ErrInvalidReference) {
			t.Errorf("Load(%q, %q) returned %v, want ErrInvalidReference", key[0], key[1], err)
		}
	}
}

func TestFileStore_CacheAndInvalidate(t *testing.T) {
	ctx := context.Background()
	store, fs := newMemStore(t)
	path := filepath.Join("/widgets", "hero_banner", "hero_banner_1.json")
	write := func(title string) {
		t.Helper()
		if err := afero.WriteFile(fs, path, []byte(`{"title":"`+title+`","html":"<p></p>"}`), 0644); err != nil {
			t.Fatal(err)
		}
	}

	write("v1")
	if def, _ := store.Load(ctx, "hero_banner", "hero_banner_1"); def == nil || def.Title != "v1" {
		t.Fatalf("Load() = %+v, want v1", def)
	}
	write("v2")
	if def, _ := store.Load(ctx, "hero_banner", "hero_banner_1"); def.Title != "v1" {
		t.Errorf("Load() bypassed the cache: got %q", def.Title)
	}
	store.Invalidate("hero_banner", "")
	if def, _ := store.Load(ctx, "hero_banner", "hero_banner_1"); def.Title != "v2" {
		t.Errorf("Load() after Invalidate() = %q, want v2", def.Title)
	}
}

func TestFileStore_Delete(t *testing.T) {
	ctx := context.Background()
	store, _ := newMemStore(t)
	if err := store.Save(sampleDefinition("footer", "footer_1")); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete("footer", "footer_1"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := store.Load(ctx, "footer", "footer_1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() after Delete() returned %v, want ErrNotFound", err)
	}
	if err := store.Delete("footer", "footer_1"); err != nil {
		t.Errorf("second Delete() returned %v, want nil", err)
	}
}

func TestFileStore_ListSkipsBrokenFiles(t *testing.T) {
	store, fs := newMemStore(t)
	if err := store.Save(sampleDefinition("footer", "footer_1")); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, "/widgets/footer/broken.json", []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, "/widgets/footer/README.md", []byte("notes"), 0644); err != nil {
		t.Fatal(err)
	}

	defs, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(defs) != 1 || defs[0].ID != "footer_1" {
		t.Errorf("List() = %+v, want only footer_1", defs)
	}
}

func TestFileStore_RejectsUnknownSectionFields(t *testing.T) {
	ctx := context.Background()
	store, fs := newMemStore(t)
	broken := strings.Replace(yamlDefinition, "fields: [title]", "fields: [title, styles.textColor]", 1)
	if err := afero.WriteFile(fs, "/widgets/hero_banner/hero_banner_1.yaml", []byte(broken), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := store.Load(ctx, "hero_banner", "hero_banner_1")
	if err == nil || errors.Is(err, ErrNotFound) || !strings.Contains(err.Error(), "styles.textColor") {
		t.Errorf("Load() returned %v, want a metadata error", err)
	}
	if defs, err := store.List(ctx); err != nil || len(defs) != 0 {
		t.Errorf("List() = %d definitions, %v; want the broken one skipped", len(defs), err)
	}

	def := sampleDefinition("footer", "footer_1")
	def.Metadata = &model.Metadata{CustomizableSections: []model.Section{{ID: "content", Fields: []string{"missing"}}}}
	if err := store.Save(def); err == nil {
		t.Error("Save() accepted a definition whose sections reference unknown fields")
	}
	if ok, _ := afero.Exists(fs, "/widgets/footer/footer_1.json"); ok {
		t.Error("Save() wrote the rejected definition")
	}
}
