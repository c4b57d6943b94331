package schema

import (
	"testing"

	"go-site-builder/internal/model"

	"github.com/google/go-cmp/cmp"
)

func sampleData() map[string]any {
	return map[string]any{
		"title":  "Hello",
		"styles": map[string]any{"color": "red"},
		"links": []any{
			map[string]any{"text": "Home", "url": "/"},
			map[string]any{"text": "About", "url": "/about"},
		},
	}
}

func TestSetValue(t *testing.T) {
	orig := sampleData()
	out, err := SetValue(orig, "styles.color", "blue")
	if err != nil {
		t.Fatalf("SetValue() failed: %v", err)
	}
	if v, _ := Lookup(out, "styles.color"); v != "blue" {
		t.Errorf("styles.color = %v, want blue", v)
	}
	if diff := cmp.Diff(sampleData(), orig); diff != "" {
		t.Errorf("SetValue() modified its input (-want +got):\n%s", diff)
	}

	out, err = SetValue(nil, "a.b.c", 1)
	if err != nil {
		t.Fatalf("SetValue() on nil data failed: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"a": map[string]any{"b": map[string]any{"c": 1}}}, out); diff != "" {
		t.Errorf("SetValue() mismatch (-want +got):\n%s", diff)
	}

	if _, err := SetValue(orig, "title.size", 1); err == nil {
		t.Error("SetValue() through a string succeeded, expected error")
	}
	if _, err := SetValue(orig, "", 1); err == nil {
		t.Error("SetValue() with an empty path succeeded, expected error")
	}
}

func TestArrayItems(t *testing.T) {
	orig := sampleData()

	added, err := AddArrayItem(orig, "links", map[string]any{"text": "New", "url": "#"})
	if err != nil {
		t.Fatalf("AddArrayItem() failed: %v", err)
	}
	if got := len(added["links"].([]any)); got != 3 {
		t.Errorf("AddArrayItem() left %d items, want 3", got)
	}

	updated, err := UpdateArrayItem(added, "links", 0, "text", "Start")
	if err != nil {
		t.Fatalf("UpdateArrayItem() failed: %v", err)
	}
	if v := updated["links"].([]any)[0].(map[string]any)["text"]; v != "Start" {
		t.Errorf("updated text = %v, want Start", v)
	}
	if v := added["links"].([]any)[0].(map[string]any)["text"]; v != "Home" {
		t.Errorf("UpdateArrayItem() modified its input: %v", v)
	}

	removed, err := RemoveArrayItem(updated, "links", 1)
	if err != nil {
		t.Fatalf("RemoveArrayItem() failed: %v", err)
	}
	want := []any{
		map[string]any{"text": "Start", "url": "/"},
		map[string]any{"text": "New", "url": "#"},
	}
	if diff := cmp.Diff(want, removed["links"]); diff != "" {
		t.Errorf("RemoveArrayItem() mismatch (-want +got):\n%s", diff)
	}

	same, err := RemoveArrayItem(orig, "links", 7)
	if err != nil {
		t.Fatalf("RemoveArrayItem() out of range failed: %v", err)
	}
	if diff := cmp.Diff(orig, same); diff != "" {
		t.Errorf("out of range removal changed data (-want +got):\n%s", diff)
	}

	if _, err := UpdateArrayItem(orig, "links", 5, "text", "x"); err == nil {
		t.Error("UpdateArrayItem() past the end succeeded, expected error")
	}
	appended, err := UpdateArrayItem(orig, "links", 2, "text", "Third")
	if err != nil {
		t.Fatalf("UpdateArrayItem() at len failed: %v", err)
	}
	if got := len(appended["links"].([]any)); got != 3 {
		t.Errorf("UpdateArrayItem() at len left %d items, want 3", got)
	}

	if _, err := AddArrayItem(orig, "title", nil); err == nil {
		t.Error("AddArrayItem() on a string succeeded, expected error")
	}
	created, err := AddArrayItem(nil, "styles.items", nil)
	if err != nil {
		t.Fatalf("AddArrayItem() on nil data failed: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"styles": map[string]any{"items": []any{map[string]any{}}}}, created); diff != "" {
		t.Errorf("AddArrayItem() mismatch (-want +got):\n%s", diff)
	}
}

func TestApply(t *testing.T) {
	s := model.Schema{
		"links": {Type: model.FieldArray, DefaultNewItem: map[string]any{"text": "New", "url": "#"}},
	}
	orig := sampleData()
	out, err := Apply(s, orig, []Edit{
		{Op: EditSet, Path: "title", Value: "Bonjour"},
		{Op: EditRemove, Path: "links", Index: 0},
		{Op: EditAdd, Path: "links"},
		{Op: EditUpdate, Path: "links", Index: 1, Field: "url", Value: "/new"},
		{Op: EditAdd, Path: "links", Value: map[string]any{"text": "Blog"}},
	})
	if err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}

	want := map[string]any{
		"title":  "Bonjour",
		"styles": map[string]any{"color": "red"},
		"links": []any{
			map[string]any{"text": "About", "url": "/about"},
			map[string]any{"text": "New", "url": "/new"},
			map[string]any{"text": "Blog"},
		},
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("Apply() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(sampleData(), orig); diff != "" {
		t.Errorf("Apply() modified its input (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"text": "New", "url": "#"}, s["links"].DefaultNewItem); diff != "" {
		t.Errorf("Apply() modified the schema's default item (-want +got):\n%s", diff)
	}
}

func TestApply_Errors(t *testing.T) {
	tests := []struct {
		name string
		edit Edit
	}{
		{"unknown op", Edit{Op: "move", Path: "links"}},
		{"empty path", Edit{Op: EditSet}},
		{"add scalar", Edit{Op: EditAdd, Path: "links", Value: "x"}},
		{"update without field", Edit{Op: EditUpdate, Path: "links"}},
		{"update out of range", Edit{Op: EditUpdate, Path: "links", Index: 5, Field: "text"}},
		{"remove from scalar", Edit{Op: EditRemove, Path: "title"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Apply(nil, sampleData(), []Edit{tt.edit}); err == nil {
				t.Errorf("Apply(%+v) succeeded, want an error", tt.edit)
			}
		})
	}
}
