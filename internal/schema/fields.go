// Package schema derives editing forms from widget schemas and edits instance data.
package schema

import (
	"sort"
	"strings"
	"unicode/utf8"

	"go-site-builder/internal/model"
)

// GenerateFieldsFromSchema returns one field per path in fieldPaths, in order. Paths
// without a schema entry are skipped. Array fields carry their current items and the
// fields of one item.
func GenerateFieldsFromSchema(s model.Schema, fieldPaths []string, data map[string]any) []model.Field {
	fields := make([]model.Field, 0, len(fieldPaths))
	for _, path := range fieldPaths {
		spec, ok := s[path]
		if !ok {
			continue
		}
		value, _ := Lookup(data, path)
		fields = append(fields, newField(path, spec, value))
	}
	return fields
}

func newField(id string, spec model.FieldSpec, value any) model.Field {
	fieldType := spec.Type
	if fieldType == "" {
		fieldType = GuessFieldTypeFromValue(value)
	}
	f := model.Field{
		ID:          id,
		Type:        fieldType,
		Label:       spec.Label,
		Description: spec.Description,
		Placeholder: spec.Placeholder,
		Validation:  spec.Validation,
		Options:     spec.Options,
		Value:       value,
	}
	if f.Label == "" {
		f.Label = labelFromPath(id)
	}
	if fieldType != model.FieldArray {
		return f
	}

	f.Value = nil
	f.CurrentItems = []any{}
	if items, ok := value.([]any); ok {
		f.CurrentItems = items
	}
	keys := sortedKeys(spec.Item)
	f.ItemFields = GenerateFieldsFromSchema(spec.Item, keys, nil)
	f.ItemLabel = spec.ItemLabel
	f.AddItemLabel = spec.AddItemLabel
	f.DefaultNewItem = spec.DefaultNewItem
	return f
}

// GenerateForm builds the sectioned editing form of a definition. Sections come from
// the definition metadata; without any, every schema field goes into one "content"
// section. A definition without a schema yields a form with no sections.
// Nil data falls back to the definition's default data.
func GenerateForm(def *model.WidgetDefinition, data map[string]any) model.Form {
	form := model.Form{Sections: []model.FormSection{}}
	if def == nil || len(def.Schema) == 0 {
		return form
	}
	if data == nil {
		data = def.DefaultData
	}

	sections := []model.Section{{ID: "content", Title: "Content", Fields: sortedKeys(def.Schema)}}
	if def.Metadata != nil && len(def.Metadata.CustomizableSections) > 0 {
		sections = def.Metadata.CustomizableSections
	}
	for _, sec := range sections {
		form.Sections = append(form.Sections, model.FormSection{
			ID:     sec.ID,
			Title:  sec.Title,
			Fields: GenerateFieldsFromSchema(def.Schema, sec.Fields, data),
		})
	}
	return form
}

// GuessFieldTypeFromValue infers an input type from a raw value. It is a fallback
// for fields that declare no type.
func GuessFieldTypeFromValue(value any) model.FieldType {
	switch v := value.(type) {
	case bool:
		return model.FieldCheckbox
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return model.FieldNumber
	case []any:
		return model.FieldArray
	case string:
		switch {
		case strings.HasPrefix(v, "#"), strings.HasPrefix(v, "rgb"), strings.HasPrefix(v, "hsl"):
			return model.FieldColor
		case strings.HasPrefix(v, "http"), strings.HasPrefix(v, "/"):
			return model.FieldURL
		case utf8.RuneCountInString(v) > 100:
			return model.FieldTextarea
		}
	}
	return model.FieldText
}

// labelFromPath turns "styles.backgroundColor" into "Background Color".
func labelFromPath(path string) string {
	last := path[strings.LastIndex(path, ".")+1:]
	var b strings.Builder
	for i, r := range last {
		if i == 0 {
			b.WriteString(strings.ToUpper(string(r)))
			continue
		}
		if r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
		}
		if r == '_' || r == '-' {
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func sortedKeys(s model.Schema) []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
