package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// FieldType names the input kind a schema field is edited with.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldNumber   FieldType = "number"
	FieldColor    FieldType = "color"
	FieldCheckbox FieldType = "checkbox"
	FieldURL      FieldType = "url"
	FieldImage    FieldType = "image"
	FieldBoolean  FieldType = "boolean"
	FieldSelect   FieldType = "select"
	FieldArray    FieldType = "array"
)

// Validation holds the optional constraints of a schema field.
type Validation struct {
	Required  bool     `json:"required,omitempty" yaml:"required,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Min       *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max       *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// Option is one choice of a select field.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// FieldSpec describes a single editable field of a widget's data.
type FieldSpec struct {
	Type        FieldType   `json:"type" yaml:"type"`
	Label       string      `json:"label" yaml:"label"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Placeholder string      `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Validation  *Validation `json:"validation,omitempty" yaml:"validation,omitempty"`
	Options     []Option    `json:"options,omitempty" yaml:"options,omitempty"` // Only for select fields
	// Array fields only
	Item           Schema         `json:"item,omitempty" yaml:"item,omitempty"`
	ItemLabel      string         `json:"itemLabel,omitempty" yaml:"itemLabel,omitempty"`
	AddItemLabel   string         `json:"addItemLabel,omitempty" yaml:"addItemLabel,omitempty"`
	MinItems       *int           `json:"minItems,omitempty" yaml:"minItems,omitempty"`
	MaxItems       *int           `json:"maxItems,omitempty" yaml:"maxItems,omitempty"`
	DefaultNewItem map[string]any `json:"defaultNewItem,omitempty" yaml:"defaultNewItem,omitempty"`
}

// Schema maps a field path (dot notation, e.g. "styles.backgroundColor") to its descriptor.
type Schema map[string]FieldSpec

// Section groups field paths under a titled tab of the editing form.
type Section struct {
	ID     string   `json:"id" yaml:"id"`
	Title  string   `json:"title" yaml:"title"`
	Fields []string `json:"fields" yaml:"fields"`
}

// Metadata carries editor information for a widget definition.
type Metadata struct {
	Description          string    `json:"description,omitempty" yaml:"description,omitempty"`
	EditorSchema         string    `json:"editorSchema,omitempty" yaml:"editorSchema,omitempty"`
	CustomizableSections []Section `json:"customizableSections,omitempty" yaml:"customizableSections,omitempty"`
}

// WidgetDefinition is a static, versioned widget template identified by (Folder, ID).
// Definitions are loaded once and never mutated.
type WidgetDefinition struct {
	ID          string         `json:"id" yaml:"id"`         // Template ID, e.g. "hero_banner_1"
	Folder      string         `json:"folder" yaml:"folder"` // Widget family, e.g. "hero_banner"
	Title       string         `json:"title" yaml:"title"`
	HTML        string         `json:"html" yaml:"html"`
	CSS         string         `json:"css,omitempty" yaml:"css,omitempty"`
	Schema      Schema         `json:"schema,omitempty" yaml:"schema,omitempty"`
	DefaultData map[string]any `json:"defaultData,omitempty" yaml:"defaultData,omitempty"`
	Metadata    *Metadata      `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Thumbnail   string         `json:"thumbnail,omitempty" yaml:"thumbnail,omitempty"`
}

// Key returns the "folder/templateId" identifier of the definition.
func (d *WidgetDefinition) Key() string {
	return DefinitionKey(d.Folder, d.ID)
}

// CheckMetadata verifies that every field listed in the customizable sections
// resolves to a schema entry, either top-level or "array.itemField".
func (d *WidgetDefinition) CheckMetadata() error {
	if d == nil || d.Metadata == nil {
		return nil
	}
	var err error
	for _, sec := range d.Metadata.CustomizableSections {
		for _, path := range sec.Fields {
			if !d.Schema.resolves(path) {
				err = multierr.Append(err, fmt.Errorf("%s: section %q references unknown field %q", d.Key(), sec.ID, path))
			}
		}
	}
	return err
}

func (s Schema) resolves(path string) bool {
	if _, ok := s[path]; ok {
		return true
	}
	for i := strings.Index(path, "."); i >= 0; {
		if spec, ok := s[path[:i]]; ok && spec.Type == FieldArray && spec.Item.resolves(path[i+1:]) {
			return true
		}
		next := strings.Index(path[i+1:], ".")
		if next < 0 {
			break
		}
		i += next + 1
	}
	return false
}

// DefinitionKey joins a folder and template ID the way widget markup names them.
func DefinitionKey(folder, templateID string) string {
	return folder + "/" + templateID
}

// WidgetInstance is a placement of a definition on a page.
type WidgetInstance struct {
	ID         string         `json:"id"`
	Folder     string         `json:"folder"`
	TemplateID string         `json:"templateId"`
	Title      string         `json:"title,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// NewInstance creates an instance of folder/templateID with a fresh ID.
func NewInstance(folder, templateID string, data map[string]any) WidgetInstance {
	return WidgetInstance{
		ID:         uuid.New().String(),
		Folder:     folder,
		TemplateID: templateID,
		Data:       data,
	}
}

// Page is an ordered list of widget instances. Component and Styles cache the last
// render and are never authoritative.
type Page struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Widgets   []WidgetInstance `json:"widgets"`
	Component string           `json:"component,omitempty"`
	Styles    string           `json:"styles,omitempty"`
}

// Fragment is the assembled output of a page: concatenated HTML and CSS.
type Fragment struct {
	Component string `json:"component"`
	Styles    string `json:"styles"`
}
