package model

// Field is a form input derived from a schema entry and the current data.
type Field struct {
	ID          string      `json:"id"` // Field path, e.g. "styles.textColor"
	Type        FieldType   `json:"type"`
	Label       string      `json:"label"`
	Description string      `json:"description,omitempty"`
	Placeholder string      `json:"placeholder,omitempty"`
	Validation  *Validation `json:"validation,omitempty"`
	Options     []Option    `json:"options,omitempty"`
	Value       any         `json:"value,omitempty"`

	// Array fields only
	CurrentItems   []any          `json:"currentItems,omitempty"`
	ItemFields     []Field        `json:"itemFields,omitempty"`
	ItemLabel      string         `json:"itemLabel,omitempty"`
	AddItemLabel   string         `json:"addItemLabel,omitempty"`
	DefaultNewItem map[string]any `json:"defaultNewItem,omitempty"`
}

// FormSection is one titled group of fields.
type FormSection struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}

// Form is the editing form of one widget instance.
type Form struct {
	Sections []FormSection `json:"sections"`
}
