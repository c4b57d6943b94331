package schema

import (
	"fmt"
	"unicode/utf8"

	"go-site-builder/internal/model"

	"github.com/spf13/cast"
	"go.uber.org/multierr"
)

// FieldError describes one violated constraint.
type FieldError struct {
	Path    string `json:"path"` // e.g. "features[2].title"
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	return e.Path + ": " + e.Message
}

// Validate checks data against the constraints of s and returns every violation,
// combined with multierr. Use multierr.Errors to inspect them individually.
func Validate(s model.Schema, data map[string]any) error {
	var err error
	for _, path := range sortedKeys(s) {
		value, _ := Lookup(data, path)
		err = multierr.Append(err, validateField(path, s[path], value))
	}
	return err
}

func validateField(path string, spec model.FieldSpec, value any) error {
	v := spec.Validation
	if isEmpty(value) {
		if v != nil && v.Required {
			return &FieldError{Path: path, Message: "is required"}
		}
		return nil
	}

	var err error
	switch spec.Type {
	case model.FieldArray:
		items, ok := value.([]any)
		if !ok {
			return &FieldError{Path: path, Message: "must be a list"}
		}
		if spec.MinItems != nil && len(items) < *spec.MinItems {
			err = multierr.Append(err, &FieldError{Path: path, Message: fmt.Sprintf("needs at least %d items", *spec.MinItems)})
		}
		if spec.MaxItems != nil && len(items) > *spec.MaxItems {
			err = multierr.Append(err, &FieldError{Path: path, Message: fmt.Sprintf("allows at most %d items", *spec.MaxItems)})
		}
		for i, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				err = multierr.Append(err, &FieldError{Path: fmt.Sprintf("%s[%d]", path, i), Message: "must be an object"})
				continue
			}
			for _, key := range sortedKeys(spec.Item) {
				err = multierr.Append(err, validateField(fmt.Sprintf("%s[%d].%s", path, i, key), spec.Item[key], m[key]))
			}
		}
		return err

	case model.FieldNumber:
		n, convErr := cast.ToFloat64E(value)
		if convErr != nil {
			return &FieldError{Path: path, Message: "must be a number"}
		}
		if v != nil && v.Min != nil && n < *v.Min {
			err = multierr.Append(err, &FieldError{Path: path, Message: fmt.Sprintf("must be at least %s", cast.ToString(*v.Min))})
		}
		if v != nil && v.Max != nil && n > *v.Max {
			err = multierr.Append(err, &FieldError{Path: path, Message: fmt.Sprintf("must be at most %s", cast.ToString(*v.Max))})
		}
		return err

	case model.FieldBoolean, model.FieldCheckbox:
		if _, convErr := cast.ToBoolE(value); convErr != nil {
			return &FieldError{Path: path, Message: "must be true or false"}
		}
		return nil

	case model.FieldSelect:
		if len(spec.Options) > 0 && !hasOption(spec.Options, cast.ToString(value)) {
			return &FieldError{Path: path, Message: fmt.Sprintf("%q is not one of the allowed options", cast.ToString(value))}
		}
	}

	if v != nil && v.MaxLength != nil {
		if s, ok := value.(string); ok && utf8.RuneCountInString(s) > *v.MaxLength {
			err = multierr.Append(err, &FieldError{Path: path, Message: fmt.Sprintf("must be at most %d characters", *v.MaxLength)})
		}
	}
	return err
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	}
	return false
}

func hasOption(options []model.Option, value string) bool {
	for _, o := range options {
		if o.Value == value {
			return true
		}
	}
	return false
}
