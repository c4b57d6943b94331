package schema

import (
	"fmt"
	"strings"

	"go-site-builder/internal/model"
)

// EditOp names the kind of change an Edit makes.
type EditOp string

const (
	EditSet    EditOp = "set"    // replace the value at Path
	EditAdd    EditOp = "add"    // append Value (or the field's defaultNewItem) to the array at Path
	EditUpdate EditOp = "update" // set Field of item Index of the array at Path
	EditRemove EditOp = "remove" // drop item Index of the array at Path
)

// Edit is one change to instance data, as produced by an editing form.
type Edit struct {
	Op    EditOp `json:"op"`
	Path  string `json:"path"`
	Index int    `json:"index,omitempty"`
	Field string `json:"field,omitempty"`
	Value any    `json:"value,omitempty"`
}

// Apply applies edits in order to a copy of data and returns the result. The first
// edit that cannot be applied aborts with an error naming its position.
func Apply(s model.Schema, data map[string]any, edits []Edit) (map[string]any, error) {
	out := Clone(data)
	for i, e := range edits {
		var err error
		switch e.Op {
		case EditSet:
			out, err = SetValue(out, e.Path, e.Value)
		case EditAdd:
			var item map[string]any
			if e.Value == nil {
				item = s[e.Path].DefaultNewItem
			} else if m, ok := e.Value.(map[string]any); ok {
				item = m
			} else {
				err = fmt.Errorf("%s: new array items must be objects", e.Path)
				break
			}
			out, err = AddArrayItem(out, e.Path, item)
		case EditUpdate:
			if e.Field == "" {
				err = fmt.Errorf("%s: update needs a field", e.Path)
				break
			}
			out, err = UpdateArrayItem(out, e.Path, e.Index, e.Field, e.Value)
		case EditRemove:
			out, err = RemoveArrayItem(out, e.Path, e.Index)
		default:
			err = fmt.Errorf("unknown edit operation %q", e.Op)
		}
		if err != nil {
			return nil, fmt.Errorf("edit %d: %w", i, err)
		}
	}
	return out, nil
}

// Lookup walks a dotted path through nested maps.
func Lookup(data map[string]any, path string) (any, bool) {
	var cur any = data
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// SetValue returns a copy of data with the value at path replaced. Missing
// intermediate objects are created. data itself is never modified.
func SetValue(data map[string]any, path string, value any) (map[string]any, error) {
	out := Clone(data)
	parent, key, err := walk(out, path)
	if err != nil {
		return nil, err
	}
	parent[key] = value
	return out, nil
}

// AddArrayItem returns a copy of data with item appended to the array at path.
// A missing array is created.
func AddArrayItem(data map[string]any, path string, item map[string]any) (map[string]any, error) {
	out := Clone(data)
	parent, key, err := walk(out, path)
	if err != nil {
		return nil, err
	}
	items, err := arrayAt(parent, key, path)
	if err != nil {
		return nil, err
	}
	if item == nil {
		item = map[string]any{}
	}
	parent[key] = append(items, cloneValue(item))
	return out, nil
}

// UpdateArrayItem returns a copy of data with field of the item at index set to value.
// An index equal to the array length appends a new item.
func UpdateArrayItem(data map[string]any, path string, index int, field string, value any) (map[string]any, error) {
	out := Clone(data)
	parent, key, err := walk(out, path)
	if err != nil {
		return nil, err
	}
	items, err := arrayAt(parent, key, path)
	if err != nil {
		return nil, err
	}
	if index < 0 || index > len(items) {
		return nil, fmt.Errorf("%s: item index %d out of range [0,%d]", path, index, len(items))
	}
	if index == len(items) {
		items = append(items, map[string]any{})
	}
	item, ok := items[index].(map[string]any)
	if !ok {
		item = map[string]any{}
	}
	item[field] = value
	items[index] = item
	parent[key] = items
	return out, nil
}

// RemoveArrayItem returns a copy of data without the item at index. An out of range
// index leaves the array unchanged.
func RemoveArrayItem(data map[string]any, path string, index int) (map[string]any, error) {
	out := Clone(data)
	parent, key, err := walk(out, path)
	if err != nil {
		return nil, err
	}
	items, err := arrayAt(parent, key, path)
	if err != nil {
		return nil, err
	}
	if index >= 0 && index < len(items) {
		items = append(items[:index], items[index+1:]...)
	}
	parent[key] = items
	return out, nil
}

// walk returns the map holding the last element of path, creating intermediate maps.
func walk(data map[string]any, path string) (map[string]any, string, error) {
	if path == "" {
		return nil, "", fmt.Errorf("path cannot be empty")
	}
	parts := strings.Split(path, ".")
	cur := data
	for i, part := range parts[:len(parts)-1] {
		next, exists := cur[part]
		if !exists || next == nil {
			m := map[string]any{}
			cur[part] = m
			cur = m
			continue
		}
		m, ok := next.(map[string]any)
		if !ok {
			return nil, "", fmt.Errorf("%s: %s is not an object", path, strings.Join(parts[:i+1], "."))
		}
		cur = m
	}
	return cur, parts[len(parts)-1], nil
}

func arrayAt(parent map[string]any, key, path string) ([]any, error) {
	v, exists := parent[key]
	if !exists || v == nil {
		return []any{}, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s is not an array", path)
	}
	return items, nil
}

// Clone deep-copies a JSON-shaped map. A nil map clones to an empty one.
func Clone(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	return cloneValue(data).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, x := range t {
			m[k] = cloneValue(x)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, x := range t {
			s[i] = cloneValue(x)
		}
		return s
	}
	return v
}
