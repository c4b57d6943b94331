package templating

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// lookup walks a dotted path through maps and slices. The boolean reports whether
// the final element exists; a nil intermediate value ends the walk as missing.
func lookup(data any, path string) (any, bool) {
	cur := data
	for _, part := range strings.Split(path, ".") {
		if cur == nil {
			return nil, false
		}
		next, ok := child(cur, part)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func child(v any, key string) (any, bool) {
	switch t := v.(type) {
	case map[string]any:
		x, ok := t[key]
		return x, ok
	case []any:
		return index(len(t), key, func(i int) any { return t[i] })
	case map[string]string:
		x, ok := t[key]
		return x, ok
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		x := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !x.IsValid() {
			return nil, false
		}
		return x.Interface(), true
	case reflect.Slice, reflect.Array:
		return index(rv.Len(), key, func(i int) any { return rv.Index(i).Interface() })
	}
	return nil, false
}

func index(n int, key string, at func(int) any) (any, bool) {
	if key == "length" {
		return n, true
	}
	i, err := strconv.Atoi(key)
	if err != nil || i < 0 || i >= n {
		return nil, false
	}
	return at(i), true
}

// asSlice reports whether v is an array value and returns its elements.
func asSlice(v any) ([]any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case []any:
		return t, true
	case []map[string]any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// truthy applies script-style coercion: nil, false, zero, NaN and "" are false,
// everything else (including empty arrays and objects) is true.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0 && !math.IsNaN(t)
	case float32:
		return t != 0 && !math.IsNaN(float64(t))
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return cast.ToFloat64(t) != 0
	}
	return true
}

// toString formats a value the way string interpolation in the editor does:
// integral numbers without decimals, arrays comma-joined, objects opaque.
func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		if math.IsNaN(t) {
			return "NaN"
		}
		return cast.ToString(t)
	case bool, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return cast.ToString(t)
	case map[string]any:
		return "[object Object]"
	}

	if items, ok := asSlice(v); ok {
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = toString(item)
		}
		return strings.Join(parts, ",")
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Struct, reflect.Pointer:
		return "[object Object]"
	}
	return cast.ToString(v)
}
