package templating

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// helpers available in nested-mode conditions, e.g. {{#if (eq iconName "star")}}.
var helpers = map[string]func(args []any) any{
	"eq":     func(a []any) any { return len(a) == 2 && equal(a[0], a[1]) },
	"ne":     func(a []any) any { return len(a) == 2 && !equal(a[0], a[1]) },
	"not":    func(a []any) any { return len(a) == 1 && !truthy(a[0]) },
	"and":    func(a []any) any { return len(a) > 0 && all(a, truthy) },
	"or":     func(a []any) any { return !all(a, func(v any) bool { return !truthy(v) }) },
	"isOdd":  func(a []any) any { return len(a) == 1 && isInt(a[0]) && cast.ToInt64(a[0])%2 != 0 },
	"isEven": func(a []any) any { return len(a) == 1 && isInt(a[0]) && cast.ToInt64(a[0])%2 == 0 },
}

// eval evaluates a condition: a path, or a parenthesised helper call.
// Unknown helpers and malformed calls evaluate to nil (falsy).
func (s *scope) eval(expr string) any {
	expr = strings.TrimSpace(expr)
	if !strings.HasPrefix(expr, "(") {
		v, _ := s.resolve(expr)
		return v
	}
	if !strings.HasSuffix(expr, ")") {
		return nil
	}

	words := splitArgs(expr[1 : len(expr)-1])
	if len(words) == 0 {
		return nil
	}
	fn, ok := helpers[words[0]]
	if !ok {
		return nil
	}
	args := make([]any, 0, len(words)-1)
	for _, w := range words[1:] {
		args = append(args, s.literal(w))
	}
	return fn(args)
}

// literal resolves one helper argument: a quoted string, number, boolean or path.
func (s *scope) literal(word string) any {
	if len(word) >= 2 && (word[0] == '"' || word[0] == '\'') && word[len(word)-1] == word[0] {
		return word[1 : len(word)-1]
	}
	switch word {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	if f, err := strconv.ParseFloat(word, 64); err == nil {
		return f
	}
	v, _ := s.resolve(word)
	return v
}

// splitArgs splits on whitespace outside quotes.
func splitArgs(s string) []string {
	var (
		out   []string
		cur   strings.Builder
		quote rune
	)
	for _, r := range s {
		switch {
		case quote != 0:
			cur.WriteRune(r)
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
			cur.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n':
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

func equal(a, b any) bool {
	if isNumber(a) && isNumber(b) {
		return cast.ToFloat64(a) == cast.ToFloat64(b)
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

func isInt(v any) bool {
	if !isNumber(v) {
		return false
	}
	f := cast.ToFloat64(v)
	return f == float64(int64(f))
}

func all(vs []any, pred func(any) bool) bool {
	for _, v := range vs {
		if !pred(v) {
			return false
		}
	}
	return true
}
