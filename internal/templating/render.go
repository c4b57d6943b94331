package templating

import (
	"regexp"
	"strings"
)

var (
	ifBlock   = regexp.MustCompile(`\{\{#if\s+(\w+)\}\}([\s\S]*?)(?:\{\{else\}\}([\s\S]*?))?\{\{/if\}\}`)
	eachBlock = regexp.MustCompile(`\{\{#each\s+(\w+)\}\}([\s\S]*?)\{\{/each\}\}`)
	varToken  = regexp.MustCompile(`\{\{([\w.]+)\}\}`)
)

// Render substitutes data into a widget template using three whole-template passes:
// conditionals, then loops, then variables. Blocks do not nest; a loop body only
// receives variable substitution scoped to the current element.
//
// Render never fails. Unknown paths become empty strings, an {{#each}} over a
// non-array drops its body, and a nil data map renders every token as empty.
func Render(template string, data map[string]any) string {
	if template == "" {
		return ""
	}
	if data == nil {
		data = map[string]any{}
	}

	result := processConditionals(template, data)
	result = processLoops(result, data)
	return processVariables(result, data)
}

// processConditionals resolves {{#if key}}...{{else}}...{{/if}} with a direct lookup of key.
func processConditionals(template string, data map[string]any) string {
	return replaceSubmatches(ifBlock, template, func(m []string) string {
		if truthy(data[m[1]]) {
			return m[2]
		}
		return m[3]
	})
}

// processLoops expands {{#each key}}...{{/each}} once per element of data[key].
func processLoops(template string, data map[string]any) string {
	return replaceSubmatches(eachBlock, template, func(m []string) string {
		items, ok := asSlice(data[m[1]])
		if !ok {
			return ""
		}
		var b strings.Builder
		for _, item := range items {
			b.WriteString(processVariables(m[2], item))
		}
		return b.String()
	})
}

// processVariables replaces {{path}} tokens, walking dotted paths through data.
func processVariables(template string, data any) string {
	return replaceSubmatches(varToken, template, func(m []string) string {
		v, ok := lookup(data, m[1])
		if !ok {
			return ""
		}
		return toString(v)
	})
}

// replaceSubmatches is ReplaceAllStringFunc with access to the capture groups.
// Groups that did not participate in the match are passed as "".
func replaceSubmatches(re *regexp.Regexp, s string, fn func([]string) string) string {
	matches := re.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s
	}

	var b strings.Builder
	last := 0
	for _, loc := range matches {
		b.WriteString(s[last:loc[0]])
		groups := make([]string, len(loc)/2)
		for i := range groups {
			if loc[2*i] >= 0 {
				groups[i] = s[loc[2*i]:loc[2*i+1]]
			}
		}
		b.WriteString(fn(groups))
		last = loc[1]
	}
	b.WriteString(s[last:])
	return b.String()
}
