package templating

import (
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Engine renders widget templates. By default it behaves exactly like Render.
// With nesting enabled it parses templates into a block tree, which lifts the
// single-level restriction: blocks may nest, loop bodies get the full language,
// and conditions accept dotted paths and comparison helpers.
type Engine struct {
	nested bool
	logger *slog.Logger

	mu    sync.RWMutex
	trees map[string][]*node // Parsed templates, keyed by source
}

// maxCachedTemplates bounds the parse cache. When full it is emptied and refilled.
const maxCachedTemplates = 512

// Option configures an Engine.
type Option func(*Engine)

// WithNested enables nested {{#if}}/{{#each}} blocks.
func WithNested(enabled bool) Option {
	return func(e *Engine) { e.nested = enabled }
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates a new template engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		trees:  make(map[string][]*node),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render renders template with data. It never fails.
func (e *Engine) Render(template string, data map[string]any) string {
	if !e.nested {
		return Render(template, data)
	}
	if template == "" {
		return ""
	}
	if data == nil {
		data = map[string]any{}
	}

	var b strings.Builder
	s := &scope{data: data}
	e.exec(&b, e.tree(template), s)
	return b.String()
}

func (e *Engine) tree(template string) []*node {
	e.mu.RLock()
	t, ok := e.trees[template]
	e.mu.RUnlock()
	if ok {
		return t
	}

	t = parse(template)
	e.mu.Lock()
	if len(e.trees) >= maxCachedTemplates {
		e.trees = make(map[string][]*node)
	}
	e.trees[template] = t
	e.mu.Unlock()
	e.logger.Debug("Parsed template", "bytes", len(template), "nodes", len(t))
	return t
}

func (e *Engine) exec(b *strings.Builder, nodes []*node, s *scope) {
	for _, n := range nodes {
		switch n.kind {
		case textNode:
			b.WriteString(n.text)
		case varNode:
			if v, ok := s.resolve(n.text); ok {
				b.WriteString(toString(v))
			}
		case ifNode:
			if truthy(s.eval(n.text)) {
				e.exec(b, n.children, s)
			} else {
				e.exec(b, n.elseBody, s)
			}
		case eachNode:
			v, _ := s.resolve(n.text)
			items, ok := asSlice(v)
			if !ok {
				continue
			}
			for i, item := range items {
				e.exec(b, n.children, &scope{data: item, index: i, inLoop: true, parent: s})
			}
		}
	}
}

// scope is one level of data visible to a template: the root data or a loop element.
type scope struct {
	data   any
	index  int
	inLoop bool
	parent *scope
}

// resolve looks up a path. "this" and "@index" refer to the current element,
// "../" climbs one scope, and other paths are searched from the innermost scope
// outwards by their first segment.
func (s *scope) resolve(path string) (any, bool) {
	cur := s
	for strings.HasPrefix(path, "../") {
		path = path[3:]
		if cur.parent != nil {
			cur = cur.parent
		}
	}

	head, rest, _ := strings.Cut(path, ".")
	switch head {
	case "this":
		if rest == "" {
			return cur.data, true
		}
		return lookup(cur.data, rest)
	case "@index":
		if !cur.inLoop {
			return nil, false
		}
		return cur.index, true
	}

	for sc := cur; sc != nil; sc = sc.parent {
		if _, ok := child(sc.data, head); ok {
			return lookup(sc.data, path)
		}
	}
	return nil, false
}
