package templating

import (
	"regexp"
	"strings"
)

type nodeKind int

const (
	textNode nodeKind = iota
	varNode
	ifNode
	eachNode
)

// node is one element of a parsed template. Block nodes keep their raw opening tag
// so that an unterminated block can be emitted back as literal text.
type node struct {
	kind     nodeKind
	text     string // literal text, variable path, condition or loop path
	raw      string // original "{{...}}" of block tags
	children []*node
	elseRaw  string
	elseBody []*node
	hasElse  bool
}

var pathToken = regexp.MustCompile(`^(?:\.\./)*(?:@index|this|[\w]+)(?:\.[\w]+)*$`)

// parse builds a block tree from a template. Malformed structure degrades to text:
// stray closing tags stay literal and unclosed blocks are flattened into their parent.
func parse(src string) []*node {
	root := &node{}
	stack := []*node{root}

	appendTo := func(n *node) {
		top := stack[len(stack)-1]
		if top.hasElse {
			top.elseBody = append(top.elseBody, n)
		} else {
			top.children = append(top.children, n)
		}
	}
	text := func(s string) {
		if s != "" {
			appendTo(&node{kind: textNode, text: s})
		}
	}

	for len(src) > 0 {
		start := strings.Index(src, "{{")
		if start < 0 {
			text(src)
			break
		}
		end := strings.Index(src[start+2:], "}}")
		if end < 0 {
			text(src)
			break
		}
		text(src[:start])
		raw := src[start : start+2+end+2]
		inner := strings.TrimSpace(src[start+2 : start+2+end])
		src = src[start+2+end+2:]

		top := stack[len(stack)-1]
		switch {
		case strings.HasPrefix(inner, "#if ") || strings.HasPrefix(inner, "#if("):
			n := &node{kind: ifNode, text: strings.TrimSpace(inner[3:]), raw: raw}
			appendTo(n)
			stack = append(stack, n)
		case strings.HasPrefix(inner, "#each "):
			n := &node{kind: eachNode, text: strings.TrimSpace(inner[5:]), raw: raw}
			appendTo(n)
			stack = append(stack, n)
		case inner == "else" && top.kind == ifNode && !top.hasElse:
			top.hasElse = true
			top.elseRaw = raw
		case inner == "/if" && top.kind == ifNode, inner == "/each" && top.kind == eachNode:
			stack = stack[:len(stack)-1]
		case pathToken.MatchString(raw[2 : len(raw)-2]):
			appendTo(&node{kind: varNode, text: inner})
		default:
			text(raw)
		}
	}

	// Unclosed blocks: replace each with its raw tag followed by its contents.
	for len(stack) > 1 {
		open := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		parent := stack[len(stack)-1]
		flat := []*node{{kind: textNode, text: open.raw}}
		flat = append(flat, open.children...)
		if open.hasElse {
			flat = append(flat, &node{kind: textNode, text: open.elseRaw})
			flat = append(flat, open.elseBody...)
		}
		parent.replaceLast(open, flat)
	}
	return root.children
}

// replaceLast swaps the trailing occurrence of old in n's active body with repl.
func (n *node) replaceLast(old *node, repl []*node) {
	body := &n.children
	if n.hasElse {
		body = &n.elseBody
	}
	for i := len(*body) - 1; i >= 0; i-- {
		if (*body)[i] == old {
			tail := append([]*node{}, (*body)[i+1:]...)
			*body = append(append((*body)[:i], repl...), tail...)
			return
		}
	}
}
