// Package extract rebuilds widget instances from assembled page markup.
package extract

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"go-site-builder/internal/model"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/net/html"
)

const (
	attrID       = "data-widget-id"
	attrType     = "data-widget-type"
	attrTemplate = "data-widget-template"
	attrData     = "data-widget-data"
)

// Widgets returns the widget instances marked up in s, in document order.
func Widgets(s string) ([]model.WidgetInstance, error) {
	return Read(strings.NewReader(s))
}

// Read is like Widgets but parses from r.
//
// Instance data is recovered from the data-widget-data attribute when present and
// is nil otherwise. Elements whose data attribute cannot be decoded are still
// returned, without data; the decoding problems are reported together in the error.
// Elements with an empty id get a generated one.
func Read(r io.Reader) ([]model.WidgetInstance, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page markup: %w", err)
	}

	instances := []model.WidgetInstance{}
	var errs error
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if attrs, ok := widgetAttrs(n); ok {
				inst, err := instanceFrom(attrs)
				errs = multierr.Append(errs, err)
				instances = append(instances, inst)
				return // Widgets do not nest
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)
	return instances, errs
}

func widgetAttrs(n *html.Node) (map[string]string, bool) {
	attrs := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		attrs[a.Key] = a.Val
	}
	_, ok := attrs[attrID]
	return attrs, ok
}

func instanceFrom(attrs map[string]string) (model.WidgetInstance, error) {
	inst := model.WidgetInstance{
		ID:         attrs[attrID],
		Folder:     attrs[attrType],
		TemplateID: attrs[attrTemplate],
	}
	if inst.ID == "" {
		inst.ID = uuid.New().String()
	}

	raw, ok := attrs[attrData]
	if !ok || raw == "" {
		return inst, nil
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return inst, fmt.Errorf("widget %s: invalid %s encoding: %w", inst.ID, attrData, err)
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(decoded), &data); err != nil {
		return inst, fmt.Errorf("widget %s: invalid %s payload: %w", inst.ID, attrData, err)
	}
	inst.Data = data
	return inst, nil
}
