package generator

import (
	"fmt"
	"strconv"
	"strings"

	"go-site-builder/internal/model"
	"go-site-builder/pkg/fsutils"
)

// Config holds the boilerplate used for new widget definitions.
// HTML and CSS may use {{ .Title }} and {{ .ClassName }}, which are replaced at
// generation time; every other token is left for the widget renderer.
type Config struct {
	HTML        string
	CSS         string
	Schema      model.Schema
	DefaultData map[string]any
	Sections    []model.Section
}

// DefaultGeneratorConfig provides the starter definition: a titled section with a
// subtitle and two color settings.
func DefaultGeneratorConfig() Config {
	const defaultHTML = `<section class="{{ .ClassName }}">
  <h2 class="{{ .ClassName }}-title">{{title}}</h2>
  {{#if subtitle}}
    <p class="{{ .ClassName }}-subtitle">{{subtitle}}</p>
  {{/if}}
</section>`

	const defaultCSS = `.{{ .ClassName }} {
  padding: 40px 20px;
  background-color: {{styles.backgroundColor}};
}

.{{ .ClassName }}-title {
  color: {{styles.textColor}};
}`

	maxTitle := 80
	return Config{
		HTML: defaultHTML,
		CSS:  defaultCSS,
		Schema: model.Schema{
			"title":                  {Type: model.FieldText, Label: "Title", Validation: &model.Validation{Required: true, MaxLength: &maxTitle}},
			"subtitle":               {Type: model.FieldTextarea, Label: "Subtitle"},
			"styles.backgroundColor": {Type: model.FieldColor, Label: "Background Color"},
			"styles.textColor":       {Type: model.FieldColor, Label: "Text Color"},
		},
		DefaultData: map[string]any{
			"title":    "{{ .Title }}",
			"subtitle": "",
			"styles": map[string]any{
				"backgroundColor": "#ffffff",
				"textColor":       "#222222",
			},
		},
		Sections: []model.Section{
			{ID: "content", Title: "Content", Fields: []string{"title", "subtitle"}},
			{ID: "appearance", Title: "Appearance", Fields: []string{"styles.backgroundColor", "styles.textColor"}},
		},
	}
}

// GenerateWidgetDefinition builds a new definition from cfg. The folder is derived
// from folder, or from title when folder is empty; templateID defaults to
// "<folder>_1".
func GenerateWidgetDefinition(cfg Config, title, folder, templateID string) (*model.WidgetDefinition, error) {
	if title == "" {
		return nil, fmt.Errorf("widget title cannot be empty")
	}
	if folder == "" {
		folder = title
	}
	folder = fsutils.SanitizeIdentifier(folder)
	if folder == "" {
		return nil, fmt.Errorf("cannot derive a widget folder from %q", title)
	}
	if templateID == "" {
		templateID = folder + "_1"
	}
	templateID = fsutils.SanitizeIdentifier(templateID)
	if templateID == "" {
		return nil, fmt.Errorf("invalid template ID for widget %q", title)
	}

	r := strings.NewReplacer(
		"{{ .Title }}", title,
		"{{ .ClassName }}", strings.ReplaceAll(folder, "_", "-"),
	)

	def := &model.WidgetDefinition{
		ID:     templateID,
		Folder: folder,
		Title:  title,
		HTML:   r.Replace(cfg.HTML),
		CSS:    r.Replace(cfg.CSS),
		Schema: make(model.Schema, len(cfg.Schema)),
	}
	for k, v := range cfg.Schema {
		def.Schema[k] = v
	}
	if cfg.DefaultData != nil {
		def.DefaultData = replaceStrings(cfg.DefaultData, r).(map[string]any)
	}
	if len(cfg.Sections) > 0 {
		def.Metadata = &model.Metadata{
			Description:          title + " widget",
			CustomizableSections: append([]model.Section(nil), cfg.Sections...),
		}
	}
	if err := def.CheckMetadata(); err != nil {
		return nil, fmt.Errorf("generator config is inconsistent: %w", err)
	}
	return def, nil
}

// NextTemplateID returns the next free "<folder>_<n>" ID given the IDs already used
// in that folder.
func NextTemplateID(folder string, existing []string) string {
	highest := 0
	prefix := folder + "_"
	for _, id := range existing {
		n, err := strconv.Atoi(strings.TrimPrefix(id, prefix))
		if err != nil || !strings.HasPrefix(id, prefix) {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return prefix + strconv.Itoa(highest+1)
}

// replaceStrings deep-copies v, applying r to every string.
func replaceStrings(v any, r *strings.Replacer) any {
	switch t := v.(type) {
	case string:
		return r.Replace(t)
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, x := range t {
			m[k] = replaceStrings(x, r)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, x := range t {
			s[i] = replaceStrings(x, r)
		}
		return s
	}
	return v
}
