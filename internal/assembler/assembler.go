// Package assembler turns an ordered list of widget instances into one page fragment.
package assembler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"go-site-builder/internal/model"
	"go-site-builder/internal/storage"
	"go-site-builder/internal/templating"

	"github.com/sourcegraph/conc/panics"
)

// Renderer renders a template with data. *templating.Engine implements it.
type Renderer interface {
	Render(template string, data map[string]any) string
}

// Status tags the outcome of rendering a single widget instance.
type Status int

const (
	Rendered Status = iota
	Skipped         // Missing reference, unknown definition or definition without html
	Failed          // Render step failed; HTML holds the error fragment
)

func (s Status) String() string {
	switch s {
	case Rendered:
		return "rendered"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Result is the outcome of one widget instance.
type Result struct {
	Index    int
	Instance model.WidgetInstance
	Status   Status
	HTML     string // Wrapped widget markup, or the error fragment when Failed
	CSS      string // Empty unless Rendered
	Err      error  // Cause of a Skipped or Failed result
}

// Assembler builds page content from widget instances.
// It is safe for concurrent use if its Loader is.
type Assembler struct {
	loader    storage.Loader
	renderer  Renderer
	logger    *slog.Logger
	embedData bool
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithRenderer replaces the default (non-nested) template engine.
func WithRenderer(r Renderer) Option {
	return func(a *Assembler) {
		if r != nil {
			a.renderer = r
		}
	}
}

// WithLogger sets the logger for skipped and failed widgets.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithEmbeddedData serializes instance data into a data-widget-data attribute so
// the full instance can be recovered from the markup.
func WithEmbeddedData(enabled bool) Option {
	return func(a *Assembler) { a.embedData = enabled }
}

// New creates an Assembler resolving definitions through loader.
func New(loader storage.Loader, opts ...Option) *Assembler {
	a := &Assembler{
		loader:   loader,
		renderer: templating.NewEngine(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ConstructPageContent renders widgets in order and concatenates their HTML and CSS.
// Per-widget problems never abort assembly: skipped widgets contribute nothing and
// failed widgets contribute an error fragment but no CSS.
func (a *Assembler) ConstructPageContent(ctx context.Context, widgets []model.WidgetInstance) model.Fragment {
	var component, styles strings.Builder
	for _, res := range a.RenderWidgets(ctx, widgets) {
		component.WriteString(res.HTML)
		styles.WriteString(res.CSS)
	}
	return model.Fragment{Component: component.String(), Styles: styles.String()}
}

// RenderWidgets renders each instance sequentially and returns one Result per
// instance, in input order. Cancellation of ctx does not cut a page short: loads run
// on a context detached from ctx's cancellation, so callers that must stop early
// check ctx before assembling a page.
func (a *Assembler) RenderWidgets(ctx context.Context, widgets []model.WidgetInstance) []Result {
	ctx = context.WithoutCancel(ctx)
	results := make([]Result, 0, len(widgets))
	for i, w := range widgets {
		res := a.renderOne(ctx, i, w)
		switch res.Status {
		case Skipped:
			a.logger.Warn("Skipping widget", "index", i, "folder", w.Folder, "templateId", w.TemplateID, "reason", res.Err)
		case Failed:
			a.logger.Error("Error rendering widget", "index", i, "folder", w.Folder, "templateId", w.TemplateID, "error", res.Err)
		}
		results = append(results, res)
	}
	return results
}

func (a *Assembler) renderOne(ctx context.Context, index int, w model.WidgetInstance) (res Result) {
	res = Result{Index: index, Instance: w}

	// 1. The reference must name a definition: both halves present, no path
	// elements, nothing that could close the delimiting comments.
	if err := storage.ValidateKey(w.Folder, w.TemplateID); err != nil {
		res.Status = Skipped
		res.Err = err
		return res
	}

	var (
		def       *model.WidgetDefinition
		loadErr   error
		htmlOut   string
		cssOut    string
		renderErr error
	)

	// 2. Everything past validation runs under a panic catcher so a misbehaving
	// loader or renderer only takes down its own widget.
	var pc panics.Catcher
	pc.Try(func() {
		def, loadErr = a.loader.Load(ctx, w.Folder, w.TemplateID)
		if loadErr != nil || def == nil || def.HTML == "" {
			return
		}
		data := w.Data
		if data == nil {
			data = def.DefaultData
		}
		htmlOut = a.renderer.Render(def.HTML, data)
		cssOut = a.renderer.Render(def.CSS, data)
		htmlOut, renderErr = a.wrap(w, htmlOut)
	})
	if r := pc.Recovered(); r != nil {
		a.logger.Debug("Recovered panic while rendering widget", "index", index, "stack", string(r.Stack))
		return a.fail(res, fmt.Errorf("panic: %v", r.Value))
	}

	// 3. Classify.
	switch {
	case errors.Is(loadErr, storage.ErrNotFound), errors.Is(loadErr, storage.ErrInvalidReference):
		res.Status = Skipped
		res.Err = loadErr
	case loadErr != nil:
		return a.fail(res, fmt.Errorf("loading definition: %w", loadErr))
	case def == nil:
		res.Status = Skipped
		res.Err = fmt.Errorf("%s: %w", model.DefinitionKey(w.Folder, w.TemplateID), storage.ErrNotFound)
	case def.HTML == "":
		res.Status = Skipped
		res.Err = fmt.Errorf("widget definition %s has no html", def.Key())
	case renderErr != nil:
		return a.fail(res, renderErr)
	default:
		res.Status = Rendered
		res.HTML = htmlOut
		res.CSS = cssOut
	}
	return res
}

func (a *Assembler) fail(res Result, err error) Result {
	res.Status = Failed
	res.Err = err
	res.HTML = ErrorFragment(res.Instance.Folder, res.Instance.TemplateID, err)
	return res
}

// wrap surrounds rendered HTML with the identity markup that extraction relies on.
func (a *Assembler) wrap(w model.WidgetInstance, rendered string) (string, error) {
	key := model.DefinitionKey(w.Folder, w.TemplateID)

	var b strings.Builder
	b.WriteString("<!-- Widget: " + key + " -->")
	b.WriteString(`<div data-widget-id="` + html.EscapeString(w.ID) + `"`)
	b.WriteString(` data-widget-type="` + html.EscapeString(w.Folder) + `"`)
	b.WriteString(` data-widget-template="` + html.EscapeString(w.TemplateID) + `"`)
	if a.embedData && w.Data != nil {
		encoded, err := EncodeData(w.Data)
		if err != nil {
			return "", err
		}
		b.WriteString(` data-widget-data="` + encoded + `"`)
	}
	b.WriteString(">")
	b.WriteString(rendered)
	b.WriteString("</div><!-- End Widget: " + key + " -->")
	return b.String(), nil
}

// EncodeData serializes instance data for the data-widget-data attribute. The
// result uses percent-encoding with %20 for spaces and is safe inside a quoted attribute.
func EncodeData(data map[string]any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return "", fmt.Errorf("encoding widget data: %w", err)
	}
	raw := strings.TrimSuffix(buf.String(), "\n")
	return strings.ReplaceAll(url.QueryEscape(raw), "+", "%20"), nil
}

// ErrorFragment is the visible placeholder emitted in place of a failed widget.
func ErrorFragment(folder, templateID string, err error) string {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return fmt.Sprintf(`<div class="widget-error">Error rendering widget %s: %s</div>`,
		html.EscapeString(model.DefinitionKey(folder, templateID)), html.EscapeString(msg))
}
