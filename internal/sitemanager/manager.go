package sitemanager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"go-site-builder/internal/assembler"
	"go-site-builder/internal/generator"
	"go-site-builder/internal/model"
	"go-site-builder/internal/publish"
	"go-site-builder/internal/schema"
	"go-site-builder/internal/storage"

	"github.com/sourcegraph/conc/iter"
	"go.uber.org/multierr"
)

// Manager ties widget definitions, page assembly and publishing together.
// It encapsulates the logic shared by the CLI and the HTTP server.
type Manager struct {
	store     storage.DefinitionStore
	files     *storage.FileStore // Writable definitions; nil when widgets are read-only
	assembler *assembler.Assembler
	writer    *publish.Writer
	logger    *slog.Logger

	scripts []string // Script files linked from every published page
	libDir  string   // Copied into the build as scripts/ when set
	workers int
}

// Options holds the publishing settings of a Manager.
type Options struct {
	Scripts []string
	LibDir  string
	Workers int // Pages written concurrently; values below 1 mean 1
}

// NewManager creates a new Manager. files may be nil.
func NewManager(store storage.DefinitionStore, files *storage.FileStore, asm *assembler.Assembler, writer *publish.Writer, logger *slog.Logger, opts Options) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Manager{
		store:     store,
		files:     files,
		assembler: asm,
		writer:    writer,
		logger:    logger,
		scripts:   opts.Scripts,
		libDir:    opts.LibDir,
		workers:   opts.Workers,
	}
}

// --- Getter Methods ---

// GetStore returns the definition store.
func (m *Manager) GetStore() storage.DefinitionStore {
	return m.store
}

// GetFiles returns the writable definition store, or nil.
func (m *Manager) GetFiles() *storage.FileStore {
	return m.files
}

// GetBuildDir returns the directory pages are published to.
func (m *Manager) GetBuildDir() string {
	return m.writer.Dir()
}

// --- Widget definitions ---

// ListWidgets returns every known widget definition.
func (m *Manager) ListWidgets(ctx context.Context) ([]*model.WidgetDefinition, error) {
	return m.store.List(ctx)
}

// GetWidget returns one widget definition.
func (m *Manager) GetWidget(ctx context.Context, folder, templateID string) (*model.WidgetDefinition, error) {
	return m.store.Load(ctx, folder, templateID)
}

// CreateWidget generates a boilerplate definition and saves it to the widgets
// directory. With an empty templateID the next free variant ID of the folder is used.
func (m *Manager) CreateWidget(ctx context.Context, title, folder, templateID string) (*model.WidgetDefinition, error) {
	m.logger.Info("Creating widget", "title", title, "folder", folder, "templateId", templateID)
	if m.files == nil {
		return nil, errors.New("widget definitions are read-only: no widgets directory configured")
	}

	// 1. Generate the definition
	cfg := generator.DefaultGeneratorConfig()
	def, err := generator.GenerateWidgetDefinition(cfg, title, folder, templateID)
	if err != nil {
		return nil, fmt.Errorf("generating widget definition failed: %w", err)
	}

	// 2. Pick the next variant ID unless one was requested
	if templateID == "" {
		existing, err := m.store.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing widget definitions failed: %w", err)
		}
		var ids []string
		for _, d := range storage.GroupByFolder(existing)[def.Folder] {
			ids = append(ids, d.ID)
		}
		def.ID = generator.NextTemplateID(def.Folder, ids)
	}

	// 3. Refuse to overwrite
	if _, err := m.store.Load(ctx, def.Folder, def.ID); err == nil {
		return nil, fmt.Errorf("widget definition %s already exists", def.Key())
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("checking for widget definition %s failed: %w", def.Key(), err)
	}

	// 4. Save
	if err := m.files.Save(def); err != nil {
		m.logger.Error("Error saving widget definition", "key", def.Key(), "error", err)
		return nil, fmt.Errorf("saving widget definition failed: %w", err)
	}

	m.logger.Info("Successfully created widget", "key", def.Key(), "directory", m.files.GetBasePath())
	return def, nil
}

// DeleteWidget removes a definition from the widgets directory.
func (m *Manager) DeleteWidget(folder, templateID string) error {
	if m.files == nil {
		return errors.New("widget definitions are read-only: no widgets directory configured")
	}
	if err := m.files.Delete(folder, templateID); err != nil {
		m.logger.Error("Error deleting widget definition", "folder", folder, "templateId", templateID, "error", err)
		return err
	}
	m.logger.Info("Deleted widget definition", "folder", folder, "templateId", templateID)
	return nil
}

// WidgetForm returns the editing form of a definition for the given data.
func (m *Manager) WidgetForm(ctx context.Context, folder, templateID string, data map[string]any) (model.Form, error) {
	def, err := m.store.Load(ctx, folder, templateID)
	if err != nil {
		return model.Form{}, err
	}
	return schema.GenerateForm(def, data), nil
}

// --- Pages ---

// RenderPage assembles a page and returns it with Component and Styles filled in.
func (m *Manager) RenderPage(ctx context.Context, page model.Page) model.Page {
	frag := m.assembler.ConstructPageContent(ctx, page.Widgets)
	page.Component = frag.Component
	page.Styles = frag.Styles
	return page
}

type publishJob struct {
	page     model.Page
	fileName string
}

// PublishAll renders and writes every page into the build directory. A page that
// fails does not stop the others: the pages written are returned together with the
// combined errors of the rest. With clean set, the build directory is emptied first.
func (m *Manager) PublishAll(ctx context.Context, pages []model.Page, clean bool) ([]publish.PublishedPage, error) {
	m.logger.Info("Publishing site", "pages", len(pages), "buildDir", m.writer.Dir(), "clean", clean)

	// 1. Prepare the build directory
	if err := m.writer.Prepare(clean); err != nil {
		return nil, fmt.Errorf("preparing build directory failed: %w", err)
	}

	var errs error
	if m.libDir != "" {
		if _, err := m.writer.CopyLib(m.libDir); err != nil {
			m.logger.Error("Error copying script library", "from", m.libDir, "error", err)
			errs = multierr.Append(errs, err)
		}
	}

	// 2. Resolve file names up front so two pages never write the same file
	var jobs []publishJob
	taken := make(map[string]string)
	for _, page := range pages {
		name := publish.NormalizeFileName(page.Title, page.ID)
		if other, dup := taken[name]; dup {
			err := fmt.Errorf("page %q: file name %q is already used by page %q", page.Title, name, other)
			m.logger.Error("Skipping page", "error", err)
			errs = multierr.Append(errs, err)
			continue
		}
		taken[name] = page.Title
		jobs = append(jobs, publishJob{page: page, fileName: name})
	}

	// 3. Render and write pages concurrently; each page is assembled sequentially.
	// Once ctx is cancelled no further page is started, and a started page is
	// always written whole.
	type outcome struct {
		published publish.PublishedPage
		err       error
	}
	mapper := iter.Mapper[publishJob, outcome]{MaxGoroutines: m.workers}
	outcomes := mapper.Map(jobs, func(job *publishJob) outcome {
		if err := ctx.Err(); err != nil {
			return outcome{err: fmt.Errorf("page %q not published: %w", job.page.Title, err)}
		}
		rendered := m.RenderPage(ctx, job.page)
		doc := publish.Document(job.page.Title, rendered.Component, job.fileName, m.scripts)
		published, err := m.writer.WritePage(job.fileName, doc, rendered.Styles)
		if err != nil {
			m.logger.Error("Error publishing page", "title", job.page.Title, "id", job.page.ID, "error", err)
			return outcome{err: fmt.Errorf("page %q: %w", job.page.Title, err)}
		}
		published.ID = job.page.ID
		published.Title = job.page.Title
		return outcome{published: published}
	})

	published := []publish.PublishedPage{}
	for _, o := range outcomes {
		if o.err != nil {
			errs = multierr.Append(errs, o.err)
			continue
		}
		published = append(published, o.published)
	}

	m.logger.Info("Published site", "published", len(published), "failed", len(multierr.Errors(errs)))
	return published, errs
}

// ListPages lists the pages currently in the build directory.
func (m *Manager) ListPages() ([]publish.PageInfo, error) {
	return publish.ListPages(m.writer.Dir())
}
