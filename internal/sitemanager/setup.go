package sitemanager

import (
	"fmt"
	"log/slog"

	"go-site-builder/internal/assembler"
	"go-site-builder/internal/config"
	"go-site-builder/internal/publish"
	"go-site-builder/internal/storage"
	"go-site-builder/internal/templating"
	"go-site-builder/internal/widgets"

	"github.com/spf13/afero"
)

// FromConfig wires a Manager from configuration. Definitions are looked up in the
// built-in widget library first, then in cfg.Widgets.Dir on fs.
func FromConfig(cfg *config.Config, fs afero.Fs, logger *slog.Logger) (*Manager, error) {
	files, err := storage.NewFileStore(fs, cfg.Widgets.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open widgets directory: %w", err)
	}
	store := storage.Chain{widgets.Builtin(), files}

	engine := templating.NewEngine(
		templating.WithNested(cfg.Templating.Nested),
		templating.WithLogger(logger),
	)
	asm := assembler.New(store,
		assembler.WithRenderer(engine),
		assembler.WithLogger(logger),
		assembler.WithEmbeddedData(cfg.Build.EmbedData),
	)
	writer := publish.NewWriter(cfg.Build.Dir, logger)

	return NewManager(store, files, asm, writer, logger, Options{
		Scripts: cfg.Build.Scripts,
		LibDir:  cfg.Build.LibDir,
		Workers: cfg.Build.Workers,
	}), nil
}
