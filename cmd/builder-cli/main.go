package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"go-site-builder/internal/config"
	"go-site-builder/internal/extract"
	"go-site-builder/internal/model"
	"go-site-builder/internal/schema"
	"go-site-builder/internal/sitemanager"
	"go-site-builder/internal/storage"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"
)

// errUsage is returned for malformed command lines; usage has already been printed.
var errUsage = errors.New("invalid usage")

// cli carries the per-invocation state of a subcommand.
type cli struct {
	stdout  io.Writer
	stderr  io.Writer
	fs      afero.Fs
	manager *sitemanager.Manager
}

type command struct {
	name    string
	usage   string
	summary string
	flags   func(fs *pflag.FlagSet) func(ctx context.Context, c *cli) error
}

var commands = []command{
	{"list", "list", "List all widget definitions", listCommand},
	{"new-widget", "new-widget --title <title> [--folder <folder>] [--id <templateId>]", "Create a widget definition file", newWidgetCommand},
	{"delete-widget", "delete-widget --folder <folder> --id <templateId>", "Delete a widget definition file", deleteWidgetCommand},
	{"render", "render --page <page.json>", "Assemble a page and print its component and styles", renderCommand},
	{"fields", "fields --folder <folder> --id <templateId> [--data <data.json>] [--set path=value]... [--out <data.json>]", "Print the editing form of a widget and validate its data", fieldsCommand},
	{"extract", "extract --html <file.html>", "Rebuild widget instances from assembled HTML", extractCommand},
	{"publish", "publish --pages <pages.json> [--clean]", "Render every page into the build directory", publishCommand},
	{"pages", "pages", "List pages in the build directory", pagesCommand},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	return runWithFs(ctx, afero.NewOsFs(), args, stdout, stderr)
}

func runWithFs(ctx context.Context, fsys afero.Fs, args []string, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		printUsage(stderr)
		return errUsage
	}

	var cmd *command
	for i := range commands {
		if commands[i].name == args[0] {
			cmd = &commands[i]
			break
		}
	}
	if cmd == nil {
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return errUsage
	}

	// 1. Parse flags: shared configuration flags plus the command's own
	flags := pflag.NewFlagSet(cmd.name, pflag.ContinueOnError)
	flags.SetOutput(stderr)
	config.RegisterFlags(flags)
	action := cmd.flags(flags)
	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: builder-cli %s\n\n", cmd.usage)
		flags.PrintDefaults()
	}
	if err := flags.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return errUsage
	}

	// 2. Load configuration and wire the manager
	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}
	logger := cfg.Log.NewLogger(stderr)
	manager, err := sitemanager.FromConfig(cfg, fsys, logger)
	if err != nil {
		return err
	}

	// 3. Run
	return action(ctx, &cli{stdout: stdout, stderr: stderr, fs: fsys, manager: manager})
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: builder-cli <command> [options]")
	fmt.Fprintln(w, "Available commands:")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-14s %s\n", cmd.name, cmd.summary)
	}
	fmt.Fprintln(w, "\nRun 'builder-cli <command> --help' for the options of a command.")
}

// required reports missing flags as a usage error.
func required(fs *pflag.FlagSet, names ...string) error {
	var missing []string
	for _, name := range names {
		if f := fs.Lookup(name); f == nil || f.Value.String() == "" {
			missing = append(missing, "--"+name)
		}
	}
	if len(missing) > 0 {
		fmt.Fprintf(fs.Output(), "Error: missing required flag(s) %s\n", strings.Join(missing, ", "))
		fs.Usage()
		return errUsage
	}
	return nil
}

func listCommand(_ *pflag.FlagSet) func(context.Context, *cli) error {
	return func(ctx context.Context, c *cli) error {
		defs, err := c.manager.ListWidgets(ctx)
		if err != nil {
			return fmt.Errorf("listing widgets failed: %w", err)
		}
		if len(defs) == 0 {
			fmt.Fprintln(c.stdout, "No widget definitions found.")
			return nil
		}
		byFolder := storage.GroupByFolder(defs)
		lastFolder := ""
		for _, def := range defs {
			if def.Folder != lastFolder {
				fmt.Fprintf(c.stdout, "%s (%d)\n", def.Folder, len(byFolder[def.Folder]))
				lastFolder = def.Folder
			}
			fmt.Fprintf(c.stdout, "  %-24s %s\n", def.ID, def.Title)
		}
		return nil
	}
}

func newWidgetCommand(fs *pflag.FlagSet) func(context.Context, *cli) error {
	title := fs.String("title", "", "Title of the new widget (required)")
	folder := fs.String("folder", "", "Widget folder (default: derived from the title)")
	id := fs.String("id", "", "Template ID (default: next free variant of the folder)")
	return func(ctx context.Context, c *cli) error {
		if err := required(fs, "title"); err != nil {
			return err
		}
		def, err := c.manager.CreateWidget(ctx, *title, *folder, *id)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "Created widget %s in %s\n", def.Key(), c.manager.GetFiles().GetBasePath())
		return nil
	}
}

func deleteWidgetCommand(fs *pflag.FlagSet) func(context.Context, *cli) error {
	folder := fs.String("folder", "", "Widget folder (required)")
	id := fs.String("id", "", "Template ID (required)")
	return func(_ context.Context, c *cli) error {
		if err := required(fs, "folder", "id"); err != nil {
			return err
		}
		if err := c.manager.DeleteWidget(*folder, *id); err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "Deleted widget %s\n", model.DefinitionKey(*folder, *id))
		return nil
	}
}

func renderCommand(fs *pflag.FlagSet) func(context.Context, *cli) error {
	pagePath := fs.String("page", "", "JSON file holding a page (required)")
	return func(ctx context.Context, c *cli) error {
		if err := required(fs, "page"); err != nil {
			return err
		}
		var page model.Page
		if err := c.readJSON(*pagePath, &page); err != nil {
			return err
		}
		rendered := c.manager.RenderPage(ctx, page)
		return c.writeJSON(model.Fragment{Component: rendered.Component, Styles: rendered.Styles})
	}
}

func fieldsCommand(fs *pflag.FlagSet) func(context.Context, *cli) error {
	folder := fs.String("folder", "", "Widget folder (required)")
	id := fs.String("id", "", "Template ID (required)")
	dataPath := fs.String("data", "", "JSON file holding instance data (default: the widget's default data)")
	sets := fs.StringArray("set", nil, "Set a field before building the form, as path=value (repeatable; value is JSON or a plain string)")
	outPath := fs.String("out", "", "Write the resulting instance data to this JSON file")
	return func(ctx context.Context, c *cli) error {
		if err := required(fs, "folder", "id"); err != nil {
			return err
		}
		var data map[string]any
		if *dataPath != "" {
			if err := c.readJSON(*dataPath, &data); err != nil {
				return err
			}
		}
		def, err := c.manager.GetWidget(ctx, *folder, *id)
		if err != nil {
			return err
		}

		// 1. Apply --set edits on top of the given or default data.
		if len(*sets) > 0 {
			edits, err := parseSets(*sets)
			if err != nil {
				return err
			}
			base := data
			if base == nil {
				base = def.DefaultData
			}
			if data, err = schema.Apply(def.Schema, base, edits); err != nil {
				return err
			}
		}

		// 2. Print the form.
		form, err := c.manager.WidgetForm(ctx, *folder, *id, data)
		if err != nil {
			return err
		}
		if err := c.writeJSON(form); err != nil {
			return err
		}
		if data == nil {
			return nil
		}
		if *outPath != "" {
			if err := c.saveJSON(*outPath, data); err != nil {
				return err
			}
		}

		// 3. Validate explicit or edited data.
		if err := schema.Validate(def.Schema, data); err != nil {
			for _, e := range multierr.Errors(err) {
				fmt.Fprintf(c.stderr, "invalid: %v\n", e)
			}
			return fmt.Errorf("data has %d invalid field(s)", len(multierr.Errors(err)))
		}
		return nil
	}
}

// parseSets turns path=value arguments into set edits. Values that parse as JSON
// keep their type; anything else is taken as a string.
func parseSets(args []string) ([]schema.Edit, error) {
	edits := make([]schema.Edit, 0, len(args))
	for _, arg := range args {
		path, raw, ok := strings.Cut(arg, "=")
		if !ok || path == "" {
			return nil, fmt.Errorf("--set %q: want path=value", arg)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		edits = append(edits, schema.Edit{Op: schema.EditSet, Path: path, Value: value})
	}
	return edits, nil
}

func extractCommand(fs *pflag.FlagSet) func(context.Context, *cli) error {
	htmlPath := fs.String("html", "", "HTML file produced by render or publish (required)")
	return func(_ context.Context, c *cli) error {
		if err := required(fs, "html"); err != nil {
			return err
		}
		f, err := c.fs.Open(*htmlPath)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", *htmlPath, err)
		}
		defer f.Close()

		instances, err := extract.Read(f)
		if err != nil {
			fmt.Fprintf(c.stderr, "warning: %v\n", err)
		}
		return c.writeJSON(instances)
	}
}

func publishCommand(fs *pflag.FlagSet) func(context.Context, *cli) error {
	pagesPath := fs.String("pages", "", "JSON file holding a list of pages (required)")
	clean := fs.Bool("clean", false, "Empty the build directory first")
	return func(ctx context.Context, c *cli) error {
		if err := required(fs, "pages"); err != nil {
			return err
		}
		var pages []model.Page
		if err := c.readJSON(*pagesPath, &pages); err != nil {
			return err
		}
		published, err := c.manager.PublishAll(ctx, pages, *clean)
		for _, p := range published {
			fmt.Fprintf(c.stdout, "Published %-30q -> %s, %s\n", p.Title, p.HTMLPath, p.CSSPath)
		}
		fmt.Fprintf(c.stdout, "%d of %d page(s) published to %s\n", len(published), len(pages), c.manager.GetBuildDir())
		return err
	}
}

func pagesCommand(_ *pflag.FlagSet) func(context.Context, *cli) error {
	return func(_ context.Context, c *cli) error {
		pages, err := c.manager.ListPages()
		if err != nil {
			return err
		}
		if len(pages) == 0 {
			fmt.Fprintf(c.stdout, "No pages in %s\n", c.manager.GetBuildDir())
			return nil
		}
		for _, p := range pages {
			fmt.Fprintf(c.stdout, "%-24s %s\n", p.Name, p.Title)
		}
		return nil
	}
}

func (c *cli) readJSON(path string, v any) error {
	data, err := afero.ReadFile(c.fs, path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func (c *cli) saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := afero.WriteFile(c.fs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (c *cli) writeJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
