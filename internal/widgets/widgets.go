// Package widgets holds the compiled-in widget library.
package widgets

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"go-site-builder/internal/model"
	"go-site-builder/internal/storage"

	"gopkg.in/yaml.v3"
)

//go:embed library
var library embed.FS

var (
	builtinOnce sync.Once
	builtin     *storage.Registry
)

// Builtin returns a registry of the bundled widget definitions. The registry is
// built once and shared; callers must not register into it.
func Builtin() *storage.Registry {
	builtinOnce.Do(func() {
		defs, err := Load(library, "library")
		if err != nil {
			panic(fmt.Sprintf("widgets: bundled library is invalid: %v", err))
		}
		builtin = storage.NewRegistry(defs...)
	})
	return builtin
}

// Load reads every <root>/<folder>/<templateId>.yaml definition from fsys.
func Load(fsys fs.FS, root string) ([]*model.WidgetDefinition, error) {
	var defs []*model.WidgetDefinition
	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".yaml" {
			return nil
		}
		rel := strings.TrimPrefix(p, root+"/")
		folder, file := path.Split(rel)
		folder = strings.TrimSuffix(folder, "/")
		if folder == "" || strings.Contains(folder, "/") {
			return fmt.Errorf("definition %s is not inside a single widget folder", p)
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}
		var def model.WidgetDefinition
		if err := yaml.Unmarshal(data, &def); err != nil {
			return fmt.Errorf("failed to decode %s: %w", p, err)
		}
		def.Folder = folder
		def.ID = strings.TrimSuffix(file, ".yaml")
		if err := def.CheckMetadata(); err != nil {
			return fmt.Errorf("invalid definition %s: %w", p, err)
		}
		defs = append(defs, &def)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return defs, nil
}
