package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go-site-builder/internal/model"
)

// ErrNotFound is returned when no definition exists for a folder/templateId pair.
// It wraps os.ErrNotExist so either can be matched with errors.Is.
var ErrNotFound = fmt.Errorf("widget definition not found: %w", os.ErrNotExist)

// ErrInvalidReference is returned for a folder or template ID that cannot name a
// definition: empty, a path element, or text that would break widget markup.
var ErrInvalidReference = errors.New("invalid widget reference")

// Loader resolves widget definitions by (folder, templateId).
// Implementations must be safe for concurrent use.
type Loader interface {
	Load(ctx context.Context, folder, templateID string) (*model.WidgetDefinition, error)
}

// DefinitionStore is a Loader that can also enumerate its definitions.
type DefinitionStore interface {
	Loader

	// List returns every definition, ordered by folder then template ID.
	List(ctx context.Context) ([]*model.WidgetDefinition, error)
}

// Chain tries each store in order; the first one holding a definition wins.
type Chain []DefinitionStore

// Load implements Loader.
func (c Chain) Load(ctx context.Context, folder, templateID string) (*model.WidgetDefinition, error) {
	for _, store := range c {
		def, err := store.Load(ctx, folder, templateID)
		if err == nil {
			return def, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%s: %w", model.DefinitionKey(folder, templateID), ErrNotFound)
}

// List merges the definitions of all stores. Earlier stores shadow later ones.
func (c Chain) List(ctx context.Context) ([]*model.WidgetDefinition, error) {
	seen := make(map[string]bool)
	var all []*model.WidgetDefinition
	for _, store := range c {
		defs, err := store.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, def := range defs {
			if seen[def.Key()] {
				continue
			}
			seen[def.Key()] = true
			all = append(all, def)
		}
	}
	sortDefinitions(all)
	return all, nil
}

// GroupByFolder returns definitions grouped by widget folder, preserving order.
func GroupByFolder(defs []*model.WidgetDefinition) map[string][]*model.WidgetDefinition {
	groups := make(map[string][]*model.WidgetDefinition)
	for _, def := range defs {
		groups[def.Folder] = append(groups[def.Folder], def)
	}
	return groups
}

// ValidateKey rejects identifiers that could escape a definitions directory or
// terminate the HTML comments that delimit rendered widgets. Errors wrap
// ErrInvalidReference.
func ValidateKey(folder, templateID string) error {
	for _, part := range []string{folder, templateID} {
		if part == "" {
			return fmt.Errorf("%w: folder and template ID cannot be empty", ErrInvalidReference)
		}
		if part == "." || part == ".." || strings.ContainsAny(part, `/\<>`) || strings.Contains(part, "--") {
			return fmt.Errorf("%w: %q", ErrInvalidReference, part)
		}
	}
	return nil
}
