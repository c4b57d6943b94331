package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go-site-builder/internal/model"
)

// Registry is an in-memory DefinitionStore of compiled-in widget definitions.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*model.WidgetDefinition
}

// NewRegistry creates a registry holding defs. It panics on an invalid or duplicate
// definition, since registries are built from compiled-in data.
func NewRegistry(defs ...*model.WidgetDefinition) *Registry {
	r := &Registry{defs: make(map[string]*model.WidgetDefinition, len(defs))}
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a definition.
func (r *Registry) Register(def *model.WidgetDefinition) error {
	if def == nil {
		return fmt.Errorf("definition cannot be nil")
	}
	if err := ValidateKey(def.Folder, def.ID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Key()]; exists {
		return fmt.Errorf("widget definition %s already registered", def.Key())
	}
	r.defs[def.Key()] = def
	return nil
}

// Load implements Loader.
func (r *Registry) Load(_ context.Context, folder, templateID string) (*model.WidgetDefinition, error) {
	r.mu.RLock()
	def, ok := r.defs[model.DefinitionKey(folder, templateID)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", model.DefinitionKey(folder, templateID), ErrNotFound)
	}
	return def, nil
}

// List implements DefinitionStore.
func (r *Registry) List(_ context.Context) ([]*model.WidgetDefinition, error) {
	r.mu.RLock()
	defs := make([]*model.WidgetDefinition, 0, len(r.defs))
	for _, def := range r.defs {
		defs = append(defs, def)
	}
	r.mu.RUnlock()
	sortDefinitions(defs)
	return defs, nil
}

func sortDefinitions(defs []*model.WidgetDefinition) {
	sort.SliceStable(defs, func(i, j int) bool {
		if defs[i].Folder != defs[j].Folder {
			return defs[i].Folder < defs[j].Folder
		}
		return defs[i].ID < defs[j].ID
	})
}
