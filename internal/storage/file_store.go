package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"go-site-builder/internal/model"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// definitionExts are tried in order when loading a definition file.
var definitionExts = []string{".json", ".yaml", ".yml"}

// FileStore implements DefinitionStore on top of a directory laid out as
// <BasePath>/<folder>/<templateId>.{json,yaml,yml}. Loaded definitions are cached
// until invalidated.
type FileStore struct {
	// BasePath is the directory holding one sub-directory per widget folder.
	BasePath string

	fs     afero.Fs
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]*model.WidgetDefinition
}

// NewFileStore creates a FileStore rooted at basePath, creating the directory if needed.
func NewFileStore(fs afero.Fs, basePath string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := fs.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create widgets directory '%s': %w", basePath, err)
	}
	return &FileStore{
		BasePath: basePath,
		fs:       fs,
		logger:   logger,
		cache:    make(map[string]*model.WidgetDefinition),
	}, nil
}

// GetBasePath returns the base path of the store.
func (s *FileStore) GetBasePath() string {
	return s.BasePath
}

// Load implements Loader.
func (s *FileStore) Load(ctx context.Context, folder, templateID string) (*model.WidgetDefinition, error) {
	if err := ValidateKey(folder, templateID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := model.DefinitionKey(folder, templateID)
	s.mu.RLock()
	def, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return def, nil
	}

	for _, ext := range definitionExts {
		filePath := filepath.Join(s.BasePath, folder, templateID+ext)
		data, err := afero.ReadFile(s.fs, filePath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read widget definition %s: %w", filePath, err)
		}

		def, err := decodeDefinition(data, ext)
		if err != nil {
			return nil, fmt.Errorf("failed to decode widget definition %s: %w", filePath, err)
		}
		// The file location is authoritative for the identity of the definition.
		def.Folder, def.ID = folder, templateID
		if err := def.CheckMetadata(); err != nil {
			return nil, fmt.Errorf("invalid widget definition %s: %w", filePath, err)
		}

		s.mu.Lock()
		s.cache[key] = def
		s.mu.Unlock()
		s.logger.Debug("Loaded widget definition", "key", key, "path", filePath)
		return def, nil
	}
	return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
}

// List implements DefinitionStore. Files that fail to decode are logged and skipped.
func (s *FileStore) List(ctx context.Context) ([]*model.WidgetDefinition, error) {
	folders, err := afero.ReadDir(s.fs, s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []*model.WidgetDefinition{}, nil
		}
		return nil, fmt.Errorf("failed to read widgets directory %s: %w", s.BasePath, err)
	}

	defs := make([]*model.WidgetDefinition, 0)
	for _, folder := range folders {
		if !folder.IsDir() {
			continue
		}
		files, err := afero.ReadDir(s.fs, filepath.Join(s.BasePath, folder.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read widget folder %s: %w", folder.Name(), err)
		}
		seen := make(map[string]bool)
		for _, file := range files {
			ext := path.Ext(file.Name())
			templateID := strings.TrimSuffix(file.Name(), ext)
			if file.IsDir() || !isDefinitionExt(ext) || seen[templateID] {
				continue
			}
			seen[templateID] = true

			def, err := s.Load(ctx, folder.Name(), templateID)
			if err != nil {
				s.logger.Warn("Skipping unreadable widget definition", "folder", folder.Name(), "templateId", templateID, "error", err)
				continue
			}
			defs = append(defs, def)
		}
	}
	sortDefinitions(defs)
	return defs, nil
}

// Save writes a definition as indented JSON and refreshes the cache.
func (s *FileStore) Save(def *model.WidgetDefinition) error {
	if def == nil {
		return fmt.Errorf("definition cannot be nil")
	}
	if err := ValidateKey(def.Folder, def.ID); err != nil {
		return err
	}
	if err := def.CheckMetadata(); err != nil {
		return fmt.Errorf("refusing to save widget definition %s: %w", def.Key(), err)
	}

	dir := filepath.Join(s.BasePath, def.Folder)
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create widget folder %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal widget definition %s: %w", def.Key(), err)
	}
	filePath := filepath.Join(dir, def.ID+".json")
	if err := afero.WriteFile(s.fs, filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write widget definition %s: %w", filePath, err)
	}

	s.mu.Lock()
	s.cache[def.Key()] = def
	s.mu.Unlock()
	s.logger.Info("Saved widget definition", "key", def.Key(), "path", filePath)
	return nil
}

// Delete removes every file of a definition. Deleting a missing definition is not an error.
func (s *FileStore) Delete(folder, templateID string) error {
	if err := ValidateKey(folder, templateID); err != nil {
		return err
	}
	for _, ext := range definitionExts {
		filePath := filepath.Join(s.BasePath, folder, templateID+ext)
		if err := s.fs.Remove(filePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete widget definition %s: %w", filePath, err)
		}
	}
	s.Invalidate(folder, templateID)
	return nil
}

// Invalidate drops a cached definition. An empty templateID drops the whole folder.
func (s *FileStore) Invalidate(folder, templateID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if templateID != "" {
		delete(s.cache, model.DefinitionKey(folder, templateID))
		return
	}
	prefix := folder + "/"
	for key := range s.cache {
		if strings.HasPrefix(key, prefix) {
			delete(s.cache, key)
		}
	}
}

// InvalidateAll empties the cache.
func (s *FileStore) InvalidateAll() {
	s.mu.Lock()
	s.cache = make(map[string]*model.WidgetDefinition)
	s.mu.Unlock()
}

func decodeDefinition(data []byte, ext string) (*model.WidgetDefinition, error) {
	var def model.WidgetDefinition
	var err error
	if ext == ".json" {
		err = json.Unmarshal(data, &def)
	} else {
		err = yaml.Unmarshal(data, &def)
	}
	if err != nil {
		return nil, err
	}
	return &def, nil
}

func isDefinitionExt(ext string) bool {
	for _, e := range definitionExts {
		if e == ext {
			return true
		}
	}
	return false
}
