package rules

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mcdev12/quizbowl/go/internal/models"
	"github.com/rs/zerolog/log"
)

//go:embed schemas/*.yaml
var builtinSchemas embed.FS

const schemaSuffix = "_rules_schema"

// Registry holds one validated schema per format. Schemas are loaded once and
// shared read-only by every room playing that format.
type Registry struct {
	mu      sync.RWMutex
	schemas map[models.Format]*Schema
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[models.Format]*Schema)}
}

// Load builds a registry from the built-in schemas, then lets any
// <format>_rules_schema.{json,yaml,yml} file in dir replace the built-in one.
// An empty dir loads only the built-ins.
func Load(dir string) (*Registry, error) {
	loaded := make(map[models.Format]*Schema)

	err := fs.WalkDir(builtinSchemas, "schemas", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := builtinSchemas.ReadFile(path)
		if err != nil {
			return err
		}
		s, err := parseNamed(path, data)
		if err != nil {
			return err
		}
		loaded[s.Format] = s
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load built-in schemas: %w", err)
	}

	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, configErr("", fmt.Sprintf("read schema dir %s", dir), err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !isSchemaFile(entry.Name()) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, configErr("", fmt.Sprintf("read %s", path), err)
			}
			s, err := parseNamed(path, data)
			if err != nil {
				return nil, err
			}
			log.Info().Str("format", string(s.Format)).Str("path", path).Msg("loaded rules schema")
			loaded[s.Format] = s
		}
	}

	r := NewRegistry()
	for _, s := range loaded {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// parseNamed parses a schema and checks the file name agrees with its format.
func parseNamed(path string, data []byte) (*Schema, error) {
	s, err := Parse(path, data)
	if err != nil {
		return nil, err
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	named, err := models.ParseFormat(strings.TrimSuffix(base, schemaSuffix))
	if err != nil || named != s.Format {
		return nil, configErr(s.Format, fmt.Sprintf("file %s does not match schema format", path), nil)
	}
	return s, nil
}

func isSchemaFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return false
	}
	return strings.HasSuffix(strings.TrimSuffix(name, filepath.Ext(name)), schemaSuffix)
}

// Register adds a schema. A format may only be registered once.
func (r *Registry) Register(s *Schema) error {
	if s == nil {
		return errors.New("schema cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.schemas[s.Format]; exists {
		return configErr(s.Format, "schema already registered", nil)
	}
	r.schemas[s.Format] = s
	return nil
}

// Schema returns the schema for a format or a ConfigurationError.
func (r *Registry) Schema(format models.Format) (*Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[format]
	if !ok {
		return nil, configErr(format, "no rules schema loaded", nil)
	}
	return s, nil
}

// Engine returns a rules engine for a format or a ConfigurationError.
func (r *Registry) Engine(format models.Format) (*Engine, error) {
	s, err := r.Schema(format)
	if err != nil {
		return nil, err
	}
	return NewEngine(s), nil
}

// CategoryTable returns the category table of a format; empty when the format
// is unknown or defines no categories.
func (r *Registry) CategoryTable(format models.Format) map[models.Category]int {
	s, err := r.Schema(format)
	if err != nil {
		return map[models.Category]int{}
	}
	return s.Categories()
}

// Formats lists the registered formats in sorted order.
func (r *Registry) Formats() []models.Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Format, 0, len(r.schemas))
	for f := range r.schemas {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
