// Package repository loads and persists the JSON stores the core works
// against: tracker templates, inverter datasheets, and .ebom project
// files.
package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"pv_design/internal/domain"
	"pv_design/pkg/logger"
)

// TemplateFormat tags which on-disk layout a template store uses. The
// format is decided once at load time, not probed per access.
type TemplateFormat string

const (
	// FormatHierarchical is manufacturer -> template name -> fields.
	FormatHierarchical TemplateFormat = "hierarchical"
	// FormatFlat is the legacy template name -> fields layout.
	FormatFlat TemplateFormat = "flat"
)

// TemplateStore holds tracker templates resolved by name. Templates are
// shared by reference across blocks; the store owns their lifetime.
type TemplateStore struct {
	path   string
	format TemplateFormat

	mu     sync.RWMutex
	byName map[string]*domain.TrackerTemplate
}

// LoadTemplateStore reads a template store file, detects its format, and
// validates every embedded module spec.
func LoadTemplateStore(path string) (*TemplateStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template store: %w", err)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, &domain.ValidationError{Field: "template_store", Reason: err.Error()}
	}

	store := &TemplateStore{
		path:   path,
		format: detectTemplateFormat(top),
		byName: make(map[string]*domain.TrackerTemplate),
	}

	switch store.format {
	case FormatFlat:
		for name, doc := range top {
			tpl, err := decodeTemplate(name, "", doc)
			if err != nil {
				return nil, err
			}
			store.byName[name] = tpl
		}
	case FormatHierarchical:
		for manufacturer, group := range top {
			var templates map[string]json.RawMessage
			if err := json.Unmarshal(group, &templates); err != nil {
				return nil, &domain.ValidationError{
					Field:  manufacturer,
					Reason: fmt.Sprintf("manufacturer group is not a mapping: %v", err),
				}
			}
			for name, doc := range templates {
				tpl, err := decodeTemplate(name, manufacturer, doc)
				if err != nil {
					return nil, err
				}
				store.byName[name] = tpl
			}
		}
	}

	logger.Infof("Loaded %d tracker templates from %s (%s format)", len(store.byName), path, store.format)
	return store, nil
}

// detectTemplateFormat probes the first value: a template document carries
// module_orientation / modules_per_string at its top level, a manufacturer
// group does not.
func detectTemplateFormat(top map[string]json.RawMessage) TemplateFormat {
	for _, doc := range top {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(doc, &probe); err != nil {
			return FormatFlat
		}
		if _, ok := probe["module_orientation"]; ok {
			return FormatFlat
		}
		if _, ok := probe["modules_per_string"]; ok {
			return FormatFlat
		}
		return FormatHierarchical
	}
	return FormatFlat
}

func decodeTemplate(name, manufacturer string, doc json.RawMessage) (*domain.TrackerTemplate, error) {
	var tpl domain.TrackerTemplate
	if err := json.Unmarshal(doc, &tpl); err != nil {
		return nil, &domain.ValidationError{Field: name, Reason: fmt.Sprintf("bad template document: %v", err)}
	}
	tpl.Name = name
	if tpl.Module == nil {
		return nil, &domain.ValidationError{Field: name, Reason: "template has no module_spec"}
	}
	if tpl.Module.Manufacturer == "" {
		tpl.Module.Manufacturer = manufacturer
	}
	if _, err := domain.NewModuleSpec(*tpl.Module); err != nil {
		return nil, fmt.Errorf("template %q: %w", name, err)
	}
	return &tpl, nil
}

// Format reports the detected on-disk layout.
func (s *TemplateStore) Format() TemplateFormat { return s.format }

// Get resolves a template by name.
func (s *TemplateStore) Get(name string) (*domain.TrackerTemplate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tpl, ok := s.byName[name]
	return tpl, ok
}

// All returns the name -> template lookup table used during block
// reconstruction.
func (s *TemplateStore) All() map[string]*domain.TrackerTemplate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*domain.TrackerTemplate, len(s.byName))
	for name, tpl := range s.byName {
		out[name] = tpl
	}
	return out
}

// Names lists template names in stable order.
func (s *TemplateStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Put adds or replaces a template, as the template editor does.
func (s *TemplateStore) Put(tpl *domain.TrackerTemplate) error {
	if tpl == nil || tpl.Name == "" {
		return &domain.ValidationError{Field: "template", Reason: "missing name"}
	}
	if tpl.Module == nil {
		return &domain.ValidationError{Field: tpl.Name, Reason: "template has no module_spec"}
	}
	if _, err := domain.NewModuleSpec(*tpl.Module); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byName[tpl.Name] = tpl
	return nil
}
