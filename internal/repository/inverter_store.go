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

// InverterStore holds inverter datasheets resolved by name.
type InverterStore struct {
	path string

	mu     sync.RWMutex
	byName map[string]*domain.InverterSpec
}

// LoadInverterStore reads the name -> inverter document JSON file.
func LoadInverterStore(path string) (*InverterStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inverter store: %w", err)
	}

	var docs map[string]*domain.InverterSpec
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, &domain.ValidationError{Field: "inverter_store", Reason: err.Error()}
	}

	store := &InverterStore{path: path, byName: make(map[string]*domain.InverterSpec, len(docs))}
	for name, inv := range docs {
		if inv == nil {
			return nil, &domain.ValidationError{Field: name, Reason: "empty inverter document"}
		}
		inv.Name = name
		store.byName[name] = inv
	}

	logger.Infof("Loaded %d inverters from %s", len(store.byName), path)
	return store, nil
}

// Get resolves an inverter by name.
func (s *InverterStore) Get(name string) (*domain.InverterSpec, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.byName[name]
	return inv, ok
}

// All returns the name -> inverter lookup table.
func (s *InverterStore) All() map[string]*domain.InverterSpec {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*domain.InverterSpec, len(s.byName))
	for name, inv := range s.byName {
		out[name] = inv
	}
	return out
}

// Names lists inverter names in stable order.
func (s *InverterStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
