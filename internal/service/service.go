// Package service owns the in-memory block map and orchestrates wiring
// topology, cable sizing, MPPT validation, and project persistence.
package service

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"pv_design/internal/config"
	"pv_design/internal/domain"
	"pv_design/internal/parser"
	"pv_design/internal/repository"
	"pv_design/internal/sizing"
	"pv_design/pkg/logger"
)

// sizingKey identifies one cable-size computation.
type sizingKey struct {
	NumStrings int
	ModuleIsc  float64
	NECFactor  float64
}

// Service is the block configurator core. It exclusively owns the blocks
// map; templates and inverters are shared references resolved through the
// stores. The presentation layer consumes it through GetBlocks /
// SetBlocks / OnBlocksChanged.
type Service struct {
	cfg       *config.Config
	templates *repository.TemplateStore
	inverters *repository.InverterStore
	projects  *repository.ProjectRepo
	pan       *parser.Parser

	sizingCache *lru.Cache[sizingKey, sizing.CableSet]

	mu          sync.RWMutex
	blocks      map[string]*domain.BlockConfig
	projectName string
	listeners   []func()
}

// NewService wires the configurator over its stores.
func NewService(cfg *config.Config, templates *repository.TemplateStore, inverters *repository.InverterStore) (*Service, error) {
	panParser, err := parser.New()
	if err != nil {
		return nil, err
	}
	cache, err := lru.New[sizingKey, sizing.CableSet](256)
	if err != nil {
		return nil, err
	}
	svc := &Service{
		cfg:         cfg,
		templates:   templates,
		inverters:   inverters,
		projects:    repository.NewProjectRepo(templates, inverters),
		pan:         panParser,
		sizingCache: cache,
		blocks:      make(map[string]*domain.BlockConfig),
	}
	logger.Infof("Configurator initialized (NEC factor %.2f, %d templates, %d inverters)",
		cfg.NECFactor, len(templates.All()), len(inverters.All()))
	return svc, nil
}

// OnBlocksChanged registers a callback invoked after every mutation of
// the blocks map.
func (svc *Service) OnBlocksChanged(fn func()) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.listeners = append(svc.listeners, fn)
}

func (svc *Service) notify() {
	svc.mu.RLock()
	listeners := make([]func(), len(svc.listeners))
	copy(listeners, svc.listeners)
	svc.mu.RUnlock()
	for _, fn := range listeners {
		fn()
	}
}

// GetBlocks returns a snapshot of the blocks map.
func (svc *Service) GetBlocks() map[string]*domain.BlockConfig {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	out := make(map[string]*domain.BlockConfig, len(svc.blocks))
	for id, block := range svc.blocks {
		out[id] = block
	}
	return out
}

// GetBlock resolves one block by id.
func (svc *Service) GetBlock(blockID string) (*domain.BlockConfig, bool) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	block, ok := svc.blocks[blockID]
	return block, ok
}

// SetBlocks replaces the blocks map wholesale, as a project load does.
func (svc *Service) SetBlocks(blocks map[string]*domain.BlockConfig) {
	svc.mu.Lock()
	if blocks == nil {
		blocks = make(map[string]*domain.BlockConfig)
	}
	svc.blocks = blocks
	svc.mu.Unlock()
	svc.notify()
}

// CreateBlock builds a block from store references, derives its wiring
// topology, and sizes its cables.
func (svc *Service) CreateBlock(blockID, templateName string, trackerCount int, wiringType domain.WiringType, inverterName string) (*domain.BlockConfig, error) {
	tpl, ok := svc.templates.Get(templateName)
	if !ok {
		return nil, &domain.LookupFailure{Kind: "template", Name: templateName}
	}
	var inv *domain.InverterSpec
	if inverterName != "" {
		if inv, ok = svc.inverters.Get(inverterName); !ok {
			return nil, &domain.LookupFailure{Kind: "inverter", Name: inverterName}
		}
	}

	block, err := domain.NewBlockConfig(blockID, tpl, trackerCount, wiringType, inv)
	if err != nil {
		return nil, err
	}
	if err := svc.sizeWiring(block.Template, block.Wiring); err != nil {
		return nil, err
	}

	svc.mu.Lock()
	svc.blocks[block.BlockID] = block
	svc.mu.Unlock()
	svc.notify()

	logger.Infof("Created block %s: template=%s trackers=%d wiring=%s", block.BlockID, templateName, trackerCount, wiringType)
	return block, nil
}

// ConfigureWiring rebuilds a block's topology for a new wiring type and
// re-sizes its cables. Published blocks are marshaled concurrently by the
// HTTP surface, so the old block is never mutated in place: the rewired
// copy replaces it under the write lock.
func (svc *Service) ConfigureWiring(blockID string, wiringType domain.WiringType) (*domain.BlockConfig, error) {
	block, ok := svc.GetBlock(blockID)
	if !ok {
		return nil, &domain.LookupFailure{Kind: "block", Name: blockID}
	}
	wiring, err := domain.BuildWiring(block.Template, wiringType)
	if err != nil {
		return nil, err
	}
	if err := svc.sizeWiring(block.Template, wiring); err != nil {
		return nil, err
	}

	updated := *block
	updated.Wiring = wiring

	svc.mu.Lock()
	if _, ok := svc.blocks[blockID]; !ok {
		svc.mu.Unlock()
		return nil, &domain.LookupFailure{Kind: "block", Name: blockID}
	}
	svc.blocks[blockID] = &updated
	svc.mu.Unlock()
	svc.notify()
	return &updated, nil
}

// DeleteBlock removes a block from the project.
func (svc *Service) DeleteBlock(blockID string) error {
	svc.mu.Lock()
	if _, ok := svc.blocks[blockID]; !ok {
		svc.mu.Unlock()
		return &domain.LookupFailure{Kind: "block", Name: blockID}
	}
	delete(svc.blocks, blockID)
	svc.mu.Unlock()
	svc.notify()
	return nil
}

// CalculateCableSizes is the cached front of the sizing engine. A zero
// necFactor selects the configured default.
func (svc *Service) CalculateCableSizes(numStrings int, moduleIsc, necFactor float64) (sizing.CableSet, error) {
	if necFactor == 0 {
		necFactor = svc.cfg.NECFactor
	}
	key := sizingKey{NumStrings: numStrings, ModuleIsc: moduleIsc, NECFactor: necFactor}
	if set, ok := svc.sizingCache.Get(key); ok {
		return set, nil
	}
	set, err := sizing.CalculateAllCableSizes(numStrings, moduleIsc, necFactor)
	if err != nil {
		return sizing.CableSet{}, err
	}
	svc.sizingCache.Add(key, set)
	return set, nil
}

func (svc *Service) sizeWiring(tpl *domain.TrackerTemplate, wiring *domain.WiringConfig) error {
	if tpl == nil || tpl.Module == nil {
		return &domain.ConfigurationError{Field: "tracker_template", Reason: "block has no resolved template"}
	}
	isc := tpl.Module.Isc
	return sizing.Apply(wiring, func(numStrings int) (sizing.CableSet, error) {
		return svc.CalculateCableSizes(numStrings, isc, svc.cfg.NECFactor)
	})
}

// ValidateBlock checks a block against an inverter. With an empty name
// the block's own inverter reference is used.
func (svc *Service) ValidateBlock(blockID, inverterName string) ([]sizing.Violation, error) {
	block, ok := svc.GetBlock(blockID)
	if !ok {
		return nil, &domain.LookupFailure{Kind: "block", Name: blockID}
	}
	inv := block.Inverter
	if inverterName != "" {
		if inv, ok = svc.inverters.Get(inverterName); !ok {
			return nil, &domain.LookupFailure{Kind: "inverter", Name: inverterName}
		}
	}
	if inv == nil {
		return nil, &domain.ConfigurationError{Field: "inverter", Reason: "block has no inverter to validate against"}
	}
	return sizing.ValidateMPPT(block, inv), nil
}

// ImportPAN parses PAN datasheet text into a validated module spec.
func (svc *Service) ImportPAN(text string) (*domain.ModuleSpec, error) {
	return svc.pan.ModuleSpec(text)
}

// Templates exposes the template store to the presentation layer.
func (svc *Service) Templates() *repository.TemplateStore { return svc.templates }

// Inverters exposes the inverter store to the presentation layer.
func (svc *Service) Inverters() *repository.InverterStore { return svc.inverters }

// SaveProject writes the current blocks to an .ebom file under the
// configured project directory.
func (svc *Service) SaveProject(name string) (string, error) {
	svc.mu.RLock()
	project := &domain.Project{
		Name:    name,
		Version: 1,
		Blocks:  make(map[string]*domain.BlockConfig, len(svc.blocks)),
	}
	for id, block := range svc.blocks {
		project.Blocks[id] = block
	}
	svc.mu.RUnlock()

	path := svc.projectPath(name)
	if err := svc.projects.Save(path, project); err != nil {
		return "", err
	}
	svc.mu.Lock()
	svc.projectName = name
	svc.mu.Unlock()
	return path, nil
}

// LoadProject replaces the blocks map with the contents of an .ebom
// file. Blocks with unresolvable references are skipped and reported.
func (svc *Service) LoadProject(name string) ([]repository.BlockLoadError, error) {
	project, failed, err := svc.projects.Load(svc.projectPath(name))
	if err != nil {
		return nil, err
	}
	svc.mu.Lock()
	svc.blocks = project.Blocks
	svc.projectName = project.Name
	svc.mu.Unlock()
	svc.notify()
	return failed, nil
}

func (svc *Service) projectPath(name string) string {
	if !strings.HasSuffix(name, ".ebom") {
		name += ".ebom"
	}
	return filepath.Join(svc.cfg.ProjectDir, name)
}

// Stats summarizes what the configurator holds.
func (svc *Service) Stats() map[string]interface{} {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	totalStrings := 0
	totalTrackers := 0
	for _, block := range svc.blocks {
		totalStrings += block.TotalStrings()
		totalTrackers += block.TrackerCount
	}
	return map[string]interface{}{
		"project":           svc.projectName,
		"blocks":            len(svc.blocks),
		"trackers":          totalTrackers,
		"strings":           totalStrings,
		"templates":         len(svc.templates.All()),
		"inverters":         len(svc.inverters.All()),
		"sizing_cache_size": svc.sizingCache.Len(),
		"nec_factor":        fmt.Sprintf("%.2f", svc.cfg.NECFactor),
	}
}
