package repository

import (
	"encoding/json"
	"fmt"
	"os"

	"pv_design/internal/domain"
	"pv_design/pkg/logger"
)

// BlockLoadError records one block that could not be reconstructed while
// the rest of the project kept loading.
type BlockLoadError struct {
	BlockID string `json:"block_id"`
	Reason  string `json:"reason"`
	Err     error  `json:"-"`
}

// projectFile is the .ebom on-disk layout: metadata plus serialized
// blocks keyed by block id.
type projectFile struct {
	Name              string                            `json:"name"`
	Version           int                               `json:"version"`
	Blocks            map[string]map[string]interface{} `json:"blocks"`
	SelectedModules   []string                          `json:"selected_modules,omitempty"`
	SelectedInverters []string                          `json:"selected_inverters,omitempty"`
}

// ProjectRepo reads and writes .ebom project files, resolving block
// references through the template and inverter stores.
type ProjectRepo struct {
	templates *TemplateStore
	inverters *InverterStore
}

// NewProjectRepo creates a project repository over the shared stores.
func NewProjectRepo(templates *TemplateStore, inverters *InverterStore) *ProjectRepo {
	return &ProjectRepo{templates: templates, inverters: inverters}
}

// Load reads an .ebom file. Blocks whose template or inverter reference
// is missing from the stores are logged and skipped, and reported in the
// returned slice; the rest of the project still loads.
func (r *ProjectRepo) Load(path string) (*domain.Project, []BlockLoadError, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read project file: %w", err)
	}

	var file projectFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, nil, &domain.ValidationError{Field: "project", Reason: err.Error()}
	}

	templates := r.templates.All()
	inverters := r.inverters.All()

	project := &domain.Project{
		Name:              file.Name,
		Version:           file.Version,
		Blocks:            make(map[string]*domain.BlockConfig, len(file.Blocks)),
		SelectedModules:   file.SelectedModules,
		SelectedInverters: file.SelectedInverters,
	}

	var failed []BlockLoadError
	for blockID, data := range file.Blocks {
		block, err := domain.BlockFromSerialized(data, templates, inverters)
		if err != nil {
			logger.Warnf("Skipping block %s: %v", blockID, err)
			failed = append(failed, BlockLoadError{BlockID: blockID, Reason: err.Error(), Err: err})
			continue
		}
		if block.BlockID != blockID {
			reason := fmt.Sprintf("block_id %q does not match its project key", block.BlockID)
			logger.Warnf("Skipping block %s: %s", blockID, reason)
			failed = append(failed, BlockLoadError{BlockID: blockID, Reason: reason})
			continue
		}
		project.Blocks[blockID] = block
	}

	logger.Infof("Loaded project %q: %d blocks, %d skipped", file.Name, len(project.Blocks), len(failed))
	return project, failed, nil
}

// Save writes the whole project file and reports success or failure; no
// partial-write recovery beyond that.
func (r *ProjectRepo) Save(path string, project *domain.Project) error {
	file := projectFile{
		Name:              project.Name,
		Version:           project.Version,
		Blocks:            make(map[string]map[string]interface{}, len(project.Blocks)),
		SelectedModules:   project.SelectedModules,
		SelectedInverters: project.SelectedInverters,
	}
	for blockID, block := range project.Blocks {
		file.Blocks[blockID] = block.Serialize()
	}

	raw, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode project: %w", err)
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("failed to write project file: %w", err)
	}
	logger.Infof("Saved project %q (%d blocks) to %s", project.Name, len(file.Blocks), path)
	return nil
}
