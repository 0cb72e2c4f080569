// Package formatter turns sized blocks into bill-of-material lines for
// export.
package formatter

import (
	"fmt"
	"sort"

	"pv_design/internal/domain"
)

// BOMLine is one aggregated bill-of-material entry.
type BOMLine struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	CableSize   string `json:"cable_size"`
	Quantity    int    `json:"quantity"`
	Unit        string `json:"unit"`
}

// NewBOMLine creates a validated BOM line.
func NewBOMLine(category, description, cableSize string, quantity int, unit string) (BOMLine, error) {
	if category == "" {
		return BOMLine{}, fmt.Errorf("bom line category cannot be empty")
	}
	if quantity <= 0 {
		return BOMLine{}, fmt.Errorf("bom line quantity must be positive, got %d", quantity)
	}
	return BOMLine{
		Category:    category,
		Description: description,
		CableSize:   cableSize,
		Quantity:    quantity,
		Unit:        unit,
	}, nil
}

type bomKey struct {
	category string
	size     string
}

// BuildBOM aggregates conductor counts across all blocks. Harness
// groupings describe one tracker's repeating pattern, so quantities
// multiply by the block's tracker count.
func BuildBOM(blocks map[string]*domain.BlockConfig) ([]BOMLine, error) {
	totals := make(map[bomKey]int)

	for blockID, block := range blocks {
		if block.Wiring == nil {
			return nil, fmt.Errorf("block %s has no wiring configuration", blockID)
		}
		for size, harnesses := range block.Wiring.HarnessGroupings {
			for _, h := range harnesses {
				perBlock := block.TrackerCount
				totals[bomKey{"string", h.StringCableSize}] += size * perBlock
				totals[bomKey{"harness", h.CableSize}] += perBlock
				totals[bomKey{"extender", h.ExtenderCableSize}] += perBlock
				totals[bomKey{"whip", h.WhipCableSize}] += perBlock
			}
		}
	}

	descriptions := map[string]string{
		"string":   "String conductor circuit",
		"harness":  "Harness trunk assembly",
		"extender": "Extender segment",
		"whip":     "Whip segment",
	}
	units := map[string]string{
		"string":   "circuits",
		"harness":  "assemblies",
		"extender": "runs",
		"whip":     "runs",
	}

	lines := make([]BOMLine, 0, len(totals))
	for key, qty := range totals {
		line, err := NewBOMLine(key.category, descriptions[key.category], key.size, qty, units[key.category])
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Category != lines[j].Category {
			return lines[i].Category < lines[j].Category
		}
		return lines[i].CableSize < lines[j].CableSize
	})
	return lines, nil
}
