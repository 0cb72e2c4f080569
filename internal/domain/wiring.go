package domain

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// BuildWiring derives the wiring topology of one tracker from its
// template. For HARNESS wiring the tracker's strings are partitioned at
// the motor; for STRING_HOME_RUN every string is its own independent run.
// The returned groupings repeat identically on every tracker in a block.
func BuildWiring(tpl *TrackerTemplate, wiringType WiringType) (*WiringConfig, error) {
	if tpl == nil {
		return nil, &ConfigurationError{Field: "tracker_template", Reason: "missing"}
	}
	if tpl.ModulesPerString <= 0 {
		return nil, &ConfigurationError{Field: "modules_per_string", Reason: "must be positive"}
	}
	if tpl.StringsPerTracker <= 0 {
		return nil, &ConfigurationError{Field: "strings_per_tracker", Reason: "must be positive"}
	}

	switch wiringType {
	case WiringStringHomeRun:
		groupings := map[int][]Harness{1: nil}
		for i := 0; i < tpl.StringsPerTracker; i++ {
			groupings[1] = append(groupings[1], Harness{StringIndices: []int{i}})
		}
		return &WiringConfig{WiringType: WiringStringHomeRun, HarnessGroupings: groupings}, nil

	case WiringHarness:
		groupings, err := buildHarnessGroupings(tpl)
		if err != nil {
			return nil, err
		}
		return &WiringConfig{WiringType: WiringHarness, HarnessGroupings: groupings}, nil

	default:
		return nil, &ConfigurationError{Field: "wiring_type", Reason: fmt.Sprintf("unknown type %q", wiringType)}
	}
}

// buildHarnessGroupings splits a tracker's strings into harnesses around
// the motor position and groups the harnesses by string count.
func buildHarnessGroupings(tpl *TrackerTemplate) (map[int][]Harness, error) {
	var north, south int

	switch tpl.MotorPlacement {
	case MotorBetweenStrings:
		north, south = tpl.MotorSplitNorth, tpl.MotorSplitSouth
		if north < 0 || south < 0 {
			return nil, &ConfigurationError{Field: "motor_split", Reason: "split counts must not be negative"}
		}
		if north+south != tpl.StringsPerTracker {
			return nil, &ConfigurationError{
				Field:  "motor_split",
				Reason: fmt.Sprintf("north %d + south %d does not equal strings_per_tracker %d", north, south, tpl.StringsPerTracker),
			}
		}
	case MotorFixedIndex:
		if tpl.MotorStringIndex < 0 || tpl.MotorStringIndex > tpl.StringsPerTracker {
			return nil, &ConfigurationError{
				Field:  "motor_string_index",
				Reason: fmt.Sprintf("index %d outside [0, %d]", tpl.MotorStringIndex, tpl.StringsPerTracker),
			}
		}
		north, south = tpl.MotorStringIndex, tpl.StringsPerTracker-tpl.MotorStringIndex
	default:
		return nil, &ConfigurationError{Field: "motor_placement_type", Reason: fmt.Sprintf("unknown type %q", tpl.MotorPlacement)}
	}

	groupings := make(map[int][]Harness)
	next := 0
	for _, size := range []int{north, south} {
		if size == 0 {
			continue
		}
		indices := make([]int, size)
		for i := range indices {
			indices[i] = next + i
		}
		next += size
		groupings[size] = append(groupings[size], Harness{StringIndices: indices})
	}
	return groupings, nil
}

// NewBlockConfig assembles a block from resolved references and builds
// its wiring topology. A fresh id is assigned when blockID is empty.
func NewBlockConfig(blockID string, tpl *TrackerTemplate, trackerCount int, wiringType WiringType, inv *InverterSpec) (*BlockConfig, error) {
	if trackerCount <= 0 {
		return nil, &ConfigurationError{Field: "tracker_count", Reason: "must be positive"}
	}
	wiring, err := BuildWiring(tpl, wiringType)
	if err != nil {
		return nil, err
	}
	if blockID == "" {
		blockID = uuid.NewString()
	}
	block := &BlockConfig{
		BlockID:      blockID,
		TemplateName: tpl.Name,
		Template:     tpl,
		TrackerCount: trackerCount,
		Wiring:       wiring,
	}
	if inv != nil {
		block.InverterName = inv.Name
		block.Inverter = inv
	}
	return block, nil
}

// Serialize flattens the block into a plain map suitable for the .ebom
// project file. Template and inverter appear by name only; the stores
// resolve them again on load.
func (b *BlockConfig) Serialize() map[string]interface{} {
	data := map[string]interface{}{
		"block_id":         b.BlockID,
		"tracker_template": b.TemplateName,
		"tracker_count":    b.TrackerCount,
	}
	if b.InverterName != "" {
		data["inverter"] = b.InverterName
	}
	if b.Wiring != nil {
		groupings := make(map[string]interface{}, len(b.Wiring.HarnessGroupings))
		for size, harnesses := range b.Wiring.HarnessGroupings {
			list := make([]interface{}, 0, len(harnesses))
			for _, h := range harnesses {
				indices := make([]interface{}, len(h.StringIndices))
				for i, idx := range h.StringIndices {
					indices[i] = idx
				}
				list = append(list, map[string]interface{}{
					"string_indices":      indices,
					"string_cable_size":   h.StringCableSize,
					"cable_size":          h.CableSize,
					"extender_cable_size": h.ExtenderCableSize,
					"whip_cable_size":     h.WhipCableSize,
				})
			}
			groupings[strconv.Itoa(size)] = list
		}
		data["wiring_config"] = map[string]interface{}{
			"wiring_type":       string(b.Wiring.WiringType),
			"harness_groupings": groupings,
		}
	}
	return data
}

// BlockFromSerialized reconstructs a block from its serialized map,
// resolving template and inverter references through the supplied lookup
// tables. A missing reference returns *LookupFailure so the caller can
// skip the block and keep loading the rest of the project.
func BlockFromSerialized(data map[string]interface{}, templates map[string]*TrackerTemplate, inverters map[string]*InverterSpec) (*BlockConfig, error) {
	templateName := getString(data, "tracker_template")
	if templateName == "" {
		return nil, &ValidationError{Field: "tracker_template", Reason: "missing from block data"}
	}
	tpl, ok := templates[templateName]
	if !ok {
		return nil, &LookupFailure{Kind: "template", Name: templateName}
	}

	block := &BlockConfig{
		BlockID:      getString(data, "block_id"),
		TemplateName: templateName,
		Template:     tpl,
		TrackerCount: getInt(data, "tracker_count"),
	}
	if block.BlockID == "" {
		return nil, &ValidationError{Field: "block_id", Reason: "missing from block data"}
	}
	if block.TrackerCount <= 0 {
		return nil, &ConfigurationError{Field: "tracker_count", Reason: "must be positive"}
	}

	if invName := getString(data, "inverter"); invName != "" {
		inv, ok := inverters[invName]
		if !ok {
			return nil, &LookupFailure{Kind: "inverter", Name: invName}
		}
		block.InverterName = invName
		block.Inverter = inv
	}

	wiringData, ok := data["wiring_config"].(map[string]interface{})
	if !ok {
		return nil, &ValidationError{Field: "wiring_config", Reason: "missing from block data"}
	}
	wiring, err := wiringFromSerialized(wiringData)
	if err != nil {
		return nil, err
	}
	// Stored files can be edited or corrupted; recheck that the harness
	// partition still covers the tracker before trusting it.
	if err := wiring.checkStringCoverage(tpl.StringsPerTracker); err != nil {
		return nil, err
	}
	block.Wiring = wiring
	return block, nil
}

// checkStringCoverage verifies that the harness groupings cover every
// string index of one tracker exactly once.
func (wc *WiringConfig) checkStringCoverage(stringsPerTracker int) error {
	seen := make(map[int]bool, stringsPerTracker)
	for size, harnesses := range wc.HarnessGroupings {
		for _, h := range harnesses {
			if len(h.StringIndices) != size {
				return &ValidationError{
					Field:  "string_indices",
					Reason: fmt.Sprintf("harness carries %d strings under grouping %d", len(h.StringIndices), size),
				}
			}
			for _, idx := range h.StringIndices {
				if idx < 0 || idx >= stringsPerTracker {
					return &ValidationError{
						Field:  "string_indices",
						Reason: fmt.Sprintf("string index %d outside [0, %d)", idx, stringsPerTracker),
					}
				}
				if seen[idx] {
					return &ValidationError{
						Field:  "string_indices",
						Reason: fmt.Sprintf("string %d appears in more than one harness", idx),
					}
				}
				seen[idx] = true
			}
		}
	}
	if len(seen) != stringsPerTracker {
		return &ValidationError{
			Field:  "harness_groupings",
			Reason: fmt.Sprintf("%d of %d strings wired", len(seen), stringsPerTracker),
		}
	}
	return nil
}

func wiringFromSerialized(data map[string]interface{}) (*WiringConfig, error) {
	wiring := &WiringConfig{
		WiringType:       WiringType(getString(data, "wiring_type")),
		HarnessGroupings: make(map[int][]Harness),
	}
	switch wiring.WiringType {
	case WiringStringHomeRun, WiringHarness:
	default:
		return nil, &ValidationError{Field: "wiring_type", Reason: fmt.Sprintf("unknown type %q", wiring.WiringType)}
	}

	rawGroupings, _ := data["harness_groupings"].(map[string]interface{})
	for key, raw := range rawGroupings {
		size, err := strconv.Atoi(key)
		if err != nil || size <= 0 {
			return nil, &ValidationError{Field: "harness_groupings", Reason: fmt.Sprintf("bad grouping key %q", key)}
		}
		list, ok := raw.([]interface{})
		if !ok {
			return nil, &ValidationError{Field: "harness_groupings", Reason: fmt.Sprintf("grouping %q is not a list", key)}
		}
		for _, item := range list {
			harnessData, ok := item.(map[string]interface{})
			if !ok {
				return nil, &ValidationError{Field: "harness_groupings", Reason: "harness entry is not a mapping"}
			}
			harness := Harness{
				StringCableSize:   getString(harnessData, "string_cable_size"),
				CableSize:         getString(harnessData, "cable_size"),
				ExtenderCableSize: getString(harnessData, "extender_cable_size"),
				WhipCableSize:     getString(harnessData, "whip_cable_size"),
			}
			if rawIndices, ok := harnessData["string_indices"].([]interface{}); ok {
				for _, rawIdx := range rawIndices {
					idx, ok := toInt(rawIdx)
					if !ok {
						return nil, &ValidationError{Field: "string_indices", Reason: "non-numeric string index"}
					}
					harness.StringIndices = append(harness.StringIndices, idx)
				}
			}
			wiring.HarnessGroupings[size] = append(wiring.HarnessGroupings[size], harness)
		}
	}
	return wiring, nil
}

func getString(data map[string]interface{}, key string) string {
	if val, ok := data[key].(string); ok {
		return val
	}
	return ""
}

func getInt(data map[string]interface{}, key string) int {
	if val, ok := toInt(data[key]); ok {
		return val
	}
	return 0
}

func toInt(val interface{}) (int, bool) {
	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case float32:
		return int(v), true
	default:
		return 0, false
	}
}
