package domain

import (
	"encoding/json"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func harnessTemplate(t *testing.T) *TrackerTemplate {
	t.Helper()
	module, err := NewModuleSpec(validModule())
	require.NoError(t, err)
	return &TrackerTemplate{
		Name:              "test-tracker",
		Module:            module,
		ModuleOrientation: OrientationPortrait,
		ModulesPerString:  26,
		StringsPerTracker: 4,
		MotorPlacement:    MotorBetweenStrings,
		MotorSplitNorth:   2,
		MotorSplitSouth:   2,
		ModulesHigh:       1,
	}
}

// coveredStrings flattens a grouping back into the sorted set of string
// indices it covers, failing on duplicates.
func coveredStrings(t *testing.T, groupings map[int][]Harness) []int {
	t.Helper()
	seen := make(map[int]bool)
	var indices []int
	for size, harnesses := range groupings {
		for _, h := range harnesses {
			assert.Len(t, h.StringIndices, size, "harness size must match its grouping key")
			for _, idx := range h.StringIndices {
				require.False(t, seen[idx], "string %d appears in more than one harness", idx)
				seen[idx] = true
				indices = append(indices, idx)
			}
		}
	}
	sort.Ints(indices)
	return indices
}

func TestBuildWiring_HarnessPartitionComplete(t *testing.T) {
	wiring, err := BuildWiring(harnessTemplate(t), WiringHarness)
	require.NoError(t, err)
	require.Equal(t, WiringHarness, wiring.WiringType)

	require.Len(t, wiring.HarnessGroupings[2], 2, "2/2 split yields two 2-string harnesses")
	assert.Equal(t, []int{0, 1, 2, 3}, coveredStrings(t, wiring.HarnessGroupings))
}

func TestBuildWiring_UnevenSplit(t *testing.T) {
	tpl := harnessTemplate(t)
	tpl.StringsPerTracker = 5
	tpl.MotorSplitNorth = 3
	tpl.MotorSplitSouth = 2

	wiring, err := BuildWiring(tpl, WiringHarness)
	require.NoError(t, err)
	require.Len(t, wiring.HarnessGroupings[3], 1)
	require.Len(t, wiring.HarnessGroupings[2], 1)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, coveredStrings(t, wiring.HarnessGroupings))
}

func TestBuildWiring_FixedIndexMotor(t *testing.T) {
	tpl := harnessTemplate(t)
	tpl.MotorPlacement = MotorFixedIndex
	tpl.StringsPerTracker = 3
	tpl.MotorStringIndex = 1

	wiring, err := BuildWiring(tpl, WiringHarness)
	require.NoError(t, err)
	require.Len(t, wiring.HarnessGroupings[1], 1)
	require.Len(t, wiring.HarnessGroupings[2], 1)
	assert.Equal(t, []int{0}, wiring.HarnessGroupings[1][0].StringIndices)
	assert.Equal(t, []int{1, 2}, wiring.HarnessGroupings[2][0].StringIndices)
}

func TestBuildWiring_FixedIndexAtEdge(t *testing.T) {
	// Motor at index 0 leaves a single full-width harness.
	tpl := harnessTemplate(t)
	tpl.MotorPlacement = MotorFixedIndex
	tpl.MotorStringIndex = 0

	wiring, err := BuildWiring(tpl, WiringHarness)
	require.NoError(t, err)
	require.Len(t, wiring.HarnessGroupings, 1)
	assert.Equal(t, []int{0, 1, 2, 3}, coveredStrings(t, wiring.HarnessGroupings))
}

func TestBuildWiring_StringHomeRun(t *testing.T) {
	wiring, err := BuildWiring(harnessTemplate(t), WiringStringHomeRun)
	require.NoError(t, err)
	require.Len(t, wiring.HarnessGroupings[1], 4, "each string is its own run")
	assert.Equal(t, []int{0, 1, 2, 3}, coveredStrings(t, wiring.HarnessGroupings))
}

func TestBuildWiring_ConfigurationErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*TrackerTemplate)
	}{
		{"zero modules per string", func(tpl *TrackerTemplate) { tpl.ModulesPerString = 0 }},
		{"zero strings per tracker", func(tpl *TrackerTemplate) { tpl.StringsPerTracker = 0 }},
		{"splits do not cover tracker", func(tpl *TrackerTemplate) { tpl.MotorSplitSouth = 1 }},
		{"negative split", func(tpl *TrackerTemplate) {
			tpl.MotorSplitNorth = -1
			tpl.MotorSplitSouth = 5
		}},
		{"motor index out of range", func(tpl *TrackerTemplate) {
			tpl.MotorPlacement = MotorFixedIndex
			tpl.MotorStringIndex = 5
		}},
		{"negative motor index", func(tpl *TrackerTemplate) {
			tpl.MotorPlacement = MotorFixedIndex
			tpl.MotorStringIndex = -1
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tpl := harnessTemplate(t)
			tc.mutate(tpl)
			_, err := BuildWiring(tpl, WiringHarness)
			var configuration *ConfigurationError
			require.Error(t, err)
			assert.True(t, errors.As(err, &configuration), "want ConfigurationError, got %T", err)
		})
	}
}

func TestNewBlockConfig_AssignsID(t *testing.T) {
	block, err := NewBlockConfig("", harnessTemplate(t), 3, WiringHarness, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, block.BlockID)
	assert.Equal(t, 12, block.TotalStrings())
}

func TestNewBlockConfig_RejectsBadTrackerCount(t *testing.T) {
	_, err := NewBlockConfig("b1", harnessTemplate(t), 0, WiringHarness, nil)
	var configuration *ConfigurationError
	require.Error(t, err)
	assert.True(t, errors.As(err, &configuration))
}

func TestBlockConfig_SerializeRoundTrip(t *testing.T) {
	tpl := harnessTemplate(t)
	inv := &InverterSpec{Name: "INV-250", MaxDCVoltage: 1500, StartupVoltage: 500}

	block, err := NewBlockConfig("blk-1", tpl, 3, WiringHarness, inv)
	require.NoError(t, err)
	for size, harnesses := range block.Wiring.HarnessGroupings {
		for i := range harnesses {
			harnesses[i].StringCableSize = "10 AWG"
			harnesses[i].CableSize = "8 AWG"
			harnesses[i].ExtenderCableSize = "8 AWG"
			harnesses[i].WhipCableSize = "8 AWG"
		}
		block.Wiring.HarnessGroupings[size] = harnesses
	}

	// Through JSON and back, as the .ebom file does.
	raw, err := json.Marshal(block.Serialize())
	require.NoError(t, err)
	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &data))

	templates := map[string]*TrackerTemplate{tpl.Name: tpl}
	inverters := map[string]*InverterSpec{inv.Name: inv}
	restored, err := BlockFromSerialized(data, templates, inverters)
	require.NoError(t, err)

	assert.Equal(t, block.BlockID, restored.BlockID)
	assert.Equal(t, block.TrackerCount, restored.TrackerCount)
	assert.Same(t, tpl, restored.Template)
	assert.Same(t, inv, restored.Inverter)
	assert.Equal(t, block.Wiring.WiringType, restored.Wiring.WiringType)
	assert.Equal(t, block.Wiring.HarnessGroupings, restored.Wiring.HarnessGroupings)
}

func TestBlockFromSerialized_MissingTemplate(t *testing.T) {
	block, err := NewBlockConfig("blk-1", harnessTemplate(t), 2, WiringHarness, nil)
	require.NoError(t, err)

	_, err = BlockFromSerialized(block.Serialize(), map[string]*TrackerTemplate{}, nil)
	var lookup *LookupFailure
	require.Error(t, err)
	require.True(t, errors.As(err, &lookup))
	assert.Equal(t, "template", lookup.Kind)
	assert.Equal(t, "test-tracker", lookup.Name)
}

func TestBlockFromSerialized_MissingInverter(t *testing.T) {
	tpl := harnessTemplate(t)
	inv := &InverterSpec{Name: "INV-250"}
	block, err := NewBlockConfig("blk-1", tpl, 2, WiringHarness, inv)
	require.NoError(t, err)

	templates := map[string]*TrackerTemplate{tpl.Name: tpl}
	_, err = BlockFromSerialized(block.Serialize(), templates, map[string]*InverterSpec{})
	var lookup *LookupFailure
	require.Error(t, err)
	require.True(t, errors.As(err, &lookup))
	assert.Equal(t, "inverter", lookup.Kind)
}

func TestBlockFromSerialized_CorruptedStringCoverage(t *testing.T) {
	tpl := harnessTemplate(t)
	templates := map[string]*TrackerTemplate{tpl.Name: tpl}

	// Start from a healthy serialized block and corrupt its groupings the
	// way a hand-edited project file would.
	corrupted := func(t *testing.T, mutate func(harnesses []interface{})) map[string]interface{} {
		t.Helper()
		block, err := NewBlockConfig("blk-1", tpl, 1, WiringHarness, nil)
		require.NoError(t, err)
		data := block.Serialize()
		wiring := data["wiring_config"].(map[string]interface{})
		groupings := wiring["harness_groupings"].(map[string]interface{})
		mutate(groupings["2"].([]interface{}))
		return data
	}

	cases := []struct {
		name   string
		mutate func(harnesses []interface{})
	}{
		{"duplicate string", func(harnesses []interface{}) {
			harnesses[1].(map[string]interface{})["string_indices"] = []interface{}{0, 1}
		}},
		{"index out of range", func(harnesses []interface{}) {
			harnesses[1].(map[string]interface{})["string_indices"] = []interface{}{2, 9}
		}},
		{"size does not match grouping", func(harnesses []interface{}) {
			harnesses[1].(map[string]interface{})["string_indices"] = []interface{}{2}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BlockFromSerialized(corrupted(t, tc.mutate), templates, nil)
			var validation *ValidationError
			require.Error(t, err)
			assert.True(t, errors.As(err, &validation), "want ValidationError, got %T", err)
		})
	}

	// A grouping that drops a harness leaves strings unwired.
	block, err := NewBlockConfig("blk-1", tpl, 1, WiringHarness, nil)
	require.NoError(t, err)
	data := block.Serialize()
	wiring := data["wiring_config"].(map[string]interface{})
	groupings := wiring["harness_groupings"].(map[string]interface{})
	groupings["2"] = groupings["2"].([]interface{})[:1]
	_, err = BlockFromSerialized(data, templates, nil)
	var validation *ValidationError
	require.Error(t, err)
	assert.True(t, errors.As(err, &validation))
}

func TestBlockFromSerialized_MalformedData(t *testing.T) {
	tpl := harnessTemplate(t)
	templates := map[string]*TrackerTemplate{tpl.Name: tpl}

	cases := []struct {
		name string
		data map[string]interface{}
	}{
		{"no template name", map[string]interface{}{"block_id": "b"}},
		{"no block id", map[string]interface{}{"tracker_template": tpl.Name}},
		{"no wiring", map[string]interface{}{
			"block_id": "b", "tracker_template": tpl.Name, "tracker_count": 1,
		}},
		{"bad grouping key", map[string]interface{}{
			"block_id": "b", "tracker_template": tpl.Name, "tracker_count": 1,
			"wiring_config": map[string]interface{}{
				"wiring_type":       "HARNESS",
				"harness_groupings": map[string]interface{}{"two": []interface{}{}},
			},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BlockFromSerialized(tc.data, templates, nil)
			assert.Error(t, err)
		})
	}
}
