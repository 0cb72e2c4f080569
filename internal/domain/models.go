package domain

// ModuleOrientation is how modules are mounted on the tracker.
type ModuleOrientation string

const (
	OrientationPortrait  ModuleOrientation = "portrait"
	OrientationLandscape ModuleOrientation = "landscape"
)

// WiringType selects the electrical topology of a block.
type WiringType string

const (
	WiringStringHomeRun WiringType = "STRING_HOME_RUN"
	WiringHarness       WiringType = "HARNESS"
)

// MotorPlacementType describes where the tracker drive motor sits
// relative to the string layout.
type MotorPlacementType string

const (
	MotorBetweenStrings MotorPlacementType = "between-strings"
	MotorFixedIndex     MotorPlacementType = "fixed-index"
)

// ModuleSpec holds the electrical and geometric ratings of a PV module.
// Immutable once constructed; use NewModuleSpec so the electrical
// invariants are checked up front.
type ModuleSpec struct {
	Manufacturer string  `json:"manufacturer"`
	Model        string  `json:"model"`
	LengthMM     float64 `json:"length_mm"`
	WidthMM      float64 `json:"width_mm"`
	DepthMM      float64 `json:"depth_mm"`
	WeightKG     float64 `json:"weight_kg"`

	Wattage          float64 `json:"wattage"`
	Vmp              float64 `json:"vmp"`
	Imp              float64 `json:"imp"`
	Voc              float64 `json:"voc"`
	Isc              float64 `json:"isc"`
	MaxSystemVoltage float64 `json:"max_system_voltage"`
}

// NewModuleSpec validates the electrical invariants of a module datasheet.
func NewModuleSpec(spec ModuleSpec) (*ModuleSpec, error) {
	if spec.WidthMM <= 0 {
		return nil, &ValidationError{Field: "width_mm", Reason: "must be positive"}
	}
	if spec.Imp <= 0 {
		return nil, &ValidationError{Field: "imp", Reason: "must be positive"}
	}
	if spec.Isc < spec.Imp {
		return nil, &ValidationError{Field: "isc", Reason: "must be >= imp"}
	}
	if spec.Vmp <= 0 {
		return nil, &ValidationError{Field: "vmp", Reason: "must be positive"}
	}
	if spec.Voc < spec.Vmp {
		return nil, &ValidationError{Field: "voc", Reason: "must be >= vmp"}
	}
	return &spec, nil
}

// TrackerTemplate describes the repeating tracker arrangement a block is
// built from. Shared by reference across blocks; the template store owns
// its lifetime.
type TrackerTemplate struct {
	Name              string             `json:"name"`
	Module            *ModuleSpec        `json:"module_spec"`
	ModuleOrientation ModuleOrientation  `json:"module_orientation"`
	ModulesPerString  int                `json:"modules_per_string"`
	StringsPerTracker int                `json:"strings_per_tracker"`
	ModuleSpacingM    float64            `json:"module_spacing_m"`
	MotorGapM         float64            `json:"motor_gap_m"`
	MotorPlacement    MotorPlacementType `json:"motor_placement_type"`
	MotorStringIndex  int                `json:"motor_string_index"`
	MotorSplitNorth   int                `json:"motor_split_north"`
	MotorSplitSouth   int                `json:"motor_split_south"`
	ModulesHigh       int                `json:"modules_high"`
}

// StringVoc is the open-circuit voltage of one series string.
func (t *TrackerTemplate) StringVoc() float64 {
	if t.Module == nil {
		return 0
	}
	return t.Module.Voc * float64(t.ModulesPerString)
}

// StringVmp is the max-power voltage of one series string.
func (t *TrackerTemplate) StringVmp() float64 {
	if t.Module == nil {
		return 0
	}
	return t.Module.Vmp * float64(t.ModulesPerString)
}

// Harness is a cable assembly combining several strings' conductors into
// one trunk run. Cable size fields are gauge labels such as "10 AWG" and
// are filled in by the sizing engine.
type Harness struct {
	StringIndices     []int  `json:"string_indices"`
	StringCableSize   string `json:"string_cable_size"`
	CableSize         string `json:"cable_size"`
	ExtenderCableSize string `json:"extender_cable_size"`
	WhipCableSize     string `json:"whip_cable_size"`
}

// WiringConfig is the electrical topology of a block. HarnessGroupings
// maps strings-per-harness to the harnesses of that size; the union of
// string indices across a grouping covers every tracker string exactly
// once.
type WiringConfig struct {
	WiringType       WiringType        `json:"wiring_type"`
	HarnessGroupings map[int][]Harness `json:"harness_groupings"`
}

// BlockConfig aggregates trackers into one electrical block. The block
// owns its WiringConfig; template and inverter are shared references
// resolved by name through the stores.
type BlockConfig struct {
	BlockID      string           `json:"block_id"`
	TemplateName string           `json:"tracker_template"`
	Template     *TrackerTemplate `json:"-"`
	TrackerCount int              `json:"tracker_count"`
	Wiring       *WiringConfig    `json:"wiring_config"`
	InverterName string           `json:"inverter,omitempty"`
	Inverter     *InverterSpec    `json:"-"`
}

// TotalStrings is the number of strings across all trackers in the block.
func (b *BlockConfig) TotalStrings() int {
	if b.Template == nil {
		return 0
	}
	return b.Template.StringsPerTracker * b.TrackerCount
}

// MPPTChannel is one Maximum Power Point Tracking input on an inverter.
type MPPTChannel struct {
	MaxInputCurrent float64 `json:"max_input_current"`
	MinVoltage      float64 `json:"min_voltage"`
	MaxVoltage      float64 `json:"max_voltage"`
	MaxPower        float64 `json:"max_power"`
	NumStringInputs int     `json:"num_string_inputs"`
}

// InverterSpec holds an inverter datasheet. Read-only to the core.
type InverterSpec struct {
	Name              string        `json:"name"`
	Manufacturer      string        `json:"manufacturer"`
	Model             string        `json:"model"`
	RatedPower        float64       `json:"rated_power"`
	MaxEfficiency     float64       `json:"max_efficiency"`
	MPPTChannels      []MPPTChannel `json:"mppt_channels"`
	MPPTConfiguration string        `json:"mppt_configuration"` // independent | parallel
	MaxDCVoltage      float64       `json:"max_dc_voltage"`
	StartupVoltage    float64       `json:"startup_voltage"`
	NominalACVoltage  float64       `json:"nominal_ac_voltage"`
	MaxACCurrent      float64       `json:"max_ac_current"`
	PowerFactor       float64       `json:"power_factor"`
	DimensionsMM      []float64     `json:"dimensions_mm,omitempty"`
	WeightKG          float64       `json:"weight_kg"`
	IPRating          string        `json:"ip_rating"`
}

// Project is the in-memory form of an .ebom file.
type Project struct {
	Name              string                  `json:"name"`
	Version           int                     `json:"version"`
	Blocks            map[string]*BlockConfig `json:"-"`
	SelectedModules   []string                `json:"selected_modules,omitempty"`
	SelectedInverters []string                `json:"selected_inverters,omitempty"`
}
