package sizing

import (
	"fmt"

	"pv_design/internal/domain"
)

// DefaultNECFactor is the combined continuous-duty and irradiance
// enhancement derate (1.25 x 1.25) applied to module Isc.
const DefaultNECFactor = 1.56

// CableSet holds the recommended gauge for each segment type of one
// harness grouping.
type CableSet struct {
	String   string `json:"string"`
	Harness  string `json:"harness"`
	Extender string `json:"extender"`
	Whip     string `json:"whip"`
}

// CalculateAllCableSizes recommends conductor sizes for every segment of
// a harness carrying numStrings strings. Pure function: the caller
// applies the result to its Harness records.
//
// The string conductor carries one string's adjusted current
// (Isc x necFactor). The harness trunk carries numStrings x adjusted
// current and is derated for the string conductors bundled into the
// assembly. Extender and whip carry the combined current on their own
// 75 degC table.
func CalculateAllCableSizes(numStrings int, moduleIsc, necFactor float64) (CableSet, error) {
	if numStrings < 1 {
		return CableSet{}, &domain.ValidationError{Field: "num_strings", Reason: "must be at least 1"}
	}
	if moduleIsc <= 0 {
		return CableSet{}, &domain.ValidationError{Field: "module_isc", Reason: "must be positive"}
	}
	if necFactor < 1.0 {
		return CableSet{}, &domain.ValidationError{Field: "nec_factor", Reason: "must be at least 1.0"}
	}

	adjusted := moduleIsc * necFactor
	combined := float64(numStrings) * adjusted

	var set CableSet
	var err error

	if set.String, err = smallestGauge(pvWire90C, adjusted, "string"); err != nil {
		return CableSet{}, err
	}
	if set.Harness, err = smallestGauge(pvWire90C, combined/BundleDerate(numStrings), "harness"); err != nil {
		return CableSet{}, err
	}
	if set.Extender, err = smallestGauge(thwn75C, combined, "extender"); err != nil {
		return CableSet{}, err
	}
	if set.Whip, err = smallestGauge(thwn75C, combined, "whip"); err != nil {
		return CableSet{}, err
	}
	return set, nil
}

// Apply sizes every harness grouping of a wiring config through calc and
// writes the recommendations onto the Harness records. calc is usually
// CalculateAllCableSizes bound to a module Isc and NEC factor, possibly
// behind a cache.
func Apply(wc *domain.WiringConfig, calc func(numStrings int) (CableSet, error)) error {
	if wc == nil {
		return &domain.ConfigurationError{Field: "wiring_config", Reason: "missing"}
	}
	for size, harnesses := range wc.HarnessGroupings {
		set, err := calc(size)
		if err != nil {
			return fmt.Errorf("sizing %d-string grouping: %w", size, err)
		}
		for i := range harnesses {
			harnesses[i].StringCableSize = set.String
			harnesses[i].CableSize = set.Harness
			harnesses[i].ExtenderCableSize = set.Extender
			harnesses[i].WhipCableSize = set.Whip
		}
	}
	return nil
}
