package sizing

import (
	"fmt"

	"pv_design/internal/domain"
)

// Violation codes reported by ValidateMPPT.
const (
	ViolationNoTemplate     = "NO_TRACKER_TEMPLATE"
	ViolationNoChannels     = "NO_MPPT_CHANNELS"
	ViolationVocExceedsMax  = "VOC_EXCEEDS_MAX_DC"
	ViolationVmpBelowStart  = "VMP_BELOW_STARTUP"
	ViolationVmpOutOfWindow = "VMP_OUTSIDE_MPPT_WINDOW"
	ViolationChannelCurrent = "CHANNEL_CURRENT_EXCEEDED"
	ViolationChannelPower   = "CHANNEL_POWER_EXCEEDED"
)

// Violation is one inverter limit the block's aggregate output breaks.
type Violation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidateMPPT checks a block's aggregate DC output against an inverter
// datasheet and reports every limit it violates, not just the first, so
// all problems can be shown at once. An empty slice means the pairing is
// acceptable.
func ValidateMPPT(block *domain.BlockConfig, inv *domain.InverterSpec) []Violation {
	violations := []Violation{}
	tpl := block.Template
	if tpl == nil || tpl.Module == nil {
		return append(violations, Violation{
			Code:    ViolationNoTemplate,
			Message: "block has no resolved tracker template",
		})
	}

	stringVoc := tpl.StringVoc()
	stringVmp := tpl.StringVmp()

	if stringVoc > inv.MaxDCVoltage {
		violations = append(violations, Violation{
			Code:    ViolationVocExceedsMax,
			Message: fmt.Sprintf("string Voc %.1f V exceeds inverter max DC voltage %.1f V", stringVoc, inv.MaxDCVoltage),
		})
	}
	if stringVmp < inv.StartupVoltage {
		violations = append(violations, Violation{
			Code:    ViolationVmpBelowStart,
			Message: fmt.Sprintf("string Vmp %.1f V below inverter startup voltage %.1f V", stringVmp, inv.StartupVoltage),
		})
	}

	channels := inv.MPPTChannels
	if len(channels) == 0 {
		return append(violations, Violation{
			Code:    ViolationNoChannels,
			Message: "inverter defines no MPPT channels",
		})
	}

	totalStrings := block.TotalStrings()
	totalCurrent := float64(totalStrings) * tpl.Module.Imp
	totalPower := float64(totalStrings*tpl.ModulesPerString) * tpl.Module.Wattage

	if inv.MPPTConfiguration == "parallel" {
		// Paralleled trackers share one input bus; compare against the
		// summed channel capacity.
		var currentLimit, powerLimit float64
		for _, ch := range channels {
			currentLimit += ch.MaxInputCurrent * float64(ch.NumStringInputs)
			powerLimit += ch.MaxPower
		}
		if totalCurrent > currentLimit {
			violations = append(violations, Violation{
				Code:    ViolationChannelCurrent,
				Message: fmt.Sprintf("block current %.1f A exceeds paralleled MPPT capacity %.1f A", totalCurrent, currentLimit),
			})
		}
		if powerLimit > 0 && totalPower > powerLimit {
			violations = append(violations, Violation{
				Code:    ViolationChannelPower,
				Message: fmt.Sprintf("block power %.0f W exceeds paralleled MPPT capacity %.0f W", totalPower, powerLimit),
			})
		}
		return violations
	}

	perChannelCurrent := totalCurrent / float64(len(channels))
	perChannelPower := totalPower / float64(len(channels))
	for i, ch := range channels {
		if stringVmp > 0 && (stringVmp < ch.MinVoltage || stringVmp > ch.MaxVoltage) {
			violations = append(violations, Violation{
				Code:    ViolationVmpOutOfWindow,
				Message: fmt.Sprintf("string Vmp %.1f V outside MPPT channel %d window [%.1f, %.1f] V", stringVmp, i+1, ch.MinVoltage, ch.MaxVoltage),
			})
		}
		limit := ch.MaxInputCurrent * float64(ch.NumStringInputs)
		if perChannelCurrent > limit {
			violations = append(violations, Violation{
				Code:    ViolationChannelCurrent,
				Message: fmt.Sprintf("channel %d current %.1f A exceeds limit %.1f A", i+1, perChannelCurrent, limit),
			})
		}
		if ch.MaxPower > 0 && perChannelPower > ch.MaxPower {
			violations = append(violations, Violation{
				Code:    ViolationChannelPower,
				Message: fmt.Sprintf("channel %d power %.0f W exceeds limit %.0f W", i+1, perChannelPower, ch.MaxPower),
			})
		}
	}
	return violations
}
