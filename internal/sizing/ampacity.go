// Package sizing recommends NEC-compliant conductor sizes for the cable
// segments of a harness-wired block and validates block output against
// inverter MPPT limits.
package sizing

import "pv_design/internal/domain"

// Ampacity tables, revision 2023.1.
//
// Values are copper conductor ampacities from NEC Table 310.16 (not more
// than three current-carrying conductors in raceway, 30 degC ambient).
// String and harness trunk segments assume PV wire / USE-2 insulation and
// use the 90 degC column; harness assemblies are stocked from 10 AWG up,
// so smaller gauges are not offered. Extender and whip segments land on
// 75 degC rated lugs and therefore use the 75 degC column.

// TableEntry pairs a standard gauge label with its rated ampacity.
type TableEntry struct {
	Gauge    string
	Ampacity float64
}

// pvWire90C: 90 degC column, sizes offered for string and trunk conductors.
var pvWire90C = []TableEntry{
	{"10 AWG", 40},
	{"8 AWG", 55},
	{"6 AWG", 75},
	{"4 AWG", 95},
	{"3 AWG", 115},
	{"2 AWG", 130},
	{"1 AWG", 145},
	{"1/0 AWG", 170},
	{"2/0 AWG", 195},
	{"3/0 AWG", 225},
	{"4/0 AWG", 260},
	{"250 kcmil", 290},
	{"300 kcmil", 320},
	{"350 kcmil", 350},
	{"400 kcmil", 380},
	{"500 kcmil", 430},
}

// thwn75C: 75 degC column for extender and whip segments.
var thwn75C = []TableEntry{
	{"10 AWG", 35},
	{"8 AWG", 50},
	{"6 AWG", 65},
	{"4 AWG", 85},
	{"3 AWG", 100},
	{"2 AWG", 115},
	{"1 AWG", 130},
	{"1/0 AWG", 150},
	{"2/0 AWG", 175},
	{"3/0 AWG", 200},
	{"4/0 AWG", 230},
	{"250 kcmil", 255},
	{"300 kcmil", 285},
	{"350 kcmil", 310},
	{"400 kcmil", 335},
	{"500 kcmil", 380},
}

// BundleDerate returns the NEC 310.15(C)(1) adjustment factor for the
// given number of current-carrying conductors bundled in one assembly.
func BundleDerate(conductors int) float64 {
	switch {
	case conductors <= 3:
		return 1.0
	case conductors <= 6:
		return 0.8
	case conductors <= 9:
		return 0.7
	case conductors <= 20:
		return 0.5
	case conductors <= 30:
		return 0.45
	case conductors <= 40:
		return 0.4
	default:
		return 0.35
	}
}

// smallestGauge finds the smallest standard gauge whose ampacity meets
// the requirement. Always rounds up to the next table entry; never
// interpolates. Currents past the end of the table are an out-of-range
// condition, never a silently undersized result.
func smallestGauge(table []TableEntry, requiredAmps float64, segment string) (string, error) {
	for _, entry := range table {
		if entry.Ampacity >= requiredAmps {
			return entry.Gauge, nil
		}
	}
	return "", &domain.CapacityExceeded{
		Segment:      segment,
		RequiredAmps: requiredAmps,
		TableMaxAmps: table[len(table)-1].Ampacity,
	}
}
