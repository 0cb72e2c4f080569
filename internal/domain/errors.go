package domain

import "fmt"

// ValidationError reports malformed input data (module electrical
// parameters, PAN file fields). Raised at construction or parse time,
// never coerced into a default.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// ConfigurationError reports structurally invalid wiring parameters
// (non-positive counts, out-of-range motor indices).
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid wiring configuration (%s): %s", e.Field, e.Reason)
}

// LookupFailure reports a template or inverter name absent from its store
// during block reconstruction. Isolated per block so one bad reference
// does not abort loading the rest of the project.
type LookupFailure struct {
	Kind string // "template" or "inverter"
	Name string
}

func (e *LookupFailure) Error() string {
	return fmt.Sprintf("%s %q not found in store", e.Kind, e.Name)
}

// CapacityExceeded reports that no standard gauge in the ampacity table
// satisfies the required current. Callers must never substitute an
// undersized gauge.
type CapacityExceeded struct {
	Segment      string
	RequiredAmps float64
	TableMaxAmps float64
}

func (e *CapacityExceeded) Error() string {
	return fmt.Sprintf("%s segment requires %.2f A, largest standard gauge is rated %.2f A",
		e.Segment, e.RequiredAmps, e.TableMaxAmps)
}
