package etc

import "fmt"

// ConfigurationError reports a malformed or incompatible scene description
// reaching the core, e.g. a missing spectral curve or an out-of-range factor.
type ConfigurationError struct {
	Component string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	if e.Component == "" {
		return "configuration: " + e.Reason
	}
	return fmt.Sprintf("configuration: %s: %s", e.Component, e.Reason)
}

func configErrorf(component, format string, args ...any) error {
	return &ConfigurationError{Component: component, Reason: fmt.Sprintf(format, args...)}
}

// DomainError reports a spectral resampling request outside the source grid
// without an extrapolation policy.
type DomainError struct {
	Min, Max       float64 // requested bounds, meters
	SrcMin, SrcMax float64
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("rebin domain [%g, %g] m exceeds source range [%g, %g] m",
		e.Min, e.Max, e.SrcMin, e.SrcMax)
}

// UnitMismatchError reports arithmetic between incompatible dimensions.
type UnitMismatchError struct {
	Op   string
	A, B Unit
}

func (e *UnitMismatchError) Error() string {
	return fmt.Sprintf("unit mismatch in %s: %s vs %s", e.Op, e.A, e.B)
}

// SaturationError reports that the brightest pixel exceeds the detector's
// well capacity before the requested SNR or exposure time is reached.
type SaturationError struct {
	ExposureTime  float64 // s
	PeakElectrons float64
	WellCapacity  float64
}

func (e *SaturationError) Error() string {
	return fmt.Sprintf("detector saturated: %.4g e- in peak pixel after %.4g s exceeds well capacity %.4g e-",
		e.PeakElectrons, e.ExposureTime, e.WellCapacity)
}

// NoSolutionError reports a failed numeric inversion: a root-finder that did
// not converge within its iteration budget or a quadratic with no positive
// real root.
type NoSolutionError struct {
	What   string
	Detail string
}

func (e *NoSolutionError) Error() string {
	if e.Detail == "" {
		return "no solution: " + e.What
	}
	return fmt.Sprintf("no solution: %s: %s", e.What, e.Detail)
}
