package etc

import "fmt"

// EnergyPreset selects a named aperture sizing rule instead of an explicit
// encircled energy fraction.
type EnergyPreset int

const (
	// EnergyFraction means the explicit Fraction field applies.
	EnergyFraction EnergyPreset = iota
	// EnergyPeak sizes the aperture to the single peak pixel.
	EnergyPeak
	// EnergyFWHM sizes the aperture to the full width at half maximum.
	EnergyFWHM
	// EnergyMin sizes the aperture to the first diffraction minimum.
	EnergyMin
)

// EncircledEnergy specifies how much of the PSF energy the photometric
// aperture must contain, either as a fraction in (0, 1) or as a preset.
type EncircledEnergy struct {
	Preset   EnergyPreset
	Fraction float64
}

func EncircledFraction(f float64) EncircledEnergy {
	return EncircledEnergy{Preset: EnergyFraction, Fraction: f}
}

var (
	EncircledPeak = EncircledEnergy{Preset: EnergyPeak}
	EncircledFWHM = EncircledEnergy{Preset: EnergyFWHM}
	EncircledMin  = EncircledEnergy{Preset: EnergyMin}
)

func (e EncircledEnergy) String() string {
	switch e.Preset {
	case EnergyPeak:
		return "peak"
	case EnergyFWHM:
		return "fwhm"
	case EnergyMin:
		return "min"
	default:
		return fmt.Sprintf("%.1f%%", e.Fraction*100)
	}
}

func (e EncircledEnergy) validate() error {
	if e.Preset == EnergyFraction && (e.Fraction <= 0 || e.Fraction >= 1) {
		return configErrorf("EncircledEnergy", "fraction %g outside (0, 1)", e.Fraction)
	}
	return nil
}

// PSF models the point spread function of the optical system. The reduced
// observation angle is the aperture diameter containing the requested energy,
// in units of lambda / d_aperture. Jitter sigma is in radians, obstruction is
// the area ratio of the central obscuration.
type PSF interface {
	ReducedObservationAngle(contained EncircledEnergy, jitterSigma, obstruction float64) (float64, error)
	MapToPixelMask(mask *PixelMask, jitterSigma, obstruction float64) error
}
