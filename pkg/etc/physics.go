package etc

import "math"

// Physical constants, SI (CODATA 2018 exact values).
const (
	PlanckConstant    = 6.62607015e-34 // J s
	SpeedOfLight      = 2.99792458e8   // m / s
	BoltzmannConstant = 1.380649e-23   // J / K
)

// PlanckRadiance evaluates the Planck law B_lambda(wl, temp) in
// W m^-3 sr^-1. Non-positive temperatures radiate nothing.
func PlanckRadiance(wl, temp float64) float64 {
	if temp <= 0 {
		return 0
	}
	x := PlanckConstant * SpeedOfLight / (wl * BoltzmannConstant * temp)
	return 2 * PlanckConstant * SpeedOfLight * SpeedOfLight /
		(wl * wl * wl * wl * wl) / math.Expm1(x)
}

// PhotonEnergy returns the energy of a single photon at wl in joules.
func PhotonEnergy(wl float64) float64 {
	return PlanckConstant * SpeedOfLight / wl
}

// BlackBodySpectrum samples the Planck law over the grid as a spectral
// radiance.
func BlackBodySpectrum(wavelength []float64, temp float64) (*SpectralQty, error) {
	return SpectrumOf(wavelength, Radiance, func(wl float64) float64 {
		return PlanckRadiance(wl, temp)
	})
}

// photometricBand holds the central wavelength and the zero-magnitude
// spectral flux density of a Johnson band.
type photometricBand struct {
	wl  float64 // m
	sfd float64 // W / m^3
}

// Zero points from the Handbook of Space Astronomy and Astrophysics.
var photometricBands = map[string]photometricBand{
	"U": {wl: 366 * Nanometer, sfd: 4.175e-11 * PerNanometer},
	"B": {wl: 438 * Nanometer, sfd: 6.32e-11 * PerNanometer},
	"V": {wl: 545 * Nanometer, sfd: 3.631e-11 * PerNanometer},
	"R": {wl: 641 * Nanometer, sfd: 2.177e-11 * PerNanometer},
	"I": {wl: 798 * Nanometer, sfd: 1.126e-11 * PerNanometer},
	"J": {wl: 1220 * Nanometer, sfd: 3.15e-12 * PerNanometer},
	"H": {wl: 1630 * Nanometer, sfd: 1.14e-12 * PerNanometer},
	"K": {wl: 2190 * Nanometer, sfd: 3.96e-13 * PerNanometer},
}

// MagnitudeScale converts an apparent magnitude to the corresponding flux
// ratio relative to a zeroth-magnitude source.
func MagnitudeScale(mag float64) float64 {
	return math.Pow(10, -0.4*mag)
}
