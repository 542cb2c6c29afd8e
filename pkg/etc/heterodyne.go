package etc

import (
	"log/slog"
	"math"
)

// HeterodyneParams configures a heterodyne radio receiver.
type HeterodyneParams struct {
	ApertureEfficiency float64
	MainBeamEfficiency float64
	ReceiverTemp       float64 // K
	EtaFss             float64 // forward scattering efficiency
	LambdaLine         float64 // m, observed line wavelength
	Kappa              float64 // backend degradation factor
	NOn                float64 // on-source integrations, 0 for a single phase
	DAperture          float64 // m
	WlDelta            float64 // m, spectral bin width defining the channel
}

// NewHeterodyneParams returns defaults for an ideal single-phase receiver.
func NewHeterodyneParams() HeterodyneParams {
	return HeterodyneParams{
		ApertureEfficiency: 1,
		MainBeamEfficiency: 1,
		EtaFss:             1,
		Kappa:              1,
	}
}

// Heterodyne models a heterodyne receiver at the end of the chain. Signal
// and background are converted to antenna temperatures via the
// Rayleigh-Jeans approximation and the radiometer equation relates system
// noise temperature, channel width and integration time.
type Heterodyne struct {
	parent Radiant
	p      HeterodyneParams

	tSignal     *SpectralQty
	tBackground *SpectralQty
}

func NewHeterodyne(parent Radiant, p HeterodyneParams) (*Heterodyne, error) {
	if parent == nil {
		return nil, configErrorf("Heterodyne", "missing parent node")
	}
	if p.LambdaLine <= 0 || p.WlDelta <= 0 || p.DAperture <= 0 {
		return nil, configErrorf("Heterodyne", "line wavelength, bin width and aperture must be positive")
	}
	if p.Kappa <= 0 || p.EtaFss <= 0 || p.MainBeamEfficiency <= 0 || p.ApertureEfficiency <= 0 {
		return nil, configErrorf("Heterodyne", "efficiencies and kappa must be positive")
	}
	if p.ReceiverTemp < 0 || p.NOn < 0 {
		return nil, configErrorf("Heterodyne", "receiver temperature and n_on must not be negative")
	}
	return &Heterodyne{parent: parent, p: p}, nil
}

// rjTemperature converts a per-wavelength spectral quantity to an antenna
// temperature scale: first to the per-frequency representation via lambda^2/c,
// then through the Rayleigh-Jeans law T = B_nu lambda^2 / (2 k_B).
func rjTemperature(s *SpectralQty, efficiency float64) *SpectralQty {
	return s.Apply(Kelvin, func(wl, v float64) float64 {
		perHz := v * wl * wl / SpeedOfLight
		return perHz * wl * wl / (2 * BoltzmannConstant) * efficiency
	})
}

// Temperatures derives the spectral signal and background antenna
// temperatures from the chain output.
func (h *Heterodyne) Temperatures() (tSignal, tBackground *SpectralQty, err error) {
	if h.tSignal != nil {
		return h.tSignal, h.tBackground, nil
	}
	background, err := h.parent.Background()
	if err != nil {
		return nil, nil, err
	}
	sig, err := h.parent.Signal()
	if err != nil {
		return nil, nil, err
	}
	slog.Debug("calculating antenna temperatures", "extent", sig.Extent)
	tBackground = rjTemperature(background, h.p.MainBeamEfficiency*h.p.EtaFss)
	if sig.Extent == PointSource {
		// A point source couples through the aperture area instead of the
		// beam solid angle.
		area := math.Pi * h.p.DAperture * h.p.DAperture / 4
		tSignal = sig.Flux.Apply(Kelvin, func(wl, v float64) float64 {
			perHz := v * wl * wl / SpeedOfLight
			return perHz * h.p.ApertureEfficiency * area * h.p.EtaFss / (2 * BoltzmannConstant)
		})
	} else {
		tSignal = rjTemperature(sig.Flux, h.p.MainBeamEfficiency*h.p.EtaFss)
	}
	h.tSignal = tSignal
	h.tBackground = tBackground
	return tSignal, tBackground, nil
}

// lineValues evaluates the temperatures and the channel width at the line
// wavelength.
func (h *Heterodyne) lineValues() (tSignal, tSys, deltaNu float64, err error) {
	sig, bg, err := h.Temperatures()
	if err != nil {
		return 0, 0, 0, err
	}
	wl := h.p.LambdaLine
	if wl < sig.MinWavelength() || wl > sig.MaxWavelength() {
		return 0, 0, 0, &DomainError{Min: wl, Max: wl, SrcMin: sig.MinWavelength(), SrcMax: sig.MaxWavelength()}
	}
	tSignal = sig.interp(wl)
	tSys = h.p.ReceiverTemp + bg.interp(wl)
	deltaNu = SpeedOfLight / wl / (wl/h.p.WlDelta + 1)
	return tSignal, tSys, deltaNu, nil
}

// onOffFactor is the integration time penalty of an on/off observation
// pattern.
func (h *Heterodyne) onOffFactor() float64 {
	if h.p.NOn > 0 {
		return 1 + 1/math.Sqrt(h.p.NOn)
	}
	return 1
}

// NoiseTemperature evaluates the radiometer equation for the given
// integration time in seconds.
func (h *Heterodyne) NoiseTemperature(expTime float64) (float64, error) {
	if expTime <= 0 {
		return 0, configErrorf("Heterodyne", "integration time %g s not positive", expTime)
	}
	_, tSys, deltaNu, err := h.lineValues()
	if err != nil {
		return 0, err
	}
	return h.p.Kappa * tSys * math.Sqrt(h.onOffFactor()) / math.Sqrt(deltaNu*expTime), nil
}

// SNR is the ratio of the signal temperature to the radiometric noise
// temperature after the given integration time.
func (h *Heterodyne) SNR(expTime float64) (float64, error) {
	tSignal, _, _, err := h.lineValues()
	if err != nil {
		return 0, err
	}
	tRms, err := h.NoiseTemperature(expTime)
	if err != nil {
		return 0, err
	}
	return tSignal / tRms, nil
}

// ExposureTime inverts the radiometer equation for the given SNR target. The
// noise temperature falls with sqrt(t), so the inversion is closed form.
func (h *Heterodyne) ExposureTime(snr float64) (float64, error) {
	if snr <= 0 {
		return 0, configErrorf("Heterodyne", "SNR target %g not positive", snr)
	}
	tSignal, tSys, deltaNu, err := h.lineValues()
	if err != nil {
		return 0, err
	}
	if tSignal <= 0 {
		return 0, &NoSolutionError{What: "integration time", Detail: "no signal temperature at the line wavelength"}
	}
	tRms := tSignal / snr
	ratio := h.p.Kappa * tSys / tRms
	return ratio * ratio * h.onOffFactor() / deltaNu, nil
}

// Sensitivity finds the limiting apparent magnitude reaching the given SNR
// within the integration time. currentMag is the magnitude of the configured
// target.
func (h *Heterodyne) Sensitivity(expTime, snr, currentMag float64) (float64, error) {
	tSignal, _, _, err := h.lineValues()
	if err != nil {
		return 0, err
	}
	if tSignal <= 0 {
		return 0, &NoSolutionError{What: "sensitivity", Detail: "no signal temperature at the line wavelength"}
	}
	tRms, err := h.NoiseTemperature(expTime)
	if err != nil {
		return 0, err
	}
	return bisect(func(mag float64) float64 {
		return MagnitudeScale(mag-currentMag)*tSignal/tRms - snr
	}, currentMag-10, currentMag+40, "limiting magnitude")
}
