package etc

import "log/slog"

// baseTarget is the innermost chain node. It emits the target spectrum and a
// zero background.
type baseTarget struct {
	name   string
	flux   *SpectralQty
	extent SourceExtent
}

func (t *baseTarget) Signal() (Signal, error) {
	slog.Debug("calculating signal", "component", t.name, "extent", t.extent)
	return Signal{Flux: t.flux.Clone(), Extent: t.extent}, nil
}

func (t *baseTarget) Background() (*SpectralQty, error) {
	return ConstantSpectrum(t.flux.Wavelength, 0, Radiance)
}

// FileTarget models a source with a tabulated spectrum, resampled onto the
// configured wavelength grid.
type FileTarget struct {
	baseTarget
}

// NewFileTarget builds a target from a previously loaded spectrum. Point
// sources must carry a spectral flux density, extended sources a spectral
// radiance. Grid points outside the tabulated range are treated as zero flux.
func NewFileTarget(spectrum *SpectralQty, wlBins []float64, extent SourceExtent) (*FileTarget, error) {
	want := FluxDensity
	if extent == ExtendedSource {
		want = Radiance
	}
	if !spectrum.Unit.Equal(want) {
		return nil, configErrorf("FileTarget", "%s target needs unit %s, got %s", extent, want, spectrum.Unit)
	}
	flux, err := spectrum.Rebin(wlBins, ExtrapolateZero)
	if err != nil {
		return nil, err
	}
	return &FileTarget{baseTarget{name: "FileTarget", flux: flux, extent: extent}}, nil
}

// BlackBodyTarget models a star of given apparent magnitude as a black body,
// pinned to the zero point of a Johnson band.
type BlackBodyTarget struct {
	baseTarget
	Temp      float64
	Magnitude float64
	Band      string
}

// BlackBodyTargetParams configures a black body point source.
type BlackBodyTargetParams struct {
	Temp      float64 // K
	Magnitude float64 // apparent magnitude
	Band      string  // one of U B V R I J H K
}

// NewBlackBodyTargetParams returns defaults for a sun-like star of zeroth
// magnitude in the V band.
func NewBlackBodyTargetParams() BlackBodyTargetParams {
	return BlackBodyTargetParams{Temp: 5778, Magnitude: 0, Band: "V"}
}

// NewBlackBodyTarget fits the Planck curve of the given temperature to the
// band zero point and scales it to the requested magnitude.
func NewBlackBodyTarget(wlBins []float64, p BlackBodyTargetParams) (*BlackBodyTarget, error) {
	band, ok := photometricBands[p.Band]
	if !ok {
		return nil, configErrorf("BlackBodyTarget", "unknown photometric band %q", p.Band)
	}
	ref := PlanckRadiance(band.wl, p.Temp)
	if ref == 0 {
		return nil, configErrorf("BlackBodyTarget", "temperature %g K radiates nothing in band %s", p.Temp, p.Band)
	}
	factor := band.sfd / ref * MagnitudeScale(p.Magnitude)
	flux, err := SpectrumOf(wlBins, FluxDensity, func(wl float64) float64 {
		return PlanckRadiance(wl, p.Temp) * factor
	})
	if err != nil {
		return nil, err
	}
	return &BlackBodyTarget{
		baseTarget: baseTarget{name: "BlackBodyTarget", flux: flux, extent: PointSource},
		Temp:       p.Temp,
		Magnitude:  p.Magnitude,
		Band:       p.Band,
	}, nil
}

// WithMagnitude returns a copy of the target rescaled to another apparent
// magnitude. Used by the sensitivity root-find.
func (t *BlackBodyTarget) WithMagnitude(mag float64) *BlackBodyTarget {
	out := &BlackBodyTarget{
		baseTarget: baseTarget{
			name:   t.name,
			flux:   t.flux.Scale(MagnitudeScale(mag - t.Magnitude)),
			extent: t.extent,
		},
		Temp:      t.Temp,
		Magnitude: mag,
		Band:      t.Band,
	}
	return out
}
