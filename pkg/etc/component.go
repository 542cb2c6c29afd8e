package etc

import "log/slog"

// OpticalComponent implements the shared radiation transport of every optical
// element. The incoming signal is attenuated by the transreflectivity and the
// obstruction, the incoming background additionally mixes in the grey body of
// the obstructing structure and the component's own thermal emission.
type OpticalComponent struct {
	name                 string
	parent               Radiant
	transreflectivity    *SpectralQty // dimensionless, nil passes radiation unchanged
	emission             func(grid []float64) (*SpectralQty, error)
	obstruction          float64
	obstructorTemp       float64
	obstructorEmissivity float64
}

// ObstructionParams describes a partial beam blockage by some structure in
// front of the component, with the thermal properties of the obstructor.
type ObstructionParams struct {
	Factor     float64 // blocked beam fraction in [0, 1]
	Temp       float64 // K, 0 disables the obstructor's grey body
	Emissivity float64
}

// NewObstructionParams returns an unobstructed default.
func NewObstructionParams() ObstructionParams {
	return ObstructionParams{Factor: 0, Temp: 0, Emissivity: 1}
}

func (p ObstructionParams) validate(name string) error {
	if p.Factor < 0 || p.Factor > 1 {
		return configErrorf(name, "obstruction factor %g outside [0, 1]", p.Factor)
	}
	if p.Temp < 0 {
		return configErrorf(name, "obstructor temperature %g K negative", p.Temp)
	}
	return nil
}

func newOpticalComponent(name string, parent Radiant, transreflectivity *SpectralQty,
	emission func(grid []float64) (*SpectralQty, error), obs ObstructionParams) (*OpticalComponent, error) {
	if parent == nil {
		return nil, configErrorf(name, "missing parent node")
	}
	if err := obs.validate(name); err != nil {
		return nil, err
	}
	if transreflectivity != nil && !transreflectivity.Unit.Equal(Dimensionless) {
		return nil, configErrorf(name, "transreflectivity must be dimensionless, got %s", transreflectivity.Unit)
	}
	return &OpticalComponent{
		name:                 name,
		parent:               parent,
		transreflectivity:    transreflectivity,
		emission:             emission,
		obstruction:          obs.Factor,
		obstructorTemp:       obs.Temp,
		obstructorEmissivity: obs.Emissivity,
	}, nil
}

func (c *OpticalComponent) propagate(rad *SpectralQty) (*SpectralQty, error) {
	if c.transreflectivity == nil {
		return rad, nil
	}
	return rad.Mul(c.transreflectivity)
}

func (c *OpticalComponent) Signal() (Signal, error) {
	in, err := c.parent.Signal()
	if err != nil {
		return Signal{}, err
	}
	slog.Debug("calculating signal", "component", c.name)
	flux, err := c.propagate(in.Flux)
	if err != nil {
		return Signal{}, err
	}
	return Signal{
		Flux:        flux.Scale(1 - c.obstruction),
		Extent:      in.Extent,
		Obstruction: 1 - (1-in.Obstruction)*(1-c.obstruction),
	}, nil
}

func (c *OpticalComponent) Background() (*SpectralQty, error) {
	in, err := c.parent.Background()
	if err != nil {
		return nil, err
	}
	slog.Debug("calculating background", "component", c.name)
	bg := in.Scale(1 - c.obstruction)
	if c.obstructorTemp > 0 {
		grey, err := SpectrumOf(bg.Wavelength, Radiance, func(wl float64) float64 {
			return c.obstructorEmissivity * PlanckRadiance(wl, c.obstructorTemp)
		})
		if err != nil {
			return nil, err
		}
		bg, err = bg.Add(grey.Scale(c.obstruction))
		if err != nil {
			return nil, err
		}
	}
	bg, err = c.propagate(bg)
	if err != nil {
		return nil, err
	}
	if c.emission == nil {
		return bg, nil
	}
	own, err := c.emission(bg.Wavelength)
	if err != nil {
		return nil, err
	}
	return bg.Add(own)
}

// SurfaceParams describes the thermal state of an emitting optical surface.
// A nil Emissivity falls back to 1 - transreflectivity.
type SurfaceParams struct {
	Temp       float64      // K, 0 disables thermal emission
	Emissivity *SpectralQty // dimensionless, optional
}

// NewSurfaceParams returns a cold, non-emitting surface.
func NewSurfaceParams() SurfaceParams { return SurfaceParams{} }

// greyBodyEmission builds the thermal emission of a surface at the given
// temperature. The emissivity defaults to the absorbed fraction of the
// surface.
func greyBodyEmission(surface SurfaceParams, transreflectivity *SpectralQty) func([]float64) (*SpectralQty, error) {
	if surface.Temp <= 0 {
		return nil
	}
	return func(grid []float64) (*SpectralQty, error) {
		return SpectrumOf(grid, Radiance, func(wl float64) float64 {
			eps := 1.0
			switch {
			case surface.Emissivity != nil:
				eps = surface.Emissivity.interp(wl)
			case transreflectivity != nil:
				eps = 1 - transreflectivity.interp(wl)
			}
			return eps * PlanckRadiance(wl, surface.Temp)
		})
	}
}

// Mirror models a reflecting surface with thermal self-emission.
type Mirror struct{ OpticalComponent }

// NewMirror builds a mirror from its spectral reflectance.
func NewMirror(parent Radiant, reflectance *SpectralQty, surface SurfaceParams, obs ObstructionParams) (*Mirror, error) {
	c, err := newOpticalComponent("Mirror", parent, reflectance, greyBodyEmission(surface, reflectance), obs)
	if err != nil {
		return nil, err
	}
	return &Mirror{*c}, nil
}

// Lens models a transmitting element with thermal self-emission.
type Lens struct{ OpticalComponent }

// NewLens builds a lens from its spectral transmittance.
func NewLens(parent Radiant, transmittance *SpectralQty, surface SurfaceParams, obs ObstructionParams) (*Lens, error) {
	c, err := newOpticalComponent("Lens", parent, transmittance, greyBodyEmission(surface, transmittance), obs)
	if err != nil {
		return nil, err
	}
	return &Lens{*c}, nil
}

// BeamSplitter models a partially transmitting splitter surface.
type BeamSplitter struct{ OpticalComponent }

// NewBeamSplitter builds a beam splitter from the transmittance of the used
// output port.
func NewBeamSplitter(parent Radiant, transmittance *SpectralQty, surface SurfaceParams, obs ObstructionParams) (*BeamSplitter, error) {
	c, err := newOpticalComponent("BeamSplitter", parent, transmittance, greyBodyEmission(surface, transmittance), obs)
	if err != nil {
		return nil, err
	}
	return &BeamSplitter{*c}, nil
}

// filterBand holds the central wavelength and bandwidth of a photometric
// passband, from the Handbook of Space Astronomy and Astrophysics.
type filterBand struct {
	cwl float64 // m
	bw  float64 // m
}

var filterBands = map[string]filterBand{
	"U": {cwl: 365 * Nanometer, bw: 68 * Nanometer},
	"B": {cwl: 440 * Nanometer, bw: 98 * Nanometer},
	"V": {cwl: 550 * Nanometer, bw: 89 * Nanometer},
	"R": {cwl: 700 * Nanometer, bw: 220 * Nanometer},
	"I": {cwl: 900 * Nanometer, bw: 240 * Nanometer},
	"J": {cwl: 1250 * Nanometer, bw: 300 * Nanometer},
	"H": {cwl: 1650 * Nanometer, bw: 400 * Nanometer},
	"K": {cwl: 2200 * Nanometer, bw: 600 * Nanometer},
	"L": {cwl: 3600 * Nanometer, bw: 1200 * Nanometer},
	"M": {cwl: 4800 * Nanometer, bw: 800 * Nanometer},
	"N": {cwl: 10200 * Nanometer, bw: 2500 * Nanometer},
}

// Filter models a bandpass element with thermal self-emission.
type Filter struct{ OpticalComponent }

// NewFilterFromSpectrum builds a filter from a tabulated transmittance.
func NewFilterFromSpectrum(parent Radiant, transmittance *SpectralQty, surface SurfaceParams, obs ObstructionParams) (*Filter, error) {
	c, err := newOpticalComponent("Filter", parent, transmittance, greyBodyEmission(surface, transmittance), obs)
	if err != nil {
		return nil, err
	}
	return &Filter{*c}, nil
}

// NewFilterFromRange builds an ideal hat-shaped bandpass over [start, end].
func NewFilterFromRange(parent Radiant, start, end float64, wlBins []float64, surface SurfaceParams, obs ObstructionParams) (*Filter, error) {
	if start >= end {
		return nil, configErrorf("Filter", "pass band start %g m not below end %g m", start, end)
	}
	transmittance, err := SpectrumOf(wlBins, Dimensionless, func(wl float64) float64 {
		if wl >= start && wl <= end {
			return 1
		}
		return 0
	})
	if err != nil {
		return nil, err
	}
	return NewFilterFromSpectrum(parent, transmittance, surface, obs)
}

// NewFilterFromBand builds an ideal bandpass matching a photometric band.
func NewFilterFromBand(parent Radiant, band string, wlBins []float64, surface SurfaceParams, obs ObstructionParams) (*Filter, error) {
	b, ok := filterBands[band]
	if !ok {
		return nil, configErrorf("Filter", "unknown photometric band %q", band)
	}
	return NewFilterFromRange(parent, b.cwl-b.bw/2, b.cwl+b.bw/2, wlBins, surface, obs)
}

// Atmosphere models atmospheric transmission and emission.
type Atmosphere struct{ OpticalComponent }

// NewAtmosphere builds the atmosphere from a tabulated transmittance and an
// optional tabulated emission radiance.
func NewAtmosphere(parent Radiant, transmittance, emission *SpectralQty) (*Atmosphere, error) {
	var own func([]float64) (*SpectralQty, error)
	if emission != nil {
		if !emission.Unit.Equal(Radiance) {
			return nil, configErrorf("Atmosphere", "emission must be a spectral radiance, got %s", emission.Unit)
		}
		own = func(grid []float64) (*SpectralQty, error) {
			return emission.Rebin(grid, ExtrapolateZero)
		}
	}
	c, err := newOpticalComponent("Atmosphere", parent, transmittance, own, NewObstructionParams())
	if err != nil {
		return nil, err
	}
	return &Atmosphere{*c}, nil
}

// NewAtmosphereWithTemp builds the atmosphere from a tabulated transmittance
// and a grey body at the given temperature, with emissivity 1 - transmittance.
func NewAtmosphereWithTemp(parent Radiant, transmittance *SpectralQty, temp float64) (*Atmosphere, error) {
	c, err := newOpticalComponent("Atmosphere", parent, transmittance,
		greyBodyEmission(SurfaceParams{Temp: temp}, transmittance), NewObstructionParams())
	if err != nil {
		return nil, err
	}
	return &Atmosphere{*c}, nil
}

// StrayLight models additive parasitic radiance without attenuating the beam.
type StrayLight struct{ OpticalComponent }

func NewStrayLight(parent Radiant, emission *SpectralQty) (*StrayLight, error) {
	if emission == nil || !emission.Unit.Equal(Radiance) {
		return nil, configErrorf("StrayLight", "emission must be a spectral radiance")
	}
	own := func(grid []float64) (*SpectralQty, error) {
		return emission.Rebin(grid, ExtrapolateZero)
	}
	c, err := newOpticalComponent("StrayLight", parent, nil, own, NewObstructionParams())
	if err != nil {
		return nil, err
	}
	return &StrayLight{*c}, nil
}

// CosmicBackground adds the diffuse sky as a grey body of the given
// temperature.
type CosmicBackground struct{ OpticalComponent }

func NewCosmicBackground(parent Radiant, temp, emissivity float64) (*CosmicBackground, error) {
	if temp < 0 {
		return nil, configErrorf("CosmicBackground", "temperature %g K negative", temp)
	}
	own := func(grid []float64) (*SpectralQty, error) {
		return SpectrumOf(grid, Radiance, func(wl float64) float64 {
			return emissivity * PlanckRadiance(wl, temp)
		})
	}
	c, err := newOpticalComponent("CosmicBackground", parent, nil, own, NewObstructionParams())
	if err != nil {
		return nil, err
	}
	return &CosmicBackground{*c}, nil
}
