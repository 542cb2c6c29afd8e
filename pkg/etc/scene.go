package etc

import "log/slog"

// Detector is the outermost chain node, evaluating the radiometric figures
// of merit. Prime forces the chain evaluation so later calls only read cached
// state.
type Detector interface {
	Prime() error
	SNR(expTime float64) (float64, error)
	ExposureTime(snr float64) (float64, error)
	Sensitivity(expTime, snr, currentMag float64) (float64, error)
}

// Prime evaluates the chain once.
func (d *Imager) Prime() error {
	_, err := d.exposePixels()
	return err
}

// Prime evaluates the chain once.
func (h *Heterodyne) Prime() error {
	_, _, err := h.Temperatures()
	return err
}

// CommonConf carries the instrument-wide parameters shared by all components
// of a scene.
type CommonConf struct {
	WlMin       float64 // m
	WlMax       float64 // m
	WlDelta     float64 // m, bin width
	DAperture   float64 // m
	JitterSigma float64 // rad
}

// WlBins builds the wavelength grid from the configured range and bin width.
func (c CommonConf) WlBins() []float64 {
	n := int((c.WlMax-c.WlMin)/c.WlDelta) + 1
	bins := make([]float64, 0, n)
	for wl := c.WlMin; wl <= c.WlMax+c.WlDelta/2; wl += c.WlDelta {
		bins = append(bins, wl)
	}
	return bins
}

func (c CommonConf) validate() error {
	if c.WlMin <= 0 || c.WlMax <= c.WlMin {
		return configErrorf("CommonConf", "wavelength range [%g, %g] m not valid", c.WlMin, c.WlMax)
	}
	if c.WlDelta <= 0 || c.WlDelta > c.WlMax-c.WlMin {
		return configErrorf("CommonConf", "bin width %g m not valid", c.WlDelta)
	}
	if c.DAperture <= 0 {
		return configErrorf("CommonConf", "aperture diameter %g m not positive", c.DAperture)
	}
	if c.JitterSigma < 0 {
		return configErrorf("CommonConf", "jitter sigma %g rad negative", c.JitterSigma)
	}
	return nil
}

// TargetSpec builds the innermost chain node on the instrument grid.
type TargetSpec interface {
	buildTarget(common CommonConf) (Radiant, error)
}

// ComponentSpec wraps a parent node with one optical component.
type ComponentSpec interface {
	buildComponent(parent Radiant, common CommonConf) (Radiant, error)
}

// DetectorSpec terminates the chain with a detector.
type DetectorSpec interface {
	buildDetector(parent Radiant, common CommonConf) (Detector, error)
}

// Scene is the validated in-memory description of one instrument setup. All
// values are in coherent SI units, conversion and file parsing happen in the
// caller before the scene reaches the core.
type Scene struct {
	Common     CommonConf
	Target     TargetSpec
	Components []ComponentSpec
	Detector   DetectorSpec
}

// Assemble builds the radiation transport chain from the scene description,
// innermost target first, and returns the terminating detector.
func (s *Scene) Assemble() (Detector, error) {
	_, det, err := s.AssembleChain()
	return det, err
}

// AssembleChain builds the chain like Assemble but also returns the last
// radiant node ahead of the detector, for spectral diagnostics.
func (s *Scene) AssembleChain() (Radiant, Detector, error) {
	if err := s.Common.validate(); err != nil {
		return nil, nil, err
	}
	if s.Target == nil {
		return nil, nil, configErrorf("Scene", "missing target")
	}
	if s.Detector == nil {
		return nil, nil, configErrorf("Scene", "missing detector")
	}
	node, err := s.Target.buildTarget(s.Common)
	if err != nil {
		return nil, nil, err
	}
	for i, spec := range s.Components {
		node, err = spec.buildComponent(node, s.Common)
		if err != nil {
			return nil, nil, configErrorf("Scene", "component %d: %v", i, err)
		}
	}
	slog.Debug("assembled radiation transport chain", "components", len(s.Components))
	det, err := s.Detector.buildDetector(node, s.Common)
	if err != nil {
		return nil, nil, err
	}
	return node, det, nil
}

// --- target specs ---

// BlackBodyTargetSpec describes a star modelled as a black body.
type BlackBodyTargetSpec struct {
	Params BlackBodyTargetParams
}

func (t BlackBodyTargetSpec) buildTarget(common CommonConf) (Radiant, error) {
	return NewBlackBodyTarget(common.WlBins(), t.Params)
}

// FileTargetSpec describes a target with a pre-loaded tabulated spectrum.
type FileTargetSpec struct {
	Spectrum *SpectralQty
	Extent   SourceExtent
}

func (t FileTargetSpec) buildTarget(common CommonConf) (Radiant, error) {
	if t.Spectrum == nil {
		return nil, configErrorf("FileTargetSpec", "missing spectrum")
	}
	return NewFileTarget(t.Spectrum, common.WlBins(), t.Extent)
}

// --- component specs ---

// MirrorSpec, LensSpec and BeamSplitterSpec describe surfaces with a
// tabulated or constant transreflectivity.
type MirrorSpec struct {
	Reflectance *SpectralQty
	Surface     SurfaceParams
	Obstruction ObstructionParams
}

func (c MirrorSpec) buildComponent(parent Radiant, common CommonConf) (Radiant, error) {
	return NewMirror(parent, c.Reflectance, c.Surface, c.Obstruction)
}

type LensSpec struct {
	Transmittance *SpectralQty
	Surface       SurfaceParams
	Obstruction   ObstructionParams
}

func (c LensSpec) buildComponent(parent Radiant, common CommonConf) (Radiant, error) {
	return NewLens(parent, c.Transmittance, c.Surface, c.Obstruction)
}

type BeamSplitterSpec struct {
	Transmittance *SpectralQty
	Surface       SurfaceParams
	Obstruction   ObstructionParams
}

func (c BeamSplitterSpec) buildComponent(parent Radiant, common CommonConf) (Radiant, error) {
	return NewBeamSplitter(parent, c.Transmittance, c.Surface, c.Obstruction)
}

// FilterSpec describes a bandpass, either tabulated, by photometric band or
// as an ideal pass band.
type FilterSpec struct {
	Transmittance *SpectralQty // tabulated, takes precedence
	Band          string       // photometric band name
	Start         float64      // m, ideal pass band
	End           float64      // m
	Surface       SurfaceParams
	Obstruction   ObstructionParams
}

func (c FilterSpec) buildComponent(parent Radiant, common CommonConf) (Radiant, error) {
	switch {
	case c.Transmittance != nil:
		return NewFilterFromSpectrum(parent, c.Transmittance, c.Surface, c.Obstruction)
	case c.Band != "":
		return NewFilterFromBand(parent, c.Band, common.WlBins(), c.Surface, c.Obstruction)
	case c.Start > 0 && c.End > 0:
		return NewFilterFromRange(parent, c.Start, c.End, common.WlBins(), c.Surface, c.Obstruction)
	default:
		return nil, configErrorf("FilterSpec", "needs a transmittance, a band or a pass band range")
	}
}

// AtmosphereSpec describes atmospheric transmission with either a tabulated
// emission or a grey body temperature.
type AtmosphereSpec struct {
	Transmittance *SpectralQty
	Emission      *SpectralQty
	Temp          float64 // K, used when Emission is nil
}

func (c AtmosphereSpec) buildComponent(parent Radiant, common CommonConf) (Radiant, error) {
	if c.Emission != nil {
		return NewAtmosphere(parent, c.Transmittance, c.Emission)
	}
	return NewAtmosphereWithTemp(parent, c.Transmittance, c.Temp)
}

// StrayLightSpec describes additive parasitic radiance.
type StrayLightSpec struct {
	Emission *SpectralQty
}

func (c StrayLightSpec) buildComponent(parent Radiant, common CommonConf) (Radiant, error) {
	return NewStrayLight(parent, c.Emission)
}

// CosmicBackgroundSpec describes the diffuse sky emission.
type CosmicBackgroundSpec struct {
	Temp       float64 // K
	Emissivity float64
}

func (c CosmicBackgroundSpec) buildComponent(parent Radiant, common CommonConf) (Radiant, error) {
	return NewCosmicBackground(parent, c.Temp, c.Emissivity)
}

// --- detector specs ---

// ImagerSpec terminates the chain with an imaging detector. The common
// instrument parameters fill the wavelength range, aperture and jitter.
type ImagerSpec struct {
	Params ImagerParams
}

func (s ImagerSpec) buildDetector(parent Radiant, common CommonConf) (Detector, error) {
	p := s.Params
	p.WlMin = common.WlMin
	p.WlMax = common.WlMax
	p.DAperture = common.DAperture
	p.JitterSigma = common.JitterSigma
	return NewImager(parent, p)
}

// HeterodyneSpec terminates the chain with a heterodyne receiver.
type HeterodyneSpec struct {
	Params HeterodyneParams
}

func (s HeterodyneSpec) buildDetector(parent Radiant, common CommonConf) (Detector, error) {
	p := s.Params
	p.DAperture = common.DAperture
	if p.WlDelta == 0 {
		p.WlDelta = common.WlDelta
	}
	return NewHeterodyne(parent, p)
}
