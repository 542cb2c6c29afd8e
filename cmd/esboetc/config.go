package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"esboetc/pkg/etc"
	"esboetc/pkg/specio"
)

const (
	nanometer  = 1e-9
	micrometer = 1e-6
	arcsecond  = math.Pi / (180 * 3600)
)

// sceneConfig is the on-disk scene description. Wavelengths are given in
// nanometers, pixel sizes in microns and the jitter in arcseconds; loadScene
// converts everything to SI before handing the scene to pkg/etc.
type sceneConfig struct {
	Common     commonConfig      `json:"common"`
	Target     targetConfig      `json:"target"`
	Components []componentConfig `json:"components"`
	Detector   detectorConfig    `json:"detector"`
}

type commonConfig struct {
	WlMinNm         float64 `json:"wl_min_nm"`
	WlMaxNm         float64 `json:"wl_max_nm"`
	WlDeltaNm       float64 `json:"wl_delta_nm"`
	ResolvingPower  float64 `json:"res"` // alternative to wl_delta_nm
	DApertureM      float64 `json:"d_aperture_m"`
	PSFJitterArcsec float64 `json:"psf_jitter_arcsec"`
}

type targetConfig struct {
	Type      string  `json:"type"` // blackbody | file
	TempK     float64 `json:"temp_k"`
	Magnitude float64 `json:"mag"`
	Band      string  `json:"band"`
	File      string  `json:"file"`
	Extent    string  `json:"extent"` // point | extended
}

type componentConfig struct {
	Type string `json:"type"` // mirror | lens | beam_splitter | filter | atmosphere | stray_light | cosmic_background

	Reflectance       float64 `json:"reflectance"`
	ReflectanceFile   string  `json:"reflectance_file"`
	Transmittance     float64 `json:"transmittance"`
	TransmittanceFile string  `json:"transmittance_file"`

	Band    string  `json:"band"`
	StartNm float64 `json:"start_nm"`
	EndNm   float64 `json:"end_nm"`

	EmissionFile string `json:"emission_file"`

	TempK          float64 `json:"temp_k"`
	Emissivity     float64 `json:"emissivity"`
	EmissivityFile string  `json:"emissivity_file"`

	Obstruction          float64 `json:"obstruction"`
	ObstructorTempK      float64 `json:"obstructor_temp_k"`
	ObstructorEmissivity float64 `json:"obstructor_emissivity"`
}

type detectorConfig struct {
	Type string `json:"type"` // imager | heterodyne

	// imager
	QE              float64 `json:"qe"`
	QEFile          string  `json:"qe_file"`
	PixelsX         int     `json:"pixels_x"`
	PixelsY         int     `json:"pixels_y"`
	PixelSizeUm     float64 `json:"pixel_size_um"`
	ReadNoise       float64 `json:"read_noise"`
	DarkCurrent     float64 `json:"dark_current"`
	WellCapacity    float64 `json:"well_capacity"`
	FNumber         float64 `json:"f_number"`
	CenterOffsetX   float64 `json:"center_offset_x_px"`
	CenterOffsetY   float64 `json:"center_offset_y_px"`
	Shape           string  `json:"shape"`            // circle | square
	ContainedEnergy string  `json:"contained_energy"` // peak | fwhm | min | percentage
	ContainedPixels int     `json:"contained_pixels"`
	OSF             int     `json:"osf"`
	PSFFile         string  `json:"psf_file"` // FITS grid, empty for an Airy disk

	// heterodyne
	ApertureEfficiency float64 `json:"aperture_efficiency"`
	MainBeamEfficiency float64 `json:"main_beam_efficiency"`
	ReceiverTempK      float64 `json:"receiver_temp_k"`
	EtaFss             float64 `json:"eta_fss"`
	LambdaLineNm       float64 `json:"lambda_line_nm"`
	Kappa              float64 `json:"kappa"`
	NOn                float64 `json:"n_on"`
}

// loadScene reads a scene description from a JSON file, resolves referenced
// spectrum and PSF files relative to it and builds the SI scene.
func loadScene(path string) (*etc.Scene, *sceneConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading scene file: %w", err)
	}
	var cfg sceneConfig
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, nil, fmt.Errorf("parsing scene file %s: %w", path, err)
	}

	baseDir := filepath.Dir(path)
	scene, err := buildScene(&cfg, baseDir)
	if err != nil {
		return nil, nil, err
	}
	return scene, &cfg, nil
}

func buildScene(cfg *sceneConfig, baseDir string) (*etc.Scene, error) {
	common, err := buildCommon(cfg.Common)
	if err != nil {
		return nil, err
	}

	target, err := buildTarget(cfg.Target, baseDir)
	if err != nil {
		return nil, err
	}

	components := make([]etc.ComponentSpec, 0, len(cfg.Components))
	for i, cc := range cfg.Components {
		spec, err := buildComponent(cc, common, baseDir)
		if err != nil {
			return nil, fmt.Errorf("component %d (%s): %w", i, cc.Type, err)
		}
		components = append(components, spec)
	}

	detector, err := buildDetector(cfg.Detector, common, baseDir)
	if err != nil {
		return nil, err
	}

	return &etc.Scene{
		Common:     common,
		Target:     target,
		Components: components,
		Detector:   detector,
	}, nil
}

func buildCommon(cc commonConfig) (etc.CommonConf, error) {
	common := etc.CommonConf{
		WlMin:       cc.WlMinNm * nanometer,
		WlMax:       cc.WlMaxNm * nanometer,
		WlDelta:     cc.WlDeltaNm * nanometer,
		DAperture:   cc.DApertureM,
		JitterSigma: cc.PSFJitterArcsec * arcsecond,
	}
	if common.WlDelta == 0 && cc.ResolvingPower > 0 {
		center := (common.WlMin + common.WlMax) / 2
		common.WlDelta = center / cc.ResolvingPower
	}
	if common.WlMin <= 0 || common.WlMax <= common.WlMin || common.WlDelta <= 0 {
		return common, fmt.Errorf("common: wavelength range needs wl_min_nm, wl_max_nm and wl_delta_nm or res")
	}
	return common, nil
}

func buildTarget(tc targetConfig, baseDir string) (etc.TargetSpec, error) {
	switch tc.Type {
	case "blackbody", "":
		p := etc.NewBlackBodyTargetParams()
		if tc.TempK > 0 {
			p.Temp = tc.TempK
		}
		p.Magnitude = tc.Magnitude
		if tc.Band != "" {
			p.Band = tc.Band
		}
		return etc.BlackBodyTargetSpec{Params: p}, nil

	case "file":
		if tc.File == "" {
			return nil, fmt.Errorf("target: file target needs a file")
		}
		extent := etc.PointSource
		opts := specio.FluxOptions()
		if tc.Extent == "extended" {
			extent = etc.ExtendedSource
			opts = specio.RadianceOptions()
		}
		spectrum, err := specio.ReadSpectrum(filepath.Join(baseDir, tc.File), opts)
		if err != nil {
			return nil, fmt.Errorf("target: %w", err)
		}
		return etc.FileTargetSpec{Spectrum: spectrum, Extent: extent}, nil

	default:
		return nil, fmt.Errorf("target: unknown type %q", tc.Type)
	}
}

func buildComponent(cc componentConfig, common etc.CommonConf, baseDir string) (etc.ComponentSpec, error) {
	surface, err := buildSurface(cc, common, baseDir)
	if err != nil {
		return nil, err
	}
	obstruction := buildObstruction(cc)

	switch cc.Type {
	case "mirror":
		refl, err := loadCurve(cc.ReflectanceFile, cc.Reflectance, common, baseDir)
		if err != nil {
			return nil, err
		}
		return etc.MirrorSpec{Reflectance: refl, Surface: surface, Obstruction: obstruction}, nil

	case "lens":
		trans, err := loadCurve(cc.TransmittanceFile, cc.Transmittance, common, baseDir)
		if err != nil {
			return nil, err
		}
		return etc.LensSpec{Transmittance: trans, Surface: surface, Obstruction: obstruction}, nil

	case "beam_splitter":
		trans, err := loadCurve(cc.TransmittanceFile, cc.Transmittance, common, baseDir)
		if err != nil {
			return nil, err
		}
		return etc.BeamSplitterSpec{Transmittance: trans, Surface: surface, Obstruction: obstruction}, nil

	case "filter":
		spec := etc.FilterSpec{
			Band:        cc.Band,
			Start:       cc.StartNm * nanometer,
			End:         cc.EndNm * nanometer,
			Surface:     surface,
			Obstruction: obstruction,
		}
		if cc.TransmittanceFile != "" {
			trans, err := specio.ReadSpectrum(filepath.Join(baseDir, cc.TransmittanceFile), specio.TransmittanceOptions())
			if err != nil {
				return nil, err
			}
			spec.Transmittance = trans
		}
		return spec, nil

	case "atmosphere":
		trans, err := loadCurve(cc.TransmittanceFile, cc.Transmittance, common, baseDir)
		if err != nil {
			return nil, err
		}
		spec := etc.AtmosphereSpec{Transmittance: trans, Temp: cc.TempK}
		if cc.EmissionFile != "" {
			emission, err := specio.ReadSpectrum(filepath.Join(baseDir, cc.EmissionFile), specio.RadianceOptions())
			if err != nil {
				return nil, err
			}
			spec.Emission = emission
		}
		return spec, nil

	case "stray_light":
		if cc.EmissionFile == "" {
			return nil, fmt.Errorf("stray light needs an emission_file")
		}
		emission, err := specio.ReadSpectrum(filepath.Join(baseDir, cc.EmissionFile), specio.RadianceOptions())
		if err != nil {
			return nil, err
		}
		return etc.StrayLightSpec{Emission: emission}, nil

	case "cosmic_background":
		emissivity := cc.Emissivity
		if emissivity == 0 {
			emissivity = 1
		}
		return etc.CosmicBackgroundSpec{Temp: cc.TempK, Emissivity: emissivity}, nil

	default:
		return nil, fmt.Errorf("unknown component type %q", cc.Type)
	}
}

// loadCurve builds a transreflectivity curve from a file or a constant value.
func loadCurve(file string, constant float64, common etc.CommonConf, baseDir string) (*etc.SpectralQty, error) {
	if file != "" {
		return specio.ReadSpectrum(filepath.Join(baseDir, file), specio.TransmittanceOptions())
	}
	if constant <= 0 || constant > 1 {
		return nil, fmt.Errorf("transreflectivity %g outside (0, 1]", constant)
	}
	return etc.ConstantSpectrum(common.WlBins(), constant, etc.Dimensionless)
}

func buildSurface(cc componentConfig, common etc.CommonConf, baseDir string) (etc.SurfaceParams, error) {
	surface := etc.NewSurfaceParams()
	if cc.Type == "atmosphere" || cc.Type == "cosmic_background" {
		// Their temperature configures the grey body emission instead.
		return surface, nil
	}
	surface.Temp = cc.TempK
	switch {
	case cc.EmissivityFile != "":
		emissivity, err := specio.ReadSpectrum(filepath.Join(baseDir, cc.EmissivityFile), specio.TransmittanceOptions())
		if err != nil {
			return surface, err
		}
		surface.Emissivity = emissivity
	case cc.Emissivity > 0:
		emissivity, err := etc.ConstantSpectrum(common.WlBins(), cc.Emissivity, etc.Dimensionless)
		if err != nil {
			return surface, err
		}
		surface.Emissivity = emissivity
	}
	return surface, nil
}

func buildObstruction(cc componentConfig) etc.ObstructionParams {
	obs := etc.NewObstructionParams()
	obs.Factor = cc.Obstruction
	obs.Temp = cc.ObstructorTempK
	if cc.ObstructorEmissivity > 0 {
		obs.Emissivity = cc.ObstructorEmissivity
	}
	return obs
}

func buildDetector(dc detectorConfig, common etc.CommonConf, baseDir string) (etc.DetectorSpec, error) {
	switch dc.Type {
	case "imager", "":
		return buildImager(dc, common, baseDir)
	case "heterodyne":
		return buildHeterodyne(dc)
	default:
		return nil, fmt.Errorf("detector: unknown type %q", dc.Type)
	}
}

func buildImager(dc detectorConfig, common etc.CommonConf, baseDir string) (etc.DetectorSpec, error) {
	p := etc.NewImagerParams()
	p.PixelsX = dc.PixelsX
	p.PixelsY = dc.PixelsY
	p.PixelSize = dc.PixelSizeUm * micrometer
	p.ReadNoise = dc.ReadNoise
	p.DarkCurrent = dc.DarkCurrent
	p.WellCapacity = dc.WellCapacity
	p.FNumber = dc.FNumber
	p.CenterOffsetX = dc.CenterOffsetX
	p.CenterOffsetY = dc.CenterOffsetY
	p.ContainedPixels = dc.ContainedPixels
	if dc.OSF > 0 {
		p.OSF = dc.OSF
	}

	switch dc.Shape {
	case "", "circle":
		p.Shape = etc.ApertureCircle
	case "square":
		p.Shape = etc.ApertureSquare
	default:
		return nil, fmt.Errorf("detector: unknown aperture shape %q", dc.Shape)
	}

	if dc.ContainedEnergy != "" {
		contained, err := parseContainedEnergy(dc.ContainedEnergy)
		if err != nil {
			return nil, err
		}
		p.ContainedEnergy = contained
	}

	if dc.QEFile != "" {
		qe, err := specio.ReadSpectrum(filepath.Join(baseDir, dc.QEFile), specio.SpectrumOptions{
			WlScale: nanometer,
			Unit:    etc.ElectronPerPhoton,
		})
		if err != nil {
			return nil, fmt.Errorf("detector: %w", err)
		}
		p.QuantumEfficiency = qe
	} else {
		qeValue := dc.QE
		if qeValue == 0 {
			qeValue = 1
		}
		qe, err := etc.ConstantSpectrum(common.WlBins(), qeValue, etc.ElectronPerPhoton)
		if err != nil {
			return nil, err
		}
		p.QuantumEfficiency = qe
	}

	if dc.PSFFile != "" {
		centralWl := (common.WlMin + common.WlMax) / 2
		psf, err := specio.LoadGriddedPSF(filepath.Join(baseDir, dc.PSFFile),
			p.FNumber, centralWl, common.DAperture, p.PixelSize, p.OSF)
		if err != nil {
			return nil, fmt.Errorf("detector: %w", err)
		}
		p.PSF = psf
	}

	return etc.ImagerSpec{Params: p}, nil
}

func buildHeterodyne(dc detectorConfig) (etc.DetectorSpec, error) {
	p := etc.NewHeterodyneParams()
	if dc.ApertureEfficiency > 0 {
		p.ApertureEfficiency = dc.ApertureEfficiency
	}
	if dc.MainBeamEfficiency > 0 {
		p.MainBeamEfficiency = dc.MainBeamEfficiency
	}
	if dc.EtaFss > 0 {
		p.EtaFss = dc.EtaFss
	}
	if dc.Kappa > 0 {
		p.Kappa = dc.Kappa
	}
	p.ReceiverTemp = dc.ReceiverTempK
	p.LambdaLine = dc.LambdaLineNm * nanometer
	p.NOn = dc.NOn
	return etc.HeterodyneSpec{Params: p}, nil
}

func parseContainedEnergy(s string) (etc.EncircledEnergy, error) {
	switch strings.ToLower(s) {
	case "peak":
		return etc.EncircledPeak, nil
	case "fwhm":
		return etc.EncircledFWHM, nil
	case "min":
		return etc.EncircledMin, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return etc.EncircledEnergy{}, fmt.Errorf("detector: contained_energy %q is neither a preset nor a number", s)
	}
	if v > 1 {
		v /= 100
	}
	return etc.EncircledEnergy{Preset: etc.EnergyFraction, Fraction: v}, nil
}
