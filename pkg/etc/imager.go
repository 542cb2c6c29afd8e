package etc

import (
	"log/slog"
	"math"
)

// ImagerParams configures an imaging detector.
type ImagerParams struct {
	QuantumEfficiency *SpectralQty // electron / photon
	PixelsX           int
	PixelsY           int
	PixelSize         float64 // m
	ReadNoise         float64 // electron^0.5 / pixel
	DarkCurrent       float64 // electron / pixel / s
	WellCapacity      float64 // electron / pixel, 0 disables the saturation check
	FNumber           float64
	DAperture         float64 // m
	WlMin             float64 // m
	WlMax             float64 // m
	CenterOffsetX     float64 // pixel
	CenterOffsetY     float64 // pixel
	Shape             ApertureShape
	ContainedEnergy   EncircledEnergy
	ContainedPixels   int     // explicit aperture pixel count, 0 derives from ContainedEnergy
	JitterSigma       float64 // rad
	OSF               int
	PSF               PSF // nil uses an Airy disk at the central wavelength
}

// NewImagerParams returns defaults with an FWHM-sized circular aperture and
// tenfold PSF oversampling.
func NewImagerParams() ImagerParams {
	return ImagerParams{
		Shape:           ApertureCircle,
		ContainedEnergy: EncircledFWHM,
		OSF:             10,
	}
}

// Imager models a CCD or CMOS sensor at the end of the optical chain and
// derives SNR, exposure time and sensitivity from the CCD equation.
type Imager struct {
	parent    Radiant
	p         ImagerParams
	psf       PSF
	centralWl float64

	exposed *exposure
}

// exposure holds the electron currents of one pixel exposure pass. All
// currents are in electrons per second, the read noise contribution is a
// fixed variance in electrons.
type exposure struct {
	signalMap      Mat     // per-pixel signal current
	signalTotal    float64 // aperture total
	backgroundPix  float64 // per aperture pixel
	darkPix        float64 // per aperture pixel
	aperturePixels int
	readNoiseVar   float64 // total over the aperture
	peakPix        float64 // largest per-pixel total current
	apertureRadius float64 // pixels
	apertureRow    float64 // aperture center in frame coordinates
	apertureCol    float64
}

func NewImager(parent Radiant, p ImagerParams) (*Imager, error) {
	if parent == nil {
		return nil, configErrorf("Imager", "missing parent node")
	}
	if p.PixelsX < 1 || p.PixelsY < 1 {
		return nil, configErrorf("Imager", "pixel array %dx%d not positive", p.PixelsX, p.PixelsY)
	}
	if p.PixelSize <= 0 || p.FNumber <= 0 || p.DAperture <= 0 {
		return nil, configErrorf("Imager", "geometry parameters must be positive")
	}
	if p.WlMin <= 0 || p.WlMax <= p.WlMin {
		return nil, configErrorf("Imager", "wavelength range [%g, %g] m not valid", p.WlMin, p.WlMax)
	}
	if p.QuantumEfficiency == nil || !p.QuantumEfficiency.Unit.Equal(ElectronPerPhoton) {
		return nil, configErrorf("Imager", "quantum efficiency must be given in electron / photon")
	}
	if p.ReadNoise < 0 || p.DarkCurrent < 0 || p.WellCapacity < 0 {
		return nil, configErrorf("Imager", "noise parameters must not be negative")
	}
	if err := p.ContainedEnergy.validate(); err != nil {
		return nil, err
	}
	centralWl := p.WlMin + (p.WlMax-p.WlMin)/2
	psf := p.PSF
	if psf == nil {
		var err error
		psf, err = NewAiryPSF(p.FNumber, centralWl, p.DAperture, p.PixelSize, p.OSF)
		if err != nil {
			return nil, err
		}
	}
	return &Imager{parent: parent, p: p, psf: psf, centralWl: centralWl}, nil
}

// electronCurrents converts the chain output to electron currents. The
// background couples through the solid angle seen by a pixel, the signal
// through the telescope aperture.
func (d *Imager) electronCurrents() (signalCurrent float64, extent SourceExtent, obstruction float64, backgroundPix float64, err error) {
	background, err := d.parent.Background()
	if err != nil {
		return 0, 0, 0, 0, err
	}
	sig, err := d.parent.Signal()
	if err != nil {
		return 0, 0, 0, 0, err
	}
	// Solid angle subtended by a pixel times its area.
	pixelEtendue := math.Pi * d.p.PixelSize * d.p.PixelSize / (4*d.p.FNumber*d.p.FNumber + 1)
	backgroundPix, err = d.integrateElectrons(background.MulQuantity(Quantity{Value: pixelEtendue, Unit: Meter.Mul(Meter).Mul(Steradian)}))
	if err != nil {
		return 0, 0, 0, 0, err
	}
	aperture := math.Pi * d.p.DAperture * d.p.DAperture
	signalCurrent, err = d.integrateElectrons(sig.Flux.MulQuantity(Quantity{Value: aperture, Unit: Meter.Mul(Meter)}))
	if err != nil {
		return 0, 0, 0, 0, err
	}
	return signalCurrent, sig.Extent, sig.Obstruction, backgroundPix, nil
}

// integrateElectrons divides a spectral power by the photon energy, weights
// by the quantum efficiency and integrates over the configured range.
func (d *Imager) integrateElectrons(power *SpectralQty) (float64, error) {
	photons := power.Apply(power.Unit.Div(JoulePerPhoton), func(wl, v float64) float64 {
		return v / PhotonEnergy(wl)
	})
	weighted, err := photons.Mul(d.p.QuantumEfficiency)
	if err != nil {
		return 0, err
	}
	grid := restrict(weighted.Wavelength, d.p.WlMin, d.p.WlMax)
	if len(grid) == 0 {
		return 0, &DomainError{Min: d.p.WlMin, Max: d.p.WlMax,
			SrcMin: weighted.MinWavelength(), SrcMax: weighted.MaxWavelength()}
	}
	clipped, err := weighted.Rebin(grid, ExtrapolateNone)
	if err != nil {
		return 0, err
	}
	return clipped.Integrate().Value, nil
}

// exposePixels builds the photometric aperture and distributes the electron
// currents over its pixels. The result is cached, the chain is pure.
func (d *Imager) exposePixels() (*exposure, error) {
	if d.exposed != nil {
		return d.exposed, nil
	}
	signalCurrent, extent, obstruction, backgroundPix, err := d.electronCurrents()
	if err != nil {
		return nil, err
	}
	mask, err := NewPixelMask(d.p.PixelsX, d.p.PixelsY, d.p.PixelSize, d.p.CenterOffsetX, d.p.CenterOffsetY)
	if err != nil {
		return nil, err
	}
	var radius float64
	switch {
	case extent == ExtendedSource:
		// An extended source fills the beam, a single pixel suffices.
		radius = 0
		if err := mask.CreatePhotometricAperture(ApertureCircle, radius); err != nil {
			return nil, err
		}
	case d.p.ContainedPixels > 0:
		radius = math.Sqrt(float64(d.p.ContainedPixels)) / 2
		if err := mask.CreatePhotometricAperture(ApertureSquare, radius); err != nil {
			return nil, err
		}
	default:
		radius, err = d.photometricApertureRadius(obstruction)
		if err != nil {
			return nil, err
		}
		if err := mask.CreatePhotometricAperture(d.p.Shape, radius); err != nil {
			return nil, err
		}
	}
	nPix := countNonZero(mask.Grid)
	slog.Info("photometric aperture sized", "radius_px", radius, "pixels", nPix)

	if extent != ExtendedSource {
		if err := d.psf.MapToPixelMask(mask, d.p.JitterSigma, obstruction); err != nil {
			return nil, err
		}
	}
	matScale(&mask.Grid, signalCurrent)

	exp := &exposure{
		signalMap:      mask.Grid,
		signalTotal:    matSum(mask.Grid),
		backgroundPix:  backgroundPix,
		darkPix:        d.p.DarkCurrent,
		aperturePixels: nPix,
		readNoiseVar:   float64(nPix) * d.p.ReadNoise * d.p.ReadNoise,
		peakPix:        matMax(mask.Grid) + backgroundPix + d.p.DarkCurrent,
		apertureRadius: radius,
		apertureRow:    mask.PSFCenterRow,
		apertureCol:    mask.PSFCenterCol,
	}
	d.exposed = exp
	return exp, nil
}

func countNonZero(m Mat) int {
	n := 0
	for r := 0; r < m.Rows(); r++ {
		for c := 0; c < m.Cols(); c++ {
			if m.At(r, c) != 0 {
				n++
			}
		}
	}
	return n
}

// photometricApertureRadius derives the aperture radius in pixels from the
// encircled energy of the PSF.
func (d *Imager) photometricApertureRadius(obstruction float64) (float64, error) {
	roa, err := d.psf.ReducedObservationAngle(d.p.ContainedEnergy, d.p.JitterSigma, obstruction)
	if err != nil {
		return 0, err
	}
	observationAngle := roa * d.centralWl / d.p.DAperture
	pixelFov := d.p.PixelSize / (d.p.FNumber * d.p.DAperture)
	return observationAngle / pixelFov / 2, nil
}

func (e *exposure) snr(expTime float64) float64 {
	n := float64(e.aperturePixels)
	noiseVar := expTime*(e.signalTotal+n*e.backgroundPix+n*e.darkPix) + e.readNoiseVar
	if noiseVar <= 0 {
		return 0
	}
	return e.signalTotal * expTime / math.Sqrt(noiseVar)
}

func (e *exposure) checkSaturation(expTime, well float64) error {
	if well <= 0 {
		return nil
	}
	peak := e.peakPix * expTime
	if peak > well {
		return &SaturationError{ExposureTime: expTime, PeakElectrons: peak, WellCapacity: well}
	}
	return nil
}

// SNR evaluates the CCD equation for the given exposure time in seconds.
func (d *Imager) SNR(expTime float64) (float64, error) {
	if expTime <= 0 {
		return 0, configErrorf("Imager", "exposure time %g s not positive", expTime)
	}
	exp, err := d.exposePixels()
	if err != nil {
		return 0, err
	}
	if err := exp.checkSaturation(expTime, d.p.WellCapacity); err != nil {
		return 0, err
	}
	return exp.snr(expTime), nil
}

// ExposureTime inverts the CCD equation for the given SNR target. With the
// noise terms linear in time this is a quadratic with a single positive root.
func (d *Imager) ExposureTime(snr float64) (float64, error) {
	if snr <= 0 {
		return 0, configErrorf("Imager", "SNR target %g not positive", snr)
	}
	exp, err := d.exposePixels()
	if err != nil {
		return 0, err
	}
	n := float64(exp.aperturePixels)
	s := exp.signalTotal
	if s <= 0 {
		return 0, &NoSolutionError{What: "exposure time", Detail: "no signal reaches the detector"}
	}
	t, err := quadraticPositiveRoot(
		s*s,
		-snr*snr*(s+n*exp.backgroundPix+n*exp.darkPix),
		-snr*snr*exp.readNoiseVar,
		"exposure time")
	if err != nil {
		return 0, err
	}
	if err := exp.checkSaturation(t, d.p.WellCapacity); err != nil {
		return 0, err
	}
	return t, nil
}

// Sensitivity finds the limiting apparent magnitude reaching the given SNR
// within the exposure time. currentMag is the magnitude of the configured
// target, the signal scales with 10^(-0.4 (mag - currentMag)).
func (d *Imager) Sensitivity(expTime, snr, currentMag float64) (float64, error) {
	if expTime <= 0 || snr <= 0 {
		return 0, configErrorf("Imager", "exposure time and SNR target must be positive")
	}
	exp, err := d.exposePixels()
	if err != nil {
		return 0, err
	}
	if exp.signalTotal <= 0 {
		return 0, &NoSolutionError{What: "sensitivity", Detail: "no signal reaches the detector"}
	}
	snrAtMag := func(mag float64) float64 {
		scale := MagnitudeScale(mag - currentMag)
		n := float64(exp.aperturePixels)
		noiseVar := expTime*(scale*exp.signalTotal+n*exp.backgroundPix+n*exp.darkPix) + exp.readNoiseVar
		return scale * exp.signalTotal * expTime / math.Sqrt(noiseVar)
	}
	return bisect(func(mag float64) float64 {
		return snrAtMag(mag) - snr
	}, currentMag-10, currentMag+40, "limiting magnitude")
}

// ExposureMaps holds the per-pixel electron currents of the aperture-bounded
// detector region. OriginRow and OriginCol place the region in the full
// frame, FrameRows and FrameCols give the full frame size.
type ExposureMaps struct {
	Signal     Mat // electron / s per pixel
	Background Mat // electron / s per pixel
	Dark       Mat // electron / s per pixel
	ReadNoise  Mat // electron^0.5 per pixel

	OriginRow int
	OriginCol int
	FrameRows int
	FrameCols int

	ApertureRadius float64 // pixels
	ApertureRow    float64 // aperture center in frame coordinates
	ApertureCol    float64
	AperturePixels int
}

// Maps returns the exposed detector region for rendering and diagnostics.
func (d *Imager) Maps() (*ExposureMaps, error) {
	exp, err := d.exposePixels()
	if err != nil {
		return nil, err
	}
	rMin, rMax, cMin, cMax, ok := nonZeroBounds(exp.signalMap)
	if !ok {
		rMin, rMax, cMin, cMax = 0, exp.signalMap.Rows()-1, 0, exp.signalMap.Cols()-1
	}
	signal := cloneRegion(exp.signalMap, rMin, rMax, cMin, cMax)
	background := NewMatWithSize(signal.Rows(), signal.Cols())
	dark := NewMatWithSize(signal.Rows(), signal.Cols())
	readNoise := NewMatWithSize(signal.Rows(), signal.Cols())
	for r := 0; r < signal.Rows(); r++ {
		for c := 0; c < signal.Cols(); c++ {
			if exp.signalMap.At(rMin+r, cMin+c) == 0 {
				continue
			}
			background.Set(r, c, exp.backgroundPix)
			dark.Set(r, c, exp.darkPix)
			readNoise.Set(r, c, d.p.ReadNoise)
		}
	}
	return &ExposureMaps{
		Signal:         signal,
		Background:     background,
		Dark:           dark,
		ReadNoise:      readNoise,
		OriginRow:      rMin,
		OriginCol:      cMin,
		FrameRows:      exp.signalMap.Rows(),
		FrameCols:      exp.signalMap.Cols(),
		ApertureRadius: exp.apertureRadius,
		ApertureRow:    exp.apertureRow,
		ApertureCol:    exp.apertureCol,
		AperturePixels: exp.aperturePixels,
	}, nil
}
