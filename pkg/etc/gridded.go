package etc

import "math"

// GriddedPSF models the point spread function from a sampled 2D grid, for
// example the output of an optical design program.
type GriddedPSF struct {
	psf       Mat
	FNumber   float64
	Wl        float64 // m
	DAperture float64 // m
	PixelSize float64 // m
	OSF       int
	GridDelta [2]float64 // m per grid step (row, col)
	CenterRow float64    // PSF center on the grid, zero point top left
	CenterCol float64

	psfOS       Mat
	centerOSRow float64
	centerOSCol float64
	psfOSF      int
	cached      bool
}

func NewGriddedPSF(psf Mat, fNumber, wl, dAperture, pixelSize float64, osf int,
	gridDelta [2]float64, centerRow, centerCol float64) (*GriddedPSF, error) {
	if psf.Empty() {
		return nil, configErrorf("GriddedPSF", "empty PSF grid")
	}
	if fNumber <= 0 || wl <= 0 || dAperture <= 0 || pixelSize <= 0 {
		return nil, configErrorf("GriddedPSF", "optical parameters must be positive")
	}
	if osf < 1 {
		return nil, configErrorf("GriddedPSF", "oversampling factor %d below 1", osf)
	}
	if gridDelta[0] <= 0 || gridDelta[1] <= 0 {
		return nil, configErrorf("GriddedPSF", "grid deltas must be positive")
	}
	return &GriddedPSF{
		psf:       psf,
		FNumber:   fNumber,
		Wl:        wl,
		DAperture: dAperture,
		PixelSize: pixelSize,
		OSF:       osf,
		GridDelta: gridDelta,
		CenterRow: centerRow,
		CenterCol: centerCol,
	}, nil
}

// calcPSF oversamples the grid to the pixel-mapping resolution and smears it
// with the pointing jitter.
func (p *GriddedPSF) calcPSF(jitterSigma float64) (Mat, float64, float64, int) {
	if p.cached {
		return p.psfOS, p.centerOSRow, p.centerOSCol, p.psfOSF
	}
	maxDelta := math.Max(p.GridDelta[0], p.GridDelta[1])
	psfOSF := int(math.Ceil(maxDelta / (p.PixelSize / float64(p.OSF))))
	if psfOSF < 1 {
		psfOSF = 1
	}
	var psf Mat
	centerRow, centerCol := p.CenterRow, p.CenterCol
	if psfOSF == 1 {
		psf = p.psf.Clone()
	} else {
		psf = NewMat()
		resizeBilinear(p.psf, &psf, p.psf.Rows()*psfOSF, p.psf.Cols()*psfOSF)
		centerRow = (centerRow+0.5)*float64(psfOSF) - 0.5
		centerCol = (centerCol+0.5)*float64(psfOSF) - 0.5
	}
	if jitterSigma > 0 {
		// Jitter on the focal plane in meters.
		sigma := jitterSigma * p.FNumber * p.DAperture
		step := math.Min(p.GridDelta[0], p.GridDelta[1]) / float64(psfOSF)
		if step < 6*sigma {
			klen := int(math.Ceil(6 * sigma / step))
			if klen%2 == 0 {
				klen++
			}
			kernel := getGaussianKernel1D(klen, sigma/step)
			padded := padZero(psf, (klen-1)/2)
			psf.Close()
			smeared := NewMat()
			sepFilter2DZero(padded, &smeared, kernel, kernel)
			padded.Close()
			kernel.Close()
			psf = smeared
			centerRow += float64((klen - 1) / 2)
			centerCol += float64((klen - 1) / 2)
		}
	}
	p.psfOS = psf
	p.centerOSRow = centerRow
	p.centerOSCol = centerCol
	p.psfOSF = psfOSF
	p.cached = true
	return psf, centerRow, centerCol, psfOSF
}

func (p *GriddedPSF) ReducedObservationAngle(contained EncircledEnergy, jitterSigma, obstruction float64) (float64, error) {
	if contained.Preset != EnergyFraction {
		return 0, configErrorf("GriddedPSF", "preset %s needs an analytic PSF, use an explicit fraction", contained)
	}
	if err := contained.validate(); err != nil {
		return 0, err
	}
	psf, centerRow, centerCol, psfOSF := p.calcPSF(jitterSigma)
	rows, cols := float64(psf.Rows()), float64(psf.Cols())
	rMax := math.Max(
		math.Max(math.Hypot(centerRow, centerCol), math.Hypot(rows-centerRow, centerCol)),
		math.Max(math.Hypot(centerRow, cols-centerCol), math.Hypot(rows-centerRow, cols-centerCol)))
	total := matSum(psf)
	if total <= 0 {
		return 0, &NoSolutionError{What: "encircled energy radius", Detail: "PSF grid has no energy"}
	}

	contain := func(r float64) float64 {
		circ := NewMatWithSize(psf.Rows(), psf.Cols())
		defer circ.Close()
		rasterizeCircle(&circ, r, centerCol, centerRow)
		mulElem(&circ, psf)
		return matSum(circ) / total
	}
	lo, hi := 0.0, rMax
	if contain(hi) < contained.Fraction {
		return 0, &NoSolutionError{What: "encircled energy radius", Detail: "requested energy not contained in grid"}
	}
	for hi-lo > 0.1 {
		mid := 0.5 * (lo + hi)
		if contain(mid) < contained.Fraction {
			lo = mid
		} else {
			hi = mid
		}
	}
	r := 0.5 * (lo + hi)
	return 2 * r * p.GridDelta[0] / (float64(psfOSF) * p.FNumber * p.Wl), nil
}

func (p *GriddedPSF) MapToPixelMask(mask *PixelMask, jitterSigma, obstruction float64) error {
	rMin, rMax, cMin, cMax, ok := nonZeroBounds(mask.Grid)
	if !ok {
		return configErrorf("GriddedPSF", "pixel mask has no exposed pixels")
	}
	red := cloneRegion(mask.Grid, rMin, rMax, cMin, cMax)
	defer red.Close()
	centerR := ((mask.PSFCenterRow-float64(rMin))+0.5)*float64(p.OSF) - 0.5
	centerC := ((mask.PSFCenterCol-float64(cMin))+0.5)*float64(p.OSF) - 0.5

	psf, psfCenterRow, psfCenterCol, psfOSF := p.calcPSF(jitterSigma)
	stepR := p.GridDelta[0] / float64(psfOSF)
	stepC := p.GridDelta[1] / float64(psfOSF)
	ps := mask.PixelSize / float64(p.OSF)

	res := NewMatWithSize(red.Rows()*p.OSF, red.Cols()*p.OSF)
	defer res.Close()
	for r := 0; r < res.Rows(); r++ {
		for c := 0; c < res.Cols(); c++ {
			y := psfCenterRow + (float64(r)-centerR)*ps/stepR
			x := psfCenterCol + (float64(c)-centerC)*ps/stepC
			res.Set(r, c, bilinearAt(psf, y, x))
		}
	}

	down := blockSum(res, p.OSF)
	defer down.Close()
	mulElem(&down, red)
	matScale(&down, ps*ps/(matSum(psf)*stepR*stepR))
	insertRegion(&mask.Grid, down, rMin, cMin)
	return nil
}
