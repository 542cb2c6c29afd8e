package etc

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

// AiryPSF models the point spread function of an ideal circular aperture,
// optionally with a central obscuration, as an Airy pattern.
type AiryPSF struct {
	FNumber   float64
	Wl        float64 // m, central wavelength
	DAperture float64 // m
	PixelSize float64 // m
	OSF       int     // oversampling factor for pixel mapping

	psfJitter []float64 // radial jitter-smeared profile, sample i at i*dx
}

func NewAiryPSF(fNumber, wl, dAperture, pixelSize float64, osf int) (*AiryPSF, error) {
	if fNumber <= 0 || wl <= 0 || dAperture <= 0 || pixelSize <= 0 {
		return nil, configErrorf("AiryPSF", "optical parameters must be positive")
	}
	if osf < 1 {
		return nil, configErrorf("AiryPSF", "oversampling factor %d below 1", osf)
	}
	return &AiryPSF{FNumber: fNumber, Wl: wl, DAperture: dAperture, PixelSize: pixelSize, OSF: osf}, nil
}

// airyDisk evaluates the normalized Airy pattern at radial coordinate x with
// linear obscuration ratio eps.
func airyDisk(x, eps float64) float64 {
	if math.Abs(x) < 1e-12 {
		return 1
	}
	if eps > 1e-12 {
		v := 2 * (math.J1(x) - eps*math.J1(eps*x)) / x
		return v * v / ((1 - eps*eps) * (1 - eps*eps))
	}
	v := 2 * math.J1(x) / x
	return v * v
}

// airyEncircled integrates the Airy pattern from 0 to x, giving the encircled
// energy fraction.
func airyEncircled(x, eps float64) float64 {
	if math.Abs(x) < 1e-12 {
		return 0
	}
	if eps > 1e-12 {
		cross := quad.Fixed(func(y float64) float64 {
			if y < 1e-12 {
				return 0
			}
			return math.J1(y) * math.J1(eps*y) / y
		}, 0, x, 64+int(x), nil, 0)
		return 1 / (1 - eps*eps) * (1 - math.J0(x)*math.J0(x) - math.J1(x)*math.J1(x) +
			eps*eps*(1-math.J0(eps*x)*math.J0(eps*x)-math.J1(eps*x)*math.J1(eps*x)) -
			4*eps*cross)
	}
	return 1 - math.J0(x)*math.J0(x) - math.J1(x)*math.J1(x)
}

func (p *AiryPSF) ReducedObservationAngle(contained EncircledEnergy, jitterSigma, obstruction float64) (float64, error) {
	if err := contained.validate(); err != nil {
		return 0, err
	}
	eps := math.Sqrt(obstruction)
	var roa float64
	fraction := math.NaN()
	switch contained.Preset {
	case EnergyPeak:
		// The peak maps to a single exposed pixel.
		return 0, nil
	case EnergyFWHM:
		roa = 1.028
		if obstruction > 1e-10 {
			y, err := newton(func(y float64) float64 {
				return airyDisk(math.Pi*y, eps) - 0.5
			}, roa/2, "obstructed half maximum")
			if err != nil {
				return 0, err
			}
			roa = 2 * y
		}
	case EnergyMin:
		roa = 2.44
		fraction = 0.8377
		if obstruction > 1e-10 {
			y := goldenMin(func(y float64) float64 {
				return airyDisk(math.Pi*y, eps)
			}, 0.6, 1.83)
			roa = 2 * y
			fraction = airyEncircled(math.Pi*y, eps)
		}
	default:
		fraction = contained.Fraction
		y, err := bisect(func(y float64) float64 {
			return airyEncircled(math.Pi*y, eps) - fraction
		}, 0, 100, "encircled energy radius")
		if err != nil {
			return 0, err
		}
		roa = 2 * y
	}
	if jitterSigma > 0 {
		return p.jitteredObservationAngle(roa, fraction, contained.Preset == EnergyFWHM, jitterSigma, obstruction)
	}
	return roa, nil
}

// jitteredObservationAngle smears the radial Airy profile with the pointing
// jitter and rederives the observation angle from the disturbed profile.
func (p *AiryPSF) jitteredObservationAngle(roa, fraction float64, fwhm bool, jitterSigma, obstruction float64) (float64, error) {
	eps := math.Sqrt(obstruction)
	// Jitter in reduced units of lambda / d_aperture.
	js := jitterSigma * p.DAperture / p.Wl
	roaPix := p.PixelSize / (p.FNumber * p.Wl)
	dx := roaPix / float64(p.OSF)
	// The grid must hold the PSF core plus 3 sigma of the jitter bell.
	n := int(math.Ceil((roa/2 + 3*js) / dx))
	if n < 1 {
		n = 1
	}

	psf := make([]float64, n)
	var total float64
	for i := range psf {
		x := float64(i+1) * dx
		psf[i] = airyDisk(math.Pi*x, eps)
		total += psf[i] * x
	}
	total *= dx * 2 * math.Pi

	// Mirror the profile into the negative domain and build the matching
	// Gaussian kernel.
	full := make([]float64, 2*n+1)
	kernel := make([]float64, 2*n+1)
	var kernelSum float64
	for i := range full {
		x := float64(i-n) * dx
		if i == n {
			full[i] = 1
		} else {
			full[i] = psf[absInt(i-n)-1]
		}
		kernel[i] = math.Exp(-x * x / (2 * js * js))
		kernelSum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= kernelSum
	}

	padded := make([]float64, 4*n+1)
	copy(padded[n:], full)
	conv := convolveSame(padded, kernel)
	smeared := conv[(len(conv)-1)/2:]

	// Rescale so the disturbed profile integrates like the undisturbed one.
	var denom float64
	for i, v := range smeared {
		denom += v * float64(i) * dx
	}
	denom *= dx * 2 * math.Pi
	for i := range smeared {
		smeared[i] *= total / denom
	}
	p.psfJitter = smeared

	if fwhm {
		for i, v := range smeared {
			if v < smeared[0]/2 {
				return float64(i) * dx * 2, nil
			}
		}
		return 0, &NoSolutionError{What: "jittered half maximum", Detail: "profile never falls below half peak"}
	}
	var cum float64
	for i, v := range smeared {
		cum += v * float64(i) * dx * dx * 2 * math.Pi
		if cum/(4/math.Pi)*(1-obstruction)*(1-obstruction) > fraction {
			return float64(i) * dx * 2, nil
		}
	}
	return 0, &NoSolutionError{What: "jittered encircled energy", Detail: "requested energy not contained in profile"}
}

func absInt(i int) int {
	if i < 0 {
		return -i
	}
	return i
}

func (p *AiryPSF) MapToPixelMask(mask *PixelMask, jitterSigma, obstruction float64) error {
	eps := math.Sqrt(obstruction)
	rMin, rMax, cMin, cMax, ok := nonZeroBounds(mask.Grid)
	if !ok {
		return configErrorf("AiryPSF", "pixel mask has no exposed pixels")
	}
	red := cloneRegion(mask.Grid, rMin, rMax, cMin, cMax)
	defer red.Close()
	centerR := (mask.PSFCenterRow - float64(rMin)) * float64(p.OSF)
	centerC := (mask.PSFCenterCol - float64(cMin)) * float64(p.OSF)

	roaPix := mask.PixelSize / (p.FNumber * p.Wl)
	dx := roaPix / float64(p.OSF)

	if jitterSigma > 0 && p.psfJitter == nil {
		if _, err := p.ReducedObservationAngle(EncircledFWHM, jitterSigma, obstruction); err != nil {
			return err
		}
	}

	res := NewMatWithSize(red.Rows()*p.OSF, red.Cols()*p.OSF)
	defer res.Close()
	for r := 0; r < res.Rows(); r++ {
		for c := 0; c < res.Cols(); c++ {
			dist := math.Hypot(float64(c)-centerC, float64(r)-centerR) * dx
			if jitterSigma > 0 {
				res.Set(r, c, interpProfile(p.psfJitter, dist/dx))
			} else {
				res.Set(r, c, airyDisk(math.Pi*dist, eps))
			}
		}
	}

	down := blockSum(res, p.OSF)
	defer down.Close()
	mulElem(&down, red)
	matScale(&down, dx*dx/(4/math.Pi)*(1-obstruction)*(1-obstruction))
	insertRegion(&mask.Grid, down, rMin, cMin)
	return nil
}

// interpProfile linearly interpolates a radial profile sampled at integer
// positions, clamping beyond the last sample.
func interpProfile(profile []float64, pos float64) float64 {
	if pos <= 0 {
		return profile[0]
	}
	i := int(pos)
	if i >= len(profile)-1 {
		return profile[len(profile)-1]
	}
	f := pos - float64(i)
	return profile[i]*(1-f) + profile[i+1]*f
}

func cloneRegion(m Mat, rMin, rMax, cMin, cMax int) Mat {
	out := NewMatWithSize(rMax-rMin+1, cMax-cMin+1)
	for r := 0; r < out.Rows(); r++ {
		for c := 0; c < out.Cols(); c++ {
			out.Set(r, c, m.At(rMin+r, cMin+c))
		}
	}
	return out
}

func insertRegion(dst *Mat, src Mat, rMin, cMin int) {
	for r := 0; r < src.Rows(); r++ {
		for c := 0; c < src.Cols(); c++ {
			dst.Set(rMin+r, cMin+c, src.At(r, c))
		}
	}
}
