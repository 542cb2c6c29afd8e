package etc

import (
	"math"
	"testing"
)

// gaussianGrid builds a symmetric Gaussian PSF sampled on an n x n grid with
// the given sigma in grid steps.
func gaussianGrid(n int, sigma float64) Mat {
	m := NewMatWithSize(n, n)
	center := float64(n)/2 - 0.5
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			dr := float64(r) - center
			dc := float64(c) - center
			m.Set(r, c, math.Exp(-(dr*dr+dc*dc)/(2*sigma*sigma)))
		}
	}
	return m
}

func testGridded(t *testing.T, osf int) *GriddedPSF {
	t.Helper()
	grid := gaussianGrid(32, 3)
	psf, err := NewGriddedPSF(grid, testFNumber, testWl, testDAperture, testPixel, osf,
		[2]float64{testPixel, testPixel}, 15.5, 15.5)
	if err != nil {
		t.Fatalf("NewGriddedPSF: %v", err)
	}
	return psf
}

func TestGriddedPSFRejectsPresets(t *testing.T) {
	psf := testGridded(t, 5)
	for _, e := range []EncircledEnergy{EncircledPeak, EncircledFWHM, EncircledMin} {
		if _, err := psf.ReducedObservationAngle(e, 0, 0); err == nil {
			t.Errorf("accepted preset %s", e)
		}
	}
}

func TestGriddedPSFRejectsBadGrid(t *testing.T) {
	empty := NewMat()
	if _, err := NewGriddedPSF(empty, testFNumber, testWl, testDAperture, testPixel, 5,
		[2]float64{testPixel, testPixel}, 0, 0); err == nil {
		t.Error("accepted empty grid")
	}
	grid := gaussianGrid(8, 2)
	defer grid.Close()
	if _, err := NewGriddedPSF(grid, testFNumber, testWl, testDAperture, testPixel, 5,
		[2]float64{0, testPixel}, 3.5, 3.5); err == nil {
		t.Error("accepted zero grid delta")
	}
}

func TestGriddedPSFObservationAngleMonotonic(t *testing.T) {
	psf := testGridded(t, 5)
	roaSmall, err := psf.ReducedObservationAngle(EncircledFraction(0.3), 0, 0)
	if err != nil {
		t.Fatalf("ReducedObservationAngle(0.3): %v", err)
	}
	roaLarge, err := psf.ReducedObservationAngle(EncircledFraction(0.8), 0, 0)
	if err != nil {
		t.Fatalf("ReducedObservationAngle(0.8): %v", err)
	}
	if roaSmall <= 0 {
		t.Errorf("30%% angle = %g, want > 0", roaSmall)
	}
	if roaLarge <= roaSmall {
		t.Errorf("80%% angle %g not larger than 30%% angle %g", roaLarge, roaSmall)
	}
}

func TestGriddedPSFGaussianHalfEnergy(t *testing.T) {
	// A 2D Gaussian contains half its energy within r = sigma * sqrt(2 ln 2).
	psf := testGridded(t, 5)
	roa, err := psf.ReducedObservationAngle(EncircledFraction(0.5), 0, 0)
	if err != nil {
		t.Fatalf("ReducedObservationAngle: %v", err)
	}
	// Convert back to grid steps: r = roa * f * wl / (2 * delta).
	r := roa * testFNumber * testWl / (2 * testPixel)
	want := 3 * math.Sqrt(2*math.Ln2)
	if math.Abs(r-want) > 0.2 {
		t.Errorf("half-energy radius = %g grid steps, want %g", r, want)
	}
}

func TestGriddedPSFMapToPixelMask(t *testing.T) {
	psf := testGridded(t, 5)
	mask, err := NewPixelMask(16, 16, testPixel, 0, 0)
	if err != nil {
		t.Fatalf("NewPixelMask: %v", err)
	}
	defer mask.Grid.Close()
	if err := mask.CreatePhotometricAperture(ApertureSquare, 7.5); err != nil {
		t.Fatalf("CreatePhotometricAperture: %v", err)
	}
	if err := psf.MapToPixelMask(mask, 0, 0); err != nil {
		t.Fatalf("MapToPixelMask: %v", err)
	}

	sum := matSum(mask.Grid)
	if sum < 0.9 || sum > 1.001 {
		t.Errorf("energy over the full array = %g, want close to 1", sum)
	}
	// The peak share sits on the central pixels.
	peak := matMax(mask.Grid)
	if mask.Grid.At(7, 7) != peak && mask.Grid.At(8, 8) != peak &&
		mask.Grid.At(7, 8) != peak && mask.Grid.At(8, 7) != peak {
		t.Error("peak energy share not on a central pixel")
	}
}

func TestGriddedPSFMapRequiresAperture(t *testing.T) {
	psf := testGridded(t, 5)
	mask, err := NewPixelMask(16, 16, testPixel, 0, 0)
	if err != nil {
		t.Fatalf("NewPixelMask: %v", err)
	}
	defer mask.Grid.Close()
	if err := psf.MapToPixelMask(mask, 0, 0); err == nil {
		t.Error("accepted a mask without exposed pixels")
	}
}
