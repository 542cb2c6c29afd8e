package etc

import (
	"math"
	"testing"
)

// testGrid is a coarse V-band wavelength grid.
func testGrid() []float64 {
	grid := make([]float64, 21)
	for i := range grid {
		grid[i] = (500 + 5*float64(i)) * Nanometer
	}
	return grid
}

func testTarget(t *testing.T) *BlackBodyTarget {
	t.Helper()
	target, err := NewBlackBodyTarget(testGrid(), NewBlackBodyTargetParams())
	if err != nil {
		t.Fatalf("NewBlackBodyTarget: %v", err)
	}
	return target
}

func TestMirrorSignalAttenuation(t *testing.T) {
	target := testTarget(t)
	reflectance, _ := ConstantSpectrum(testGrid(), 0.9, Dimensionless)
	mirror, err := NewMirror(target, reflectance, NewSurfaceParams(), NewObstructionParams())
	if err != nil {
		t.Fatalf("NewMirror: %v", err)
	}

	in, err := target.Signal()
	if err != nil {
		t.Fatalf("target Signal: %v", err)
	}
	out, err := mirror.Signal()
	if err != nil {
		t.Fatalf("mirror Signal: %v", err)
	}
	if !out.Flux.Equal(in.Flux.Scale(0.9), 1e-12) {
		t.Error("mirror signal is not 0.9 of the incoming flux")
	}
	if out.Obstruction != 0 {
		t.Errorf("obstruction = %g, want 0", out.Obstruction)
	}
	if out.Extent != PointSource {
		t.Errorf("extent = %s, want point", out.Extent)
	}
}

func TestObstructionAccumulates(t *testing.T) {
	target := testTarget(t)
	reflectance, _ := ConstantSpectrum(testGrid(), 1, Dimensionless)

	obs1 := NewObstructionParams()
	obs1.Factor = 0.1
	m1, err := NewMirror(target, reflectance, NewSurfaceParams(), obs1)
	if err != nil {
		t.Fatalf("NewMirror: %v", err)
	}
	obs2 := NewObstructionParams()
	obs2.Factor = 0.2
	m2, err := NewMirror(m1, reflectance, NewSurfaceParams(), obs2)
	if err != nil {
		t.Fatalf("NewMirror: %v", err)
	}

	out, err := m2.Signal()
	if err != nil {
		t.Fatalf("Signal: %v", err)
	}
	want := 1 - 0.9*0.8
	if math.Abs(out.Obstruction-want) > 1e-12 {
		t.Errorf("accumulated obstruction = %g, want %g", out.Obstruction, want)
	}
	// Signal is attenuated by both obstructions.
	in, _ := target.Signal()
	if !out.Flux.Equal(in.Flux.Scale(0.9*0.8), 1e-12) {
		t.Error("signal not attenuated by both obstruction factors")
	}
}

func TestUnobstructedBackgroundReduction(t *testing.T) {
	// With zero obstruction the background must reduce to
	// in * transreflectivity + emission, regardless of obstructor settings.
	target := testTarget(t)
	reflectance, _ := ConstantSpectrum(testGrid(), 0.8, Dimensionless)

	sky, err := NewCosmicBackground(target, 270, 1)
	if err != nil {
		t.Fatalf("NewCosmicBackground: %v", err)
	}
	obs := NewObstructionParams()
	obs.Temp = 150 // ignored at factor 0
	mirror, err := NewMirror(sky, reflectance, NewSurfaceParams(), obs)
	if err != nil {
		t.Fatalf("NewMirror: %v", err)
	}

	in, err := sky.Background()
	if err != nil {
		t.Fatalf("sky Background: %v", err)
	}
	out, err := mirror.Background()
	if err != nil {
		t.Fatalf("mirror Background: %v", err)
	}
	if !out.Equal(in.Scale(0.8), 1e-9) {
		t.Error("background with zero obstruction is not in * transreflectivity")
	}
}

func TestObstructorGreyBodyMixing(t *testing.T) {
	target := testTarget(t)
	reflectance, _ := ConstantSpectrum(testGrid(), 1, Dimensionless)

	obs := NewObstructionParams()
	obs.Factor = 0.3
	obs.Temp = 200
	obs.Emissivity = 0.5
	mirror, err := NewMirror(target, reflectance, NewSurfaceParams(), obs)
	if err != nil {
		t.Fatalf("NewMirror: %v", err)
	}

	out, err := mirror.Background()
	if err != nil {
		t.Fatalf("Background: %v", err)
	}
	// Upstream background is zero, so the output is the obstructor grey body
	// weighted by the blocked fraction.
	wl := testGrid()[0]
	want := 0.3 * 0.5 * PlanckRadiance(wl, 200)
	if math.Abs(out.Value[0]-want)/want > 1e-9 {
		t.Errorf("background[0] = %g, want %g", out.Value[0], want)
	}
}

func TestMirrorThermalEmission(t *testing.T) {
	target := testTarget(t)
	reflectance, _ := ConstantSpectrum(testGrid(), 0.9, Dimensionless)

	surface := NewSurfaceParams()
	surface.Temp = 70
	mirror, err := NewMirror(target, reflectance, surface, NewObstructionParams())
	if err != nil {
		t.Fatalf("NewMirror: %v", err)
	}
	out, err := mirror.Background()
	if err != nil {
		t.Fatalf("Background: %v", err)
	}
	// Emissivity defaults to 1 - reflectance.
	wl := testGrid()[0]
	want := 0.1 * PlanckRadiance(wl, 70)
	if math.Abs(out.Value[0]-want) > want*1e-9+1e-300 {
		t.Errorf("thermal emission[0] = %g, want %g", out.Value[0], want)
	}
}

func TestColdSurfaceEmitsNothing(t *testing.T) {
	target := testTarget(t)
	reflectance, _ := ConstantSpectrum(testGrid(), 0.9, Dimensionless)
	mirror, err := NewMirror(target, reflectance, NewSurfaceParams(), NewObstructionParams())
	if err != nil {
		t.Fatalf("NewMirror: %v", err)
	}
	out, err := mirror.Background()
	if err != nil {
		t.Fatalf("Background: %v", err)
	}
	for i, v := range out.Value {
		if v != 0 {
			t.Fatalf("background[%d] = %g, want 0 for a cold surface", i, v)
		}
	}
}

func TestFilterFromRange(t *testing.T) {
	target := testTarget(t)
	filter, err := NewFilterFromRange(target, 520*Nanometer, 560*Nanometer, testGrid(),
		NewSurfaceParams(), NewObstructionParams())
	if err != nil {
		t.Fatalf("NewFilterFromRange: %v", err)
	}
	out, err := filter.Signal()
	if err != nil {
		t.Fatalf("Signal: %v", err)
	}
	in, _ := target.Signal()
	inside := out.Flux.interp(540 * Nanometer)
	if math.Abs(inside-in.Flux.interp(540*Nanometer)) > inside*1e-9 {
		t.Errorf("in-band flux attenuated: %g", inside)
	}
	if v := out.Flux.interp(600 * Nanometer); v != 0 {
		t.Errorf("out-of-band flux = %g, want 0", v)
	}
}

func TestFilterFromBandUnknown(t *testing.T) {
	target := testTarget(t)
	if _, err := NewFilterFromBand(target, "Q", testGrid(), NewSurfaceParams(), NewObstructionParams()); err == nil {
		t.Error("NewFilterFromBand accepted unknown band")
	}
}

func TestStrayLightAddsWithoutAttenuating(t *testing.T) {
	target := testTarget(t)
	emission, _ := ConstantSpectrum(testGrid(), 5e3, Radiance)
	stray, err := NewStrayLight(target, emission)
	if err != nil {
		t.Fatalf("NewStrayLight: %v", err)
	}

	in, _ := target.Signal()
	out, err := stray.Signal()
	if err != nil {
		t.Fatalf("Signal: %v", err)
	}
	if !out.Flux.Equal(in.Flux, 1e-12) {
		t.Error("stray light attenuated the signal")
	}

	bg, err := stray.Background()
	if err != nil {
		t.Fatalf("Background: %v", err)
	}
	if math.Abs(bg.Value[0]-5e3) > 1e-9 {
		t.Errorf("background[0] = %g, want 5e3", bg.Value[0])
	}
}

func TestStrayLightRequiresRadiance(t *testing.T) {
	target := testTarget(t)
	emission, _ := ConstantSpectrum(testGrid(), 5e3, FluxDensity)
	if _, err := NewStrayLight(target, emission); err == nil {
		t.Error("NewStrayLight accepted a flux density emission")
	}
}

func TestAtmosphereGreyBody(t *testing.T) {
	target := testTarget(t)
	transmittance, _ := ConstantSpectrum(testGrid(), 0.6, Dimensionless)
	atm, err := NewAtmosphereWithTemp(target, transmittance, 240)
	if err != nil {
		t.Fatalf("NewAtmosphereWithTemp: %v", err)
	}
	bg, err := atm.Background()
	if err != nil {
		t.Fatalf("Background: %v", err)
	}
	wl := testGrid()[0]
	want := 0.4 * PlanckRadiance(wl, 240)
	if math.Abs(bg.Value[0]-want)/want > 1e-9 {
		t.Errorf("atmosphere emission[0] = %g, want %g", bg.Value[0], want)
	}
}
