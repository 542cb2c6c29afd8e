package etc

import (
	"errors"
	"math"
	"testing"
)

func mustSpectrum(t *testing.T, wl, values []float64, unit Unit) *SpectralQty {
	t.Helper()
	s, err := NewSpectralQty(wl, values, unit)
	if err != nil {
		t.Fatalf("NewSpectralQty: %v", err)
	}
	return s
}

// fluxGrid builds the 200-203 nm test spectrum with values 1.1 to 1.4.
func fluxGrid(t *testing.T) *SpectralQty {
	t.Helper()
	return mustSpectrum(t,
		[]float64{200e-9, 201e-9, 202e-9, 203e-9},
		[]float64{1.1, 1.2, 1.3, 1.4},
		FluxDensity)
}

func TestNewSpectralQtyRejectsBadGrids(t *testing.T) {
	tests := []struct {
		name   string
		wl     []float64
		values []float64
	}{
		{"length mismatch", []float64{1e-6, 2e-6}, []float64{1}},
		{"empty", nil, nil},
		{"not increasing", []float64{2e-6, 1e-6}, []float64{1, 2}},
		{"duplicate point", []float64{1e-6, 1e-6}, []float64{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSpectralQty(tt.wl, tt.values, Dimensionless); err == nil {
				t.Errorf("NewSpectralQty(%v) accepted invalid input", tt.wl)
			}
		})
	}
}

func TestSpectralQtyScale(t *testing.T) {
	got := fluxGrid(t).Scale(2)
	want := mustSpectrum(t,
		[]float64{200e-9, 201e-9, 202e-9, 203e-9},
		[]float64{2.2, 2.4, 2.6, 2.8},
		FluxDensity)
	if !got.Equal(want, 1e-12) {
		t.Errorf("Scale(2) = %v, want %v", got.Value, want.Value)
	}
}

func TestSpectralQtyAddSameGrid(t *testing.T) {
	other := mustSpectrum(t,
		[]float64{200e-9, 201e-9, 202e-9, 203e-9},
		[]float64{1, 2, 3, 4},
		FluxDensity)
	got, err := fluxGrid(t).Add(other)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	want := mustSpectrum(t,
		[]float64{200e-9, 201e-9, 202e-9, 203e-9},
		[]float64{2.1, 3.2, 4.3, 5.4},
		FluxDensity)
	if !got.Equal(want, 1e-12) {
		t.Errorf("Add = %v, want %v", got.Value, want.Value)
	}
}

func TestSpectralQtyAddRoundTrip(t *testing.T) {
	a := fluxGrid(t)
	b := mustSpectrum(t,
		[]float64{200e-9, 201e-9, 202e-9, 203e-9},
		[]float64{0.3, 0.1, 0.7, 0.2},
		FluxDensity)
	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	back, err := sum.Sub(b)
	if err != nil {
		t.Fatalf("Sub: %v", err)
	}
	if !back.Equal(a, 1e-12) {
		t.Errorf("(a+b)-b = %v, want %v", back.Value, a.Value)
	}
}

func TestSpectralQtyAddUnitMismatch(t *testing.T) {
	other := mustSpectrum(t, []float64{200e-9, 203e-9}, []float64{1, 1}, Radiance)
	if _, err := fluxGrid(t).Add(other); err == nil {
		t.Fatal("Add accepted mismatched units")
	} else {
		var mismatch *UnitMismatchError
		if !errors.As(err, &mismatch) {
			t.Errorf("Add error = %v, want UnitMismatchError", err)
		}
	}
}

func TestSpectralQtyMulInterpolates(t *testing.T) {
	// The offset grid is sampled onto the overlap of both grids.
	a := fluxGrid(t)
	b := mustSpectrum(t,
		[]float64{200.5e-9, 201.5e-9, 202.5e-9, 203.5e-9},
		[]float64{1, 2, 3, 4},
		Dimensionless)
	got, err := a.Mul(b)
	if err != nil {
		t.Fatalf("Mul: %v", err)
	}
	if got.MinWavelength() < 200.5e-9-1e-15 || got.MaxWavelength() > 203e-9+1e-15 {
		t.Errorf("Mul domain [%g, %g], want within [200.5e-9, 203e-9]",
			got.MinWavelength(), got.MaxWavelength())
	}
	// At 201 nm: 1.2 * 1.5
	v := got.interp(201e-9)
	if math.Abs(v-1.8) > 1e-9 {
		t.Errorf("Mul at 201 nm = %g, want 1.8", v)
	}
	if !got.Unit.Equal(FluxDensity) {
		t.Errorf("Mul unit = %s, want %s", got.Unit, FluxDensity)
	}
}

func TestSpectralQtyMulDisjointDomains(t *testing.T) {
	b := mustSpectrum(t, []float64{300e-9, 301e-9}, []float64{1, 1}, Dimensionless)
	_, err := fluxGrid(t).Mul(b)
	var domain *DomainError
	if !errors.As(err, &domain) {
		t.Fatalf("Mul on disjoint grids = %v, want DomainError", err)
	}
}

func TestSpectralQtyDiv(t *testing.T) {
	a := fluxGrid(t)
	got, err := a.Div(a)
	if err != nil {
		t.Fatalf("Div: %v", err)
	}
	for i, v := range got.Value {
		if math.Abs(v-1) > 1e-12 {
			t.Errorf("Div value[%d] = %g, want 1", i, v)
		}
	}
	if !got.Unit.Equal(Dimensionless) {
		t.Errorf("Div unit = %s, want dimensionless", got.Unit)
	}
}

func TestSpectralQtyRebin(t *testing.T) {
	s := fluxGrid(t)

	got, err := s.Rebin([]float64{200.5e-9, 201.5e-9, 202.5e-9}, ExtrapolateNone)
	if err != nil {
		t.Fatalf("Rebin: %v", err)
	}
	want := []float64{1.15, 1.25, 1.35}
	for i, v := range got.Value {
		if math.Abs(v-want[i]) > 1e-9 {
			t.Errorf("Rebin value[%d] = %g, want %g", i, v, want[i])
		}
	}
}

func TestSpectralQtyRebinOutsideDomain(t *testing.T) {
	s := fluxGrid(t)

	_, err := s.Rebin([]float64{199e-9, 200e-9}, ExtrapolateNone)
	var domain *DomainError
	if !errors.As(err, &domain) {
		t.Fatalf("Rebin outside domain = %v, want DomainError", err)
	}

	got, err := s.Rebin([]float64{199e-9, 200e-9, 204e-9}, ExtrapolateZero)
	if err != nil {
		t.Fatalf("Rebin with zero fill: %v", err)
	}
	if got.Value[0] != 0 || got.Value[2] != 0 {
		t.Errorf("Rebin zero fill = %v, want zeros outside [200, 203] nm", got.Value)
	}
	if math.Abs(got.Value[1]-1.1) > 1e-12 {
		t.Errorf("Rebin kept value = %g, want 1.1", got.Value[1])
	}
}

func TestSpectralQtyRebinIdempotent(t *testing.T) {
	s := fluxGrid(t)
	got, err := s.Rebin(s.Wavelength, ExtrapolateNone)
	if err != nil {
		t.Fatalf("Rebin: %v", err)
	}
	if !got.Equal(s, 1e-12) {
		t.Errorf("Rebin onto own grid changed values: %v", got.Value)
	}
}

func TestSpectralQtyIntegrate(t *testing.T) {
	// Constant 2 over a 10 nm span integrates to 2e-8 W/m^2.
	s := mustSpectrum(t, []float64{500e-9, 505e-9, 510e-9}, []float64{2, 2, 2}, FluxDensity)
	got := s.Integrate()
	if math.Abs(got.Value-2*10e-9)/math.Abs(got.Value) > 1e-12 {
		t.Errorf("Integrate = %g, want %g", got.Value, 2*10e-9)
	}
	want := FluxDensity.Mul(Meter)
	if !got.Unit.Equal(want) {
		t.Errorf("Integrate unit = %s, want %s", got.Unit, want)
	}
}

func TestSpectralQtyApply(t *testing.T) {
	s := fluxGrid(t)
	got := s.Apply(Radiance, func(wl, v float64) float64 { return v * 2 })
	if !got.Unit.Equal(Radiance) {
		t.Errorf("Apply unit = %s, want %s", got.Unit, Radiance)
	}
	if math.Abs(got.Value[0]-2.2) > 1e-12 {
		t.Errorf("Apply value[0] = %g, want 2.2", got.Value[0])
	}
}
