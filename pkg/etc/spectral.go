package etc

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate"
)

// ExtrapolationPolicy controls how Rebin treats grid points outside the
// source range.
type ExtrapolationPolicy int

const (
	// ExtrapolateNone fails with a DomainError when the target grid extends
	// beyond the source range.
	ExtrapolateNone ExtrapolationPolicy = iota
	// ExtrapolateZero fills grid points outside the source range with zero.
	ExtrapolateZero
)

// SpectralQty is a physical quantity sampled over a strictly increasing
// wavelength grid. Wavelengths are in meters, values in the coherent SI
// representation of Unit. All operations return new instances.
type SpectralQty struct {
	Wavelength []float64
	Value      []float64
	Unit       Unit
}

// NewSpectralQty builds a spectral quantity from a wavelength grid and the
// matching sample values.
func NewSpectralQty(wavelength, value []float64, unit Unit) (*SpectralQty, error) {
	if len(wavelength) != len(value) {
		return nil, fmt.Errorf("grid length %d does not match value length %d", len(wavelength), len(value))
	}
	if len(wavelength) == 0 {
		return nil, fmt.Errorf("empty wavelength grid")
	}
	for i := 1; i < len(wavelength); i++ {
		if wavelength[i] <= wavelength[i-1] {
			return nil, fmt.Errorf("wavelength grid not strictly increasing at index %d", i)
		}
	}
	return &SpectralQty{
		Wavelength: append([]float64(nil), wavelength...),
		Value:      append([]float64(nil), value...),
		Unit:       unit,
	}, nil
}

// ConstantSpectrum builds a spectral quantity with the same value at every
// grid point.
func ConstantSpectrum(wavelength []float64, value float64, unit Unit) (*SpectralQty, error) {
	values := make([]float64, len(wavelength))
	for i := range values {
		values[i] = value
	}
	return NewSpectralQty(wavelength, values, unit)
}

// SpectrumOf samples fn over the grid.
func SpectrumOf(wavelength []float64, unit Unit, fn func(wl float64) float64) (*SpectralQty, error) {
	values := make([]float64, len(wavelength))
	for i, wl := range wavelength {
		values[i] = fn(wl)
	}
	return NewSpectralQty(wavelength, values, unit)
}

func (s *SpectralQty) Clone() *SpectralQty {
	return &SpectralQty{
		Wavelength: append([]float64(nil), s.Wavelength...),
		Value:      append([]float64(nil), s.Value...),
		Unit:       s.Unit,
	}
}

func (s *SpectralQty) MinWavelength() float64 { return s.Wavelength[0] }
func (s *SpectralQty) MaxWavelength() float64 { return s.Wavelength[len(s.Wavelength)-1] }

// interp returns the linearly interpolated value at wl. Outside the grid it
// extrapolates from the nearest segment; callers guard the domain.
func (s *SpectralQty) interp(wl float64) float64 {
	n := len(s.Wavelength)
	if n == 1 {
		return s.Value[0]
	}
	i := sort.SearchFloat64s(s.Wavelength, wl)
	if i == 0 {
		i = 1
	} else if i >= n {
		i = n - 1
	}
	x0, x1 := s.Wavelength[i-1], s.Wavelength[i]
	y0, y1 := s.Value[i-1], s.Value[i]
	return y0 + (y1-y0)*(wl-x0)/(x1-x0)
}

// Rebin resamples the quantity onto grid using linear interpolation. Grid
// points outside the source range fail with a DomainError unless the
// zero-fill policy is selected.
func (s *SpectralQty) Rebin(grid []float64, policy ExtrapolationPolicy) (*SpectralQty, error) {
	for i := 1; i < len(grid); i++ {
		if grid[i] <= grid[i-1] {
			return nil, fmt.Errorf("target grid not strictly increasing at index %d", i)
		}
	}
	if len(grid) == 0 {
		return nil, fmt.Errorf("empty target grid")
	}
	lo, hi := s.MinWavelength(), s.MaxWavelength()
	const eps = 1e-12
	values := make([]float64, len(grid))
	for i, wl := range grid {
		if wl < lo-eps || wl > hi+eps {
			if policy == ExtrapolateZero {
				values[i] = 0
				continue
			}
			return nil, &DomainError{Min: grid[0], Max: grid[len(grid)-1], SrcMin: lo, SrcMax: hi}
		}
		values[i] = s.interp(wl)
	}
	return NewSpectralQty(grid, values, s.Unit)
}

// unionGrid merges two increasing grids, dropping near-duplicate points.
func unionGrid(a, b []float64) []float64 {
	out := make([]float64, 0, len(a)+len(b))
	i, j := 0, 0
	const relTol = 1e-9
	for i < len(a) || j < len(b) {
		switch {
		case i >= len(a):
			out = append(out, b[j])
			j++
		case j >= len(b):
			out = append(out, a[i])
			i++
		case closeRel(a[i], b[j], relTol):
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		default:
			out = append(out, b[j])
			j++
		}
	}
	return out
}

// restrict returns the grid points inside [lo, hi].
func restrict(grid []float64, lo, hi float64) []float64 {
	const eps = 1e-12
	out := grid[:0:0]
	for _, wl := range grid {
		if wl >= lo-eps && wl <= hi+eps {
			out = append(out, wl)
		}
	}
	return out
}

func closeRel(a, b, relTol float64) bool {
	d := math.Abs(a - b)
	if d <= relTol*math.Max(math.Abs(a), math.Abs(b)) {
		return true
	}
	return a == b
}

// Add sums two quantities of the same dimension on the union of their grids.
// Samples outside one operand's domain treat that operand as contributing
// nothing there.
func (s *SpectralQty) Add(o *SpectralQty) (*SpectralQty, error) {
	if !s.Unit.Equal(o.Unit) {
		return nil, &UnitMismatchError{Op: "addition", A: s.Unit, B: o.Unit}
	}
	grid := unionGrid(s.Wavelength, o.Wavelength)
	values := make([]float64, len(grid))
	for i, wl := range grid {
		var v float64
		if wl >= s.MinWavelength() && wl <= s.MaxWavelength() {
			v += s.interp(wl)
		}
		if wl >= o.MinWavelength() && wl <= o.MaxWavelength() {
			v += o.interp(wl)
		}
		values[i] = v
	}
	return NewSpectralQty(grid, values, s.Unit)
}

// AddScalar adds a constant of the same dimension at every grid point.
func (s *SpectralQty) AddScalar(q Quantity) (*SpectralQty, error) {
	if !s.Unit.Equal(q.Unit) {
		return nil, &UnitMismatchError{Op: "addition", A: s.Unit, B: q.Unit}
	}
	out := s.Clone()
	for i := range out.Value {
		out.Value[i] += q.Value
	}
	return out, nil
}

// Sub subtracts o from s on the overlap of their domains. Disjoint domains
// fail with a DomainError.
func (s *SpectralQty) Sub(o *SpectralQty) (*SpectralQty, error) {
	if !s.Unit.Equal(o.Unit) {
		return nil, &UnitMismatchError{Op: "subtraction", A: s.Unit, B: o.Unit}
	}
	grid, err := overlap(s, o, "subtraction")
	if err != nil {
		return nil, err
	}
	values := make([]float64, len(grid))
	for i, wl := range grid {
		values[i] = s.interp(wl) - o.interp(wl)
	}
	return NewSpectralQty(grid, values, s.Unit)
}

func overlap(s, o *SpectralQty, op string) ([]float64, error) {
	lo := math.Max(s.MinWavelength(), o.MinWavelength())
	hi := math.Min(s.MaxWavelength(), o.MaxWavelength())
	if lo > hi {
		return nil, &DomainError{
			Min: o.MinWavelength(), Max: o.MaxWavelength(),
			SrcMin: s.MinWavelength(), SrcMax: s.MaxWavelength(),
		}
	}
	grid := restrict(unionGrid(s.Wavelength, o.Wavelength), lo, hi)
	if len(grid) == 0 {
		return nil, &DomainError{Min: lo, Max: hi, SrcMin: s.MinWavelength(), SrcMax: s.MaxWavelength()}
	}
	_ = op
	return grid, nil
}

// Mul multiplies two spectral quantities elementwise on the overlap of their
// domains, combining dimensions symbolically.
func (s *SpectralQty) Mul(o *SpectralQty) (*SpectralQty, error) {
	grid, err := overlap(s, o, "multiplication")
	if err != nil {
		return nil, err
	}
	values := make([]float64, len(grid))
	for i, wl := range grid {
		values[i] = s.interp(wl) * o.interp(wl)
	}
	return NewSpectralQty(grid, values, s.Unit.Mul(o.Unit))
}

// Div divides s by o elementwise on the overlap of their domains.
func (s *SpectralQty) Div(o *SpectralQty) (*SpectralQty, error) {
	grid, err := overlap(s, o, "division")
	if err != nil {
		return nil, err
	}
	values := make([]float64, len(grid))
	for i, wl := range grid {
		values[i] = s.interp(wl) / o.interp(wl)
	}
	return NewSpectralQty(grid, values, s.Unit.Div(o.Unit))
}

// Scale multiplies every sample by a bare dimensionless factor.
func (s *SpectralQty) Scale(f float64) *SpectralQty {
	out := s.Clone()
	for i := range out.Value {
		out.Value[i] *= f
	}
	return out
}

// MulQuantity multiplies every sample by a dimensioned scalar.
func (s *SpectralQty) MulQuantity(q Quantity) *SpectralQty {
	out := s.Scale(q.Value)
	out.Unit = s.Unit.Mul(q.Unit)
	return out
}

// DivQuantity divides every sample by a dimensioned scalar.
func (s *SpectralQty) DivQuantity(q Quantity) *SpectralQty {
	out := s.Scale(1 / q.Value)
	out.Unit = s.Unit.Div(q.Unit)
	return out
}

// Apply maps every sample through fn(wl, value), retagging the result.
func (s *SpectralQty) Apply(unit Unit, fn func(wl, v float64) float64) *SpectralQty {
	out := s.Clone()
	for i, wl := range out.Wavelength {
		out.Value[i] = fn(wl, out.Value[i])
	}
	out.Unit = unit
	return out
}

// Integrate sums value x bin-width over the grid using the trapezoidal rule,
// dropping the per-wavelength factor from the dimension.
func (s *SpectralQty) Integrate() Quantity {
	if len(s.Wavelength) == 1 {
		return Quantity{Value: 0, Unit: s.Unit.Mul(Meter)}
	}
	return Quantity{
		Value: integrate.Trapezoidal(s.Wavelength, s.Value),
		Unit:  s.Unit.Mul(Meter),
	}
}

// Equal compares grids and values within a relative tolerance.
func (s *SpectralQty) Equal(o *SpectralQty, relTol float64) bool {
	if !s.Unit.Equal(o.Unit) || len(s.Wavelength) != len(o.Wavelength) {
		return false
	}
	const absTol = 1e-30
	for i := range s.Wavelength {
		if !closeRelAbs(s.Wavelength[i], o.Wavelength[i], relTol, absTol) {
			return false
		}
		if !closeRelAbs(s.Value[i], o.Value[i], relTol, absTol) {
			return false
		}
	}
	return true
}

func closeRelAbs(a, b, relTol, absTol float64) bool {
	d := math.Abs(a - b)
	return d <= absTol || d <= relTol*math.Max(math.Abs(a), math.Abs(b))
}
