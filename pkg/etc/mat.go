package etc

import "math"

// Shared matrix helpers on top of the backend Mat type. All of them operate
// on contiguous mats.

func bilinearAt(m Mat, y, x float64) float64 {
	r0 := int(math.Floor(y))
	c0 := int(math.Floor(x))
	fy := y - float64(r0)
	fx := x - float64(c0)
	clampR := func(r int) int {
		if r < 0 {
			return 0
		}
		if r >= m.Rows() {
			return m.Rows() - 1
		}
		return r
	}
	clampC := func(c int) int {
		if c < 0 {
			return 0
		}
		if c >= m.Cols() {
			return m.Cols() - 1
		}
		return c
	}
	v00 := m.At(clampR(r0), clampC(c0))
	v01 := m.At(clampR(r0), clampC(c0+1))
	v10 := m.At(clampR(r0+1), clampC(c0))
	v11 := m.At(clampR(r0+1), clampC(c0+1))
	return v00*(1-fy)*(1-fx) + v01*(1-fy)*fx + v10*fy*(1-fx) + v11*fy*fx
}

func matSum(m Mat) float64 {
	var sum float64
	for r := 0; r < m.Rows(); r++ {
		for c := 0; c < m.Cols(); c++ {
			sum += m.At(r, c)
		}
	}
	return sum
}

func matMax(m Mat) float64 {
	max := math.Inf(-1)
	for r := 0; r < m.Rows(); r++ {
		for c := 0; c < m.Cols(); c++ {
			if v := m.At(r, c); v > max {
				max = v
			}
		}
	}
	return max
}

func matScale(m *Mat, f float64) {
	for r := 0; r < m.Rows(); r++ {
		for c := 0; c < m.Cols(); c++ {
			m.Set(r, c, m.At(r, c)*f)
		}
	}
}

// mulElem multiplies a elementwise by b in place.
func mulElem(a *Mat, b Mat) {
	for r := 0; r < a.Rows(); r++ {
		for c := 0; c < a.Cols(); c++ {
			a.Set(r, c, a.At(r, c)*b.At(r, c))
		}
	}
}

// blockSum downsamples by summing factor x factor blocks. Rows and cols must
// be divisible by factor.
func blockSum(m Mat, factor int) Mat {
	out := NewMatWithSize(m.Rows()/factor, m.Cols()/factor)
	for r := 0; r < m.Rows(); r++ {
		for c := 0; c < m.Cols(); c++ {
			rr, cc := r/factor, c/factor
			out.Set(rr, cc, out.At(rr, cc)+m.At(r, c))
		}
	}
	return out
}

// padZero embeds m centered in a zero matrix grown by pad on every side.
func padZero(m Mat, pad int) Mat {
	out := NewMatWithSize(m.Rows()+2*pad, m.Cols()+2*pad)
	for r := 0; r < m.Rows(); r++ {
		for c := 0; c < m.Cols(); c++ {
			out.Set(r+pad, c+pad, m.At(r, c))
		}
	}
	return out
}
