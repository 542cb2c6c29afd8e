package etc

import "math"

const (
	solveMaxIter = 200
	solveTol     = 1e-12
)

// bisect finds a root of fn in [lo, hi]. fn(lo) and fn(hi) must bracket zero.
func bisect(fn func(float64) float64, lo, hi float64, what string) (float64, error) {
	flo, fhi := fn(lo), fn(hi)
	if flo == 0 {
		return lo, nil
	}
	if fhi == 0 {
		return hi, nil
	}
	if flo*fhi > 0 {
		return 0, &NoSolutionError{What: what, Detail: "interval does not bracket a root"}
	}
	for i := 0; i < solveMaxIter; i++ {
		mid := 0.5 * (lo + hi)
		fmid := fn(mid)
		if fmid == 0 || (hi-lo) <= solveTol*math.Max(1, math.Abs(mid)) {
			return mid, nil
		}
		if flo*fmid < 0 {
			hi = mid
		} else {
			lo, flo = mid, fmid
		}
	}
	return 0, &NoSolutionError{What: what, Detail: "bisection did not converge"}
}

// newton refines a root of fn starting at x0 using the secant method.
func newton(fn func(float64) float64, x0 float64, what string) (float64, error) {
	x1 := x0 * (1 + 1e-4)
	if x1 == x0 {
		x1 = x0 + 1e-4
	}
	f0, f1 := fn(x0), fn(x1)
	for i := 0; i < solveMaxIter; i++ {
		if f1 == f0 {
			return 0, &NoSolutionError{What: what, Detail: "flat function in secant iteration"}
		}
		x2 := x1 - f1*(x1-x0)/(f1-f0)
		if math.Abs(x2-x1) <= solveTol*math.Max(1, math.Abs(x2)) {
			return x2, nil
		}
		x0, f0 = x1, f1
		x1, f1 = x2, fn(x2)
	}
	return 0, &NoSolutionError{What: what, Detail: "secant iteration did not converge"}
}

// goldenMin locates a local minimum of fn in [lo, hi] by golden-section
// search.
func goldenMin(fn func(float64) float64, lo, hi float64) float64 {
	const phi = 0.6180339887498949
	a, b := lo, hi
	c := b - phi*(b-a)
	d := a + phi*(b-a)
	fc, fd := fn(c), fn(d)
	for i := 0; i < solveMaxIter && (b-a) > solveTol*math.Max(1, math.Abs(a)+math.Abs(b)); i++ {
		if fc < fd {
			b, d, fd = d, c, fc
			c = b - phi*(b-a)
			fc = fn(c)
		} else {
			a, c, fc = c, d, fd
			d = a + phi*(b-a)
			fd = fn(d)
		}
	}
	return 0.5 * (a + b)
}

// quadraticPositiveRoot solves a t^2 + b t + c = 0 and returns the largest
// real positive root.
func quadraticPositiveRoot(a, b, c float64, what string) (float64, error) {
	if a == 0 {
		if b == 0 {
			return 0, &NoSolutionError{What: what, Detail: "degenerate quadratic"}
		}
		t := -c / b
		if t <= 0 {
			return 0, &NoSolutionError{What: what, Detail: "no positive root"}
		}
		return t, nil
	}
	disc := b*b - 4*a*c
	if disc < 0 {
		return 0, &NoSolutionError{What: what, Detail: "complex roots"}
	}
	sq := math.Sqrt(disc)
	t := (-b + sq) / (2 * a)
	if t2 := (-b - sq) / (2 * a); t2 > t {
		t = t2
	}
	if t <= 0 {
		return 0, &NoSolutionError{What: what, Detail: "no positive root"}
	}
	return t, nil
}
