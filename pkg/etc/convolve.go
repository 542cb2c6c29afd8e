package etc

import "gonum.org/v1/gonum/dsp/fourier"

// convolveSame computes the linear convolution of signal and kernel via FFT
// and returns the central len(signal) samples.
func convolveSame(signal, kernel []float64) []float64 {
	n := len(signal) + len(kernel) - 1
	fft := fourier.NewFFT(n)

	a := make([]float64, n)
	copy(a, signal)
	b := make([]float64, n)
	copy(b, kernel)

	ca := fft.Coefficients(nil, a)
	cb := fft.Coefficients(nil, b)
	for i := range ca {
		ca[i] *= cb[i]
	}
	full := fft.Sequence(nil, ca)
	// The inverse transform is unnormalized.
	for i := range full {
		full[i] /= float64(n)
	}
	off := (len(kernel) - 1) / 2
	return full[off : off+len(signal)]
}
