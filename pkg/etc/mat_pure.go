//go:build purego || js

package etc

import "math"

// Mat is a pure Go 2D float64 matrix.
type Mat struct {
	data []float64
	rows int
	cols int
}

func NewMat() Mat { return Mat{} }

func NewMatWithSize(rows, cols int) Mat {
	return Mat{
		data: make([]float64, rows*cols),
		rows: rows,
		cols: cols,
	}
}

func (m Mat) Rows() int   { return m.rows }
func (m Mat) Cols() int   { return m.cols }
func (m Mat) Empty() bool { return m.data == nil || m.rows == 0 || m.cols == 0 }

func (m Mat) Clone() Mat {
	newData := make([]float64, len(m.data))
	copy(newData, m.data)
	return Mat{data: newData, rows: m.rows, cols: m.cols}
}

func (m *Mat) Close() {
	m.data = nil
	m.rows = 0
	m.cols = 0
}

func (m Mat) At(r, c int) float64 {
	return m.data[r*m.cols+c]
}

func (m *Mat) Set(r, c int, v float64) {
	m.data[r*m.cols+c] = v
}

// DataFloat64 returns the backing float64 slice.
func (m Mat) DataFloat64() []float64 {
	return m.data
}

// --- Pure Go CV operations ---

func sepFilter2DZero(src Mat, dst *Mat, kernelX, kernelY Mat) {
	rows, cols := src.rows, src.cols
	srcData := src.DataFloat64()
	kx := kernelX.DataFloat64()
	ky := kernelY.DataFloat64()
	kxLen := kernelX.rows * kernelX.cols
	kyLen := kernelY.rows * kernelY.cols
	kxHalf := kxLen / 2
	kyHalf := kyLen / 2

	if dst.rows != rows || dst.cols != cols || dst.data == nil {
		*dst = NewMatWithSize(rows, cols)
	}

	temp := make([]float64, rows*cols)

	// Horizontal pass, values outside the image count as zero
	for r := 0; r < rows; r++ {
		rowOff := r * cols
		for c := 0; c < cols; c++ {
			var sum float64
			for k := 0; k < kxLen; k++ {
				cc := c + k - kxHalf
				if cc < 0 || cc >= cols {
					continue
				}
				sum += srcData[rowOff+cc] * kx[k]
			}
			temp[rowOff+c] = sum
		}
	}

	// Vertical pass
	dstData := dst.DataFloat64()
	for r := 0; r < rows; r++ {
		dstOff := r * cols
		for c := 0; c < cols; c++ {
			var sum float64
			for k := 0; k < kyLen; k++ {
				rr := r + k - kyHalf
				if rr < 0 || rr >= rows {
					continue
				}
				sum += temp[rr*cols+c] * ky[k]
			}
			dstData[dstOff+c] = sum
		}
	}
}

func getGaussianKernel1D(size int, sigma float64) Mat {
	m := NewMatWithSize(size, 1)
	data := m.DataFloat64()
	half := size / 2
	sum := 0.0
	for i := 0; i < size; i++ {
		x := float64(i - half)
		val := math.Exp(-x * x / (2 * sigma * sigma))
		data[i] = val
		sum += val
	}
	for i := range data[:size] {
		data[i] /= sum
	}
	return m
}

func resizeBilinear(src Mat, dst *Mat, rows, cols int) {
	if dst.rows != rows || dst.cols != cols || dst.data == nil {
		*dst = NewMatWithSize(rows, cols)
	}
	scaleY := float64(src.rows) / float64(rows)
	scaleX := float64(src.cols) / float64(cols)
	for r := 0; r < rows; r++ {
		sy := (float64(r)+0.5)*scaleY - 0.5
		for c := 0; c < cols; c++ {
			sx := (float64(c)+0.5)*scaleX - 0.5
			dst.Set(r, c, bilinearAt(src, sy, sx))
		}
	}
}
