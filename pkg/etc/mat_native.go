//go:build !purego && !js

package etc

import (
	"image"

	"gocv.io/x/gocv"
)

// Mat wraps gocv.Mat for the native OpenCV backend.
type Mat struct {
	m gocv.Mat
}

func NewMat() Mat { return Mat{m: gocv.NewMat()} }
func NewMatWithSize(rows, cols int) Mat {
	return Mat{m: gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV64F)}
}
func (mat Mat) Rows() int   { return mat.m.Rows() }
func (mat Mat) Cols() int   { return mat.m.Cols() }
func (mat Mat) Empty() bool { return mat.m.Empty() }
func (mat Mat) Clone() Mat  { return Mat{m: mat.m.Clone()} }
func (mat *Mat) Close()     { mat.m.Close() }

func (mat Mat) At(r, c int) float64      { return mat.m.GetDoubleAt(r, c) }
func (mat *Mat) Set(r, c int, v float64) { mat.m.SetDoubleAt(r, c, v) }

func (mat Mat) DataFloat64() []float64 {
	data, _ := mat.m.DataPtrFloat64()
	return data
}

// --- CV operations ---

func sepFilter2DZero(src Mat, dst *Mat, kernelX, kernelY Mat) {
	gocv.SepFilter2D(src.m, &dst.m, gocv.MatTypeCV64F, kernelX.m, kernelY.m, image.Pt(-1, -1), 0, gocv.BorderConstant)
}

func getGaussianKernel1D(size int, sigma float64) Mat {
	return Mat{m: gocv.GetGaussianKernel(size, sigma)}
}

func resizeBilinear(src Mat, dst *Mat, rows, cols int) {
	gocv.Resize(src.m, &dst.m, image.Pt(cols, rows), 0, 0, gocv.InterpolationLinear)
}
