package etc

import (
	"log/slog"
	"math"
)

// ApertureShape selects the footprint of the photometric aperture.
type ApertureShape int

const (
	ApertureCircle ApertureShape = iota
	ApertureSquare
)

func (s ApertureShape) String() string {
	if s == ApertureSquare {
		return "square"
	}
	return "circle"
}

// PixelMask is the exposure mask of a detector pixel array. Aperture pixels
// hold 1, all others 0, until a PSF maps its per-pixel energy fractions onto
// the exposed pixels.
type PixelMask struct {
	Grid      Mat
	PixelSize float64 // m, square pixels

	// Array center and PSF center in index coordinates (row, col).
	CenterRow    float64
	CenterCol    float64
	PSFCenterRow float64
	PSFCenterCol float64
}

// NewPixelMask creates an all-zero mask for a cols x rows pixel array. The
// offset shifts the PSF center from the array center, in pixels (x, y).
func NewPixelMask(cols, rows int, pixelSize, offsetX, offsetY float64) (*PixelMask, error) {
	if cols < 1 || rows < 1 {
		return nil, configErrorf("PixelMask", "pixel array %dx%d not positive", cols, rows)
	}
	if pixelSize <= 0 {
		return nil, configErrorf("PixelMask", "pixel size %g m not positive", pixelSize)
	}
	centerRow := float64(rows)/2 - 0.5
	centerCol := float64(cols)/2 - 0.5
	return &PixelMask{
		Grid:         NewMatWithSize(rows, cols),
		PixelSize:    pixelSize,
		CenterRow:    centerRow,
		CenterCol:    centerCol,
		PSFCenterRow: centerRow + offsetY,
		PSFCenterCol: centerCol + offsetX,
	}, nil
}

// CreatePhotometricAperture marks the pixels of a circular or square aperture
// centered on the PSF center. For a square the radius is half the side
// length, in pixels.
func (m *PixelMask) CreatePhotometricAperture(shape ApertureShape, radius float64) error {
	if radius < 0 || math.IsNaN(radius) {
		return configErrorf("PixelMask", "aperture radius %g not valid", radius)
	}
	rows, cols := m.Grid.Rows(), m.Grid.Cols()
	xc, yc := m.PSFCenterCol, m.PSFCenterRow
	if xc+radius > float64(cols)-1 || xc-radius < 0 || yc+radius > float64(rows)-1 || yc-radius < 0 {
		slog.Warn("photometric aperture extends beyond the pixel array",
			"radius", radius, "rows", rows, "cols", cols)
	}
	switch shape {
	case ApertureCircle:
		rasterizeCircle(&m.Grid, radius, xc, yc)
	case ApertureSquare:
		left := clampIndex(int(math.Round(xc-radius+1e-6)), cols)
		right := clampIndex(int(math.Round(xc+radius-1e-6)), cols)
		top := clampIndex(int(math.Round(yc-radius+1e-6)), rows)
		bottom := clampIndex(int(math.Round(yc+radius-1e-6)), rows)
		for r := top; r <= bottom; r++ {
			for c := left; c <= right; c++ {
				m.Grid.Set(r, c, 1)
			}
		}
	default:
		return configErrorf("PixelMask", "unknown aperture shape %d", shape)
	}
	return nil
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}

// rasterizeCircle marks every pixel of the circle with center (xc, yc) and
// the given radius, scanning column-wise.
func rasterizeCircle(grid *Mat, radius, xc, yc float64) {
	rows, cols := grid.Rows(), grid.Cols()
	if radius == 0 {
		// Degenerate circle, expose the pixel containing the center.
		grid.Set(clampIndex(int(yc), rows), clampIndex(int(xc), cols), 1)
		return
	}
	for c := 0; c < cols; c++ {
		dx := float64(c) - xc
		if math.Abs(dx) > radius {
			continue
		}
		h := math.Sqrt(radius*radius - dx*dx)
		top := clampIndex(int(math.Round(yc-h)), rows)
		bottom := clampIndex(int(math.Round(yc+h)), rows)
		for r := top; r <= bottom; r++ {
			grid.Set(r, c, 1)
		}
	}
}

// nonZeroBounds returns the inclusive bounding box of all non-zero mask
// entries. ok is false for an all-zero mask.
func nonZeroBounds(m Mat) (rMin, rMax, cMin, cMax int, ok bool) {
	rMin, cMin = m.Rows(), m.Cols()
	rMax, cMax = -1, -1
	for r := 0; r < m.Rows(); r++ {
		for c := 0; c < m.Cols(); c++ {
			if m.At(r, c) != 0 {
				if r < rMin {
					rMin = r
				}
				if r > rMax {
					rMax = r
				}
				if c < cMin {
					cMin = c
				}
				if c > cMax {
					cMax = c
				}
			}
		}
	}
	return rMin, rMax, cMin, cMax, rMax >= 0
}
