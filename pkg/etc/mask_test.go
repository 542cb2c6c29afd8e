package etc

import "testing"

func TestNewPixelMaskCenter(t *testing.T) {
	mask, err := NewPixelMask(8, 8, 6.5e-6, 0.5, 0.5)
	if err != nil {
		t.Fatalf("NewPixelMask: %v", err)
	}
	defer mask.Grid.Close()
	if mask.CenterRow != 3.5 || mask.CenterCol != 3.5 {
		t.Errorf("array center = (%g, %g), want (3.5, 3.5)", mask.CenterRow, mask.CenterCol)
	}
	if mask.PSFCenterRow != 4 || mask.PSFCenterCol != 4 {
		t.Errorf("psf center = (%g, %g), want (4, 4)", mask.PSFCenterRow, mask.PSFCenterCol)
	}
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			if mask.Grid.At(r, c) != 0 {
				t.Fatalf("fresh mask not zero at (%d, %d)", r, c)
			}
		}
	}
}

func TestNewPixelMaskRejectsBadArgs(t *testing.T) {
	if _, err := NewPixelMask(0, 8, 6.5e-6, 0, 0); err == nil {
		t.Error("accepted zero columns")
	}
	if _, err := NewPixelMask(8, 8, 0, 0, 0); err == nil {
		t.Error("accepted zero pixel size")
	}
}

func TestRasterizeCircle(t *testing.T) {
	grid := NewMatWithSize(8, 8)
	defer grid.Close()
	rasterizeCircle(&grid, 2.6, 4.5, 3.8)

	want := [8][8]float64{
		{0, 0, 0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 1, 1, 0, 0},
		{0, 0, 0, 1, 1, 1, 1, 0},
		{0, 0, 1, 1, 1, 1, 1, 1},
		{0, 0, 1, 1, 1, 1, 1, 1},
		{0, 0, 1, 1, 1, 1, 1, 1},
		{0, 0, 0, 1, 1, 1, 1, 0},
		{0, 0, 0, 0, 0, 0, 0, 0},
	}
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			if got := grid.At(r, c); got != want[r][c] {
				t.Errorf("(%d, %d) = %g, want %g", r, c, got, want[r][c])
			}
		}
	}
}

func TestPhotometricApertureSquare(t *testing.T) {
	mask, err := NewPixelMask(8, 8, 6.5e-6, 0, 0)
	if err != nil {
		t.Fatalf("NewPixelMask: %v", err)
	}
	defer mask.Grid.Close()
	if err := mask.CreatePhotometricAperture(ApertureSquare, 1.5); err != nil {
		t.Fatalf("CreatePhotometricAperture: %v", err)
	}
	var count int
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			v := mask.Grid.At(r, c)
			inside := r >= 2 && r <= 5 && c >= 2 && c <= 5
			if inside && v != 1 {
				t.Errorf("(%d, %d) = %g inside the square, want 1", r, c, v)
			}
			if !inside && v != 0 {
				t.Errorf("(%d, %d) = %g outside the square, want 0", r, c, v)
			}
			if v != 0 {
				count++
			}
		}
	}
	if count != 16 {
		t.Errorf("exposed pixels = %d, want 16", count)
	}
}

func TestPhotometricApertureRejectsBadRadius(t *testing.T) {
	mask, err := NewPixelMask(8, 8, 6.5e-6, 0, 0)
	if err != nil {
		t.Fatalf("NewPixelMask: %v", err)
	}
	defer mask.Grid.Close()
	if err := mask.CreatePhotometricAperture(ApertureCircle, -1); err == nil {
		t.Error("accepted negative radius")
	}
}

func TestNonZeroBounds(t *testing.T) {
	m := NewMatWithSize(6, 6)
	defer m.Close()
	if _, _, _, _, ok := nonZeroBounds(m); ok {
		t.Error("all-zero mask reported bounds")
	}
	m.Set(2, 1, 1)
	m.Set(4, 3, 1)
	rMin, rMax, cMin, cMax, ok := nonZeroBounds(m)
	if !ok {
		t.Fatal("bounds not found")
	}
	if rMin != 2 || rMax != 4 || cMin != 1 || cMax != 3 {
		t.Errorf("bounds = (%d, %d, %d, %d), want (2, 4, 1, 3)", rMin, rMax, cMin, cMax)
	}
}
