package etc

import (
	"errors"
	"math"
	"testing"
)

func testImagerParams(t *testing.T) ImagerParams {
	t.Helper()
	qe, err := ConstantSpectrum(testGrid(), 1, ElectronPerPhoton)
	if err != nil {
		t.Fatalf("ConstantSpectrum: %v", err)
	}
	p := NewImagerParams()
	p.QuantumEfficiency = qe
	p.PixelsX = 64
	p.PixelsY = 64
	p.PixelSize = 6.5e-6
	p.FNumber = 13
	p.DAperture = 0.5
	p.WlMin = 500 * Nanometer
	p.WlMax = 600 * Nanometer
	return p
}

func testImager(t *testing.T, p ImagerParams) *Imager {
	t.Helper()
	d, err := NewImager(testTarget(t), p)
	if err != nil {
		t.Fatalf("NewImager: %v", err)
	}
	return d
}

func TestImagerValidation(t *testing.T) {
	base := testImagerParams(t)
	tests := []struct {
		name   string
		mutate func(*ImagerParams)
	}{
		{"zero pixels", func(p *ImagerParams) { p.PixelsX = 0 }},
		{"zero pixel size", func(p *ImagerParams) { p.PixelSize = 0 }},
		{"inverted range", func(p *ImagerParams) { p.WlMax = p.WlMin }},
		{"missing qe", func(p *ImagerParams) { p.QuantumEfficiency = nil }},
		{"negative read noise", func(p *ImagerParams) { p.ReadNoise = -1 }},
		{"bad fraction", func(p *ImagerParams) { p.ContainedEnergy = EncircledFraction(1.5) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			if _, err := NewImager(testTarget(t), p); err == nil {
				t.Error("invalid parameters accepted")
			}
		})
	}
	t.Run("wrong qe unit", func(t *testing.T) {
		p := base
		p.QuantumEfficiency, _ = ConstantSpectrum(testGrid(), 1, Dimensionless)
		if _, err := NewImager(testTarget(t), p); err == nil {
			t.Error("dimensionless quantum efficiency accepted")
		}
	})
}

func TestImagerShotNoiseLimit(t *testing.T) {
	// With no background, dark current or read noise the SNR follows the
	// square root of the exposure time.
	d := testImager(t, testImagerParams(t))
	snr1, err := d.SNR(100)
	if err != nil {
		t.Fatalf("SNR(100): %v", err)
	}
	snr2, err := d.SNR(400)
	if err != nil {
		t.Fatalf("SNR(400): %v", err)
	}
	if snr1 <= 0 {
		t.Fatalf("SNR(100) = %g, want > 0", snr1)
	}
	if ratio := snr2 / snr1; math.Abs(ratio-2) > 1e-9 {
		t.Errorf("SNR(400)/SNR(100) = %g, want 2", ratio)
	}
}

func TestImagerExposureTimeRoundTrip(t *testing.T) {
	p := testImagerParams(t)
	p.ReadNoise = 3
	p.DarkCurrent = 1
	d := testImager(t, p)
	snr, err := d.SNR(50)
	if err != nil {
		t.Fatalf("SNR: %v", err)
	}
	expTime, err := d.ExposureTime(snr)
	if err != nil {
		t.Fatalf("ExposureTime: %v", err)
	}
	if math.Abs(expTime-50)/50 > 1e-9 {
		t.Errorf("ExposureTime(SNR(50)) = %g s, want 50 s", expTime)
	}
}

func TestImagerNoiseReducesSNR(t *testing.T) {
	clean := testImager(t, testImagerParams(t))
	noisyParams := testImagerParams(t)
	noisyParams.ReadNoise = 10
	noisyParams.DarkCurrent = 5
	noisy := testImager(t, noisyParams)

	cleanSNR, err := clean.SNR(100)
	if err != nil {
		t.Fatalf("clean SNR: %v", err)
	}
	noisySNR, err := noisy.SNR(100)
	if err != nil {
		t.Fatalf("noisy SNR: %v", err)
	}
	if noisySNR >= cleanSNR {
		t.Errorf("noisy SNR %g not below clean SNR %g", noisySNR, cleanSNR)
	}
}

func TestImagerSaturation(t *testing.T) {
	p := testImagerParams(t)
	p.WellCapacity = 1
	d := testImager(t, p)
	_, err := d.SNR(3600)
	var sat *SaturationError
	if !errors.As(err, &sat) {
		t.Fatalf("SNR on a full well returned %v, want saturation", err)
	}
	if sat.PeakElectrons <= sat.WellCapacity {
		t.Errorf("peak %g electrons not above well capacity %g", sat.PeakElectrons, sat.WellCapacity)
	}
}

func TestImagerSensitivity(t *testing.T) {
	// Shot-noise limited, so the limiting magnitude follows directly from
	// the SNR at the current magnitude.
	d := testImager(t, testImagerParams(t))
	const expTime, snrTarget = 100.0, 5.0
	snr0, err := d.SNR(expTime)
	if err != nil {
		t.Fatalf("SNR: %v", err)
	}
	mag, err := d.Sensitivity(expTime, snrTarget, 0)
	if err != nil {
		t.Fatalf("Sensitivity: %v", err)
	}
	want := 5 * math.Log10(snr0/snrTarget)
	if math.Abs(mag-want) > 1e-6 {
		t.Errorf("limiting magnitude = %g, want %g", mag, want)
	}
}

func TestImagerContainedPixels(t *testing.T) {
	p := testImagerParams(t)
	p.ContainedPixels = 16
	d := testImager(t, p)
	maps, err := d.Maps()
	if err != nil {
		t.Fatalf("Maps: %v", err)
	}
	if maps.AperturePixels != 16 {
		t.Errorf("aperture pixels = %d, want 16", maps.AperturePixels)
	}
}

func TestImagerExtendedSource(t *testing.T) {
	radiance, err := ConstantSpectrum(testGrid(), 1e3, Radiance)
	if err != nil {
		t.Fatalf("ConstantSpectrum: %v", err)
	}
	target, err := NewFileTarget(radiance, testGrid(), ExtendedSource)
	if err != nil {
		t.Fatalf("NewFileTarget: %v", err)
	}
	d, err := NewImager(target, testImagerParams(t))
	if err != nil {
		t.Fatalf("NewImager: %v", err)
	}
	maps, err := d.Maps()
	if err != nil {
		t.Fatalf("Maps: %v", err)
	}
	if maps.AperturePixels != 1 {
		t.Errorf("aperture pixels = %d, want 1 for an extended source", maps.AperturePixels)
	}
	if maps.ApertureRadius != 0 {
		t.Errorf("aperture radius = %g, want 0", maps.ApertureRadius)
	}
	snr, err := d.SNR(100)
	if err != nil {
		t.Fatalf("SNR: %v", err)
	}
	if snr <= 0 {
		t.Errorf("SNR = %g, want > 0", snr)
	}
}

func TestImagerMaps(t *testing.T) {
	d := testImager(t, testImagerParams(t))
	maps, err := d.Maps()
	if err != nil {
		t.Fatalf("Maps: %v", err)
	}
	if maps.FrameRows != 64 || maps.FrameCols != 64 {
		t.Errorf("frame = %dx%d, want 64x64", maps.FrameRows, maps.FrameCols)
	}
	if maps.Signal.Rows() > 64 || maps.Signal.Cols() > 64 {
		t.Errorf("region %dx%d larger than the frame", maps.Signal.Rows(), maps.Signal.Cols())
	}
	if maps.AperturePixels < 1 {
		t.Errorf("aperture pixels = %d, want at least 1", maps.AperturePixels)
	}
	if total := matSum(maps.Signal); total <= 0 {
		t.Errorf("total signal current = %g, want > 0", total)
	}
	if maps.ApertureRow != 31.5 || maps.ApertureCol != 31.5 {
		t.Errorf("aperture center = (%g, %g), want (31.5, 31.5)", maps.ApertureRow, maps.ApertureCol)
	}
}
