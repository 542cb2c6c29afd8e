package etc

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// SpectrumCurve labels a spectral quantity for plotting.
type SpectrumCurve struct {
	Label    string
	Spectrum *SpectralQty
}

// PlotSpectra writes a wavelength plot of the given curves to a file. The
// x axis is in microns, the y axis carries the values as they are.
func PlotSpectra(title, yLabel, outputPath string, curves ...SpectrumCurve) error {
	if len(curves) == 0 {
		return configErrorf("PlotSpectra", "no curves to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Wavelength [um]"
	p.Y.Label.Text = yLabel
	p.Legend.Top = true

	for i, curve := range curves {
		if curve.Spectrum == nil || len(curve.Spectrum.Wavelength) == 0 {
			return configErrorf("PlotSpectra", "curve %q has no data", curve.Label)
		}
		pts := make(plotter.XYs, len(curve.Spectrum.Wavelength))
		for j, wl := range curve.Spectrum.Wavelength {
			pts[j].X = wl * 1e6
			pts[j].Y = curve.Spectrum.Value[j]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("plotting curve %q: %w", curve.Label, err)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(curve.Label, line)
	}

	if err := p.Save(7*vg.Inch, 5*vg.Inch, outputPath); err != nil {
		return fmt.Errorf("saving plot: %w", err)
	}
	return nil
}

// PlotSNRCurve writes a log-log plot of SNR against exposure time to a file,
// sampling n points between tMin and tMax. Exposure times that saturate the
// detector are left out.
func PlotSNRCurve(det Detector, tMin, tMax float64, n int, outputPath string) error {
	if tMin <= 0 || tMax <= tMin {
		return configErrorf("PlotSNRCurve", "bad exposure time range [%g, %g]", tMin, tMax)
	}
	if n < 2 {
		n = 2
	}

	pts := make(plotter.XYs, 0, n)
	step := math.Log(tMax/tMin) / float64(n-1)
	for i := 0; i < n; i++ {
		t := tMin * math.Exp(float64(i)*step)
		snr, err := det.SNR(t)
		if err != nil {
			var sat *SaturationError
			if errors.As(err, &sat) {
				continue
			}
			return err
		}
		pts = append(pts, plotter.XY{X: t, Y: snr})
	}
	if len(pts) == 0 {
		return configErrorf("PlotSNRCurve", "no usable exposure times in [%g, %g]", tMin, tMax)
	}

	p := plot.New()
	p.Title.Text = "SNR vs exposure time"
	p.X.Label.Text = "Exposure time [s]"
	p.Y.Label.Text = "SNR"
	p.X.Scale = plot.LogScale{}
	p.Y.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("plotting SNR curve: %w", err)
	}
	line.Color = plotutil.Color(0)
	p.Add(line)

	if err := p.Save(7*vg.Inch, 5*vg.Inch, outputPath); err != nil {
		return fmt.Errorf("saving plot: %w", err)
	}
	return nil
}
