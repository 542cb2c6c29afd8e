package specio

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"esboetc/pkg/etc"
)

// SpectrumOptions sets the units assumed for a two-column spectrum file when
// the file itself does not name them in its column headers.
type SpectrumOptions struct {
	WlScale  float64  // meters per wavelength-column unit
	Unit     etc.Unit // unit of the quantity column after scaling
	QtyScale float64  // SI factor for the quantity column
}

// TransmittanceOptions reads wavelengths in nanometers and a dimensionless
// second column, the common format for filter and coating curves.
func TransmittanceOptions() SpectrumOptions {
	return SpectrumOptions{WlScale: 1e-9, Unit: etc.Dimensionless, QtyScale: 1}
}

// FluxOptions reads wavelengths in nanometers and flux densities in
// W m^-2 nm^-1.
func FluxOptions() SpectrumOptions {
	return SpectrumOptions{WlScale: 1e-9, Unit: etc.FluxDensity, QtyScale: 1e9}
}

// RadianceOptions reads wavelengths in nanometers and radiances in
// W m^-2 nm^-1 sr^-1.
func RadianceOptions() SpectrumOptions {
	return SpectrumOptions{WlScale: 1e-9, Unit: etc.Radiance, QtyScale: 1e9}
}

var headerUnitRe = regexp.MustCompile(`\[([^\]]+)\]`)

// ReadSpectrum reads a two-column wavelength/value table from a CSV or
// whitespace-separated file. Lines starting with '#' are skipped. A leading
// non-numeric row is treated as a column header; bracketed unit tokens in it,
// such as "wavelength [um]" or "flux [W/m^2/nm]", override opts.
func ReadSpectrum(filePath string, opts SpectrumOptions) (*etc.SpectralQty, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening spectrum file: %w", err)
	}
	defer f.Close()

	if opts.WlScale == 0 {
		opts.WlScale = 1e-9
	}
	if opts.QtyScale == 0 {
		opts.QtyScale = 1
	}

	var wl, values []float64
	first := true
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := splitColumns(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("spectrum file %s: need two columns, got %q", filePath, line)
		}
		w, werr := strconv.ParseFloat(fields[0], 64)
		v, verr := strconv.ParseFloat(fields[1], 64)
		if werr != nil || verr != nil {
			if first {
				// Column header row; pick up unit tokens if present.
				if err := applyHeaderUnits(fields, &opts); err != nil {
					return nil, fmt.Errorf("spectrum file %s: %w", filePath, err)
				}
				first = false
				continue
			}
			return nil, fmt.Errorf("spectrum file %s: bad row %q", filePath, line)
		}
		first = false
		wl = append(wl, w*opts.WlScale)
		values = append(values, v*opts.QtyScale)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading spectrum file %s: %w", filePath, err)
	}
	if len(wl) == 0 {
		return nil, fmt.Errorf("spectrum file %s: no data rows", filePath)
	}

	sq, err := etc.NewSpectralQty(wl, values, opts.Unit)
	if err != nil {
		return nil, fmt.Errorf("spectrum file %s: %w", filePath, err)
	}
	return sq, nil
}

func splitColumns(line string) []string {
	if strings.Contains(line, ",") {
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return strings.Fields(line)
}

func applyHeaderUnits(fields []string, opts *SpectrumOptions) error {
	wlTok := headerUnitRe.FindStringSubmatch(fields[0])
	qtyTok := headerUnitRe.FindStringSubmatch(fields[1])
	if wlTok == nil && qtyTok == nil {
		return nil
	}
	if wlTok != nil {
		scale, ok := wavelengthScale(wlTok[1])
		if !ok {
			return fmt.Errorf("unknown wavelength unit %q", wlTok[1])
		}
		opts.WlScale = scale
	}
	if qtyTok != nil {
		unit, scale, ok := quantityUnit(qtyTok[1])
		if !ok {
			return fmt.Errorf("unknown quantity unit %q", qtyTok[1])
		}
		opts.Unit = unit
		opts.QtyScale = scale
	}
	return nil
}

func wavelengthScale(token string) (float64, bool) {
	switch strings.TrimSpace(token) {
	case "nm":
		return 1e-9, true
	case "um", "µm", "micron":
		return 1e-6, true
	case "mm":
		return 1e-3, true
	case "cm":
		return 1e-2, true
	case "m":
		return 1, true
	}
	return 0, false
}

func quantityUnit(token string) (etc.Unit, float64, bool) {
	norm := strings.NewReplacer(" ", "", "(", "", ")", "", "**", "^", "µ", "u").
		Replace(strings.TrimSpace(token))
	switch norm {
	case "", "1", "-":
		return etc.Dimensionless, 1, true
	case "W/m^2/nm", "W/nm/m^2":
		return etc.FluxDensity, 1e9, true
	case "W/m^2/um", "W/um/m^2":
		return etc.FluxDensity, 1e6, true
	case "W/m^2/m", "W/m^3":
		return etc.FluxDensity, 1, true
	case "W/m^2/nm/sr", "W/m^2/sr/nm":
		return etc.Radiance, 1e9, true
	case "W/m^2/um/sr", "W/m^2/sr/um":
		return etc.Radiance, 1e6, true
	case "W/m^2/m/sr", "W/m^3/sr":
		return etc.Radiance, 1, true
	case "e-/photon", "electron/photon":
		return etc.ElectronPerPhoton, 1, true
	}
	return etc.Unit{}, 0, false
}
