package etc

import (
	"fmt"
	"strings"
)

// Unit is a physical dimension expressed as integer exponents over the base
// dimensions used by the calculator. All values carrying a Unit are stored in
// coherent SI (wavelengths in meters, powers in watts, temperatures in
// kelvins), so two quantities with equal Units can be combined directly.
type Unit struct {
	Length   int8
	Mass     int8
	Time     int8
	Temp     int8
	Sr       int8 // solid angle
	Photon   int8
	Electron int8
	Pixel    int8
	Mag      int8 // logarithmic magnitude tag, never mixed into spectral arithmetic
}

// Base and derived units of the calculator.
var (
	Dimensionless = Unit{}
	Meter         = Unit{Length: 1}
	Second        = Unit{Time: 1}
	Kelvin        = Unit{Temp: 1}
	Steradian     = Unit{Sr: 1}
	Photon        = Unit{Photon: 1}
	Electron      = Unit{Electron: 1}
	Pixel         = Unit{Pixel: 1}

	// Watt = kg m^2 s^-3
	Watt = Unit{Mass: 1, Length: 2, Time: -3}
	// Joule = kg m^2 s^-2
	Joule = Unit{Mass: 1, Length: 2, Time: -2}
	// Hertz = s^-1
	Hertz = Unit{Time: -1}

	// FluxDensity is spectral flux density: W m^-2 per meter of wavelength.
	FluxDensity = Unit{Mass: 1, Length: -1, Time: -3}
	// Radiance is spectral radiance: W m^-2 sr^-1 per meter of wavelength.
	Radiance = Unit{Mass: 1, Length: -1, Time: -3, Sr: -1}
	// FluxDensityPerHz is flux density per unit frequency: W m^-2 Hz^-1.
	FluxDensityPerHz = Unit{Mass: 1, Time: -2}
	// RadiancePerHz is radiance per unit frequency: W m^-2 Hz^-1 sr^-1.
	RadiancePerHz = Unit{Mass: 1, Time: -2, Sr: -1}

	// JoulePerPhoton is the energy of a single photon.
	JoulePerPhoton = Unit{Mass: 1, Length: 2, Time: -2, Photon: -1}
	// ElectronPerPhoton is a quantum efficiency.
	ElectronPerPhoton = Unit{Electron: 1, Photon: -1}
	// ElectronPerSecond is an electron current.
	ElectronPerSecond = Unit{Electron: 1, Time: -1}
	// ElectronPerPixelSecond is a per-pixel electron current (dark current,
	// uniform background).
	ElectronPerPixelSecond = Unit{Electron: 1, Pixel: -1, Time: -1}
	// ElectronPerPixel is a per-pixel electron count (read noise, well depth).
	ElectronPerPixel = Unit{Electron: 1, Pixel: -1}
	// Magnitude is an apparent magnitude.
	Magnitude = Unit{Mag: 1}
)

// Mul returns the product dimension u*v.
func (u Unit) Mul(v Unit) Unit {
	return Unit{
		Length:   u.Length + v.Length,
		Mass:     u.Mass + v.Mass,
		Time:     u.Time + v.Time,
		Temp:     u.Temp + v.Temp,
		Sr:       u.Sr + v.Sr,
		Photon:   u.Photon + v.Photon,
		Electron: u.Electron + v.Electron,
		Pixel:    u.Pixel + v.Pixel,
		Mag:      u.Mag + v.Mag,
	}
}

// Div returns the quotient dimension u/v.
func (u Unit) Div(v Unit) Unit {
	return Unit{
		Length:   u.Length - v.Length,
		Mass:     u.Mass - v.Mass,
		Time:     u.Time - v.Time,
		Temp:     u.Temp - v.Temp,
		Sr:       u.Sr - v.Sr,
		Photon:   u.Photon - v.Photon,
		Electron: u.Electron - v.Electron,
		Pixel:    u.Pixel - v.Pixel,
		Mag:      u.Mag - v.Mag,
	}
}

func (u Unit) Equal(v Unit) bool { return u == v }

var unitNames = map[Unit]string{
	Dimensionless:          "-",
	Meter:                  "m",
	Second:                 "s",
	Kelvin:                 "K",
	Steradian:              "sr",
	Watt:                   "W",
	Joule:                  "J",
	Hertz:                  "Hz",
	FluxDensity:            "W m^-3",
	Radiance:               "W m^-3 sr^-1",
	FluxDensityPerHz:       "W m^-2 Hz^-1",
	RadiancePerHz:          "W m^-2 Hz^-1 sr^-1",
	ElectronPerSecond:      "e- s^-1",
	ElectronPerPixelSecond: "e- pix^-1 s^-1",
	ElectronPerPixel:       "e- pix^-1",
	ElectronPerPhoton:      "e- ph^-1",
}

func (u Unit) String() string {
	if name, ok := unitNames[u]; ok {
		return name
	}
	var b strings.Builder
	dim := func(sym string, exp int8) {
		if exp == 0 {
			return
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		if exp == 1 {
			b.WriteString(sym)
		} else {
			fmt.Fprintf(&b, "%s^%d", sym, exp)
		}
	}
	dim("m", u.Length)
	dim("kg", u.Mass)
	dim("s", u.Time)
	dim("K", u.Temp)
	dim("sr", u.Sr)
	dim("ph", u.Photon)
	dim("e-", u.Electron)
	dim("pix", u.Pixel)
	dim("mag", u.Mag)
	if b.Len() == 0 {
		return "-"
	}
	return b.String()
}

// Quantity is a scalar value tagged with its physical dimension.
type Quantity struct {
	Value float64
	Unit  Unit
}

func (q Quantity) String() string { return fmt.Sprintf("%g %s", q.Value, q.Unit) }

// Conversion factors into the internal SI representation.
const (
	Nanometer  = 1e-9 // m
	Micrometer = 1e-6 // m
	// PerNanometer converts a per-nm spectral density into a per-m density.
	PerNanometer = 1e9
	// Arcsec converts an angle in arc seconds to radians.
	Arcsec = 4.84813681109536e-6
)
