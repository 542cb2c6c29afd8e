// Package specio loads spectral tables and PSF grids from files and hands
// them to pkg/etc as SI quantities.
package specio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"esboetc/pkg/etc"
)

// FitsHeader holds parsed FITS header key-value pairs of the primary HDU.
type FitsHeader struct {
	Records map[string]string
}

// NewFitsHeader creates an empty FitsHeader.
func NewFitsHeader() *FitsHeader {
	return &FitsHeader{Records: make(map[string]string)}
}

func (h *FitsHeader) GetString(key string) string {
	if v, ok := h.Records[strings.ToUpper(key)]; ok {
		return v
	}
	return ""
}

func (h *FitsHeader) GetDouble(key string) (float64, bool) {
	v, ok := h.Records[strings.ToUpper(key)]
	if !ok {
		return 0, false
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return d, true
}

func (h *FitsHeader) GetInt(key string) (int, bool) {
	v, ok := h.Records[strings.ToUpper(key)]
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return i, true
}

// FitsGrid holds the primary HDU of a FITS file as a float64 raster.
type FitsGrid struct {
	Data   []float64 // row-major, NAXIS2 rows of NAXIS1 columns
	Width  int
	Height int
	Header *FitsHeader
}

func (g *FitsGrid) At(row, col int) float64 { return g.Data[row*g.Width+col] }

// ReadFits reads the primary HDU header and image from a FITS file.
func ReadFits(filePath string) (*FitsGrid, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening FITS file: %w", err)
	}
	defer f.Close()
	return readFitsFromReader(f)
}

// ReadFitsFromBytes reads the primary HDU header and image from a byte slice.
func ReadFitsFromBytes(data []byte) (*FitsGrid, error) {
	return readFitsFromReader(bytes.NewReader(data))
}

func readFitsFromReader(r io.Reader) (*FitsGrid, error) {
	var bitpix, naxis, width, height int
	bzero := 0.0
	bscale := 1.0
	headerDone := false
	header := NewFitsHeader()

	recordBuf := make([]byte, 80)

	for !headerDone {
		for i := 0; i < 36; i++ {
			_, err := io.ReadFull(r, recordBuf)
			if err != nil {
				return nil, fmt.Errorf("reading FITS header record: %w", err)
			}
			record := string(recordBuf)
			keyword := strings.TrimSpace(record[:8])

			if keyword == "END" {
				headerDone = true
				remaining := 35 - i
				if remaining > 0 {
					skipBuf := make([]byte, remaining*80)
					io.ReadFull(r, skipBuf)
				}
				break
			}

			if len(record) > 10 && record[8] == '=' && record[9] == ' ' {
				rawValue := strings.TrimSpace(strings.SplitN(record[10:], "/", 2)[0])
				parsedValue := parseFitsValue(rawValue)

				if keyword != "" && parsedValue != "" {
					header.Records[strings.ToUpper(keyword)] = parsedValue
				}

				switch keyword {
				case "BITPIX":
					bitpix, _ = strconv.Atoi(strings.TrimSpace(rawValue))
				case "NAXIS":
					naxis, _ = strconv.Atoi(strings.TrimSpace(rawValue))
				case "NAXIS1":
					width, _ = strconv.Atoi(strings.TrimSpace(rawValue))
				case "NAXIS2":
					height, _ = strconv.Atoi(strings.TrimSpace(rawValue))
				case "BZERO":
					bzero, _ = strconv.ParseFloat(strings.TrimSpace(rawValue), 64)
				case "BSCALE":
					bscale, _ = strconv.ParseFloat(strings.TrimSpace(rawValue), 64)
				}
			}
		}
	}

	if naxis < 2 || width == 0 || height == 0 {
		return nil, fmt.Errorf("invalid FITS: NAXIS=%d, NAXIS1=%d, NAXIS2=%d", naxis, width, height)
	}

	numPixels := width * height
	data := make([]float64, numPixels)

	switch bitpix {
	case 8:
		rawBytes := make([]byte, numPixels)
		if _, err := io.ReadFull(r, rawBytes); err != nil {
			return nil, fmt.Errorf("reading 8-bit pixel data: %w", err)
		}
		for i := 0; i < numPixels; i++ {
			data[i] = float64(rawBytes[i])*bscale + bzero
		}

	case 16:
		rawBytes := make([]byte, numPixels*2)
		if _, err := io.ReadFull(r, rawBytes); err != nil {
			return nil, fmt.Errorf("reading 16-bit pixel data: %w", err)
		}
		for i := 0; i < numPixels; i++ {
			signedVal := int16(binary.BigEndian.Uint16(rawBytes[i*2:]))
			data[i] = float64(signedVal)*bscale + bzero
		}

	case 32:
		rawBytes := make([]byte, numPixels*4)
		if _, err := io.ReadFull(r, rawBytes); err != nil {
			return nil, fmt.Errorf("reading 32-bit pixel data: %w", err)
		}
		for i := 0; i < numPixels; i++ {
			intVal := int32(binary.BigEndian.Uint32(rawBytes[i*4:]))
			data[i] = float64(intVal)*bscale + bzero
		}

	case -32:
		rawBytes := make([]byte, numPixels*4)
		if _, err := io.ReadFull(r, rawBytes); err != nil {
			return nil, fmt.Errorf("reading -32 float pixel data: %w", err)
		}
		for i := 0; i < numPixels; i++ {
			intBits := binary.BigEndian.Uint32(rawBytes[i*4:])
			data[i] = float64(math.Float32frombits(intBits))*bscale + bzero
		}

	case -64:
		rawBytes := make([]byte, numPixels*8)
		if _, err := io.ReadFull(r, rawBytes); err != nil {
			return nil, fmt.Errorf("reading -64 float pixel data: %w", err)
		}
		for i := 0; i < numPixels; i++ {
			intBits := binary.BigEndian.Uint64(rawBytes[i*8:])
			data[i] = math.Float64frombits(intBits)*bscale + bzero
		}

	default:
		return nil, fmt.Errorf("unsupported BITPIX: %d", bitpix)
	}

	return &FitsGrid{
		Data:   data,
		Width:  width,
		Height: height,
		Header: header,
	}, nil
}

func parseFitsValue(rawValue string) string {
	if rawValue == "" {
		return ""
	}
	if rawValue == "T" {
		return "True"
	}
	if rawValue == "F" {
		return "False"
	}
	if strings.HasPrefix(rawValue, "'") {
		endQuote := strings.LastIndex(rawValue, "'")
		if endQuote > 0 {
			return strings.TrimRight(rawValue[1:endQuote], " ")
		}
		return strings.TrimLeft(strings.TrimRight(rawValue, " "), "'")
	}
	return rawValue
}

const (
	micron      = 1e-6
	arcsecToRad = math.Pi / (180 * 3600)
)

// LoadGriddedPSF reads a PSF energy grid from a FITS file and builds a
// gridded PSF for the given optical setup.
//
// The grid step is taken from the XPIXSZ/YPIXSZ headers (in microns), or
// derived from a PSFSCALE header (in arcseconds on sky), and defaults to the
// detector pixel size. The PSF center defaults to the grid center unless
// XPSFCTR/YPSFCTR are present.
func LoadGriddedPSF(filePath string, fNumber, wl, dAperture, pixelSize float64,
	osf int) (*etc.GriddedPSF, error) {
	grid, err := ReadFits(filePath)
	if err != nil {
		return nil, err
	}

	var gridDelta [2]float64
	if x, ok := grid.Header.GetDouble("XPIXSZ"); ok {
		gridDelta[0] = x * micron
		gridDelta[1] = x * micron
		if y, ok := grid.Header.GetDouble("YPIXSZ"); ok {
			gridDelta[1] = y * micron
		}
	} else if scale, ok := grid.Header.GetDouble("PSFSCALE"); ok {
		d := 2 * fNumber * dAperture * math.Tan(scale/2*arcsecToRad)
		gridDelta = [2]float64{d, d}
	} else {
		gridDelta = [2]float64{pixelSize, pixelSize}
	}

	centerRow := float64(grid.Height) / 2
	centerCol := float64(grid.Width) / 2
	if r, ok := grid.Header.GetDouble("XPSFCTR"); ok {
		if c, ok := grid.Header.GetDouble("YPSFCTR"); ok {
			centerRow, centerCol = r, c
		}
	}

	psf := etc.NewMatWithSize(grid.Height, grid.Width)
	for r := 0; r < grid.Height; r++ {
		for c := 0; c < grid.Width; c++ {
			psf.Set(r, c, grid.At(r, c))
		}
	}

	return etc.NewGriddedPSF(psf, fNumber, wl, dAperture, pixelSize, osf,
		gridDelta, centerRow, centerCol)
}
