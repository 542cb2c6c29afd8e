package etc

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// RenderExposureOverlay generates a JPG image of the exposed detector region
// and writes it to a file.
func RenderExposureOverlay(maps *ExposureMaps, outputPath string) error {
	img, err := renderExposureImage(maps)
	if err != nil {
		return err
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create overlay file: %w", err)
	}
	defer f.Close()

	return jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
}

// RenderExposureOverlayBytes generates a JPG image of the exposed detector
// region and returns it as JPEG bytes.
func RenderExposureOverlayBytes(maps *ExposureMaps) ([]byte, error) {
	img, err := renderExposureImage(maps)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// renderExposureImage creates the overlay image in memory.
func renderExposureImage(maps *ExposureMaps) (*image.RGBA, error) {
	if maps == nil || maps.Signal.Empty() {
		return nil, fmt.Errorf("no exposure map data")
	}

	rows := maps.Signal.Rows()
	cols := maps.Signal.Cols()

	// Render at a fixed width; each detector pixel becomes a square block.
	const targetWidth = 800
	block := targetWidth / cols
	if block < 1 {
		block = 1
	}
	if block > 64 {
		block = 64
	}
	imgW := cols * block
	imgH := rows * block

	// Reserve space for summary text at bottom
	summaryH := 60
	totalH := imgH + summaryH

	img := image.NewRGBA(image.Rect(0, 0, imgW, totalH))

	// Black background
	for y := 0; y < totalH; y++ {
		for x := 0; x < imgW; x++ {
			img.Set(x, y, color.RGBA{0, 0, 0, 255})
		}
	}

	peak := matMax(maps.Signal)

	// Fill detector pixels with color scaled by the per-pixel signal current
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			cl := currentColor(maps.Signal.At(r, c), peak)
			x0, y0 := c*block, r*block
			for y := y0; y < y0+block; y++ {
				for x := x0; x < x0+block; x++ {
					img.Set(x, y, cl)
				}
			}
		}
	}

	// Draw pixel grid lines when blocks are large enough to separate
	if block >= 8 {
		gridColor := color.RGBA{70, 70, 70, 255}
		for c := 0; c <= cols; c++ {
			x := c * block
			if x >= imgW {
				x = imgW - 1
			}
			for y := 0; y < imgH; y++ {
				img.Set(x, y, gridColor)
			}
		}
		for r := 0; r <= rows; r++ {
			y := r * block
			if y >= imgH {
				y = imgH - 1
			}
			for x := 0; x < imgW; x++ {
				img.Set(x, y, gridColor)
			}
		}
	}

	// Draw the photometric aperture circle
	if maps.ApertureRadius > 0 {
		cx := int((maps.ApertureCol - float64(maps.OriginCol) + 0.5) * float64(block))
		cy := int((maps.ApertureRow - float64(maps.OriginRow) + 0.5) * float64(block))
		radius := int(maps.ApertureRadius * float64(block))
		drawCircle(img, cx, cy, radius, color.RGBA{255, 255, 255, 200})
	}

	// Summary text at bottom
	face := basicfont.Face7x13
	summaryColor := color.RGBA{220, 220, 220, 255}
	summaryY := imgH + 15
	apertureStr := fmt.Sprintf("Aperture: r=%.2f px, %d px exposed", maps.ApertureRadius, maps.AperturePixels)
	signalStr := fmt.Sprintf("Signal: %.4g e-/s total, %.4g e-/s peak", matSum(maps.Signal), peak)

	drawText(img, face, apertureStr, 10, summaryY, summaryColor)
	drawText(img, face, signalStr, 10, summaryY+18, summaryColor)

	return img, nil
}

// currentColor maps a per-pixel electron current onto a black-blue-orange-white
// heat scale, log-stretched against the peak.
func currentColor(v, peak float64) color.RGBA {
	if v <= 0 || peak <= 0 {
		return color.RGBA{0, 0, 0, 255}
	}
	// Log stretch over four decades below the peak.
	t := 1 + math.Log10(v/peak)/4
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}

	var r, g, b uint8
	switch {
	case t <= 0.4:
		s := t / 0.4
		b = uint8(40 + s*160)
		r = uint8(s * 20)
		g = uint8(s * 30)
	case t <= 0.8:
		s := (t - 0.4) / 0.4
		r = uint8(20 + s*235)
		g = uint8(30 + s*110)
		b = uint8(200 - s*170)
	default:
		s := (t - 0.8) / 0.2
		r = 255
		g = uint8(140 + s*115)
		b = uint8(30 + s*225)
	}
	return color.RGBA{r, g, b, 255}
}

// drawText draws a string at (x, y) using the given font face.
func drawText(img *image.RGBA, face font.Face, s string, x, y int, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// drawCircle draws a circle outline using midpoint algorithm.
func drawCircle(img *image.RGBA, cx, cy, radius int, c color.RGBA) {
	x := radius
	y := 0
	err := 0

	for x >= y {
		img.Set(cx+x, cy+y, c)
		img.Set(cx+y, cy+x, c)
		img.Set(cx-y, cy+x, c)
		img.Set(cx-x, cy+y, c)
		img.Set(cx-x, cy-y, c)
		img.Set(cx-y, cy-x, c)
		img.Set(cx+y, cy-x, c)
		img.Set(cx+x, cy-y, c)

		y++
		err += 1 + 2*y
		if 2*(err-x)+1 > 0 {
			x--
			err += 1 - 2*x
		}
	}
}
