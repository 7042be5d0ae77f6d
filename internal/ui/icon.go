package ui

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
)

const (
	// TrayIconSize is the edge of the rendered tray icon in pixels.
	TrayIconSize = 64
	trayMargin   = 4
)

// CircleImage draws a filled anti-aliased circle of color c, inset by
// margin pixels, on a transparent size x size canvas.
func CircleImage(c color.NRGBA, size, margin int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	center := float64(size) / 2
	radius := center - float64(margin)
	if radius <= 0 {
		return img
	}

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			coverage := pixelCoverage(float64(x), float64(y), center, radius)
			if coverage == 0 {
				continue
			}
			px := c
			px.A = uint8(float64(c.A) * coverage)
			img.SetNRGBA(x, y, px)
		}
	}
	return img
}

// pixelCoverage samples the pixel on a 4x4 grid.
func pixelCoverage(x, y, center, radius float64) float64 {
	const n = 4
	inside := 0
	r2 := radius * radius
	for sy := 0; sy < n; sy++ {
		for sx := 0; sx < n; sx++ {
			dx := x + (float64(sx)+0.5)/n - center
			dy := y + (float64(sy)+0.5)/n - center
			if dx*dx+dy*dy <= r2 {
				inside++
			}
		}
	}
	return float64(inside) / (n * n)
}

// TrayIconPNG renders the tray icon for color c as PNG bytes.
func TrayIconPNG(c color.NRGBA) []byte {
	var buf bytes.Buffer
	// Encoding an in-memory NRGBA image cannot fail.
	_ = png.Encode(&buf, CircleImage(c, TrayIconSize, trayMargin))
	return buf.Bytes()
}

// wrapICO embeds PNG data in a single-image ICO container, which the
// Windows tray requires.
func wrapICO(pngData []byte, size int) []byte {
	var buf bytes.Buffer
	dim := byte(size)
	if size >= 256 {
		dim = 0
	}

	// ICONDIR
	_ = binary.Write(&buf, binary.LittleEndian, []uint16{0, 1, 1})
	// ICONDIRENTRY
	buf.Write([]byte{dim, dim, 0, 0})
	_ = binary.Write(&buf, binary.LittleEndian, []uint16{1, 32})
	_ = binary.Write(&buf, binary.LittleEndian, []uint32{uint32(len(pngData)), 22})
	buf.Write(pngData)
	return buf.Bytes()
}
