// Package colorutil provides shared color utilities for the marker locator.
package colorutil

import (
	"fmt"
	"image/color"
)

// Overlay colors used when annotating processed frames.
var (
	Red   = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	Green = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Blue  = color.RGBA{R: 0, G: 0, B: 255, A: 255}
)

// Bit masks of the packed 5-6-5 layout, first channel in the high bits.
const (
	Mask565First  = 0xF800
	Mask565Second = 0x07E0
	Mask565Third  = 0x001F
)

// Triple is an ordered set of three channel intensities. The channel
// meaning follows the raster it was sampled from (B,G,R for the converted
// rasters produced by the pipeline).
type Triple [3]uint8

// String formats the triple as "[c0,c1,c2]".
func (t Triple) String() string {
	return fmt.Sprintf("[%d,%d,%d]", t[0], t[1], t[2])
}

// Pack565 packs three 8-bit channels into a 16-bit value: 5 bits of a,
// 6 bits of b, 5 bits of c.
func Pack565(a, b, c uint8) uint16 {
	return uint16(a&0xF8)<<8 | uint16(b&0xFC)<<3 | uint16(c)>>3
}

// Unpack565 is the inverse of Pack565. Dropped low bits come back as zero,
// so each channel loses at most its 3 (or 2 for b) low bits.
func Unpack565(v uint16) (a, b, c uint8) {
	hb := uint8(v >> 8)
	lb := uint8(v)
	a = hb & 0xF8
	b = (hb&0x07)<<5 | (lb&0xE0)>>3
	c = (lb & 0x1F) << 3
	return a, b, c
}

