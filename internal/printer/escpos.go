// Package printer sends rendered receipts to ESC/POS thermal printers.
package printer

import (
	"bytes"
	"image"
	"image/color"
)

// ESC/POS control bytes.
const (
	ESC byte = 0x1B
	GS  byte = 0x1D
	LF  byte = 0x0A
)

// Encoder accumulates ESC/POS commands.
type Encoder struct {
	buf bytes.Buffer
}

// NewEncoder creates an empty encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Initialize resets the printer to its power-on state.
func (e *Encoder) Initialize() *Encoder {
	e.buf.Write([]byte{ESC, '@'})
	return e
}

// Align sets justification for subsequent text and raster output.
func (e *Encoder) Align(align string) *Encoder {
	var n byte
	switch align {
	case "center":
		n = 1
	case "right":
		n = 2
	}
	e.buf.Write([]byte{ESC, 'a', n})
	return e
}

// Raster prints img as a GS v 0 raster bit image. Dark pixels print.
// Tall images are split into bands of at most maxBandHeight rows so each
// command stays within common printer buffer limits.
func (e *Encoder) Raster(img image.Image) *Encoder {
	const maxBandHeight = 255

	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	bytesPerRow := (width + 7) / 8
	bitmap := packBits(img)

	for top := 0; top < height; top += maxBandHeight {
		rows := min(maxBandHeight, height-top)
		e.buf.Write([]byte{
			GS, 'v', '0', 0,
			byte(bytesPerRow), byte(bytesPerRow >> 8),
			byte(rows), byte(rows >> 8),
		})
		e.buf.Write(bitmap[top*bytesPerRow : (top+rows)*bytesPerRow])
	}
	return e
}

// Text writes raw bytes followed by a line feed.
func (e *Encoder) Text(s string) *Encoder {
	e.buf.WriteString(s)
	e.buf.WriteByte(LF)
	return e
}

// Feed advances the paper n lines.
func (e *Encoder) Feed(n int) *Encoder {
	if n <= 0 {
		return e
	}
	e.buf.Write([]byte{ESC, 'd', byte(min(n, 255))})
	return e
}

// Cut feeds to the cutter and performs a partial cut.
func (e *Encoder) Cut() *Encoder {
	e.buf.Write([]byte{GS, 'V', 66, 0})
	return e
}

// Bytes returns the encoded commands.
func (e *Encoder) Bytes() []byte {
	return e.buf.Bytes()
}

// EncodeReceipt produces the full byte stream for one printed receipt.
func EncodeReceipt(img image.Image) []byte {
	return NewEncoder().
		Initialize().
		Align("center").
		Raster(img).
		Feed(3).
		Cut().
		Bytes()
}

// packBits converts img to a 1-bit MSB-first bitmap, rows padded to a byte.
func packBits(img image.Image) []byte {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	bytesPerRow := (width + 7) / 8
	bitmap := make([]byte, bytesPerRow*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			_, _, _, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			if a >= 0x8000 && c.Y < 128 {
				bitmap[y*bytesPerRow+x/8] |= 0x80 >> (x % 8)
			}
		}
	}
	return bitmap
}
