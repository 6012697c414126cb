package renderer

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
	"github.com/go-faster/errors"

	"github.com/thereceipt/parcel-receipt/pkg/receiptformat"
)

const threshold = 128

func (r *Renderer) renderImage(cmd *receiptformat.Command) error {
	var (
		img image.Image
		err error
	)
	switch {
	case cmd.Base64 != "":
		data, decErr := base64.StdEncoding.DecodeString(cmd.Base64)
		if decErr != nil {
			return errors.Wrap(decErr, "decode base64 image")
		}
		img, err = imaging.Decode(bytes.NewReader(data))
	case cmd.Path != "":
		img, err = imaging.Open(cmd.Path, imaging.AutoOrientation(true))
	default:
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "load image")
	}

	width := cmd.Width
	if width <= 0 || width > r.width {
		width = r.width
	}
	if img.Bounds().Dx() != width {
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}

	bw := Monochrome(img)
	h := bw.Bounds().Dy()

	r.ensureHeight(h)
	r.ctx.DrawImage(bw, (r.width-width)/2, int(r.y))
	r.y += float64(h)

	return nil
}

// Monochrome thresholds img to pure black and white, the only tones a thermal
// head can print.
func Monochrome(img image.Image) *image.Gray {
	gray := imaging.Grayscale(img)
	b := gray.Bounds()
	bw := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := gray.NRGBAAt(b.Min.X+x, b.Min.Y+y)
			// Transparent pixels print as paper.
			if c.A < 128 || c.R >= threshold {
				bw.SetGray(x, y, color.Gray{Y: 255})
			} else {
				bw.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}

	return bw
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		return errors.Wrap(err, "encode png")
	}
	return nil
}
