package renderer

import (
	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/code39"
	"github.com/boombuler/barcode/ean"
	"github.com/go-faster/errors"
	"github.com/skip2/go-qrcode"

	"github.com/thereceipt/parcel-receipt/pkg/receiptformat"
)

const (
	defaultBarcodeHeight = 80
	defaultQRSize        = 240
	codeSpacing          = 10
)

func (r *Renderer) renderBarcode(cmd *receiptformat.Command) error {
	if cmd.Value == "" {
		return nil
	}

	var (
		code barcode.Barcode
		err  error
	)
	switch cmd.Format {
	case "CODE39":
		code, err = code39.Encode(cmd.Value, false, true)
	case "EAN13":
		code, err = ean.Encode(cmd.Value)
	default:
		code, err = code128.Encode(cmd.Value)
	}
	if err != nil {
		return errors.Wrapf(err, "encode barcode %q", cmd.Value)
	}

	height := cmd.Height
	if height <= 0 {
		height = defaultBarcodeHeight
	}

	// Scale by whole modules so bars stay crisp.
	modules := code.Bounds().Dx()
	width := cmd.Width
	if width <= 0 {
		width = (r.width - 2*sideMargin) / modules * modules
	}
	if width < modules {
		width = modules
	}

	scaled, err := barcode.Scale(code, width, height)
	if err != nil {
		return errors.Wrap(err, "scale barcode")
	}

	r.drawCentered(scaled.Bounds().Dx(), scaled.Bounds().Dy(), func(x, y int) {
		r.ctx.DrawImage(scaled, x, y)
	})
	return nil
}

func (r *Renderer) renderQRCode(cmd *receiptformat.Command) error {
	if cmd.Value == "" {
		return nil
	}

	level := qrcode.Medium
	switch cmd.Level {
	case "L":
		level = qrcode.Low
	case "Q":
		level = qrcode.High
	case "H":
		level = qrcode.Highest
	}

	qr, err := qrcode.New(cmd.Value, level)
	if err != nil {
		return errors.Wrap(err, "encode qrcode")
	}
	qr.DisableBorder = true

	size := cmd.Width
	if size <= 0 {
		size = defaultQRSize
	}
	size = min(size, r.width-2*sideMargin)

	img := qr.Image(size)
	r.drawCentered(img.Bounds().Dx(), img.Bounds().Dy(), func(x, y int) {
		r.ctx.DrawImage(img, x, y)
	})
	return nil
}

func (r *Renderer) drawCentered(w, h int, draw func(x, y int)) {
	r.ensureHeight(h + codeSpacing)
	draw((r.width-w)/2, int(r.y))
	r.y += float64(h + codeSpacing)
}
