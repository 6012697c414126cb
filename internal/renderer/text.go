package renderer

import (
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/thereceipt/parcel-receipt/pkg/receiptformat"
)

const (
	defaultTextSize = 24
	lineSpacing     = 6
	feedLineHeight  = 20
)

func (r *Renderer) renderText(cmd *receiptformat.Command) error {
	if cmd.Value == "" {
		return nil
	}

	size := cmd.Size
	if size <= 0 {
		size = defaultTextSize
	}
	r.ctx.SetFontFace(r.face(size))
	r.ctx.SetColor(textColor)

	maxWidth := float64(r.width - 2*sideMargin)
	lines := r.ctx.WordWrap(cmd.Value, maxWidth)
	if len(lines) == 0 {
		lines = []string{cmd.Value}
	}

	for _, line := range lines {
		w, h := r.ctx.MeasureString(line)
		r.ensureHeight(int(h) + lineSpacing)

		var x float64
		switch cmd.Align {
		case "center":
			x = (float64(r.width) - w) / 2
		case "right":
			x = float64(r.width) - w - sideMargin
		default:
			x = sideMargin
		}

		baseline := r.y + h
		r.ctx.DrawString(line, x, baseline)
		if cmd.Bold {
			r.ctx.DrawString(line, x+1, baseline)
		}

		r.y += h + lineSpacing
	}

	return nil
}

// face returns a cached face of the given size. Without a TTF font the fixed
// 7x13 bitmap face is used at every size.
func (r *Renderer) face(size float64) font.Face {
	if r.fontPath == "" {
		return basicfont.Face7x13
	}
	if f, ok := r.faces[size]; ok {
		return f
	}

	f, err := gg.LoadFontFace(r.fontPath, size)
	if err != nil {
		r.fontPath = ""
		return basicfont.Face7x13
	}
	r.faces[size] = f
	return f
}

func (r *Renderer) renderFeed(cmd *receiptformat.Command) error {
	lines := cmd.Lines
	if lines <= 0 {
		lines = 1
	}

	height := lines * feedLineHeight
	r.ensureHeight(height)
	r.y += float64(height)

	return nil
}

// renderCut leaves room for the blade; the cut itself is a printer command.
func (r *Renderer) renderCut() error {
	r.ensureHeight(feedLineHeight)
	r.y += feedLineHeight
	return nil
}
