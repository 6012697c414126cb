package renderer

import (
	"image/color"

	"github.com/thereceipt/parcel-receipt/pkg/receiptformat"
)

var textColor = color.Black

const dividerHeight = 16

func (r *Renderer) renderDivider(cmd *receiptformat.Command) error {
	r.ensureHeight(dividerHeight)

	y := r.y + dividerHeight/2
	x1 := float64(sideMargin)
	x2 := float64(r.width - sideMargin)

	r.ctx.SetColor(textColor)
	r.ctx.SetLineWidth(2)

	switch cmd.Style {
	case "double":
		r.ctx.DrawLine(x1, y-2, x2, y-2)
		r.ctx.DrawLine(x1, y+2, x2, y+2)
		r.ctx.Stroke()
	case "dashed":
		const dash, gap = 10.0, 5.0
		for x := x1; x < x2; x += dash + gap {
			end := x + dash
			if end > x2 {
				end = x2
			}
			r.ctx.DrawLine(x, y, end, y)
		}
		r.ctx.Stroke()
	default:
		r.ctx.DrawLine(x1, y, x2, y)
		r.ctx.Stroke()
	}

	r.y += dividerHeight

	return nil
}
