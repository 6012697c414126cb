package renderer

import (
	"github.com/go-faster/errors"

	"github.com/thereceipt/parcel-receipt/pkg/receiptformat"
)

const (
	columnGap      = 8
	defaultPadding = 4
	titleSize      = 22
)

// renderItem lays out two columns side by side. The row is as tall as the
// taller column.
func (r *Renderer) renderItem(cmd *receiptformat.Command) error {
	leftRatio, rightRatio := 1, 1
	if cmd.Ratio != "" {
		var err error
		if leftRatio, rightRatio, err = receiptformat.ParseRatio(cmd.Ratio); err != nil {
			return err
		}
	}

	available := r.width - columnGap
	leftWidth := available * leftRatio / (leftRatio + rightRatio)
	rightWidth := available - leftWidth

	left := r.child(leftWidth)
	if _, err := left.Render(cmd.Left); err != nil {
		return errors.Wrap(err, "left")
	}
	right := r.child(rightWidth)
	if _, err := right.Render(cmd.Right); err != nil {
		return errors.Wrap(err, "right")
	}

	leftImg, rightImg := left.content(), right.content()
	height := max(leftImg.Bounds().Dy(), rightImg.Bounds().Dy())

	r.ensureHeight(height)
	r.ctx.DrawImage(leftImg, 0, int(r.y))
	r.ctx.DrawImage(rightImg, leftWidth+columnGap, int(r.y))
	r.y += float64(height)

	return nil
}

// renderFolder draws a titled group of commands, boxed when Border is set.
func (r *Renderer) renderFolder(cmd *receiptformat.Command) error {
	padding := cmd.Padding
	if padding <= 0 {
		padding = defaultPadding
	}
	border := max(cmd.Border, 0)
	inset := border + padding

	inner := r.child(r.width - 2*inset)
	if cmd.Title != "" {
		title := receiptformat.Command{Type: receiptformat.TypeText, Value: cmd.Title, Bold: true, Size: titleSize}
		if err := inner.RenderCommand(&title); err != nil {
			return errors.Wrap(err, "title")
		}
	}
	if _, err := inner.Render(cmd.Commands); err != nil {
		return err
	}

	img := inner.content()
	boxHeight := img.Bounds().Dy() + 2*inset

	r.ensureHeight(boxHeight)
	top := r.y
	r.ctx.DrawImage(img, inset, int(top)+inset)

	if border > 0 {
		half := float64(border) / 2
		r.ctx.SetColor(textColor)
		r.ctx.SetLineWidth(float64(border))
		r.ctx.DrawRectangle(half, top+half, float64(r.width)-float64(border), float64(boxHeight)-float64(border))
		r.ctx.Stroke()
	}

	r.y += float64(boxHeight)

	return nil
}
