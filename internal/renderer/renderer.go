// Package renderer draws resolved receipt commands onto a raster canvas.
package renderer

import (
	"image"
	"image/color"
	"os"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/go-faster/errors"
	"golang.org/x/image/font"

	"github.com/thereceipt/parcel-receipt/pkg/receiptformat"
)

const (
	initialHeight = 1000
	bottomMargin  = 24
	sideMargin    = 8
)

// systemFonts are tried in order when the document names no font.
var systemFonts = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
	"/System/Library/Fonts/Supplemental/Arial.ttf",
	"C:\\Windows\\Fonts\\arial.ttf",
}

// Renderer converts receipt commands to an image. The canvas grows as content
// is added and Image crops it to what was drawn.
type Renderer struct {
	width  int
	height int
	ctx    *gg.Context
	y      float64

	fontPath string
	faces    map[float64]font.Face
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithFont makes path the preferred TTF font.
func WithFont(path string) Option {
	return func(r *Renderer) {
		if path != "" {
			r.fontPath = path
		}
	}
}

// WithWidth overrides the canvas width in pixels.
func WithWidth(px int) Option {
	return func(r *Renderer) {
		if px > 0 {
			r.width = px
		}
	}
}

// New creates a renderer sized for the document's paper width.
func New(doc *receiptformat.Document, opts ...Option) (*Renderer, error) {
	r := &Renderer{
		width:  receiptformat.PaperPixels(doc.PaperWidth),
		height: initialHeight,
		faces:  make(map[float64]font.Face),
	}
	if doc.Font != "" {
		r.fontPath = doc.Font
	}
	for _, opt := range opts {
		opt(r)
	}

	r.fontPath = resolveFont(r.fontPath)
	r.ctx = blankContext(r.width, r.height)

	return r, nil
}

// Render draws every command and returns the cropped result.
func (r *Renderer) Render(cmds []receiptformat.Command) (image.Image, error) {
	for i := range cmds {
		if err := r.RenderCommand(&cmds[i]); err != nil {
			return nil, errors.Wrapf(err, "render command[%d] %s", i, cmds[i].Type)
		}
	}
	return r.Image(), nil
}

// RenderCommand draws one resolved command below the previous content.
func (r *Renderer) RenderCommand(cmd *receiptformat.Command) error {
	switch cmd.Type {
	case receiptformat.TypeText:
		return r.renderText(cmd)
	case receiptformat.TypeFeed:
		return r.renderFeed(cmd)
	case receiptformat.TypeCut:
		return r.renderCut()
	case receiptformat.TypeDivider:
		return r.renderDivider(cmd)
	case receiptformat.TypeImage:
		return r.renderImage(cmd)
	case receiptformat.TypeBarcode:
		return r.renderBarcode(cmd)
	case receiptformat.TypeQRCode:
		return r.renderQRCode(cmd)
	case receiptformat.TypeItem:
		return r.renderItem(cmd)
	case receiptformat.TypeFolder:
		return r.renderFolder(cmd)
	default:
		return errors.Errorf("unsupported command type: %s", cmd.Type)
	}
}

// Image returns the drawn content cropped to its height.
func (r *Renderer) Image() image.Image {
	h := int(r.y) + bottomMargin
	if h > r.height {
		h = r.height
	}
	return imaging.Crop(r.ctx.Image(), image.Rect(0, 0, r.width, h))
}

// Height is the current drawing position.
func (r *Renderer) Height() int {
	return int(r.y)
}

// child returns an empty renderer of the given width sharing font settings.
func (r *Renderer) child(width int) *Renderer {
	if width < 1 {
		width = 1
	}
	return &Renderer{
		width:    width,
		height:   initialHeight,
		ctx:      blankContext(width, initialHeight),
		fontPath: r.fontPath,
		faces:    r.faces,
	}
}

// content returns the child's drawing without the bottom margin.
func (r *Renderer) content() image.Image {
	h := int(r.y)
	if h < 1 {
		h = 1
	}
	return imaging.Crop(r.ctx.Image(), image.Rect(0, 0, r.width, h))
}

func (r *Renderer) ensureHeight(needed int) {
	if int(r.y)+needed <= r.height {
		return
	}

	newHeight := r.height * 2
	if newHeight < int(r.y)+needed {
		newHeight = int(r.y) + needed + initialHeight
	}

	ctx := blankContext(r.width, newHeight)
	ctx.DrawImage(r.ctx.Image(), 0, 0)

	r.ctx = ctx
	r.height = newHeight
}

func blankContext(width, height int) *gg.Context {
	ctx := gg.NewContext(width, height)
	ctx.SetColor(color.White)
	ctx.Clear()
	ctx.SetColor(color.Black)
	return ctx
}

func resolveFont(preferred string) string {
	if preferred != "" {
		if _, err := os.Stat(preferred); err == nil {
			return preferred
		}
	}
	for _, path := range systemFonts {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
