package renderer

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereceipt/parcel-receipt/pkg/receiptformat"
)

func newRenderer(t *testing.T, paper string) *Renderer {
	t.Helper()
	r, err := New(&receiptformat.Document{Version: receiptformat.Version, PaperWidth: paper})
	require.NoError(t, err)
	return r
}

func text(v string) receiptformat.Command {
	return receiptformat.Command{Type: receiptformat.TypeText, Value: v}
}

func TestRender_Width(t *testing.T) {
	for paper, want := range map[string]int{
		receiptformat.Paper58:  384,
		receiptformat.Paper80:  576,
		receiptformat.Paper112: 832,
	} {
		img, err := newRenderer(t, paper).Render([]receiptformat.Command{text("hello")})
		require.NoError(t, err)
		assert.Equal(t, want, img.Bounds().Dx(), paper)
	}
}

func TestRender_TextAdvances(t *testing.T) {
	r := newRenderer(t, receiptformat.Paper80)

	require.NoError(t, r.RenderCommand(&receiptformat.Command{Type: receiptformat.TypeText, Value: "S36_20240115_01", Bold: true, Align: "center"}))
	first := r.Height()
	assert.Greater(t, first, 0)

	empty := text("")
	require.NoError(t, r.RenderCommand(&empty))
	assert.Equal(t, first, r.Height())

	feed := receiptformat.Command{Type: receiptformat.TypeFeed, Lines: 2}
	require.NoError(t, r.RenderCommand(&feed))
	assert.Equal(t, first+2*feedLineHeight, r.Height())
}

func TestRender_LongTextWraps(t *testing.T) {
	short := newRenderer(t, receiptformat.Paper58)
	_, err := short.Render([]receiptformat.Command{text("Box A")})
	require.NoError(t, err)

	long := newRenderer(t, receiptformat.Paper58)
	_, err = long.Render([]receiptformat.Command{text("a parcel name long enough to need several lines on narrow fifty eight millimetre paper rolls")})
	require.NoError(t, err)

	assert.Greater(t, long.Height(), short.Height())
}

func TestRender_CanvasGrows(t *testing.T) {
	r := newRenderer(t, receiptformat.Paper80)
	cmds := make([]receiptformat.Command, 0, 200)
	for i := 0; i < 200; i++ {
		cmds = append(cmds, text("line"))
	}

	img, err := r.Render(cmds)
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dy(), initialHeight)
}

func TestRender_Layout(t *testing.T) {
	r := newRenderer(t, receiptformat.Paper80)

	img, err := r.Render([]receiptformat.Command{
		{Type: receiptformat.TypeFolder, Title: "Box A", Border: 2, Commands: []receiptformat.Command{
			{
				Type:  receiptformat.TypeItem,
				Ratio: "2:1",
				Left:  []receiptformat.Command{text("Shipping")},
				Right: []receiptformat.Command{{Type: receiptformat.TypeText, Value: "50.00", Align: "right"}},
			},
		}},
		{Type: receiptformat.TypeDivider, Style: "dashed"},
		{Type: receiptformat.TypeDivider, Style: "double"},
	})
	require.NoError(t, err)

	// The folder border is drawn at the left edge.
	c := color.GrayModel.Convert(img.At(1, 10)).(color.Gray)
	assert.Less(t, c.Y, uint8(128))
}

func TestRender_Codes(t *testing.T) {
	r := newRenderer(t, receiptformat.Paper80)

	_, err := r.Render([]receiptformat.Command{
		{Type: receiptformat.TypeBarcode, Value: "S36_20240115_01"},
		{Type: receiptformat.TypeBarcode, Value: "S36-01", Format: "CODE39"},
		{Type: receiptformat.TypeQRCode, Value: "S36_20240115_01", Level: "H"},
	})
	require.NoError(t, err)
	assert.Greater(t, r.Height(), defaultBarcodeHeight*2)

	bad := receiptformat.Command{Type: receiptformat.TypeBarcode, Value: "not-digits", Format: "EAN13"}
	assert.Error(t, r.RenderCommand(&bad))
}

func TestRender_Base64Image(t *testing.T) {
	src := imaging.New(40, 20, color.Black)
	var buf bytes.Buffer
	require.NoError(t, EncodePNG(&buf, src))

	r := newRenderer(t, receiptformat.Paper58)
	cmd := receiptformat.Command{
		Type:   receiptformat.TypeImage,
		Base64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:  80,
	}
	require.NoError(t, r.RenderCommand(&cmd))
	assert.Equal(t, 40, r.Height())

	broken := receiptformat.Command{Type: receiptformat.TypeImage, Base64: "!!"}
	assert.Error(t, r.RenderCommand(&broken))
}

func TestRender_UnknownType(t *testing.T) {
	r := newRenderer(t, receiptformat.Paper80)
	_, err := r.Render([]receiptformat.Command{{Type: "hologram"}})
	assert.Error(t, err)
}

func TestMonochrome(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	src.Set(0, 0, color.NRGBA{R: 10, G: 10, B: 10, A: 255})
	src.Set(1, 0, color.NRGBA{R: 240, G: 240, B: 240, A: 255})
	src.Set(2, 0, color.NRGBA{A: 0})

	bw := Monochrome(src)
	assert.Equal(t, uint8(0), bw.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(255), bw.GrayAt(1, 0).Y)
	assert.Equal(t, uint8(255), bw.GrayAt(2, 0).Y)
}

func TestEncodePNG(t *testing.T) {
	img, err := newRenderer(t, receiptformat.Paper58).Render([]receiptformat.Command{text("preview")})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodePNG(&buf, img))
	assert.Equal(t, []byte("\x89PNG"), buf.Bytes()[:4])

	decoded, err := imaging.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds().Size(), decoded.Bounds().Size())
}
