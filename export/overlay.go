package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"

	xdraw "golang.org/x/image/draw"

	"github.com/parsemux/parsemux/model"
	"github.com/parsemux/parsemux/render"
)

// Outline colors, one per box kind.
var kindColors = map[model.BoxKind]color.RGBA{
	model.BoxText:  {R: 0x1f, G: 0x6f, B: 0xeb, A: 0xff},
	model.BoxImage: {R: 0xd6, G: 0x2c, B: 0x2c, A: 0xff},
	model.BoxTable: {R: 0x2e, G: 0xa0, B: 0x44, A: 0xff},
}

// OverlayOptions control overlay rendering. Zero values use the defaults.
type OverlayOptions struct {
	// MaxWidth caps the output width in pixels; wider rasters are scaled
	// down preserving aspect ratio. Default 1600.
	MaxWidth int

	// LineWidth is the outline stroke thickness in pixels. Default 3.
	LineWidth int
}

func (o *OverlayOptions) defaults() {
	if o.MaxWidth <= 0 {
		o.MaxWidth = 1600
	}
	if o.LineWidth <= 0 {
		o.LineWidth = 3
	}
}

// Overlay rasterizes one page of the original PDF and draws the page's
// bounding boxes on top of it, returning an encoded PNG. The page number is
// canonical (1-indexed); pdf must be the same bytes the parse consumed so
// boxes line up with the raster.
func Overlay(ctx context.Context, r *render.Rasterizer, pdf []byte, page *model.PageResult, opts OverlayOptions) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("overlay: no rasterizer")
	}
	if page == nil || page.PageNumber < 1 {
		return nil, fmt.Errorf("overlay: no page")
	}
	opts.defaults()

	imgs, err := r.RenderPages(ctx, pdf, []int{page.PageNumber - 1})
	if err != nil {
		return nil, fmt.Errorf("overlay: rasterize page %d: %w", page.PageNumber, err)
	}
	if len(imgs) == 0 {
		return nil, fmt.Errorf("overlay: page %d not rendered", page.PageNumber)
	}

	src, err := png.Decode(bytes.NewReader(imgs[0].PNG))
	if err != nil {
		return nil, fmt.Errorf("overlay: decode raster: %w", err)
	}

	annotated := Annotate(scaleToWidth(src, opts.MaxWidth), page.BoundingBoxes, opts)

	var buf bytes.Buffer
	if err := png.Encode(&buf, annotated); err != nil {
		return nil, fmt.Errorf("overlay: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Annotate draws box outlines onto a copy of src, color-coded by kind:
// text blue, image red, table green. Boxes are normalized to the page, so
// the raster can be at any scale.
func Annotate(src image.Image, boxes []model.BBox, opts OverlayOptions) *image.RGBA {
	opts.defaults()

	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	xdraw.Copy(dst, bounds.Min, src, bounds, xdraw.Src, nil)

	w := float64(bounds.Dx())
	h := float64(bounds.Dy())
	for _, b := range boxes {
		px := b.Clamped().Scaled(w, h)
		rect := image.Rect(
			bounds.Min.X+int(px.X0), bounds.Min.Y+int(px.Y0),
			bounds.Min.X+int(px.X1), bounds.Min.Y+int(px.Y1),
		)
		col, ok := kindColors[b.Kind]
		if !ok {
			col = kindColors[model.BoxText]
		}
		outlineRect(dst, rect.Intersect(bounds), col, opts.LineWidth)
	}
	return dst
}

// outlineRect strokes the four edges of r with the given thickness.
func outlineRect(dst *image.RGBA, r image.Rectangle, col color.RGBA, lw int) {
	if r.Empty() {
		return
	}
	u := image.NewUniform(col)
	edges := []image.Rectangle{
		{Min: r.Min, Max: image.Pt(r.Max.X, r.Min.Y+lw)},
		{Min: image.Pt(r.Min.X, r.Max.Y-lw), Max: r.Max},
		{Min: r.Min, Max: image.Pt(r.Min.X+lw, r.Max.Y)},
		{Min: image.Pt(r.Max.X-lw, r.Min.Y), Max: r.Max},
	}
	for _, e := range edges {
		xdraw.Draw(dst, e.Intersect(dst.Bounds()), u, image.Point{}, xdraw.Src)
	}
}

// scaleToWidth downsamples img to maxWidth when wider, preserving aspect
// ratio.
func scaleToWidth(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return img
	}
	outH := b.Dy() * maxWidth / b.Dx()
	if outH < 1 {
		outH = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, outH))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}
