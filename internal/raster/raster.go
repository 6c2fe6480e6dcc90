// Package raster holds the pixel operations of compositing: cloning,
// cropping, tiling, drawing sections and encoding the result.
package raster

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"
)

// Clone returns a deep copy with the same bounds.
func Clone(src *image.RGBA) *image.RGBA {
	if src == nil {
		return nil
	}
	dst := image.NewRGBA(src.Rect)
	xdraw.Draw(dst, src.Rect, src, src.Rect.Min, xdraw.Src)
	return dst
}

// Crop copies r out of src into a new raster whose origin is (0, 0). r is
// clipped to the bounds of src.
func Crop(src image.Image, r image.Rectangle) *image.RGBA {
	r = r.Intersect(src.Bounds())
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	xdraw.Copy(dst, image.Point{}, src, r, xdraw.Src, nil)
	return dst
}

func FillColor(dst *image.RGBA, c color.Color) {
	xdraw.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{}, xdraw.Src)
}

// TileVertical repeats tile down the full height of dst, composited over
// what is already there.
func TileVertical(dst *image.RGBA, tile image.Image) {
	tb := tile.Bounds()
	if tb.Dy() <= 0 || tb.Dx() <= 0 {
		return
	}
	db := dst.Bounds()
	for y := db.Min.Y; y < db.Max.Y; y += tb.Dy() {
		r := image.Rect(db.Min.X, y, db.Min.X+tb.Dx(), y+tb.Dy()).Intersect(db)
		xdraw.Draw(dst, r, tile, tb.Min, xdraw.Over)
	}
}

/*
DrawSection composites src onto dst with its top edge at y, centred
horizontally when narrower than dst. A src that is more than one pixel off
the expected width or height is first rescaled to it. It returns the height
that was drawn.
*/
func DrawSection(dst *image.RGBA, src image.Image, y, wantWidth, wantHeight int) int {
	sb := src.Bounds()
	w, h := sb.Dx(), sb.Dy()

	if absInt(w-wantWidth) > 1 || absInt(h-wantHeight) > 1 {
		scaled := image.NewRGBA(image.Rect(0, 0, wantWidth, wantHeight))
		xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), src, sb, xdraw.Over, nil)
		src, sb = scaled, scaled.Bounds()
		w, h = wantWidth, wantHeight
	}

	x := 0
	if dw := dst.Bounds().Dx(); w < dw {
		x = (dw - w) / 2
	}
	r := image.Rect(x, y, x+w, y+h).Add(dst.Bounds().Min)
	xdraw.Draw(dst, r, src, sb.Min, xdraw.Over)
	return h
}

// Scaled rounds a CSS pixel length at scale to device pixels.
func Scaled(v, scale float64) int {
	return int(math.Round(v * scale))
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
