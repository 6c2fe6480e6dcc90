package raster

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/sjc5/tessera/internal/common"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	FillColor(img, c)
	return img
}

func TestCloneIsIndependent(t *testing.T) {
	orig := solid(4, 4, color.RGBA{255, 0, 0, 255})
	clone := Clone(orig)
	clone.Set(0, 0, color.RGBA{0, 0, 255, 255})

	if got := orig.RGBAAt(0, 0); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("original pixel = %v after drawing on clone", got)
	}
	if clone.Bounds() != orig.Bounds() {
		t.Errorf("Clone() bounds = %v, want %v", clone.Bounds(), orig.Bounds())
	}
}

func TestCrop(t *testing.T) {
	src := solid(10, 10, color.RGBA{0, 0, 0, 255})
	src.Set(3, 2, color.RGBA{255, 255, 255, 255})

	got := Crop(src, image.Rect(3, 2, 8, 20))
	if got.Bounds() != image.Rect(0, 0, 5, 8) {
		t.Errorf("Crop() bounds = %v, want clipped 5x8 at origin", got.Bounds())
	}
	if c := got.RGBAAt(0, 0); c != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("Crop() origin pixel = %v, want the (3,2) source pixel", c)
	}
}

func TestTileVertical(t *testing.T) {
	tile := image.NewRGBA(image.Rect(0, 0, 2, 3))
	tile.Set(0, 0, color.RGBA{255, 0, 0, 255})

	dst := solid(2, 8, color.RGBA{0, 0, 0, 255})
	TileVertical(dst, tile)

	for _, y := range []int{0, 3, 6} {
		if c := dst.RGBAAt(0, y); c != (color.RGBA{255, 0, 0, 255}) {
			t.Errorf("pixel (0,%d) = %v, want tile marker", y, c)
		}
	}
	// Transparent tile pixels keep the fill underneath.
	if c := dst.RGBAAt(1, 1); c != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("pixel (1,1) = %v, want fill colour", c)
	}
}

func TestDrawSection(t *testing.T) {
	tests := []struct {
		name       string
		srcW, srcH int
		wantW      int
		wantH      int
		wantX      int
	}{
		{"exact size centred", 4, 2, 4, 2, 3},
		{"within a pixel is not rescaled", 5, 3, 4, 2, 2},
		{"rescaled to expected size", 8, 4, 4, 2, 3},
		{"full width", 10, 2, 10, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := image.NewRGBA(image.Rect(0, 0, 10, 10))
			src := solid(tt.srcW, tt.srcH, color.RGBA{0, 255, 0, 255})

			h := DrawSection(dst, src, 4, tt.wantW, tt.wantH)
			wantDrawnH := tt.wantH
			if tt.srcH-tt.wantH <= 1 && tt.srcW-tt.wantW <= 1 {
				wantDrawnH = tt.srcH
			}
			if h != wantDrawnH {
				t.Errorf("DrawSection() = %d, want %d", h, wantDrawnH)
			}
			if c := dst.RGBAAt(tt.wantX, 4); c.G < 200 {
				t.Errorf("pixel (%d,4) = %v, want section", tt.wantX, c)
			}
			if tt.wantX > 0 {
				if c := dst.RGBAAt(tt.wantX-1, 4); c.A != 0 {
					t.Errorf("pixel (%d,4) = %v, want untouched", tt.wantX-1, c)
				}
			}
			if c := dst.RGBAAt(tt.wantX, 3); c.A != 0 {
				t.Errorf("pixel above section = %v, want untouched", c)
			}
		})
	}
}

func TestScaled(t *testing.T) {
	tests := []struct {
		v, scale float64
		want     int
	}{
		{400, 2, 800},
		{340, 1.5, 510},
		{101, 1.5, 152},
		{0, 3, 0},
	}
	for _, tt := range tests {
		if got := Scaled(tt.v, tt.scale); got != tt.want {
			t.Errorf("Scaled(%v, %v) = %d, want %d", tt.v, tt.scale, got, tt.want)
		}
	}
}

func TestEncode(t *testing.T) {
	img := solid(16, 8, color.RGBA{10, 20, 30, 255})

	data, mime, err := Encode(img, common.FormatPNG, 0)
	if err != nil || mime != "image/png" {
		t.Fatalf("Encode(png) = %q, %v", mime, err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	if decoded.Bounds().Dx() != 16 || decoded.Bounds().Dy() != 8 {
		t.Errorf("png bounds = %v, want 16x8", decoded.Bounds())
	}

	data, mime, err = Encode(img, common.FormatJPG, 0.8)
	if err != nil || mime != "image/jpeg" {
		t.Fatalf("Encode(jpg) = %q, %v", mime, err)
	}
	if _, err := jpeg.Decode(bytes.NewReader(data)); err != nil {
		t.Errorf("jpeg.Decode() error = %v", err)
	}

	if _, _, err := Encode(img, "webp", 1); err == nil {
		t.Error("Encode(webp): expected error")
	}
}

func TestParseCSSColor(t *testing.T) {
	tests := []struct {
		in     string
		want   color.NRGBA
		wantOK bool
	}{
		{"#1e1e1e", color.NRGBA{0x1e, 0x1e, 0x1e, 255}, true},
		{"#fff", color.NRGBA{255, 255, 255, 255}, true},
		{"#00000080", color.NRGBA{0, 0, 0, 0x80}, true},
		{"rgb(10, 20, 30)", color.NRGBA{10, 20, 30, 255}, true},
		{"rgba(0, 0, 0, 0)", color.NRGBA{0, 0, 0, 0}, true},
		{"rgba(255, 0, 0, 0.5)", color.NRGBA{255, 0, 0, 128}, true},
		{"rgb(10 20 30 / 50%)", color.NRGBA{10, 20, 30, 128}, true},
		{"transparent", color.NRGBA{}, true},
		{"White", color.NRGBA{255, 255, 255, 255}, true},
		{"#12345", color.NRGBA{}, false},
		{"hsl(0, 0%, 0%)", color.NRGBA{}, false},
		{"", color.NRGBA{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseCSSColor(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseCSSColor(%q) = %v, %v, want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestOpaqueColor(t *testing.T) {
	for _, s := range []string{"rgba(0, 0, 0, 0)", "transparent", "bogus"} {
		if _, ok := OpaqueColor(s); ok {
			t.Errorf("OpaqueColor(%q) ok = true, want false", s)
		}
	}
	if c, ok := OpaqueColor("rgb(1, 2, 3)"); !ok || c != (color.NRGBA{1, 2, 3, 255}) {
		t.Errorf("OpaqueColor(rgb) = %v, %v, want {1 2 3 255}, true", c, ok)
	}
}
