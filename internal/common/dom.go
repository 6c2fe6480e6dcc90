package common

import (
	"context"
	"image"
)

// Rect is a layout box in CSS pixels.
type Rect struct {
	X, Y, Width, Height float64
}

func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Node is a live element of the page being captured.
type Node interface {
	Bounds() Rect
	TextContent() string
	Visible() bool

	// Visibility returns the inline visibility value ("" when unset) so it
	// can be restored after SetVisibility.
	Visibility() string
	SetVisibility(value string)

	// Computed style values, e.g. `url("a.png")` / "none", "rgba(0, 0, 0, 0)".
	BackgroundImage() string
	BackgroundColor() string
	CustomProperty(name string) string
}

type Page interface {
	Query(selector string) (Node, bool)
	ContentContainer() Node
	Body() Node
	InputBarHeight() float64
	ForegroundLayers() []Node
}

type CaptureOptions struct {
	Scale           float64
	StyleWhitelist  []string
	IgnoreSelectors []string

	// OnGenerate receives the markup generated for the capture and returns
	// the markup to render.
	OnGenerate func(markup string) string

	// ResolveAsset returns an inlined payload for url. ok == false tells the
	// capture engine to perform its own default resolution.
	ResolveAsset func(ctx context.Context, url string) (payload string, ok bool)
}

// Capturer renders a single DOM subtree to a raster.
type Capturer interface {
	Capture(ctx context.Context, node Node, opts CaptureOptions) (image.Image, error)
}

// Releaser is implemented by capturers holding per-context resources (cloned
// documents, canvases) that must be freed after every compose.
type Releaser interface {
	Release()
}
