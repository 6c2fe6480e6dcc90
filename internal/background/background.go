// Package background builds the one-viewport tile of page background that
// is repeated down the height of a composite.
package background

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/sjc5/tessera/internal/common"
	"github.com/sjc5/tessera/internal/raster"
	"github.com/sjc5/tessera/internal/util"
)

type Options struct {
	Page     common.Page
	Capturer common.Capturer

	// Tried in order; defaults to common.DefaultBackgroundSelectors.
	Selectors       []string
	IgnoreSelectors []string

	// Routes the capture's image lookups, typically through the asset cache.
	ResolveAsset func(ctx context.Context, url string) (string, bool)

	Logger common.Logger
}

type tileKey struct {
	scale         float64
	width, height float64
	generation    uint64
}

// UnitCache keeps a single background tile. Builds are not reentrant and are
// expected to be serialised by the caller.
type UnitCache struct {
	opts Options

	mu         sync.Mutex
	tile       *image.RGBA
	key        tileKey
	generation uint64
	lastWidth  float64
	lastHeight float64
}

func New(opts Options) *UnitCache {
	if len(opts.Selectors) == 0 {
		opts.Selectors = common.DefaultBackgroundSelectors
	}
	if opts.Logger == nil {
		opts.Logger = util.NopLogger{}
	}
	return &UnitCache{opts: opts}
}

func (c *UnitCache) currentKey(scale float64) tileKey {
	viewport := c.opts.Page.ContentContainer().Bounds()
	c.mu.Lock()
	defer c.mu.Unlock()
	return tileKey{scale: scale, width: viewport.Width, height: viewport.Height, generation: c.generation}
}

// Tile returns a copy of the tile for scale, building it when the cached one
// was made at another scale, viewport size or resize generation.
func (c *UnitCache) Tile(ctx context.Context, scale float64) (*image.RGBA, error) {
	key := c.currentKey(scale)

	c.mu.Lock()
	if c.tile != nil && c.key == key {
		tile := raster.Clone(c.tile)
		c.mu.Unlock()
		return tile, nil
	}
	c.mu.Unlock()

	tile, err := c.build(ctx, scale)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.tile = tile
	c.key = key
	c.mu.Unlock()
	return raster.Clone(tile), nil
}

func (c *UnitCache) build(ctx context.Context, scale float64) (*image.RGBA, error) {
	page := c.opts.Page
	source := c.findSource()

	defer hideAll(page.ForegroundLayers())()

	img, err := c.opts.Capturer.Capture(ctx, source, common.CaptureOptions{
		Scale:           scale,
		StyleWhitelist:  common.StyleWhitelist,
		IgnoreSelectors: c.opts.IgnoreSelectors,
		ResolveAsset:    c.opts.ResolveAsset,
	})
	if err != nil {
		return nil, fmt.Errorf("error capturing background: %w", err)
	}

	viewport := page.ContentContainer().Bounds()
	origin := source.Bounds()
	x0 := raster.Scaled(viewport.X-origin.X, scale)
	y0 := raster.Scaled(viewport.Y-origin.Y, scale)
	crop := image.Rect(
		x0,
		y0,
		x0+raster.Scaled(viewport.Width, scale),
		y0+raster.Scaled(viewport.Height-page.InputBarHeight(), scale),
	).Add(img.Bounds().Min)

	tile := raster.Crop(img, crop)
	if tile.Bounds().Empty() {
		return nil, fmt.Errorf("background crop %v is empty", crop)
	}
	c.opts.Logger.Debugf("background tile built at scale %v: %dx%d", scale, tile.Bounds().Dx(), tile.Bounds().Dy())
	return tile, nil
}

// findSource picks the first visible candidate carrying a background image,
// falling back to the content container.
func (c *UnitCache) findSource() common.Node {
	for _, selector := range c.opts.Selectors {
		node, ok := c.opts.Page.Query(selector)
		if !ok || !node.Visible() {
			continue
		}
		if bg := strings.TrimSpace(node.BackgroundImage()); bg != "" && bg != "none" {
			return node
		}
	}
	return c.opts.Page.ContentContainer()
}

// hideAll hides layers and returns a func restoring their prior visibility.
func hideAll(layers []common.Node) func() {
	previous := make([]string, len(layers))
	for i, layer := range layers {
		previous[i] = layer.Visibility()
		layer.SetVisibility("hidden")
	}
	return func() {
		for i, layer := range layers {
			layer.SetVisibility(previous[i])
		}
	}
}

// Invalidate drops the cached tile.
func (c *UnitCache) Invalidate() {
	c.mu.Lock()
	c.tile = nil
	c.mu.Unlock()
}

// NotifyResize records the content container's observed size. A change
// invalidates the cached tile.
func (c *UnitCache) NotifyResize(width, height float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if width == c.lastWidth && height == c.lastHeight {
		return
	}
	c.lastWidth, c.lastHeight = width, height
	c.generation++
	c.tile = nil
}
