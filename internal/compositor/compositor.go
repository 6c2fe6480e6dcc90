// Package compositor captures a batch of elements and stitches them, over a
// repeated page background, into one encoded image.
package compositor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
	"time"

	"github.com/sjc5/tessera/internal/common"
	"github.com/sjc5/tessera/internal/raster"
	"github.com/sjc5/tessera/internal/util"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// A composite under this many bytes most likely rendered blank.
const minPlausiblePayload = 1000

type Resolver interface {
	Resolve(ctx context.Context, url string, kind common.AssetKind) (string, bool)
}

type Subsetter interface {
	Subset(ctx context.Context, text string) string
}

type IconSource interface {
	CSS(ctx context.Context) string
}

type Tiler interface {
	Tile(ctx context.Context, scale float64) (*image.RGBA, error)
}

type Options struct {
	Page       common.Page
	Capturer   common.Capturer
	Resolver   Resolver
	Fonts      Subsetter
	Icons      IconSource // optional
	Background Tiler      // optional

	IgnoreSelectors []string
	Progress        common.ProgressFunc
	Logger          common.Logger
}

type Output struct {
	Image    *image.RGBA
	Data     []byte
	MIMEType string
	Format   string
}

type Compositor struct {
	opts Options
	gate *semaphore.Weighted
}

func New(opts Options) *Compositor {
	if opts.Logger == nil {
		opts.Logger = util.NopLogger{}
	}
	return &Compositor{opts: opts, gate: semaphore.NewWeighted(1)}
}

type section struct {
	width, height float64
}

/*
Compose captures nodes in order and stacks them top to bottom, separated by
settings.SectionMargin, over the page background. Only one composite runs at
a time; later calls wait for the gate or for ctx. Any failed capture aborts
the whole batch.
*/
func (c *Compositor) Compose(ctx context.Context, nodes []common.Node, settings common.Settings) (*Output, error) {
	if err := c.gate.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.gate.Release(1)

	// Release runs under the gate so it never overlaps another composite.
	if r, ok := c.opts.Capturer.(common.Releaser); ok {
		defer r.Release()
	}
	if len(nodes) == 0 {
		return nil, common.ErrNoElements
	}

	logger := c.opts.Logger
	settings = settings.Normalize(logger)
	progress := c.progressFunc(settings)
	scale := settings.Scale

	progress("preparing fonts", 0)
	styleCSS := c.buildStyles(ctx, nodes)

	sections := make([]section, len(nodes))
	var totalHeight, maxWidth float64
	for i, node := range nodes {
		b := node.Bounds()
		if b.IsEmpty() {
			return nil, common.MeasurementError{Index: i, Width: b.Width, Height: b.Height}
		}
		sections[i] = section{width: b.Width, height: b.Height}
		totalHeight += b.Height
		maxWidth = max(maxWidth, b.Width)
	}
	if len(nodes) > 1 {
		totalHeight += settings.SectionMargin * float64(len(nodes)-1)
	}

	finalWidth, finalHeight := raster.Scaled(maxWidth, scale), raster.Scaled(totalHeight, scale)
	logger.Infof("composing %d element(s) into %dx%d at scale %v", len(nodes), finalWidth, finalHeight, scale)

	progress("preparing background", 0.1)
	final := image.NewRGBA(image.Rect(0, 0, finalWidth, finalHeight))
	raster.FillColor(final, c.backgroundColor())
	if c.opts.Background != nil {
		tile, err := c.opts.Background.Tile(ctx, scale)
		if err != nil {
			logger.Warningf("background unavailable, using flat colour: %v", err)
		} else {
			raster.TileVertical(final, tile)
		}
	}

	captureOpts := common.CaptureOptions{
		Scale:           scale,
		StyleWhitelist:  common.StyleWhitelist,
		IgnoreSelectors: c.opts.IgnoreSelectors,
		OnGenerate:      func(markup string) string { return injectStyle(markup, styleCSS) },
		ResolveAsset:    c.resolveAsset,
	}

	var offset float64
	for i, node := range nodes {
		progress(fmt.Sprintf("capturing element %d/%d", i+1, len(nodes)), 0.2+0.7*float64(i)/float64(len(nodes)))

		if err := sleep(ctx, settings.CaptureDelay); err != nil {
			return nil, err
		}
		img, err := c.opts.Capturer.Capture(ctx, node, captureOpts)
		if err != nil {
			return nil, common.CompositionError{Index: i, Err: err}
		}
		if img == nil {
			return nil, common.CompositionError{Index: i, Err: errors.New("capture returned no image")}
		}

		s := sections[i]
		raster.DrawSection(final, img, raster.Scaled(offset, scale), raster.Scaled(s.width, scale), raster.Scaled(s.height, scale))
		offset += s.height + settings.SectionMargin
	}

	progress("encoding", 0.95)
	data, mimeType, err := raster.Encode(final, settings.Format, settings.Quality)
	if err != nil {
		return nil, err
	}
	if len(data) < minPlausiblePayload {
		logger.Warningf("composite is only %d bytes, it may be blank", len(data))
	}
	progress("done", 1)

	return &Output{Image: final, Data: data, MIMEType: mimeType, Format: settings.Format}, nil
}

// buildStyles builds the font subset for all text and the icon faces
// concurrently.
func (c *Compositor) buildStyles(ctx context.Context, nodes []common.Node) string {
	var sb strings.Builder
	for _, node := range nodes {
		sb.WriteString(node.TextContent())
	}
	text := sb.String()

	var fontCSS, iconCSS string
	g, gctx := errgroup.WithContext(ctx)
	if c.opts.Fonts != nil {
		g.Go(func() error {
			fontCSS = c.opts.Fonts.Subset(gctx, text)
			return nil
		})
	}
	if c.opts.Icons != nil {
		g.Go(func() error {
			iconCSS = c.opts.Icons.CSS(gctx)
			return nil
		})
	}
	_ = g.Wait()

	return fontCSS + iconCSS + common.LayoutFixCSS
}

func (c *Compositor) resolveAsset(ctx context.Context, url string) (string, bool) {
	if c.opts.Resolver == nil {
		return "", false
	}
	kind := common.KindImage
	if util.LooksLikeFontURL(url) {
		kind = common.KindFont
	}
	return c.opts.Resolver.Resolve(ctx, url, kind)
}

// backgroundColor is the content container's colour when opaque, else the
// body's --pcb variable, else a fixed dark grey.
func (c *Compositor) backgroundColor() color.Color {
	candidates := []string{common.FallbackBackgroundColor}
	if c.opts.Page != nil {
		candidates = []string{
			c.opts.Page.ContentContainer().BackgroundColor(),
			c.opts.Page.Body().CustomProperty(common.BackgroundColorVar),
			common.FallbackBackgroundColor,
		}
	}
	for _, candidate := range candidates {
		if col, ok := raster.OpaqueColor(candidate); ok {
			return col
		}
	}
	return color.Black
}

func (c *Compositor) progressFunc(settings common.Settings) common.ProgressFunc {
	if !settings.DebugOverlay || c.opts.Progress == nil {
		return func(string, float64) {}
	}
	return c.opts.Progress
}

// injectStyle places a <style> element just before </head>, or at the very
// start when the markup has no head.
func injectStyle(markup, css string) string {
	if css == "" {
		return markup
	}
	style := "<style>" + css + "</style>"
	if i := strings.Index(strings.ToLower(markup), "</head>"); i >= 0 {
		return markup[:i] + style + markup[i:]
	}
	return style + markup
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
