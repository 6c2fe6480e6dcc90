// Package testdom provides in-memory stand-ins for the page and capture
// engine, for exercising background and compositor code without a browser.
package testdom

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/sjc5/tessera/internal/common"
	"github.com/sjc5/tessera/internal/raster"
)

type Node struct {
	Name string
	Rect common.Rect
	Text string

	Hidden  bool
	BgImage string
	BgColor string
	Props   map[string]string

	// Fill is the colour the fake capturer renders this node with.
	Fill color.Color

	// AssetURLs are resolved through CaptureOptions.ResolveAsset on capture.
	AssetURLs []string

	mu         sync.Mutex
	visibility string
}

func (n *Node) Bounds() common.Rect { return n.Rect }
func (n *Node) TextContent() string { return n.Text }

func (n *Node) Visible() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return !n.Hidden && n.visibility != "hidden"
}

func (n *Node) Visibility() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.visibility
}

func (n *Node) SetVisibility(value string) {
	n.mu.Lock()
	n.visibility = value
	n.mu.Unlock()
}

func (n *Node) BackgroundImage() string {
	if n.BgImage == "" {
		return "none"
	}
	return n.BgImage
}

func (n *Node) BackgroundColor() string {
	if n.BgColor == "" {
		return "rgba(0, 0, 0, 0)"
	}
	return n.BgColor
}

func (n *Node) CustomProperty(name string) string {
	return n.Props[name]
}

type Page struct {
	Nodes     map[string]*Node
	Container *Node
	BodyNode  *Node
	InputBar  float64
	Layers    []*Node
}

func (p *Page) Query(selector string) (common.Node, bool) {
	n, ok := p.Nodes[selector]
	if !ok {
		return nil, false
	}
	return n, true
}

func (p *Page) ContentContainer() common.Node { return p.Container }

func (p *Page) Body() common.Node {
	if p.BodyNode == nil {
		return &Node{Name: "body"}
	}
	return p.BodyNode
}

func (p *Page) InputBarHeight() float64 { return p.InputBar }

func (p *Page) ForegroundLayers() []common.Node {
	out := make([]common.Node, len(p.Layers))
	for i, l := range p.Layers {
		out[i] = l
	}
	return out
}

type Call struct {
	Node    common.Node
	Options common.CaptureOptions
	Markup  string
}

// Capturer renders every node as a flat rectangle of its scaled size.
type Capturer struct {
	mu       sync.Mutex
	calls    []Call
	released int

	// Fail makes captures of the named nodes return an error.
	Fail map[string]error

	// BeforeCapture runs at the start of every capture.
	BeforeCapture func(node common.Node)
}

const generatedMarkup = "<html><head><title>capture</title></head><body></body></html>"

func (c *Capturer) Capture(ctx context.Context, node common.Node, opts common.CaptureOptions) (image.Image, error) {
	if c.BeforeCapture != nil {
		c.BeforeCapture(node)
	}

	call := Call{Node: node, Options: opts, Markup: generatedMarkup}
	if opts.OnGenerate != nil {
		call.Markup = opts.OnGenerate(generatedMarkup)
	}

	fill := color.Color(color.RGBA{128, 128, 128, 255})
	name := ""
	var assets []string
	if n, ok := node.(*Node); ok {
		name = n.Name
		assets = n.AssetURLs
		if n.Fill != nil {
			fill = n.Fill
		}
	}

	if opts.ResolveAsset != nil {
		for _, url := range assets {
			opts.ResolveAsset(ctx, url)
		}
	}

	c.mu.Lock()
	c.calls = append(c.calls, call)
	c.mu.Unlock()

	if err, ok := c.Fail[name]; ok {
		return nil, err
	}

	b := node.Bounds()
	w, h := raster.Scaled(b.Width, opts.Scale), raster.Scaled(b.Height, opts.Scale)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("node %q renders empty", name)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	raster.FillColor(img, fill)
	return img, nil
}

func (c *Capturer) Release() {
	c.mu.Lock()
	c.released++
	c.mu.Unlock()
}

func (c *Capturer) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

func (c *Capturer) Released() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}
