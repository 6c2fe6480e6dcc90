package fonts

import (
	"context"
	"net/http"
	"sync"

	"github.com/sjc5/kit/pkg/typed"
	"github.com/sjc5/tessera/internal/common"
	"github.com/sjc5/tessera/internal/store"
	"github.com/sjc5/tessera/internal/util"
	"golang.org/x/sync/errgroup"
)

// Resolver inlines a font file. *assets.Fetcher satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, url string, kind common.AssetKind) (string, bool)
}

// SourceStore persists built mappings. *store.Handle satisfies it.
type SourceStore interface {
	GetFontSource(ctx context.Context, sourceID string) (store.FontSource, bool, error)
	PutFontSource(ctx context.Context, src store.FontSource) error
}

type Options struct {
	Resolver Resolver
	Store    SourceStore // optional
	Client   *http.Client
	Logger   common.Logger
}

func (o Options) withDefaults() Options {
	if o.Client == nil {
		o.Client = &http.Client{Timeout: common.DefaultFetchTimeout}
	}
	if o.Logger == nil {
		o.Logger = util.NopLogger{}
	}
	return o
}

type builtMapping struct {
	mapping *Mapping
	faces   []fontFace
}

// Builder owns the active font mapping and subsets fonts against it.
type Builder struct {
	opts Options

	mu       sync.RWMutex
	mappings *typed.SyncMap[string, *builtMapping]
	activeID string
	active   *builtMapping
}

func NewBuilder(opts Options) *Builder {
	return &Builder{
		opts:     opts.withDefaults(),
		mappings: &typed.SyncMap[string, *builtMapping]{},
	}
}

// Active returns the active mapping, or nil.
func (b *Builder) Active() *Mapping {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.active == nil {
		return nil
	}
	return b.active.mapping
}

func (b *Builder) activate(id string, built *builtMapping) {
	b.mu.Lock()
	b.activeID = id
	b.active = built
	b.mu.Unlock()
}

func (b *Builder) memo() *typed.SyncMap[string, *builtMapping] {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.mappings
}

/*
Refresh activates the mapping for src. It is a no-op when src is already
active. Otherwise the mapping comes from memory, then the store, and is
built from the stylesheet as a last resort. When nothing usable can be built
no mapping is active afterwards, and subsets come out empty.
*/
func (b *Builder) Refresh(ctx context.Context, src common.StyleSource) {
	logger := b.opts.Logger
	if src.IsZero() {
		logger.Debugf("no theme styles to map")
		return
	}

	id := sourceID(src)
	b.mu.RLock()
	isActive := b.activeID == id && b.active != nil
	b.mu.RUnlock()
	if isActive {
		return
	}

	if hit, isCached := b.memo().Load(id); isCached {
		b.activate(id, hit)
		return
	}

	if built, ok := b.loadStored(ctx, id); ok {
		b.memo().Store(id, built)
		b.activate(id, built)
		logger.Infof("font mapping %s loaded from store", id)
		return
	}

	cssText, base := src.Inline, ""
	if src.ImportURL != "" {
		text, err := fetchText(ctx, b.opts.Client, src.ImportURL)
		if err != nil {
			logger.Errorf("error fetching theme stylesheet %s: %v", src.ImportURL, err)
			b.activate("", nil)
			return
		}
		cssText, base = text, src.ImportURL
	}

	built := buildMapping(id, loadFaces(ctx, b.opts.Client, logger, cssText, base), base)
	if built == nil {
		logger.Warningf("no usable font-face rules in %s", describeBase(base))
		b.activate("", nil)
		return
	}

	if b.opts.Store != nil {
		encoded, err := encodeMapping(built.mapping)
		if err == nil {
			err = b.opts.Store.PutFontSource(ctx, store.FontSource{
				SourceID:  id,
				Mapping:   encoded,
				SourceCSS: built.mapping.SourceCSS,
				BaseURL:   base,
			})
		}
		if err != nil {
			logger.Warningf("error persisting font mapping %s: %v", id, err)
		}
	}

	b.memo().Store(id, built)
	b.activate(id, built)
	logger.Infof("font mapping %s built: %d codepoints, %d faces", id, len(built.mapping.Codepoints), len(built.faces))
}

func (b *Builder) loadStored(ctx context.Context, id string) (*builtMapping, bool) {
	if b.opts.Store == nil {
		return nil, false
	}
	stored, ok, err := b.opts.Store.GetFontSource(ctx, id)
	if err != nil {
		b.opts.Logger.Debugf("font mapping store read skipped: %v", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	codepoints, defaultURL, err := decodeMapping(stored.Mapping)
	if err != nil {
		b.opts.Logger.Warningf("error decoding stored font mapping %s: %v", id, err)
		return nil, false
	}
	// Stored CSS carries absolute URLs and only valid rules.
	sheet, _ := parseStylesheet(stored.SourceCSS)
	faces := interpretRules(util.NopLogger{}, sheet.rules, "")

	return &builtMapping{
		mapping: &Mapping{
			SourceID:   id,
			Codepoints: codepoints,
			Default:    defaultURL,
			SourceCSS:  stored.SourceCSS,
			BaseURL:    stored.BaseURL,
		},
		faces: faces,
	}, true
}

// buildMapping expands faces into a mapping. Later faces win conflicts,
// including the default. Returns nil when there are no faces.
func buildMapping(id string, faces []fontFace, base string) *builtMapping {
	if len(faces) == 0 {
		return nil
	}
	m := &Mapping{
		SourceID:   id,
		Codepoints: map[rune]string{},
		SourceCSS:  serializeFaces(faces),
		BaseURL:    base,
	}
	for _, face := range faces {
		if !face.hasRange {
			m.Default = face.url
			continue
		}
		for _, r := range face.ranges {
			for cp := r.lo; cp <= r.hi; cp++ {
				m.Codepoints[cp] = face.url
			}
		}
	}
	return &builtMapping{mapping: m, faces: faces}
}

// Subset returns minified, inlined @font-face CSS covering text. Faces
// whose file is unavailable are left out.
func (b *Builder) Subset(ctx context.Context, text string) string {
	if text == "" {
		return ""
	}
	b.mu.RLock()
	built := b.active
	b.mu.RUnlock()
	if built == nil {
		return ""
	}

	required := built.mapping.RequiredURLs(text)
	return emitFaces(built.faces, resolveAll(ctx, b.opts.Resolver, required))
}

func resolveAll(ctx context.Context, resolver Resolver, urls map[string]bool) map[string]string {
	var mu sync.Mutex
	payloads := make(map[string]string, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	for url := range urls {
		g.Go(func() error {
			payload, ok := resolver.Resolve(gctx, url, common.KindFont)
			if ok {
				mu.Lock()
				payloads[url] = payload
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return payloads
}

// Reset forgets every built mapping; the next Refresh rebuilds.
func (b *Builder) Reset() {
	b.mu.Lock()
	b.mappings = &typed.SyncMap[string, *builtMapping]{}
	b.activeID = ""
	b.active = nil
	b.mu.Unlock()
}
