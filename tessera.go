package tessera

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sjc5/tessera/internal/assets"
	"github.com/sjc5/tessera/internal/background"
	"github.com/sjc5/tessera/internal/common"
	"github.com/sjc5/tessera/internal/compositor"
	"github.com/sjc5/tessera/internal/fonts"
	"github.com/sjc5/tessera/internal/store"
	"github.com/sjc5/tessera/internal/util"
)

type Config = common.Config
type Settings = common.Settings
type StyleSource = common.StyleSource
type ProgressFunc = common.ProgressFunc
type Logger = common.Logger

type Rect = common.Rect
type Node = common.Node
type Page = common.Page
type Capturer = common.Capturer
type CaptureOptions = common.CaptureOptions
type Releaser = common.Releaser

type Output = compositor.Output
type WatchOptions = fonts.WatchOptions
type CaptureLogEntry = util.CaptureLogEntry

type MappingParseError = common.MappingParseError
type MeasurementError = common.MeasurementError
type CompositionError = common.CompositionError

var ErrAssetUnavailable = common.ErrAssetUnavailable
var ErrStoreUnavailable = common.ErrStoreUnavailable
var ErrNoElements = common.ErrNoElements

const FormatJPG = common.FormatJPG
const FormatPNG = common.FormatPNG

var DefaultSettings = common.DefaultSettings
var LoadSettings = common.LoadSettings
var NewColorLogger = util.NewColorLogger

// Tessera ties the caches, the font builder and the compositor to one page.
// Create it with New and Close it when done.
type Tessera struct {
	config *common.Config
	logs   *util.CaptureLog
	ctx    context.Context
	cancel context.CancelFunc

	store      *store.Handle
	fetcher    *assets.Fetcher
	fonts      *fonts.Builder
	icons      *fonts.IconFaces
	background *background.UnitCache
	compositor *compositor.Compositor

	mu       sync.RWMutex
	settings common.Settings
	watchers []*fonts.Watcher
}

/*
New opens the persistent store in the background and, when config.Theme is
set, starts mapping its fonts. Page and Capturer are required. A zero
Settings means DefaultSettings.
*/
func New(config *Config) (*Tessera, error) {
	if config.Page == nil {
		return nil, errors.New("config.Page is required")
	}
	if config.Capturer == nil {
		return nil, errors.New("config.Capturer is required")
	}
	if config.Logger == nil {
		config.Logger = util.NewColorLogger("tessera")
	}
	if config.StorePath == "" {
		config.StorePath = util.GetDefaultStorePath(common.DefaultStoreFileName)
	}
	if config.Settings == (common.Settings{}) {
		config.Settings = common.DefaultSettings()
	}

	logs := util.NewCaptureLog(config.Logger, util.DefaultMaxCaptureLogs)
	client := config.GetHTTPClient()
	ctx, cancel := context.WithCancel(context.Background())

	t := &Tessera{
		config:   config,
		logs:     logs,
		ctx:      ctx,
		cancel:   cancel,
		store:    store.OpenAsync(config.StorePath, logs),
		settings: config.Settings.Normalize(logs),
	}
	t.fetcher = assets.NewFetcher(assets.FetcherOptions{Store: t.store, Client: client, Logger: logs})

	fontOpts := fonts.Options{Resolver: t.fetcher, Store: t.store, Client: client, Logger: logs}
	t.fonts = fonts.NewBuilder(fontOpts)
	t.icons = fonts.NewIconFaces(config.IconStylesheets, fontOpts)

	resolveImage := func(ctx context.Context, url string) (string, bool) {
		return t.fetcher.Resolve(ctx, url, common.KindImage)
	}
	t.background = background.New(background.Options{
		Page:            config.Page,
		Capturer:        config.Capturer,
		Selectors:       config.GetBackgroundSelectors(),
		IgnoreSelectors: config.GetIgnoreSelectors(),
		ResolveAsset:    resolveImage,
		Logger:          logs,
	})
	t.compositor = compositor.New(compositor.Options{
		Page:            config.Page,
		Capturer:        config.Capturer,
		Resolver:        t.fetcher,
		Fonts:           t.fonts,
		Icons:           t.icons,
		Background:      t.background,
		IgnoreSelectors: config.GetIgnoreSelectors(),
		Progress:        config.Progress,
		Logger:          logs,
	})

	if !config.Theme.IsZero() {
		go t.fonts.Refresh(ctx, config.Theme)
	}
	return t, nil
}

// Compose captures nodes into one image using the current settings. The
// capture log is reset first, so CaptureLogs afterwards describes this run.
func (t *Tessera) Compose(ctx context.Context, nodes []Node) (*Output, error) {
	t.logs.Clear()
	out, err := t.compositor.Compose(ctx, nodes, t.Settings())
	if err != nil {
		t.logs.Errorf("composite failed: %v", err)
		return nil, err
	}
	return out, nil
}

// RefreshFonts activates the font mapping for src, building it if needed.
func (t *Tessera) RefreshFonts(ctx context.Context, src StyleSource) {
	t.mu.Lock()
	t.config.Theme = src
	t.mu.Unlock()
	t.fonts.Refresh(ctx, src)
}

// WatchStyles re-maps fonts whenever theme stylesheet files change. The
// watcher runs until Close.
func (t *Tessera) WatchStyles(opts WatchOptions) error {
	if opts.Logger == nil {
		opts.Logger = t.logs
	}
	w, err := fonts.Watch(t.ctx, t.fonts, opts)
	if err != nil {
		return fmt.Errorf("error watching styles: %w", err)
	}
	t.mu.Lock()
	t.watchers = append(t.watchers, w)
	t.mu.Unlock()
	return nil
}

func (t *Tessera) Settings() Settings {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.settings
}

// ApplySettings replaces the settings. A new scale or format drops the
// cached background tile.
func (t *Tessera) ApplySettings(s Settings) {
	next := s.Normalize(t.logs)
	t.mu.Lock()
	prev := t.settings
	t.settings = next
	t.mu.Unlock()
	if prev.InvalidatesBackground(next) {
		t.background.Invalidate()
	}
}

// NotifyResize should be called with the content container's new size
// whenever it is observed to change.
func (t *Tessera) NotifyResize(width, height float64) {
	t.background.NotifyResize(width, height)
}

// ClearCache empties both cache tiers and every derived value, then rebuilds
// the active theme's mapping.
func (t *Tessera) ClearCache(ctx context.Context) error {
	err := t.fetcher.Clear(ctx)
	t.fonts.Reset()
	t.icons.Reset()
	t.background.Invalidate()
	if err != nil && !errors.Is(err, common.ErrStoreUnavailable) {
		return err
	}

	t.mu.RLock()
	theme := t.config.Theme
	t.mu.RUnlock()
	if !theme.IsZero() {
		t.fonts.Refresh(ctx, theme)
	}
	t.logs.Infof("caches cleared")
	return nil
}

// CaptureLogs returns the most recent log entries, oldest first.
func (t *Tessera) CaptureLogs() []CaptureLogEntry {
	return t.logs.Entries()
}

func (t *Tessera) Close() error {
	t.cancel()
	t.mu.Lock()
	watchers := t.watchers
	t.watchers = nil
	t.mu.Unlock()

	var errs []error
	for _, w := range watchers {
		errs = append(errs, w.Close())
	}
	errs = append(errs, t.store.Close())
	return errors.Join(errs...)
}
