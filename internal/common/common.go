package common

import (
	"net/http"
	"time"
)

const (
	FormatJPG = "jpg"
	FormatPNG = "png"

	DefaultScale         = 1.5
	DefaultQuality       = 0.8
	DefaultSectionMargin = 5
	DefaultFetchTimeout  = 3 * time.Second
	DefaultStoreFileName = "tessera.db"

	// Used when neither the content container nor the --pcb body variable
	// resolve to an opaque colour.
	FallbackBackgroundColor = "#1e1e1e"
	BackgroundColorVar      = "--pcb"
)

// Tried in order when locating the page background source.
var DefaultBackgroundSelectors = []string{"#bg1", "#bg2", "#bg_custom", "body"}

// Subtrees the capture engine should skip entirely.
var DefaultIgnoreSelectors = []string{
	".swipeRightBlock",
	".swipe_left",
	".st-capture-overlay",
	"#top-settings-holder",
	"#form_sheld",
}

// Injected into every capture alongside the font faces.
const LayoutFixCSS = `summary{list-style:none!important}summary::-webkit-details-marker{display:none!important}`

type AssetKind string

const (
	KindFont  AssetKind = "font"
	KindImage AssetKind = "image"
)

type ProgressFunc func(msg string, ratio float64)

// StyleSource is where the active theme's font-face declarations come from.
// Exactly one of ImportURL or Inline is expected to be set.
type StyleSource struct {
	ImportURL string
	Inline    string
}

func (s StyleSource) IsZero() bool {
	return s.ImportURL == "" && s.Inline == ""
}

type Config struct {
	/*
		StorePath is the SQLite file backing the durable cache tier. If empty,
		"tessera.db" next to the running executable is used. The store is
		opened once, in the background, when tessera.New is called; cache reads
		that arrive before it is ready wait for it.
	*/
	StorePath string

	Settings Settings

	// Theme, if set, is mapped into codepoint→font-file entries at startup.
	Theme StyleSource

	// Stylesheets declaring symbol/icon fonts (e.g. an icon kit). Their
	// font-face blocks are inlined into every capture regardless of text.
	IconStylesheets []string

	// Defaults to DefaultBackgroundSelectors.
	BackgroundSelectors []string

	// Defaults to DefaultIgnoreSelectors.
	IgnoreSelectors []string

	Page     Page
	Capturer Capturer

	// Defaults to an http.Client with FetchTimeout.
	HTTPClient   *http.Client
	FetchTimeout time.Duration

	// Called at each compose stage while Settings.DebugOverlay is on.
	Progress ProgressFunc

	Logger Logger
}

func (c *Config) GetBackgroundSelectors() []string {
	if len(c.BackgroundSelectors) == 0 {
		return DefaultBackgroundSelectors
	}
	return c.BackgroundSelectors
}

func (c *Config) GetIgnoreSelectors() []string {
	if len(c.IgnoreSelectors) == 0 {
		return DefaultIgnoreSelectors
	}
	return c.IgnoreSelectors
}

func (c *Config) GetHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &http.Client{Timeout: timeout}
}
