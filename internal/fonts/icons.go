package fonts

import (
	"context"
	"sync"
)

// IconFaces inlines every face of a fixed set of symbol/icon stylesheets.
// The result is built once and reused until Reset.
type IconFaces struct {
	stylesheets []string
	opts        Options

	mu    sync.Mutex
	css   string
	built bool
}

func NewIconFaces(stylesheets []string, opts Options) *IconFaces {
	return &IconFaces{stylesheets: stylesheets, opts: opts.withDefaults()}
}

func (f *IconFaces) CSS(ctx context.Context) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.built {
		return f.css
	}

	var faces []fontFace
	for _, sheetURL := range f.stylesheets {
		text, err := fetchText(ctx, f.opts.Client, sheetURL)
		if err != nil {
			f.opts.Logger.Warningf("error fetching icon stylesheet %s: %v", sheetURL, err)
			continue
		}
		faces = append(faces, loadFaces(ctx, f.opts.Client, f.opts.Logger, text, sheetURL)...)
	}

	urls := make(map[string]bool, len(faces))
	for _, face := range faces {
		urls[face.url] = true
	}
	f.css = emitFaces(faces, resolveAll(ctx, f.opts.Resolver, urls))

	// An empty result is retried next time, unless there was nothing to load.
	f.built = f.css != "" || len(f.stylesheets) == 0
	return f.css
}

func (f *IconFaces) Reset() {
	f.mu.Lock()
	f.css = ""
	f.built = false
	f.mu.Unlock()
}
