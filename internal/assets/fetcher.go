package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sjc5/tessera/internal/common"
	"github.com/sjc5/tessera/internal/util"
	"golang.org/x/sync/singleflight"
)

const maxPayloadBytes = 32 << 20

// Store is the durable tier. *store.Handle satisfies it.
type Store interface {
	GetAsset(ctx context.Context, kind common.AssetKind, url string) (string, bool, error)
	PutAsset(ctx context.Context, kind common.AssetKind, url, payload string) error
	Clear(ctx context.Context) error
}

type FetcherOptions struct {
	Memory *MemoryCache // created if nil
	Store  Store        // optional
	Client *http.Client
	Logger common.Logger
}

type Fetcher struct {
	memory *MemoryCache
	store  Store
	client *http.Client
	logger common.Logger
	group  singleflight.Group
}

func NewFetcher(opts FetcherOptions) *Fetcher {
	f := &Fetcher{
		memory: opts.Memory,
		store:  opts.Store,
		client: opts.Client,
		logger: opts.Logger,
	}
	if f.memory == nil {
		f.memory = NewMemoryCache()
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: common.DefaultFetchTimeout}
	}
	if f.logger == nil {
		f.logger = util.NopLogger{}
	}
	return f
}

func (f *Fetcher) Memory() *MemoryCache {
	return f.memory
}

/*
Resolve returns url as an inlined data URI. Lookups go memory, then store,
then network; a network result is written to the store and then to memory.
Concurrent misses for the same url share one fetch, which a cancelled caller
does not abort. Failures are logged and reported as ok == false.
*/
func (f *Fetcher) Resolve(ctx context.Context, url string, kind common.AssetKind) (string, bool) {
	if url == "" {
		return "", false
	}
	if util.IsDataURL(url) {
		return url, true
	}
	if hit, isCached := f.memory.Load(kind, url); isCached {
		return hit, true
	}

	// The shared fetch is detached from any one caller; each caller still
	// stops waiting when its own ctx ends.
	shared := context.WithoutCancel(ctx)
	ch := f.group.DoChan(string(kind)+"|"+url, func() (any, error) {
		return f.resolveMiss(shared, url, kind)
	})
	select {
	case <-ctx.Done():
		f.logger.Debugf("%s %s: stopped waiting: %v", kind, url, ctx.Err())
		return "", false
	case res := <-ch:
		if res.Err != nil {
			f.logger.Warningf("%s %s unavailable: %v", kind, url, res.Err)
			return "", false
		}
		return res.Val.(string), true
	}
}

func (f *Fetcher) resolveMiss(ctx context.Context, url string, kind common.AssetKind) (string, error) {
	// A shared fetch may have completed between the first check and here.
	if hit, isCached := f.memory.Load(kind, url); isCached {
		return hit, nil
	}

	if f.store != nil {
		payload, ok, err := f.store.GetAsset(ctx, kind, url)
		switch {
		case err != nil:
			f.logStoreError("read", url, err)
		case ok:
			f.memory.Store(kind, url, payload)
			return payload, nil
		}
	}

	payload, err := f.fetch(ctx, url, kind)
	if err != nil {
		return "", err
	}

	if f.store != nil {
		if err := f.store.PutAsset(ctx, kind, url, payload); err != nil {
			f.logStoreError("write", url, err)
		}
	}
	f.memory.Store(kind, url, payload)
	return payload, nil
}

func (f *Fetcher) fetch(ctx context.Context, url string, kind common.AssetKind) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrAssetUnavailable, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrAssetUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d", common.ErrAssetUnavailable, resp.StatusCode)
	}

	mediaType := util.GetMediaType(resp.Header.Get("Content-Type"))
	if kind == common.KindImage && !strings.HasPrefix(mediaType, "image/") {
		return "", fmt.Errorf("%w: unexpected content type %q", common.ErrAssetUnavailable, mediaType)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", common.ErrAssetUnavailable, err)
	}

	if kind == common.KindFont {
		mediaType, err = util.SniffFont(content)
		if err != nil {
			return "", fmt.Errorf("%w: %v", common.ErrAssetUnavailable, err)
		}
	}
	return util.EncodeDataURL(mediaType, content), nil
}

func (f *Fetcher) logStoreError(op, url string, err error) {
	if errors.Is(err, common.ErrStoreUnavailable) {
		f.logger.Debugf("store %s skipped for %s: %v", op, url, err)
		return
	}
	f.logger.Warningf("store %s failed for %s: %v", op, url, err)
}

// Clear drops both memory tables and empties the store.
func (f *Fetcher) Clear(ctx context.Context) error {
	f.memory.Clear()
	if f.store == nil {
		return nil
	}
	if err := f.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear store: %w", err)
	}
	return nil
}
