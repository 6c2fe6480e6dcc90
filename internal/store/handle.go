package store

import (
	"context"
	"fmt"

	"github.com/sjc5/tessera/internal/common"
)

// Handle is a store that is still being opened. Every method waits for the
// open to finish; if it failed, they return common.ErrStoreUnavailable.
type Handle struct {
	ready chan struct{}
	store *Store
	err   error
}

// OpenAsync starts opening the store at path in the background.
func OpenAsync(path string, logger common.Logger) *Handle {
	h := &Handle{ready: make(chan struct{})}
	go func() {
		defer close(h.ready)
		h.store, h.err = Open(context.Background(), path)
		if h.err != nil {
			logger.Errorf("error opening persistent store at %s: %v", path, h.err)
			return
		}
		logger.Infof("persistent store ready at %s", path)
	}()
	return h
}

// Wait blocks until the store is open or ctx is done.
func (h *Handle) Wait(ctx context.Context) (*Store, error) {
	select {
	case <-h.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if h.err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, h.err)
	}
	return h.store, nil
}

func (h *Handle) GetAsset(ctx context.Context, kind common.AssetKind, url string) (string, bool, error) {
	s, err := h.Wait(ctx)
	if err != nil {
		return "", false, err
	}
	return s.GetAsset(ctx, kind, url)
}

func (h *Handle) PutAsset(ctx context.Context, kind common.AssetKind, url, payload string) error {
	s, err := h.Wait(ctx)
	if err != nil {
		return err
	}
	return s.PutAsset(ctx, kind, url, payload)
}

func (h *Handle) GetFontSource(ctx context.Context, sourceID string) (FontSource, bool, error) {
	s, err := h.Wait(ctx)
	if err != nil {
		return FontSource{}, false, err
	}
	return s.GetFontSource(ctx, sourceID)
}

func (h *Handle) PutFontSource(ctx context.Context, src FontSource) error {
	s, err := h.Wait(ctx)
	if err != nil {
		return err
	}
	return s.PutFontSource(ctx, src)
}

func (h *Handle) Clear(ctx context.Context) error {
	s, err := h.Wait(ctx)
	if err != nil {
		return err
	}
	return s.Clear(ctx)
}

// Close waits for the open to finish and closes the store if it succeeded.
func (h *Handle) Close() error {
	<-h.ready
	if h.store == nil {
		return nil
	}
	return h.store.Close()
}
