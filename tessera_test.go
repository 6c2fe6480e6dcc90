package tessera

import (
	"context"
	"errors"
	"image/color"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sjc5/tessera/internal/testdom"
	"github.com/sjc5/tessera/internal/util"
	"golang.org/x/image/font/gofont/goregular"
)

type testEnv struct {
	tessera  *Tessera
	page     *testdom.Page
	capturer *testdom.Capturer
	server   *httptest.Server
	cssHits  atomic.Int64
	fontHits atomic.Int64
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{}

	mux := http.NewServeMux()
	mux.HandleFunc("/css/theme.css", func(w http.ResponseWriter, r *http.Request) {
		env.cssHits.Add(1)
		w.Header().Set("Content-Type", "text/css")
		w.Write([]byte(`@font-face{font-family:Go;src:url(fonts/regular.ttf) format("truetype")}`))
	})
	mux.HandleFunc("/css/fonts/regular.ttf", func(w http.ResponseWriter, r *http.Request) {
		env.fontHits.Add(1)
		w.Write(goregular.TTF)
	})
	env.server = httptest.NewServer(mux)
	t.Cleanup(env.server.Close)

	env.page = &testdom.Page{
		Nodes: map[string]*testdom.Node{
			"#bg1": {Name: "#bg1", Rect: Rect{Width: 640, Height: 480}, BgImage: "url(bg.png)", Fill: color.RGBA{30, 30, 90, 255}},
		},
		Container: &testdom.Node{Name: "#chat", Rect: Rect{Width: 640, Height: 480}},
		Layers:    []*testdom.Node{{Name: "#sheld"}},
	}
	env.capturer = &testdom.Capturer{}

	ts, err := New(&Config{
		StorePath: filepath.Join(t.TempDir(), "tessera.db"),
		Settings:  Settings{Scale: 1, Format: FormatPNG, SectionMargin: 5},
		Page:      env.page,
		Capturer:  env.capturer,
		Logger:    util.NopLogger{},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = ts.Close() })
	env.tessera = ts
	return env
}

func (env *testEnv) bgCaptures() int {
	n := 0
	for _, c := range env.capturer.Calls() {
		if c.Node == env.page.Nodes["#bg1"] {
			n++
		}
	}
	return n
}

func messages(node ...*testdom.Node) []Node {
	out := make([]Node, len(node))
	for i, n := range node {
		out[i] = n
	}
	return out
}

func TestNewRequiresPageAndCapturer(t *testing.T) {
	if _, err := New(&Config{Capturer: &testdom.Capturer{}}); err == nil {
		t.Error("New() without Page: expected error")
	}
	if _, err := New(&Config{Page: &testdom.Page{}}); err == nil {
		t.Error("New() without Capturer: expected error")
	}
}

func TestNewAppliesDefaultSettings(t *testing.T) {
	ts, err := New(&Config{
		StorePath: filepath.Join(t.TempDir(), "tessera.db"),
		Page:      &testdom.Page{Container: &testdom.Node{}},
		Capturer:  &testdom.Capturer{},
		Logger:    util.NopLogger{},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer ts.Close()
	if got := ts.Settings(); got != DefaultSettings() {
		t.Errorf("Settings() = %+v, want %+v", got, DefaultSettings())
	}
}

func TestComposeEndToEnd(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.tessera.RefreshFonts(ctx, StyleSource{ImportURL: env.server.URL + "/css/theme.css"})

	nodes := messages(
		&testdom.Node{Name: "m1", Rect: Rect{Width: 400, Height: 100}, Text: "Hello"},
		&testdom.Node{Name: "m2", Rect: Rect{Width: 300, Height: 50}, Text: "world"},
	)
	out, err := env.tessera.Compose(ctx, nodes)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if b := out.Image.Bounds(); b.Dx() != 400 || b.Dy() != 155 {
		t.Errorf("output = %dx%d, want 400x155", b.Dx(), b.Dy())
	}

	calls := env.capturer.Calls()
	last := calls[len(calls)-1]
	if !strings.Contains(last.Markup, "data:font/ttf;base64,") {
		t.Errorf("capture markup has no inlined font")
	}
	if len(env.tessera.CaptureLogs()) == 0 {
		t.Error("CaptureLogs() empty after a composite")
	}

	if _, err := env.tessera.Compose(ctx, nodes); err != nil {
		t.Fatalf("second Compose() error = %v", err)
	}
	if n := env.fontHits.Load(); n != 1 {
		t.Errorf("font fetches = %d, want 1", n)
	}
	if n := env.bgCaptures(); n != 1 {
		t.Errorf("background captures = %d, want 1", n)
	}
}

func TestComposeFailureIsLogged(t *testing.T) {
	env := setupTestEnv(t)
	env.capturer.Fail = map[string]error{"m1": errors.New("boom")}

	_, err := env.tessera.Compose(context.Background(), messages(&testdom.Node{Name: "m1", Rect: Rect{Width: 10, Height: 10}}))
	var compErr CompositionError
	if !errors.As(err, &compErr) {
		t.Fatalf("Compose() error = %v, want CompositionError", err)
	}
	logs := env.tessera.CaptureLogs()
	if len(logs) == 0 || logs[len(logs)-1].Level != "error" {
		t.Errorf("CaptureLogs() = %v, want trailing error entry", logs)
	}
}

func TestApplySettingsInvalidatesBackground(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	nodes := messages(&testdom.Node{Name: "m1", Rect: Rect{Width: 100, Height: 100}})

	env.tessera.Compose(ctx, nodes)

	s := env.tessera.Settings()
	s.DebugOverlay = !s.DebugOverlay
	env.tessera.ApplySettings(s)
	env.tessera.Compose(ctx, nodes)
	if n := env.bgCaptures(); n != 1 {
		t.Errorf("background captures after unrelated change = %d, want 1", n)
	}

	s.Scale = 2
	env.tessera.ApplySettings(s)
	out, err := env.tessera.Compose(ctx, nodes)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if n := env.bgCaptures(); n != 2 {
		t.Errorf("background captures after scale change = %d, want 2", n)
	}
	if got := out.Image.Bounds().Dx(); got != 200 {
		t.Errorf("output width = %d, want 200", got)
	}

	env.tessera.NotifyResize(800, 600)
	env.tessera.Compose(ctx, nodes)
	if n := env.bgCaptures(); n != 3 {
		t.Errorf("background captures after resize = %d, want 3", n)
	}
}

func TestClearCache(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.tessera.RefreshFonts(ctx, StyleSource{ImportURL: env.server.URL + "/css/theme.css"})

	nodes := messages(&testdom.Node{Name: "m1", Rect: Rect{Width: 100, Height: 20}, Text: "hi"})
	if _, err := env.tessera.Compose(ctx, nodes); err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	if err := env.tessera.ClearCache(ctx); err != nil {
		t.Fatalf("ClearCache() error = %v", err)
	}
	if n := env.cssHits.Load(); n != 2 {
		t.Errorf("stylesheet fetches = %d, want a rebuild after clear", n)
	}

	if _, err := env.tessera.Compose(ctx, nodes); err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if n := env.fontHits.Load(); n != 2 {
		t.Errorf("font fetches = %d, want a refetch after clear", n)
	}
	if n := env.bgCaptures(); n != 2 {
		t.Errorf("background captures = %d, want a rebuild after clear", n)
	}
}
