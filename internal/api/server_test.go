package api

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"

	"github.com/Cxndr/optcgsim-themer-sub000/internal/assets"
	themerimage "github.com/Cxndr/optcgsim-themer-sub000/internal/image"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/preview"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/processor"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/theme"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/worker"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// solidLoader decodes data URIs and answers any other reference with a
// solid image.
type solidLoader struct{}

func (solidLoader) Load(ctx context.Context, ref string) (image.Image, error) {
	if strings.HasPrefix(ref, "data:") {
		return themerimage.NewSmartLoader().Load(ctx, ref)
	}
	return imaging.New(64, 48, color.NRGBA{R: 200, G: 40, B: 40, A: 255}), nil
}

// failLoader fails every load.
type failLoader struct{}

func (failLoader) Load(_ context.Context, ref string) (image.Image, error) {
	return nil, &themerimage.DecodeError{Source: ref, Err: errors.New("boom")}
}

// newServer builds a server over procedural assets. Local sources are
// allowed so tests can name slots with plain filenames.
func newServer(t *testing.T, mods ...func(*Options)) *Server {
	t.Helper()
	cache := assets.NewCache(assets.ChainSource{
		assets.NewFSSource(fstest.MapFS{}, "."),
		assets.NewProceduralSource(processor.DefaultTables().Recipes()),
	}, nil)
	proc, err := processor.New(cache)
	if err != nil {
		t.Fatal(err)
	}
	pool := worker.NewPool(worker.NewRenderer(proc, themerimage.EncodeOptions{}), 2, nil)
	t.Cleanup(func() { _ = pool.Close() })

	opts := Options{
		Worker:            pool,
		Loader:            solidLoader{},
		Processor:         proc,
		Preview:           preview.Options{Debounce: -1},
		AllowLocalSources: true,
	}
	for _, mod := range mods {
		mod(&opts)
	}
	s, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return s
}

func do(t *testing.T, h http.Handler, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func doJSON(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, h, method, target, strings.NewReader(body), "application/json")
}

func createSession(t *testing.T, h http.Handler, body string) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/sessions", strings.NewReader(body), "application/yaml")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: %d %s", rec.Code, rec.Body)
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.ID == "" {
		t.Fatalf("create session response %s: %v", rec.Body, err)
	}
	return resp.ID
}

func getTheme(t *testing.T, h http.Handler, id string) theme.Snapshot {
	t.Helper()
	rec := do(t, h, http.MethodGet, "/api/sessions/"+id, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get session: %d %s", rec.Code, rec.Body)
	}
	var resp struct {
		Theme theme.Snapshot `json:"theme"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp.Theme
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	rec := do(t, s.Handler(), http.MethodGet, "/api/health", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("health = %d %s", rec.Code, rec.Body)
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("expected error without worker, loader and processor")
	}
}

func TestUnknownSession(t *testing.T) {
	s := newServer(t)
	rec := do(t, s.Handler(), http.MethodGet, "/api/sessions/nope", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestSessionFromYAML(t *testing.T) {
	s := newServer(t)
	id := createSession(t, s.Handler(), "playmats:\n  overlay: area-markers\n  images:\n    Red: red.png\n")

	snap := getTheme(t, s.Handler(), id)
	if snap.Playmats.Style.Overlay != theme.PlaymatOverlayAreaMarkers {
		t.Errorf("overlay = %q", snap.Playmats.Style.Overlay)
	}
	if img := snap.Playmats.Images[theme.Red]; img == nil || img.Source != "red.png" {
		t.Errorf("Red = %+v", img)
	}

	rec := do(t, s.Handler(), http.MethodPost, "/api/sessions", strings.NewReader("playmats:\n  overlay: sparkles\n"), "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid theme status = %d", rec.Code)
	}
}

func TestSlotAndStyleUpdates(t *testing.T) {
	s := newServer(t)
	h := s.Handler()
	id := createSession(t, h, "")
	base := "/api/sessions/" + id

	if rec := doJSON(t, h, http.MethodPut, base+"/slots/playmat/Red", `{"source":"red.png"}`); rec.Code != http.StatusOK {
		t.Fatalf("set slot: %d %s", rec.Code, rec.Body)
	}
	if rec := doJSON(t, h, http.MethodPut, base+"/slots/playmat/Pink", `{"source":"x.png"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown colour status = %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodPut, base+"/style/card-back", `{"don_overlay":"op-logo","shadow":true}`); rec.Code != http.StatusOK {
		t.Fatalf("set style: %d %s", rec.Code, rec.Body)
	}

	// A rejected field leaves every field of the request unapplied.
	rec := doJSON(t, h, http.MethodPut, base+"/style/playmat", `{"overlay":"area-markers","edge":"jagged"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid style status = %d", rec.Code)
	}
	var body struct {
		Field string   `json:"field"`
		Valid []string `json:"valid"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Field != "playmats.edge" || len(body.Valid) == 0 {
		t.Errorf("error body = %s", rec.Body)
	}

	snap := getTheme(t, h, id)
	if snap.Playmats.Images[theme.Red] == nil {
		t.Error("Red playmat should be set")
	}
	if snap.Playmats.Style.Overlay != theme.PlaymatOverlayNone {
		t.Errorf("overlay = %q, want unchanged", snap.Playmats.Style.Overlay)
	}
	if snap.CardBacks.Style.DonOverlay != theme.CardBackOverlayOPLogo || !snap.CardBacks.Style.Shadow {
		t.Errorf("card back style = %+v", snap.CardBacks.Style)
	}
	if snap.CardBacks.Style.DeckOverlay != theme.CardBackOverlayNone {
		t.Errorf("deck overlay = %q, want untouched", snap.CardBacks.Style.DeckOverlay)
	}

	if rec := doJSON(t, h, http.MethodPut, base+"/slots/playmat/Red", `{"source":""}`); rec.Code != http.StatusOK {
		t.Fatalf("clear slot: %d", rec.Code)
	}
	if getTheme(t, h, id).Playmats.Images[theme.Red] != nil {
		t.Error("empty source should clear the slot")
	}
}

func TestPreview(t *testing.T) {
	s := newServer(t)
	h := s.Handler()
	id := createSession(t, h, "")
	base := "/api/sessions/" + id

	if rec := do(t, h, http.MethodGet, base+"/preview/playmat/Red", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("preview before any request = %d", rec.Code)
	}

	doJSON(t, h, http.MethodPut, base+"/slots/playmat/Red", `{"source":"red.png"}`)
	rec := do(t, h, http.MethodPost, base+"/preview/playmat/Red?wait=true", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("sync preview: %d %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
	if rec.Header().Get("X-Preview-Token") == "" {
		t.Error("missing preview token header")
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != processor.PlaymatSize.W || cfg.Height != processor.PlaymatSize.H {
		t.Errorf("preview size = %dx%d", cfg.Width, cfg.Height)
	}

	if rec := do(t, h, http.MethodGet, base+"/preview/playmat/Red", nil, ""); rec.Code != http.StatusOK {
		t.Errorf("latest preview = %d", rec.Code)
	}

	// An empty slot renders to an error result, which is not displayable.
	rec = do(t, h, http.MethodPost, base+"/preview/menu/Home?wait=true", nil, "")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "no preview available") {
		t.Errorf("empty slot preview = %d %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodPost, base+"/preview/playmat/Red", nil, "")
	if rec.Code != http.StatusAccepted || !strings.Contains(rec.Body.String(), `"token"`) {
		t.Errorf("async preview = %d %s", rec.Code, rec.Body)
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, imaging.New(w, h, color.NRGBA{G: 255, A: 255})); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestUploadCards(t *testing.T) {
	s := newServer(t)
	h := s.Handler()
	id := createSession(t, h, "")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, name := range []string{"OP01-001.png", "ST01-012.png"} {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write(pngBytes(t, 120, 167))
	}
	_ = mw.Close()

	rec := do(t, h, http.MethodPost, "/api/sessions/"+id+"/cards", &body, mw.FormDataContentType())
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body)
	}

	snap := getTheme(t, h, id)
	img := snap.Cards.Images["OP01-001"]
	if img == nil || !strings.HasPrefix(img.Source, "data:image/png;base64,") {
		t.Fatalf("uploaded card = %+v", img)
	}
	if len(snap.Cards.Images) != 2 {
		t.Errorf("cards = %d, want 2", len(snap.Cards.Images))
	}

	// Uploaded cards go through the small-card pipeline when 120px wide.
	rec = do(t, h, http.MethodPost, "/api/sessions/"+id+"/preview/card/OP01-001?wait=true", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("card preview: %d %s", rec.Code, rec.Body)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != processor.SmallCardSize.W {
		t.Errorf("card width = %d, want %d", cfg.Width, processor.SmallCardSize.W)
	}

	var bad bytes.Buffer
	mw = multipart.NewWriter(&bad)
	fw, _ := mw.CreateFormFile("files", "notes.png")
	_, _ = fw.Write([]byte("not an image"))
	_ = mw.Close()
	if rec := do(t, h, http.MethodPost, "/api/sessions/"+id+"/cards", &bad, mw.FormDataContentType()); rec.Code != http.StatusBadRequest {
		t.Errorf("undecodable upload = %d", rec.Code)
	}
}

func TestExport(t *testing.T) {
	s := newServer(t)
	h := s.Handler()
	id := createSession(t, h, "")
	base := "/api/sessions/" + id

	if names := exportEntries(t, h, base, "0"); len(names) != 0 {
		t.Errorf("empty export entries = %v", names)
	}

	doJSON(t, h, http.MethodPut, base+"/slots/playmat/Red", `{"source":"red.png"}`)
	doJSON(t, h, http.MethodPut, base+"/slots/don-card/don", `{"source":"don.png"}`)

	names := exportEntries(t, h, base, "0")
	if strings.Join(names, ",") != "Playmats/Red.png,Cards/Don/Don.png" {
		t.Errorf("entries = %v", names)
	}
}

func TestExportAllFailedStillReturnsArchive(t *testing.T) {
	s := newServer(t, func(o *Options) { o.Loader = failLoader{} })
	h := s.Handler()
	id := createSession(t, h, "")
	base := "/api/sessions/" + id
	doJSON(t, h, http.MethodPut, base+"/slots/playmat/Red", `{"source":"red.png"}`)

	if names := exportEntries(t, h, base, "1"); len(names) != 0 {
		t.Errorf("entries = %v, want none", names)
	}
}

// exportEntries fetches the session's archive and returns its entry names.
func exportEntries(t *testing.T, h http.Handler, base, wantFailures string) []string {
	t.Helper()
	rec := do(t, h, http.MethodGet, base+"/export", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export: %d %s", rec.Code, rec.Body)
	}
	if rec.Header().Get("Content-Type") != "application/zip" || rec.Header().Get("X-Themer-Failures") != wantFailures {
		t.Errorf("headers = %v", rec.Header())
	}
	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func TestLocalSourcesRejected(t *testing.T) {
	s := newServer(t, func(o *Options) { o.AllowLocalSources = false })
	h := s.Handler()
	id := createSession(t, h, "")
	base := "/api/sessions/" + id

	tests := []struct {
		name   string
		source string
		want   int
	}{
		{"absolute path", "/etc/secret.png", http.StatusBadRequest},
		{"relative path", "../art/red.png", http.StatusBadRequest},
		{"https url", "https://example.com/red.png", http.StatusOK},
		{"blank clears", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPut, base+"/slots/playmat/Red", `{"source":"`+tt.source+`"}`)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
		})
	}

	for _, body := range []string{
		"playmats:\n  images:\n    Red: /etc/secret.png\n",
		"cards:\n  dir: /var/lib\n",
	} {
		rec := do(t, h, http.MethodPost, "/api/sessions", strings.NewReader(body), "application/yaml")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("theme %q status = %d, want 400", body, rec.Code)
		}
	}
}

func TestEventsStream(t *testing.T) {
	s := newServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	id := createSession(t, s.Handler(), "")
	doJSON(t, s.Handler(), http.MethodPut, "/api/sessions/"+id+"/slots/playmat/Red", `{"source":"red.png"}`)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/sessions/"+id+"/events", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	var ev Event
	if err := conn.ReadJSON(&ev); err != nil || ev.Type != EventHello || ev.Session != id {
		t.Fatalf("hello = %+v, %v", ev, err)
	}
	if n := s.Hub().Count(id); n != 1 {
		t.Errorf("subscribers = %d", n)
	}

	resp, err := http.Get(srv.URL + "/api/sessions/" + id + "/export")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()

	var stages []string
	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("reading events after %v: %v", stages, err)
		}
		if ev.Type == EventDone {
			if ev.Files != 1 || len(ev.Failed) != 0 {
				t.Errorf("done = %+v", ev)
			}
			break
		}
		stages = append(stages, ev.Stage)
	}
	if strings.Join(stages, ",") != "Playmats,Archive" {
		t.Errorf("stages = %v", stages)
	}
}

func TestDeleteSession(t *testing.T) {
	s := newServer(t)
	h := s.Handler()
	id := createSession(t, h, "")
	if rec := do(t, h, http.MethodDelete, "/api/sessions/"+id, nil, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/sessions/"+id, nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("after delete = %d", rec.Code)
	}
}

func TestRejectedSettingIsLogged(t *testing.T) {
	var logs syncBuffer
	s := newServer(t, func(o *Options) {
		o.Logger = hclog.New(&hclog.LoggerOptions{Output: &logs, Level: hclog.Warn})
	})
	h := s.Handler()
	id := createSession(t, h, "")

	rec := doJSON(t, h, http.MethodPut, "/api/sessions/"+id+"/style/playmat", `{"edge":"jagged"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	out := logs.String()
	if !strings.Contains(out, "setting rejected") || !strings.Contains(out, "playmats.edge") || !strings.Contains(out, "jagged") {
		t.Errorf("log output = %q", out)
	}
}

// syncBuffer is a bytes.Buffer safe for the logger's concurrent writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
