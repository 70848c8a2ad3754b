package main

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/recera/pinchzoom/cmd/pinchzoom/internal/config"
	"github.com/recera/pinchzoom/internal/cache"
	"github.com/recera/pinchzoom/internal/imagestore"
	"github.com/recera/pinchzoom/pkg/components/imagezoom"
	"github.com/recera/pinchzoom/pkg/live"
	"github.com/recera/pinchzoom/pkg/renderer/html"
	"github.com/recera/pinchzoom/pkg/vdom"
	"github.com/recera/pinchzoom/pkg/zoom"
)

const (
	livePrefix = "/live/"
	hammerURL  = "https://cdn.jsdelivr.net/npm/hammerjs@2.0.8/hammer.min.js"
)

const galleryCSS = `body{font-family:system-ui,sans-serif;margin:2rem;background:#0f172a;color:#e2e8f0}
.gallery{display:grid;grid-template-columns:repeat(auto-fill,minmax(320px,1fr));gap:1.5rem}
figure{margin:0}
figcaption{margin-top:.5rem;font-size:.85rem;color:#94a3b8}
.pinchzoom{cursor:zoom-in;background:#1e293b}`

const bootScript = `const go = new Go();
WebAssembly.instantiateStreaming(fetch("/client.wasm"), go.importObject)
  .then((result) => go.run(result.instance))
  .catch((err) => console.error("pinchzoom: failed to start", err));`

// gallery serves the image directory as a page of zoom widgets
type gallery struct {
	store    *imagestore.Store
	live     *live.Server
	zoom     config.ZoomConfig
	useLive  bool
	wasmPath string
	wasmExec string
}

func newGallery(store *imagestore.Store, cfg *config.Config, wasmPath string) *gallery {
	return &gallery{
		store:    store,
		live:     live.NewServer(livePrefix, zoom.GestureConfig{ScaleStep: cfg.Zoom.ScaleStep}),
		zoom:     cfg.Zoom,
		useLive:  cfg.Server.Live,
		wasmPath: wasmPath,
		wasmExec: findWasmExec(),
	}
}

func (g *gallery) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", g.serveIndex)
	mux.HandleFunc("/images/", g.serveImage)
	mux.HandleFunc("/thumbs/", g.serveThumbnail)
	mux.Handle(livePrefix, g.live)

	mux.HandleFunc("/client.wasm", g.serveWASM)
	mux.HandleFunc("/wasm_exec.js", g.serveWasmExec)

	return mux
}

func (g *gallery) serveIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n")
	if err := html.NewRenderer(&buf).Render(g.page(r)); err != nil {
		log.Printf("[Gallery] %v", err)
		http.Error(w, "Failed to render gallery", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(buf.Bytes())
}

// page builds the gallery document
func (g *gallery) page(r *http.Request) *vdom.Node {
	images := g.store.List()

	figures := make([]*vdom.Node, 0, len(images))
	for _, img := range images {
		figures = append(figures, g.figure(r, img))
	}

	var body *vdom.Node
	if len(figures) == 0 {
		body = vdom.Element("p", nil, vdom.Text("No images found in "+g.store.Dir()))
	} else {
		body = vdom.Element("div", vdom.Props{"class": "gallery"}, figures...)
	}

	return vdom.Element("html", vdom.Props{"lang": "en"},
		vdom.Element("head", nil,
			vdom.Element("meta", vdom.Props{"charset": "utf-8"}),
			vdom.Element("meta", vdom.Props{"name": "viewport", "content": "width=device-width,initial-scale=1"}),
			vdom.Element("title", nil, vdom.Text("pinchzoom gallery")),
			vdom.Element("style", nil, vdom.Text(galleryCSS)),
			vdom.Element("script", vdom.Props{"src": hammerURL}),
			vdom.Element("script", vdom.Props{"src": "/wasm_exec.js"}),
		),
		vdom.Element("body", nil,
			vdom.Element("h1", nil, vdom.Text(fmt.Sprintf("%d images", len(images)))),
			body,
			vdom.Element("script", nil, vdom.Text(bootScript)),
		),
	)
}

func (g *gallery) figure(r *http.Request, img imagestore.Image) *vdom.Node {
	opts := &imagezoom.Options{
		Alt:        img.Name,
		LazyLoad:   imagezoom.Bool(g.zoom.Lazy()),
		DeltaScale: g.zoom.ScaleStep,
	}
	if g.useLive {
		opts.Live = liveURL(r, sessionID(img.Name))
	}

	caption := fmt.Sprintf("%s · %.0f×%.0f · %s", img.Name,
		img.Metrics.NaturalWidth, img.Metrics.NaturalHeight, humanize.Bytes(uint64(img.Size)))

	return vdom.Element("figure", nil,
		imagezoom.Markup("/thumbs/"+escapePath(img.Name), "/images/"+escapePath(img.Name), opts),
		vdom.Element("figcaption", nil, vdom.Text(caption)),
	)
}

// sessionID derives a slash-free live session ID from an image name
func sessionID(name string) string {
	return cache.Key("live", name)[:16]
}

func liveURL(r *http.Request, id string) string {
	scheme := "ws"
	if r.TLS != nil {
		scheme = "wss"
	}
	return scheme + "://" + r.Host + livePrefix + id
}

func escapePath(name string) string {
	parts := strings.Split(name, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func (g *gallery) lookup(w http.ResponseWriter, r *http.Request, prefix string) (imagestore.Image, bool) {
	name := strings.TrimPrefix(path.Clean(r.URL.Path), prefix)
	img, err := g.store.Lookup(name)
	if err != nil {
		if !errors.Is(err, imagestore.ErrNotFound) {
			log.Printf("[Gallery] %v", err)
		}
		http.NotFound(w, r)
		return imagestore.Image{}, false
	}
	return img, true
}

func (g *gallery) serveImage(w http.ResponseWriter, r *http.Request) {
	img, ok := g.lookup(w, r, "/images/")
	if !ok {
		return
	}
	http.ServeFile(w, r, img.Path)
}

func (g *gallery) serveThumbnail(w http.ResponseWriter, r *http.Request) {
	img, ok := g.lookup(w, r, "/thumbs/")
	if !ok {
		return
	}
	data, err := g.store.Thumbnail(img.Name)
	if err != nil {
		log.Printf("[Gallery] Thumbnail for %s failed: %v", img.Name, err)
		http.Error(w, "Failed to build thumbnail", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(data)
}

func (g *gallery) serveWASM(w http.ResponseWriter, r *http.Request) {
	if _, err := os.Stat(g.wasmPath); err != nil {
		http.Error(w, "client.wasm not built; run: GOOS=js GOARCH=wasm go build -o "+g.wasmPath+" ./app/client", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/wasm")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, g.wasmPath)
}

func (g *gallery) serveWasmExec(w http.ResponseWriter, r *http.Request) {
	if g.wasmExec == "" {
		http.Error(w, "Failed to resolve wasm_exec.js", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, g.wasmExec)
}

// findWasmExec locates the JS glue shipped with the Go toolchain
func findWasmExec() string {
	root := runtime.GOROOT()
	if env := os.Getenv("GOROOT"); env != "" {
		root = env
	}
	for _, dir := range []string{"lib/wasm", "misc/wasm"} {
		p := filepath.Join(root, dir, "wasm_exec.js")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
