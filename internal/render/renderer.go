// Package render turns DOT graph descriptions into visual artifacts mounted
// on a surface. Failures degrade to an inline fallback showing the error and
// the raw DOT source; they never propagate as an application fault.
package render

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 32

// RenderError describes a failed engine load or layout.
type RenderError struct {
	Stage string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("diagram %s failed: %v", e.Stage, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Renderer owns the layout engine lifecycle and an artifact cache. The
// engine is loaded lazily on first use; concurrent first uses coalesce into
// a single load. Prewarm performs the same load eagerly in the background.
type Renderer struct {
	engine Engine
	height int
	cache  *lru.Cache[string, []byte]

	loadMu sync.Mutex
	loaded bool
}

// NewRenderer wires a renderer around the given engine. Height is the fixed
// artifact height in pixels; cacheSize bounds the rendered-SVG cache and
// falls back to a small default when not positive.
func NewRenderer(engine Engine, height, cacheSize int) *Renderer {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, _ := lru.New[string, []byte](cacheSize)
	return &Renderer{engine: engine, height: height, cache: cache}
}

// Prewarm loads the engine ahead of the first render. Intended to run in a
// detached goroutine: failure is logged and the next render retries the load.
func (r *Renderer) Prewarm(ctx context.Context) {
	if err := r.ensureLoaded(ctx); err != nil {
		log.Printf("[render] warning: engine prewarm failed: %v", err)
		return
	}
	log.Println("[render] diagram engine pre-warmed")
}

// Render mounts the DOT source's artifact on the surface. An empty source
// clears the surface and succeeds without touching the engine. A load or
// layout failure mounts the inline fallback and returns a *RenderError.
func (r *Renderer) Render(ctx context.Context, dot string, surface *Surface) error {
	gen := surface.Begin()

	if strings.TrimSpace(dot) == "" {
		surface.Clear(gen)
		return nil
	}

	svg, err := r.renderSVG(ctx, dot)
	if err != nil {
		surface.Commit(gen, r.fallbackArtifact(dot, err))
		return err
	}

	surface.Commit(gen, Artifact{
		ContainerID: uuid.NewString(),
		ContentType: "text/html; charset=utf-8",
		Body:        r.wrapSVG(svg),
	})
	return nil
}

func (r *Renderer) renderSVG(ctx context.Context, dot string) ([]byte, error) {
	if svg, ok := r.cache.Get(dot); ok {
		return svg, nil
	}

	if err := r.ensureLoaded(ctx); err != nil {
		return nil, &RenderError{Stage: "load", Err: err}
	}

	svg, err := r.engine.Render(ctx, dot)
	if err != nil {
		return nil, &RenderError{Stage: "layout", Err: err}
	}

	r.cache.Add(dot, svg)
	return svg, nil
}

// ensureLoaded performs the one-time engine load. The mutex is held across
// the load so concurrent first uses wait instead of loading twice; a failed
// load leaves the renderer unloaded and a later call retries.
func (r *Renderer) ensureLoaded(ctx context.Context) error {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	if r.loaded {
		return nil
	}
	if err := r.engine.Load(ctx); err != nil {
		return err
	}
	r.loaded = true
	return nil
}

// wrapSVG mounts the SVG in a fresh full-width container with the fixed
// configured height.
func (r *Renderer) wrapSVG(svg []byte) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, `<div style="width:100%%;height:%dpx;overflow:auto">`, r.height)
	b.Write(svg)
	b.WriteString(`</div>`)
	return []byte(b.String())
}

// fallbackArtifact builds the inline failure view: an error heading, the
// raw failure message and the unrendered DOT source.
func (r *Renderer) fallbackArtifact(dot string, err error) Artifact {
	var b strings.Builder
	b.WriteString(`<div class="diagram-error">`)
	b.WriteString(`<h3>Diagram rendering error</h3>`)
	fmt.Fprintf(&b, `<pre>%s</pre>`, html.EscapeString(err.Error()))
	b.WriteString(`<p>Raw DOT source:</p>`)
	fmt.Fprintf(&b, `<pre>%s</pre>`, html.EscapeString(dot))
	b.WriteString(`</div>`)

	return Artifact{
		ContainerID: uuid.NewString(),
		ContentType: "text/html; charset=utf-8",
		Body:        []byte(b.String()),
		Failed:      true,
		FailureMsg:  err.Error(),
		Dot:         dot,
	}
}
