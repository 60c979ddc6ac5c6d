package render

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-graphviz"
)

// Engine is the layout capability behind the renderer: it turns a DOT graph
// description into an SVG document. Loading is separated from rendering so
// the capability can be fetched lazily or pre-warmed at session start.
type Engine interface {
	Load(ctx context.Context) error
	Render(ctx context.Context, dot string) ([]byte, error)
}

// GraphvizEngine runs the embedded Graphviz layout engine.
type GraphvizEngine struct {
	mu sync.Mutex
	gv *graphviz.Graphviz
}

// NewGraphvizEngine returns an unloaded engine; the first Load instantiates
// the underlying Graphviz runtime.
func NewGraphvizEngine() *GraphvizEngine {
	return &GraphvizEngine{}
}

// Load instantiates the Graphviz runtime. Calling Load on a loaded engine
// is a no-op.
func (e *GraphvizEngine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gv != nil {
		return nil
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return fmt.Errorf("initialize graphviz: %w", err)
	}
	e.gv = gv
	return nil
}

// Render lays out the DOT source and returns the SVG document.
func (e *GraphvizEngine) Render(ctx context.Context, dot string) ([]byte, error) {
	e.mu.Lock()
	gv := e.gv
	e.mu.Unlock()
	if gv == nil {
		return nil, fmt.Errorf("graphviz engine not loaded")
	}

	graph, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse dot source: %w", err)
	}
	defer func() {
		_ = graph.Close()
	}()

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render dot source: %w", err)
	}
	return buf.Bytes(), nil
}
