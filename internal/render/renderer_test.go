package render

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	mu          sync.Mutex
	loadCalls   int
	renderCalls int
	loadErr     error
	renderErr   error
	output      []byte
}

func (e *fakeEngine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loadCalls++
	return e.loadErr
}

func (e *fakeEngine) Render(ctx context.Context, dot string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.renderCalls++
	if e.renderErr != nil {
		return nil, e.renderErr
	}
	if e.output != nil {
		return e.output, nil
	}
	return []byte("<svg>" + dot + "</svg>"), nil
}

func TestRenderMountsArtifact(t *testing.T) {
	engine := &fakeEngine{}
	r := NewRenderer(engine, 400, 0)
	surface := NewSurface()

	err := r.Render(context.Background(), "digraph {A->B}", surface)
	require.NoError(t, err)

	artifact, ok := surface.Current()
	require.True(t, ok)
	assert.False(t, artifact.Failed)
	assert.NotEmpty(t, artifact.ContainerID)
	assert.Contains(t, string(artifact.Body), "<svg>digraph {A->B}</svg>")
	assert.Contains(t, string(artifact.Body), "height:400px")
}

func TestRenderEmptyInputClearsWithoutEngine(t *testing.T) {
	engine := &fakeEngine{}
	r := NewRenderer(engine, 400, 0)
	surface := NewSurface()

	require.NoError(t, r.Render(context.Background(), "digraph {A->B}", surface))
	require.NoError(t, r.Render(context.Background(), "   ", surface))

	_, ok := surface.Current()
	assert.False(t, ok, "surface should be cleared")
	assert.Equal(t, 1, engine.renderCalls, "empty input must not reach the engine")
}

func TestRenderFailureMountsFallback(t *testing.T) {
	engine := &fakeEngine{renderErr: errors.New("syntax error near line 1")}
	r := NewRenderer(engine, 400, 0)
	surface := NewSurface()

	err := r.Render(context.Background(), "digraph {", surface)
	require.Error(t, err)

	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, "layout", renderErr.Stage)

	artifact, ok := surface.Current()
	require.True(t, ok, "failure must leave the fallback mounted, not an empty surface")
	assert.True(t, artifact.Failed)
	assert.Contains(t, string(artifact.Body), "Diagram rendering error")
	assert.Contains(t, string(artifact.Body), "syntax error near line 1")
	assert.Contains(t, string(artifact.Body), "digraph {")
	assert.Equal(t, "digraph {", artifact.Dot)
}

func TestRenderLoadFailureFallsBackAndRetries(t *testing.T) {
	engine := &fakeEngine{loadErr: errors.New("wasm runtime unavailable")}
	r := NewRenderer(engine, 400, 0)
	surface := NewSurface()

	err := r.Render(context.Background(), "digraph {A}", surface)
	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, "load", renderErr.Stage)

	artifact, ok := surface.Current()
	require.True(t, ok)
	assert.True(t, artifact.Failed)

	// A later render retries the load once the capability recovers.
	engine.loadErr = nil
	require.NoError(t, r.Render(context.Background(), "digraph {A}", surface))
	assert.Equal(t, 2, engine.loadCalls)
}

func TestRenderCachesByDotSource(t *testing.T) {
	engine := &fakeEngine{}
	r := NewRenderer(engine, 400, 8)
	surface := NewSurface()

	require.NoError(t, r.Render(context.Background(), "digraph {A->B}", surface))
	require.NoError(t, r.Render(context.Background(), "digraph {A->B}", surface))

	assert.Equal(t, 1, engine.renderCalls, "identical input should hit the cache")

	first, _ := surface.Current()
	require.NoError(t, r.Render(context.Background(), "digraph {A->B}", surface))
	second, _ := surface.Current()
	assert.Equal(t, first.Body, second.Body, "repeated renders must produce the same artifact")
	assert.NotEqual(t, first.ContainerID, second.ContainerID, "each render mounts a fresh container")
}

func TestConcurrentFirstUseLoadsOnce(t *testing.T) {
	engine := &fakeEngine{}
	r := NewRenderer(engine, 400, 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Render(context.Background(), "digraph {A}", NewSurface())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, engine.loadCalls)
}

func TestPrewarmFailureIsNonFatal(t *testing.T) {
	engine := &fakeEngine{loadErr: errors.New("download failed")}
	r := NewRenderer(engine, 400, 0)

	r.Prewarm(context.Background())

	// The renderer is still usable after the capability recovers.
	engine.loadErr = nil
	surface := NewSurface()
	require.NoError(t, r.Render(context.Background(), "digraph {A}", surface))
	_, ok := surface.Current()
	assert.True(t, ok)
}

func TestSurfaceLastRenderWins(t *testing.T) {
	surface := NewSurface()

	older := surface.Begin()
	newer := surface.Begin()

	surface.Commit(newer, Artifact{ContainerID: "new", Body: []byte("new")})
	surface.Commit(older, Artifact{ContainerID: "old", Body: []byte("old")})

	artifact, ok := surface.Current()
	require.True(t, ok)
	assert.Equal(t, "new", artifact.ContainerID, "a stale commit must not supersede a newer one")

	surface.Clear(older)
	_, ok = surface.Current()
	assert.True(t, ok, "a stale clear must not empty the surface")
}

func TestSurfaceNotifiesListeners(t *testing.T) {
	surface := NewSurface()
	var updates []Update
	surface.AddListener(func(u Update) { updates = append(updates, u) })

	gen := surface.Begin()
	surface.Commit(gen, Artifact{ContainerID: "c1"})
	gen = surface.Begin()
	surface.Clear(gen)

	require.Len(t, updates, 2)
	assert.Equal(t, StatusRendered, updates[0].Status)
	assert.Equal(t, "c1", updates[0].ContainerID)
	assert.Equal(t, StatusCleared, updates[1].Status)
}

func TestFallbackEscapesMarkup(t *testing.T) {
	engine := &fakeEngine{renderErr: errors.New("bad <input>")}
	r := NewRenderer(engine, 400, 0)
	surface := NewSurface()

	_ = r.Render(context.Background(), `digraph {label="<script>"}`, surface)

	artifact, _ := surface.Current()
	body := string(artifact.Body)
	assert.False(t, strings.Contains(body, "<script>"), "raw markup must be escaped in the fallback")
	assert.Contains(t, body, "&lt;script&gt;")
}
