package render

import "sync"

// Update describes a surface change pushed to listeners.
type Update struct {
	ContainerID string `json:"containerId,omitempty"`
	Status      string `json:"status"`
}

const (
	StatusRendered = "rendered"
	StatusFailed   = "failed"
	StatusCleared  = "cleared"
)

// Artifact is the content currently mounted on a surface: either a rendered
// diagram or the inline failure fallback.
type Artifact struct {
	ContainerID string
	ContentType string
	Body        []byte
	Failed      bool
	FailureMsg  string
	Dot         string
}

// Surface is a render target. Each render claims a generation before doing
// any work and commits against it afterwards, so overlapping renders resolve
// last-claimed-wins with no partial mixing of old and new content.
type Surface struct {
	mu        sync.Mutex
	claimed   uint64
	current   *Artifact
	listeners []func(Update)
}

// NewSurface returns an empty surface.
func NewSurface() *Surface {
	return &Surface{}
}

// AddListener registers a callback invoked after every committed change.
func (s *Surface) AddListener(fn func(Update)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Begin claims a render generation. The returned token must be passed to
// Commit or Clear; a token older than the latest claim is discarded there.
func (s *Surface) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claimed++
	return s.claimed
}

// Commit mounts the artifact if gen is still the latest claim.
func (s *Surface) Commit(gen uint64, artifact Artifact) {
	s.mu.Lock()
	if gen != s.claimed {
		s.mu.Unlock()
		return
	}
	s.current = &artifact
	listeners := append(([]func(Update))(nil), s.listeners...)
	s.mu.Unlock()

	status := StatusRendered
	if artifact.Failed {
		status = StatusFailed
	}
	notify(listeners, Update{ContainerID: artifact.ContainerID, Status: status})
}

// Clear empties the surface if gen is still the latest claim.
func (s *Surface) Clear(gen uint64) {
	s.mu.Lock()
	if gen != s.claimed {
		s.mu.Unlock()
		return
	}
	s.current = nil
	listeners := append(([]func(Update))(nil), s.listeners...)
	s.mu.Unlock()

	notify(listeners, Update{Status: StatusCleared})
}

// Current returns the mounted artifact, or false when the surface is empty.
func (s *Surface) Current() (Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Artifact{}, false
	}
	return *s.current, true
}

func notify(listeners []func(Update), update Update) {
	for _, fn := range listeners {
		fn(update)
	}
}
