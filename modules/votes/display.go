package votes

import (
	"errors"
	"sync"

	"github.com/teamraj/votebot/logger"
)

// Renderer pushes a post's vote count to wherever the button lives.
// Implementations must treat "nothing changed" as success.
type Renderer interface {
	Render(post PostKey, count int) error
}

// Counter reports the authoritative current count for a post. *Ledger
// satisfies it.
type Counter interface {
	Count(post PostKey) int
}

type renderState struct {
	mu        sync.Mutex
	rendered  bool
	lastCount int
}

// Syncer keeps the externally visible count converging toward the ledger.
// Renders for the same post go through a per-post writer lock, and a render
// carrying a lower count than one already on screen is only applied when
// the ledger confirms the lower value is the current truth (a revocation)
// rather than a stale render arriving late.
type Syncer struct {
	renderer  Renderer
	authority Counter

	mu    sync.Mutex
	posts map[PostKey]*renderState
}

// NewSyncer wires a renderer to an optional authority. A nil authority
// makes lower-count renders always lose.
func NewSyncer(renderer Renderer, authority Counter) *Syncer {
	return &Syncer{
		renderer:  renderer,
		authority: authority,
		posts:     make(map[PostKey]*renderState),
	}
}

func (s *Syncer) Render(post PostKey, count int) error {
	rs := s.state(post)

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.rendered && count < rs.lastCount {
		if s.authority == nil {
			return nil
		}
		count = s.authority.Count(post)
	}
	if rs.rendered && count == rs.lastCount {
		return nil
	}

	err := s.renderer.Render(post, count)
	if err != nil {
		if errors.Is(err, ErrTargetGone) {
			logger.Out().Printf("Post %s is gone, skipping count update\n", post)
			return nil
		}
		logger.Err().Printf("Failed to update count on %s: %s\n", post, err.Error())
		return err
	}

	rs.rendered = true
	rs.lastCount = count
	return nil
}

func (s *Syncer) state(post PostKey) *renderState {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs := s.posts[post]
	if rs == nil {
		rs = &renderState{}
		s.posts[post] = rs
	}
	return rs
}
