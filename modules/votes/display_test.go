package votes

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type renderCall struct {
	post  PostKey
	count int
}

type recordingRenderer struct {
	mu     sync.Mutex
	calls  []renderCall
	err    error
	signal chan renderCall
}

func newRecordingRenderer() *recordingRenderer {
	return &recordingRenderer{signal: make(chan renderCall, 16)}
}

func (r *recordingRenderer) Render(post PostKey, count int) error {
	r.mu.Lock()
	r.calls = append(r.calls, renderCall{post: post, count: count})
	err := r.err
	r.mu.Unlock()

	select {
	case r.signal <- renderCall{post: post, count: count}:
	default:
	}
	return err
}

func (r *recordingRenderer) snapshot() []renderCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]renderCall(nil), r.calls...)
}

func (r *recordingRenderer) countRenders(count int) int {
	n := 0
	for _, c := range r.snapshot() {
		if c.count == count {
			n++
		}
	}
	return n
}

type stubCounter struct {
	mu    sync.Mutex
	count int
}

func (s *stubCounter) Count(post PostKey) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *stubCounter) set(count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count = count
}

func TestSyncer_StaleLowerCountDoesNotRegress(t *testing.T) {
	renderer := newRecordingRenderer()
	authority := &stubCounter{count: 3}
	s := NewSyncer(renderer, authority)

	require.NoError(t, s.Render(testPost, 3))
	// a stale render for an older count arrives late
	require.NoError(t, s.Render(testPost, 2))

	assert.Equal(t, []renderCall{{testPost, 3}}, renderer.snapshot())
}

func TestSyncer_RevocationLowersCount(t *testing.T) {
	renderer := newRecordingRenderer()
	authority := &stubCounter{count: 1}
	s := NewSyncer(renderer, authority)

	require.NoError(t, s.Render(testPost, 1))

	// vote got revoked; the ledger now says 0, so the drop is real
	authority.set(0)
	require.NoError(t, s.Render(testPost, 0))

	assert.Equal(t, []renderCall{{testPost, 1}, {testPost, 0}}, renderer.snapshot())
}

func TestSyncer_RepeatedCountIsNoop(t *testing.T) {
	renderer := newRecordingRenderer()
	s := NewSyncer(renderer, nil)

	require.NoError(t, s.Render(testPost, 2))
	require.NoError(t, s.Render(testPost, 2))

	assert.Len(t, renderer.snapshot(), 1)
}

func TestSyncer_NilAuthorityDropsLowerCounts(t *testing.T) {
	renderer := newRecordingRenderer()
	s := NewSyncer(renderer, nil)

	require.NoError(t, s.Render(testPost, 3))
	require.NoError(t, s.Render(testPost, 2))

	assert.Equal(t, []renderCall{{testPost, 3}}, renderer.snapshot())
}

func TestSyncer_TargetGoneIsNotAnError(t *testing.T) {
	renderer := newRecordingRenderer()
	renderer.err = fmt.Errorf("%w: message deleted", ErrTargetGone)
	s := NewSyncer(renderer, nil)

	assert.NoError(t, s.Render(testPost, 1))
}

func TestSyncer_OtherRenderErrorsPropagate(t *testing.T) {
	renderer := newRecordingRenderer()
	renderer.err = errors.New("rate limited")
	s := NewSyncer(renderer, nil)

	assert.Error(t, s.Render(testPost, 1))
}

func TestSyncer_FailedRenderDoesNotAdvanceState(t *testing.T) {
	renderer := newRecordingRenderer()
	s := NewSyncer(renderer, nil)

	renderer.err = errors.New("rate limited")
	require.Error(t, s.Render(testPost, 1))

	// once the transport recovers the same count goes out again
	renderer.mu.Lock()
	renderer.err = nil
	renderer.mu.Unlock()
	require.NoError(t, s.Render(testPost, 1))

	assert.Equal(t, []renderCall{{testPost, 1}, {testPost, 1}}, renderer.snapshot())
}

func TestSyncer_PostsAreIndependent(t *testing.T) {
	renderer := newRecordingRenderer()
	s := NewSyncer(renderer, nil)

	other := PostKey{ChannelId: "chan-2", MessageId: "msg-9"}
	require.NoError(t, s.Render(testPost, 5))
	require.NoError(t, s.Render(other, 1))

	assert.Equal(t, []renderCall{{testPost, 5}, {other, 1}}, renderer.snapshot())
}
