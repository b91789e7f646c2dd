package votes

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/teamraj/votebot/logger"
)

type recheckKey struct {
	post   PostKey
	userId string
}

// Scheduler re-verifies membership some delay after a vote lands and
// revokes the vote if the voter has since left the channel. At most one
// task is pending per (post, user); scheduling again replaces the prior
// task instead of stacking a new one.
type Scheduler struct {
	checker    *Checker
	ledger     *Ledger
	display    *Syncer
	delay      time.Duration
	retryDelay time.Duration
	clock      clockwork.Clock

	mu      sync.Mutex
	pending map[recheckKey]chan struct{}
	closed  bool
	wg      sync.WaitGroup
}

func NewScheduler(checker *Checker, ledger *Ledger, display *Syncer, delay, retryDelay time.Duration, clock clockwork.Clock) *Scheduler {
	return &Scheduler{
		checker:    checker,
		ledger:     ledger,
		display:    display,
		delay:      delay,
		retryDelay: retryDelay,
		clock:      clock,
		pending:    make(map[recheckKey]chan struct{}),
	}
}

// ScheduleRecheck queues a one-shot re-verification of userId's vote on
// post, replacing any task already pending for the pair.
func (s *Scheduler) ScheduleRecheck(post PostKey, userId string) {
	s.schedule(post, userId, s.delay, true)
}

func (s *Scheduler) schedule(post PostKey, userId string, delay time.Duration, allowRetry bool) {
	key := recheckKey{post: post, userId: userId}
	cancel := make(chan struct{})

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if prior, ok := s.pending[key]; ok {
		close(prior)
	}
	s.pending[key] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()

		select {
		case <-s.clock.After(delay):
		case <-cancel:
			return
		}

		// The timer and a cancellation can fire together; only the task
		// still registered for the pair gets to act.
		s.mu.Lock()
		current := s.pending[key] == cancel
		if current {
			delete(s.pending, key)
		}
		s.mu.Unlock()
		if !current {
			return
		}

		s.fire(post, userId, allowRetry)
	}()
}

func (s *Scheduler) fire(post PostKey, userId string, allowRetry bool) {
	isMember, err := s.checker.CheckFresh(context.Background(), post.ChannelId, userId)
	if err != nil {
		// Dropping the re-check would leave a departed voter counted
		// forever, so one more attempt goes on the clock.
		if allowRetry {
			logger.Err().Printf("Re-check of %s on %s failed, rescheduling: %s\n", userId, post, err.Error())
			s.schedule(post, userId, s.retryDelay, false)
		} else {
			logger.Err().Printf("Re-check of %s on %s failed twice, giving up: %s\n", userId, post, err.Error())
		}
		return
	}

	if isMember {
		return
	}

	newCount, hadVote := s.ledger.Revoke(post, userId)
	if !hadVote {
		return
	}

	logger.Out().Printf("Revoked vote by %s on %s (no longer a member), count now %d\n", userId, post, newCount)
	_ = s.display.Render(post, newCount)
}

// CancelPost drops every pending task for post. Called when voting closes;
// nobody needs re-checks for a frozen post.
func (s *Scheduler) CancelPost(post PostKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, cancel := range s.pending {
		if key.post == post {
			close(cancel)
			delete(s.pending, key)
		}
	}
}

// Pending reports how many re-check tasks are waiting to fire.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.pending)
}

// Shutdown cancels all outstanding tasks and waits for their goroutines.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, cancel := range s.pending {
		close(cancel)
	}
	s.pending = make(map[recheckKey]chan struct{})
	s.mu.Unlock()

	s.wg.Wait()
}
