package votes

import (
	"sync"
	"time"

	"github.com/teamraj/votebot/logger"
)

// PostKey identifies a tracked vote post.
type PostKey struct {
	ChannelId string
	MessageId string
}

func (p PostKey) String() string {
	return p.ChannelId + "/" + p.MessageId
}

// Store persists ledger mutations. Implementations are best-effort; the
// in-memory ledger stays the unit of truth within a process.
type Store interface {
	SavePost(post PostKey, frozen bool) error
	SaveVote(post PostKey, userId string, castAt time.Time) error
	DeleteVote(post PostKey, userId string) error
}

type postState struct {
	voters map[string]time.Time
	frozen bool
}

// journalDepth bounds how many store writes may queue up behind a slow
// store before further writes are dropped.
const journalDepth = 1024

// Ledger owns the per-post voter sets. Every mutation is a single atomic
// step under the ledger lock, so concurrent clicks for distinct users on
// the same post both land and both see a count covering both inserts.
//
// The ledger does not check membership itself; callers inject a fresh
// determination into TryVote.
type Ledger struct {
	mu    sync.Mutex
	posts map[PostKey]*postState

	store   Store
	journal chan func()
	wg      sync.WaitGroup
}

func NewLedger(store Store) *Ledger {
	l := &Ledger{
		posts: make(map[PostKey]*postState),
		store: store,
	}

	if store != nil {
		// Single writer keeps store calls in mutation order and out of
		// the ledger's lock-holding paths.
		l.journal = make(chan func(), journalDepth)
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			for op := range l.journal {
				op()
			}
		}()
	}

	return l
}

// Track registers a freshly published post with the ledger.
func (l *Ledger) Track(post PostKey) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.state(post)
	l.persist(func() {
		if err := l.store.SavePost(post, false); err != nil {
			logger.Err().Printf("Failed to persist post %s: %s\n", post, err.Error())
		}
	})
}

// Restore loads previously persisted state without writing it back.
func (l *Ledger) Restore(post PostKey, frozen bool, voters map[string]time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ps := l.state(post)
	ps.frozen = frozen
	for userId, castAt := range voters {
		ps.voters[userId] = castAt
	}
}

// TryVote records a vote for userId on post. The caller must have already
// obtained a fresh membership determination and passes it as isMemberFresh.
// Returns the post's new count on success.
func (l *Ledger) TryVote(post PostKey, userId string, isMemberFresh bool) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ps := l.state(post)
	if ps.frozen {
		return len(ps.voters), ErrFrozen
	}
	if _, ok := ps.voters[userId]; ok {
		return len(ps.voters), ErrAlreadyVoted
	}
	if !isMemberFresh {
		return len(ps.voters), ErrNotEligible
	}

	castAt := time.Now()
	ps.voters[userId] = castAt
	count := len(ps.voters)

	l.persist(func() {
		if err := l.store.SaveVote(post, userId, castAt); err != nil {
			logger.Err().Printf("Failed to persist vote by %s on %s: %s\n", userId, post, err.Error())
		}
	})

	return count, nil
}

// Revoke removes userId's vote from post. Revoking a user with no vote is
// a no-op. Revocation is allowed on frozen posts so counts stay accurate
// after voting closes.
func (l *Ledger) Revoke(post PostKey, userId string) (newCount int, hadVote bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ps := l.posts[post]
	if ps == nil {
		return 0, false
	}
	if _, ok := ps.voters[userId]; !ok {
		return len(ps.voters), false
	}

	delete(ps.voters, userId)
	count := len(ps.voters)

	l.persist(func() {
		if err := l.store.DeleteVote(post, userId); err != nil {
			logger.Err().Printf("Failed to remove persisted vote by %s on %s: %s\n", userId, post, err.Error())
		}
	})

	return count, true
}

func (l *Ledger) Count(post PostKey) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	ps := l.posts[post]
	if ps == nil {
		return 0
	}
	return len(ps.voters)
}

func (l *Ledger) HasVoted(post PostKey, userId string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	ps := l.posts[post]
	if ps == nil {
		return false
	}
	_, ok := ps.voters[userId]
	return ok
}

// Freeze closes a post for new votes. Terminal; there is no thaw.
func (l *Ledger) Freeze(post PostKey) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ps := l.state(post)
	ps.frozen = true
	l.persist(func() {
		if err := l.store.SavePost(post, true); err != nil {
			logger.Err().Printf("Failed to persist freeze of %s: %s\n", post, err.Error())
		}
	})
}

func (l *Ledger) IsFrozen(post PostKey) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	ps := l.posts[post]
	return ps != nil && ps.frozen
}

// Posts returns a snapshot of every tracked post.
func (l *Ledger) Posts() []PostKey {
	l.mu.Lock()
	defer l.mu.Unlock()

	keys := make([]PostKey, 0, len(l.posts))
	for k := range l.posts {
		keys = append(keys, k)
	}
	return keys
}

// TotalVotes returns the number of vote records across all posts.
func (l *Ledger) TotalVotes() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := 0
	for _, ps := range l.posts {
		total += len(ps.voters)
	}
	return total
}

// Close drains pending store writes.
func (l *Ledger) Close() {
	l.mu.Lock()
	journal := l.journal
	l.journal = nil
	l.mu.Unlock()

	if journal != nil {
		close(journal)
		l.wg.Wait()
	}
}

// state returns the post's state, creating it on first touch. Callers must
// hold the ledger lock.
func (l *Ledger) state(post PostKey) *postState {
	ps := l.posts[post]
	if ps == nil {
		ps = &postState{voters: make(map[string]time.Time)}
		l.posts[post] = ps
	}
	return ps
}

// persist enqueues a store write. Callers must hold the ledger lock, which
// keeps the journal in mutation order. A backlogged journal drops the
// write instead of stalling vote handling on store I/O; persistence is
// best-effort.
func (l *Ledger) persist(op func()) {
	if l.store == nil || l.journal == nil {
		return
	}
	select {
	case l.journal <- op:
	default:
		logger.Err().Print("Vote store backlog is full, dropping write")
	}
}
