package votes

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/teamraj/votebot/api/env"
	"github.com/teamraj/votebot/logger"
)

// Reason tells the transport layer what to show the clicking user.
type Reason string

const (
	ReasonAccepted     Reason = "accepted"
	ReasonAlreadyVoted Reason = "already_voted"
	ReasonNotMember    Reason = "not_member"
	ReasonFrozen       Reason = "frozen"
	ReasonCheckFailed  Reason = "check_failed"
)

// Outcome is the result of a vote click. Err carries the classified
// directory failure when one occurred, so the operator surface can tell
// "not a member" apart from "bot cannot check membership".
type Outcome struct {
	Accepted bool
	NewCount int
	Reason   Reason
	Err      error
}

// Config collects every tunable of the vote core. ConfigFromEnv fills it
// from the environment, falling back to the defaults below.
type Config struct {
	CacheTTL          time.Duration
	RecheckDelay      time.Duration
	RecheckRetryDelay time.Duration
	JanitorInterval   time.Duration
	OracleRetries     int
	OracleBackoff     time.Duration
	OracleTimeout     time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		CacheTTL:          env.GetDurationOr("votes.cache_ttl", 5*time.Minute),
		RecheckDelay:      env.GetDurationOr("votes.recheck_delay", 5*time.Minute),
		RecheckRetryDelay: env.GetDurationOr("votes.recheck_retry_delay", time.Minute),
		JanitorInterval:   env.GetDurationOr("votes.janitor_interval", 10*time.Minute),
		OracleRetries:     env.GetIntOr("votes.oracle_retries", 2),
		OracleBackoff:     env.GetDurationOr("votes.oracle_backoff", 2*time.Second),
		OracleTimeout:     env.GetDurationOr("votes.oracle_timeout", 10*time.Second),
	}
}

// Service wires the ledger, membership checking, display sync, re-check
// scheduling and cache janitor together behind the single entry point the
// transport layer calls.
type Service struct {
	cfg     Config
	ledger  *Ledger
	cache   *Cache
	checker *Checker
	display *Syncer
	sched   *Scheduler
	janitor *Janitor
}

func NewService(oracle Oracle, renderer Renderer, store Store, cfg Config, clock clockwork.Clock) *Service {
	ledger := NewLedger(store)
	cache := NewCache(cfg.CacheTTL, clock)
	checker := NewChecker(cache, oracle, cfg.OracleRetries, cfg.OracleBackoff, cfg.OracleTimeout, clock)
	display := NewSyncer(renderer, ledger)
	sched := NewScheduler(checker, ledger, display, cfg.RecheckDelay, cfg.RecheckRetryDelay, clock)
	janitor := NewJanitor(cache, cfg.JanitorInterval, 2*cfg.CacheTTL, clock)
	janitor.Start()

	return &Service{
		cfg:     cfg,
		ledger:  ledger,
		cache:   cache,
		checker: checker,
		display: display,
		sched:   sched,
		janitor: janitor,
	}
}

// OnVoteClick handles a button click. Membership is always determined
// fresh at the moment of voting; the cache only shields lookups that
// happen between clicks.
func (s *Service) OnVoteClick(ctx context.Context, channelId, messageId, userId string) Outcome {
	post := PostKey{ChannelId: channelId, MessageId: messageId}

	if s.ledger.IsFrozen(post) {
		return Outcome{NewCount: s.ledger.Count(post), Reason: ReasonFrozen}
	}
	if s.ledger.HasVoted(post, userId) {
		return Outcome{NewCount: s.ledger.Count(post), Reason: ReasonAlreadyVoted}
	}

	isMember, checkErr := s.checker.CheckFresh(ctx, channelId, userId)
	if checkErr != nil && OracleErrKind(checkErr) == KindUnavailable {
		// Could not determine membership at all; tell the user to retry
		// rather than burning their one vote on a fail-closed answer.
		return Outcome{NewCount: s.ledger.Count(post), Reason: ReasonCheckFailed, Err: checkErr}
	}

	count, err := s.ledger.TryVote(post, userId, isMember)
	switch {
	case err == nil:
		_ = s.display.Render(post, count)
		s.sched.ScheduleRecheck(post, userId)
		return Outcome{Accepted: true, NewCount: count, Reason: ReasonAccepted}
	case errors.Is(err, ErrAlreadyVoted):
		return Outcome{NewCount: count, Reason: ReasonAlreadyVoted}
	case errors.Is(err, ErrFrozen):
		return Outcome{NewCount: count, Reason: ReasonFrozen}
	default:
		if checkErr != nil {
			logger.Err().Printf("Vote by %s on %s rejected, membership check failed closed: %s\n", userId, post, checkErr.Error())
		}
		return Outcome{NewCount: count, Reason: ReasonNotMember, Err: checkErr}
	}
}

// VerifyAccess confirms the membership lookup path works for channelId by
// checking the given user. A transient failure passes; a permission or
// unknown-subject failure comes back so the operator can fix the setup
// before a post goes out.
func (s *Service) VerifyAccess(ctx context.Context, channelId, userId string) error {
	_, err := s.checker.CheckFresh(ctx, channelId, userId)
	if err != nil && OracleErrKind(err) != KindUnavailable {
		return err
	}
	return nil
}

// TrackPost registers a freshly published post.
func (s *Service) TrackPost(post PostKey) {
	s.ledger.Track(post)
}

// RestorePost loads persisted state for a post.
func (s *Service) RestorePost(post PostKey, frozen bool, voters map[string]time.Time) {
	s.ledger.Restore(post, frozen, voters)
}

// ClosePost freezes a post, cancels its pending re-checks and returns the
// final count.
func (s *Service) ClosePost(post PostKey) int {
	s.ledger.Freeze(post)
	s.sched.CancelPost(post)
	return s.ledger.Count(post)
}

func (s *Service) Count(post PostKey) int {
	return s.ledger.Count(post)
}

func (s *Service) IsFrozen(post PostKey) bool {
	return s.ledger.IsFrozen(post)
}

// Stats is the health readout shown by the votestats command.
type Stats struct {
	Posts           int
	Votes           int
	CacheEntries    int
	PendingRechecks int
}

func (s *Service) Stats() Stats {
	return Stats{
		Posts:           len(s.ledger.Posts()),
		Votes:           s.ledger.TotalVotes(),
		CacheEntries:    s.cache.Len(),
		PendingRechecks: s.sched.Pending(),
	}
}

// Shutdown stops the janitor, cancels outstanding re-checks and drains
// pending store writes.
func (s *Service) Shutdown() {
	s.sched.Shutdown()
	s.janitor.Stop()
	s.ledger.Close()
}
