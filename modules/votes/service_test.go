package votes

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, oracle Oracle) (*Service, *recordingRenderer) {
	return newTestServiceWithDelay(t, oracle, 30*time.Millisecond)
}

func newTestServiceWithDelay(t *testing.T, oracle Oracle, recheckDelay time.Duration) (*Service, *recordingRenderer) {
	renderer := newRecordingRenderer()
	svc := NewService(oracle, renderer, nil, Config{
		CacheTTL:          5 * time.Minute,
		RecheckDelay:      recheckDelay,
		RecheckRetryDelay: recheckDelay,
		JanitorInterval:   time.Hour,
		OracleRetries:     1,
		OracleBackoff:     time.Millisecond,
		OracleTimeout:     time.Second,
	}, clockwork.NewRealClock())
	t.Cleanup(svc.Shutdown)
	return svc, renderer
}

func TestService_AcceptsFirstVote(t *testing.T) {
	oracle := &scriptedOracle{isMember: true}
	svc, renderer := newTestService(t, oracle)
	svc.TrackPost(testPost)

	outcome := svc.OnVoteClick(context.Background(), testPost.ChannelId, testPost.MessageId, "user-1")

	assert.True(t, outcome.Accepted)
	assert.Equal(t, 1, outcome.NewCount)
	assert.Equal(t, ReasonAccepted, outcome.Reason)
	assert.Equal(t, []renderCall{{testPost, 1}}, renderer.snapshot())
}

func TestService_SecondClickShortCircuitsOracle(t *testing.T) {
	oracle := &scriptedOracle{isMember: true}
	svc, _ := newTestServiceWithDelay(t, oracle, time.Hour)
	svc.TrackPost(testPost)

	svc.OnVoteClick(context.Background(), testPost.ChannelId, testPost.MessageId, "user-1")
	calls := oracle.callCount()

	outcome := svc.OnVoteClick(context.Background(), testPost.ChannelId, testPost.MessageId, "user-1")

	assert.False(t, outcome.Accepted)
	assert.Equal(t, ReasonAlreadyVoted, outcome.Reason)
	assert.Equal(t, 1, outcome.NewCount)
	assert.Equal(t, calls, oracle.callCount())
}

func TestService_RejectsNonMember(t *testing.T) {
	oracle := &scriptedOracle{isMember: false}
	svc, renderer := newTestService(t, oracle)
	svc.TrackPost(testPost)

	outcome := svc.OnVoteClick(context.Background(), testPost.ChannelId, testPost.MessageId, "user-1")

	assert.False(t, outcome.Accepted)
	assert.Equal(t, ReasonNotMember, outcome.Reason)
	assert.Equal(t, 0, outcome.NewCount)
	assert.Empty(t, renderer.snapshot())
}

func TestService_PermissionDeniedFailsClosedWithClassification(t *testing.T) {
	oracle := &scriptedOracle{err: &OracleError{Kind: KindPermissionDenied, Err: assert.AnError}}
	svc, _ := newTestService(t, oracle)
	svc.TrackPost(testPost)

	outcome := svc.OnVoteClick(context.Background(), testPost.ChannelId, testPost.MessageId, "user-1")

	assert.False(t, outcome.Accepted)
	assert.Equal(t, ReasonNotMember, outcome.Reason)
	require.Error(t, outcome.Err)
	assert.Equal(t, KindPermissionDenied, OracleErrKind(outcome.Err))
}

func TestService_UnavailableOracleDoesNotBurnTheVote(t *testing.T) {
	oracle := &scriptedOracle{err: &OracleError{Kind: KindUnavailable, Err: assert.AnError}}
	svc, _ := newTestService(t, oracle)
	svc.TrackPost(testPost)

	outcome := svc.OnVoteClick(context.Background(), testPost.ChannelId, testPost.MessageId, "user-1")
	assert.False(t, outcome.Accepted)
	assert.Equal(t, ReasonCheckFailed, outcome.Reason)

	// directory recovers; the same user can still vote
	oracle.set(true, nil)
	outcome = svc.OnVoteClick(context.Background(), testPost.ChannelId, testPost.MessageId, "user-1")
	assert.True(t, outcome.Accepted)
	assert.Equal(t, 1, outcome.NewCount)
}

func TestService_FrozenPostRejectsClicks(t *testing.T) {
	oracle := &scriptedOracle{isMember: true}
	svc, _ := newTestServiceWithDelay(t, oracle, time.Hour)
	svc.TrackPost(testPost)

	svc.OnVoteClick(context.Background(), testPost.ChannelId, testPost.MessageId, "user-1")
	final := svc.ClosePost(testPost)
	assert.Equal(t, 1, final)

	outcome := svc.OnVoteClick(context.Background(), testPost.ChannelId, testPost.MessageId, "user-2")
	assert.False(t, outcome.Accepted)
	assert.Equal(t, ReasonFrozen, outcome.Reason)
	assert.Equal(t, 1, outcome.NewCount)

	calls := oracle.callCount()
	svc.OnVoteClick(context.Background(), testPost.ChannelId, testPost.MessageId, "user-3")
	assert.Equal(t, calls, oracle.callCount())
}

func TestService_ConcurrentVotersAllLand(t *testing.T) {
	oracle := &scriptedOracle{isMember: true}
	svc, _ := newTestService(t, oracle)
	svc.TrackPost(testPost)

	var wg sync.WaitGroup
	users := []string{"user-1", "user-2", "user-3", "user-4", "user-5"}
	for _, userId := range users {
		wg.Add(1)
		go func(userId string) {
			defer wg.Done()
			svc.OnVoteClick(context.Background(), testPost.ChannelId, testPost.MessageId, userId)
		}(userId)
	}
	wg.Wait()

	assert.Equal(t, len(users), svc.Count(testPost))
}

func TestService_RevokesVoterWhoLeft(t *testing.T) {
	oracle := &scriptedOracle{isMember: true}
	svc, renderer := newTestService(t, oracle)
	svc.TrackPost(testPost)

	outcome := svc.OnVoteClick(context.Background(), testPost.ChannelId, testPost.MessageId, "user-1")
	require.True(t, outcome.Accepted)

	// the voter leaves before the re-check fires
	oracle.set(false, nil)

	assert.Eventually(t, func() bool {
		return svc.Count(testPost) == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		return renderer.countRenders(0) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestService_RevokedVoterCanVoteAgain(t *testing.T) {
	oracle := &scriptedOracle{isMember: true}
	svc, _ := newTestService(t, oracle)
	svc.TrackPost(testPost)

	require.True(t, svc.OnVoteClick(context.Background(), testPost.ChannelId, testPost.MessageId, "user-1").Accepted)
	oracle.set(false, nil)
	assert.Eventually(t, func() bool {
		return svc.Count(testPost) == 0
	}, 2*time.Second, 10*time.Millisecond)

	oracle.set(true, nil)
	outcome := svc.OnVoteClick(context.Background(), testPost.ChannelId, testPost.MessageId, "user-1")
	assert.True(t, outcome.Accepted)
	assert.Equal(t, 1, outcome.NewCount)
}

func TestService_VerifyAccess(t *testing.T) {
	oracle := &scriptedOracle{isMember: true}
	svc, _ := newTestService(t, oracle)

	assert.NoError(t, svc.VerifyAccess(context.Background(), "chan-1", "user-1"))

	oracle.set(false, &OracleError{Kind: KindUnavailable, Err: assert.AnError})
	assert.NoError(t, svc.VerifyAccess(context.Background(), "chan-1", "user-1"))

	oracle.set(false, &OracleError{Kind: KindPermissionDenied, Err: assert.AnError})
	err := svc.VerifyAccess(context.Background(), "chan-1", "user-1")
	require.Error(t, err)
	assert.Equal(t, KindPermissionDenied, OracleErrKind(err))
}

func TestService_RestoredStateSurvives(t *testing.T) {
	oracle := &scriptedOracle{isMember: true}
	svc, _ := newTestService(t, oracle)

	svc.RestorePost(testPost, false, map[string]time.Time{"user-1": time.Now()})

	assert.Equal(t, 1, svc.Count(testPost))
	outcome := svc.OnVoteClick(context.Background(), testPost.ChannelId, testPost.MessageId, "user-1")
	assert.Equal(t, ReasonAlreadyVoted, outcome.Reason)

	frozen := PostKey{ChannelId: "chan-1", MessageId: "msg-frozen"}
	svc.RestorePost(frozen, true, nil)
	assert.True(t, svc.IsFrozen(frozen))
}

func TestService_StatsReflectActivity(t *testing.T) {
	oracle := &scriptedOracle{isMember: true}
	svc, _ := newTestServiceWithDelay(t, oracle, time.Hour)
	svc.TrackPost(testPost)

	svc.OnVoteClick(context.Background(), testPost.ChannelId, testPost.MessageId, "user-1")
	svc.OnVoteClick(context.Background(), testPost.ChannelId, testPost.MessageId, "user-2")

	stats := svc.Stats()
	assert.Equal(t, 1, stats.Posts)
	assert.Equal(t, 2, stats.Votes)
	assert.Equal(t, 2, stats.CacheEntries)
	assert.Equal(t, 2, stats.PendingRechecks)
}
