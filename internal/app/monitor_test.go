package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hagatasdelus/Twitch-StreamNotification/internal/domain"
	apperrors "github.com/hagatasdelus/Twitch-StreamNotification/internal/errors"
)

type pollResult struct {
	info *domain.StreamInfo
	err  error
}

type fakeSource struct {
	mu          sync.Mutex
	broadcaster *domain.Broadcaster
	resolveErr  error
	script      []pollResult
	calls       int
}

func (f *fakeSource) ResolveBroadcaster(_ context.Context, _ string) (*domain.Broadcaster, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return f.broadcaster, nil
}

func (f *fakeSource) GetLiveStream(_ context.Context, _ string) (*domain.StreamInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := f.script[min(f.calls, len(f.script)-1)]
	f.calls++
	return result.info, result.err
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type sentNotification struct {
	title string
	body  string
}

type fakeNotifier struct {
	mu            sync.Mutex
	notifications []sentNotification
	err           error
}

func (f *fakeNotifier) Notify(_ context.Context, title, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, sentNotification{title: title, body: body})
	return f.err
}

func (f *fakeNotifier) sent() []sentNotification {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]sentNotification, len(f.notifications))
	copy(result, f.notifications)
	return result
}

var testBroadcaster = domain.Broadcaster{
	ID:          "12345",
	Login:       "streamerx",
	DisplayName: "StreamerX",
}

var fastAuthRetry = defaultAuthRetryPolicy

func init() {
	fastAuthRetry.MaxAttempts = 3
	fastAuthRetry.InitialBackoff = time.Millisecond
	fastAuthRetry.MaxBackoff = 2 * time.Millisecond
	fastAuthRetry.OnRetry = nil
}

// newTestMonitor returns a monitor with a resolved broadcaster and clean
// offline state, skipping Initialize so its confirmation notification does
// not pollute the notifier records.
func newTestMonitor(source *fakeSource, notifier *fakeNotifier, clock clockwork.Clock) *Monitor {
	m := NewMonitor(MonitorConfig{
		BroadcasterLogin: testBroadcaster.Login,
		PollInterval:     time.Minute,
	}, source, notifier, clock)
	m.authRetry = fastAuthRetry
	m.broadcaster = testBroadcaster
	m.state = domain.StreamState{BroadcasterID: testBroadcaster.ID}
	return m
}

func TestInitialize_ResolvesAndConfirms(t *testing.T) {
	source := &fakeSource{broadcaster: &testBroadcaster}
	notifier := &fakeNotifier{}
	m := NewMonitor(MonitorConfig{
		BroadcasterLogin: "streamerx",
		PollInterval:     time.Minute,
	}, source, notifier, clockwork.NewFakeClock())

	err := m.Initialize(context.Background())
	require.NoError(t, err)

	state := m.Snapshot()
	assert.Equal(t, "12345", state.BroadcasterID)
	assert.False(t, state.IsLive, "initial state assumes offline until proven otherwise")

	sent := notifier.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Streamer Found", sent[0].title)
	assert.Equal(t, "streamerx found. You will be notified when the streaming starts.", sent[0].body)
}

func TestInitialize_UnknownBroadcaster(t *testing.T) {
	source := &fakeSource{resolveErr: domain.ErrBroadcasterNotFound}
	m := NewMonitor(MonitorConfig{
		BroadcasterLogin: "nobody",
		PollInterval:     time.Minute,
	}, source, &fakeNotifier{}, clockwork.NewFakeClock())

	err := m.Initialize(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.TypeConfiguration))
}

func TestInitialize_CredentialRejection(t *testing.T) {
	authErr := apperrors.AuthenticationError("token acquisition failed", errors.New("invalid secret"))
	source := &fakeSource{resolveErr: authErr}
	m := NewMonitor(MonitorConfig{
		BroadcasterLogin: "streamerx",
		PollInterval:     time.Minute,
	}, source, &fakeNotifier{}, clockwork.NewFakeClock())

	err := m.Initialize(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.TypeAuthentication))
}

func TestPoll_OfflineToLive_NotifiesOnce(t *testing.T) {
	source := &fakeSource{script: []pollResult{
		{info: &domain.StreamInfo{Title: "Ranked Queue"}},
	}}
	notifier := &fakeNotifier{}
	m := newTestMonitor(source, notifier, clockwork.NewFakeClock())

	err := m.poll(context.Background())
	require.NoError(t, err)

	state := m.Snapshot()
	assert.True(t, state.IsLive)
	assert.Equal(t, "Ranked Queue", state.StreamTitle)

	sent := notifier.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Stream Started", sent[0].title)
	assert.Equal(t, "StreamerX has started streaming: Ranked Queue", sent[0].body)
}

func TestPoll_RepeatedLive_NeverRenotifies(t *testing.T) {
	source := &fakeSource{script: []pollResult{
		{info: &domain.StreamInfo{Title: "Ranked Queue"}},
	}}
	notifier := &fakeNotifier{}
	m := newTestMonitor(source, notifier, clockwork.NewFakeClock())

	for i := 0; i < 5; i++ {
		require.NoError(t, m.poll(context.Background()))
	}

	assert.Len(t, notifier.sent(), 1, "repeated live polls must not re-notify")
	assert.True(t, m.Snapshot().IsLive)
}

func TestPoll_LiveToOffline_Silent(t *testing.T) {
	source := &fakeSource{script: []pollResult{
		{info: &domain.StreamInfo{Title: "Ranked Queue"}},
		{info: nil},
	}}
	notifier := &fakeNotifier{}
	m := newTestMonitor(source, notifier, clockwork.NewFakeClock())

	require.NoError(t, m.poll(context.Background()))
	require.NoError(t, m.poll(context.Background()))

	state := m.Snapshot()
	assert.False(t, state.IsLive)
	assert.Empty(t, state.StreamTitle)
	assert.Len(t, notifier.sent(), 1, "going offline must not notify")
}

func TestPoll_TitleChangeWhileLive_UpdatesWithoutNotifying(t *testing.T) {
	source := &fakeSource{script: []pollResult{
		{info: &domain.StreamInfo{Title: "A"}},
		{info: &domain.StreamInfo{Title: "B"}},
	}}
	notifier := &fakeNotifier{}
	m := newTestMonitor(source, notifier, clockwork.NewFakeClock())

	require.NoError(t, m.poll(context.Background()))
	require.NoError(t, m.poll(context.Background()))

	state := m.Snapshot()
	assert.True(t, state.IsLive)
	assert.Equal(t, "B", state.StreamTitle)
	assert.Len(t, notifier.sent(), 1, "title changes while live must not re-notify")
}

func TestPoll_OfflineLiveOfflineLive_NotifiesTwice(t *testing.T) {
	source := &fakeSource{script: []pollResult{
		{info: &domain.StreamInfo{Title: "First"}},
		{info: nil},
		{info: &domain.StreamInfo{Title: "Second"}},
	}}
	notifier := &fakeNotifier{}
	m := newTestMonitor(source, notifier, clockwork.NewFakeClock())

	for i := 0; i < 3; i++ {
		require.NoError(t, m.poll(context.Background()))
	}

	sent := notifier.sent()
	require.Len(t, sent, 2, "each offline to live edge notifies exactly once")
	assert.Contains(t, sent[0].body, "First")
	assert.Contains(t, sent[1].body, "Second")
}

func TestPoll_TransientFailure_KeepsState(t *testing.T) {
	source := &fakeSource{script: []pollResult{
		{info: &domain.StreamInfo{Title: "Ranked Queue"}},
		{err: apperrors.TransientError("stream lookup failed", errors.New("timeout"))},
	}}
	notifier := &fakeNotifier{}
	m := newTestMonitor(source, notifier, clockwork.NewFakeClock())

	require.NoError(t, m.poll(context.Background()))
	before := m.Snapshot()

	err := m.poll(context.Background())
	require.NoError(t, err, "transient failures must not escape the loop")

	after := m.Snapshot()
	assert.Equal(t, before.IsLive, after.IsLive)
	assert.Equal(t, before.StreamTitle, after.StreamTitle)
	assert.Len(t, notifier.sent(), 1)
}

func TestPoll_AuthFailure_RetriedWithBackoff(t *testing.T) {
	authErr := apperrors.AuthenticationError("token acquisition failed", errors.New("503"))
	source := &fakeSource{script: []pollResult{
		{err: authErr},
		{err: authErr},
		{info: &domain.StreamInfo{Title: "Ranked Queue"}},
	}}
	notifier := &fakeNotifier{}
	m := newTestMonitor(source, notifier, clockwork.NewFakeClock())

	err := m.poll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, source.callCount())
	assert.True(t, m.Snapshot().IsLive)
	assert.Len(t, notifier.sent(), 1)
}

func TestPoll_AuthFailure_ExhaustedIsFatal(t *testing.T) {
	authErr := apperrors.AuthenticationError("token acquisition failed", errors.New("rejected"))
	source := &fakeSource{script: []pollResult{{err: authErr}}}
	m := newTestMonitor(source, &fakeNotifier{}, clockwork.NewFakeClock())

	err := m.poll(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.TypeAuthentication))
}

func TestPoll_AuthThenTransient_Absorbed(t *testing.T) {
	source := &fakeSource{script: []pollResult{
		{err: apperrors.AuthenticationError("token acquisition failed", errors.New("503"))},
		{err: apperrors.TransientError("stream lookup failed", errors.New("timeout"))},
	}}
	m := newTestMonitor(source, &fakeNotifier{}, clockwork.NewFakeClock())

	err := m.poll(context.Background())

	require.NoError(t, err, "transient failure during auth backoff is absorbed")
	assert.False(t, m.Snapshot().IsLive)
}

func TestPoll_NotificationFailure_NotEscalated(t *testing.T) {
	source := &fakeSource{script: []pollResult{
		{info: &domain.StreamInfo{Title: "Ranked Queue"}},
	}}
	notifier := &fakeNotifier{err: errors.New("notification subsystem unavailable")}
	m := newTestMonitor(source, notifier, clockwork.NewFakeClock())

	err := m.poll(context.Background())

	require.NoError(t, err)
	assert.True(t, m.Snapshot().IsLive, "state updates even when delivery fails")
}

func TestRun_StopsOnCancellation(t *testing.T) {
	source := &fakeSource{script: []pollResult{{info: nil}}}
	clock := clockwork.NewFakeClock()
	m := newTestMonitor(source, &fakeNotifier{}, clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	// Wait for the loop to reach its interval sleep, then cancel.
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run loop did not exit on cancellation")
	}
}

func TestRun_UsesLongerIntervalWhileLive(t *testing.T) {
	source := &fakeSource{script: []pollResult{
		{info: &domain.StreamInfo{Title: "Ranked Queue"}},
	}}
	clock := clockwork.NewFakeClock()
	m := newTestMonitor(source, &fakeNotifier{}, clock)
	m.cfg.LivePollInterval = 5 * time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Run(ctx) }()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Equal(t, 1, source.callCount())

	// The offline interval elapsing must not wake a live sleeper.
	clock.Advance(time.Minute)
	assert.Equal(t, 1, source.callCount())

	clock.Advance(4 * time.Minute)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Eventually(t, func() bool { return source.callCount() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestFormatLiveMessage(t *testing.T) {
	tests := []struct {
		name        string
		login       string
		displayName string
		title       string
		want        string
	}{
		{"matching names", "streamerx", "StreamerX", "Ranked Queue", "StreamerX has started streaming: Ranked Queue"},
		{"localized display name", "streamerx", "配信者", "Ranked Queue", "配信者(streamerx) has started streaming: Ranked Queue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatLiveMessage(tt.login, tt.displayName, tt.title))
		})
	}
}
