package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"partwatch/internal/components/chrono"
	"partwatch/internal/components/telemetry"
	"partwatch/internal/history"

	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	mu      sync.Mutex
	ok      bool
	calls   int
	timeout time.Duration
	started chan struct{}
	block   chan struct{}

	// stores is prepended to keys by a successful run when set
	keys   *fakeKeys
	stores time.Time
}

func (f *fakeRunner) RunOnce(ctx context.Context, timeout time.Duration) (bool, string) {
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.timeout = timeout
	if f.ok && f.keys != nil && !f.stores.IsZero() {
		f.keys.keys = append([]time.Time{f.stores}, f.keys.keys...)
	}
	return f.ok, "log"
}

type fakeKeys struct {
	keys []time.Time
	err  error
}

func (f *fakeKeys) SnapshotKeys(ctx context.Context) ([]time.Time, error) {
	return f.keys, f.err
}

type fakeHistory struct{ days []history.DayChanges }

func (f fakeHistory) History(ctx context.Context) ([]history.DayChanges, error) {
	return f.days, nil
}

type fakeDigest struct {
	at   []time.Time
	got  [][]history.DayChanges
	sent int
}

func (f *fakeDigest) Digest(ctx context.Context, capturedAt time.Time, days []history.DayChanges) error {
	f.at = append(f.at, capturedAt)
	f.got = append(f.got, days)
	if len(days) > 0 && days[0].Date.Equal(capturedAt) {
		f.sent++
	}
	return nil
}

type fakeCron struct {
	spec     string
	callback func()
}

func (f *fakeCron) Cron(spec string, callback func()) error {
	f.spec = spec
	f.callback = callback
	return nil
}

var now = time.Date(2024, 5, 3, 0, 30, 0, 0, chrono.KST())

func TestDue(t *testing.T) {
	testCases := []struct {
		name string
		keys []time.Time
		due  bool
	}{
		{name: "empty store", keys: nil, due: true},
		{name: "yesterday", keys: []time.Time{time.Date(2024, 5, 2, 23, 59, 0, 0, chrono.KST())}, due: true},
		{name: "today", keys: []time.Time{time.Date(2024, 5, 3, 0, 5, 0, 0, chrono.KST())}, due: false},
		// 2024-05-02 15:10 UTC is already 2024-05-03 in KST
		{name: "today in utc", keys: []time.Time{time.Date(2024, 5, 2, 15, 10, 0, 0, time.UTC)}, due: false},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			s := New(&fakeRunner{}, &fakeKeys{keys: test.keys}, time.Minute, chrono.NewFakeImpl(now), &telemetry.RecordingAPI{})
			due, err := s.Due(context.Background())
			require.NoError(t, err)
			require.Equal(t, test.due, due)
		})
	}
}

func TestTick(t *testing.T) {
	yesterday := now.Add(-24 * time.Hour)
	keys := &fakeKeys{keys: []time.Time{yesterday}}
	runner := &fakeRunner{ok: true, keys: keys, stores: now}
	digest := &fakeDigest{}
	days := []history.DayChanges{{Date: now, PrevDate: yesterday}}
	s := New(runner, keys, 3*time.Minute, chrono.NewFakeImpl(now), &telemetry.RecordingAPI{}).
		WithDigest(fakeHistory{days: days}, digest)

	ran, ok := s.Tick(context.Background())
	require.True(t, ran)
	require.True(t, ok)
	require.Equal(t, 1, runner.calls)
	require.Equal(t, 3*time.Minute, runner.timeout)
	require.Equal(t, [][]history.DayChanges{days}, digest.got)
	require.Equal(t, []time.Time{now}, digest.at)
	require.Equal(t, 1, digest.sent)
}

func TestTickDigestsTheStoredSnapshot(t *testing.T) {
	older := now.Add(-48 * time.Hour)
	yesterday := now.Add(-24 * time.Hour)
	keys := &fakeKeys{keys: []time.Time{yesterday, older}}
	runner := &fakeRunner{ok: true, keys: keys, stores: now}
	digest := &fakeDigest{}
	// the stored snapshot matched yesterday's, the newest group is an older one
	days := []history.DayChanges{{Date: yesterday, PrevDate: older}}
	s := New(runner, keys, time.Minute, chrono.NewFakeImpl(now), &telemetry.RecordingAPI{}).
		WithDigest(fakeHistory{days: days}, digest)

	ran, ok := s.Tick(context.Background())
	require.True(t, ran)
	require.True(t, ok)
	require.Equal(t, []time.Time{now}, digest.at)
	require.Equal(t, 0, digest.sent)
}

func TestTickEmptySnapshotSkipsDigest(t *testing.T) {
	yesterday := now.Add(-24 * time.Hour)
	keys := &fakeKeys{keys: []time.Time{yesterday}}
	// a run that stored no rows leaves the keys untouched
	runner := &fakeRunner{ok: true, keys: keys}
	digest := &fakeDigest{}
	s := New(runner, keys, time.Minute, chrono.NewFakeImpl(now), &telemetry.RecordingAPI{}).
		WithDigest(fakeHistory{days: []history.DayChanges{{Date: yesterday}}}, digest)

	ran, ok := s.Tick(context.Background())
	require.True(t, ran)
	require.True(t, ok)
	require.Empty(t, digest.got)
}

func TestTickNotDue(t *testing.T) {
	runner := &fakeRunner{ok: true}
	s := New(runner, &fakeKeys{keys: []time.Time{now}}, time.Minute, chrono.NewFakeImpl(now), &telemetry.RecordingAPI{})

	ran, _ := s.Tick(context.Background())
	require.False(t, ran)
	require.Equal(t, 0, runner.calls)
}

func TestTickFailedRun(t *testing.T) {
	tel := &telemetry.RecordingAPI{}
	digest := &fakeDigest{}
	s := New(&fakeRunner{ok: false}, &fakeKeys{}, time.Minute, chrono.NewFakeImpl(now), tel).
		WithDigest(fakeHistory{}, digest)

	ran, ok := s.Tick(context.Background())
	require.True(t, ran)
	require.False(t, ok)
	require.Empty(t, digest.got)
	require.Len(t, tel.Find("warning", report_tick), 1)
}

func TestTickKeysError(t *testing.T) {
	tel := &telemetry.RecordingAPI{}
	runner := &fakeRunner{ok: true}
	s := New(runner, &fakeKeys{err: errors.New("db locked")}, time.Minute, chrono.NewFakeImpl(now), tel)

	ran, _ := s.Tick(context.Background())
	require.False(t, ran)
	require.Equal(t, 0, runner.calls)
	require.Len(t, tel.Find("broken", report_tick), 1)
}

func TestTickSkipsWhileRunning(t *testing.T) {
	runner := &fakeRunner{ok: true, started: make(chan struct{}), block: make(chan struct{})}
	s := New(runner, &fakeKeys{}, time.Minute, chrono.NewFakeImpl(now), &telemetry.RecordingAPI{})

	done := make(chan struct{})
	go func() {
		s.Tick(context.Background())
		close(done)
	}()

	<-runner.started

	ran, _ := s.Tick(context.Background())
	require.False(t, ran)

	close(runner.block)
	<-done
	require.Equal(t, 1, runner.calls)
}

func TestStart(t *testing.T) {
	runner := &fakeRunner{ok: true}
	cron := &fakeCron{}
	s := New(runner, &fakeKeys{}, time.Minute, chrono.NewFakeImpl(now), &telemetry.RecordingAPI{})

	require.NoError(t, s.Start(context.Background(), cron, ""))
	require.Equal(t, DEFAULT_SPEC, cron.spec)

	cron.callback()
	require.Equal(t, 1, runner.calls)
}
