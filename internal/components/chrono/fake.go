package chrono

import (
	"context"
	"sync"
	"time"
)

// FakeImpl is an API whose clock only moves when Sleep is called or Set is used.
type FakeImpl struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func NewFakeImpl(now time.Time) *FakeImpl {
	return &FakeImpl{now: now.In(kst)}
}

func (f *FakeImpl) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *FakeImpl) Location() *time.Location {
	return kst
}

func (f *FakeImpl) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
	f.slept = append(f.slept, d)
	return nil
}

func (f *FakeImpl) Set(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now.In(kst)
}

// Slept returns every duration passed to Sleep, in call order.
func (f *FakeImpl) Slept() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.slept))
	copy(out, f.slept)
	return out
}
