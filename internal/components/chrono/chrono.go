package chrono

import (
	"context"
	"time"
)

var kst *time.Location

func init() {
	var err error
	kst, err = time.LoadLocation("Asia/Seoul")
	if err != nil {
		// minimal containers may ship without tzdata, the offset has been fixed since 1988
		kst = time.FixedZone("KST", 9*60*60)
	}
}

// KST returns a [*time.Location] for Asia/Seoul, the timezone the catalog operates in.
func KST() *time.Location {
	return kst
}

// API is the interface that anything depending on the system clock should use.
//
// note: fault injection point
type API interface {
	// Now returns the current time in the catalog's timezone.
	Now() time.Time
	Location() *time.Location
	// Sleep blocks for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
}

// StandardImpl is the standard implementation of API using the standard library.
type StandardImpl struct{}

func NewStandardImpl() StandardImpl {
	return StandardImpl{}
}

func (StandardImpl) Now() time.Time {
	return time.Now().In(kst)
}

func (StandardImpl) Location() *time.Location {
	return kst
}

func (StandardImpl) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartOfDay truncates t to midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
