package chrono

import (
	"context"
	"time"
)

// Fake is an API whose clock only moves when Sleep is called. It records every
// requested sleep so pacing can be asserted without waiting.
type Fake struct {
	Current time.Time
	Sleeps  []time.Duration
}

func NewFake(start time.Time) *Fake {
	return &Fake{Current: start}
}

func (f *Fake) Now() time.Time {
	return f.Current
}

func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.Sleeps = append(f.Sleeps, d)
	f.Current = f.Current.Add(d)
	return nil
}
