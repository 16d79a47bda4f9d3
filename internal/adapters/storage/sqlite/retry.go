package sqlite

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// backoff retries writes that hit lock contention. WAL plus busy_timeout
// makes this rare, but two processes sharing one file can still see BUSY.
type backoff struct {
	attempts int
	base     time.Duration
	max      time.Duration
}

var writeBackoff = backoff{attempts: 4, base: 50 * time.Millisecond, max: 500 * time.Millisecond}

// do runs fn until it succeeds, fails with a non-contention error, runs out
// of attempts or ctx is done.
func (b backoff) do(ctx context.Context, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !contended(err) || attempt >= b.attempts {
			return err
		}

		t := time.NewTimer(b.delay(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%w: %w", ctx.Err(), err)
		case <-t.C:
		}
	}
}

// delay is base*2^(attempt-1), capped at max, plus up to base of jitter.
func (b backoff) delay(attempt int) time.Duration {
	d := b.base << uint(attempt-1)
	if d > b.max || d <= 0 {
		d = b.max
	}
	return d + time.Duration(rand.Int63n(int64(b.base)))
}

// contended reports SQLITE_BUSY / SQLITE_LOCKED, extended codes included.
func contended(err error) bool {
	var se *msqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return false
	}
	return err != nil && strings.Contains(err.Error(), "database is locked")
}
