package sqlite

import (
	"strings"
	"time"

	"github.com/tdis-data/mtpc.reco/internal/timeutil"
)

const (
	busyMaxAttempts = 5
	busyBaseDelay   = 10 * time.Millisecond
)

// isSQLiteBusy reports whether err is a lock contention error.
func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// retryOnBusy runs fn, retrying with exponential backoff on clock while
// SQLite reports the database as locked.
func retryOnBusy(clock timeutil.Clock, fn func() error) error {
	var err error
	delay := busyBaseDelay
	for attempt := 1; attempt <= busyMaxAttempts; attempt++ {
		err = fn()
		if !isSQLiteBusy(err) {
			return err
		}
		if attempt < busyMaxAttempts {
			clock.Sleep(delay)
			delay *= 2
		}
	}
	return err
}
