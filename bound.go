// Package fuzzyflake - bound.go computes the time-derived upper bound on
// plausible IDs, used to reject queries for IDs that cannot exist yet.

package fuzzyflake

import (
	"context"
	"time"

	"zombiezen.com/go/log"
)

// Epoch is the platform epoch in milliseconds since the Unix epoch:
// the first second of 2015, UTC. ID timestamps count up from here.
const Epoch int64 = 1420070400000

// payloadBits is the width of the non-timestamp tail of an ID
// (worker, process, and sequence fields).
const payloadBits = 64 - TimestampBits

// maxPlausibleID returns the largest ID that could have been minted by
// the given instant: the elapsed milliseconds since the epoch packed into
// the timestamp field with every payload bit set.
//
// If the clock reads before the epoch or the elapsed time no longer fits
// the 42-bit field, there is no usable bound; the second return is false
// and a warning goes to the logger. Callers then skip the future-ID
// rejection instead of failing the query, favoring availability over
// strictness.
func maxPlausibleID(now time.Time, logger log.Logger) (ID, bool) {
	elapsed := now.UnixMilli() - Epoch
	if elapsed < 0 || elapsed >= 1<<TimestampBits {
		log.Logf(context.Background(), logger, log.Warn,
			"fuzzyflake: clock reads %d ms from epoch, outside the 42-bit timestamp range; skipping future-ID checks", elapsed)
		return 0, false
	}
	return ID(elapsed)<<payloadBits | (1<<payloadBits - 1), true
}

// currentBound reads the Index's clock and returns the current maximum
// plausible ID, or ok=false when the clock is unusable.
func (x *Index) currentBound() (ID, bool) {
	return maxPlausibleID(x.now(), x.logger)
}
