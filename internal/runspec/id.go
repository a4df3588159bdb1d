// Package runspec defines run identity and static metadata: the values a
// run is constructed with and does not change for its lifetime.
package runspec

import (
	"strconv"
	"sync/atomic"
	"time"
)

var lastRunID atomic.Uint64

// NextRunID generates a monotonic, time-ordered, hex-encoded run
// identifier: the current Unix time in nanoseconds, bumped to one past the
// previously issued value whenever the clock has not advanced beyond it,
// so ids are strictly increasing (and so unique) within the process.
func NextRunID() string {
	for {
		prev := lastRunID.Load()
		n := uint64(time.Now().UnixNano())
		if n <= prev {
			n = prev + 1
		}
		if lastRunID.CompareAndSwap(prev, n) {
			return strconv.FormatUint(n, 16)
		}
	}
}
