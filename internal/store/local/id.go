package local

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

var fallbackSeq atomic.Uint64

// NewID returns a random UUID. If the random source fails it falls back to
// "<unix-ms>-<seq>", which stays unique within one process even when several
// sessions are created in the same millisecond.
func NewID() string {
	id, err := uuid.NewRandom()
	if err == nil {
		return id.String()
	}
	return formatFallback(nowMillis(), fallbackSeq.Add(1))
}

func formatFallback(ms int64, seq uint64) string {
	return strconv.FormatInt(ms, 10) + "-" + strconv.FormatUint(seq, 10)
}
