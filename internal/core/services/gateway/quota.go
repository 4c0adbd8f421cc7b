package gateway

import "sync/atomic"

// CallQuota is the single shared counter of calls made against the judging
// backend across all sessions. Reservation uses a compare-and-increment so
// concurrent sessions cannot race past the ceiling.
type CallQuota struct {
	used    atomic.Int64
	ceiling int64
}

func NewCallQuota(ceiling int) *CallQuota {
	return &CallQuota{ceiling: int64(ceiling)}
}

// TryAcquire reserves one call slot. It returns false once the ceiling is
// reached; a failed attempt keeps its reservation, so retries are not free.
func (q *CallQuota) TryAcquire() bool {
	for {
		cur := q.used.Load()
		if cur >= q.ceiling {
			return false
		}
		if q.used.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

func (q *CallQuota) Used() int {
	return int(q.used.Load())
}

func (q *CallQuota) Ceiling() int {
	return int(q.ceiling)
}
