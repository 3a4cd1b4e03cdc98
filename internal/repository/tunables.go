package repository

import "sync/atomic"

// Tunables holds the knobs a config reload may adjust while the process
// is serving. Reads happen on every CAS loop and sync fan-out, so access
// is atomic rather than mutex-guarded.
type Tunables struct {
	casMaxAttempts  atomic.Int32
	syncParallelism atomic.Int32
}

// NewTunables seeds the runtime knobs with their initial values.
func NewTunables(casMaxAttempts, syncParallelism int) *Tunables {
	t := &Tunables{}
	t.SetCASMaxAttempts(casMaxAttempts)
	t.SetSyncParallelism(syncParallelism)
	return t
}

// SetCASMaxAttempts adjusts the bound of the conditional-write retry
// loop. Values below 1 are clamped to 1.
func (t *Tunables) SetCASMaxAttempts(n int) {
	if n < 1 {
		n = 1
	}
	t.casMaxAttempts.Store(int32(n))
}

// CASMaxAttempts returns the current retry bound.
func (t *Tunables) CASMaxAttempts() int {
	return int(t.casMaxAttempts.Load())
}

// SetSyncParallelism adjusts how many group partitions a pointer sync
// writes at once. Values below 1 mean unbounded.
func (t *Tunables) SetSyncParallelism(n int) {
	if n < 0 {
		n = 0
	}
	t.syncParallelism.Store(int32(n))
}

// SyncParallelism returns the current fan-out bound.
func (t *Tunables) SyncParallelism() int {
	return int(t.syncParallelism.Load())
}
