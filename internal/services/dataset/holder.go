package dataset

import "sync/atomic"

// Holder publishes the current snapshot. Refresh builds a new Accessor and swaps it in;
// requests keep whatever snapshot they loaded at start.
type Holder struct {
	cur atomic.Pointer[Accessor]
	seq atomic.Uint64
}

func NewHolder() *Holder { return &Holder{} }

// Current returns the live snapshot, or nil before the first load.
func (h *Holder) Current() *Accessor { return h.cur.Load() }

// Swap installs a and returns the previous snapshot.
func (h *Holder) Swap(a *Accessor) *Accessor { return h.cur.Swap(a) }

// NextVersion reserves the version number for the next snapshot.
func (h *Holder) NextVersion() uint64 { return h.seq.Add(1) }
