package bookings

import "github.com/example/staybook/internal/gateway"

// Optimistic mutations are explicit transactions: the pre-mutation snapshot
// is captured before any local change, so rollback is a pure data restore.

type txState int

const (
	txPending txState = iota
	txCommitted
	txRolledBack
)

type removeTx struct {
	snapshot []gateway.Booking
	state    txState
}

// beginRemove optimistically drops id from the local list, preserving order,
// and returns a pending transaction holding the prior list. ok is false when
// the id is not tracked.
func (o *Orchestrator) beginRemove(id string) (*removeTx, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	idx := -1
	for i, b := range o.list {
		if b.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}

	snapshot := make([]gateway.Booking, len(o.list))
	copy(snapshot, o.list)

	next := make([]gateway.Booking, 0, len(o.list)-1)
	next = append(next, o.list[:idx]...)
	next = append(next, o.list[idx+1:]...)
	o.list = next

	return &removeTx{snapshot: snapshot, state: txPending}, true
}

// commit makes the optimistic removal final.
func (o *Orchestrator) commit(tx *removeTx) {
	tx.state = txCommitted
}

// rollback restores the pre-mutation list verbatim.
func (o *Orchestrator) rollback(tx *removeTx) {
	o.mu.Lock()
	o.list = tx.snapshot
	o.mu.Unlock()
	tx.state = txRolledBack
}
