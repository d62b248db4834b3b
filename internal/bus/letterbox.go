package bus

import (
	"sort"

	"github.com/simba-sim/simba/internal/simtime"
)

// LetterBox is a node's ordered inbox, indexed by delivery time. Envelopes
// with equal delivery time preserve insertion order, which combined with
// per-(publisher,topic) staging order gives the FIFO guarantee of spec
// invariant 3.
type LetterBox struct {
	pending []*Envelope
}

// NewLetterBox returns an empty inbox.
func NewLetterBox() *LetterBox {
	return &LetterBox{}
}

// push inserts env keeping pending sorted by (DeliveryTime, seq).
func (b *LetterBox) push(env *Envelope) {
	i := sort.Search(len(b.pending), func(i int) bool {
		if !b.pending[i].DeliveryTime.Equal(env.DeliveryTime) {
			return b.pending[i].DeliveryTime.After(env.DeliveryTime)
		}
		return b.pending[i].seq > env.seq
	})
	b.pending = append(b.pending, nil)
	copy(b.pending[i+1:], b.pending[i:])
	b.pending[i] = env
}

// Drain removes and returns every envelope whose DeliveryTime is at or
// before now, in nondecreasing delivery-time order.
func (b *LetterBox) Drain(now simtime.Time) []*Envelope {
	i := 0
	for i < len(b.pending) && !b.pending[i].DeliveryTime.After(now) {
		i++
	}
	ready := b.pending[:i]
	b.pending = append([]*Envelope(nil), b.pending[i:]...)
	return ready
}

// NextDeliveryTime returns the earliest pending delivery time still at or
// before maxTime, contributing to the node's next_time_step (spec §4.3).
func (b *LetterBox) NextDeliveryTime(maxTime simtime.Time) (simtime.Time, bool) {
	for _, env := range b.pending {
		if !env.DeliveryTime.After(maxTime) {
			return env.DeliveryTime, true
		}
	}
	return 0, false
}

// Len reports the number of envelopes still pending.
func (b *LetterBox) Len() int {
	return len(b.pending)
}
