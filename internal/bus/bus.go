// Package bus implements the topic-addressable publish/subscribe
// substrate of spec §4.2: exact-path subscriptions, per-subscriber
// reception delay, the physical-node range gate, and the barrier-flush
// staging that keeps concurrently-dispatched nodes from observing each
// other's in-flight publications mid-instant (spec §4.4, §5).
package bus

import (
	"sync"

	"github.com/simba-sim/simba/internal/geom"
	"github.com/simba-sim/simba/internal/simerr"
	"github.com/simba-sim/simba/internal/simtime"
)

// NodeInfo is the slice of node state the bus needs to gate and delay a
// delivery: whether the node is alive, whether it is a physical (Robot)
// node subject to range checks, its snapshotted position, its
// communication range, and its reception delay.
type NodeInfo struct {
	Alive          bool
	Physical       bool
	Position       geom.Vector2
	Range          float64
	ReceptionDelay float64
}

// Directory resolves a node name to its current NodeInfo. The kernel
// supplies a frozen snapshot at the start of each barrier round so that
// range gating and delay computation see a consistent instant (spec §4.4
// determinism rule), not nodes mutated mid-round by concurrent dispatch.
type Directory interface {
	Lookup(name string) (NodeInfo, bool)
}

type subscription struct {
	subscriber    string
	instantaneous bool
}

// Bus is the message broker owned exclusively by the kernel (spec §3
// Ownership).
type Bus struct {
	mu      sync.Mutex
	dir     Directory
	subs    map[Topic][]subscription
	boxes   map[string]*LetterBox
	staged  map[string][]*Envelope
	nextSeq uint64
}

// New constructs an empty bus. SetDirectory must be called before the
// first Publish/SendTo of a run.
func New() *Bus {
	return &Bus{
		subs:   make(map[Topic][]subscription),
		boxes:  make(map[string]*LetterBox),
		staged: make(map[string][]*Envelope),
	}
}

// SetDirectory installs the frozen position/liveness snapshot for the
// instant about to be dispatched.
func (b *Bus) SetDirectory(dir Directory) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dir = dir
}

// Subscribe registers subscriber to topic. instantaneous subscriptions
// ignore reception delay and deliver synchronously within Publish, for
// intra-node wiring (spec §4.2).
func (b *Bus) Subscribe(subscriber string, topic Topic, instantaneous bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs[topic] {
		if s.subscriber == subscriber {
			return
		}
	}
	b.subs[topic] = append(b.subs[topic], subscription{subscriber: subscriber, instantaneous: instantaneous})
	b.boxOf(subscriber)
}

// Unsubscribe removes subscriber's subscription to topic, if any.
func (b *Bus) Unsubscribe(subscriber string, topic Topic) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[topic]
	for i, s := range subs {
		if s.subscriber == subscriber {
			b.subs[topic] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// LetterBoxFor returns (creating if necessary) a node's inbox.
func (b *Bus) LetterBoxFor(node string) *LetterBox {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.boxOf(node)
}

func (b *Bus) boxOf(node string) *LetterBox {
	lb, ok := b.boxes[node]
	if !ok {
		lb = NewLetterBox()
		b.boxes[node] = lb
	}
	return lb
}

// Publish delivers payload to every eligible subscriber of topic (spec
// §4.2). Non-instantaneous deliveries are staged and only become visible
// after Flush is called at the end of the current barrier round.
func (b *Bus) Publish(origin string, topic Topic, payload any, pubTime simtime.Time, flags []Flag) {
	b.mu.Lock()
	defer b.mu.Unlock()

	originInfo, haveOrigin := b.lookup(origin)
	subs := append([]subscription(nil), b.subs[topic]...)
	for _, s := range subs {
		subInfo, ok := b.lookup(s.subscriber)
		if !ok || !subInfo.Alive {
			continue // subscriber no longer alive; envelope dropped (spec §5)
		}
		if !b.eligible(haveOrigin, originInfo, subInfo, flags) {
			continue
		}
		b.deliver(origin, topic, payload, pubTime, flags, s.subscriber, subInfo, s.instantaneous)
	}
}

// SendTo delivers payload directly to a named destination outside the
// subscription table, matching a sensor's send_to list (spec §4.3). It
// returns an UnreachableDestinationError (logged as a warning by the
// caller, per spec §7) when destination is not alive.
func (b *Bus) SendTo(origin, destination string, topic Topic, payload any, pubTime simtime.Time, flags []Flag) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	destInfo, ok := b.lookup(destination)
	if !ok || !destInfo.Alive {
		return &simerr.UnreachableDestinationError{Destination: destination}
	}
	originInfo, haveOrigin := b.lookup(origin)
	if !b.eligible(haveOrigin, originInfo, destInfo, flags) {
		return nil
	}
	b.deliver(origin, topic, payload, pubTime, flags, destination, destInfo, false)
	return nil
}

func (b *Bus) lookup(name string) (NodeInfo, bool) {
	if b.dir == nil {
		return NodeInfo{}, false
	}
	return b.dir.Lookup(name)
}

// eligible implements the ordered rules of spec §4.2: God bypasses
// everything; a ComputationUnit endpoint bypasses the range check; two
// Robots must be within min(range) of each other (0 meaning unlimited).
func (b *Bus) eligible(haveOrigin bool, origin, sub NodeInfo, flags []Flag) bool {
	for _, f := range flags {
		if f == FlagGod {
			return true
		}
	}
	if !haveOrigin || !origin.Physical || !sub.Physical {
		return true
	}
	limit := origin.Range
	if sub.Range != 0 && (limit == 0 || sub.Range < limit) {
		limit = sub.Range
	}
	return geom.WithinRange(origin.Position, sub.Position, limit)
}

func (b *Bus) deliver(origin string, topic Topic, payload any, pubTime simtime.Time, flags []Flag, subscriber string, subInfo NodeInfo, instantaneous bool) {
	deliveryTime := pubTime
	isGod := false
	for _, f := range flags {
		if f == FlagGod {
			isGod = true
		}
	}
	if !instantaneous && !isGod {
		deliveryTime = pubTime.Add(subInfo.ReceptionDelay)
	}

	b.nextSeq++
	env := &Envelope{
		Origin:       origin,
		Topic:        topic,
		Payload:      payload,
		PublishTime:  pubTime,
		DeliveryTime: deliveryTime,
		Flags:        flags,
		seq:          b.nextSeq,
	}

	if instantaneous {
		// Same-node wiring: publisher and subscriber run sequentially in one
		// goroutine, so it is safe to deliver synchronously.
		b.boxOf(subscriber).push(env)
		return
	}
	b.staged[subscriber] = append(b.staged[subscriber], env)
}

// Flush moves every staged envelope into its subscriber's letter box.
// The kernel calls this once after all nodes dispatched at the current
// instant have completed (spec §4.4 step 4).
func (b *Bus) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for subscriber, envs := range b.staged {
		box := b.boxOf(subscriber)
		for _, env := range envs {
			box.push(env)
		}
	}
	b.staged = make(map[string][]*Envelope)
}

// PendingFlush reports whether any staged envelopes are waiting for the
// next Flush; the kernel uses this for its same-instant reconciliation
// pass (see internal/kernel).
func (b *Bus) PendingFlush() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, envs := range b.staged {
		if len(envs) > 0 {
			return true
		}
	}
	return false
}
