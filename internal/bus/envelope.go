package bus

import "github.com/simba-sim/simba/internal/simtime"

// Flag annotates an Envelope with delivery or command semantics (spec §3,
// §6).
type Flag int

const (
	// FlagGod bypasses both the range gate and the reception delay.
	FlagGod Flag = iota
	// FlagKill instructs the recipient's kernel-facing node to detach.
	FlagKill
	// FlagUnsubscribe asks the recipient to drop its subscription to the
	// topic named in the envelope's payload.
	FlagUnsubscribe
)

func (f Flag) String() string {
	switch f {
	case FlagGod:
		return "God"
	case FlagKill:
		return "Kill"
	case FlagUnsubscribe:
		return "Unsubscribe"
	default:
		return "Unknown"
	}
}

// Envelope is a published payload in flight to one subscriber.
type Envelope struct {
	Origin       string
	Topic        Topic
	Payload      any
	PublishTime  simtime.Time
	DeliveryTime simtime.Time
	Flags        []Flag

	// seq breaks ties between envelopes with equal DeliveryTime from the
	// same (Origin, Topic) pair, preserving FIFO order (spec invariant 3).
	seq uint64
}

// Has reports whether the envelope carries the given flag.
func (e *Envelope) Has(flag Flag) bool {
	for _, f := range e.Flags {
		if f == flag {
			return true
		}
	}
	return false
}
