package status

import (
	"sync"

	"github.com/MeloQi/EasyGoLib/utils"
	"github.com/deckcast/deckcast/registry"
)

// Snapshot is the externally visible streaming status. It is always a
// projection of the session manager's state, never stored as truth here.
type Snapshot struct {
	Streaming bool             `json:"streaming"`
	Device    *registry.Device `json:"device"`
}

// Source produces the current snapshot on demand.
type Source func() Snapshot

// Broadcaster fans session-state transitions out to subscribers. Delivery
// is per-subscriber ordered and bounded: a full queue drops its oldest
// entry, so a slow consumer only ever loses history, never the producer.
type Broadcaster struct {
	source    Source
	queueSize int

	lock sync.Mutex
	subs map[int64]chan Snapshot
	next int64
}

func NewBroadcaster(source Source) *Broadcaster {
	return &Broadcaster{
		source:    source,
		queueSize: utils.Conf().Section("status").Key("queue_size").MustInt(8),
		subs:      make(map[int64]chan Snapshot),
	}
}

// Snapshot reads the current status from the session manager.
func (b *Broadcaster) Snapshot() Snapshot {
	return b.source()
}

// Subscribe registers a listener. The returned cancel func must be called
// when the subscriber goes away; it closes the channel.
func (b *Broadcaster) Subscribe() (<-chan Snapshot, func()) {
	b.lock.Lock()
	defer b.lock.Unlock()
	id := b.next
	b.next++
	ch := make(chan Snapshot, b.queueSize)
	b.subs[id] = ch
	cancel := func() {
		b.lock.Lock()
		defer b.lock.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Publish pushes a snapshot to every subscriber without ever blocking the
// caller. Only the latest statuses matter, so overflow evicts the oldest
// unread snapshot.
func (b *Broadcaster) Publish(s Snapshot) {
	b.lock.Lock()
	defer b.lock.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- s:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.subs)
}
