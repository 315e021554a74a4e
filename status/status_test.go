package status

import (
	"testing"

	"github.com/deckcast/deckcast/registry"
	"github.com/stretchr/testify/require"
)

func TestSnapshotProjectsSource(t *testing.T) {
	d := &registry.Device{Name: "TV", Address: "10.0.0.5", Port: 7000, Paired: true}
	b := NewBroadcaster(func() Snapshot {
		return Snapshot{Streaming: true, Device: d}
	})
	s := b.Snapshot()
	require.True(t, s.Streaming)
	require.Equal(t, "TV", s.Device.Name)
}

func TestPublishReachesSubscribers(t *testing.T) {
	b := NewBroadcaster(func() Snapshot { return Snapshot{} })
	ch, cancel := b.Subscribe()
	defer cancel()

	b.Publish(Snapshot{Streaming: true})
	s := <-ch
	require.True(t, s.Streaming)
}

func TestSlowSubscriberNeverBlocksAndKeepsLatest(t *testing.T) {
	b := NewBroadcaster(func() Snapshot { return Snapshot{} })
	b.queueSize = 2
	ch, cancel := b.Subscribe()
	defer cancel()

	devices := []*registry.Device{
		{Name: "a"}, {Name: "b"}, {Name: "c"}, {Name: "d"},
	}
	for _, d := range devices {
		b.Publish(Snapshot{Streaming: true, Device: d})
	}

	// oldest entries were evicted, the latest survived
	first := <-ch
	second := <-ch
	require.Equal(t, "c", first.Device.Name)
	require.Equal(t, "d", second.Device.Name)
	select {
	case <-ch:
		t.Fatal("queue should be drained")
	default:
	}
}

func TestCancelRemovesSubscriber(t *testing.T) {
	b := NewBroadcaster(func() Snapshot { return Snapshot{} })
	ch, cancel := b.Subscribe()
	require.Equal(t, 1, b.SubscriberCount())
	cancel()
	require.Equal(t, 0, b.SubscriberCount())
	_, open := <-ch
	require.False(t, open)
	// double cancel is harmless
	cancel()
}
