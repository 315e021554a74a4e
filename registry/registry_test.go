package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUpsertPreservesPaired(t *testing.T) {
	r := NewRegistry()
	_, created := r.Upsert(Advertisement{Name: "Living Room", Address: "10.0.0.5", Port: 7000, Model: "AppleTV3,2"})
	require.True(t, created)

	require.True(t, r.SetPaired("10.0.0.5", 7000, true))

	// re-discovery with a renamed receiver must not clear the flag
	d, created := r.Upsert(Advertisement{Name: "Living Room TV", Address: "10.0.0.5", Port: 7000, Model: "AppleTV3,2"})
	require.False(t, created)
	require.True(t, d.Paired)
	require.Equal(t, "Living Room TV", d.Name)
}

func TestGetNotFound(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("10.0.0.9", 7000)
	require.False(t, ok)
	require.False(t, r.SetPaired("10.0.0.9", 7000, true))
}

func TestListFirstSeenOrder(t *testing.T) {
	r := NewRegistry()
	r.Upsert(Advertisement{Name: "a", Address: "10.0.0.1", Port: 7000})
	r.Upsert(Advertisement{Name: "b", Address: "10.0.0.2", Port: 7000})
	r.Upsert(Advertisement{Name: "c", Address: "10.0.0.3", Port: 7000})
	// refreshing an old entry must not move it
	r.Upsert(Advertisement{Name: "a2", Address: "10.0.0.1", Port: 7000})

	names := make([]string, 0)
	for _, d := range r.List() {
		names = append(names, d.Name)
	}
	require.Equal(t, []string{"a2", "b", "c"}, names)
}

func TestEvictStale(t *testing.T) {
	r := NewRegistry()
	r.Upsert(Advertisement{Name: "old", Address: "10.0.0.1", Port: 7000})
	time.Sleep(20 * time.Millisecond)
	r.Upsert(Advertisement{Name: "fresh", Address: "10.0.0.2", Port: 7000})

	evicted := r.EvictStale(time.Now(), 15*time.Millisecond)
	require.Len(t, evicted, 1)
	require.Equal(t, "old", evicted[0].Name)
	require.Equal(t, 1, r.Size())
	_, ok := r.Get("10.0.0.2", 7000)
	require.True(t, ok)
}

func TestSameAddressDifferentPort(t *testing.T) {
	r := NewRegistry()
	r.Upsert(Advertisement{Name: "a", Address: "10.0.0.1", Port: 7000})
	r.Upsert(Advertisement{Name: "b", Address: "10.0.0.1", Port: 7100})
	require.Equal(t, 2, r.Size())
}
