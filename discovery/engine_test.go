package discovery

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/deckcast/deckcast/registry"
	"github.com/stretchr/testify/require"
)

type fakeBrowser struct {
	entries []RawEntry
	err     error
	calls   int32
	block   chan struct{} // when set, Browse waits on it
}

func (b *fakeBrowser) Browse(ctx context.Context, service, domain string) ([]RawEntry, error) {
	atomic.AddInt32(&b.calls, 1)
	if b.block != nil {
		<-b.block
	}
	return b.entries, b.err
}

func entry(name, addr string, port int, text ...string) RawEntry {
	return RawEntry{
		Instance:  name,
		Addresses: []net.IP{net.ParseIP(addr)},
		Port:      port,
		Text:      text,
	}
}

func TestScanEmptyIsSuccess(t *testing.T) {
	e := NewEngine(&fakeBrowser{}, registry.NewRegistry(), nil)
	devices, err := e.Scan(time.Second)
	require.NoError(t, err)
	require.Empty(t, devices)
}

func TestScanUpsertsDevices(t *testing.T) {
	b := &fakeBrowser{entries: []RawEntry{
		entry("Living Room Apple TV", "192.168.1.100", 7000, "model=AppleTV3,2"),
		entry("Bedroom Apple TV", "192.168.1.101", 0, "am=AppleTV6,2"),
	}}
	e := NewEngine(b, registry.NewRegistry(), nil)
	devices, err := e.Scan(time.Second)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	require.Equal(t, "AppleTV3,2", devices[0].Model)
	// advertisement without a port falls back to the AirPlay default
	require.Equal(t, 7000, devices[1].Port)
}

func TestScanSkipsUnparseableAdvertisements(t *testing.T) {
	b := &fakeBrowser{entries: []RawEntry{
		{Instance: "", Port: 7000},                    // no name
		{Instance: "Headless", Port: 7000},            // no address
		entry("Good One", "192.168.1.100", 7000),
	}}
	e := NewEngine(b, registry.NewRegistry(), nil)
	devices, err := e.Scan(time.Second)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	require.Equal(t, "Good One", devices[0].Name)
}

func TestScanCoalescesConcurrentCalls(t *testing.T) {
	b := &fakeBrowser{
		entries: []RawEntry{entry("TV", "192.168.1.100", 7000)},
		block:   make(chan struct{}),
	}
	e := NewEngine(b, registry.NewRegistry(), nil)

	var wg sync.WaitGroup
	results := make([]int, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			devices, err := e.Scan(time.Second)
			require.NoError(t, err)
			results[i] = len(devices)
		}(i)
	}
	// give every goroutine a chance to attach before releasing the browse
	time.Sleep(50 * time.Millisecond)
	close(b.block)
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&b.calls))
	for _, n := range results {
		require.Equal(t, 1, n)
	}
}

func TestScanRestoresPersistedPairing(t *testing.T) {
	b := &fakeBrowser{entries: []RawEntry{entry("TV", "10.0.0.5", 7000)}}
	lookup := func(address string, port int) bool {
		return address == "10.0.0.5" && port == 7000
	}
	e := NewEngine(b, registry.NewRegistry(), lookup)
	devices, err := e.Scan(time.Second)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	require.True(t, devices[0].Paired)
}

func TestScanErrorKinds(t *testing.T) {
	b := &fakeBrowser{err: &Error{Kind: NoNetwork, Reason: "mDNS resolver unavailable"}}
	e := NewEngine(b, registry.NewRegistry(), nil)
	_, err := e.Scan(time.Second)
	require.Error(t, err)
	derr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, NoNetwork, derr.Kind)

	b = &fakeBrowser{err: context.DeadlineExceeded}
	e = NewEngine(b, registry.NewRegistry(), nil)
	_, err = e.Scan(time.Second)
	derr, ok = err.(*Error)
	require.True(t, ok)
	require.Equal(t, Timeout, derr.Kind)
}
