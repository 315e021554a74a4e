package discovery

import (
	"context"

	"github.com/grandcat/zeroconf"
)

// ZeroconfBrowser browses mDNS/DNS-SD. AirPlay receivers advertise as
// _airplay._tcp in the local. domain.
type ZeroconfBrowser struct{}

func NewZeroconfBrowser() *ZeroconfBrowser {
	return &ZeroconfBrowser{}
}

func (b *ZeroconfBrowser) Browse(ctx context.Context, service, domain string) ([]RawEntry, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, &Error{Kind: NoNetwork, Reason: "mDNS resolver unavailable", Err: err}
	}

	entries := make(chan *zeroconf.ServiceEntry)
	collected := make([]RawEntry, 0)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for entry := range entries {
			raw := RawEntry{
				Instance: entry.Instance,
				Port:     entry.Port,
				Text:     entry.Text,
			}
			raw.Addresses = append(raw.Addresses, entry.AddrIPv4...)
			raw.Addresses = append(raw.Addresses, entry.AddrIPv6...)
			collected = append(collected, raw)
		}
	}()

	// Browse closes the entries channel when ctx expires.
	if err := resolver.Browse(ctx, service, domain, entries); err != nil {
		return nil, &Error{Kind: NoNetwork, Reason: "mDNS browse failed", Err: err}
	}
	<-done
	return collected, nil
}
