package discovery

import (
	"context"
	"fmt"
	"net"
)

type ErrorKind int

const (
	NoNetwork ErrorKind = iota
	Timeout
	ParseError
)

func (k ErrorKind) String() string {
	return [...]string{"NoNetwork", "Timeout", "ParseError"}[k]
}

// Error carries the taxonomy kind plus a short human-readable reason the
// panel can show as-is.
type Error struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("discovery: %s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("discovery: %s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// RawEntry is one unparsed service advertisement as seen on the wire.
type RawEntry struct {
	Instance  string
	Addresses []net.IP
	Port      int
	Text      []string
}

// Browser queries the local network's service-discovery mechanism for a
// bounded window and returns whatever advertisements it collected.
type Browser interface {
	Browse(ctx context.Context, service, domain string) ([]RawEntry, error)
}
