package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MeloQi/EasyGoLib/utils"
	"github.com/deckcast/deckcast/log"
	"github.com/deckcast/deckcast/registry"
)

// PairedLookup reports whether a receiver completed pairing in a previous
// process lifetime. Optional; nil disables restore.
type PairedLookup func(address string, port int) bool

// Engine runs discovery cycles against a Browser and keeps the device
// registry current. Concurrent scans coalesce onto one network query.
type Engine struct {
	browser  Browser
	registry *registry.Registry
	paired   PairedLookup

	service     string
	domain      string
	ttl         time.Duration
	defaultPort int

	lock     sync.Mutex
	inflight *scanCall
}

type scanCall struct {
	done    chan struct{}
	devices []registry.Device
	err     error
}

var instance *Engine = nil

func GetEngine() *Engine {
	if instance == nil {
		instance = NewEngine(NewZeroconfBrowser(), registry.GetRegistry(), nil)
	}
	return instance
}

func NewEngine(browser Browser, reg *registry.Registry, paired PairedLookup) *Engine {
	sec := utils.Conf().Section("discovery")
	return &Engine{
		browser:     browser,
		registry:    reg,
		paired:      paired,
		service:     sec.Key("service").MustString("_airplay._tcp"),
		domain:      sec.Key("domain").MustString("local."),
		ttl:         time.Duration(sec.Key("ttl_sec").MustInt(90)) * time.Second,
		defaultPort: sec.Key("default_port").MustInt(7000),
	}
}

// Scan runs one discovery cycle bounded by timeout and returns the full
// registry contents afterwards. A cycle that sees no receivers is a
// success with an empty result. If a cycle is already in flight the call
// attaches to its outcome instead of starting a second broadcast.
func (e *Engine) Scan(timeout time.Duration) ([]registry.Device, error) {
	e.lock.Lock()
	if c := e.inflight; c != nil {
		e.lock.Unlock()
		<-c.done
		return c.devices, c.err
	}
	c := &scanCall{done: make(chan struct{})}
	e.inflight = c
	e.lock.Unlock()

	c.devices, c.err = e.scanOnce(timeout)
	close(c.done)

	e.lock.Lock()
	e.inflight = nil
	e.lock.Unlock()
	return c.devices, c.err
}

func (e *Engine) scanOnce(timeout time.Duration) ([]registry.Device, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	entries, err := e.browser.Browse(ctx, e.service, e.domain)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &Error{Kind: Timeout, Reason: "discovery query timed out", Err: err}
		}
		var derr *Error
		if errors.As(err, &derr) {
			return nil, derr
		}
		return nil, &Error{Kind: NoNetwork, Reason: "discovery query failed", Err: err}
	}

	seen := 0
	for _, entry := range entries {
		ad, err := e.parse(entry)
		if err != nil {
			// a bad advertisement never fails the cycle
			log.Warn("skipping advertisement: ", err)
			continue
		}
		_, created := e.registry.Upsert(ad)
		if created && e.paired != nil && e.paired(ad.Address, ad.Port) {
			e.registry.SetPaired(ad.Address, ad.Port, true)
			log.Info(fmt.Sprintf("restored pairing for %s (%s:%d)", ad.Name, ad.Address, ad.Port))
		}
		seen++
	}
	e.registry.EvictStale(time.Now(), e.ttl)
	log.Debug(fmt.Sprintf("discovery cycle done, %d advertisement(s), %d device(s) known", seen, e.registry.Size()))
	return e.registry.List(), nil
}

func (e *Engine) parse(entry RawEntry) (registry.Advertisement, error) {
	ad := registry.Advertisement{
		Name: entry.Instance,
		Port: entry.Port,
	}
	if ad.Name == "" {
		return ad, &Error{Kind: ParseError, Reason: "advertisement without instance name"}
	}
	for _, ip := range entry.Addresses {
		if v4 := ip.To4(); v4 != nil {
			ad.Address = v4.String()
			break
		}
	}
	if ad.Address == "" {
		return ad, &Error{Kind: ParseError, Reason: fmt.Sprintf("advertisement %q carries no usable address", ad.Name)}
	}
	if ad.Port <= 0 {
		ad.Port = e.defaultPort
	}
	ad.Model = txtValue(entry.Text, "model")
	if ad.Model == "" {
		ad.Model = txtValue(entry.Text, "am")
	}
	return ad, nil
}

func txtValue(text []string, key string) string {
	prefix := key + "="
	for _, kv := range text {
		if len(kv) > len(prefix) && kv[:len(prefix)] == prefix {
			return kv[len(prefix):]
		}
	}
	return ""
}
