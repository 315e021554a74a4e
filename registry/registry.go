package registry

import (
	"fmt"
	"sync"
	"time"
)

// Device is one known AirPlay receiver. (Address, Port) is the identity;
// Paired is owned by the pairing coordinator and survives re-discovery.
type Device struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Port    int    `json:"port"`
	Model   string `json:"model"`
	Paired  bool   `json:"paired"`

	firstSeen time.Time
	lastSeen  time.Time
}

func (d Device) Key() string {
	return fmt.Sprintf("%s:%d", d.Address, d.Port)
}

// Advertisement is a normalized service-discovery sighting of a receiver.
type Advertisement struct {
	Name    string
	Address string
	Port    int
	Model   string
}

func (a Advertisement) key() string {
	return fmt.Sprintf("%s:%d", a.Address, a.Port)
}

type Registry struct {
	lock    sync.RWMutex
	devices map[string]*Device
	order   []string // keys in first-seen order
}

var instance *Registry = nil

func GetRegistry() *Registry {
	if instance == nil {
		instance = NewRegistry()
	}
	return instance
}

func NewRegistry() *Registry {
	return &Registry{
		devices: make(map[string]*Device),
		order:   make([]string, 0),
	}
}

// Upsert inserts or refreshes the record for the advertised receiver.
// The paired flag of an existing record is left untouched.
func (r *Registry) Upsert(ad Advertisement) (Device, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	now := time.Now()
	key := ad.key()
	if d, ok := r.devices[key]; ok {
		d.Name = ad.Name
		d.Model = ad.Model
		d.lastSeen = now
		return *d, false
	}
	d := &Device{
		Name:      ad.Name,
		Address:   ad.Address,
		Port:      ad.Port,
		Model:     ad.Model,
		firstSeen: now,
		lastSeen:  now,
	}
	r.devices[key] = d
	r.order = append(r.order, key)
	return *d, true
}

func (r *Registry) Get(address string, port int) (Device, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	d, ok := r.devices[fmt.Sprintf("%s:%d", address, port)]
	if !ok {
		return Device{}, false
	}
	return *d, true
}

// List returns all known devices in first-seen order.
func (r *Registry) List() []Device {
	r.lock.RLock()
	defer r.lock.RUnlock()
	devices := make([]Device, 0, len(r.order))
	for _, key := range r.order {
		devices = append(devices, *r.devices[key])
	}
	return devices
}

func (r *Registry) Size() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.devices)
}

// SetPaired flips the paired flag. The pairing coordinator is the only
// caller on the true path.
func (r *Registry) SetPaired(address string, port int, paired bool) bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	d, ok := r.devices[fmt.Sprintf("%s:%d", address, port)]
	if !ok {
		return false
	}
	d.Paired = paired
	return true
}

// EvictStale drops devices not refreshed within ttl. Called once per
// completed discovery cycle.
func (r *Registry) EvictStale(now time.Time, ttl time.Duration) []Device {
	r.lock.Lock()
	defer r.lock.Unlock()
	evicted := make([]Device, 0)
	kept := r.order[:0]
	for _, key := range r.order {
		d := r.devices[key]
		if now.Sub(d.lastSeen) > ttl {
			evicted = append(evicted, *d)
			delete(r.devices, key)
			continue
		}
		kept = append(kept, key)
	}
	r.order = kept
	return evicted
}
