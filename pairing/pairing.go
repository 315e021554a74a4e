package pairing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MeloQi/EasyGoLib/utils"
	"github.com/deckcast/deckcast/log"
	"github.com/deckcast/deckcast/registry"
	"github.com/teris-io/shortid"
)

type ErrorKind int

const (
	Unreachable ErrorKind = iota
	InvalidPin
	TooManyAttempts
	Expired
	AlreadyPairing
)

func (k ErrorKind) String() string {
	return [...]string{"Unreachable", "InvalidPin", "TooManyAttempts", "Expired", "AlreadyPairing"}[k]
}

type Error struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pairing: %s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("pairing: %s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transport talks to one receiver's pairing endpoints: trigger the on-screen
// PIN challenge, then verify a submitted PIN against that challenge session.
// The cryptographic handshake lives behind this interface.
type Transport interface {
	RequestChallenge(ctx context.Context, address string, port int) error
	VerifyPIN(ctx context.Context, address string, port int, pin string) (bool, error)
}

// PairedHandler runs after a successful handshake, outside the coordinator
// lock. Used to persist the pairing.
type PairedHandler func(device registry.Device)

type attempt struct {
	id        string
	device    registry.Device
	logger    *log.Logger
	expiresAt time.Time
	verifying bool
}

// submitWindow throttles PIN guesses per device. It outlives individual
// attempts so a restart from begin() cannot reset the counter.
type submitWindow struct {
	start time.Time
	count int
}

// Coordinator drives the PIN-challenge handshake, one in-flight attempt per
// device, and is the only writer of the registry's paired flag.
type Coordinator struct {
	transport Transport
	registry  *registry.Registry
	onPaired  PairedHandler

	expiry         time.Duration
	window         time.Duration
	maxAttempts    int
	requestTimeout time.Duration

	lock     sync.Mutex
	attempts map[string]*attempt
	windows  map[string]*submitWindow
}

func NewCoordinator(transport Transport, reg *registry.Registry, onPaired PairedHandler) *Coordinator {
	sec := utils.Conf().Section("pairing")
	return &Coordinator{
		transport:      transport,
		registry:       reg,
		onPaired:       onPaired,
		expiry:         time.Duration(sec.Key("challenge_expiry_sec").MustInt(60)) * time.Second,
		window:         time.Duration(sec.Key("submit_window_sec").MustInt(120)) * time.Second,
		maxAttempts:    sec.Key("max_attempts").MustInt(3),
		requestTimeout: time.Duration(sec.Key("request_timeout_sec").MustInt(5)) * time.Second,
		attempts:       make(map[string]*attempt),
		windows:        make(map[string]*submitWindow),
	}
}

// Begin asks the receiver to show its PIN and opens a challenge attempt.
// A second Begin for the same device while one is in flight fails with
// AlreadyPairing.
func (c *Coordinator) Begin(address string, port int) error {
	key := deviceKey(address, port)
	c.lock.Lock()
	device, ok := c.registry.Get(address, port)
	if !ok {
		c.lock.Unlock()
		return &Error{Kind: Unreachable, Reason: fmt.Sprintf("unknown device %s", key)}
	}
	if a, ok := c.attempts[key]; ok {
		if time.Now().Before(a.expiresAt) {
			c.lock.Unlock()
			return &Error{Kind: AlreadyPairing, Reason: fmt.Sprintf("pairing with %s already in flight", device.Name)}
		}
		// stale challenge, the receiver's PIN screen is long gone
		delete(c.attempts, key)
	}
	id := shortid.MustGenerate()
	a := &attempt{
		id:        id,
		device:    device,
		logger:    log.NewLogger(id, log.AttemptId),
		expiresAt: time.Now().Add(c.expiry),
	}
	c.attempts[key] = a
	c.lock.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.requestTimeout)
	defer cancel()
	if err := c.transport.RequestChallenge(ctx, address, port); err != nil {
		c.lock.Lock()
		delete(c.attempts, key)
		c.lock.Unlock()
		return &Error{Kind: Unreachable, Reason: fmt.Sprintf("cannot contact %s", device.Name), Err: err}
	}
	a.logger.Info("challenge displayed, awaiting PIN")
	return nil
}

// Submit verifies a PIN against the device's open challenge. The attempt
// survives a wrong PIN until the per-device throttle window is exhausted.
func (c *Coordinator) Submit(address string, port int, pin string) error {
	key := deviceKey(address, port)
	now := time.Now()

	c.lock.Lock()
	a, ok := c.attempts[key]
	if !ok {
		c.lock.Unlock()
		return &Error{Kind: Expired, Reason: fmt.Sprintf("no pairing challenge open for %s", key)}
	}
	if now.After(a.expiresAt) {
		delete(c.attempts, key)
		c.lock.Unlock()
		return &Error{Kind: Expired, Reason: "pairing challenge expired, begin again"}
	}
	if a.verifying {
		c.lock.Unlock()
		return &Error{Kind: AlreadyPairing, Reason: "a PIN verification is already running"}
	}
	w, ok := c.windows[key]
	if !ok || now.Sub(w.start) > c.window {
		w = &submitWindow{start: now}
		c.windows[key] = w
	}
	w.count++
	if w.count > c.maxAttempts {
		delete(c.attempts, key)
		c.lock.Unlock()
		return &Error{Kind: TooManyAttempts, Reason: fmt.Sprintf("more than %d PIN submissions, begin again later", c.maxAttempts)}
	}
	a.verifying = true
	c.lock.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.requestTimeout)
	defer cancel()
	matched, err := c.transport.VerifyPIN(ctx, address, port, pin)

	c.lock.Lock()
	a.verifying = false
	if err != nil {
		c.lock.Unlock()
		return &Error{Kind: Unreachable, Reason: fmt.Sprintf("cannot contact %s", a.device.Name), Err: err}
	}
	if !matched {
		c.lock.Unlock()
		a.logger.Info("PIN rejected")
		return &Error{Kind: InvalidPin, Reason: "the receiver rejected the PIN"}
	}
	if c.attempts[key] == a {
		delete(c.attempts, key)
	}
	delete(c.windows, key)
	device := a.device
	c.lock.Unlock()

	c.registry.SetPaired(address, port, true)
	if c.onPaired != nil {
		c.onPaired(device)
	}
	a.logger.Info("paired with ", device.Name)
	return nil
}

// InFlight reports whether the device has an open, unexpired challenge.
func (c *Coordinator) InFlight(address string, port int) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	a, ok := c.attempts[deviceKey(address, port)]
	return ok && time.Now().Before(a.expiresAt)
}

func deviceKey(address string, port int) string {
	return fmt.Sprintf("%s:%d", address, port)
}
