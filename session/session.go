package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MeloQi/EasyGoLib/utils"
	"github.com/deckcast/deckcast/log"
	"github.com/deckcast/deckcast/registry"
	"github.com/deckcast/deckcast/status"
	"github.com/teris-io/shortid"
)

type ErrorKind int

const (
	NotPaired ErrorKind = iota
	AlreadyStreaming
	NotStreaming
	PipelineError
	ShutdownTimeout
)

func (k ErrorKind) String() string {
	return [...]string{"NotPaired", "AlreadyStreaming", "NotStreaming", "PipelineError", "ShutdownTimeout"}[k]
}

type Error struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("session: %s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("session: %s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type State int

const (
	Idle State = iota
	Starting
	Active
	Stopping
	Failed
)

func (s State) String() string {
	return [...]string{"idle", "starting", "active", "stopping", "failed"}[s]
}

// PipelineHandle is a running capture/encode process. Done is closed when
// the process exits for any reason; Err then reports why.
type PipelineHandle interface {
	Done() <-chan struct{}
	Err() error
	Stop() // graceful signal
	Kill() // forced termination
}

// Pipeline launches capture/encode toward a receiver. Start blocks until
// the pipeline is ready to mirror or has failed.
type Pipeline interface {
	Start(ctx context.Context, device registry.Device) (PipelineHandle, error)
}

// Session is the single mutable slot representing an active stream.
type Session struct {
	ID        string
	Device    registry.Device
	State     State
	StartedAt time.Time

	handle     PipelineHandle
	generation uint64
}

// Notifier receives a snapshot on every state transition, including
// autonomous crash transitions. Must not block.
type Notifier func(status.Snapshot)

// Manager owns the one allowed streaming session. Start, stop and the
// crash path all run under the transition lock; at most one session can be
// non-idle at any time. Reads take only the state lock and always observe
// a pre- or post-transition value.
type Manager struct {
	pipeline Pipeline
	registry *registry.Registry
	notify   Notifier

	startTimeout time.Duration
	stopTimeout  time.Duration

	transition sync.Mutex
	stateLock  sync.RWMutex
	session    *Session
	generation uint64
}

func NewManager(pipeline Pipeline, reg *registry.Registry) *Manager {
	sec := utils.Conf().Section("stream")
	return &Manager{
		pipeline:     pipeline,
		registry:     reg,
		startTimeout: time.Duration(sec.Key("start_timeout_sec").MustInt(15)) * time.Second,
		stopTimeout:  time.Duration(sec.Key("stop_timeout_sec").MustInt(5)) * time.Second,
	}
}

// SetNotifier wires the status broadcaster. Call before Start.
func (m *Manager) SetNotifier(n Notifier) {
	m.notify = n
}

// Start begins mirroring to the receiver at address:port. The paired flag
// is re-read from the registry here; caller-supplied state is not trusted.
func (m *Manager) Start(address string, port int) error {
	m.transition.Lock()
	defer m.transition.Unlock()

	if s := m.current(); s != nil {
		return &Error{Kind: AlreadyStreaming, Reason: fmt.Sprintf("already streaming to %s", s.Device.Name)}
	}
	device, ok := m.registry.Get(address, port)
	if !ok {
		return &Error{Kind: NotPaired, Reason: fmt.Sprintf("unknown device %s:%d", address, port)}
	}
	if !device.Paired {
		return &Error{Kind: NotPaired, Reason: fmt.Sprintf("%s is not paired", device.Name)}
	}

	m.generation++
	s := &Session{
		ID:         shortid.MustGenerate(),
		Device:     device,
		State:      Starting,
		generation: m.generation,
	}
	m.setSession(s)
	m.emit()
	logger := log.NewLogger(s.ID, log.SessionId)
	logger.Info(fmt.Sprintf("starting stream to %s (%s:%d)", device.Name, address, port))

	ctx, cancel := context.WithTimeout(context.Background(), m.startTimeout)
	defer cancel()
	handle, err := m.pipeline.Start(ctx, device)
	if err != nil {
		logger.Error("pipeline failed to start: ", err)
		m.setState(Failed)
		m.emit()
		m.setSession(nil)
		m.emit()
		return &Error{Kind: PipelineError, Reason: "capture pipeline failed to start", Err: err}
	}

	m.stateLock.Lock()
	s.handle = handle
	s.State = Active
	s.StartedAt = time.Now()
	m.stateLock.Unlock()
	m.emit()
	logger.Info("stream active")

	go m.watch(s.generation, s.ID, handle)
	return nil
}

// Stop terminates the active stream. It never hangs: a pipeline that
// ignores the graceful signal is killed after the shutdown timeout and the
// session still reaches Idle.
func (m *Manager) Stop() error {
	m.transition.Lock()
	defer m.transition.Unlock()

	s := m.current()
	if s == nil || s.State != Active {
		return &Error{Kind: NotStreaming, Reason: "no active stream"}
	}
	logger := log.NewLogger(s.ID, log.SessionId)
	m.setState(Stopping)
	m.emit()

	s.handle.Stop()
	select {
	case <-s.handle.Done():
		logger.Info("pipeline terminated")
	case <-time.After(m.stopTimeout):
		// stop must not hang the system; reclaim the slot regardless
		logger.Warn((&Error{Kind: ShutdownTimeout, Reason: "pipeline ignored stop signal, killing it"}).Error())
		s.handle.Kill()
	}

	m.setSession(nil)
	m.emit()
	logger.Info(fmt.Sprintf("stream to %s stopped", s.Device.Name))
	return nil
}

// Shutdown stops any active stream on program exit.
func (m *Manager) Shutdown() {
	if err := m.Stop(); err != nil {
		var serr *Error
		if errors.As(err, &serr) && serr.Kind == NotStreaming {
			return
		}
		log.Error("shutdown stop: ", err)
	}
}

// Current is a pure read, safe from any state.
func (m *Manager) Current() status.Snapshot {
	m.stateLock.RLock()
	defer m.stateLock.RUnlock()
	s := m.session
	if s == nil || s.State == Failed {
		return status.Snapshot{}
	}
	device := s.Device
	return status.Snapshot{Streaming: true, Device: &device}
}

// CurrentSession returns a copy of the session slot for inspection.
func (m *Manager) CurrentSession() (Session, bool) {
	m.stateLock.RLock()
	defer m.stateLock.RUnlock()
	if m.session == nil {
		return Session{}, false
	}
	return *m.session, true
}

// watch drives the autonomous crash transition: a pipeline that exits while
// the session is Active moves the slot back to Idle and pushes a status
// event. A stop in progress owns the transition instead; the generation
// check keeps a stale watcher from touching a newer session.
func (m *Manager) watch(generation uint64, id string, handle PipelineHandle) {
	<-handle.Done()

	m.transition.Lock()
	defer m.transition.Unlock()
	s := m.current()
	if s == nil || s.generation != generation || s.State != Active {
		return
	}
	logger := log.NewLogger(id, log.SessionId)
	logger.Error("pipeline exited unexpectedly: ", handle.Err())
	m.setSession(nil)
	m.emit()
}

func (m *Manager) current() *Session {
	m.stateLock.RLock()
	defer m.stateLock.RUnlock()
	return m.session
}

func (m *Manager) setSession(s *Session) {
	m.stateLock.Lock()
	m.session = s
	m.stateLock.Unlock()
}

func (m *Manager) setState(state State) {
	m.stateLock.Lock()
	if m.session != nil {
		m.session.State = state
	}
	m.stateLock.Unlock()
}

func (m *Manager) emit() {
	if m.notify != nil {
		m.notify(m.Current())
	}
}
