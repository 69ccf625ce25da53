// Package supervisor implements the concurrent control loop that owns a
// fleet's transports and actuators, polls them at a fixed cadence, and
// exposes a thread-safe caller-facing API: a single object an application
// creates, owning a set of transports and a set of per-device actuator
// records, with ticker-driven background tasks started from a context and
// joined through golang.org/x/sync/errgroup so the first fatal transport
// error cancels every other task.
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	canservo "github.com/samsamfire/canservo"
	"github.com/samsamfire/canservo/pkg/actuator"
	"github.com/samsamfire/canservo/pkg/codec"
	"github.com/samsamfire/canservo/pkg/transport"
)

// actuatorKey identifies an actuator by transport name and bus ID: bus IDs
// are unique only within a transport, not globally.
type actuatorKey struct {
	transport string
	id        uint8
}

type transportEntry struct {
	transport  transport.Transport
	errorCount int
	degraded   bool
}

const degradedThreshold = 5

// Supervisor is the core concurrent controller. Zero value is not usable;
// construct with New.
type Supervisor struct {
	hostID          uint8
	onlineThreshold time.Duration
	registry        *codec.Registry
	logger          *logrus.Logger

	// Lock order is fixed: transportsMu < pendingMu < feedbackMu. Targets and
	// pending admin ops both live inside pendingMu's map of Actuator records —
	// each Actuator's own internal lock is always the innermost one taken.
	transportsMu sync.Mutex
	transports   map[string]*transportEntry

	pendingMu sync.Mutex
	actuators map[actuatorKey]*actuator.Actuator
	byID      map[uint8][]actuatorKey // secondary index for id-only lookups

	feedbackMu  sync.Mutex
	scanWaiters map[scanKey]chan struct{}
	readWaiters map[readKey]chan codec.ParamValue

	ewmaMu   sync.Mutex
	ewmaRate float64

	cancel context.CancelFunc
	group  *errgroup.Group
}

type scanKey struct {
	transport string
	id        uint8
}

type readKey struct {
	transport  string
	id         uint8
	paramIndex uint16
}

// New constructs a Supervisor. onlineThreshold is the freshness window used
// by the online predicate (default 1s if zero).
func New(hostID uint8, onlineThreshold time.Duration, logger *logrus.Logger) *Supervisor {
	if onlineThreshold <= 0 {
		onlineThreshold = time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Supervisor{
		hostID:          hostID,
		onlineThreshold: onlineThreshold,
		registry:        codec.NewRegistry(),
		logger:          logger,
		transports:      make(map[string]*transportEntry),
		actuators:       make(map[actuatorKey]*actuator.Actuator),
		byID:            make(map[uint8][]actuatorKey),
		scanWaiters:     make(map[scanKey]chan struct{}),
		readWaiters:     make(map[readKey]chan codec.ParamValue),
	}
}

// AddTransport registers a Transport under name. Names are unique.
func (s *Supervisor) AddTransport(name string, t transport.Transport) error {
	s.transportsMu.Lock()
	defer s.transportsMu.Unlock()
	if _, exists := s.transports[name]; exists {
		return canservo.NewError(canservo.KindConfig, "add_transport", canservo.ErrDuplicateTransport)
	}
	s.transports[name] = &transportEntry{transport: t}
	return nil
}

// AddActuator registers an actuator record on an existing transport. The id
// must be free on that transport.
func (s *Supervisor) AddActuator(transportName string, id uint8, cfg actuator.Config) error {
	s.transportsMu.Lock()
	_, ok := s.transports[transportName]
	s.transportsMu.Unlock()
	if !ok {
		return canservo.NewError(canservo.KindConfig, "add_actuator", canservo.ErrUnknownTransport)
	}

	key := actuatorKey{transport: transportName, id: id}

	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	if _, exists := s.actuators[key]; exists {
		return canservo.NewError(canservo.KindConfig, "add_actuator", canservo.ErrDuplicateActuator)
	}
	a := actuator.New(id, cfg)
	s.actuators[key] = a
	s.byID[id] = append(s.byID[id], key)
	return nil
}

// lookup finds the actuator and its key for id. Addressing by bare id is
// ambiguous only if the same id was registered on more than one transport;
// the first registered match is returned, matching a well-formed single-id
// fleet configuration.
func (s *Supervisor) lookup(id uint8) (actuatorKey, *actuator.Actuator, error) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	keys, ok := s.byID[id]
	if !ok || len(keys) == 0 {
		return actuatorKey{}, nil, canservo.NewError(canservo.KindConfig, "lookup", canservo.ErrUnknownActuator)
	}
	key := keys[0]
	return key, s.actuators[key], nil
}

// Command sets the actuator's commanded target in physical units;
// concurrent calls for the same id are last-writer-wins.
func (s *Supervisor) Command(id uint8, target codec.ControlTarget) error {
	_, a, err := s.lookup(id)
	if err != nil {
		return err
	}
	a.SetTarget(target)
	return nil
}

// GetFeedback returns the actuator's last decoded feedback and timestamp,
// and whether it is currently considered online.
func (s *Supervisor) GetFeedback(id uint8) (actuator.FeedbackSnapshot, bool, error) {
	_, a, err := s.lookup(id)
	if err != nil {
		return actuator.FeedbackSnapshot{}, false, err
	}
	snap, ok := a.Snapshot()
	if !ok {
		return actuator.FeedbackSnapshot{}, false, nil
	}
	online := a.Online(time.Now(), s.onlineThreshold)
	return snap, online, nil
}

// State returns the actuator's current enable state.
func (s *Supervisor) State(id uint8) (actuator.State, error) {
	_, a, err := s.lookup(id)
	if err != nil {
		return actuator.StateUnknown, err
	}
	return a.State(), nil
}

func (s *Supervisor) transportFor(name string) (transport.Transport, error) {
	s.transportsMu.Lock()
	defer s.transportsMu.Unlock()
	entry, ok := s.transports[name]
	if !ok {
		return nil, canservo.NewError(canservo.KindConfig, "transportFor", canservo.ErrUnknownTransport)
	}
	return entry.transport, nil
}

func (s *Supervisor) recordTransportError(name string) bool {
	s.transportsMu.Lock()
	defer s.transportsMu.Unlock()
	entry, ok := s.transports[name]
	if !ok {
		return false
	}
	entry.errorCount++
	if entry.errorCount >= degradedThreshold {
		entry.degraded = true
	}
	return entry.degraded
}

func (s *Supervisor) recordTransportSuccess(name string) {
	s.transportsMu.Lock()
	defer s.transportsMu.Unlock()
	if entry, ok := s.transports[name]; ok {
		entry.errorCount = 0
		entry.degraded = false
	}
}

// Degraded reports whether a transport has crossed the repeated-error
// threshold.
func (s *Supervisor) Degraded(name string) bool {
	s.transportsMu.Lock()
	defer s.transportsMu.Unlock()
	entry, ok := s.transports[name]
	return ok && entry.degraded
}

// Rate returns the EWMA-smoothed observed poll-loop rate in Hz.
func (s *Supervisor) Rate() float64 {
	s.ewmaMu.Lock()
	defer s.ewmaMu.Unlock()
	return s.ewmaRate
}

func (s *Supervisor) updateRate(tickDuration time.Duration) {
	if tickDuration <= 0 {
		return
	}
	instant := 1.0 / tickDuration.Seconds()
	const alpha = 0.1
	s.ewmaMu.Lock()
	if s.ewmaRate == 0 {
		s.ewmaRate = instant
	} else {
		s.ewmaRate = alpha*instant + (1-alpha)*s.ewmaRate
	}
	s.ewmaMu.Unlock()
}

// actuatorsOn returns every (id, *Actuator) pair registered on transportName.
func (s *Supervisor) actuatorsOn(transportName string) map[uint8]*actuator.Actuator {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	out := make(map[uint8]*actuator.Actuator)
	for key, a := range s.actuators {
		if key.transport == transportName {
			out[key.id] = a
		}
	}
	return out
}
