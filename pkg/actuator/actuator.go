// Package actuator implements the per-motor record the supervisor owns:
// configured limits, the latest commanded target, the latest decoded
// feedback, and the enable-state machine. It is a bounded state set with an
// explicit transition table, owned exclusively by the supervisor and
// mutated only under its own lock: {Unknown, Disabled, Enabled, Fault}.
package actuator

import (
	"sync"
	"time"

	"github.com/samsamfire/canservo/pkg/codec"
)

// State is one of the four enable states an Actuator can be in.
type State uint8

const (
	StateUnknown State = iota
	StateDisabled
	StateEnabled
	StateFault
)

var stateNames = map[State]string{
	StateUnknown:  "Unknown",
	StateDisabled: "Disabled",
	StateEnabled:  "Enabled",
	StateFault:    "Fault",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

// Limits holds the user-configured ceilings enforced ahead of the family's
// physical limits: a target is clamped in two stages, user limits first.
type Limits struct {
	MaxTorqueNm    float64
	MaxVelocityRadS float64
	MaxCurrentA    float64
	Kp             float64
	Kd             float64
}

// Config is supplied at add_actuator time.
type Config struct {
	Family          codec.Family
	MaxAngleChange  float64 // 0 means unconfigured (no per-tick clamp)
	Limits          Limits
}

// FeedbackSnapshot is the last decoded Feedback plus its monotonic receipt
// timestamp.
type FeedbackSnapshot struct {
	Feedback  codec.Feedback
	Fault     codec.FaultFrame
	Timestamp time.Time
}

// Actuator is one motor's full record. It is owned exclusively by the
// supervisor; all mutation goes through its exported methods, each of which
// takes the internal lock — the innermost lock: no supervisor lock is ever
// acquired while it is held.
type Actuator struct {
	id     uint8
	config Config

	mu             sync.Mutex
	target         codec.ControlTarget
	lastCommanded  codec.ControlTarget
	hasCommanded   bool
	state          State
	mode           codec.RunMode
	feedback       *FeedbackSnapshot
	adminPending   []AdminRequest
}

// AdminOp names the kind of admin operation queued against an actuator.
type AdminOp uint8

const (
	AdminZero AdminOp = iota
	AdminSetID
	AdminEnable
	AdminDisable
	AdminDisableClearFault
	AdminConfigure
)

// AdminRequest is one queued admin operation; NewID and Limits are only
// meaningful for AdminSetID and AdminConfigure respectively.
type AdminRequest struct {
	Op     AdminOp
	NewID  uint8
	Limits Limits
}

// New creates an Actuator in state Unknown.
func New(id uint8, cfg Config) *Actuator {
	return &Actuator{id: id, config: cfg, state: StateUnknown}
}

func (a *Actuator) ID() uint8            { return a.id }
func (a *Actuator) Family() codec.Family { return a.config.Family }

// SetID updates the actuator's bus id after a successful change_id
// exchange. The supervisor is responsible for rekeying its own lookup maps
// to match; this only updates the record itself.
func (a *Actuator) SetID(id uint8) {
	a.mu.Lock()
	a.id = id
	a.mu.Unlock()
}

// SetLimits replaces the configured user limits immediately; the next
// ClampedTarget call enforces them.
func (a *Actuator) SetLimits(limits Limits) {
	a.mu.Lock()
	a.config.Limits = limits
	a.mu.Unlock()
}

// SetTarget replaces the actuator's commanded set-point in physical units.
// It does not clamp; clamping happens at encode time (ClampedTarget) so the
// stored target always reflects the caller's last request.
func (a *Actuator) SetTarget(t codec.ControlTarget) {
	a.mu.Lock()
	a.target = t
	a.mu.Unlock()
}

// Target returns the actuator's last commanded (unclamped) set-point.
func (a *Actuator) Target() codec.ControlTarget {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.target
}

// ClampedTarget returns the target clamped first to the configured user
// limits, then to the family's physical limits, then — if configured — to
// max_angle_change relative to the last commanded angle.
func (a *Actuator) ClampedTarget(reg *codec.Registry) codec.ControlTarget {
	a.mu.Lock()
	defer a.mu.Unlock()

	physical, ok := reg.Limits(a.config.Family)
	if !ok {
		return a.target
	}

	userLimits := codec.PhysicalLimits{
		Angle:    physical.Angle,
		Velocity: codec.Limits{Min: -clampOrDefault(a.config.Limits.MaxVelocityRadS, physical.Velocity.Max), Max: clampOrDefault(a.config.Limits.MaxVelocityRadS, physical.Velocity.Max)},
		Torque:   codec.Limits{Min: -clampOrDefault(a.config.Limits.MaxTorqueNm, physical.Torque.Max), Max: clampOrDefault(a.config.Limits.MaxTorqueNm, physical.Torque.Max)},
		Kp:       codec.Limits{Min: 0, Max: clampOrDefault(a.config.Limits.Kp, physical.Kp.Max)},
		Kd:       codec.Limits{Min: 0, Max: clampOrDefault(a.config.Limits.Kd, physical.Kd.Max)},
	}

	clamped := reg.ClampTarget(a.config.Family, a.target, userLimits)
	clamped = reg.ClampTarget(a.config.Family, clamped, physical)

	if a.config.MaxAngleChange > 0 && a.hasCommanded {
		delta := clamped.AngleRad - a.lastCommanded.AngleRad
		if delta > a.config.MaxAngleChange {
			clamped.AngleRad = a.lastCommanded.AngleRad + a.config.MaxAngleChange
		} else if delta < -a.config.MaxAngleChange {
			clamped.AngleRad = a.lastCommanded.AngleRad - a.config.MaxAngleChange
		}
	}

	a.lastCommanded = clamped
	a.hasCommanded = true
	return clamped
}

func clampOrDefault(configured, def float64) float64 {
	if configured <= 0 {
		return def
	}
	if configured < def {
		return configured
	}
	return def
}

// QueueAdmin appends req to the pending admin queue. Admin ops take priority
// over control frames for this actuator in the tick they are drained.
func (a *Actuator) QueueAdmin(req AdminRequest) {
	a.mu.Lock()
	a.adminPending = append(a.adminPending, req)
	a.mu.Unlock()
}

// HasPendingAdmin reports whether an admin op is queued for this tick.
func (a *Actuator) HasPendingAdmin() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.adminPending) > 0
}

// PopAdmin removes and returns the oldest queued admin request, if any.
// The poll loop emits at most one admin frame per actuator per tick, and
// admin ops for the same actuator execute in submission order, so popping
// the front of the queue one tick at a time is the entire admin-priority
// rule.
func (a *Actuator) PopAdmin() (AdminRequest, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.adminPending) == 0 {
		return AdminRequest{}, false
	}
	req := a.adminPending[0]
	a.adminPending = a.adminPending[1:]
	return req, true
}

// ApplyFeedback stores a decoded Feedback frame and advances state
// Unknown→Enabled. The timestamp must be strictly greater than the
// previously stored one or it is rejected, preserving the
// monotonic-timestamp invariant.
func (a *Actuator) ApplyFeedback(fb codec.Feedback, ts time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.feedback != nil && !ts.After(a.feedback.Timestamp) {
		return false
	}
	a.feedback = &FeedbackSnapshot{Feedback: fb, Timestamp: ts}
	a.mode = fb.Mode
	if a.state == StateUnknown {
		a.state = StateEnabled
	}
	return true
}

// ApplyFault merges a Fault frame into the record and transitions to state
// Fault.
func (a *Actuator) ApplyFault(fault codec.FaultFrame, ts time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.feedback == nil {
		a.feedback = &FeedbackSnapshot{Timestamp: ts}
	} else if ts.After(a.feedback.Timestamp) {
		a.feedback.Timestamp = ts
	}
	a.feedback.Fault = fault
	a.state = StateFault
}

// SetEnabled transitions to Enabled or Disabled directly, used by the
// Enable/Stop admin handlers when the admin frame is built for sending (no
// reply from the motor is awaited) and by the shutdown sequence.
func (a *Actuator) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if enabled {
		a.state = StateEnabled
	} else {
		a.state = StateDisabled
	}
}

// ClearFault transitions Fault→Disabled, the only path out of Fault.
func (a *Actuator) ClearFault() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == StateFault {
		a.feedback.Fault = codec.FaultFrame{}
		a.state = StateDisabled
	}
}

// State returns the current enable state.
func (a *Actuator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Snapshot returns the last feedback and whether one has ever been
// recorded.
func (a *Actuator) Snapshot() (FeedbackSnapshot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.feedback == nil {
		return FeedbackSnapshot{}, false
	}
	return *a.feedback, true
}

// Online reports whether a feedback frame has been seen within
// onlineThreshold of now.
func (a *Actuator) Online(now time.Time, onlineThreshold time.Duration) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.feedback == nil {
		return false
	}
	return now.Sub(a.feedback.Timestamp) < onlineThreshold
}

// ZeroTorqueTarget is the Control target used for the shutdown sequence.
func ZeroTorqueTarget(last codec.ControlTarget) codec.ControlTarget {
	last.TorqueNm = 0
	return last
}
