package actuator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samsamfire/canservo/pkg/codec"
)

func TestNew_StartsUnknown(t *testing.T) {
	a := New(1, Config{Family: codec.F00})
	assert.Equal(t, StateUnknown, a.State())
}

func TestApplyFeedback_UnknownToEnabled(t *testing.T) {
	a := New(1, Config{Family: codec.F00})
	ok := a.ApplyFeedback(codec.Feedback{MotorID: 1}, time.Now())
	require.True(t, ok)
	assert.Equal(t, StateEnabled, a.State())
}

func TestApplyFeedback_RejectsNonMonotonicTimestamp(t *testing.T) {
	a := New(1, Config{Family: codec.F00})
	t0 := time.Now()
	require.True(t, a.ApplyFeedback(codec.Feedback{}, t0))
	assert.False(t, a.ApplyFeedback(codec.Feedback{}, t0))
	assert.False(t, a.ApplyFeedback(codec.Feedback{}, t0.Add(-time.Second)))
}

func TestApplyFault_TransitionsToFault(t *testing.T) {
	a := New(1, Config{Family: codec.F00})
	require.True(t, a.ApplyFeedback(codec.Feedback{}, time.Now()))
	a.ApplyFault(codec.FaultFrame{MotorOverTemp: true}, time.Now())
	assert.Equal(t, StateFault, a.State())
	snap, ok := a.Snapshot()
	require.True(t, ok)
	assert.True(t, snap.Fault.MotorOverTemp)
}

// enable -> fault -> disable(clear_fault=true) -> enable -> next feedback
// shows Enabled.
func TestStateMachine_FaultClearedThenReenabled(t *testing.T) {
	a := New(1, Config{Family: codec.F00})
	a.SetEnabled(true)
	assert.Equal(t, StateEnabled, a.State())

	a.ApplyFault(codec.FaultFrame{Overvoltage: true}, time.Now())
	assert.Equal(t, StateFault, a.State())

	a.ClearFault()
	assert.Equal(t, StateDisabled, a.State())

	a.SetEnabled(true)
	require.True(t, a.ApplyFeedback(codec.Feedback{}, time.Now().Add(time.Millisecond)))
	assert.Equal(t, StateEnabled, a.State())
}

func TestOnline_Predicate(t *testing.T) {
	a := New(1, Config{Family: codec.F00})
	assert.False(t, a.Online(time.Now(), time.Second))

	require.True(t, a.ApplyFeedback(codec.Feedback{}, time.Now()))
	assert.True(t, a.Online(time.Now(), time.Second))
	assert.False(t, a.Online(time.Now().Add(2*time.Second), time.Second))
}

func TestClampedTarget_UserLimitsThenPhysical(t *testing.T) {
	reg := codec.NewRegistry()
	a := New(1, Config{
		Family: codec.F00,
		Limits: Limits{MaxVelocityRadS: 5, MaxTorqueNm: 2, Kp: 10, Kd: 1},
	})
	a.SetTarget(codec.ControlTarget{VelocityRadS: 50, TorqueNm: 50})

	clamped := a.ClampedTarget(reg)
	assert.Equal(t, 5.0, clamped.VelocityRadS)
	assert.Equal(t, 2.0, clamped.TorqueNm)
}

func TestClampedTarget_MaxAngleChange(t *testing.T) {
	reg := codec.NewRegistry()
	a := New(1, Config{Family: codec.F00, MaxAngleChange: 0.1})

	a.SetTarget(codec.ControlTarget{AngleRad: 0})
	first := a.ClampedTarget(reg)
	assert.Equal(t, 0.0, first.AngleRad)

	a.SetTarget(codec.ControlTarget{AngleRad: 10})
	second := a.ClampedTarget(reg)
	assert.InDelta(t, 0.1, second.AngleRad, 1e-9)
}

func TestAdminQueue_PopsOnePerCall(t *testing.T) {
	a := New(1, Config{Family: codec.F00})
	assert.False(t, a.HasPendingAdmin())
	a.QueueAdmin(AdminRequest{Op: AdminZero})
	a.QueueAdmin(AdminRequest{Op: AdminEnable})
	assert.True(t, a.HasPendingAdmin())

	first, ok := a.PopAdmin()
	require.True(t, ok)
	assert.Equal(t, AdminZero, first.Op)
	assert.True(t, a.HasPendingAdmin())

	second, ok := a.PopAdmin()
	require.True(t, ok)
	assert.Equal(t, AdminEnable, second.Op)
	assert.False(t, a.HasPendingAdmin())

	_, ok = a.PopAdmin()
	assert.False(t, ok)
}
