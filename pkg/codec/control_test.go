package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	canservo "github.com/samsamfire/canservo"
)

// A zero-valued control target on F04 encodes to mid-scale on every field,
// since Kp/Kd's symmetric wire range makes 0 the midpoint for every field.
func TestEncodeControl_ZeroTargetMidScale(t *testing.T) {
	data, data2, ok := EncodeControl(F04, ControlTarget{})
	require.True(t, ok)
	assert.Equal(t, [8]byte{0x80, 0x00, 0x80, 0x00, 0x80, 0x00, 0x80, 0x00}, data)
	assert.Equal(t, uint16(0x8000), data2)
}

func TestEncodeControl_UnknownFamily(t *testing.T) {
	_, _, ok := EncodeControl(Family(99), ControlTarget{})
	assert.False(t, ok)
}

func TestControlRoundTrip(t *testing.T) {
	for _, f := range []Family{F00, F01, F02, F03, F04} {
		limits, ok := PhysicalLimitsFor(f)
		require.True(t, ok)
		target := ControlTarget{
			AngleRad:     limits.Angle.Max / 3,
			VelocityRadS: -limits.Velocity.Max / 2,
			Kp:           limits.Kp.Max / 4,
			Kd:           -limits.Kd.Max / 4,
			TorqueNm:     limits.Torque.Min / 2,
		}
		data, data2, ok := EncodeControl(f, target)
		require.True(t, ok)
		got, ok := DecodeControl(f, data, data2)
		require.True(t, ok)

		tol := func(l Limits) float64 { return 1.01 * LSB(l.Min, l.Max) }
		assert.InDelta(t, target.AngleRad, got.AngleRad, tol(limits.Angle))
		assert.InDelta(t, target.VelocityRadS, got.VelocityRadS, tol(limits.Velocity))
		assert.InDelta(t, target.Kp, got.Kp, tol(limits.Kp))
		assert.InDelta(t, target.Kd, got.Kd, tol(limits.Kd))
		assert.InDelta(t, target.TorqueNm, got.TorqueNm, tol(limits.Torque))
	}
}

func TestControlFrame_PacksMotorID(t *testing.T) {
	frame, ok := ControlFrame(7, F00, ControlTarget{})
	require.True(t, ok)
	id := canservo.UnpackExtendedID(frame.ID)
	assert.Equal(t, uint8(7), id.MotorID)
	assert.Equal(t, canservo.CommControl, id.CommType)
}
