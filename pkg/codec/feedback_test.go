package codec

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// data_2 = 0x8201 decodes to motor_id=0x01, mode=Run, and the fault bit at
// position 9 (overcurrent) — not the over-temperature bit at position 10 —
// because the firmware's own bit layout, not the written-down prose
// describing it, is ground truth here; see DESIGN.md for the discrepancy.
func TestDecodeFeedback_OvercurrentBitWinsOverOverTemp(t *testing.T) {
	var data [8]byte
	binary.BigEndian.PutUint16(data[6:8], 500) // 50.0C

	fb, ok := DecodeFeedback(F04, data, 0x8201)
	require.True(t, ok)

	assert.Equal(t, uint8(0x01), fb.MotorID)
	assert.Equal(t, ModeRun, fb.Mode)
	assert.Equal(t, 50.0, fb.TemperatureC)
	assert.True(t, fb.Faults.Overcurrent)
	assert.False(t, fb.Faults.OverTemp)
	assert.False(t, fb.Faults.Hall)
	assert.False(t, fb.Faults.Magnetic)
	assert.False(t, fb.Faults.Uncalibrated)
	assert.False(t, fb.Faults.Undervoltage)
}

func TestFeedbackRoundTrip(t *testing.T) {
	fb := Feedback{
		MotorID:      3,
		AngleRad:     1.0,
		VelocityRadS: -2.5,
		TorqueNm:     4.0,
		TemperatureC: 37.2,
		Mode:         ModeCalibration,
		Faults:       FeedbackFaults{Hall: true, Undervoltage: true},
	}
	data, data2, ok := EncodeFeedback(F01, fb)
	require.True(t, ok)

	got, ok := DecodeFeedback(F01, data, data2)
	require.True(t, ok)

	assert.Equal(t, fb.MotorID, got.MotorID)
	assert.Equal(t, fb.Mode, got.Mode)
	assert.Equal(t, fb.Faults, got.Faults)
	assert.InDelta(t, fb.TemperatureC, got.TemperatureC, 0.1)
}

func TestFeedbackFaults_Any(t *testing.T) {
	assert.False(t, FeedbackFaults{}.Any())
	assert.True(t, FeedbackFaults{Hall: true}.Any())
}
