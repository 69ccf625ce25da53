package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadParamRoundTrip(t *testing.T) {
	req := WriteRequest(0x7006, 12.5)
	pv := DecodeParamResponse(req)
	assert.Equal(t, uint16(0x7006), pv.ParamIndex)
	assert.InDelta(t, 12.5, pv.Float, 1e-4)
}

func TestWriteRunModeRoundTrip(t *testing.T) {
	req := WriteRunModeRequest(ModeCalibration)
	pv := DecodeParamResponse(req)
	require.Equal(t, ParamRunMode, pv.ParamIndex)
	assert.Equal(t, ModeCalibration, pv.Mode)
}

func TestDecodeParamResponse_FailureStatus(t *testing.T) {
	data := WriteRequest(0x7006, 1.0)
	data[0] = 1 // non-zero status signals a failed Read
	pv := DecodeParamResponse(data)
	assert.NotZero(t, pv.Status)
}

func TestDecodeParamStrInfo(t *testing.T) {
	var data [8]byte
	copy(data[:], "kp\x00pad")
	assert.Equal(t, "kp", DecodeParamStrInfo(data))
}
