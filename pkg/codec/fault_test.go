package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFaultRoundTrip(t *testing.T) {
	f := FaultFrame{
		MotorOverTemp:     true,
		PhaseAOvercurrent: true,
		OverTempWarning:   true,
	}
	data := EncodeFault(f)
	got := DecodeFault(data)
	assert.Equal(t, f, got)
	assert.True(t, got.Any())
}

func TestFaultFrame_AnyIgnoresWarnings(t *testing.T) {
	f := FaultFrame{OverTempWarning: true}
	assert.False(t, f.Any())
}
