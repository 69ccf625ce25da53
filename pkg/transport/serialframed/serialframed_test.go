package serialframed

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	canservo "github.com/samsamfire/canservo"
	"github.com/samsamfire/canservo/internal/fifo"
)

func newTestTransport() *Transport {
	return &Transport{buf: fifo.NewFifo(maxBufferSize), cleared: make(chan struct{}, 1)}
}

func encodeFrame(frame canservo.Frame) []byte {
	header := (frame.ID << 3) | 0x4
	n := int(frame.DLC)
	out := make([]byte, 0, 2+4+1+n+2)
	out = append(out, frameHeader...)
	var headerBytes [4]byte
	binary.BigEndian.PutUint32(headerBytes[:], header)
	out = append(out, headerBytes[:]...)
	out = append(out, byte(n))
	out = append(out, frame.Data[:n]...)
	out = append(out, '\r', '\n')
	return out
}

// A Control frame round-trips through the "AT"-framed wire encoding.
func TestTryParse_ControlFrameRoundTrip(t *testing.T) {
	want := canservo.Frame{
		ID:   canservo.ExtendedID{MotorID: 3, Data2: 0x1234, CommType: canservo.CommControl}.Pack(),
		Data: [8]byte{1, 2, 3, 4, 5, 6, 7, 8},
		DLC:  8,
	}
	tr := newTestTransport()
	n := tr.buf.Write(encodeFrame(want))
	require.Equal(t, len(encodeFrame(want)), n)

	got, ok, err := tr.tryParse()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Data, got.Data)
	assert.Equal(t, want.DLC, got.DLC)
}

func TestTryParse_IncompleteFrame_NoError(t *testing.T) {
	want := canservo.Frame{ID: 1, Data: [8]byte{1}, DLC: 1}
	wire := encodeFrame(want)

	tr := newTestTransport()
	tr.buf.Write(wire[:len(wire)-3]) // withhold the trailing "\r\n" and last payload byte

	_, ok, err := tr.tryParse()
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestTryParse_GarbagePrefixSkipped(t *testing.T) {
	want := canservo.Frame{ID: 2, Data: [8]byte{9, 9}, DLC: 2}
	tr := newTestTransport()
	tr.buf.Write([]byte{0xFF, 0xEE, 0xDD})
	tr.buf.Write(encodeFrame(want))

	got, ok, err := tr.tryParse()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.ID, got.ID)
}

func TestTryParse_MalformedTrailer(t *testing.T) {
	want := canservo.Frame{ID: 4, Data: [8]byte{1}, DLC: 1}
	wire := encodeFrame(want)
	wire[len(wire)-1] = 'X' // corrupt the trailing "\n"

	tr := newTestTransport()
	tr.buf.Write(wire)

	_, ok, err := tr.tryParse()
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestClearBuffer_ResetsAndSignalsCleared(t *testing.T) {
	tr := newTestTransport()
	tr.buf.Write([]byte{0x41, 0x54, 0x00})
	tr.ClearBuffer()

	assert.Equal(t, 0, tr.buf.GetOccupied())
	select {
	case <-tr.cleared:
	default:
		t.Fatal("expected ClearBuffer to signal the cleared channel")
	}
}

func TestKindAndPort(t *testing.T) {
	tr := &Transport{port: "/dev/ttyUSB0"}
	assert.Equal(t, "serialframed", tr.Kind())
	assert.Equal(t, "/dev/ttyUSB0", tr.Port())
}
