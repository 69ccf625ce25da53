package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	canservo "github.com/samsamfire/canservo"
)

type fakeTransport struct{ channel string }

func (f *fakeTransport) Send(canservo.Frame) error    { return nil }
func (f *fakeTransport) Recv() (canservo.Frame, error) { return canservo.Frame{}, nil }
func (f *fakeTransport) Kind() string                 { return "fake" }
func (f *fakeTransport) Port() string                 { return f.channel }
func (f *fakeTransport) ClearBuffer()                 {}
func (f *fakeTransport) Close() error                 { return nil }

func TestRegisterAndNew(t *testing.T) {
	Register("fake", func(channel string) (Transport, error) {
		return &fakeTransport{channel: channel}, nil
	})

	tr, err := New("fake", "chan0")
	require.NoError(t, err)
	assert.Equal(t, "fake", tr.Kind())
	assert.Equal(t, "chan0", tr.Port())

	assert.Contains(t, Registered(), "fake")
}

func TestNew_UnknownKind(t *testing.T) {
	_, err := New("nonexistent-kind", "chan0")
	assert.Error(t, err)
}
