package stub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	canservo "github.com/samsamfire/canservo"
	"github.com/samsamfire/canservo/pkg/transport"
)

func TestNew_KindAndPort(t *testing.T) {
	tp, err := New("loop0")
	require.NoError(t, err)
	defer tp.Close()
	assert.Equal(t, "stub", tp.Kind())
	assert.Equal(t, "loop0", tp.Port())
}

func TestInject_TakesPriorityOverTick(t *testing.T) {
	tp, err := New("loop0")
	require.NoError(t, err)
	defer tp.Close()

	st := tp.(*Transport)
	injected := canservo.Frame{ID: 42, DLC: 2}
	st.Inject(injected)

	got, err := tp.Recv()
	require.NoError(t, err)
	assert.Equal(t, injected, got)
}

func TestRecv_FallsBackToSyntheticTick(t *testing.T) {
	tp, err := New("loop0")
	require.NoError(t, err)
	defer tp.Close()

	start := time.Now()
	got, err := tp.Recv()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	assert.Equal(t, DefaultFrame, got)
}

func TestSend_RecordsFrame(t *testing.T) {
	tp, err := New("loop0")
	require.NoError(t, err)
	defer tp.Close()

	frame := canservo.Frame{ID: 7, DLC: 1}
	require.NoError(t, tp.Send(frame))

	st := tp.(*Transport)
	assert.Equal(t, []canservo.Frame{frame}, st.Sent())
}

func TestClearBuffer_InterruptsRecv(t *testing.T) {
	tp, err := New("loop0")
	require.NoError(t, err)
	defer tp.Close()

	done := make(chan error, 1)
	go func() {
		_, err := tp.Recv()
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	tp.ClearBuffer()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, transport.ErrCleared)
	case <-time.After(time.Second):
		t.Fatal("ClearBuffer did not unblock Recv")
	}
}

func TestClose_UnblocksRecvWithEOF(t *testing.T) {
	tp, err := New("loop0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := tp.Recv()
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, tp.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, canservo.ErrEOF)
	case <-time.After(time.Second):
		t.Fatal("Close did not unblock Recv")
	}
}
