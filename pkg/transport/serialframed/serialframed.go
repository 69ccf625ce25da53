// Package serialframed implements the Transport variant that reaches the CAN
// bus through a USB-to-CAN bridge tethered over a serial link, using an
// "AT" + 4-byte header + 1-byte length + payload + "\r\n" wire framing.
// Connection handling uses go.bug.st/serial (serial.Mode + SetReadTimeout);
// partial-frame reassembly is built on the internal/fifo circular buffer.
package serialframed

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"

	canservo "github.com/samsamfire/canservo"
	"github.com/samsamfire/canservo/internal/fifo"
	"github.com/samsamfire/canservo/pkg/transport"
)

func init() {
	transport.Register("serialframed", New)
}

const (
	maxBufferSize = 512
	frameHeader   = "AT"
	readChunk     = 64
)

// Transport implements transport.Transport over a serial port using the
// "AT" + 4-byte header + 1-byte length + payload + "\r\n" wire framing.
type Transport struct {
	port     string
	baudRate int
	mu       sync.Mutex
	conn     serial.Port
	buf      *fifo.Fifo
	cleared  chan struct{}
}

// Config holds the serial connection parameters; they correspond to the Port
// and BaudRate fields of a fleetconfig.TransportSpec.
type Config struct {
	Port     string
	BaudRate int
}

// Open opens port at baudRate and returns a ready Transport.
func Open(cfg Config) (*Transport, error) {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 921600
	}
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	conn, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, canservo.NewError(canservo.KindTransport, "serialframed.Open", err)
	}
	if err := conn.SetReadTimeout(200 * time.Millisecond); err != nil {
		conn.Close()
		return nil, canservo.NewError(canservo.KindTransport, "serialframed.Open", err)
	}
	return &Transport{
		port:     cfg.Port,
		baudRate: cfg.BaudRate,
		conn:     conn,
		buf:      fifo.NewFifo(maxBufferSize),
		cleared:  make(chan struct{}, 1),
	}, nil
}

// New satisfies transport.NewFunc; channel is the serial device path at the
// default baud rate.
func New(channel string) (transport.Transport, error) {
	return Open(Config{Port: channel})
}

func (t *Transport) Kind() string { return "serialframed" }
func (t *Transport) Port() string { return t.port }

// Send encodes frame as "AT" + 4B BE header + 1B length + payload + "\r\n"
// and writes it to the port.
func (t *Transport) Send(frame canservo.Frame) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	header := (frame.ID << 3) | 0x4
	n := int(frame.DLC)
	if n > len(frame.Data) {
		n = len(frame.Data)
	}

	out := make([]byte, 0, 2+4+1+n+2)
	out = append(out, frameHeader...)
	var headerBytes [4]byte
	binary.BigEndian.PutUint32(headerBytes[:], header)
	out = append(out, headerBytes[:]...)
	out = append(out, byte(n))
	out = append(out, frame.Data[:n]...)
	out = append(out, '\r', '\n')

	_, err := t.conn.Write(out)
	if err != nil {
		return canservo.NewError(canservo.KindTransport, "serialframed.Send", err)
	}
	return nil
}

// Recv scans the incoming byte stream for the "AT" prefix, validates the
// trailer, and extracts id = (header >> 3) & 0x1FFF_FFFF. Partial frames
// accumulate in the internal fifo across calls; an oversized buffer with no
// complete frame, or a frame with a malformed trailer, is reported as an
// error and the buffer is reset.
func (t *Transport) Recv() (canservo.Frame, error) {
	chunk := make([]byte, readChunk)
	for {
		select {
		case <-t.cleared:
			return canservo.Frame{}, transport.ErrCleared
		default:
		}

		t.mu.Lock()
		if frame, ok, err := t.tryParse(); ok || err != nil {
			if err != nil {
				t.buf.Reset()
			}
			t.mu.Unlock()
			return frame, err
		}
		t.mu.Unlock()

		n, err := t.conn.Read(chunk)
		if err != nil {
			return canservo.Frame{}, canservo.NewError(canservo.KindTransport, "serialframed.Recv", err)
		}
		if n == 0 {
			continue
		}

		t.mu.Lock()
		written := t.buf.Write(chunk[:n])
		if written < n {
			t.buf.Reset()
			t.mu.Unlock()
			return canservo.Frame{}, canservo.NewError(canservo.KindTransport, "serialframed.Recv", canservo.ErrBufferOverflow)
		}
		t.mu.Unlock()
	}
}

// tryParse attempts to extract one complete frame from the buffered bytes
// without blocking. Caller holds t.mu.
func (t *Transport) tryParse() (canservo.Frame, bool, error) {
	occupied := t.buf.GetOccupied()
	if occupied < len(frameHeader)+4+1 {
		return canservo.Frame{}, false, nil
	}

	peek := make([]byte, occupied)
	t.buf.AltBegin(0)
	t.buf.AltRead(peek)

	idx := bytes.Index(peek, []byte(frameHeader))
	if idx < 0 {
		// No prefix anywhere yet; keep only the final byte in case it is a
		// split "A"/"T" boundary.
		if occupied > 1 {
			t.buf.AltBegin(occupied - 1)
			t.buf.AltFinish()
		}
		return canservo.Frame{}, false, nil
	}
	if idx > 0 {
		t.buf.AltBegin(idx)
		t.buf.AltFinish()
		occupied -= idx
		peek = peek[idx:]
	}
	if occupied < len(frameHeader)+4+1 {
		return canservo.Frame{}, false, nil
	}

	length := int(peek[len(frameHeader)+4])
	total := len(frameHeader) + 4 + 1 + length + 2
	if occupied < total {
		return canservo.Frame{}, false, nil
	}
	if peek[total-2] != '\r' || peek[total-1] != '\n' {
		return canservo.Frame{}, false, fmt.Errorf("serialframed: malformed trailer")
	}

	header := binary.BigEndian.Uint32(peek[len(frameHeader) : len(frameHeader)+4])
	id := (header >> 3) & 0x1FFF_FFFF

	var data [8]byte
	copy(data[:], peek[len(frameHeader)+4+1:len(frameHeader)+4+1+length])

	t.buf.AltBegin(total)
	t.buf.AltFinish()

	return canservo.Frame{ID: id, Data: data, DLC: uint8(length)}, true, nil
}

// ClearBuffer discards buffered partial-frame bytes and interrupts a pending
// Recv. Recv resets the same buffer itself on a framing parse error.
func (t *Transport) ClearBuffer() {
	t.mu.Lock()
	t.buf.Reset()
	t.mu.Unlock()
	select {
	case t.cleared <- struct{}{}:
	default:
	}
}

func (t *Transport) Close() error {
	return t.conn.Close()
}
