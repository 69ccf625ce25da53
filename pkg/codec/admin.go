package codec

import "encoding/binary"

// Admin frames carry minimal payloads and address the host in data2 rather
// than the payload; this file builds and parses the Enable, Stop, SetZero,
// SetID, and ObtainID frames.

// EnablePayload returns the fixed payload for an Enable frame: none of the
// bytes are interpreted, so it is left zeroed.
func EnablePayload() [8]byte {
	return [8]byte{}
}

// StopPayload returns the payload for a Stop frame: byte 0 carries
// clear_fault (1 to clear a latched fault while disabling, 0 for a plain
// disable), the remaining bytes are reserved.
func StopPayload(clearFault bool) [8]byte {
	var data [8]byte
	if clearFault {
		data[0] = 1
	}
	return data
}

// SetZeroPayload returns the payload for a SetZero frame: byte 0 must be 1,
// the remaining bytes are reserved.
func SetZeroPayload() [8]byte {
	return [8]byte{1}
}

// SetIDData2 packs the data2 context field for a SetID frame: the host id in
// the lower byte, the target's new bus id in the upper byte. The payload
// itself carries nothing and is left zeroed.
func SetIDData2(hostID, newID uint8) uint16 {
	return uint16(hostID) | uint16(newID)<<8
}

// ObtainIDPayload returns the fixed payload for an ObtainID discovery frame.
func ObtainIDPayload() [8]byte {
	return [8]byte{}
}

// ObtainIDResponse is the decoded result of an ObtainID reply: the
// responding actuator's bus ID and its 8-byte unique hardware identifier.
type ObtainIDResponse struct {
	MotorID  uint8
	UniqueID uint64
}

// DecodeObtainIDResponse decodes the reply to an ObtainID broadcast. The
// motor ID rides in data2 (mirroring every other frame's addressing), and
// the 8-byte payload is the device's unique serial number, big-endian.
func DecodeObtainIDResponse(data2 uint16, data [8]byte) ObtainIDResponse {
	return ObtainIDResponse{
		MotorID:  uint8(data2 & 0xFF),
		UniqueID: binary.BigEndian.Uint64(data[:]),
	}
}
