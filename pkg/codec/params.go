package codec

import (
	"encoding/binary"
	"math"
)

// ParamRunMode is the index of the one parameter whose value occupies a
// single byte instead of a 32-bit float. See DESIGN.md for the byte
// position this resolves to and why.
const ParamRunMode uint16 = 0x7005

// ReadRequest builds the 8-byte payload for a Read frame. Only the param
// index is meaningful; the remaining bytes are reserved and left zero.
func ReadRequest(paramIndex uint16) [8]byte {
	var data [8]byte
	binary.LittleEndian.PutUint16(data[0:2], paramIndex)
	return data
}

// ParamValue is a decoded Read response or a Write request payload.
type ParamValue struct {
	ParamIndex uint16
	Status     uint8 // non-zero means the Read failed; meaningless on Write
	Float      float64
	Mode       RunMode // valid only when ParamIndex == ParamRunMode
}

// DecodeParamResponse decodes a Read-response or Write payload: bytes 0-1
// carry the param index, byte 0 doubles as a failure status on a Read
// response, and bytes 4-7 carry the value (a 32-bit float, except for
// ParamRunMode which packs its value into byte 4 alone).
func DecodeParamResponse(data [8]byte) ParamValue {
	pv := ParamValue{
		ParamIndex: binary.LittleEndian.Uint16(data[0:2]),
		Status:     data[0],
	}
	if pv.ParamIndex == ParamRunMode {
		pv.Mode = RunMode(data[4])
		return pv
	}
	bits := binary.LittleEndian.Uint32(data[4:8])
	pv.Float = float64(math.Float32frombits(bits))
	return pv
}

// WriteRequest builds the 8-byte payload for a Write frame carrying a
// 32-bit float value.
func WriteRequest(paramIndex uint16, value float64) [8]byte {
	var data [8]byte
	binary.LittleEndian.PutUint16(data[0:2], paramIndex)
	binary.LittleEndian.PutUint32(data[4:8], math.Float32bits(float32(value)))
	return data
}

// WriteRunModeRequest builds the 8-byte Write payload for the special
// single-byte RunMode parameter.
func WriteRunModeRequest(mode RunMode) [8]byte {
	var data [8]byte
	binary.LittleEndian.PutUint16(data[0:2], ParamRunMode)
	data[4] = uint8(mode)
	return data
}

// DecodeParamStrInfo extracts the null-terminated ASCII label carried in a
// ParamStrInfo frame (communication type 19), used by discovery to report a
// human-readable parameter name.
func DecodeParamStrInfo(data [8]byte) string {
	n := 0
	for n < len(data) && data[n] != 0 {
		n++
	}
	return string(data[:n])
}
