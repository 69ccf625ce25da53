// Package canservo is a host-side controller for a fleet of CAN-bus servo
// actuators. It owns one or more Transports, discovers configured motors,
// and at a fixed cadence synthesizes control frames from the latest target
// state while decoding and storing feedback. See pkg/supervisor for the
// concurrent control loop and pkg/codec for the wire contract.
package canservo

import "fmt"

// CommType is the 5-bit communication type field of the extended CAN
// identifier (bits 24..28).
type CommType uint8

const (
	CommObtainID      CommType = 0
	CommControl       CommType = 1
	CommFeedback      CommType = 2
	CommEnable        CommType = 3
	CommStop          CommType = 4
	CommSetZero       CommType = 6
	CommSetID         CommType = 7
	CommRead          CommType = 17
	CommWrite         CommType = 18
	CommParamStrInfo  CommType = 19
	CommFault         CommType = 21
)

var commTypeNames = map[CommType]string{
	CommObtainID:     "ObtainID",
	CommControl:      "Control",
	CommFeedback:     "Feedback",
	CommEnable:       "Enable",
	CommStop:         "Stop",
	CommSetZero:      "SetZero",
	CommSetID:        "SetID",
	CommRead:         "Read",
	CommWrite:        "Write",
	CommParamStrInfo: "ParamStrInfo",
	CommFault:        "Fault",
}

func (c CommType) String() string {
	if name, ok := commTypeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CommType(%d)", uint8(c))
}

// Frame is a single CAN frame as exchanged with a Transport: a 29-bit
// identifier and up to 8 payload bytes.
type Frame struct {
	ID   uint32
	Data [8]byte
	DLC  uint8
}

// NewFrame builds a Frame with the given payload length.
func NewFrame(id uint32, dlc uint8) Frame {
	return Frame{ID: id, DLC: dlc}
}

// ExtendedID packs the three fields the wire protocol carries in every
// 29-bit CAN identifier: the 8-bit motor id, the 16-bit context field
// (data2, meaning depends on comm type), and the 5-bit communication type.
type ExtendedID struct {
	MotorID  uint8
	Data2    uint16
	CommType CommType
}

// Pack encodes the identifier into its 29-bit wire form.
func (e ExtendedID) Pack() uint32 {
	return uint32(e.MotorID) | uint32(e.Data2)<<8 | uint32(e.CommType)<<24
}

// UnpackExtendedID is the inverse of ExtendedID.Pack; it ignores any bits
// above bit 28 (the 29-bit identifier space).
func UnpackExtendedID(id uint32) ExtendedID {
	id &= 0x1FFF_FFFF
	return ExtendedID{
		MotorID:  uint8(id & 0xFF),
		Data2:    uint16((id >> 8) & 0xFFFF),
		CommType: CommType((id >> 24) & 0x1F),
	}
}
