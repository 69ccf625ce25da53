package codec

import (
	"encoding/binary"

	canservo "github.com/samsamfire/canservo"
)

// EncodeControl builds the 8-byte payload and data2 context field for a
// Control frame. Every field is normalized from the family's physical range
// to [0, 65535] independently; the caller is expected to have already
// clamped target against configured limits before calling this.
func EncodeControl(family Family, target ControlTarget) (data [8]byte, data2 uint16, ok bool) {
	limits, ok := PhysicalLimitsFor(family)
	if !ok {
		return data, 0, false
	}
	binary.BigEndian.PutUint16(data[0:2], Encode(target.AngleRad, limits.Angle.Min, limits.Angle.Max))
	binary.BigEndian.PutUint16(data[2:4], Encode(target.VelocityRadS, limits.Velocity.Min, limits.Velocity.Max))
	binary.BigEndian.PutUint16(data[4:6], Encode(target.Kp, limits.Kp.Min, limits.Kp.Max))
	binary.BigEndian.PutUint16(data[6:8], Encode(target.Kd, limits.Kd.Min, limits.Kd.Max))
	data2 = Encode(target.TorqueNm, limits.Torque.Min, limits.Torque.Max)
	return data, data2, true
}

// DecodeControl is the inverse of EncodeControl, used by tests to verify the
// frame round-trip property and by any component that must inspect an
// already-encoded Control frame (e.g. a transport-level logger).
func DecodeControl(family Family, data [8]byte, data2 uint16) (ControlTarget, bool) {
	limits, ok := PhysicalLimitsFor(family)
	if !ok {
		return ControlTarget{}, false
	}
	angleRaw := binary.BigEndian.Uint16(data[0:2])
	velRaw := binary.BigEndian.Uint16(data[2:4])
	kpRaw := binary.BigEndian.Uint16(data[4:6])
	kdRaw := binary.BigEndian.Uint16(data[6:8])
	return ControlTarget{
		AngleRad:     Decode(angleRaw, limits.Angle.Min, limits.Angle.Max),
		VelocityRadS: Decode(velRaw, limits.Velocity.Min, limits.Velocity.Max),
		Kp:           Decode(kpRaw, limits.Kp.Min, limits.Kp.Max),
		Kd:           Decode(kdRaw, limits.Kd.Min, limits.Kd.Max),
		TorqueNm:     Decode(data2, limits.Torque.Min, limits.Torque.Max),
	}, true
}

// ControlFrame builds a complete canservo.Frame for transmitting a Control
// command to motorID.
func ControlFrame(motorID uint8, family Family, target ControlTarget) (canservo.Frame, bool) {
	data, data2, ok := EncodeControl(family, target)
	if !ok {
		return canservo.Frame{}, false
	}
	id := canservo.ExtendedID{MotorID: motorID, Data2: data2, CommType: canservo.CommControl}.Pack()
	return canservo.Frame{ID: id, Data: data, DLC: 8}, true
}
