package codec

import "encoding/binary"

// fault bit positions within data2, matching the firmware's own
// FeedbackFrame encode/decode (see DESIGN.md for the one bit-layout
// ambiguity this resolves and why).
const (
	feedbackFaultUncalibratedBit = 13
	feedbackFaultHallBit         = 12
	feedbackFaultMagneticBit     = 11
	feedbackFaultOverTempBit     = 10
	feedbackFaultOvercurrentBit  = 9
	feedbackFaultUndervoltageBit = 8
	feedbackModeShift            = 14
)

// DecodeFeedback decodes an 8-byte Feedback payload plus its data2 context
// field into physical units.
func DecodeFeedback(family Family, data [8]byte, data2 uint16) (Feedback, bool) {
	limits, ok := PhysicalLimitsFor(family)
	if !ok {
		return Feedback{}, false
	}
	angleRaw := binary.BigEndian.Uint16(data[0:2])
	velRaw := binary.BigEndian.Uint16(data[2:4])
	torqueRaw := binary.BigEndian.Uint16(data[4:6])
	tempRaw := binary.BigEndian.Uint16(data[6:8])

	fb := Feedback{
		MotorID:      uint8(data2 & 0xFF),
		AngleRad:     Decode(angleRaw, limits.Angle.Min, limits.Angle.Max),
		VelocityRadS: Decode(velRaw, limits.Velocity.Min, limits.Velocity.Max),
		TorqueNm:     Decode(torqueRaw, limits.Torque.Min, limits.Torque.Max),
		TemperatureC: float64(tempRaw) / 10.0,
		Mode:         RunMode((data2 >> feedbackModeShift) & 0x3),
		Faults: FeedbackFaults{
			Uncalibrated: data2&(1<<feedbackFaultUncalibratedBit) != 0,
			Hall:         data2&(1<<feedbackFaultHallBit) != 0,
			Magnetic:     data2&(1<<feedbackFaultMagneticBit) != 0,
			OverTemp:     data2&(1<<feedbackFaultOverTempBit) != 0,
			Overcurrent:  data2&(1<<feedbackFaultOvercurrentBit) != 0,
			Undervoltage: data2&(1<<feedbackFaultUndervoltageBit) != 0,
		},
	}
	return fb, true
}

// EncodeFeedback is the inverse of DecodeFeedback. It exists primarily so
// the Stub transport and tests can synthesize realistic Feedback frames.
func EncodeFeedback(family Family, fb Feedback) (data [8]byte, data2 uint16, ok bool) {
	limits, ok := PhysicalLimitsFor(family)
	if !ok {
		return data, 0, false
	}
	binary.BigEndian.PutUint16(data[0:2], Encode(fb.AngleRad, limits.Angle.Min, limits.Angle.Max))
	binary.BigEndian.PutUint16(data[2:4], Encode(fb.VelocityRadS, limits.Velocity.Min, limits.Velocity.Max))
	binary.BigEndian.PutUint16(data[4:6], Encode(fb.TorqueNm, limits.Torque.Min, limits.Torque.Max))
	binary.BigEndian.PutUint16(data[6:8], uint16(fb.TemperatureC*10.0))

	data2 = uint16(fb.MotorID)
	if fb.Faults.Uncalibrated {
		data2 |= 1 << feedbackFaultUncalibratedBit
	}
	if fb.Faults.Hall {
		data2 |= 1 << feedbackFaultHallBit
	}
	if fb.Faults.Magnetic {
		data2 |= 1 << feedbackFaultMagneticBit
	}
	if fb.Faults.OverTemp {
		data2 |= 1 << feedbackFaultOverTempBit
	}
	if fb.Faults.Overcurrent {
		data2 |= 1 << feedbackFaultOvercurrentBit
	}
	if fb.Faults.Undervoltage {
		data2 |= 1 << feedbackFaultUndervoltageBit
	}
	data2 |= uint16(fb.Mode) << feedbackModeShift
	return data, data2, true
}
