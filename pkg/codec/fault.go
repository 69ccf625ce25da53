package codec

import "encoding/binary"

// Fault bit positions within the little-endian fault_flags word of a Fault
// frame.
const (
	FaultMotorOverTemp        = 0
	FaultDriverChip           = 1
	FaultUndervoltage         = 2
	FaultOvervoltage          = 3
	FaultEncoderUncalibrated  = 7
	FaultPhaseBOvercurrent    = 11
	FaultPhaseCOvercurrent    = 12
	FaultPhaseAOvercurrent    = 13
	FaultOverload             = 14
	WarningMotorOverTempBit   = 0
)

// FaultFrame is a decoded Fault feedback frame (communication type 21).
type FaultFrame struct {
	MotorOverTemp       bool
	DriverChip          bool
	Undervoltage        bool
	Overvoltage         bool
	EncoderUncalibrated bool
	PhaseBOvercurrent   bool
	PhaseCOvercurrent   bool
	PhaseAOvercurrent   bool
	Overload            bool
	OverTempWarning     bool
}

// DecodeFault decodes the 8-byte Fault payload: a little-endian u32 of
// fault flags followed by a little-endian u32 of warning flags.
func DecodeFault(data [8]byte) FaultFrame {
	faultFlags := binary.LittleEndian.Uint32(data[0:4])
	warningFlags := binary.LittleEndian.Uint32(data[4:8])
	return FaultFrame{
		MotorOverTemp:       faultFlags&(1<<FaultMotorOverTemp) != 0,
		DriverChip:          faultFlags&(1<<FaultDriverChip) != 0,
		Undervoltage:        faultFlags&(1<<FaultUndervoltage) != 0,
		Overvoltage:         faultFlags&(1<<FaultOvervoltage) != 0,
		EncoderUncalibrated: faultFlags&(1<<FaultEncoderUncalibrated) != 0,
		PhaseBOvercurrent:   faultFlags&(1<<FaultPhaseBOvercurrent) != 0,
		PhaseCOvercurrent:   faultFlags&(1<<FaultPhaseCOvercurrent) != 0,
		PhaseAOvercurrent:   faultFlags&(1<<FaultPhaseAOvercurrent) != 0,
		Overload:            faultFlags&(1<<FaultOverload) != 0,
		OverTempWarning:     warningFlags&(1<<WarningMotorOverTempBit) != 0,
	}
}

// Any reports whether any fault bit (not counting warnings) is set.
func (f FaultFrame) Any() bool {
	return f.MotorOverTemp || f.DriverChip || f.Undervoltage || f.Overvoltage ||
		f.EncoderUncalibrated || f.PhaseBOvercurrent || f.PhaseCOvercurrent ||
		f.PhaseAOvercurrent || f.Overload
}

// EncodeFault is the inverse of DecodeFault, used by the Stub transport and
// tests to synthesize fault frames.
func EncodeFault(f FaultFrame) [8]byte {
	var data [8]byte
	var faultFlags, warningFlags uint32
	if f.MotorOverTemp {
		faultFlags |= 1 << FaultMotorOverTemp
	}
	if f.DriverChip {
		faultFlags |= 1 << FaultDriverChip
	}
	if f.Undervoltage {
		faultFlags |= 1 << FaultUndervoltage
	}
	if f.Overvoltage {
		faultFlags |= 1 << FaultOvervoltage
	}
	if f.EncoderUncalibrated {
		faultFlags |= 1 << FaultEncoderUncalibrated
	}
	if f.PhaseBOvercurrent {
		faultFlags |= 1 << FaultPhaseBOvercurrent
	}
	if f.PhaseCOvercurrent {
		faultFlags |= 1 << FaultPhaseCOvercurrent
	}
	if f.PhaseAOvercurrent {
		faultFlags |= 1 << FaultPhaseAOvercurrent
	}
	if f.Overload {
		faultFlags |= 1 << FaultOverload
	}
	if f.OverTempWarning {
		warningFlags |= 1 << WarningMotorOverTempBit
	}
	binary.LittleEndian.PutUint32(data[0:4], faultFlags)
	binary.LittleEndian.PutUint32(data[4:8], warningFlags)
	return data
}
