// Package codec implements the per-family wire contract: encoding of
// Control frames, decoding of Feedback/Fault frames, and the parameter
// Read/Write/Enable/Stop/SetZero/SetID frame layouts. The normalization
// table mirrors the firmware's own per-family config, with the angle range
// corrected to ±4π to match what the hardware actually reports at full
// travel.
package codec

import "math"

// Family identifies one of the small closed set of supported motor models.
type Family uint8

const (
	F00 Family = iota
	F01
	F02
	F03
	F04
)

var familyNames = map[Family]string{
	F00: "F00",
	F01: "F01",
	F02: "F02",
	F03: "F03",
	F04: "F04",
}

func (f Family) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}
	return "unknown"
}

// ParseFamily looks up a Family by its canonical string name.
func ParseFamily(s string) (Family, bool) {
	for f, name := range familyNames {
		if name == s {
			return f, true
		}
	}
	return 0, false
}

// Limits holds the physical-unit normalization range for one field.
type Limits struct {
	Min, Max float64
}

// Clamp saturates x to [l.Min, l.Max].
func (l Limits) Clamp(x float64) float64 {
	if x < l.Min {
		return l.Min
	}
	if x > l.Max {
		return l.Max
	}
	return x
}

// PhysicalLimits is the static, per-family table of physical-unit ranges
// used for every normalized wire conversion. This table is the single
// source of truth for physical-unit conversions.
//
// Kp/Kd carry a symmetric wire range (-max..max) even though a commanded
// gain is never negative in practice: a zero-valued Control frame (angle =
// velocity = kp = kd = torque = 0) must encode every field to the same wire
// mid-point 0x8000, which only holds if every field's normalization range
// is symmetric about zero. The actuator layer still clamps negative gains to
// zero before a target ever reaches this codec.
type PhysicalLimits struct {
	Angle    Limits
	Velocity Limits
	Torque   Limits
	Kp       Limits
	Kd       Limits
}

var fourPi = 4 * math.Pi

// familyTable is keyed by Family; a new family is just a table entry, not a
// new type in an inheritance hierarchy.
var familyTable = map[Family]PhysicalLimits{
	F00: {
		Angle:    Limits{-fourPi, fourPi},
		Velocity: Limits{-33, 33},
		Torque:   Limits{-14, 14},
		Kp:       Limits{-500, 500},
		Kd:       Limits{-5, 5},
	},
	F01: {
		Angle:    Limits{-fourPi, fourPi},
		Velocity: Limits{-44, 44},
		Torque:   Limits{-12, 12},
		Kp:       Limits{-500, 500},
		Kd:       Limits{-5, 5},
	},
	F02: {
		Angle:    Limits{-fourPi, fourPi},
		Velocity: Limits{-44, 44},
		Torque:   Limits{-12, 12},
		Kp:       Limits{-500, 500},
		Kd:       Limits{-5, 5},
	},
	F03: {
		Angle:    Limits{-fourPi, fourPi},
		Velocity: Limits{-20, 20},
		Torque:   Limits{-60, 60},
		Kp:       Limits{-5000, 5000},
		Kd:       Limits{-100, 100},
	},
	F04: {
		Angle:    Limits{-fourPi, fourPi},
		Velocity: Limits{-15, 15},
		Torque:   Limits{-120, 120},
		Kp:       Limits{-5000, 5000},
		Kd:       Limits{-100, 100},
	},
}

// PhysicalLimitsFor returns the static normalization table for a family.
// The second return value is false for an unrecognized family.
func PhysicalLimitsFor(f Family) (PhysicalLimits, bool) {
	limits, ok := familyTable[f]
	return limits, ok
}
