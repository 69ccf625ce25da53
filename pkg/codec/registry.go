package codec

import canservo "github.com/samsamfire/canservo"

// Registry is the lookup surface the supervisor and actuator layers use to
// turn physical-unit values into frames and back, without switching on
// Family themselves: a lookup from motor family to its normalization table,
// Control-frame encoder and Feedback decoder. The family-independent
// frames (Read/Write, admin, Fault) are built and parsed by package-level
// functions, not through the Registry.
type Registry struct {
	families map[Family]PhysicalLimits
}

// NewRegistry builds a Registry over the built-in family table. It never
// fails: the built-in table covers every Family constant.
func NewRegistry() *Registry {
	r := &Registry{families: make(map[Family]PhysicalLimits, len(familyTable))}
	for f, limits := range familyTable {
		r.families[f] = limits
	}
	return r
}

// Families lists every family this registry knows about.
func (r *Registry) Families() []Family {
	out := make([]Family, 0, len(r.families))
	for f := range r.families {
		out = append(out, f)
	}
	return out
}

// Limits returns the physical-unit normalization table for f.
func (r *Registry) Limits(f Family) (PhysicalLimits, bool) {
	limits, ok := r.families[f]
	return limits, ok
}

// EncodeControl builds a Control frame for motorID using f's normalization
// table.
func (r *Registry) EncodeControl(motorID uint8, f Family, target ControlTarget) (canservo.Frame, bool) {
	if _, ok := r.families[f]; !ok {
		return canservo.Frame{}, false
	}
	return ControlFrame(motorID, f, target)
}

// DecodeFeedback decodes a Feedback frame's payload using f's normalization
// table.
func (r *Registry) DecodeFeedback(f Family, data [8]byte, data2 uint16) (Feedback, bool) {
	if _, ok := r.families[f]; !ok {
		return Feedback{}, false
	}
	return DecodeFeedback(f, data, data2)
}

// ClampTarget saturates every field of target against the given limits (f
// is not consulted), independent of the wire-level normalization range:
// configured limits are enforced before a target is encoded, and may be
// tighter than the family's wire range.
func (r *Registry) ClampTarget(f Family, target ControlTarget, limits PhysicalLimits) ControlTarget {
	return ControlTarget{
		AngleRad:     limits.Angle.Clamp(target.AngleRad),
		VelocityRadS: limits.Velocity.Clamp(target.VelocityRadS),
		Kp:           limits.Kp.Clamp(target.Kp),
		Kd:           limits.Kd.Clamp(target.Kd),
		TorqueNm:     limits.Torque.Clamp(target.TorqueNm),
	}
}
