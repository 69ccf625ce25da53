package codec

// ControlTarget is a commanded set-point in physical units, as accepted by
// the public API's command/configure operations.
type ControlTarget struct {
	AngleRad     float64
	VelocityRadS float64
	Kp           float64
	Kd           float64
	TorqueNm     float64
}

// RunMode is the 2-bit operating mode carried in every Feedback frame.
type RunMode uint8

const (
	ModeReset RunMode = iota
	ModeCalibration
	ModeRun
)

func (m RunMode) String() string {
	switch m {
	case ModeReset:
		return "Reset"
	case ModeCalibration:
		return "Calibration"
	case ModeRun:
		return "Run"
	default:
		return "Unknown"
	}
}

// FeedbackFaults are the six fault bits carried in a Feedback frame's data2
// field, distinct from the richer Fault frame (fault.go).
type FeedbackFaults struct {
	Uncalibrated bool
	Hall         bool
	Magnetic     bool
	OverTemp     bool
	Overcurrent  bool
	Undervoltage bool
}

// Any reports whether at least one fault bit is set.
func (f FeedbackFaults) Any() bool {
	return f.Uncalibrated || f.Hall || f.Magnetic || f.OverTemp || f.Overcurrent || f.Undervoltage
}

// Feedback is a decoded Feedback frame in physical units.
type Feedback struct {
	MotorID      uint8
	AngleRad     float64
	VelocityRadS float64
	TorqueNm     float64
	TemperatureC float64
	Mode         RunMode
	Faults       FeedbackFaults
}
