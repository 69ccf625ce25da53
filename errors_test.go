package canservo

import (
	"errors"
	"testing"
)

func TestError_Unwrap(t *testing.T) {
	err := NewError(KindTimeout, "scan_bus", ErrTimeout)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected errors.Is to find wrapped sentinel")
	}
}

func TestError_Message(t *testing.T) {
	err := NewError(KindConfig, "add_actuator", ErrDuplicateActuator)
	if err.Error() == "" {
		t.Fatalf("expected non-empty error message")
	}
}
