package canservo

import "testing"

func TestExtendedID_PackUnpack(t *testing.T) {
	id := ExtendedID{MotorID: 0x12, Data2: 0x3456, CommType: CommControl}
	packed := id.Pack()
	got := UnpackExtendedID(packed)
	if got != id {
		t.Fatalf("round trip mismatch: want %+v, got %+v", id, got)
	}
}

func TestUnpackExtendedID_MasksTo29Bits(t *testing.T) {
	got := UnpackExtendedID(0xFFFF_FFFF)
	if got.CommType != CommType(0x1F) {
		t.Fatalf("expected comm type masked to 5 bits, got %v", got.CommType)
	}
}

func TestCommType_String(t *testing.T) {
	if CommControl.String() != "Control" {
		t.Fatalf("unexpected string for CommControl: %s", CommControl.String())
	}
	if CommType(99).String() == "" {
		t.Fatalf("unknown comm type should still stringify")
	}
}
