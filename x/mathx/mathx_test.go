package mathx

import "testing"

func TestClampBetween(t *testing.T) {
	if got := Clamp(-300, -40, 125); got != -40 {
		t.Fatalf("Clamp low = %d", got)
	}
	if got := Clamp(200, 125, -40); got != 125 {
		t.Fatalf("Clamp swapped = %d", got)
	}
	if !Between[uint8](12, 1, 12) || Between[uint8](13, 12, 1) {
		t.Fatal("Between bounds")
	}
}

