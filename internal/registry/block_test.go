package registry

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestBlock_SetPowerClamps(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{-5, 0},
		{0, 0},
		{7, 7},
		{15, 15},
		{99, 15},
	}

	for _, tt := range tests {
		b := NewBlock(uuid.New(), "lamp", false, 3)
		b.SetPower(tt.in)
		if b.Power() != tt.want {
			t.Errorf("SetPower(%d) -> %d, want %d", tt.in, b.Power(), tt.want)
		}
	}
}

func TestBlock_SettersReportChange(t *testing.T) {
	b := NewBlock(uuid.New(), "lamp", false, 0)

	if b.SetPowered(false) {
		t.Error("SetPowered(false) on an unpowered block should report no change")
	}
	if !b.SetPowered(true) {
		t.Error("SetPowered(true) should report a change")
	}
	if !b.SetPower(4) {
		t.Error("SetPower(4) should report a change")
	}
	if b.SetPower(4) {
		t.Error("SetPower(4) twice should report no change")
	}
	b.SetPower(40)
	if b.SetPower(15) {
		t.Error("SetPower(15) after a clamped SetPower(40) should report no change")
	}
	if b.SetName("  lamp ") {
		t.Error("SetName with only surrounding whitespace should report no change")
	}
	if !b.SetName("door") {
		t.Error("SetName(door) should report a change")
	}
}

func TestNormalizeName(t *testing.T) {
	long := "  " + strings.Repeat("a", 60) + "   " + strings.Repeat("b", 35)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Piston", "Piston"},
		{"trimmed", "  Piston \t", "Piston"},
		{"truncated then trimmed", long, strings.Repeat("a", 60)},
		{"hundred chars", strings.Repeat("x", 100), strings.Repeat("x", 64)},
		{"multibyte", strings.Repeat("é", 70), strings.Repeat("é", 64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeName(tt.in); got != tt.want {
				t.Errorf("NormalizeName() = %q, want %q", got, tt.want)
			}
		})
	}
}
