package quota

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestToAmount(t *testing.T) {
	tests := []struct {
		quota int64
		want  string
	}{
		{500000, "1"},
		{250000, "0.5"},
		{0, "0"},
		{1, "0.000002"},
		{123456789, "246.913578"},
	}
	for _, tt := range tests {
		if got := ToAmount(tt.quota).Round(6).String(); got != tt.want {
			t.Errorf("ToAmount(%d) = %s, want %s", tt.quota, got, tt.want)
		}
	}
}

func TestFromAmount(t *testing.T) {
	amount := decimal.NewFromFloat(1.5)
	if got := FromAmount(amount); got != 750000 {
		t.Errorf("FromAmount(1.5) = %d, want 750000", got)
	}
	// 向下取整
	tiny := decimal.NewFromFloat(0.0000001)
	if got := FromAmount(tiny); got != 0 {
		t.Errorf("FromAmount(0.0000001) = %d, want 0", got)
	}
}

func TestRender(t *testing.T) {
	if got := Render(500000, false); got != "500000" {
		t.Errorf("Render raw = %q, want %q", got, "500000")
	}
	if got := Render(750000, true); got != "$1.5" {
		t.Errorf("Render currency = %q, want %q", got, "$1.5")
	}
}

func TestRoundTrip(t *testing.T) {
	for _, quota := range []int64{0, 500000, 1234500000} {
		if got := FromAmount(ToAmount(quota)); got != quota {
			t.Errorf("round trip of %d = %d", quota, got)
		}
	}
}
