package core

import (
	"math"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		ok  bool
	}{
		{"1", 1, true},
		{"1500", 1500, true},
		{"1.0", 1, true},
		{"1.23", 1.23, true},
		{"1,23", 1.23, true},
		{"0.01", 0.01, true},
		{".5", 0.5, true},
		{" 2.50 ", 2.5, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"0.00", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{".", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestValidateAmount(t *testing.T) {
	if err := ValidateAmount(0.01); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	for _, v := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		if err := ValidateAmount(v); err == nil {
			t.Fatalf("expected error for %v", v)
		}
	}
}

func TestSumAmountsIsExact(t *testing.T) {
	if got := SumAmounts(0.1, 0.2); got != 0.3 {
		t.Fatalf("expected 0.3, got %v", got)
	}
	if got := SumAmounts(); got != 0 {
		t.Fatalf("empty sum should be 0, got %v", got)
	}
	if got := Difference(1000, 0.1+0.2); got != 999.7 {
		t.Fatalf("expected 999.7, got %v", got)
	}
}
