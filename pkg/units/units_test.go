package units

import (
	"math"
	"testing"
)

func TestTonHaPerGM2(t *testing.T) {
	// g m-2 to ton ha-1 is exactly a factor of 0.01.
	if TonHaPerGM2 != 0.01 {
		t.Fatalf("TonHaPerGM2 = %v, want 0.01", TonHaPerGM2)
	}
}

func TestMassFactor(t *testing.T) {
	cases := []struct {
		molarMass float64
		toTonHa   bool
		want      float64
	}{
		{44.01, false, 44.01},
		{44.01, true, 0.4401},
		{100.089, true, 1.00089},
	}
	for _, tc := range cases {
		got := MassFactor(tc.molarMass, tc.toTonHa)
		if math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("MassFactor(%v, %v) = %v, want %v", tc.molarMass, tc.toTonHa, got, tc.want)
		}
	}
}

func TestInvMassFactorRoundTrip(t *testing.T) {
	for _, mm := range []float64{44.01, 88.02, 120.496} {
		for _, toTonHa := range []bool{false, true} {
			round := 3.7 * MassFactor(mm, toTonHa) * InvMassFactor(mm, toTonHa)
			if math.Abs(round-3.7) > 1e-12 {
				t.Fatalf("round trip (%v, %v) = %v", mm, toTonHa, round)
			}
		}
	}
}

func TestLabels(t *testing.T) {
	if RateLabel(true) != "ton ha-1 yr-1" || RateLabel(false) != "g m-2 yr-1" {
		t.Fatalf("unexpected rate labels %q %q", RateLabel(true), RateLabel(false))
	}
	if IntegralLabel(true) != "ton ha-1" || IntegralLabel(false) != "g m-2" {
		t.Fatalf("unexpected integral labels %q %q", IntegralLabel(true), IntegralLabel(false))
	}
}
