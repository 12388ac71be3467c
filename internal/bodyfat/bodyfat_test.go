package bodyfat_test

import (
	"math"
	"testing"

	"bodycomp/internal/bodyfat"
	"bodycomp/internal/domain"
)

func TestThreeSite_MaleReference(t *testing.T) {
	s, age := 10.0+12.0+14.0, 25.0
	wantBD := 1.10938 - 0.0008267*s + 0.0000016*s*s - 0.0002574*age
	want := 495/wantBD - 450

	if got := bodyfat.ThreeSiteDensity(10, 12, 14, 25, domain.SexMale); got != wantBD {
		t.Fatalf("density = %v; want %v", got, wantBD)
	}
	got := bodyfat.ThreeSite(10, 12, 14, 25, domain.SexMale)
	if got != want {
		t.Fatalf("ThreeSite = %v; want %v", got, want)
	}
	if math.Abs(got-10.3549) > 0.001 {
		t.Fatalf("ThreeSite = %v; want ~10.35", got)
	}
}

func TestThreeSite_Female(t *testing.T) {
	s, age := 60.0, 30.0
	wantBD := 1.0994921 - 0.0009929*s + 0.0000023*s*s - 0.0001392*age
	got := bodyfat.ThreeSite(20, 20, 20, 30, domain.SexFemale)
	if got != 495/wantBD-450 {
		t.Fatalf("ThreeSite = %v; want %v", got, 495/wantBD-450)
	}
	if math.Abs(got-24.1279) > 0.001 {
		t.Fatalf("ThreeSite = %v; want ~24.13", got)
	}
}

func TestSevenSite(t *testing.T) {
	tests := []struct {
		name string
		sex  domain.Sex
		bd   func(s, age float64) float64
	}{
		{"male", domain.SexMale, func(s, age float64) float64 {
			return 1.112 - 0.00043499*s + 0.00000055*s*s - 0.00028826*age
		}},
		{"female", domain.SexFemale, func(s, age float64) float64 {
			return 1.0970 - 0.00046971*s + 0.00000056*s*s - 0.00012828*age
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := bodyfat.SevenSite(8, 9, 10, 11, 12, 13, 14, 40, tc.sex)
			want := 495/tc.bd(77, 40) - 450
			if got != want {
				t.Fatalf("SevenSite = %v; want %v", got, want)
			}
			if !bodyfat.Valid(got) {
				t.Fatalf("expected a valid percentage, got %v", got)
			}
		})
	}
}

func TestDeterministic(t *testing.T) {
	a := bodyfat.SevenSite(12.5, 9.1, 14.2, 16.8, 22.4, 18.3, 15.0, 37, domain.SexMale)
	for i := 0; i < 100; i++ {
		b := bodyfat.SevenSite(12.5, 9.1, 14.2, 16.8, 22.4, 18.3, 15.0, 37, domain.SexMale)
		if math.Float64bits(a) != math.Float64bits(b) {
			t.Fatalf("run %d: %v != %v", i, a, b)
		}
	}
}

func TestNonPositiveDensity(t *testing.T) {
	bd := bodyfat.SevenSiteDensity(10, 10, 10, 10, 10, 10, 10, 5000, domain.SexMale)
	if bd > 0 {
		t.Fatalf("expected non-positive density, got %v", bd)
	}
	if pct := bodyfat.Siri(bd); bodyfat.Valid(pct) {
		t.Fatalf("expected invalid percentage, got %v", pct)
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		pct  float64
		want bool
	}{
		{12.3, true},
		{0.001, true},
		{0, false},
		{-4, false},
		{100, false},
		{math.NaN(), false},
		{math.Inf(1), false},
		{math.Inf(-1), false},
	}
	for _, tc := range tests {
		if got := bodyfat.Valid(tc.pct); got != tc.want {
			t.Errorf("Valid(%v) = %v; want %v", tc.pct, got, tc.want)
		}
	}
	if bodyfat.Valid(bodyfat.Siri(0)) {
		t.Error("Siri(0) must not be valid")
	}
}
