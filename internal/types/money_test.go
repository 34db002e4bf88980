package types

import "testing"

func TestMoneyPerKm(t *testing.T) {
	cases := []struct {
		rate   Money
		metres int64
		want   Money
	}{
		{50, 5000, 250},  // 0.50/km over 5 km
		{25, 800, 20},    // 0.25/km over 0.8 km
		{25, 700, 18},    // 17.5 rounds half-up to 18
		{25, 660, 17},    // 16.5 rounds half-up to 17
		{0, 5000, 0},
		{50, 0, 0},
	}
	for _, tc := range cases {
		if got := tc.rate.PerKm(tc.metres); got != tc.want {
			t.Errorf("Money(%d).PerKm(%d) = %d, want %d", tc.rate, tc.metres, got, tc.want)
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		in   Money
		want string
	}{
		{0, "0.00"},
		{350, "3.50"},
		{1000, "10.00"},
		{-25, "-0.25"},
		{5, "0.05"},
	}
	for _, tc := range cases {
		if got := tc.in.String(); got != tc.want {
			t.Errorf("Money(%d).String() = %q, want %q", tc.in, got, tc.want)
		}
	}
}
