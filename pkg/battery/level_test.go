package battery

import (
	"math"
	"testing"
)

func TestReconcileLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{in: "0", want: 0, wantOK: true},
		{in: "77", want: 77, wantOK: true},
		{in: "100", want: 100, wantOK: true},
		{in: "150", want: 100, wantOK: true},
		{in: "-5", want: 0, wantOK: true},
		{in: " 42 ", want: 42, wantOK: true},
		{in: "30.4", want: 30, wantOK: true},
		{in: "30.6", want: 31, wantOK: true},
		{in: "1e2", want: 100, wantOK: true},
		{in: "abc", wantOK: false},
		{in: "", wantOK: false},
		{in: "NaN", wantOK: false},
		{in: "Inf", wantOK: false},
		{in: "-Inf", wantOK: false},
		{in: "12%", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ReconcileLevel(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ReconcileLevel(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ReconcileLevel(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestReconcileLevelIdempotent(t *testing.T) {
	for _, in := range []string{"-5", "0", "33", "99.5", "150"} {
		first, _ := ReconcileLevel(in)
		second, ok := ClampLevel(float64(first))
		if !ok || second != first {
			t.Errorf("ReconcileLevel(%q) = %d, reconciled again = %d", in, first, second)
		}
	}
}

func TestClampLevelRejectsNonFinite(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, ok := ClampLevel(f); ok {
			t.Errorf("ClampLevel(%v) accepted", f)
		}
	}
}

func TestFillPercent(t *testing.T) {
	tests := []struct {
		level int
		want  float64
	}{
		{level: 0, want: 4.5},
		{level: 50, want: 39.5},
		{level: 100, want: 74.5},
	}
	for _, tt := range tests {
		if got := FillPercent(tt.level); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("FillPercent(%d) = %v, want %v", tt.level, got, tt.want)
		}
	}
}
