package accumulator

import (
	"testing"
	"time"
)

func TestBackoff_Next(t *testing.T) {
	b := newBackoff(100*time.Millisecond, 400*time.Millisecond)

	wantBase := []time.Duration{100, 200, 400, 400}
	for i, base := range wantBase {
		base *= time.Millisecond
		d := b.Next()
		lo := time.Duration(float64(base) * 0.8)
		hi := time.Duration(float64(base) * 1.2)
		if d < lo || d > hi {
			t.Errorf("Next() #%d = %v, want within [%v, %v]", i, d, lo, hi)
		}
	}
	if b.Current() != 400*time.Millisecond {
		t.Errorf("Current() = %v, want cap", b.Current())
	}

	b.Reset()
	if b.Current() != 100*time.Millisecond {
		t.Errorf("Current() after Reset = %v", b.Current())
	}
}
