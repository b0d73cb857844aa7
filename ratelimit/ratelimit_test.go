package ratelimit

import "testing"

func TestAllowSeparatesBoxesAndClasses(t *testing.T) {
	l := New(Config{ProgressPerMin: 60, OtherPerMin: 60})

	for i := 0; i < 10; i++ {
		if !l.Allow(1, ClassProgress) {
			t.Fatalf("expected burst allowance on box 1 progress, failed at i=%d", i)
		}
	}
	if !l.Allow(2, ClassProgress) {
		t.Fatalf("expected box 2 to have its own independent limiter")
	}
	if !l.Allow(1, ClassOther) {
		t.Fatalf("expected ClassOther to have its own independent limiter on box 1")
	}
}

func TestAllowExhaustsBurst(t *testing.T) {
	l := New(Config{ProgressPerMin: 0, OtherPerMin: 0})
	if l.Allow(1, ClassOther) {
		// burst may allow a handful even at zero rate; drain it.
		for i := 0; i < 20 && l.Allow(1, ClassOther); i++ {
		}
	}
	if l.Allow(1, ClassOther) {
		t.Fatalf("expected zero-rate limiter to eventually reject")
	}
}
