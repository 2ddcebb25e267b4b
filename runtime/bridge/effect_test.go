package bridge

import "testing"

func TestEffectRunsOnlyWhenDependenciesChange(t *testing.T) {
	var effect Effect
	calls := 0
	trigger := func() { calls++ }

	if !effect.Run(trigger, 0, 10) {
		t.Fatal("first run must fire")
	}
	if effect.Run(trigger, 0, 10) {
		t.Fatal("unchanged dependencies must not fire")
	}
	if !effect.Run(trigger, 1, 10) {
		t.Fatal("page change must fire")
	}
	effect.Invalidate()
	if !effect.Run(trigger, 1, 10) {
		t.Fatal("invalidated effect must fire")
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestEffectComparesStructuredDependencies(t *testing.T) {
	var effect Effect
	calls := 0
	filter := []string{"pending"}
	effect.Run(func() { calls++ }, filter)
	effect.Run(func() { calls++ }, []string{"pending"})
	if calls != 1 {
		t.Fatalf("expected equal slices to be treated as unchanged, got %d calls", calls)
	}
}
