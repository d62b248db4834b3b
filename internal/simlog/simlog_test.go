package simlog

import "testing"

func TestScopeFilter_AllowsEverythingWhenIncludedIsEmpty(t *testing.T) {
	f := NewScopeFilter(nil, nil)
	if !f.allows("r1") {
		t.Error("expected an empty filter to allow any scope")
	}
}

func TestScopeFilter_IncludedRestrictsToNamedScopes(t *testing.T) {
	f := NewScopeFilter([]string{"r1"}, nil)
	if !f.allows("r1") {
		t.Error("expected r1 to be allowed")
	}
	if f.allows("r2") {
		t.Error("expected r2 to be excluded when included is non-empty")
	}
	if !f.allows("simulator") {
		t.Error("expected the simulator scope to always be allowed alongside an included list")
	}
}

func TestScopeFilter_ExcludedAlwaysWins(t *testing.T) {
	f := NewScopeFilter([]string{"r1"}, []string{"r1"})
	if f.allows("r1") {
		t.Error("expected excluded to take priority over included")
	}
}

type fakeClock struct{ now float64 }

func (c fakeClock) Now() float64 { return c.now }

func TestScopeHook_BlanksMessageForFilteredScope(t *testing.T) {
	hook := NewScopeHook(fakeClock{now: 1.5}, NewScopeFilter([]string{"r1"}, nil))
	entry := WithScope("r2")
	entry.Message = "should be dropped"
	if err := hook.Fire(entry); err != nil {
		t.Fatalf("Fire: %v", err)
	}
	if entry.Message != "" {
		t.Errorf("Message = %q, want blanked for a filtered scope", entry.Message)
	}
}
