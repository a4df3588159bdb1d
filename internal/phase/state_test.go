package phase

import "testing"

func TestStateFlags(t *testing.T) {
	cases := []struct {
		s    State
		flag Flag
		want bool
	}{
		{COMPLETED, Terminal, true},
		{COMPLETED, NonSuccess, false},
		{FAILED, NonSuccess, true},
		{FAILED, Success, false},
		{RUNNING, Executing, false},
		{STARTED, Executing, true},
		{WAITING, Waiting, true},
		{STARTED, Waiting, false},
	}
	for _, c := range cases {
		if got := c.s.Has(c.flag); got != c.want {
			t.Errorf("%s.Has(%v) = %v, want %v", c.s, c.flag, got, c.want)
		}
	}
}

func TestIsWaitingExcludesExecuting(t *testing.T) {
	if !WAITING.IsWaiting() {
		t.Errorf("WAITING should be waiting")
	}
	if STARTED.IsWaiting() {
		t.Errorf("STARTED should not be waiting")
	}
}
