package cluster

import "testing"

// S5 Multi-proxy election.
func TestElectMultiProxy(t *testing.T) {
	eligible := []string{"A", "B", "C"}

	live := map[string]struct{}{"B": {}, "C": {}}
	if got := Elect(eligible, live); got != "B" {
		t.Fatalf("expected B, got %q", got)
	}
	if !IsMaster("B", eligible, live) {
		t.Fatal("expected B to consider itself master")
	}
	if IsMaster("C", eligible, live) {
		t.Fatal("expected C not to consider itself master while B is live")
	}

	// B shuts down.
	live = map[string]struct{}{"C": {}}
	if got := Elect(eligible, live); got != "C" {
		t.Fatalf("expected C, got %q", got)
	}
	if !IsMaster("C", eligible, live) {
		t.Fatal("expected C to consider itself master after B left")
	}
}

func TestElectNoLivePeer(t *testing.T) {
	if got := Elect([]string{"A", "B"}, map[string]struct{}{}); got != "" {
		t.Fatalf("expected no master, got %q", got)
	}
}
