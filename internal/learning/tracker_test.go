package learning

import (
	"sync"
	"testing"
	"time"

	"github.com/jzielinski/invoicescan/constants"
	"github.com/jzielinski/invoicescan/internal/keyword"
)

func TestStat_Transitions(t *testing.T) {
	now := time.Now()
	s := NewStat("acme", "do zapłaty", constants.FieldAmount, now)
	if s.State != constants.StatCandidate {
		t.Fatalf("new stat should be candidate, got %s", s.State)
	}

	// hits=2, misses=0 -> still candidate
	s = s.WithHit(now).WithHit(now)
	if s.State != constants.StatCandidate {
		t.Errorf("two hits should stay candidate, got %s", s.State)
	}

	// hits=3, misses=0 -> promoted
	s = s.WithHit(now)
	if s.State != constants.StatPromoted {
		t.Errorf("three clean hits should promote, got %s", s.State)
	}

	// terminal: further misses accumulate but do not revert the state
	s = s.WithMiss(now).WithMiss(now)
	if s.State != constants.StatPromoted {
		t.Errorf("promoted is terminal, got %s", s.State)
	}
	if s.Misses != 2 {
		t.Errorf("counters must keep accumulating, misses=%d", s.Misses)
	}

	// explicit reset is the only way back
	s = s.Reset(now)
	if s.State != constants.StatCandidate || s.Hits != 0 || s.Misses != 0 {
		t.Errorf("reset should clear to candidate, got %+v", s)
	}
}

func TestStat_BlockOnTwoMisses(t *testing.T) {
	now := time.Now()
	s := NewStat("acme", "suma", constants.FieldAmount, now)
	s = s.WithMiss(now).WithMiss(now)
	if s.State != constants.StatBlocked {
		t.Fatalf("two misses should block, got %s", s.State)
	}
	s = s.WithHit(now).WithHit(now).WithHit(now)
	if s.State != constants.StatBlocked {
		t.Errorf("blocked is terminal, got %s", s.State)
	}
}

func TestStat_MixedCountsStayCandidate(t *testing.T) {
	now := time.Now()
	s := NewStat("acme", "razem", constants.FieldAmount, now)
	s = s.WithHit(now).WithHit(now).WithMiss(now).WithHit(now)
	// hits=3 but misses=1 -> promotion predicate fails, block predicate fails
	if s.State != constants.StatCandidate {
		t.Errorf("3 hits with 1 miss should stay candidate, got %s", s.State)
	}
}

func TestStat_LastSeenUpdatedUnconditionally(t *testing.T) {
	t0 := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	s := NewStat("acme", "x", constants.FieldAmount, t0)
	s = s.WithMiss(t1)
	if !s.LastSeenAt.Equal(t1) {
		t.Errorf("LastSeenAt not updated: %v", s.LastSeenAt)
	}
}

func TestTracker_PromotionFeedsOverrides(t *testing.T) {
	tr := NewTracker(keyword.DefaultWeights(), nil)
	for i := 0; i < 3; i++ {
		tr.RecordHit("acme", "saldo do uregulowania", constants.FieldAmount)
	}

	ov, ok := tr.Overrides("acme")
	if !ok {
		t.Fatal("vendor should exist after hits")
	}
	found := false
	for _, r := range ov.PayDue {
		if r.Phrase == "saldo do uregulowania" {
			found = true
			if r.Weight != keyword.DefaultWeights().Promoted {
				t.Errorf("promoted rule weight = %d, want %d", r.Weight, keyword.DefaultWeights().Promoted)
			}
		}
	}
	if !found {
		t.Error("promoted phrase should become a permanent vendor pay-due rule")
	}
	if len(ov.AnchorPhrases) != 1 || ov.AnchorPhrases[0] != "saldo do uregulowania" {
		t.Errorf("promoted phrase should be a learned anchor, got %v", ov.AnchorPhrases)
	}
}

func TestTracker_BlockDisablesPhrase(t *testing.T) {
	tr := NewTracker(keyword.DefaultWeights(), nil)
	tr.RecordMiss("acme", "suma", constants.FieldAmount)
	tr.RecordMiss("acme", "suma", constants.FieldAmount)

	ov, _ := tr.Overrides("acme")
	if !ov.IsDisabled("suma") {
		t.Error("blocked phrase should land in the disabled set")
	}
}

func TestTracker_ApplyCorrection(t *testing.T) {
	tr := NewTracker(keyword.DefaultWeights(), nil)

	// accepted extraction: phrases get hits
	tr.ApplyCorrection("acme", Feedback{
		Field:  constants.FieldAmount,
		Method: constants.MethodAnchorBased,
	}, []string{"do zapłaty"}, nil)

	_, stats, _ := tr.Snapshot("acme")
	if len(stats) != 1 || stats[0].Hits != 1 || stats[0].Misses != 0 {
		t.Fatalf("accept should record a hit, got %+v", stats)
	}

	// corrected extraction: shown phrases miss, selected phrases hit
	idx := 1
	tr.ApplyCorrection("acme", Feedback{
		Field:                    constants.FieldAmount,
		WasCorrected:             true,
		AlternativeSelectedIndex: &idx,
		Method:                   constants.MethodAnchorBased,
	}, []string{"do zapłaty"}, []string{"razem"})

	ov, stats, _ := tr.Snapshot("acme")
	if ov.CorrectionCount != 1 {
		t.Errorf("correction count = %d, want 1", ov.CorrectionCount)
	}
	byPhrase := map[string]Stat{}
	for _, s := range stats {
		byPhrase[s.Phrase] = s
	}
	if s := byPhrase["do zapłaty"]; s.Hits != 1 || s.Misses != 1 {
		t.Errorf("shown phrase should have 1 hit 1 miss, got %+v", s)
	}
	if s := byPhrase["razem"]; s.Hits != 1 || s.Misses != 0 {
		t.Errorf("selected phrase should have 1 hit, got %+v", s)
	}
}

func TestTracker_SeedRoundTrip(t *testing.T) {
	tr := NewTracker(keyword.DefaultWeights(), nil)
	tr.RecordHit("acme", "pay by", constants.FieldDueDate)

	ov, stats, ok := tr.Snapshot("acme")
	if !ok {
		t.Fatal("snapshot missing")
	}

	tr2 := NewTracker(keyword.DefaultWeights(), nil)
	tr2.Seed(ov, stats)
	ov2, stats2, _ := tr2.Snapshot("acme")
	if ov2.VendorKey != "acme" || len(stats2) != len(stats) {
		t.Errorf("seed round trip lost state: %+v %+v", ov2, stats2)
	}
}

func TestTracker_ConcurrentSameVendor(t *testing.T) {
	tr := NewTracker(keyword.DefaultWeights(), nil)
	const goroutines = 8
	const perG = 50

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perG; i++ {
				tr.RecordHit("acme", "do zapłaty", constants.FieldAmount)
			}
		}()
	}
	wg.Wait()

	_, stats, _ := tr.Snapshot("acme")
	if len(stats) != 1 {
		t.Fatalf("expected a single stat record, got %d", len(stats))
	}
	if stats[0].Hits != goroutines*perG {
		t.Errorf("hits = %d, want %d (lost updates)", stats[0].Hits, goroutines*perG)
	}
	if stats[0].State != constants.StatPromoted {
		t.Errorf("state should be promoted, got %s", stats[0].State)
	}
}

func TestTracker_ResetUnknownStat(t *testing.T) {
	tr := NewTracker(keyword.DefaultWeights(), nil)
	if _, ok := tr.Reset("ghost", "x", constants.FieldAmount); ok {
		t.Error("reset of an unknown stat should report false")
	}
}
