package internaldefs

import (
	"testing"

	"github.com/MrEthical07/authgate"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	seen := map[authgate.MetricID]bool{}
	for _, def := range CounterDefs {
		if seen[def.ID] {
			t.Fatalf("duplicate def for %s", def.ID)
		}
		seen[def.ID] = true
	}
	for id := authgate.MetricID(0); id.String() != "unknown"; id++ {
		if id == authgate.MetricVerifyLatency {
			continue
		}
		if !seen[id] {
			t.Fatalf("metric %s has no counter def", id)
		}
	}
	if CounterDefs[0].Name != "authgate_login_success_total" {
		t.Fatalf("first counter = %s", CounterDefs[0].Name)
	}
}

func TestBounds(t *testing.T) {
	if len(HistogramBounds) != BucketCount || len(HistogramBoundSuffix) != BucketCount {
		t.Fatalf("bounds length %d/%d, want %d", len(HistogramBounds), len(HistogramBoundSuffix), BucketCount)
	}
	if HistogramBounds[0] != "0.0001" || HistogramBoundSuffix[0] != "0_0001" {
		t.Fatalf("first bound %s/%s", HistogramBounds[0], HistogramBoundSuffix[0])
	}
	if HistogramBounds[BucketCount-1] != "+Inf" {
		t.Fatalf("last bound %s", HistogramBounds[BucketCount-1])
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	if got[0] != 1 || got[1] != 3 || got[2] != 6 || got[BucketCount-1] != 6 {
		t.Fatalf("unexpected cumulative buckets %v", got)
	}
}
