package internaldefs

import (
	"strings"
	"testing"

	goSession "github.com/MrEthical07/goSession"
)

func TestDefinitionsCoverEveryMetric(t *testing.T) {
	seen := map[goSession.MetricID]bool{}
	names := map[string]bool{}

	for _, def := range CounterDefs {
		if seen[def.ID] {
			t.Fatalf("metric id %d defined twice", def.ID)
		}
		seen[def.ID] = true
		if names[def.Name] || !strings.HasPrefix(def.Name, "gosession_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("bad counter name %q", def.Name)
		}
		names[def.Name] = true
	}
	for _, def := range HistogramDefs {
		if seen[def.ID] {
			t.Fatalf("metric id %d defined twice", def.ID)
		}
		seen[def.ID] = true
		if !strings.HasSuffix(def.Name, "_seconds") {
			t.Fatalf("bad histogram name %q", def.Name)
		}
	}

	if len(seen) != int(goSession.MetricValidateLatency)+1 {
		t.Fatalf("expected every metric id exported, got %d", len(seen))
	}
	if len(HistogramBounds) != 8 || len(HistogramBoundSuffix) != 8 {
		t.Fatal("expected eight histogram buckets")
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestSortedSamplesOrdersByTierThenOp(t *testing.T) {
	got := SortedSamples(map[goSession.TierOp]uint64{
		{Tier: "sql", Op: "get"}:      1,
		{Tier: "redis", Op: "touch"}:  2,
		{Tier: "redis", Op: "delete"}: 3,
	})
	want := []LabeledSample{
		{Tier: "redis", Op: "delete", Value: 3},
		{Tier: "redis", Op: "touch", Value: 2},
		{Tier: "sql", Op: "get", Value: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d: got %+v want %+v", i, got[i], want[i])
		}
	}

	snapshot := goSession.MetricsSnapshot{FallbackServed: map[goSession.TierOp]uint64{{Tier: "memory", Op: "get"}: 4}}
	for _, def := range LabeledDefs {
		if !strings.HasPrefix(def.Name, "gosession_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("bad labeled family name %q", def.Name)
		}
	}
	if n := LabeledDefs[1].Series(snapshot)[goSession.TierOp{Tier: "memory", Op: "get"}]; n != 4 {
		t.Fatalf("fallback family reads wrong series: %d", n)
	}
}
