package metrics

import (
	"strings"
	"testing"
)

func TestRenderIncludesCountersAndHistogram(t *testing.T) {
	IncAnalysisStarted()
	IncAnalysisFailed("upstream_timeout")
	IncAnalysisFailed("upstream_timeout")
	IncAnalysisFailed("parse")
	IncCacheHit()
	ObserveAnalysisDurationMs(300)

	out := Render()
	for _, want := range []string{
		"# TYPE analysis_started_total counter",
		`analysis_failed_total{kind="parse"}`,
		`analysis_failed_total{kind="upstream_timeout"}`,
		"analysis_cache_hits_total",
		`analysis_duration_ms_bucket{le="500"}`,
		`analysis_duration_ms_bucket{le="+Inf"}`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Index(out, `kind="parse"`) > strings.Index(out, `kind="upstream_timeout"`) {
		t.Fatalf("expected labels sorted")
	}
}

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := newHistogram([]float64{10, 100})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)

	snap := h.Snapshot()
	if snap.count != 3 || snap.sum != 555 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.counts[0] != 1 || snap.counts[1] != 2 {
		t.Fatalf("unexpected bucket counts %v", snap.counts)
	}
}
