package ranking

import "testing"

func TestComputeOrdersByAggregateRank(t *testing.T) {
	inputs := []Input{
		{Name: "A", ScoresByRoute: []float64{25, 20}},
		{Name: "B", ScoresByRoute: []float64{20, 25}},
		{Name: "C", ScoresByRoute: []float64{10, 10}},
	}
	ranked := Compute(inputs)
	if len(ranked) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(ranked))
	}
	if ranked[2].Name != "C" {
		t.Fatalf("expected C last, got %+v", ranked)
	}
	if ranked[0].Place != 1 {
		t.Fatalf("expected first place 1, got %d", ranked[0].Place)
	}
}

func TestComputeTiesShareAverageRank(t *testing.T) {
	inputs := []Input{
		{Name: "A", ScoresByRoute: []float64{25}},
		{Name: "B", ScoresByRoute: []float64{25}},
		{Name: "C", ScoresByRoute: []float64{10}},
	}
	ranked := Compute(inputs)
	byName := map[string]Ranked{}
	for _, r := range ranked {
		byName[r.Name] = r
	}
	if byName["A"].RouteRanks[0] != 1.5 || byName["B"].RouteRanks[0] != 1.5 {
		t.Fatalf("expected tied competitors at rank 1.5, got %+v %+v", byName["A"], byName["B"])
	}
	if byName["C"].RouteRanks[0] != 3 {
		t.Fatalf("expected untied competitor at rank 3, got %+v", byName["C"])
	}
	if byName["A"].Place != byName["B"].Place {
		t.Fatalf("expected tied competitors to share a place")
	}
}

func TestComputeTimeTiebreakOrdersFasterFirst(t *testing.T) {
	inputs := []Input{
		{Name: "A", ScoresByRoute: []float64{25}, TimesByRoute: []float64{42}, UseTimeTiebreak: true},
		{Name: "B", ScoresByRoute: []float64{25}, TimesByRoute: []float64{30}, UseTimeTiebreak: true},
		{Name: "C", ScoresByRoute: []float64{10}, TimesByRoute: []float64{20}, UseTimeTiebreak: true},
	}
	ranked := Compute(inputs)
	byName := map[string]Ranked{}
	for _, r := range ranked {
		byName[r.Name] = r
	}
	if byName["B"].RouteRanks[0] != 1 || byName["A"].RouteRanks[0] != 2 {
		t.Fatalf("expected B (faster time) ranked ahead of A, got %+v %+v", byName["A"], byName["B"])
	}
	if byName["B"].Place != 1 || byName["A"].Place != 2 {
		t.Fatalf("expected distinct places for the time-broken tie, got A=%d B=%d", byName["A"].Place, byName["B"].Place)
	}
}

func TestComputeTiesWithoutRecordedTimeStillShareAverage(t *testing.T) {
	inputs := []Input{
		{Name: "A", ScoresByRoute: []float64{25}, UseTimeTiebreak: true},
		{Name: "B", ScoresByRoute: []float64{25}, UseTimeTiebreak: true},
	}
	ranked := Compute(inputs)
	for _, r := range ranked {
		if r.RouteRanks[0] != 1.5 {
			t.Fatalf("expected tied competitors with no recorded time to share rank 1.5, got %+v", r)
		}
	}
}

func TestComputeEmptyInput(t *testing.T) {
	if got := Compute(nil); got != nil {
		t.Fatalf("expected nil for empty input, got %+v", got)
	}
}
