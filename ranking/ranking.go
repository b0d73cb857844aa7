// Package ranking computes a box's standings from its recorded scores: a
// per-route rank (ties share the average of the rank positions they span)
// and an aggregate rank from the geometric mean of per-route ranks, the
// scheme climbing competitions commonly use to combine several routes into
// one placing. It is a pure function of the scores it's given; it neither
// persists anything nor exports to any file format.
package ranking

import (
	"math"
	"sort"
)

// Input is one competitor's recorded results across every route on a box.
type Input struct {
	Name            string
	Club            string
	ScoresByRoute   []float64
	TimesByRoute    []float64 // seconds; used only as a tiebreak when UseTimeTiebreak
	UseTimeTiebreak bool
}

// Ranked is one competitor's computed standing.
type Ranked struct {
	Name          string  `json:"name"`
	Club          string  `json:"club,omitempty"`
	RouteRanks    []float64 `json:"routeRanks"`
	AggregateRank float64 `json:"aggregateRank"`
	Place         int     `json:"place"`
}

// Compute ranks every competitor in inputs. All inputs must share the same
// number of routes; a shorter ScoresByRoute is treated as zero for the
// missing routes (not yet attempted). UseTimeTiebreak is read from the
// inputs: if any competitor sets it, a tie on score is broken by recorded
// time (faster wins) wherever every tied competitor has one recorded, and
// only the rank positions within the tied group split that way — the
// group still shares the same range of places it always would.
func Compute(inputs []Input) []Ranked {
	if len(inputs) == 0 {
		return nil
	}

	useTimeTiebreak := false
	for _, in := range inputs {
		if in.UseTimeTiebreak {
			useTimeTiebreak = true
			break
		}
	}

	routeCount := 0
	for _, in := range inputs {
		if len(in.ScoresByRoute) > routeCount {
			routeCount = len(in.ScoresByRoute)
		}
	}

	routeRanks := make([][]float64, len(inputs))
	for r := 0; r < routeCount; r++ {
		scores := make([]float64, len(inputs))
		times := make([]float64, len(inputs))
		for i, in := range inputs {
			if r < len(in.ScoresByRoute) {
				scores[i] = in.ScoresByRoute[r]
			}
			if r < len(in.TimesByRoute) {
				times[i] = in.TimesByRoute[r]
			}
		}
		ranks := averageRankWithTies(scores, times, useTimeTiebreak)
		for i := range inputs {
			if routeRanks[i] == nil {
				routeRanks[i] = make([]float64, routeCount)
			}
			routeRanks[i][r] = ranks[i]
		}
	}

	out := make([]Ranked, len(inputs))
	for i, in := range inputs {
		out[i] = Ranked{
			Name:          in.Name,
			Club:          in.Club,
			RouteRanks:    routeRanks[i],
			AggregateRank: geometricMean(routeRanks[i]),
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AggregateRank < out[j].AggregateRank
	})
	place := 0
	for i := range out {
		if i == 0 || out[i].AggregateRank != out[i-1].AggregateRank {
			place = i + 1
		}
		out[i].Place = place
	}
	return out
}

// averageRankWithTies ranks values (descending, since a hold/score count is
// better when higher). Competitors tied on value share the average of the
// rank positions their tie spans, unless useTimeTiebreak is set and every
// competitor in the tied group recorded a differing time — then the
// faster time orders the group instead, each still drawing a distinct
// position from the same span the tie would otherwise have shared.
func averageRankWithTies(values, times []float64, useTimeTiebreak bool) []float64 {
	n := len(values)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] > values[order[b]]
	})

	ranks := make([]float64, n)
	i := 0
	for i < n {
		j := i
		for j < n && values[order[j]] == values[order[i]] {
			j++
		}
		group := append([]int(nil), order[i:j]...)
		if useTimeTiebreak && len(group) > 1 && timesBreakTie(times, group) {
			sort.SliceStable(group, func(a, b int) bool {
				return times[group[a]] < times[group[b]]
			})
			for k, idx := range group {
				ranks[idx] = float64(i + 1 + k)
			}
		} else {
			// Positions i+1..j (1-indexed) are tied; they share the average.
			avg := float64(i+1+j) / 2
			for _, idx := range group {
				ranks[idx] = avg
			}
		}
		i = j
	}
	return ranks
}

// timesBreakTie reports whether every competitor in group recorded a
// positive time and they aren't all identical — the only case where a
// time tiebreak has something to decide.
func timesBreakTie(times []float64, group []int) bool {
	first := times[group[0]]
	for _, idx := range group {
		if times[idx] <= 0 {
			return false
		}
	}
	for _, idx := range group[1:] {
		if times[idx] != first {
			return true
		}
	}
	return false
}

// geometricMean returns the n-th root of the product of values, or 0 for
// an empty slice. A zero rank component (no attempts at all) is excluded
// rather than collapsing the whole mean to zero.
func geometricMean(values []float64) float64 {
	product := 1.0
	count := 0
	for _, v := range values {
		if v <= 0 {
			continue
		}
		product *= v
		count++
	}
	if count == 0 {
		return 0
	}
	return math.Pow(product, 1.0/float64(count))
}
