// Package box implements the per-box authoritative state machine: the
// single source of truth for one live climbing-competition category,
// its timer, its climber queue, its scores, and the session/version pair
// that lets concurrent clients detect a stale write.
package box

import (
	"sync"
	"time"
)

// TimerState is the timer's state machine position.
type TimerState string

const (
	TimerIdle    TimerState = "idle"
	TimerRunning TimerState = "running"
	TimerPaused  TimerState = "paused"
)

// Competitor is one entry in a box's ordered climber queue.
type Competitor struct {
	Name   string `json:"name"`
	Club   string `json:"club,omitempty"`
	Marked bool   `json:"marked"`
}

// Box is one live category. All fields are mutated only through Apply,
// holding the box's mutex; nothing here is safe to read concurrently
// without it.
type Box struct {
	mu sync.Mutex

	BoxID     int    `json:"boxId"`
	Categorie string `json:"categorie"`

	SessionID  string `json:"sessionId"`
	BoxVersion int64  `json:"boxVersion"`

	Initiated   bool  `json:"initiated"`
	RouteIndex  int   `json:"routeIndex"`
	RoutesCount int   `json:"routesCount"`
	HoldsCounts []int `json:"holdsCounts"`

	TimerPresetSec      int        `json:"timerPresetSec"`
	TimerState          TimerState `json:"timerState"`
	timerDeadline       time.Time  // valid only while TimerState == TimerRunning
	TimerRemainingSec   int        `json:"timerRemainingSec"`

	HoldCount    float64 `json:"holdCount"`
	UsedHalfHold bool    `json:"usedHalfHold"`

	Competitors []Competitor `json:"competitors"`

	RegisteredTime *float64 `json:"registeredTime,omitempty"`

	// ScoresByName and TimesByName are keyed by competitor name, each a
	// per-route array indexed 0..RoutesCount-1.
	ScoresByName map[string][]float64 `json:"scoresByName"`
	TimesByName  map[string][]float64 `json:"timesByName"`

	TimeCriterionEnabled bool `json:"timeCriterionEnabled"`

	clock Clock
}

// HoldsCount returns the hold total for the box's current route, or 0
// before a route has been initialized.
func (b *Box) HoldsCount() int {
	if b.RouteIndex < 1 || b.RouteIndex > len(b.HoldsCounts) {
		return 0
	}
	return b.HoldsCounts[b.RouteIndex-1]
}

// CurrentClimber is derived: the first competitor with Marked == false,
// or "" when every competitor is marked.
func (b *Box) CurrentClimber() string {
	for _, c := range b.Competitors {
		if !c.Marked {
			return c.Name
		}
	}
	return ""
}

// findCompetitor returns the index of the competitor with the given name,
// or -1.
func (b *Box) findCompetitor(name string) int {
	for i, c := range b.Competitors {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// allMarked reports whether every competitor on the box has been marked.
func (b *Box) allMarked() bool {
	for _, c := range b.Competitors {
		if !c.Marked {
			return false
		}
	}
	return true
}

func (b *Box) ensureScoreRow(name string) {
	if b.ScoresByName == nil {
		b.ScoresByName = make(map[string][]float64)
	}
	if _, ok := b.ScoresByName[name]; !ok {
		b.ScoresByName[name] = make([]float64, b.RoutesCount)
	}
}

func (b *Box) ensureTimeRow(name string) {
	if b.TimesByName == nil {
		b.TimesByName = make(map[string][]float64)
	}
	if _, ok := b.TimesByName[name]; !ok {
		b.TimesByName[name] = make([]float64, b.RoutesCount)
	}
}
