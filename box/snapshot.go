package box

// Snapshot is the authoritative, full-fidelity view of a box, sent to
// operator/judge subscribers. It carries session and version so clients
// can detect their own staleness.
type Snapshot struct {
	BoxID      int    `json:"boxId"`
	Categorie  string `json:"categorie"`
	SessionID  string `json:"sessionId"`
	BoxVersion int64  `json:"boxVersion"`

	Initiated   bool  `json:"initiated"`
	RouteIndex  int   `json:"routeIndex"`
	RoutesCount int   `json:"routesCount"`
	HoldsCounts []int `json:"holdsCounts"`

	TimerPresetSec    int        `json:"timerPresetSec"`
	TimerState        TimerState `json:"timerState"`
	TimerRemainingSec int        `json:"timerRemainingSec"`

	HoldCount    float64 `json:"holdCount"`
	UsedHalfHold bool    `json:"usedHalfHold"`

	Competitors    []Competitor `json:"competitors"`
	CurrentClimber string       `json:"currentClimber"`

	RegisteredTime *float64 `json:"registeredTime,omitempty"`

	ScoresByName map[string][]float64 `json:"scoresByName"`
	TimesByName  map[string][]float64 `json:"timesByName"`

	TimeCriterionEnabled bool `json:"timeCriterionEnabled"`
}

// PublicSnapshot is the spectator-redacted view: no session, no version,
// no raw score/time maps beyond what the rankings page needs to render —
// exactly the field set in §4.F, never sessionId/boxVersion.
type PublicSnapshot struct {
	BoxID       int    `json:"boxId"`
	Categorie   string `json:"categorie"`
	Initiated   bool   `json:"initiated"`
	RouteIndex  int    `json:"routeIndex"`
	RoutesCount int    `json:"routesCount"`
	HoldsCounts []int  `json:"holdsCounts"`

	CurrentClimber   string `json:"currentClimber"`
	PreparingClimber string `json:"preparingClimber"`

	TimerState TimerState `json:"timerState"`
	Remaining  int        `json:"remaining"`

	TimeCriterionEnabled bool `json:"timeCriterionEnabled"`

	ScoresByName map[string][]float64 `json:"scoresByName"`
	TimesByName  map[string][]float64 `json:"timesByName"`
}

// Snapshot locks the box and returns its current authoritative snapshot,
// for callers outside the package (the dispatcher's cache, admin reads)
// that can't take the box's lock directly.
func (b *Box) Snapshot() *Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.BuildSnapshot()
}

// PublicSnapshotView locks the box and returns its spectator-redacted view.
func (b *Box) PublicSnapshotView() *PublicSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.BuildPublicSnapshot()
}

// BuildSnapshot computes the authoritative snapshot of the box as it
// stands right now. Caller must hold the box's lock.
func (b *Box) BuildSnapshot() *Snapshot {
	b.refreshRemaining(b.clock)
	return &Snapshot{
		BoxID:                b.BoxID,
		Categorie:            b.Categorie,
		SessionID:            b.SessionID,
		BoxVersion:           b.BoxVersion,
		Initiated:            b.Initiated,
		RouteIndex:           b.RouteIndex,
		RoutesCount:          b.RoutesCount,
		HoldsCounts:          append([]int(nil), b.HoldsCounts...),
		TimerPresetSec:       b.TimerPresetSec,
		TimerState:           b.TimerState,
		TimerRemainingSec:    b.TimerRemainingSec,
		HoldCount:            b.HoldCount,
		UsedHalfHold:         b.UsedHalfHold,
		Competitors:          append([]Competitor(nil), b.Competitors...),
		CurrentClimber:       b.CurrentClimber(),
		RegisteredTime:       b.RegisteredTime,
		ScoresByName:         copyFloatMap(b.ScoresByName),
		TimesByName:          copyFloatMap(b.TimesByName),
		TimeCriterionEnabled: b.TimeCriterionEnabled,
	}
}

// BuildPublicSnapshot computes the spectator-redacted view. Caller must
// hold the box's lock.
func (b *Box) BuildPublicSnapshot() *PublicSnapshot {
	b.refreshRemaining(b.clock)
	return &PublicSnapshot{
		BoxID:                b.BoxID,
		Categorie:            b.Categorie,
		Initiated:            b.Initiated,
		RouteIndex:           b.RouteIndex,
		RoutesCount:          b.RoutesCount,
		HoldsCounts:          append([]int(nil), b.HoldsCounts...),
		CurrentClimber:       b.CurrentClimber(),
		PreparingClimber:     b.nextUnmarkedAfterCurrent(),
		TimerState:           b.TimerState,
		Remaining:            b.TimerRemainingSec,
		TimeCriterionEnabled: b.TimeCriterionEnabled,
		ScoresByName:         copyFloatMap(b.ScoresByName),
		TimesByName:          copyFloatMap(b.TimesByName),
	}
}

// nextUnmarkedAfterCurrent returns the competitor queued after the current
// climber, i.e. the second unmarked name, for the spectator "preparing"
// display.
func (b *Box) nextUnmarkedAfterCurrent() string {
	seenCurrent := false
	for _, c := range b.Competitors {
		if c.Marked {
			continue
		}
		if !seenCurrent {
			seenCurrent = true
			continue
		}
		return c.Name
	}
	return ""
}

func copyFloatMap(m map[string][]float64) map[string][]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string][]float64, len(m))
	for k, v := range m {
		out[k] = append([]float64(nil), v...)
	}
	return out
}
