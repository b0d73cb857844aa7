package box

import "time"

// Apply is the single entry point for every mutation: acquire the box
// lock, check the session/version pair, validate preconditions, mutate,
// and build the response events. See §4.B/§4.D — this is the ordering
// policy the dispatcher relies on for linearizability.
func (b *Box) Apply(cmd Command, clock Clock, syncToleranceSec int) ApplyResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cmd.SessionID != b.SessionID || cmd.BoxVersion != b.BoxVersion {
		return ignored(ReasonStale)
	}

	switch cmd.Type {
	case CmdInitRoute:
		return b.applyInitRoute(cmd, clock)
	case CmdStartTimer:
		return b.applyStartTimer(clock)
	case CmdStopTimer:
		return b.applyStopTimer(clock)
	case CmdResumeTimer:
		return b.applyResumeTimer(clock)
	case CmdProgressUpdate:
		return b.applyProgressUpdate(cmd)
	case CmdSubmitScore:
		return b.applySubmitScore(cmd)
	case CmdRegisterTime:
		return b.applyRegisterTime(cmd)
	case CmdActiveClimber:
		return b.applyActiveClimber(cmd)
	case CmdSetTimeCriterion:
		return b.applySetTimeCriterion(cmd)
	case CmdResetBox:
		return b.applyResetBox()
	case CmdTimerSync:
		return b.applyTimerSync(cmd, clock, syncToleranceSec)
	default:
		return ignored(ReasonUnknownType)
	}
}

// ok finalizes a successful apply: builds the fresh snapshot, appends it
// after any narrow delta event, and fills in the response's session pair.
func (b *Box) ok(events ...Event) ApplyResult {
	snap := b.BuildSnapshot()
	events = append(events, Event{Type: EventStateSnapshot, BoxID: b.BoxID, Payload: snap})
	return ApplyResult{
		Status:     StatusOK,
		BoxVersion: b.BoxVersion,
		SessionID:  b.SessionID,
		Events:     events,
		Snapshot:   snap,
	}
}

func (b *Box) applyInitRoute(cmd Command, clock Clock) ApplyResult {
	if cmd.RouteIndex < 1 || cmd.RouteIndex > b.RoutesCount {
		return ignored(ReasonPrecondition)
	}

	if err := b.rotateSession(); err != nil {
		return ApplyResult{Status: StatusError, Reason: "internal"}
	}

	b.RouteIndex = cmd.RouteIndex
	if cmd.HoldsCount > 0 && cmd.RouteIndex-1 < len(b.HoldsCounts) {
		b.HoldsCounts[cmd.RouteIndex-1] = cmd.HoldsCount
	}
	if cmd.TimerPresetSec > 0 {
		b.TimerPresetSec = cmd.TimerPresetSec
	}

	if len(cmd.Competitors) > 0 {
		competitors := make([]Competitor, len(cmd.Competitors))
		for i, c := range cmd.Competitors {
			competitors[i] = Competitor{Name: c.Name, Club: c.Club}
		}
		b.Competitors = competitors
	} else {
		for i := range b.Competitors {
			b.Competitors[i].Marked = false
		}
	}

	b.Initiated = true
	b.HoldCount = 0
	b.UsedHalfHold = false
	b.RegisteredTime = nil
	b.idleFresh()

	return b.ok(Event{Type: CmdInitRoute, BoxID: b.BoxID, Payload: b.BuildSnapshot()})
}

// readyForTimer reports whether a timer command can run right now, and if
// not, which of the two distinct reasons applies: the box hasn't run its
// first INIT_ROUTE yet, or it has but no competitor is queued up to climb.
func (b *Box) readyForTimer() (ok bool, reason string) {
	if !b.Initiated {
		return false, ReasonNotInitiated
	}
	if b.CurrentClimber() == "" {
		return false, ReasonNoCurrentClimb
	}
	return true, ""
}

func (b *Box) applyStartTimer(clock Clock) ApplyResult {
	if ok, reason := b.readyForTimer(); !ok {
		return ignored(reason)
	}
	if !b.startTimer(clock) {
		return ignored(ReasonPrecondition)
	}
	return b.ok(Event{Type: CmdStartTimer, BoxID: b.BoxID})
}

func (b *Box) applyStopTimer(clock Clock) ApplyResult {
	if ok, reason := b.readyForTimer(); !ok {
		return ignored(reason)
	}
	if !b.stopTimer(clock) {
		return ignored(ReasonPrecondition)
	}
	return b.ok(Event{Type: CmdStopTimer, BoxID: b.BoxID})
}

func (b *Box) applyResumeTimer(clock Clock) ApplyResult {
	if ok, reason := b.readyForTimer(); !ok {
		return ignored(reason)
	}
	if !b.resumeTimer(clock) {
		return ignored(ReasonPrecondition)
	}
	return b.ok(Event{Type: CmdResumeTimer, BoxID: b.BoxID})
}

func (b *Box) applyProgressUpdate(cmd Command) ApplyResult {
	if !b.Initiated {
		return ignored(ReasonNotInitiated)
	}
	holdsCount := float64(b.HoldsCount())

	if cmd.HoldCountAbs != nil {
		b.HoldCount = clamp(*cmd.HoldCountAbs, 0, holdsCount)
		return b.ok(Event{Type: CmdProgressUpdate, BoxID: b.BoxID, Payload: b.HoldCount})
	}

	switch cmd.Delta {
	case 0.1:
		if b.UsedHalfHold {
			return ignored(ReasonHalfHoldUsed)
		}
		b.HoldCount = clamp(b.HoldCount+0.1, 0, holdsCount)
		b.UsedHalfHold = true
	case 1:
		b.HoldCount = clamp(b.HoldCount+1, 0, holdsCount)
	case -1:
		b.HoldCount = clamp(b.HoldCount-1, 0, holdsCount)
	default:
		return ignored(ReasonPrecondition)
	}

	return b.ok(Event{Type: CmdProgressUpdate, BoxID: b.BoxID, Payload: b.HoldCount})
}

func (b *Box) applySubmitScore(cmd Command) ApplyResult {
	if !b.Initiated {
		return ignored(ReasonNotInitiated)
	}
	idx := b.findCompetitor(cmd.Competitor)
	if idx == -1 || b.Competitors[idx].Marked {
		return ignored(ReasonPrecondition)
	}

	routeIdx := b.RouteIndex - 1
	if routeIdx < 0 {
		return ignored(ReasonNotInitiated)
	}

	b.ensureScoreRow(cmd.Competitor)
	b.ScoresByName[cmd.Competitor][routeIdx] = cmd.Score
	if cmd.RegisteredTimeSec != nil {
		b.ensureTimeRow(cmd.Competitor)
		b.TimesByName[cmd.Competitor][routeIdx] = *cmd.RegisteredTimeSec
	}

	b.Competitors[idx].Marked = true
	b.HoldCount = 0
	b.UsedHalfHold = false
	b.TimerState = TimerIdle
	b.timerDeadline = time.Time{}
	b.TimerRemainingSec = b.TimerPresetSec
	b.RegisteredTime = nil

	return b.ok(Event{Type: CmdSubmitScore, BoxID: b.BoxID, Payload: map[string]interface{}{
		"competitor": cmd.Competitor,
		"score":      cmd.Score,
	}})
}

func (b *Box) applyRegisterTime(cmd Command) ApplyResult {
	if cmd.RegisteredTimeSec == nil {
		return ignored(ReasonPrecondition)
	}
	if !b.registerTime(*cmd.RegisteredTimeSec) {
		return ignored(ReasonPrecondition)
	}
	return b.ok(Event{Type: CmdRegisterTime, BoxID: b.BoxID, Payload: *cmd.RegisteredTimeSec})
}

// applyActiveClimber allows selecting any unmarked competitor, not only
// the next one in order (Open Question decision, see SPEC_FULL.md §12). It
// reorders the unmarked run so the derived CurrentClimber reflects the
// pick without introducing a separate "override" field.
func (b *Box) applyActiveClimber(cmd Command) ApplyResult {
	idx := b.findCompetitor(cmd.Name)
	if idx == -1 || b.Competitors[idx].Marked {
		return ignored(ReasonPrecondition)
	}
	if cmd.Name == b.CurrentClimber() {
		return b.ok()
	}

	firstUnmarked := -1
	for i, c := range b.Competitors {
		if !c.Marked {
			firstUnmarked = i
			break
		}
	}
	if firstUnmarked == idx {
		return b.ok()
	}

	picked := b.Competitors[idx]
	rest := append(append([]Competitor{}, b.Competitors[:idx]...), b.Competitors[idx+1:]...)
	reordered := make([]Competitor, 0, len(b.Competitors))
	reordered = append(reordered, rest[:firstUnmarked]...)
	reordered = append(reordered, picked)
	reordered = append(reordered, rest[firstUnmarked:]...)
	b.Competitors = reordered

	return b.ok(Event{Type: CmdActiveClimber, BoxID: b.BoxID, Payload: cmd.Name})
}

func (b *Box) applySetTimeCriterion(cmd Command) ApplyResult {
	if cmd.Enabled == nil {
		return ignored(ReasonPrecondition)
	}
	b.TimeCriterionEnabled = *cmd.Enabled
	return b.ok(Event{Type: CmdSetTimeCriterion, BoxID: b.BoxID, Payload: *cmd.Enabled})
}

func (b *Box) applyResetBox() ApplyResult {
	if err := b.rotateSession(); err != nil {
		return ApplyResult{Status: StatusError, Reason: "internal"}
	}

	b.Initiated = false
	b.RouteIndex = 0
	b.HoldCount = 0
	b.UsedHalfHold = false
	b.RegisteredTime = nil
	b.TimerState = TimerIdle
	b.TimerRemainingSec = b.TimerPresetSec
	b.timerDeadline = time.Time{}
	for i := range b.Competitors {
		b.Competitors[i].Marked = false
	}

	return b.ok(Event{Type: CmdResetBox, BoxID: b.BoxID})
}

func (b *Box) applyTimerSync(cmd Command, clock Clock, toleranceSec int) ApplyResult {
	if cmd.RemainingSec == nil {
		return ignored(ReasonPrecondition)
	}
	if !b.timerSync(*cmd.RemainingSec, toleranceSec, clock) {
		return ignored(ReasonPrecondition)
	}
	return b.ok(Event{Type: CmdTimerSync, BoxID: b.BoxID, Payload: *cmd.RemainingSec})
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
