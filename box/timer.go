package box

import (
	"math"
	"time"
)

// startFresh sets the timer running from timerPresetSec, clearing any
// registered time. No command handler calls it: INIT_ROUTE leaves the
// timer idle via idleFresh, and RESET_BOX resets the timer fields itself.
func (b *Box) startFresh(clock Clock) {
	b.TimerState = TimerRunning
	b.timerDeadline = clock.Now().Add(secToDuration(b.TimerPresetSec))
	b.TimerRemainingSec = b.TimerPresetSec
	b.RegisteredTime = nil
}

// idleFresh puts the timer in idle state showing the full preset, without
// starting it. Used by INIT_ROUTE.
func (b *Box) idleFresh() {
	b.TimerState = TimerIdle
	b.TimerRemainingSec = b.TimerPresetSec
	b.RegisteredTime = nil
}

// start transitions idle -> running.
func (b *Box) startTimer(clock Clock) bool {
	if b.TimerState != TimerIdle {
		return false
	}
	b.TimerState = TimerRunning
	b.timerDeadline = clock.Now().Add(secToDuration(b.TimerRemainingSec))
	return true
}

// stop transitions running -> paused, snapshotting the remaining time.
func (b *Box) stopTimer(clock Clock) bool {
	if b.TimerState != TimerRunning {
		return false
	}
	b.TimerRemainingSec = b.remaining(clock)
	b.TimerState = TimerPaused
	b.timerDeadline = time.Time{}
	return true
}

// resume transitions paused -> running, recomputing the deadline from the
// stored remaining time.
func (b *Box) resumeTimer(clock Clock) bool {
	if b.TimerState != TimerPaused {
		return false
	}
	b.TimerState = TimerRunning
	b.timerDeadline = clock.Now().Add(secToDuration(b.TimerRemainingSec))
	b.RegisteredTime = nil
	return true
}

// remaining derives the authoritative remaining-seconds view: while
// running it is computed from the deadline, otherwise it is whatever was
// last stored.
func (b *Box) remaining(clock Clock) int {
	if b.TimerState != TimerRunning {
		return b.TimerRemainingSec
	}
	d := b.timerDeadline.Sub(clock.Now())
	secs := int(math.Ceil(d.Seconds()))
	if secs < 0 {
		secs = 0
	}
	return secs
}

// refreshRemaining syncs the exported TimerRemainingSec field from the
// derived value, for callers building a snapshot.
func (b *Box) refreshRemaining(clock Clock) {
	b.TimerRemainingSec = b.remaining(clock)
}

// registerTime stores an operator-entered time, valid only while paused
// and the time-criterion flag is enabled.
func (b *Box) registerTime(sec float64) bool {
	if b.TimerState != TimerPaused || !b.TimeCriterionEnabled {
		return false
	}
	b.RegisteredTime = &sec
	return true
}

// timerSync is the advisory TIMER_SYNC write: accepted only while running
// and within syncToleranceSec of the engine's own view, and even then it
// never moves the deadline or the timer state — see the Open Question
// decision in SPEC_FULL.md §12.
func (b *Box) timerSync(reportedSec int, toleranceSec int, clock Clock) bool {
	if b.TimerState != TimerRunning {
		return false
	}
	actual := b.remaining(clock)
	diff := reportedSec - actual
	if diff < 0 {
		diff = -diff
	}
	return diff <= toleranceSec
}

func secToDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
