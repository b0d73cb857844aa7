package box

import (
	"testing"
	"time"
)

func newTestBox(t *testing.T) (*Registry, *Box) {
	t.Helper()
	clock := NewFakeClock(time.Unix(1_700_000_000, 0))
	reg := NewRegistry(clock)
	b, err := reg.Create(NewBoxSpec{
		Categorie:      "Men Boulder",
		RoutesCount:    2,
		HoldsCounts:    []int{25, 25},
		TimerPresetSec: 300,
		Competitors: []CompetitorInput{
			{Name: "A"}, {Name: "B"}, {Name: "C"},
		},
	})
	if err != nil {
		t.Fatalf("create box: %v", err)
	}
	return reg, b
}

func initRoute(t *testing.T, b *Box, clock Clock) ApplyResult {
	t.Helper()
	return b.Apply(Command{
		BoxID:          b.BoxID,
		Type:           CmdInitRoute,
		SessionID:      b.SessionID,
		BoxVersion:     b.BoxVersion,
		RouteIndex:     1,
		HoldsCount:     25,
		TimerPresetSec: 300,
	}, clock, 2)
}

// S1 Init & start.
func TestInitAndStartTimer(t *testing.T) {
	_, b := newTestBox(t)
	clock := b.clock

	res := initRoute(t, b, clock)
	if res.Status != StatusOK {
		t.Fatalf("expected ok, got %+v", res)
	}
	if b.BoxVersion != 1 || !b.Initiated || b.CurrentClimber() != "A" {
		t.Fatalf("unexpected state after init: %+v", b)
	}
	if b.TimerRemainingSec != 300 || b.TimerState != TimerIdle {
		t.Fatalf("expected idle timer at 300s, got %v %v", b.TimerState, b.TimerRemainingSec)
	}

	startRes := b.Apply(Command{
		BoxID: b.BoxID, Type: CmdStartTimer,
		SessionID: b.SessionID, BoxVersion: b.BoxVersion,
	}, clock, 2)
	if startRes.Status != StatusOK {
		t.Fatalf("expected start ok, got %+v", startRes)
	}
	if b.TimerState != TimerRunning {
		t.Fatalf("expected running, got %v", b.TimerState)
	}

	fc := clock.(*FakeClock)
	fc.Advance(2 * time.Second)
	if r := b.remaining(clock); r < 298 || r > 300 {
		t.Fatalf("expected remaining in [298,300], got %d", r)
	}
}

// S2 Half-hold guard.
func TestHalfHoldGuard(t *testing.T) {
	_, b := newTestBox(t)
	clock := b.clock
	initRoute(t, b, clock)

	first := b.Apply(Command{
		BoxID: b.BoxID, Type: CmdProgressUpdate,
		SessionID: b.SessionID, BoxVersion: b.BoxVersion, Delta: 0.1,
	}, clock, 2)
	if first.Status != StatusOK || b.HoldCount != 0.1 || !b.UsedHalfHold {
		t.Fatalf("expected first half-hold accepted, got %+v state=%+v", first, b)
	}

	second := b.Apply(Command{
		BoxID: b.BoxID, Type: CmdProgressUpdate,
		SessionID: b.SessionID, BoxVersion: b.BoxVersion, Delta: 0.1,
	}, clock, 2)
	if second.Status != StatusIgnored || second.Reason != ReasonHalfHoldUsed {
		t.Fatalf("expected second half-hold ignored, got %+v", second)
	}
	if b.HoldCount != 0.1 {
		t.Fatalf("hold count must not change on ignored command, got %v", b.HoldCount)
	}
}

// S3 Stale write.
func TestStaleWriteIgnored(t *testing.T) {
	_, b := newTestBox(t)
	clock := b.clock
	initRoute(t, b, clock)

	staleSession, staleVersion := b.SessionID, b.BoxVersion

	reset := b.Apply(Command{
		BoxID: b.BoxID, Type: CmdResetBox,
		SessionID: b.SessionID, BoxVersion: b.BoxVersion,
	}, clock, 2)
	if reset.Status != StatusOK {
		t.Fatalf("reset should succeed, got %+v", reset)
	}
	if b.SessionID == staleSession || b.BoxVersion == staleVersion {
		t.Fatalf("reset must rotate session and version")
	}

	stale := b.Apply(Command{
		BoxID: b.BoxID, Type: CmdStartTimer,
		SessionID: staleSession, BoxVersion: staleVersion,
	}, clock, 2)
	if stale.Status != StatusIgnored || stale.Reason != ReasonStale {
		t.Fatalf("expected stale ignore, got %+v", stale)
	}
	if b.Initiated {
		t.Fatalf("reset box must not be re-initiated by a stale write")
	}
}

// S4 Submit & advance.
func TestSubmitScoreAdvancesClimber(t *testing.T) {
	_, b := newTestBox(t)
	clock := b.clock
	initRoute(t, b, clock)

	progress := b.Apply(Command{
		BoxID: b.BoxID, Type: CmdProgressUpdate,
		SessionID: b.SessionID, BoxVersion: b.BoxVersion, HoldCountAbs: f64ptr(20),
	}, clock, 2)
	if progress.Status != StatusOK {
		t.Fatalf("progress update failed: %+v", progress)
	}

	submit := b.Apply(Command{
		BoxID: b.BoxID, Type: CmdSubmitScore,
		SessionID: b.SessionID, BoxVersion: b.BoxVersion,
		Competitor: "A", Score: 20,
	}, clock, 2)
	if submit.Status != StatusOK {
		t.Fatalf("submit failed: %+v", submit)
	}
	if b.ScoresByName["A"][0] != 20 {
		t.Fatalf("expected score recorded, got %+v", b.ScoresByName)
	}
	if !b.Competitors[0].Marked {
		t.Fatalf("expected A marked")
	}
	if b.CurrentClimber() != "B" {
		t.Fatalf("expected B current, got %q", b.CurrentClimber())
	}
	if b.HoldCount != 0 || b.UsedHalfHold {
		t.Fatalf("expected hold state reset, got %+v", b)
	}
	if b.TimerState != TimerIdle {
		t.Fatalf("expected idle timer after submit, got %v", b.TimerState)
	}
}

// Property: holdCount always stays within [0, holdsCount].
func TestHoldCountStaysWithinBounds(t *testing.T) {
	_, b := newTestBox(t)
	clock := b.clock
	initRoute(t, b, clock)

	for i := 0; i < 40; i++ {
		b.Apply(Command{
			BoxID: b.BoxID, Type: CmdProgressUpdate,
			SessionID: b.SessionID, BoxVersion: b.BoxVersion, Delta: 1,
		}, clock, 2)
	}
	if b.HoldCount != 25 {
		t.Fatalf("expected clamp at holdsCount=25, got %v", b.HoldCount)
	}

	for i := 0; i < 40; i++ {
		b.Apply(Command{
			BoxID: b.BoxID, Type: CmdProgressUpdate,
			SessionID: b.SessionID, BoxVersion: b.BoxVersion, Delta: -1,
		}, clock, 2)
	}
	if b.HoldCount != 0 {
		t.Fatalf("expected clamp at 0, got %v", b.HoldCount)
	}
}

// ACTIVE_CLIMBER may pick any unmarked competitor.
func TestActiveClimberPicksNonAdjacent(t *testing.T) {
	_, b := newTestBox(t)
	clock := b.clock
	initRoute(t, b, clock)

	res := b.Apply(Command{
		BoxID: b.BoxID, Type: CmdActiveClimber,
		SessionID: b.SessionID, BoxVersion: b.BoxVersion, Name: "C",
	}, clock, 2)
	if res.Status != StatusOK {
		t.Fatalf("expected ok, got %+v", res)
	}
	if b.CurrentClimber() != "C" {
		t.Fatalf("expected C current, got %q", b.CurrentClimber())
	}
}

func f64ptr(v float64) *float64 { return &v }
