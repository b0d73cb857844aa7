package server

import (
	"context"
	"time"

	"github.com/climbbox/boxhub/box"
	"github.com/climbbox/boxhub/logger"
	"github.com/climbbox/boxhub/ratelimit"
)

// dispatch is the single entry point for a command arriving over either
// transport: resolve the box, apply the box's rate limit for the
// command's class (PROGRESS_UPDATE or everything else), run it
// through the box's state machine under its lock, then fan the resulting
// events out to both hubs. It never panics; a command that can't be
// processed within its deadline comes back as {status: error}.
func (s *BoxServer) dispatch(ctx context.Context, cmd box.Command) box.ApplyResult {
	b, ok := s.registry.Get(cmd.BoxID)
	if !ok {
		return box.ApplyResult{Status: box.StatusError, Reason: "box not found"}
	}

	class := ratelimit.ClassOther
	if cmd.Type == box.CmdProgressUpdate {
		class = ratelimit.ClassProgress
	}
	if !s.limiter.Allow(cmd.BoxID, class) {
		return box.ApplyResult{Status: box.StatusIgnored, Reason: box.ReasonRateLimited}
	}

	deadline := time.Duration(s.cfg.Command.ProcessingDeadlineMS) * time.Millisecond
	resultCh := make(chan box.ApplyResult, 1)
	go func() {
		resultCh <- b.Apply(cmd, s.clock, s.cfg.Timer.SyncToleranceSec)
	}()

	select {
	case result := <-resultCh:
		if result.Status == box.StatusOK && len(result.Events) > 0 {
			s.operatorHub.Broadcast(cmd.BoxID, result.Events)
			s.publicHub.Broadcast(cmd.BoxID, publicEvents(result.Events, b))
		}
		return result
	case <-time.After(deadline):
		logger.Logger.Warnw("command exceeded processing deadline",
			logger.FieldBoxID, cmd.BoxID, logger.FieldCommandType, cmd.Type)
		return box.ApplyResult{Status: box.StatusError, Reason: "processing_deadline_exceeded"}
	case <-ctx.Done():
		return box.ApplyResult{Status: box.StatusError, Reason: "canceled"}
	}
}

// publicEvents redacts the fan-out for the public channel: STATE_SNAPSHOT
// becomes PUBLIC_STATE_SNAPSHOT built from the box's public fields, and so
// does INIT_ROUTE (its narrow-delta payload is the full authoritative
// snapshot, including sessionId/boxVersion, which spectators must never
// see). Every other narrow delta event carries only a display value
// (a hold count, a climber name) and passes through unchanged.
func publicEvents(events []box.Event, b *box.Box) []box.Event {
	out := make([]box.Event, 0, len(events))
	for _, ev := range events {
		if ev.Type == box.EventStateSnapshot || ev.Type == box.CmdInitRoute {
			out = append(out, box.Event{
				Type:    box.EventPublicStateSnapshot,
				BoxID:   ev.BoxID,
				Payload: b.PublicSnapshotView(),
			})
			continue
		}
		out = append(out, ev)
	}
	return out
}
