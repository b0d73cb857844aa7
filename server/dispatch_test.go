package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/climbbox/boxhub/box"
)

var fixedTime = time.Unix(1_700_000_000, 0)

func TestPublicEventsRedactsInitRouteSnapshot(t *testing.T) {
	registry := box.NewRegistry(box.NewFakeClock(fixedTime))
	b, err := registry.Create(box.NewBoxSpec{
		RoutesCount: 1, HoldsCounts: []int{25}, TimerPresetSec: 300,
		Competitors: []box.CompetitorInput{{Name: "A"}},
	})
	require.NoError(t, err)

	result := b.Apply(box.Command{
		BoxID: b.BoxID, Type: box.CmdInitRoute,
		SessionID: b.SessionID, BoxVersion: b.BoxVersion,
		RouteIndex: 1, HoldsCount: 25, TimerPresetSec: 300,
	}, box.NewFakeClock(fixedTime), 2)
	require.Equal(t, box.StatusOK, result.Status)
	require.Len(t, result.Events, 2)
	require.Equal(t, box.CmdInitRoute, result.Events[0].Type)

	out := publicEvents(result.Events, b)
	require.Len(t, out, 2)
	for _, ev := range out {
		require.Equal(t, box.EventPublicStateSnapshot, ev.Type)
		_, isFull := ev.Payload.(*box.Snapshot)
		require.False(t, isFull, "public event must never carry the authoritative snapshot")
		_, ok := ev.Payload.(*box.PublicSnapshot)
		require.True(t, ok, "expected a PublicSnapshot payload, got %T", ev.Payload)
	}
}

func TestPublicEventsPassesThroughNarrowDeltas(t *testing.T) {
	registry := box.NewRegistry(box.NewFakeClock(fixedTime))
	b, err := registry.Create(box.NewBoxSpec{
		RoutesCount: 1, HoldsCounts: []int{25}, TimerPresetSec: 300,
		Competitors: []box.CompetitorInput{{Name: "A"}},
	})
	require.NoError(t, err)
	b.Apply(box.Command{
		BoxID: b.BoxID, Type: box.CmdInitRoute,
		SessionID: b.SessionID, BoxVersion: b.BoxVersion,
		RouteIndex: 1, HoldsCount: 25, TimerPresetSec: 300,
	}, box.NewFakeClock(fixedTime), 2)

	result := b.Apply(box.Command{
		BoxID: b.BoxID, Type: box.CmdProgressUpdate,
		SessionID: b.SessionID, BoxVersion: b.BoxVersion,
		Delta: 1,
	}, box.NewFakeClock(fixedTime), 2)
	require.Equal(t, box.StatusOK, result.Status)

	out := publicEvents(result.Events, b)
	require.Equal(t, box.CmdProgressUpdate, out[0].Type)
	require.Equal(t, result.Events[0].Payload, out[0].Payload)
}
