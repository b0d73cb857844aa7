package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/climbbox/boxhub/box"
	"github.com/climbbox/boxhub/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Auth.TokenLeewaySec = 1
	cfg.Timer.DefaultPresetSec = 300
	cfg.Timer.AllowNegative = true
	cfg.Timer.SyncToleranceSec = 2
	cfg.Heartbeat.PingIntervalSec = 30
	cfg.Heartbeat.PongTimeoutSec = 60
	cfg.Hub.SubscriberQueueDepth = 8
	cfg.RateLimit.ProgressPerMin = 600
	cfg.RateLimit.OtherPerMin = 600
	cfg.Spectator.TTLSec = 3600
	cfg.Command.ProcessingDeadlineMS = 2000
	cfg.Command.WriteDeadlineSec = 5
	return cfg
}

func newTestServer(t *testing.T) (*BoxServer, *httptest.Server) {
	t.Helper()
	s, err := New(testConfig(), box.NewFakeClock(time.Unix(1_700_000_000, 0)))
	require.NoError(t, err)

	mux := http.NewServeMux()
	s.setupRoutes(mux)
	srv := httptest.NewServer(s.corsMiddleware(mux))
	t.Cleanup(srv.Close)
	return s, srv
}

func operatorToken(t *testing.T, s *BoxServer, boxIDs ...int) string {
	t.Helper()
	token, err := s.authMgr.IssueOperatorToken(boxIDs)
	require.NoError(t, err)
	return token
}

func TestHandleCmdDispatchesToBox(t *testing.T) {
	s, srv := newTestServer(t)
	b, err := s.registry.Create(box.NewBoxSpec{
		Categorie:      "Men Boulder",
		RoutesCount:    1,
		HoldsCounts:    []int{25},
		TimerPresetSec: 300,
		Competitors:    []box.CompetitorInput{{Name: "A"}},
	})
	require.NoError(t, err)

	cmd := box.Command{
		BoxID:          b.BoxID,
		Type:           box.CmdInitRoute,
		SessionID:      b.SessionID,
		BoxVersion:     b.BoxVersion,
		RouteIndex:     1,
		HoldsCount:     25,
		TimerPresetSec: 300,
	}
	body, _ := json.Marshal(cmd)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/cmd", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+operatorToken(t, s))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out cmdResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, box.StatusOK, out.Status)
	require.EqualValues(t, 1, out.BoxVersion)
}

func TestHandleCmdRejectsStaleWrite(t *testing.T) {
	s, srv := newTestServer(t)
	b, err := s.registry.Create(box.NewBoxSpec{RoutesCount: 1, HoldsCounts: []int{25}, TimerPresetSec: 300})
	require.NoError(t, err)

	cmd := box.Command{
		BoxID:      b.BoxID,
		Type:       box.CmdInitRoute,
		SessionID:  "wrong-session",
		BoxVersion: 99,
		RouteIndex: 1,
	}
	body, _ := json.Marshal(cmd)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/cmd", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+operatorToken(t, s))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out cmdResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, box.StatusIgnored, out.Status)
	require.Equal(t, box.ReasonStale, out.Reason)
}

func TestHandleCmdWithoutTokenUnauthorized(t *testing.T) {
	_, srv := newTestServer(t)
	body, _ := json.Marshal(box.Command{BoxID: 0, Type: box.CmdInitRoute})
	resp, err := http.Post(srv.URL+"/api/cmd", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandleCmdRejectsOutOfScopeBox(t *testing.T) {
	s, srv := newTestServer(t)
	b, err := s.registry.Create(box.NewBoxSpec{RoutesCount: 1, HoldsCounts: []int{25}, TimerPresetSec: 300})
	require.NoError(t, err)

	cmd := box.Command{BoxID: b.BoxID, Type: box.CmdInitRoute, SessionID: b.SessionID, BoxVersion: b.BoxVersion, RouteIndex: 1}
	body, _ := json.Marshal(cmd)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/cmd", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+operatorToken(t, s, b.BoxID+1))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHandlePublicTokenAndBoxesAndRankings(t *testing.T) {
	s, srv := newTestServer(t)
	b, err := s.registry.Create(box.NewBoxSpec{
		Categorie:      "Women Lead",
		RoutesCount:    1,
		HoldsCounts:    []int{20},
		TimerPresetSec: 300,
		Competitors:    []box.CompetitorInput{{Name: "A"}},
	})
	require.NoError(t, err)
	s.dispatch(s.ctx, box.Command{
		BoxID: b.BoxID, Type: box.CmdInitRoute,
		SessionID: b.SessionID, BoxVersion: b.BoxVersion,
		RouteIndex: 1, HoldsCount: 20, TimerPresetSec: 300,
	})

	tokenBody, _ := json.Marshal(map[string]int{"boxId": b.BoxID})
	resp, err := http.Post(srv.URL+"/api/public/token", "application/json", bytes.NewReader(tokenBody))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tok tokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tok))
	require.NotEmpty(t, tok.AccessToken)

	boxesResp, err := http.Get(srv.URL + "/api/public/boxes?token=" + tok.AccessToken)
	require.NoError(t, err)
	defer boxesResp.Body.Close()
	var boxes []boxSummary
	require.NoError(t, json.NewDecoder(boxesResp.Body).Decode(&boxes))
	require.Len(t, boxes, 1)
	require.True(t, boxes[0].Initiated)

	rankResp, err := http.Get(srv.URL + "/api/public/rankings?token=" + tok.AccessToken)
	require.NoError(t, err)
	defer rankResp.Body.Close()
	require.Equal(t, http.StatusOK, rankResp.StatusCode)
}

func TestHandlePublicBoxesRejectsMissingToken(t *testing.T) {
	_, srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/public/boxes")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestOperatorWebSocketReceivesStateSnapshot(t *testing.T) {
	s, srv := newTestServer(t)
	b, err := s.registry.Create(box.NewBoxSpec{RoutesCount: 1, HoldsCounts: []int{25}, TimerPresetSec: 300,
		Competitors: []box.CompetitorInput{{Name: "A"}}})
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/" + strconv.Itoa(b.BoxID) + "?token=" + operatorToken(t, s)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	s.dispatch(s.ctx, box.Command{
		BoxID: b.BoxID, Type: box.CmdInitRoute,
		SessionID: b.SessionID, BoxVersion: b.BoxVersion,
		RouteIndex: 1, HoldsCount: 25, TimerPresetSec: 300,
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame struct {
		Type  string `json:"type"`
		BoxID int    `json:"boxId"`
	}
	var sawSnapshot bool
	for i := 0; i < 2; i++ {
		require.NoError(t, conn.ReadJSON(&frame))
		require.Equal(t, b.BoxID, frame.BoxID)
		if frame.Type == box.EventStateSnapshot {
			sawSnapshot = true
		}
	}
	require.True(t, sawSnapshot, "expected a STATE_SNAPSHOT frame among the broadcast events")
}
