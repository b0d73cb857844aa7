package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/climbbox/boxhub/authgate"
	"github.com/climbbox/boxhub/box"
	"github.com/climbbox/boxhub/hub"
	"github.com/climbbox/boxhub/logger"
)

func (s *BoxServer) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.checkOrigin(origin)
		},
	}
}

// handleOperatorWS upgrades /api/ws/{boxId} for a full-control connection:
// every command type plus REQUEST_STATE, fanned out through the operator hub.
func (s *BoxServer) handleOperatorWS(w http.ResponseWriter, r *http.Request) {
	boxID, ok := authgate.BoxIDFromPath(r)
	if !ok {
		http.Error(w, "invalid boxId", http.StatusBadRequest)
		return
	}
	claims, err := s.authMgr.Validate(authgate.ExtractToken(r))
	if err != nil || claims.Role != authgate.RoleOperator || !claims.Allows(boxID) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if _, ok := s.registry.Get(boxID); !ok {
		http.Error(w, "box not found", http.StatusNotFound)
		return
	}

	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debugw("operator ws upgrade failed", logger.FieldError, err.Error())
		return
	}

	sub := hub.NewSubscriber(uuid.NewString(), boxID, hub.RoleOperator, conn, s.cfg.Hub.SubscriberQueueDepth)
	unregister := s.operatorHub.Register(boxID, sub)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer unregister()
		sub.WritePump(s.operatorHub.PingInterval())
	}()

	sub.ReadPump(s.operatorHub.PongTimeout(), func(msg []byte) {
		s.handleOperatorFrame(boxID, sub, msg)
	})
}

func (s *BoxServer) handleOperatorFrame(boxID int, sub *hub.Subscriber, msg []byte) {
	if hub.IsRequestState(msg) {
		b, ok := s.registry.Get(boxID)
		if !ok {
			return
		}
		snap := s.snapshotCacheFor(boxID).Full(b)
		sub.TrySend(hub.Frame{Type: box.EventStateSnapshot, BoxID: boxID, Payload: snap})
		return
	}

	var cmd box.Command
	if err := json.Unmarshal(msg, &cmd); err != nil {
		return
	}
	cmd.BoxID = boxID
	s.dispatch(s.ctx, cmd)
}

// handleSpectatorWS upgrades /api/public/ws/{boxId}: box-scoped, read-only,
// answers REQUEST_STATE with a redacted snapshot and otherwise just relays
// the public hub's broadcasts.
func (s *BoxServer) handleSpectatorWS(w http.ResponseWriter, r *http.Request) {
	boxID, ok := authgate.BoxIDFromPath(r)
	if !ok {
		http.Error(w, "invalid boxId", http.StatusBadRequest)
		return
	}
	if _, err := s.authMw.ValidateSpectator(authgate.ExtractToken(r), boxID); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	b, ok := s.registry.Get(boxID)
	if !ok {
		http.Error(w, "box not found", http.StatusNotFound)
		return
	}

	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debugw("spectator ws upgrade failed", logger.FieldError, err.Error())
		return
	}

	sub := hub.NewSubscriber(uuid.NewString(), boxID, hub.RoleSpectator, conn, s.cfg.Hub.SubscriberQueueDepth)
	unregister := s.publicHub.Register(boxID, sub)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer unregister()
		sub.WritePump(s.publicHub.PingInterval())
	}()

	sub.ReadPump(s.publicHub.PongTimeout(), func(msg []byte) {
		if !hub.IsRequestState(msg) {
			return
		}
		snap := s.snapshotCacheFor(boxID).Public(b)
		sub.TrySend(hub.Frame{Type: box.EventPublicStateSnapshot, BoxID: boxID, Payload: snap})
	})
}

// handlePublicAggregateWS upgrades /api/public/ws: one connection follows
// several boxes rather than subscribing per-box. The same subscriber is
// registered in the public hub under every box that is initiated at
// connect time; a box initiated later is not added, though a REQUEST_STATE
// answer covers every box initiated at that moment.
func (s *BoxServer) handlePublicAggregateWS(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authMw.ValidateSpectatorAny(authgate.ExtractToken(r)); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debugw("public aggregate ws upgrade failed", logger.FieldError, err.Error())
		return
	}

	sub := hub.NewSubscriber(uuid.NewString(), 0, hub.RoleSpectator, conn, s.cfg.Hub.SubscriberQueueDepth)

	var unregisters []func()
	for _, b := range s.registry.ListInitiated() {
		unregisters = append(unregisters, s.publicHub.Register(b.BoxID, sub))
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			for _, fn := range unregisters {
				fn()
			}
		}()
		sub.WritePump(s.publicHub.PingInterval())
	}()

	sub.ReadPump(s.publicHub.PongTimeout(), func(msg []byte) {
		if !hub.IsRequestState(msg) {
			return
		}
		for _, b := range s.registry.ListInitiated() {
			snap := s.snapshotCacheFor(b.BoxID).Public(b)
			sub.TrySend(hub.Frame{Type: box.EventPublicStateSnapshot, BoxID: b.BoxID, Payload: snap})
		}
	})
}
