package server

import (
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/climbbox/boxhub/authgate"
	"github.com/climbbox/boxhub/box"
	"github.com/climbbox/boxhub/hub"
	"github.com/climbbox/boxhub/logger"
	"github.com/climbbox/boxhub/ranking"
	"github.com/climbbox/boxhub/roster"
)

// setupRoutes registers every HTTP and WebSocket endpoint on mux.
func (s *BoxServer) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/cmd", s.authMw.RequireOperator(cmdBoxID)(s.handleCmd))
	mux.HandleFunc("GET /api/state/{boxId}", s.authMw.RequireOperator(authgate.BoxIDFromPath)(s.handleGetState))
	mux.HandleFunc("POST /api/admin/upload", s.authMw.RequireOperator(nil)(s.handleUpload))
	mux.HandleFunc("POST /api/admin/save_ranking", s.authMw.RequireOperator(nil)(s.handleSaveRanking))
	mux.HandleFunc("DELETE /api/admin/box/{boxId}", s.authMw.RequireOperator(authgate.BoxIDFromPath)(s.handleDeleteBox))

	mux.HandleFunc("POST /api/public/token", s.handlePublicToken)
	mux.HandleFunc("GET /api/public/boxes", s.authMw.RequireSpectator(s.handlePublicBoxes))
	mux.HandleFunc("GET /api/public/rankings", s.authMw.RequireSpectator(s.handlePublicRankings))

	mux.HandleFunc("/api/ws/{boxId}", s.handleOperatorWS)
	mux.HandleFunc("/api/public/ws/{boxId}", s.handleSpectatorWS)
	mux.HandleFunc("/api/public/ws", s.handlePublicAggregateWS)
}

// cmdBoxID extracts the box id a POST /api/cmd body targets, for the
// operator-scope check; the body hasn't been read yet at auth time, so
// this reports not-ok and lets handleCmd re-check scope once it has.
func cmdBoxID(r *http.Request) (int, bool) {
	return 0, false
}

func (s *BoxServer) handleCmd(w http.ResponseWriter, r *http.Request) {
	var cmd box.Command
	if err := readJSON(w, r, &cmd); err != nil {
		return
	}

	claims := authgate.ClaimsFromContext(r.Context())
	if claims != nil && !claims.Allows(cmd.BoxID) {
		writeError(w, http.StatusForbidden, "token does not authorize this box")
		return
	}

	result := s.dispatch(r.Context(), cmd)
	writeJSON(w, http.StatusOK, cmdResponse{
		Status:     result.Status,
		Reason:     result.Reason,
		BoxVersion: result.BoxVersion,
		SessionID:  result.SessionID,
	})
}

// handleDeleteBox tears a box down: every operator and spectator subscriber
// is evicted with CloseSuperseded before the box is removed from the
// registry, so no client is left holding a connection to a box id that can
// never answer again.
func (s *BoxServer) handleDeleteBox(w http.ResponseWriter, r *http.Request) {
	boxID, ok := authgate.BoxIDFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid boxId")
		return
	}
	if _, ok := s.registry.Get(boxID); !ok {
		writeError(w, http.StatusNotFound, "box not found")
		return
	}

	s.closeBoxSubscribers(boxID, hub.CloseSuperseded, "box_deleted")
	s.registry.Delete(boxID)

	s.snapshotMu.Lock()
	delete(s.snapshots, boxID)
	s.snapshotMu.Unlock()

	s.logger.Infow("box deleted", logger.FieldBoxID, boxID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *BoxServer) handleGetState(w http.ResponseWriter, r *http.Request) {
	boxID, ok := authgate.BoxIDFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid boxId")
		return
	}
	b, ok := s.registry.Get(boxID)
	if !ok {
		writeError(w, http.StatusNotFound, "box not found")
		return
	}
	snap := s.snapshotCacheFor(boxID).Full(b)
	writeJSON(w, http.StatusOK, snap)
}

// uploadRequest is the multipart form shape for POST /api/admin/upload:
// a "roster" CSV file plus scalar fields describing the category.
type uploadRequest struct {
	Categorie      string
	RoutesCount    int
	HoldsCounts    []int
	TimerPresetSec int
}

func (s *BoxServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("roster")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing roster file")
		return
	}
	defer file.Close()

	competitors, err := roster.Parse(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, err := parseUploadFields(r.MultipartForm)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.TimerPresetSec <= 0 {
		req.TimerPresetSec = s.cfg.Timer.DefaultPresetSec
	}

	b, err := s.registry.Create(box.NewBoxSpec{
		Categorie:      req.Categorie,
		RoutesCount:    req.RoutesCount,
		HoldsCounts:    req.HoldsCounts,
		Competitors:    competitors,
		TimerPresetSec: req.TimerPresetSec,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create box")
		return
	}

	s.logger.Infow("box created from roster upload",
		logger.FieldBoxID, b.BoxID, "competitors", len(competitors))
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"boxId":       b.BoxID,
		"competitors": len(competitors),
	})
}

func parseUploadFields(form *multipart.Form) (uploadRequest, error) {
	req := uploadRequest{
		Categorie:   firstValue(form, "categorie"),
		RoutesCount: 1,
	}
	if v := firstValue(form, "routesCount"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, err
		}
		req.RoutesCount = n
	}
	if v := firstValue(form, "timerPresetSec"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, err
		}
		req.TimerPresetSec = n
	}
	holds := form.Value["holdsCount"]
	if len(holds) == 0 {
		holds = make([]string, req.RoutesCount)
		for i := range holds {
			holds[i] = "0"
		}
	}
	req.HoldsCounts = make([]int, len(holds))
	for i, h := range holds {
		n, err := strconv.Atoi(h)
		if err != nil {
			return req, err
		}
		req.HoldsCounts[i] = n
	}
	return req, nil
}

func firstValue(form *multipart.Form, key string) string {
	if vs, ok := form.Value[key]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// saveRankingRequest is the body of POST /api/admin/save_ranking; the
// caller supplies each competitor's recorded scores (already on the box
// as ScoresByName/TimesByName, but passed explicitly so this stays a
// pure computation with no hidden read of box state the caller can't see).
type saveRankingRequest struct {
	Competitors     []ranking.Input `json:"competitors"`
	UseTimeTiebreak bool            `json:"useTimeTiebreak"`
}

func (s *BoxServer) handleSaveRanking(w http.ResponseWriter, r *http.Request) {
	var req saveRankingRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}
	for i := range req.Competitors {
		req.Competitors[i].UseTimeTiebreak = req.UseTimeTiebreak
	}
	ranked := ranking.Compute(req.Competitors)
	writeJSON(w, http.StatusOK, map[string]interface{}{"ranking": ranked})
}

func (s *BoxServer) handlePublicToken(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		BoxID int `json:"boxId"`
	}
	if err := readJSON(w, r, &req); err != nil {
		return
	}
	if _, ok := s.registry.Get(req.BoxID); !ok {
		writeError(w, http.StatusNotFound, "box not found")
		return
	}
	token, err := s.authMgr.IssueSpectatorToken(req.BoxID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		ExpiresIn:   s.cfg.Spectator.TTLSec,
	})
}

func (s *BoxServer) handlePublicBoxes(w http.ResponseWriter, r *http.Request) {
	boxes := s.registry.ListInitiated()
	out := make([]boxSummary, 0, len(boxes))
	for _, b := range boxes {
		snap := s.snapshotCacheFor(b.BoxID).Public(b)
		out = append(out, boxSummary{
			BoxID:          b.BoxID,
			Categorie:      snap.Categorie,
			Initiated:      snap.Initiated,
			TimerState:     string(snap.TimerState),
			CurrentClimber: snap.CurrentClimber,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *BoxServer) handlePublicRankings(w http.ResponseWriter, r *http.Request) {
	boxes := s.registry.ListInitiated()
	out := make([]interface{}, 0, len(boxes))
	for _, b := range boxes {
		out = append(out, s.snapshotCacheFor(b.BoxID).Public(b))
	}
	writeJSON(w, http.StatusOK, publicRankingsResponse{Type: box.EventBoxRankingUpdate, Boxes: out})
}
