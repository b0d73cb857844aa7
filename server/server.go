// Package server wires the box registry, hub, auth gate and rate limiter
// into the HTTP/WebSocket surface described in the external interfaces:
// command dispatch, state queries, roster upload, ranking save, and the
// operator/public WebSocket channels.
package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/climbbox/boxhub/authgate"
	"github.com/climbbox/boxhub/box"
	"github.com/climbbox/boxhub/config"
	"github.com/climbbox/boxhub/errors"
	"github.com/climbbox/boxhub/hub"
	"github.com/climbbox/boxhub/logger"
	"github.com/climbbox/boxhub/ratelimit"
)

// BoxServer is the whole coordination service: one registry of live boxes,
// two fan-out hubs (operator and public), one auth gate, one rate limiter,
// wired to an HTTP mux.
type BoxServer struct {
	cfg *config.Config

	registry    *box.Registry
	clock       box.Clock
	operatorHub *hub.Hub
	publicHub   *hub.Hub
	authMgr     *authgate.Manager
	authMw      *authgate.Middleware
	limiter     *ratelimit.Limiter

	snapshotMu sync.Mutex
	snapshots  map[int]*hub.SnapshotCache

	logger *zap.SugaredLogger

	httpServer *http.Server
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	state      atomic.Int32
}

// New builds a BoxServer from cfg. clock is injectable so tests can use a
// FakeClock; production callers pass box.RealClock{}.
func New(cfg *config.Config, clock box.Clock) (*BoxServer, error) {
	authMgr, err := authgate.NewManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.JWTIssuer,
		time.Duration(cfg.Auth.TokenLeewaySec)*time.Second,
		24*time.Hour,
		time.Duration(cfg.Spectator.TTLSec)*time.Second,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build auth manager")
	}

	ctx, cancel := context.WithCancel(context.Background())

	hubCfg := hub.Config{
		SubscriberQueueDepth: cfg.Hub.SubscriberQueueDepth,
		PingInterval:         time.Duration(cfg.Heartbeat.PingIntervalSec) * time.Second,
		PongTimeout:          time.Duration(cfg.Heartbeat.PongTimeoutSec) * time.Second,
	}

	s := &BoxServer{
		cfg:         cfg,
		registry:    box.NewRegistry(clock),
		clock:       clock,
		operatorHub: hub.New(hubCfg),
		publicHub:   hub.New(hubCfg),
		authMgr:     authMgr,
		authMw:      authgate.NewMiddleware(authMgr),
		limiter: ratelimit.New(ratelimit.Config{
			ProgressPerMin: cfg.RateLimit.ProgressPerMin,
			OtherPerMin:    cfg.RateLimit.OtherPerMin,
		}),
		snapshots: make(map[int]*hub.SnapshotCache),
		logger:    logger.ComponentLogger("server"),
		ctx:       ctx,
		cancel:    cancel,
	}
	return s, nil
}

func (s *BoxServer) snapshotCacheFor(boxID int) *hub.SnapshotCache {
	s.snapshotMu.Lock()
	defer s.snapshotMu.Unlock()
	c, ok := s.snapshots[boxID]
	if !ok {
		c = &hub.SnapshotCache{}
		s.snapshots[boxID] = c
	}
	return c
}

func (s *BoxServer) getState() ServerState {
	return ServerState(s.state.Load())
}

func (s *BoxServer) setState(state ServerState) {
	s.state.Store(int32(state))
	s.logger.Infow("server state changed", "new_state", state.String())
}

// Start binds the HTTP mux and listens on port, blocking until the server
// stops (due to Stop or a listener error).
func (s *BoxServer) Start(port int) error {
	actualPort, err := findAvailablePort(port)
	if err != nil {
		return errors.Wrap(err, "failed to find available port")
	}
	if actualPort != port {
		s.logger.Infow("port in use, using alternative", "requested_port", port, "actual_port", actualPort)
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.httpServer = &http.Server{
		Addr:    ":" + strconv.Itoa(actualPort),
		Handler: s.corsMiddleware(mux),
	}

	s.setState(ServerStateRunning)
	s.logger.Infow("server listening", "port", actualPort)

	err = s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop closes every box's subscribers on both hubs with a normal close
// code and shuts the HTTP server down. No terminal snapshot is sent to the
// subscribers before they are closed.
func (s *BoxServer) Stop() error {
	s.logger.Infow("initiating server shutdown")
	s.setState(ServerStateDraining)

	for _, b := range s.registry.List() {
		s.closeBoxSubscribers(b.BoxID, hub.CloseNormal, "server_shutdown")
	}

	s.cancel()

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Warnw("http server shutdown error", logger.FieldError, err.Error())
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Infow("all goroutines stopped cleanly")
	case <-time.After(ShutdownTimeout):
		s.logger.Warnw("goroutine shutdown timed out, forcing exit")
	}

	s.setState(ServerStateStopped)
	s.logger.Infow("server shutdown complete")
	return nil
}

func (s *BoxServer) closeBoxSubscribers(boxID int, code int, reason string) {
	s.operatorHub.CloseBox(boxID, code, reason)
	s.publicHub.CloseBox(boxID, code, reason)
}

// corsMiddleware sets CORS headers from the configured allowed origins,
// mirroring the check used at WebSocket handshake time.
func (s *BoxServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.checkOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *BoxServer) checkOrigin(origin string) bool {
	for _, allowed := range s.cfg.GetServerAllowedOrigins() {
		if strings.HasPrefix(origin, allowed) {
			return true
		}
	}
	return false
}

func isPortAvailable(port int) bool {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return false
	}
	_ = listener.Close()
	return true
}

// findAvailablePort tries the requested port, then ten ports above it.
func findAvailablePort(requestedPort int) (int, error) {
	if isPortAvailable(requestedPort) {
		return requestedPort, nil
	}
	for i := 1; i <= 10; i++ {
		if isPortAvailable(requestedPort + i) {
			return requestedPort + i, nil
		}
	}
	return 0, errors.Newf("no available port found near %d", requestedPort)
}
