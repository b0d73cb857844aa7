// Package hub fans box events out to connected WebSocket subscribers: a
// mutex-guarded subscriber set per box, a bounded per-subscriber send
// queue that evicts slow consumers rather than blocking the box's writer,
// and the heartbeat discipline (ping/pong) that detects dead connections.
package hub

import (
	"sync"
	"time"

	"github.com/climbbox/boxhub/box"
	"github.com/climbbox/boxhub/logger"
)

// Close codes, matching the wire contract every subscriber handler closes with.
const (
	CloseNormal        = 1000
	CloseUnauthorized   = 4401
	CloseForbidden      = 4403
	CloseSlowConsumer   = 4408
	CloseSuperseded     = 4409
)

// Frame is one outbound WebSocket text frame: an event envelope already
// shaped for JSON encoding by the caller.
type Frame struct {
	Type    string      `json:"type"`
	BoxID   int         `json:"boxId"`
	Payload interface{} `json:"payload,omitempty"`
}

// Config bounds a Hub's per-subscriber queue and heartbeat cadence.
type Config struct {
	SubscriberQueueDepth int
	PingInterval         time.Duration
	PongTimeout          time.Duration
}

// Hub owns every subscriber across every box, fanning out events box by box
// so one box's slow subscriber never delays another box's broadcast.
type Hub struct {
	cfg Config

	mu    sync.RWMutex
	boxes map[int]map[*Subscriber]struct{}
}

// New returns an empty Hub using cfg for every subscriber it registers.
func New(cfg Config) *Hub {
	if cfg.SubscriberQueueDepth <= 0 {
		cfg.SubscriberQueueDepth = 64
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = 60 * time.Second
	}
	return &Hub{
		cfg:   cfg,
		boxes: make(map[int]map[*Subscriber]struct{}),
	}
}

// Register adds a subscriber to a box's fan-out set, returning an unregister
// func the caller must run (typically via defer) when the connection ends.
func (h *Hub) Register(boxID int, sub *Subscriber) func() {
	h.mu.Lock()
	set, ok := h.boxes[boxID]
	if !ok {
		set = make(map[*Subscriber]struct{})
		h.boxes[boxID] = set
	}
	set[sub] = struct{}{}
	n := len(set)
	h.mu.Unlock()

	logger.Logger.Debugw("subscriber registered",
		logger.FieldBoxID, boxID, logger.FieldSubscriber, sub.ID, "count", n)

	var once sync.Once
	return func() {
		once.Do(func() { h.unregister(boxID, sub) })
	}
}

func (h *Hub) unregister(boxID int, sub *Subscriber) {
	h.mu.Lock()
	set, ok := h.boxes[boxID]
	if ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.boxes, boxID)
		}
	}
	h.mu.Unlock()
	sub.closeSend()

	logger.Logger.Debugw("subscriber unregistered",
		logger.FieldBoxID, boxID, logger.FieldSubscriber, sub.ID)
}

// Broadcast fans a set of box events out to every subscriber of that box, in
// the order given. A subscriber whose queue is already full is evicted
// (slow_consumer) rather than allowed to stall the rest of the fan-out.
func (h *Hub) Broadcast(boxID int, events []box.Event) {
	if len(events) == 0 {
		return
	}
	h.mu.RLock()
	set := h.boxes[boxID]
	subs := make([]*Subscriber, 0, len(set))
	for s := range set {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	frames := make([]Frame, len(events))
	for i, ev := range events {
		frames[i] = Frame{Type: ev.Type, BoxID: boxID, Payload: ev.Payload}
	}

	slowSet := make(map[*Subscriber]struct{})
	for _, sub := range subs {
		for _, frame := range frames {
			if !sub.TrySend(frame) {
				slowSet[sub] = struct{}{}
			}
		}
	}

	for sub := range slowSet {
		sub.evict(CloseSlowConsumer, "slow_consumer")
		h.unregister(boxID, sub)
	}
}

// CloseBox evicts every subscriber of boxID with the given close code,
// used for a box's destruction (4409) and on server shutdown (1000).
func (h *Hub) CloseBox(boxID int, code int, reason string) {
	h.mu.Lock()
	set := h.boxes[boxID]
	subs := make([]*Subscriber, 0, len(set))
	for s := range set {
		subs = append(subs, s)
	}
	delete(h.boxes, boxID)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.evict(code, reason)
		sub.closeSend()
	}
}

// SubscriberCount returns how many subscribers currently watch boxID.
func (h *Hub) SubscriberCount(boxID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.boxes[boxID])
}

// PingInterval, PongTimeout and QueueDepth expose the hub's tuning so
// subscriber pumps can honor it.
func (h *Hub) PingInterval() time.Duration { return h.cfg.PingInterval }
func (h *Hub) PongTimeout() time.Duration  { return h.cfg.PongTimeout }
func (h *Hub) QueueDepth() int             { return h.cfg.SubscriberQueueDepth }
