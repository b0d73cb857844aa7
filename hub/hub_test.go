package hub

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/climbbox/boxhub/box"
)

// fakeSubscriber builds a Subscriber without a queue-touching connection,
// for tests that only exercise register/broadcast bookkeeping against the
// subscriber's send channel and never reach evict's conn writes.
func fakeSubscriber(boxID int, queueDepth int) *Subscriber {
	return &Subscriber{
		ID:     "sub-test",
		BoxID:  boxID,
		Role:   RoleOperator,
		send:   make(chan Frame, queueDepth),
		closed: make(chan struct{}),
	}
}

// dialSubscriber spins up a real WebSocket server+client pair so tests that
// exercise eviction (which writes a close control frame to the connection)
// have a genuine *websocket.Conn to write to.
func dialSubscriber(t *testing.T, boxID int, queueDepth int) *Subscriber {
	t.Helper()
	var upgrader websocket.Upgrader
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		<-r.Context().Done()
		conn.Close()
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + srv.URL[len("http"):]
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return NewSubscriber("sub-test", boxID, RoleOperator, conn, queueDepth)
}

func TestRegisterAndBroadcast(t *testing.T) {
	h := New(Config{SubscriberQueueDepth: 4})
	sub := fakeSubscriber(1, 4)
	unregister := h.Register(1, sub)
	defer unregister()

	if got := h.SubscriberCount(1); got != 1 {
		t.Fatalf("SubscriberCount = %d, want 1", got)
	}

	h.Broadcast(1, []box.Event{{Type: "STATE_SNAPSHOT", BoxID: 1, Payload: "x"}})

	select {
	case frame := <-sub.send:
		if frame.Type != "STATE_SNAPSHOT" || frame.BoxID != 1 {
			t.Fatalf("unexpected frame: %+v", frame)
		}
	default:
		t.Fatal("expected a frame on the subscriber's queue")
	}
}

func TestBroadcastIgnoresOtherBoxes(t *testing.T) {
	h := New(Config{SubscriberQueueDepth: 4})
	sub := fakeSubscriber(1, 4)
	unregister := h.Register(1, sub)
	defer unregister()

	h.Broadcast(2, []box.Event{{Type: "STATE_SNAPSHOT", BoxID: 2}})

	select {
	case frame := <-sub.send:
		t.Fatalf("unexpected frame delivered to box 1 subscriber: %+v", frame)
	default:
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	h := New(Config{SubscriberQueueDepth: 4})
	sub := fakeSubscriber(1, 4)
	unregister := h.Register(1, sub)

	unregister()
	unregister()

	if got := h.SubscriberCount(1); got != 0 {
		t.Fatalf("SubscriberCount after unregister = %d, want 0", got)
	}
	select {
	case _, ok := <-sub.send:
		if ok {
			t.Fatal("send channel should be closed, not have a value")
		}
	default:
		t.Fatal("send channel should be closed")
	}
}

func TestBroadcastEvictsSlowConsumer(t *testing.T) {
	h := New(Config{SubscriberQueueDepth: 1})
	sub := dialSubscriber(t, 1, 1)
	h.Register(1, sub)

	h.Broadcast(1, []box.Event{{Type: "A", BoxID: 1}})
	h.Broadcast(1, []box.Event{{Type: "B", BoxID: 1}})

	if got := h.SubscriberCount(1); got != 0 {
		t.Fatalf("slow subscriber should have been evicted, count = %d", got)
	}
}

func TestCloseBoxEvictsEverySubscriber(t *testing.T) {
	h := New(Config{SubscriberQueueDepth: 4})
	a := dialSubscriber(t, 1, 4)
	b := dialSubscriber(t, 1, 4)
	h.Register(1, a)
	h.Register(1, b)

	h.CloseBox(1, CloseSuperseded, "box_deleted")

	if got := h.SubscriberCount(1); got != 0 {
		t.Fatalf("SubscriberCount after CloseBox = %d, want 0", got)
	}
	select {
	case <-a.send:
	case <-time.After(time.Second):
		t.Fatal("subscriber a's send channel should be closed")
	}
}

func TestBroadcastDoesNotPanicRacingUnregister(t *testing.T) {
	h := New(Config{SubscriberQueueDepth: 1})
	sub := dialSubscriber(t, 1, 1)
	unregister := h.Register(1, sub)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			h.Broadcast(1, []box.Event{{Type: "A", BoxID: 1}})
		}
	}()
	go func() {
		defer wg.Done()
		unregister()
	}()
	wg.Wait()
}

func TestNewAppliesDefaults(t *testing.T) {
	h := New(Config{})
	if h.QueueDepth() != 64 {
		t.Fatalf("default QueueDepth = %d, want 64", h.QueueDepth())
	}
	if h.PingInterval() != 30*time.Second {
		t.Fatalf("default PingInterval = %v, want 30s", h.PingInterval())
	}
	if h.PongTimeout() != 60*time.Second {
		t.Fatalf("default PongTimeout = %v, want 60s", h.PongTimeout())
	}
}
