package api

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/netsyncd/netsync-core/internal/infrastructure/config"
	"github.com/netsyncd/netsync-core/internal/infrastructure/logging"
	"github.com/netsyncd/netsync-core/internal/sync"
)

// newTestClient registers a hand-made client on the hub. The client has
// no network connection; messages land in its send channel.
func newTestClient(t *testing.T, hub *Hub, channels ...string) *WSClient {
	t.Helper()

	client := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}),
	}
	for _, ch := range channels {
		client.subscriptions[ch] = struct{}{}
	}
	hub.Register(client)
	t.Cleanup(func() {
		if hub.ClientCount() > 0 {
			hub.Unregister(client)
		}
	})
	return client
}

func newTestHub() *Hub {
	return NewHub(config.WebSocketConfig{
		MaxMessageSize: 8192,
		PingInterval:   30,
		PongTimeout:    10,
	}, logging.Default())
}

// receive returns the next message from the client or fails the test.
func receive(t *testing.T, client *WSClient) WSMessage {
	t.Helper()

	select {
	case data := <-client.send:
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal broadcast: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
		return WSMessage{}
	}
}

func TestBroadcastReachesSubscribers(t *testing.T) {
	hub := newTestHub()
	subscribed := newTestClient(t, hub, ChannelRunStarted)
	other := newTestClient(t, hub, ChannelRunCompleted)

	hub.Broadcast(ChannelRunStarted, map[string]any{"run_id": "run-ab12cd34"})

	msg := receive(t, subscribed)
	if msg.Type != WSTypeEvent {
		t.Errorf("type = %q, want %q", msg.Type, WSTypeEvent)
	}
	if msg.EventType != ChannelRunStarted {
		t.Errorf("event type = %q, want %q", msg.EventType, ChannelRunStarted)
	}

	select {
	case <-other.send:
		t.Error("unsubscribed client received the broadcast")
	default:
	}
}

func TestUnregisterClosesSendChannel(t *testing.T) {
	hub := newTestHub()
	client := newTestClient(t, hub, ChannelRunStarted)

	hub.Unregister(client)

	if _, open := <-client.send; open {
		t.Error("send channel still open after Unregister")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("client count = %d, want 0", hub.ClientCount())
	}

	// Broadcast after disconnect must not panic
	hub.Broadcast(ChannelRunStarted, map[string]any{"run_id": "run-ab12cd34"})
}

func TestHubObserver(t *testing.T) {
	hub := newTestHub()
	started := newTestClient(t, hub, ChannelRunStarted)
	synced := newTestClient(t, hub, ChannelDeviceSynced)
	failed := newTestClient(t, hub, ChannelDeviceFailed)
	completed := newTestClient(t, hub, ChannelRunCompleted)

	obs := NewHubObserver(hub)
	report := &sync.Report{RunID: "run-ab12cd34", Mode: sync.ModeSync}
	ctx := context.Background()

	obs.RunStarted(ctx, report)
	if msg := receive(t, started); msg.EventType != ChannelRunStarted {
		t.Errorf("event type = %q", msg.EventType)
	}

	obs.DeviceCompleted(ctx, report, sync.DeviceResult{
		DeviceName: "sw-core-01",
		Status:     sync.DeviceSucceeded,
	})
	if msg := receive(t, synced); msg.EventType != ChannelDeviceSynced {
		t.Errorf("event type = %q", msg.EventType)
	}

	obs.DeviceCompleted(ctx, report, sync.DeviceResult{
		DeviceName: "sw-core-02",
		Status:     sync.DeviceFailed,
		Error:      "boom",
	})
	if msg := receive(t, failed); msg.EventType != ChannelDeviceFailed {
		t.Errorf("event type = %q", msg.EventType)
	}

	obs.DeviceCompleted(ctx, report, sync.DeviceResult{
		DeviceName: "sw-core-03",
		Status:     sync.DeviceNotAttempted,
	})
	select {
	case <-synced.send:
		t.Error("not-attempted device was broadcast")
	case <-failed.send:
		t.Error("not-attempted device was broadcast as failure")
	default:
	}

	obs.RunCompleted(ctx, report)
	if msg := receive(t, completed); msg.EventType != ChannelRunCompleted {
		t.Errorf("event type = %q", msg.EventType)
	}
}

func TestTicketSingleUse(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t)

	w := e.post(t, token, "/api/v1/auth/ws-ticket", "")
	if w.Code != 200 {
		t.Fatalf("ws-ticket status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Ticket string `json:"ticket"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Ticket == "" {
		t.Fatal("expected a non-empty ticket")
	}

	if _, ok := e.srv.validateTicket(resp.Ticket); !ok {
		t.Error("first validation failed")
	}
	if _, ok := e.srv.validateTicket(resp.Ticket); ok {
		t.Error("ticket validated twice; must be single-use")
	}
}
