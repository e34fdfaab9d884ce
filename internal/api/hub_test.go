package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/webstone-core/internal/protocol"
	"github.com/nerrad567/webstone-core/internal/registry"
	"github.com/nerrad567/webstone-core/internal/session"
)

func newHubClient(t *testing.T, h *Hub, buffer int) *Client {
	t.Helper()
	c := newClient(h, nil, buffer)
	c.session = session.New(time.Now(), time.Minute, func() {})
	c.id = c.session.ID()
	t.Cleanup(c.session.Close)
	h.Register(c)
	return c
}

func drain(c *Client) []protocol.Type {
	var out []protocol.Type
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return out
			}
			var env protocol.Envelope
			if err := json.Unmarshal(data, &env); err == nil {
				out = append(out, env.Type)
			}
		default:
			return out
		}
	}
}

func TestHub_BroadcastReachesOnlySubscribers(t *testing.T) {
	h := NewHub(testWSConfig(), testLogger())
	dir := registry.NewDirectory()
	user, _ := dir.GetOrCreate(uuid.New())

	public := newHubClient(t, h, 8)
	private := newHubClient(t, h, 8)
	idle := newHubClient(t, h, 8)

	h.Subscribe(public, registry.PublicID)
	h.Subscribe(private, user.ID())

	h.BlockList(dir.Public())
	h.GroupList(user)

	if got := drain(public); len(got) != 1 || got[0] != protocol.TypeBlocks {
		t.Errorf("public client got %v", got)
	}
	if got := drain(private); len(got) != 1 || got[0] != protocol.TypeBlockGroups {
		t.Errorf("private client got %v", got)
	}
	if got := drain(idle); len(got) != 0 {
		t.Errorf("unsubscribed client got %v", got)
	}
}

func TestHub_RegistryListSkipsUnauthenticated(t *testing.T) {
	h := NewHub(testWSConfig(), testLogger())
	dir := registry.NewDirectory()

	fresh := newHubClient(t, h, 8)
	authed := newHubClient(t, h, 8)
	if err := authed.session.CommitAuthenticated(); err != nil {
		t.Fatalf("CommitAuthenticated() error = %v", err)
	}

	h.RegistryList(dir)

	if got := drain(fresh); len(got) != 0 {
		t.Errorf("unauthenticated client got %v", got)
	}
	if got := drain(authed); len(got) != 1 || got[0] != protocol.TypeBlockLists {
		t.Errorf("authenticated client got %v", got)
	}
}

func TestHub_FullBufferDoesNotBlock(t *testing.T) {
	h := NewHub(testWSConfig(), testLogger())
	dir := registry.NewDirectory()

	slow := newHubClient(t, h, 1)
	fast := newHubClient(t, h, 8)
	h.Subscribe(slow, registry.PublicID)
	h.Subscribe(fast, registry.PublicID)

	for range 3 {
		h.BlockList(dir.Public())
	}

	if got := drain(slow); len(got) != 1 {
		t.Errorf("slow client got %d frames, want 1", len(got))
	}
	if got := drain(fast); len(got) != 3 {
		t.Errorf("fast client got %d frames, want 3", len(got))
	}
}

func TestHub_Unregister(t *testing.T) {
	h := NewHub(testWSConfig(), testLogger())
	c := newHubClient(t, h, 8)
	h.Subscribe(c, registry.PublicID)

	h.Unregister(c)
	h.Unregister(c)

	if h.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d", h.ClientCount())
	}
	if h.SubscriberCount(registry.PublicID) != 0 {
		t.Errorf("SubscriberCount() = %d", h.SubscriberCount(registry.PublicID))
	}
	if !c.isClosed() {
		t.Error("client not closed")
	}
	if c.trySend([]byte("{}")) {
		t.Error("trySend() on closed client returned true")
	}
	if c.closeCode != websocket.CloseNormalClosure {
		t.Errorf("close code = %d", c.closeCode)
	}
}

func TestHub_CloseAll(t *testing.T) {
	h := NewHub(testWSConfig(), testLogger())
	a := newHubClient(t, h, 8)
	b := newHubClient(t, h, 8)

	h.closeAll()

	for _, c := range []*Client{a, b} {
		if c.closeCode != websocket.CloseGoingAway || c.closeText == "" {
			t.Errorf("close = %d %q", c.closeCode, c.closeText)
		}
	}
}

func TestClient_CloseKeepsFirstCode(t *testing.T) {
	h := NewHub(testWSConfig(), testLogger())
	c := newClient(h, nil, 0)

	c.close(websocket.ClosePolicyViolation, "bad")
	c.close(websocket.CloseNormalClosure, "")

	want := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad")
	if got := c.closeFrame(); string(got) != string(want) {
		t.Errorf("closeFrame() = %v, want %v", got, want)
	}
	if cap(c.send) != defaultSendBuffer {
		t.Errorf("default buffer = %d", cap(c.send))
	}
}

func TestHub_RetainDropsClearedRegistries(t *testing.T) {
	h := NewHub(testWSConfig(), testLogger())
	dir := registry.NewDirectory()
	user, _ := dir.GetOrCreate(uuid.New())

	public := newHubClient(t, h, 8)
	private := newHubClient(t, h, 8)
	for _, c := range []*Client{public, private} {
		if err := c.session.CommitAuthenticated(); err != nil {
			t.Fatalf("CommitAuthenticated() error = %v", err)
		}
	}
	if err := public.session.Subscribe(registry.PublicID); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if err := private.session.Subscribe(user.ID()); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	h.Subscribe(public, registry.PublicID)
	h.Subscribe(private, user.ID())

	dir.Clear()
	h.Retain(dir)

	if n := h.SubscriberCount(user.ID()); n != 0 {
		t.Errorf("cleared registry still has %d subscribers", n)
	}
	if n := h.SubscriberCount(registry.PublicID); n != 1 {
		t.Errorf("public registry has %d subscribers, want 1", n)
	}
	if got := private.session.State(); got != session.StateAuthenticated {
		t.Errorf("orphaned session state = %s, want AUTHENTICATED", got)
	}
	if got := public.session.State(); got != session.StateSubscribed {
		t.Errorf("public session state = %s, want SUBSCRIBED", got)
	}
	if private.isClosed() {
		t.Error("orphaned client was closed")
	}
}
