package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lostFoundWs/internal/modules/realtime/domain"
)

type hubFixture struct {
	hub        *Hub
	registry   *ConnectionRegistry
	server     *httptest.Server
	clients    chan *Client
	startPumps bool
}

// newHubFixture serves sockets through Client.Serve, or with startPumps false only
// attaches them and leaves the handshake and the pumps out.
func newHubFixture(t *testing.T, cfg ClientConfig, commands *CommandProcessor, startPumps bool) *hubFixture {
	t.Helper()
	registry := NewConnectionRegistry(discardLogger())
	hub := NewHub(registry, discardLogger())
	f := &hubFixture{hub: hub, registry: registry, clients: make(chan *Client, 8), startPumps: startPumps}

	var seq atomic.Int64
	upgrader := websocket.Upgrader{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := strconv.ParseInt(r.URL.Query().Get("user"), 10, 64)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewClient(hub, conn, fmt.Sprintf("conn-%d", seq.Add(1)), userID, cfg, commands)
		if startPumps {
			go c.Serve()
		} else if err := hub.Attach(c); err != nil {
			return
		}
		f.clients <- c
	}))
	t.Cleanup(func() {
		hub.Close()
		f.server.Close()
	})
	return f
}

// dial connects as userID and, when the fixture runs the pumps, completes the hub
// handshake.
func (f *hubFixture) dial(t *testing.T, userID int64) (*websocket.Conn, *Client) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/?user=" + strconv.FormatInt(userID, 10)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	var c *Client
	select {
	case c = <-f.clients:
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted the client")
	}
	if f.startPumps {
		handshake(t, conn)
	}
	return conn, c
}

func handshake(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{\"protocol\":\"json\",\"version\":1}\x1e")))
	assert.Equal(t, "{}\x1e", string(readRaw(t, conn)))
}

func readRaw(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	return raw
}

type wireFrame struct {
	Type         int               `json:"type"`
	InvocationID string            `json:"invocationId"`
	Error        string            `json:"error"`
	Target       string            `json:"target"`
	Arguments    []json.RawMessage `json:"arguments"`
}

// readFrame reads one record; every record ends with the separator.
func readFrame(t *testing.T, conn *websocket.Conn) wireFrame {
	t.Helper()
	raw := readRaw(t, conn)
	require.True(t, len(raw) > 0 && raw[len(raw)-1] == recordSeparator, "record without separator: %q", raw)
	var frame wireFrame
	require.NoError(t, json.Unmarshal(raw[:len(raw)-1], &frame))
	return frame
}

func TestHub_SendUnknownConnection(t *testing.T) {
	hub := NewHub(NewConnectionRegistry(discardLogger()), discardLogger())
	err := hub.Send(context.Background(), "missing", domain.EventMessageSent, nil)
	assert.ErrorIs(t, err, ErrConnectionNotFound)
}

func TestHub_AttachRegistersAndSendDeliversFrame(t *testing.T) {
	f := newHubFixture(t, ClientConfig{}, nil, true)
	conn, client := f.dial(t, 7)

	assert.Equal(t, []string{client.ID()}, f.registry.ConnectionsFor(7))
	assert.Equal(t, 1, f.hub.ConnectionCount())

	msg := domain.ChatMessage{ID: 42, SenderID: 9, ReceiverID: 7, Content: "found your keys"}
	require.NoError(t, f.hub.Send(context.Background(), client.ID(), domain.EventReceiveMessage, msg))

	frame := readFrame(t, conn)
	assert.Equal(t, 1, frame.Type)
	assert.Equal(t, "ReceiveMessage", frame.Target)
	require.Len(t, frame.Arguments, 1)
	var got domain.ChatMessage
	require.NoError(t, json.Unmarshal(frame.Arguments[0], &got))
	assert.Equal(t, int64(42), got.ID)
	assert.Equal(t, "found your keys", got.Content)
}

func TestHub_TwoTabsOfOneUserAreBothRegistered(t *testing.T) {
	f := newHubFixture(t, ClientConfig{}, nil, true)
	connA, clientA := f.dial(t, 7)
	connB, clientB := f.dial(t, 7)

	assert.ElementsMatch(t, []string{clientA.ID(), clientB.ID()}, f.registry.ConnectionsFor(7))

	for _, id := range f.registry.ConnectionsFor(7) {
		require.NoError(t, f.hub.Send(context.Background(), id, domain.EventMessageRead, domain.MessageReadReceipt{MessageID: 5}))
	}
	assert.Equal(t, "MessageRead", readFrame(t, connA).Target)
	assert.Equal(t, "MessageRead", readFrame(t, connB).Target)
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	f := newHubFixture(t, ClientConfig{}, nil, true)
	conn, client := f.dial(t, 7)
	require.True(t, f.registry.Online(7))

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		return !f.registry.Online(7) && f.hub.ConnectionCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, f.hub.Send(context.Background(), client.ID(), domain.EventMessageSent, nil), ErrConnectionNotFound)
}

func TestHub_SlowConsumerIsDetached(t *testing.T) {
	f := newHubFixture(t, ClientConfig{SendBuffer: 1}, nil, false)
	_, client := f.dial(t, 7)

	require.NoError(t, f.hub.Send(context.Background(), client.ID(), domain.EventMessageSent, "first"))
	err := f.hub.Send(context.Background(), client.ID(), domain.EventMessageSent, "second")
	assert.ErrorIs(t, err, ErrSendBufferFull)

	require.Eventually(t, func() bool {
		return !f.registry.Online(7)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_CloseSendsGoingAway(t *testing.T) {
	f := newHubFixture(t, ClientConfig{}, nil, true)
	conn, _ := f.dial(t, 7)

	f.hub.Close()
	assert.False(t, f.registry.Online(7))
	assert.Zero(t, f.hub.ConnectionCount())

	closing := readFrame(t, conn)
	assert.Equal(t, 7, closing.Type)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.True(t, errors.As(err, &closeErr), "expected close error, got %v", err)
	assert.Equal(t, websocket.CloseGoingAway, closeErr.Code)
}

func TestHub_AttachAfterCloseLeavesNoRegistration(t *testing.T) {
	f := newHubFixture(t, ClientConfig{}, nil, false)
	_, first := f.dial(t, 7)
	f.hub.Close()
	require.False(t, f.registry.Online(7))
	assert.Error(t, f.hub.Attach(first))

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/?user=9"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Never(t, func() bool { return len(f.clients) > 0 }, 200*time.Millisecond, 10*time.Millisecond)
	assert.False(t, f.registry.Online(9))
	assert.Zero(t, f.registry.UserCount())
	assert.Zero(t, f.hub.ConnectionCount())
}

func TestHub_AttachOfClosedClientIsUndone(t *testing.T) {
	registry := NewConnectionRegistry(discardLogger())
	hub := NewHub(registry, discardLogger())
	c := &Client{id: "c1", userID: 7, hub: hub, done: make(chan struct{}), logger: discardLogger()}
	close(c.done)

	assert.ErrorIs(t, hub.Attach(c), ErrConnectionClosed)
	assert.False(t, registry.Online(7))
	assert.Zero(t, hub.ConnectionCount())
}

func TestClient_HandshakeGatesPushes(t *testing.T) {
	f := newHubFixture(t, ClientConfig{}, NewCommandProcessor(nil, discardLogger()), true)
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/?user=7"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	<-f.clients

	// not attached, hence not reachable, before the handshake
	assert.Never(t, func() bool { return f.registry.Online(7) }, 100*time.Millisecond, 10*time.Millisecond)

	// the handshake may share a message with the first invocation
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{\"protocol\":\"json\",\"version\":1}\x1e{\"type\":6}\x1e")))
	assert.Equal(t, "{}\x1e", string(readRaw(t, conn)))
	assert.True(t, f.registry.Online(7))
	assert.Equal(t, 6, readFrame(t, conn).Type)
}

func TestClient_HandshakeRejectsOtherProtocols(t *testing.T) {
	f := newHubFixture(t, ClientConfig{}, nil, true)
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/?user=7"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	<-f.clients

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{\"protocol\":\"messagepack\",\"version\":1}\x1e")))
	frame := readFrame(t, conn)
	assert.Contains(t, frame.Error, "messagepack")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	assert.False(t, f.registry.Online(7))
}

func TestClient_KeepAlivePings(t *testing.T) {
	f := newHubFixture(t, ClientConfig{KeepAliveInterval: 50 * time.Millisecond}, nil, true)
	conn, _ := f.dial(t, 7)

	assert.Equal(t, 6, readFrame(t, conn).Type)
	assert.Equal(t, 6, readFrame(t, conn).Type)
}

func TestClientConfig_Defaults(t *testing.T) {
	cfg := ClientConfig{PingInterval: time.Minute, PongWait: 30 * time.Second}.withDefaults()
	assert.Equal(t, 16, cfg.SendBuffer)
	assert.Equal(t, 27*time.Second, cfg.PingInterval)
	assert.Equal(t, 5*time.Second, cfg.WriteWait)
	assert.Equal(t, int64(1<<16), cfg.MaxMessageBytes)
	assert.Equal(t, 15*time.Second, cfg.KeepAliveInterval)
	assert.Equal(t, 15*time.Second, cfg.HandshakeTimeout)
}
