package stream

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/boostedcalls/boostedcalls/internal/events"
)

func newTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/events/stream", h.Stream)
	return r
}

// readFrame reads one SSE frame (lines up to and including the blank line).
func readFrame(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	var sb strings.Builder
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("reading frame: %v", err)
		}
		if line == "\n" {
			return sb.String()
		}
		sb.WriteString(line)
	}
}

// waitForSubscribers polls until the hub reports n registrations on channel.
func waitForSubscribers(t *testing.T, hub *events.Hub, channel string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.SubscriberCount(channel) == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("channel %q never reached %d subscribers (have %d)", channel, n, hub.SubscriberCount(channel))
}

func TestStream_MissingChannelsParam(t *testing.T) {
	hub := events.NewHub(nil)
	router := newTestRouter(NewHandler(hub, nil))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/events/stream", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); strings.Contains(ct, "text/event-stream") {
		t.Error("no stream should be opened on a bad request")
	}
	if hub.ChannelCount() != 0 {
		t.Errorf("expected no subscriptions, got %d channels", hub.ChannelCount())
	}
}

func TestStream_EmptyChannelsParam(t *testing.T) {
	hub := events.NewHub(nil)
	router := newTestRouter(NewHandler(hub, nil))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/events/stream?channels=", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestStream_ConnectedFrameAndDelivery(t *testing.T) {
	hub := events.NewHub(nil)
	srv := httptest.NewServer(newTestRouter(NewHandler(hub, nil)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/events/stream?channels=foo")
	if err != nil {
		t.Fatalf("opening stream: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Errorf("unexpected content type %q", ct)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-cache, no-transform" {
		t.Errorf("unexpected cache-control %q", cc)
	}

	reader := bufio.NewReader(resp.Body)

	first := readFrame(t, reader)
	if !strings.Contains(first, `"type":"connected"`) {
		t.Errorf("first frame is not the connected ack: %q", first)
	}
	if !strings.Contains(first, `"foo"`) {
		t.Errorf("connected ack does not name the channel: %q", first)
	}

	waitForSubscribers(t, hub, "foo", 1)
	hub.Emit("foo", events.Payload{"type": "x"})

	second := readFrame(t, reader)
	if !strings.Contains(second, `"channel":"foo"`) || !strings.Contains(second, `"type":"x"`) {
		t.Errorf("event frame missing channel or type: %q", second)
	}
}

func TestStream_MultipleChannels(t *testing.T) {
	hub := events.NewHub(nil)
	srv := httptest.NewServer(newTestRouter(NewHandler(hub, nil)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/events/stream?channels=campaigns,call:abc")
	if err != nil {
		t.Fatalf("opening stream: %v", err)
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	readFrame(t, reader) // connected ack

	waitForSubscribers(t, hub, "campaigns", 1)
	waitForSubscribers(t, hub, "call:abc", 1)

	hub.Emit("call:abc", events.Payload{"type": "call.updated", "callId": "abc"})
	frame := readFrame(t, reader)
	if !strings.Contains(frame, `"channel":"call:abc"`) {
		t.Errorf("expected per-call channel in frame: %q", frame)
	}
}

func TestStream_KeepAlive(t *testing.T) {
	hub := events.NewHub(nil)
	h := NewHandler(hub, nil, WithKeepAliveInterval(30*time.Millisecond))
	srv := httptest.NewServer(newTestRouter(h))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/events/stream?channels=foo")
	if err != nil {
		t.Fatalf("opening stream: %v", err)
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	readFrame(t, reader) // connected ack

	frame := readFrame(t, reader)
	if !strings.HasPrefix(frame, ": ping") {
		t.Errorf("expected keep-alive comment frame, got %q", frame)
	}
}

func TestStream_CleanupOnDisconnect(t *testing.T) {
	hub := events.NewHub(nil)
	srv := httptest.NewServer(newTestRouter(NewHandler(hub, nil)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/events/stream?channels=foo,bar")
	if err != nil {
		t.Fatalf("opening stream: %v", err)
	}

	reader := bufio.NewReader(resp.Body)
	readFrame(t, reader)
	waitForSubscribers(t, hub, "foo", 1)
	waitForSubscribers(t, hub, "bar", 1)

	resp.Body.Close()

	waitForSubscribers(t, hub, "foo", 0)
	waitForSubscribers(t, hub, "bar", 0)
	if hub.ChannelCount() != 0 {
		t.Errorf("expected all channels pruned after disconnect, got %d", hub.ChannelCount())
	}
}

func TestConnection_CloseIdempotent(t *testing.T) {
	conn := newConnection(nil)

	calls := 0
	conn.retain(func() { calls++ })

	conn.close()
	conn.close()

	if calls != 1 {
		t.Errorf("cancel handle invoked %d times, want 1", calls)
	}

	// Sends after close must be silently dropped.
	conn.send([]byte("data: {}\n\n"))
	select {
	case <-conn.queue:
		t.Error("frame enqueued after close")
	default:
	}
}
