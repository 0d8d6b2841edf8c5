package telemetry

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/voxkey/voxkey/pkg/adapters/recognizer"
	"github.com/voxkey/voxkey/pkg/session"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}

func startServer(t *testing.T) (*Server, string) {
	t.Helper()
	addr := freeAddr(t)
	srv := NewServer(Config{ListenAddr: addr}, prometheus.NewRegistry(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get("http://" + addr + "/health")
		if err == nil {
			resp.Body.Close()
			return srv, addr
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("server never became healthy")
	return nil, ""
}

func TestServerStreamsEventsToSubscriber(t *testing.T) {
	t.Parallel()

	srv, addr := startServer(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/events", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give the server a beat to register the subscriber.
	time.Sleep(50 * time.Millisecond)

	srv.Publish(session.Event{
		Kind:      session.EventResult,
		SessionID: "s-1",
		Time:      time.Now(),
		Result:    &recognizer.Result{Processed: "Hello world.", Final: true},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var we wireEvent
	if err := json.Unmarshal(payload, &we); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if we.Kind != "result" || we.Text != "Hello world." || !we.Final {
		t.Fatalf("unexpected event: %+v", we)
	}
}

func TestServerServesMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "voxkey_test_total"})
	reg.MustRegister(c)
	c.Inc()

	addr := freeAddr(t)
	srv := NewServer(Config{ListenAddr: addr}, reg, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer srv.Stop()

	deadline := time.Now().Add(2 * time.Second)
	var body string
	for time.Now().Before(deadline) {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err == nil {
			buf := make([]byte, 1<<16)
			n, _ := resp.Body.Read(buf)
			resp.Body.Close()
			body = string(buf[:n])
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !strings.Contains(body, "voxkey_test_total 1") {
		t.Fatalf("metrics output missing counter: %q", body)
	}
}

func TestServerStopDisconnectsSubscribers(t *testing.T) {
	t.Parallel()

	srv, addr := startServer(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/events", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	time.Sleep(50 * time.Millisecond)

	if err := srv.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected read to fail after server stop")
	}
}
