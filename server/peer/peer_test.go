package peer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Sunmxt/linker-sketch/proto"
	"github.com/Sunmxt/linker-sketch/server"
	"github.com/Sunmxt/linker-sketch/server/canvas"
	"github.com/Sunmxt/linker-sketch/server/dig"
	"github.com/Sunmxt/linker-sketch/server/relay"
)

type lockedBuffer struct {
	lock sync.Mutex
	buf  bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.String()
}

func eventually(t *testing.T, what string, cond func() bool) {
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %v", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func testOptions(t *testing.T, address string) *PeerOptions {
	opts := NewPeerOptions()
	if err := opts.Relay.Set(address); err != nil {
		t.Fatal(err)
	}
	opts.HandshakeTimeout.Value = 2 * time.Second
	if err := opts.SetDefault(); err != nil {
		t.Fatal(err)
	}
	return opts
}

type testPeer struct {
	*Peer
	canvas  *canvas.Headless
	console *io.PipeWriter
	out     *lockedBuffer
	errc    chan error
}

func startPeer(t *testing.T, opts *PeerOptions) *testPeer {
	pr, pw := io.Pipe()
	tp := &testPeer{
		canvas:  canvas.NewHeadless("test-peer"),
		console: pw,
		out:     &lockedBuffer{},
		errc:    make(chan error, 1),
	}
	tp.Peer = New(opts, tp.canvas, pr, tp.out)
	if err := tp.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		tp.errc <- tp.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		pw.Close()
		tp.wait(t)
	})
	return tp
}

func (tp *testPeer) wait(t *testing.T) error {
	select {
	case err := <-tp.errc:
		tp.errc <- err
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("peer did not stop")
	}
	return nil
}

func (tp *testPeer) typeLine(line string) {
	io.WriteString(tp.console, line+"\n")
}

// startRelay runs a real relay and its management API.
func startRelay(t *testing.T) (*relay.Relay, *httptest.Server) {
	opts := relay.NewRelayOptions()
	opts.Endpoint.Set("127.0.0.1:0")
	r := relay.New(opts, nil, nil, nil)
	if err := r.Listen(); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	api := httptest.NewServer(r.Handler())
	t.Cleanup(func() {
		api.Close()
		cancel()
		<-done
	})
	return r, api
}

func relaySessions(t *testing.T, api *httptest.Server) int {
	resp, err := http.Get(api.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	health := &proto.HealthV1{}
	if err = json.NewDecoder(resp.Body).Decode(&proto.HTTPResponse{Data: health}); err != nil {
		t.Fatal(err)
	}
	return health.Sessions
}

func TestScenarioStrokeChatQuit(t *testing.T) {
	r, api := startRelay(t)
	address := r.Addr().String()

	a := startPeer(t, testOptions(t, address))
	b := startPeer(t, testOptions(t, address))
	if a.ID != 0 || b.ID != 1 {
		t.Fatalf("identities = %v, %v", a.ID, b.ID)
	}

	// Stroke reaches b and is not echoed to a.
	a.typeLine(":draw 10,20 30,40")
	want := proto.NewStroke(10, 20, 30, 40)
	eventually(t, "stroke at b", func() bool {
		lines := b.canvas.Lines()
		return len(lines) == 1 && lines[0] == want
	})

	// Chat is labelled with the sender.
	a.typeLine("hello")
	eventually(t, "chat at b", func() bool {
		return strings.Contains(b.out.String(), "Client[0]:hello\n")
	})
	if lines := a.canvas.Lines(); len(lines) != 1 {
		t.Fatalf("a drew %v", lines)
	}
	if a.out.String() != "" {
		t.Fatalf("a printed %q", a.out.String())
	}

	a.typeLine(":q")
	if err := a.wait(t); err != nil {
		t.Fatalf("a Run = %v", err)
	}
	eventually(t, "slot release", func() bool {
		return relaySessions(t, api) == 1
	})

	c := startPeer(t, testOptions(t, address))
	if c.ID != 0 {
		t.Fatalf("c identity = %v", c.ID)
	}
}

func TestOwnStrokesAreNotLogged(t *testing.T) {
	for _, logOwn := range []bool{false, true} {
		r, _ := startRelay(t)
		opts := testOptions(t, r.Addr().String())
		opts.LogOwnStrokes.Value = logOwn
		a := startPeer(t, opts)
		b := startPeer(t, testOptions(t, r.Addr().String()))

		a.typeLine(":draw 0,0 5,5")
		eventually(t, "stroke at b", func() bool {
			return len(b.canvas.Lines()) == 1
		})
		a.typeLine(":q")
		b.typeLine(":q")
		a.wait(t)
		b.wait(t)

		want := 0
		if logOwn {
			want = 1
		}
		if got := a.Strokes().Len(); got != want {
			t.Errorf("log-own-strokes=%v: sender log has %v strokes", logOwn, got)
		}
		if got := b.Strokes().Len(); got != 1 {
			t.Errorf("receiver log has %v strokes", got)
		}
	}
}

// fakeRelay accepts one connection and hands it to serve.
func fakeRelay(t *testing.T, serve func(conn net.Conn)) string {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		serve(conn)
	}()
	t.Cleanup(func() {
		listener.Close()
		<-done
	})
	return listener.Addr().String()
}

func sendMessage(conn net.Conn, msg proto.Message) {
	proto.WriteMessage(conn, msg)
}

func TestConnectRelayFull(t *testing.T) {
	address := fakeRelay(t, func(conn net.Conn) {
		sendMessage(conn, proto.Control{Kind: proto.CONTROL_FULL})
	})
	err := New(testOptions(t, address), nil, nil, nil).Connect(context.Background())
	if !server.IsCapacityError(err) || !errors.Is(err, proto.ErrRelayFull) {
		t.Fatalf("Connect = %v", err)
	}
}

func TestConnectHandshakeTimeout(t *testing.T) {
	hold := make(chan struct{})
	address := fakeRelay(t, func(conn net.Conn) {
		<-hold
	})
	defer close(hold)
	opts := testOptions(t, address)
	opts.HandshakeTimeout.Value = 100 * time.Millisecond
	err := New(opts, nil, nil, nil).Connect(context.Background())
	if !server.IsTransportError(err) {
		t.Fatalf("Connect = %v", err)
	}
}

func TestConnectBadIdentity(t *testing.T) {
	address := fakeRelay(t, func(conn net.Conn) {
		sendMessage(conn, proto.Chat{Sender: proto.NO_IDENTITY, Text: "welcome"})
	})
	err := New(testOptions(t, address), nil, nil, nil).Connect(context.Background())
	if !proto.IsDecodeError(err) {
		t.Fatalf("Connect = %v", err)
	}
}

func TestConnectRefused(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	address := listener.Addr().String()
	listener.Close()
	if err = New(testOptions(t, address), nil, nil, nil).Connect(context.Background()); !server.IsTransportError(err) {
		t.Fatalf("Connect = %v", err)
	}
}

func TestRunMalformedBroadcastIsFatal(t *testing.T) {
	address := fakeRelay(t, func(conn net.Conn) {
		proto.WriteFrame(conn, proto.EncodeIdentity(3))
		sendMessage(conn, proto.Control{Kind: proto.CONTROL_QUIT})
		sendMessage(conn, proto.Chat{Sender: 1, Text: "hi"})
		bad := make([]byte, proto.ENVELOPE_SIZE)
		copy(bad, "Q-what")
		proto.WriteFrame(conn, bad)
		io.Copy(io.Discard, conn)
	})
	out := &lockedBuffer{}
	p := New(testOptions(t, address), nil, nil, out)
	err := p.Run(context.Background())
	if !proto.IsDecodeError(err) {
		t.Fatalf("Run = %v", err)
	}
	if p.ID != 3 {
		t.Errorf("identity = %v", p.ID)
	}
	if out.String() != "Client[1]:hi\n" {
		t.Errorf("console = %q", out.String())
	}
}

func TestRunRelayLost(t *testing.T) {
	address := fakeRelay(t, func(conn net.Conn) {
		proto.WriteFrame(conn, proto.EncodeIdentity(0))
	})
	err := New(testOptions(t, address), nil, nil, nil).Run(context.Background())
	if !server.IsPeerDisconnect(err) {
		t.Fatalf("Run = %v", err)
	}
}

func TestRunCancelSendsQuit(t *testing.T) {
	got := make(chan proto.Message, 1)
	address := fakeRelay(t, func(conn net.Conn) {
		proto.WriteFrame(conn, proto.EncodeIdentity(0))
		frame, err := proto.NewFrameReader(conn).ReadFrame()
		if err != nil {
			return
		}
		msg, _ := proto.Decode(frame)
		got <- msg
	})
	ctx, cancel := context.WithCancel(context.Background())
	p := New(testOptions(t, address), nil, nil, nil)
	if err := p.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run = %v", err)
	}
	select {
	case msg := <-got:
		if ctl, ok := msg.(proto.Control); !ok || ctl.Kind != proto.CONTROL_QUIT {
			t.Fatalf("relay got %#v", msg)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no quit received")
	}
}

func TestConnectDiscover(t *testing.T) {
	address := fakeRelay(t, func(conn net.Conn) {
		proto.WriteFrame(conn, proto.EncodeIdentity(5))
	})
	reg := dig.NewMemoryRegistry()
	reg.Publish(proto.DIG_RELAY_SERVICE_NAME, &dig.Node{
		Name:     "relay-test",
		Metadata: map[string]string{proto.DIG_ENDPOINT_KEY: address},
	})

	opts := NewPeerOptions()
	opts.Discover.Value = true
	opts.RedisEndpoint.Set("127.0.0.1:6379")
	if err := opts.SetDefault(); err != nil {
		t.Fatal(err)
	}
	p := New(opts, nil, nil, nil)
	p.Registry = reg
	if err := p.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer p.conn.Close()
	if p.ID != 5 {
		t.Errorf("identity = %v", p.ID)
	}

	empty := New(opts, nil, nil, nil)
	empty.Registry = dig.NewMemoryRegistry()
	if err := empty.Connect(context.Background()); !errors.Is(err, dig.ErrServiceNotFound) {
		t.Fatalf("Connect without relay = %v", err)
	}
}
