package relay

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Sunmxt/linker-sketch/log"
	"github.com/Sunmxt/linker-sketch/proto"
	"github.com/Sunmxt/linker-sketch/server"
	"github.com/Sunmxt/linker-sketch/server/canvas"
	"github.com/Sunmxt/linker-sketch/server/console"
	"github.com/Sunmxt/linker-sketch/server/dig"
)

// Relay accepts drawing peers and forwards what each one sends to all the
// others. Every piece of mutable state belongs to the Run goroutine.
type Relay struct {
	ID server.NodeID

	// Registry overrides the redis registry built from options.
	Registry dig.Registry

	opts     *RelayOptions
	table    *SessionTable
	strokes  *canvas.StrokeLog
	renderer canvas.Renderer
	pen      canvas.Pen
	pending  []canvas.Event
	watchers *WatchHub

	console io.Reader
	out     io.Writer

	listener  net.Listener
	accepted  chan net.Conn
	acceptErr chan error
	events    chan sessionEvent
	inspect   chan func()
	stop      chan struct{}
	stopOnce  sync.Once
	workers   sync.WaitGroup

	manage      *http.Server
	ownRegistry dig.Registry

	log *log.Logger
}

// New builds a relay drawing into renderer, reading operator commands from
// cmd and printing chat to out. cmd may be nil.
func New(opts *RelayOptions, renderer canvas.Renderer, cmd io.Reader, out io.Writer) *Relay {
	if renderer == nil {
		renderer = canvas.NewHeadless("relay")
	}
	if out == nil {
		out = io.Discard
	}
	capacity := int(opts.MaxClients.Value)
	r := &Relay{
		ID:        server.NewNodeID(),
		opts:      opts,
		table:     NewSessionTable(capacity),
		strokes:   canvas.NewStrokeLog(),
		renderer:  renderer,
		pending:   make([]canvas.Event, 0, 16),
		watchers:  NewWatchHub(opts.WatchBufferSize.Value),
		console:   cmd,
		out:       out,
		accepted:  make(chan net.Conn),
		acceptErr: make(chan error, 1),
		events:    make(chan sessionEvent, capacity),
		inspect:   make(chan func()),
		stop:      make(chan struct{}),
		log:       log.NewLogger(),
	}
	r.log.Fields["entity"] = "relay"
	return r
}

// Listen binds the peer endpoint. Run calls it when it has not been called.
func (r *Relay) Listen() error {
	if r.listener != nil {
		return nil
	}
	listener, err := net.Listen("tcp", r.opts.Endpoint.Address())
	if err != nil {
		return server.NewTransportError("listen", err)
	}
	r.listener = listener
	r.log.Info0("Relay listening at " + listener.Addr().String() + ".")
	return nil
}

func (r *Relay) Addr() net.Addr {
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

func (r *Relay) acceptLoop() {
	defer r.workers.Done()
	for {
		conn, err := r.listener.Accept()
		if err != nil {
			select {
			case <-r.stop:
			case r.acceptErr <- err:
			}
			return
		}
		select {
		case r.accepted <- conn:
		case <-r.stop:
			conn.Close()
			return
		}
	}
}

func (r *Relay) serveManagement() (*http.Server, error) {
	listener, err := net.Listen("tcp", r.opts.ManageEndpoint.Address())
	if err != nil {
		return nil, server.NewTransportError("listen manage", err)
	}
	srv := &http.Server{Handler: r.Handler()}
	r.log.Info0("Manage API serve at " + listener.Addr().String() + ".")
	r.workers.Add(1)
	go func() {
		defer r.workers.Done()
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			r.log.Error("Manage API failure: " + err.Error())
		}
	}()
	return srv, nil
}

// Run serves until the operator quits or ctx is cancelled. It returns an
// error only when the relay cannot go on.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.Listen(); err != nil {
		return err
	}
	defer r.shutdown()

	r.workers.Add(1)
	go r.acceptLoop()

	if r.opts.ManageEndpoint.Host != "" {
		srv, err := r.serveManagement()
		if err != nil {
			return err
		}
		r.manage = srv
	}

	reg, err := r.openRegistry()
	if err != nil {
		return err
	}
	if reg != nil {
		if reg != r.Registry {
			r.ownRegistry = reg
		}
		r.workers.Add(1)
		go r.keepalive(reg, time.Duration(r.opts.KeepalivePeriod.Value)*time.Second)
	}

	var lines <-chan string
	if r.console != nil {
		lines, _ = console.Lines(r.console, r.stop)
	}

	for {
		r.pumpRenderer()

		select {
		case <-ctx.Done():
			r.log.Info0("Relay cancelled.")
			return nil

		case <-r.renderer.Wake():

		case conn := <-r.accepted:
			r.admit(conn)

		case err := <-r.acceptErr:
			return server.NewTransportError("accept", err)

		case line, ok := <-lines:
			if !ok {
				r.log.Info1("Operator console closed.")
				lines = nil
				continue
			}
			if r.command(line) {
				r.log.Info0("Operator quit.")
				return nil
			}

		case ev := <-r.events:
			if err := r.dispatch(ev); err != nil {
				return err
			}

		case fn := <-r.inspect:
			fn()
		}
	}
}

// pumpRenderer drains pending input. Local drawing stays local.
func (r *Relay) pumpRenderer() {
	r.pending = r.renderer.Poll(r.pending[:0])
	for _, ev := range r.pending {
		if ev.Kind == canvas.EVENT_EXPOSE {
			r.strokes.Replay(r.renderer)
			continue
		}
		if stroke, ok := r.pen.Feed(ev); ok {
			r.renderer.DrawLine(stroke)
			r.strokes.Append(stroke)
		}
	}
}

func (r *Relay) admit(conn net.Conn) {
	s := NewSession(conn, int(r.opts.ConnectionBufferSize.Value), r.opts.WriteTimeout.Value)
	if _, err := r.table.Allocate(s); err != nil {
		r.log.Warn("Reject connection from " + s.Remote + ": " + err.Error())
		r.workers.Add(1)
		go r.reject(conn)
		return
	}
	// Queue is empty, so the identity always goes first without waiting.
	s.Send(proto.EncodeIdentity(s.ID))
	s.start(r.events, r.stop)
	r.log.Info0(s.Label() + " connected from " + s.Remote)
}

func (r *Relay) reject(conn net.Conn) {
	defer r.workers.Done()
	defer conn.Close()
	conn.SetWriteDeadline(time.Now().Add(time.Second))
	if err := proto.WriteMessage(conn, proto.Control{Kind: proto.CONTROL_FULL}); err != nil {
		r.log.Info1("Rejection not delivered to " + conn.RemoteAddr().String() + ": " + err.Error())
	}
}

// drop releases the slot of s and closes it.
func (r *Relay) drop(s *Session, reason error) {
	if r.table.Get(s.ID) == s {
		r.table.Release(s.ID)
	}
	s.Close()
	if reason == nil || reason == io.EOF {
		r.log.Info0(s.Label() + " has exited")
		return
	}
	r.log.Info0(server.NewPeerDisconnect(s.Label(), reason).Error())
}

func (r *Relay) dispatch(ev sessionEvent) error {
	s := ev.session
	if r.table.Get(s.ID) != s {
		// Already released.
		return nil
	}
	if ev.err != nil {
		r.drop(s, ev.err)
		return nil
	}

	msg, err := proto.Decode(ev.frame)
	if err != nil {
		r.log.Warn(s.Label() + " sent a malformed envelope: " + err.Error())
		if r.opts.FatalOnMalformed.Value {
			return err
		}
		r.drop(s, err)
		return nil
	}

	switch m := msg.(type) {
	case proto.Control:
		if m.Kind == proto.CONTROL_QUIT {
			r.drop(s, nil)
			return nil
		}
		r.log.Info1(s.Label() + " sent unexpected control \"" + m.String() + "\". Ignored.")
		return nil

	case proto.Stroke:
		r.renderer.DrawLine(m)
		r.strokes.Append(m)

	case proto.Chat:
		fmt.Fprintln(r.out, m.Line())
	}

	r.forward(s, ev.frame)
	r.watchers.Publish(proto.Text(ev.frame))
	return nil
}

// forward sends the received envelope unmodified to every other session.
func (r *Relay) forward(from *Session, frame []byte) {
	for _, to := range r.table.Others(from.ID) {
		err := to.Send(frame)
		if err == nil {
			continue
		}
		if err == ErrSlowConsumer {
			r.log.Warn(to.Label() + " is too slow. Disconnect.")
		}
		r.drop(to, err)
	}
}

// command handles one operator line. It returns true on quit.
func (r *Relay) command(line string) bool {
	cmd, err := console.Parse(line)
	if err != nil {
		r.log.Warn("Invalid command: " + err.Error())
		return false
	}
	switch cmd.Kind {
	case console.CMD_QUIT:
		return true

	case console.CMD_REDRAW:
		if injector, ok := r.renderer.(canvas.Injector); ok {
			injector.Inject(canvas.Event{Kind: canvas.EVENT_EXPOSE})
		} else {
			r.strokes.Replay(r.renderer)
		}

	case console.CMD_DRAW:
		injector, ok := r.renderer.(canvas.Injector)
		if !ok {
			r.log.Warn("Canvas does not accept typed gestures.")
			break
		}
		injector.Inject(canvas.Gesture(cmd.Points)...)

	case console.CMD_WHO:
		sessions := r.table.Snapshot()
		fmt.Fprintf(r.out, "%v/%v connected\n", len(sessions), r.table.Capacity())
		for _, s := range sessions {
			fmt.Fprintf(r.out, "%v %v since %v\n", s.Label, s.Remote, s.ConnectedAt.Format(time.RFC3339))
		}

	default:
		r.log.DebugLazy(func() string {
			return "Ignore operator line: " + strings.TrimSpace(cmd.Line)
		})
	}
	return false
}

// shutdown stops accepting and closes every session.
func (r *Relay) shutdown() {
	r.stopOnce.Do(func() {
		close(r.stop)
		r.listener.Close()
		if r.manage != nil {
			r.manage.Close()
		}
		for idx := 0; idx < r.table.Capacity(); idx++ {
			if s := r.table.Release(proto.Identity(idx)); s != nil {
				s.Close()
			}
		}
		r.watchers.Close()
		// Keepalive withdraws the node before it exits.
		r.workers.Wait()
		if r.ownRegistry != nil {
			r.ownRegistry.Close()
		}
		r.log.Info0("Relay stopped.")
	})
}
