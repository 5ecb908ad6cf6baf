package peer

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/Sunmxt/linker-sketch/log"
	"github.com/Sunmxt/linker-sketch/proto"
	"github.com/Sunmxt/linker-sketch/server"
	"github.com/Sunmxt/linker-sketch/server/canvas"
	"github.com/Sunmxt/linker-sketch/server/console"
	"github.com/Sunmxt/linker-sketch/server/dig"
)

const relayLabel = "Relay"

// Peer is one drawing client of a relay.
type Peer struct {
	ID proto.Identity

	// Registry overrides the redis registry used by -discover.
	Registry dig.Registry

	opts     *PeerOptions
	conn     net.Conn
	frames   *proto.FrameReader
	renderer canvas.Renderer
	strokes  *canvas.StrokeLog
	pen      canvas.Pen
	pending  []canvas.Event

	console io.Reader
	out     io.Writer

	log *log.Logger
}

type frameEvent struct {
	frame []byte
	err   error
}

func New(opts *PeerOptions, renderer canvas.Renderer, cmd io.Reader, out io.Writer) *Peer {
	if renderer == nil {
		renderer = canvas.NewHeadless("peer")
	}
	if out == nil {
		out = io.Discard
	}
	p := &Peer{
		ID:       proto.NO_IDENTITY,
		opts:     opts,
		renderer: renderer,
		strokes:  canvas.NewStrokeLog(),
		pending:  make([]canvas.Event, 0, 16),
		console:  cmd,
		out:      out,
		log:      log.NewLogger(),
	}
	p.log.Fields["entity"] = "peer"
	return p
}

// Strokes is the local replay log.
func (p *Peer) Strokes() *canvas.StrokeLog {
	return p.strokes
}

func (p *Peer) relayAddress() (string, error) {
	if !p.opts.Discover.Value {
		return p.opts.Relay.Address(), nil
	}
	reg := p.Registry
	if reg == nil {
		var err error
		if reg, err = dig.Connect("redis", p.opts.RedisEndpoint.Address(), p.opts.RedisPrefix.Value, 1, 1); err != nil {
			return "", err
		}
		defer reg.Close()
	}
	address, err := dig.Resolve(reg, proto.DIG_RELAY_SERVICE_NAME, proto.DIG_ENDPOINT_KEY)
	if err != nil {
		return "", err
	}
	p.log.Info0("Discovered relay at " + address + ".")
	return address, nil
}

// Connect dials the relay and waits for the identity assignment.
func (p *Peer) Connect(ctx context.Context) error {
	address, err := p.relayAddress()
	if err != nil {
		return server.NewTransportError("discover", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.HandshakeTimeout.Value)
	defer cancel()
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return server.NewTransportError("dial", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	}
	frames := proto.NewFrameReader(conn)
	frame, err := frames.ReadFrame()
	if err != nil {
		conn.Close()
		return server.NewTransportError("handshake", err)
	}
	conn.SetReadDeadline(time.Time{})

	id, err := proto.DecodeIdentity(frame)
	if err != nil {
		conn.Close()
		if err == proto.ErrRelayFull {
			return server.NewCapacityError(0, err)
		}
		return err
	}
	p.ID, p.conn, p.frames = id, conn, frames
	p.log.Fields["session"] = id.Label()
	p.log.Info0("Connected to " + address + " as " + id.Label() + ".")
	return nil
}

func (p *Peer) readLoop(incoming chan<- frameEvent, stop <-chan struct{}) {
	for {
		frame, err := p.frames.ReadFrame()
		select {
		case incoming <- frameEvent{frame: frame, err: err}:
		case <-stop:
			return
		}
		if err != nil {
			return
		}
	}
}

// Run connects if needed and serves until the operator quits, ctx is
// cancelled or the relay goes away.
func (p *Peer) Run(ctx context.Context) error {
	if p.conn == nil {
		if err := p.Connect(ctx); err != nil {
			return err
		}
	}
	stop := make(chan struct{})
	defer func() {
		close(stop)
		p.conn.Close()
	}()

	incoming := make(chan frameEvent)
	go p.readLoop(incoming, stop)

	var lines <-chan string
	if p.console != nil {
		lines, _ = console.Lines(p.console, stop)
	}

	for {
		if err := p.pumpRenderer(); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			p.quit()
			return nil

		case <-p.renderer.Wake():

		case line, ok := <-lines:
			if !ok {
				p.log.Info1("Operator console closed.")
				lines = nil
				continue
			}
			quit, err := p.command(line)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}

		case ev := <-incoming:
			if ev.err != nil {
				err := server.NewPeerDisconnect(relayLabel, ev.err)
				p.log.Error(err.Error())
				return err
			}
			msg, err := proto.Decode(ev.frame)
			if err != nil {
				p.log.Error("Relay sent a malformed envelope: " + err.Error())
				return err
			}
			p.deliver(msg)
		}
	}
}

func (p *Peer) send(msg proto.Message) error {
	frame, err := proto.Encode(msg)
	if err != nil {
		p.log.Warn("Drop outgoing message: " + err.Error())
		return nil
	}
	if err = proto.WriteFrame(p.conn, frame); err != nil {
		return server.NewPeerDisconnect(relayLabel, err)
	}
	return nil
}

func (p *Peer) quit() {
	if err := p.send(proto.Control{Kind: proto.CONTROL_QUIT}); err != nil {
		p.log.Info1("Quit not delivered: " + err.Error())
	}
	p.log.Info0(p.ID.Label() + " quit.")
}

// pumpRenderer sends one stroke per motion sample of a drag.
func (p *Peer) pumpRenderer() error {
	p.pending = p.renderer.Poll(p.pending[:0])
	for _, ev := range p.pending {
		if ev.Kind == canvas.EVENT_EXPOSE {
			p.strokes.Replay(p.renderer)
			continue
		}
		stroke, ok := p.pen.Feed(ev)
		if !ok {
			continue
		}
		p.renderer.DrawLine(stroke)
		if p.opts.LogOwnStrokes.Value {
			p.strokes.Append(stroke)
		}
		if err := p.send(stroke); err != nil {
			return err
		}
	}
	return nil
}

func (p *Peer) deliver(msg proto.Message) {
	switch m := msg.(type) {
	case proto.Chat:
		fmt.Fprintln(p.out, m.Line())

	case proto.Stroke:
		p.renderer.DrawLine(m)
		p.strokes.Append(m)

	case proto.Control:
		p.log.Info1("Ignore control \"" + m.String() + "\" from relay.")
	}
}

// command handles one operator line. quit is true after ":q".
func (p *Peer) command(line string) (quit bool, err error) {
	cmd, err := console.Parse(line)
	if err != nil {
		p.log.Warn("Invalid command: " + err.Error())
		return false, nil
	}
	switch cmd.Kind {
	case console.CMD_QUIT:
		p.quit()
		return true, nil

	case console.CMD_REDRAW:
		if injector, ok := p.renderer.(canvas.Injector); ok {
			injector.Inject(canvas.Event{Kind: canvas.EVENT_EXPOSE})
		} else {
			p.strokes.Replay(p.renderer)
		}
		return false, nil

	case console.CMD_DRAW:
		if injector, ok := p.renderer.(canvas.Injector); ok {
			injector.Inject(canvas.Gesture(cmd.Points)...)
		} else {
			p.log.Warn("Canvas does not accept typed gestures.")
		}
		return false, nil
	}

	if cmd.Line == "" {
		return false, nil
	}
	return false, p.send(proto.Chat{Sender: p.ID, Text: cmd.Line})
}
