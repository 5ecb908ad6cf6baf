package relay

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/Sunmxt/linker-sketch/log"
	"github.com/Sunmxt/linker-sketch/proto"
)

var ErrSlowConsumer = errors.New("Peer stopped reading.")
var ErrSessionClosed = errors.New("Session is closed.")

// Session is one accepted peer connection. The relay loop owns it; its
// reader and writer goroutines only move envelopes.
type Session struct {
	ID          proto.Identity
	Remote      string
	ConnectedAt time.Time

	conn         net.Conn
	out          chan []byte
	writeTimeout time.Duration
	done         chan struct{}
	closeOnce    sync.Once

	log *log.Logger
}

// sessionEvent carries one envelope, or the error that ended reading.
type sessionEvent struct {
	session *Session
	frame   []byte
	err     error
}

// NewSession wraps conn. A write that makes no progress for writeTimeout
// marks the peer as slow. Zero means no limit.
func NewSession(conn net.Conn, queueSize int, writeTimeout time.Duration) *Session {
	s := &Session{
		ID:           proto.NO_IDENTITY,
		conn:         conn,
		ConnectedAt:  time.Now(),
		out:          make(chan []byte, queueSize),
		writeTimeout: writeTimeout,
		done:         make(chan struct{}),
		log:          log.NewLogger(),
	}
	if conn != nil {
		s.Remote = conn.RemoteAddr().String()
	}
	s.log.Fields["entity"] = "session"
	s.log.Fields["remote"] = s.Remote
	return s
}

func (s *Session) Label() string {
	return s.ID.Label()
}

// Send queues a whole envelope. When the queue is full it waits for the
// writer to drain it, giving up after the write timeout.
func (s *Session) Send(frame []byte) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.out <- frame:
		return nil
	default:
	}

	var expired <-chan time.Time
	if s.writeTimeout > 0 {
		timer := time.NewTimer(s.writeTimeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case s.out <- frame:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-expired:
		return ErrSlowConsumer
	}
}

// start launches the reader and writer goroutines. Reader events stop
// being delivered once stop is closed.
func (s *Session) start(events chan<- sessionEvent, stop <-chan struct{}) {
	s.log.Fields["session"] = s.Label()
	go s.writeLoop()
	go s.readLoop(events, stop)
}

func (s *Session) readLoop(events chan<- sessionEvent, stop <-chan struct{}) {
	frames := proto.NewFrameReader(s.conn)
	for {
		frame, err := frames.ReadFrame()
		select {
		case events <- sessionEvent{session: s, frame: frame, err: err}:
		case <-stop:
			return
		}
		if err != nil {
			return
		}
	}
}

func (s *Session) writeLoop() {
	for {
		select {
		case frame := <-s.out:
			if s.writeTimeout > 0 {
				s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			}
			if err := proto.WriteFrame(s.conn, frame); err != nil {
				if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
					s.log.Warn(s.Label() + " is too slow. Disconnect.")
				} else {
					s.log.Info1("Write failure: " + err.Error())
				}
				// The reader sees the closed connection and reports it.
				s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.conn != nil {
			s.conn.Close()
		}
	})
}
