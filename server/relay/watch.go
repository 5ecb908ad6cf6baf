package relay

import (
	"net/http"
	"sync"
	"time"

	"github.com/Sunmxt/linker-sketch/log"
	ws "github.com/gorilla/websocket"
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// watcher is one /v1/watch spectator.
type watcher struct {
	conn    *ws.Conn
	lock    sync.Mutex
	ring    *Ring
	dropped uint64
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func (w *watcher) push(payload string) {
	w.lock.Lock()
	if overridden, _ := w.ring.Write(payload, true); overridden {
		w.dropped++
	}
	w.lock.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *watcher) pop() (string, bool) {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.ring.Read()
}

func (w *watcher) stop() {
	w.once.Do(func() {
		close(w.done)
	})
}

// WatchHub fans relayed payloads out to websocket spectators. Publish never
// blocks: every watcher has its own ring and a slow one only loses its
// oldest messages.
type WatchHub struct {
	lock     sync.Mutex
	watchers map[*watcher]struct{}
	bufsize  uint
	closed   bool
	wg       sync.WaitGroup

	log *log.Logger
}

func NewWatchHub(bufsize uint) *WatchHub {
	h := &WatchHub{
		watchers: make(map[*watcher]struct{}),
		bufsize:  bufsize,
		log:      log.NewLogger(),
	}
	h.log.Fields["entity"] = "watch"
	return h
}

func (h *WatchHub) Count() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.watchers)
}

func (h *WatchHub) Publish(payload string) {
	h.lock.Lock()
	defer h.lock.Unlock()
	for w := range h.watchers {
		w.push(payload)
	}
}

func (h *WatchHub) register(conn *ws.Conn) *watcher {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.closed {
		return nil
	}
	w := &watcher{
		conn: conn,
		ring: NewRing(h.bufsize),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	h.watchers[w] = struct{}{}
	h.wg.Add(1)
	return w
}

func (h *WatchHub) unregister(w *watcher) {
	h.lock.Lock()
	delete(h.watchers, w)
	h.lock.Unlock()
	w.stop()
}

// ServeHTTP upgrades the request and streams payloads until either side
// closes.
func (h *WatchHub) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	conn, err := upgrader.Upgrade(resp, req, nil)
	if err != nil {
		h.log.Error("Websocket upgrade failure: " + err.Error())
		return
	}
	w := h.register(conn)
	if w == nil {
		conn.WriteControl(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseGoingAway, "relay stopped"), time.Now().Add(time.Second))
		conn.Close()
		return
	}
	h.log.Info1("Watcher connected from " + conn.RemoteAddr().String())

	go func() {
		// Spectators never talk. Reading only notices the close.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.unregister(w)
				return
			}
		}
	}()

	go h.serve(w)
}

func (h *WatchHub) serve(w *watcher) {
	defer h.wg.Done()
	defer w.conn.Close()
	for {
		select {
		case <-w.wake:
			for {
				payload, ok := w.pop()
				if !ok {
					break
				}
				if err := w.conn.WriteMessage(ws.TextMessage, []byte(payload)); err != nil {
					h.log.Info1("Watcher " + w.conn.RemoteAddr().String() + " lost: " + err.Error())
					h.unregister(w)
					return
				}
			}
		case <-w.done:
			w.lock.Lock()
			dropped := w.dropped
			w.lock.Unlock()
			if dropped > 0 {
				h.log.Infof1("Watcher %v missed %v messages.", w.conn.RemoteAddr().String(), dropped)
			}
			w.conn.WriteControl(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return
		}
	}
}

// Close disconnects every watcher and refuses new ones.
func (h *WatchHub) Close() {
	h.lock.Lock()
	h.closed = true
	watchers := make([]*watcher, 0, len(h.watchers))
	for w := range h.watchers {
		watchers = append(watchers, w)
	}
	h.watchers = make(map[*watcher]struct{})
	h.lock.Unlock()

	for _, w := range watchers {
		w.stop()
	}
	h.wg.Wait()
}
