package log

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"net/http"

	guuid "github.com/satori/go.uuid"
)

const REQUEST_ID_HEADER = "X-Request-Id"

// ProxyResponseWriter
type ProxyResponseWriter struct {
	Origin          http.ResponseWriter
	HookWrite       func([]byte) (int, error)
	HookWriteHeader func(int)
}

func (w *ProxyResponseWriter) Header() http.Header {
	return w.Origin.Header()
}

func (w *ProxyResponseWriter) Write(raw []byte) (int, error) {
	if w.HookWrite != nil {
		return w.HookWrite(raw)
	}
	return w.Origin.Write(raw)
}

func (w *ProxyResponseWriter) WriteHeader(statusCode int) {
	if w.HookWriteHeader != nil {
		w.HookWriteHeader(statusCode)
		return
	}
	w.Origin.WriteHeader(statusCode)
}

// Hijack lets websocket upgrades pass through the proxy.
func (w *ProxyResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.Origin.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("Response writer cannot be hijacked.")
	}
	return hijacker.Hijack()
}

// LoggedHandler automatically logs http requests and responses.
type LoggedHandler struct {
	Tags       map[string]interface{}
	OriginFunc http.Handler
}

// Decorate and attach log system to handler.
// Tags specified will be appended to log line.
func TagLogHandler(handler http.Handler, tags map[string]interface{}) *LoggedHandler {
	return &LoggedHandler{
		Tags:       tags,
		OriginFunc: handler,
	}
}

func (fun *LoggedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var statusCode int = 200
	var bodySize uint64 = 0

	rid := r.Header.Get(REQUEST_ID_HEADER)
	if rid == "" {
		rid = guuid.NewV4().String()
		r.Header.Set(REQUEST_ID_HEADER, rid)
	}
	w.Header().Set(REQUEST_ID_HEADER, rid)

	proxy := &ProxyResponseWriter{
		Origin: w,
		HookWriteHeader: func(code int) {
			statusCode = code
			w.WriteHeader(code)
		},
		HookWrite: func(raw []byte) (int, error) {
			written, err := w.Write(raw)
			bodySize += uint64(written)
			return written, err
		},
	}

	fun.OriginFunc.ServeHTTP(proxy, r)

	InfoMap(fun.Tags, fmt.Sprintf("(%v)[%v] %v %v %v %v %v %v", rid, r.RemoteAddr, r.Method, r.RequestURI, statusCode, r.ContentLength, bodySize, r.UserAgent()))

	// Headers at debug level only.
	if GlobalLogLevel() > 3 {
		logHeader := func(header http.Header, leadMsg string) {
			DebugMap(fun.Tags, fmt.Sprintf("(%v) %v", rid, leadMsg))
			for k, v := range header {
				switch len(v) {
				case 0:
					DebugMap(fun.Tags, fmt.Sprintf("(%v) %v:", rid, k))
				case 1:
					DebugMap(fun.Tags, fmt.Sprintf("(%v) %v: %v", rid, k, v[0]))
				default:
					DebugMap(fun.Tags, fmt.Sprintf("(%v) %v: %v", rid, k, v))
				}
			}
		}
		logHeader(r.Header, "--- Request Header ---")
		logHeader(w.Header(), "--- Response Header ---")
	}
}
