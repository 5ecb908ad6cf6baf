package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Sunmxt/linker-sketch/log"
	"github.com/Sunmxt/linker-sketch/proto"
	gmux "github.com/gorilla/mux"
)

var ErrRelayStopped = errors.New("Relay is not running.")

// query runs fn on the loop goroutine and waits for it.
func (r *Relay) query(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case r.inspect <- func() {
		fn()
		close(done)
	}:
	case <-r.stop:
		return ErrRelayStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

// API request context.
type apiContext struct {
	w   http.ResponseWriter
	req *http.Request

	StatusCode   int
	Code         uint32
	ErrorMessage string
	Data         interface{}

	log *log.Logger
}

func newAPIContext(w http.ResponseWriter, req *http.Request) *apiContext {
	ctx := &apiContext{
		w:          w,
		req:        req,
		StatusCode: http.StatusOK,
		Code:       proto.SUCCEED,
		log:        log.NewLogger(),
	}
	ctx.log.Fields["entity"] = "manage-api"
	ctx.log.Fields["request"] = req.Header.Get(log.REQUEST_ID_HEADER)
	return ctx
}

func (ctx *apiContext) fail(code uint32, err error) {
	ctx.Code = code
	ctx.ErrorMessage = err.Error()
	switch code {
	case proto.RELAY_UNAVAILABLE:
		ctx.StatusCode = http.StatusServiceUnavailable
	case proto.INVALID_ARGUMENT:
		ctx.StatusCode = http.StatusBadRequest
	default:
		ctx.StatusCode = http.StatusInternalServerError
	}
}

func (ctx *apiContext) Finalize() {
	resp := &proto.HTTPResponse{
		APIVersion:   proto.API_VERSION,
		Data:         ctx.Data,
		Code:         ctx.Code,
		ErrorMessage: ctx.ErrorMessage,
		RequestID:    ctx.req.Header.Get(log.REQUEST_ID_HEADER),
	}
	if resp.ErrorMessage == "" {
		resp.ErrorMessage = proto.ErrorCodeText(ctx.Code)
	}
	body, err := json.Marshal(resp)
	if err != nil {
		ctx.log.Error("Response marshal failure: " + err.Error())
		ctx.w.WriteHeader(http.StatusInternalServerError)
		return
	}
	ctx.w.Header().Set("Content-Type", "application/json")
	ctx.w.WriteHeader(ctx.StatusCode)
	if _, err = ctx.w.Write(body); err != nil {
		ctx.log.Info1("Response write failure: " + err.Error())
	}
}

// inspectHandler answers with the value collect builds on the loop goroutine.
func (r *Relay) inspectHandler(collect func() interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx := newAPIContext(w, req)
		defer ctx.Finalize()
		if err := r.query(req.Context(), func() {
			ctx.Data = collect()
		}); err != nil {
			if err == ErrRelayStopped {
				ctx.fail(proto.RELAY_UNAVAILABLE, err)
			} else {
				ctx.fail(proto.SERVER_INTERNAL_ERROR, err)
			}
		}
	}
}

func (r *Relay) health() interface{} {
	return &proto.HealthV1{
		Node:     r.ID.String(),
		Sessions: r.table.Count(),
		Capacity: r.table.Capacity(),
	}
}

func (r *Relay) sessions() interface{} {
	return r.table.Snapshot()
}

func (r *Relay) strokeLog() interface{} {
	return &proto.StrokeLogV1{
		Count:   r.strokes.Len(),
		Strokes: r.strokes.Snapshot(make([]proto.Stroke, 0, r.strokes.Len())),
	}
}

// Handler is the management API.
func (r *Relay) Handler() http.Handler {
	router := gmux.NewRouter()
	router.HandleFunc("/healthz", r.inspectHandler(r.health)).Methods("GET")
	router.HandleFunc("/v1/sessions", r.inspectHandler(r.sessions)).Methods("GET")
	router.HandleFunc("/v1/strokes", r.inspectHandler(r.strokeLog)).Methods("GET")
	router.Handle("/v1/watch", r.watchers).Methods("GET")
	return log.TagLogHandler(router, map[string]interface{}{
		"entity": "manage-api",
	})
}
