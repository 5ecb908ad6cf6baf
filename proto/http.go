package proto

import (
	"fmt"
	"time"
)

const (
	SUCCEED               = 0
	INVALID_ARGUMENT      = 1
	SERVER_INTERNAL_ERROR = 2
	RELAY_UNAVAILABLE     = 3
)

var ErrorMessageFromCode map[uint32]string = map[uint32]string{
	SUCCEED:               "succeed.",
	INVALID_ARGUMENT:      "invalid argument.",
	SERVER_INTERNAL_ERROR: "server internal error.",
	RELAY_UNAVAILABLE:     "relay is shutting down.",
}

func ErrorCodeText(code uint32) string {
	err, ok := ErrorMessageFromCode[code]
	if !ok {
		return fmt.Sprintf("unknown error (code = %v)", code)
	}
	return err
}

const API_VERSION = uint32(1)

// HTTPResponse is the body of every management API reply.
type HTTPResponse struct {
	APIVersion   uint32      `json:"ver"`
	Data         interface{} `json:"data"`
	Code         uint32      `json:"code"`
	ErrorMessage string      `json:"msg"`
	RequestID    string      `json:"rid,omitempty"`
}

type HealthV1 struct {
	Node     string `json:"node"`
	Sessions int    `json:"sessions"`
	Capacity int    `json:"capacity"`
}

type SessionV1 struct {
	Identity    Identity  `json:"id"`
	Label       string    `json:"label"`
	Remote      string    `json:"remote"`
	ConnectedAt time.Time `json:"connected_at"`
}

type StrokeLogV1 struct {
	Count   int      `json:"count"`
	Strokes []Stroke `json:"strokes"`
}
