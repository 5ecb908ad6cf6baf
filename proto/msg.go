package proto

import (
	"strconv"
)

const (
	TAG_CHAT    = byte('M')
	TAG_STROKE  = byte('D')
	TAG_CONTROL = byte('S')

	FIELD_SEPARATOR = byte('-')
)

// Identity is the slot index a relay assigns to a connected peer.
type Identity int

// NO_IDENTITY labels chat whose sender could not be recovered.
const NO_IDENTITY = Identity(-1)

func (id Identity) Valid() bool {
	return id >= 0
}

// Label is the human readable prefix used on chat lines.
func (id Identity) Label() string {
	return "Client[" + strconv.Itoa(int(id)) + "]"
}

// Message is one unit exchanged on the wire. Exactly one of
// Chat, Stroke or Control.
type Message interface {
	Tag() byte

	// appendPayload appends the text after "<tag>-".
	appendPayload(buf []byte) []byte
}

type Point struct {
	X int16 `json:"x"`
	Y int16 `json:"y"`
}

// Stroke is a line segment.
type Stroke struct {
	From Point `json:"from"`
	To   Point `json:"to"`
}

func NewStroke(x0, y0, x1, y1 int16) Stroke {
	return Stroke{
		From: Point{X: x0, Y: y0},
		To:   Point{X: x1, Y: y1},
	}
}

func (s Stroke) Tag() byte { return TAG_STROKE }

func (s Stroke) appendPayload(buf []byte) []byte {
	buf = strconv.AppendInt(buf, int64(s.From.X), 10)
	buf = append(buf, FIELD_SEPARATOR)
	buf = strconv.AppendInt(buf, int64(s.From.Y), 10)
	buf = append(buf, FIELD_SEPARATOR)
	buf = strconv.AppendInt(buf, int64(s.To.X), 10)
	buf = append(buf, FIELD_SEPARATOR)
	return strconv.AppendInt(buf, int64(s.To.Y), 10)
}

// Chat carries one line of text. Only the first whitespace-free token of
// Text survives the wire.
type Chat struct {
	Sender Identity
	Text   string
}

func (c Chat) Tag() byte { return TAG_CHAT }

// Line renders the chat as printed on a console: "Client[n]:text".
func (c Chat) Line() string {
	if !c.Sender.Valid() {
		return c.Text
	}
	return c.Sender.Label() + ":" + c.Text
}

func (c Chat) appendPayload(buf []byte) []byte {
	return append(buf, c.Line()...)
}

const (
	CONTROL_QUIT = uint8(iota)
	CONTROL_FULL
)

var controlWords = map[uint8]string{
	CONTROL_QUIT: "quit",
	CONTROL_FULL: "full",
}

// Control is an out-of-band session command.
type Control struct {
	Kind uint8
}

func (c Control) Tag() byte { return TAG_CONTROL }

func (c Control) appendPayload(buf []byte) []byte {
	return append(buf, controlWords[c.Kind]...)
}

func (c Control) String() string {
	word, ok := controlWords[c.Kind]
	if !ok {
		return "unknown(" + strconv.Itoa(int(c.Kind)) + ")"
	}
	return word
}
