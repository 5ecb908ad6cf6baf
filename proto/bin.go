package proto

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ENVELOPE_SIZE is the fixed frame length both ends transmit and consume.
const ENVELOPE_SIZE = 1024

var (
	ErrNilBuf         = errors.New("Nil buffer.")
	ErrBufferTooShort = errors.New("Buffer is too short.")
	ErrPayloadTooLong = errors.New("Payload does not fit in one envelope.")
	ErrEmbeddedNUL    = errors.New("Payload contains the NUL terminator.")
	ErrRelayFull      = errors.New("Relay has no free slot.")
)

// DecodeError reports a malformed envelope.
type DecodeError struct {
	Raw    string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("Malformed envelope %q: %v", e.Raw, e.Reason)
}

func IsDecodeError(err error) bool {
	var decodeErr *DecodeError
	return errors.As(err, &decodeErr)
}

func newDecodeError(payload []byte, reason string) *DecodeError {
	raw := payload
	if len(raw) > 32 {
		raw = raw[:32]
	}
	return &DecodeError{Raw: string(raw), Reason: reason}
}

// Marshal writes msg into buf as one envelope: "<tag>-<payload>" followed by
// NUL padding. buf must hold at least ENVELOPE_SIZE bytes.
func Marshal(msg Message, buf []byte) error {
	if buf == nil {
		return ErrNilBuf
	}
	if len(buf) < ENVELOPE_SIZE {
		return ErrBufferTooShort
	}
	payload := make([]byte, 0, 64)
	payload = append(payload, msg.Tag(), FIELD_SEPARATOR)
	payload = msg.appendPayload(payload)
	// One byte is reserved for the terminator.
	if len(payload) >= ENVELOPE_SIZE {
		return ErrPayloadTooLong
	}
	if bytes.IndexByte(payload, 0) >= 0 {
		return ErrEmbeddedNUL
	}
	n := copy(buf, payload)
	for i := n; i < ENVELOPE_SIZE; i++ {
		buf[i] = 0
	}
	return nil
}

func Encode(msg Message) ([]byte, error) {
	buf := make([]byte, ENVELOPE_SIZE)
	if err := Marshal(msg, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// payloadOf cuts the envelope at the first terminator.
func payloadOf(raw []byte) []byte {
	if idx := bytes.IndexByte(raw, 0); idx >= 0 {
		return raw[:idx]
	}
	return raw
}

// firstToken skips leading whitespace and returns the run up to the next one.
func firstToken(raw []byte) string {
	fields := bytes.Fields(raw)
	if len(fields) < 1 {
		return ""
	}
	return string(fields[0])
}

// Decode parses one envelope. Bytes after the first NUL are ignored.
func Decode(raw []byte) (Message, error) {
	payload := payloadOf(raw)
	if len(payload) < 2 {
		return nil, newDecodeError(payload, "envelope too short")
	}
	if payload[1] != FIELD_SEPARATOR {
		return nil, newDecodeError(payload, "missing field separator")
	}
	data := firstToken(payload[2:])
	if data == "" {
		return nil, newDecodeError(payload, "empty payload")
	}

	switch payload[0] {
	case TAG_CHAT:
		return decodeChat(data), nil

	case TAG_STROKE:
		stroke, err := decodeStroke(data)
		if err != nil {
			return nil, newDecodeError(payload, err.Error())
		}
		return stroke, nil

	case TAG_CONTROL:
		for kind, word := range controlWords {
			if word == data {
				return Control{Kind: kind}, nil
			}
		}
		return nil, newDecodeError(payload, "unknown control word")
	}
	return nil, newDecodeError(payload, "unknown tag")
}

func decodeChat(token string) Chat {
	chat := Chat{Sender: NO_IDENTITY, Text: token}
	if !strings.HasPrefix(token, "Client[") {
		return chat
	}
	rest := token[len("Client["):]
	end := strings.Index(rest, "]:")
	if end < 1 {
		return chat
	}
	id, err := strconv.ParseUint(rest[:end], 10, 16)
	if err != nil {
		return chat
	}
	chat.Sender, chat.Text = Identity(id), rest[end+2:]
	return chat
}

// scanInt16 reads an optionally signed decimal from the front of raw.
func scanInt16(raw string) (int16, string, error) {
	idx := 0
	if idx < len(raw) && (raw[idx] == '-' || raw[idx] == '+') {
		idx++
	}
	digits := idx
	for idx < len(raw) && raw[idx] >= '0' && raw[idx] <= '9' {
		idx++
	}
	if idx == digits {
		return 0, raw, errors.New("expected integer")
	}
	value, err := strconv.ParseInt(raw[:idx], 10, 16)
	if err != nil {
		return 0, raw, fmt.Errorf("coordinate %v out of range", raw[:idx])
	}
	return int16(value), raw[idx:], nil
}

func decodeStroke(data string) (Stroke, error) {
	var (
		coords [4]int16
		err    error
	)
	rest := data
	for i := range coords {
		if i > 0 {
			if len(rest) < 1 || rest[0] != FIELD_SEPARATOR {
				return Stroke{}, errors.New("expected field separator")
			}
			rest = rest[1:]
		}
		if coords[i], rest, err = scanInt16(rest); err != nil {
			return Stroke{}, err
		}
	}
	if rest != "" {
		return Stroke{}, errors.New("trailing bytes after stroke")
	}
	return NewStroke(coords[0], coords[1], coords[2], coords[3]), nil
}

// EncodeIdentity builds the envelope a relay sends right after accept.
func EncodeIdentity(id Identity) []byte {
	buf := make([]byte, ENVELOPE_SIZE)
	copy(buf, strconv.Itoa(int(id)))
	return buf
}

// DecodeIdentity parses the leading digits of the assignment envelope.
// A capacity rejection yields ErrRelayFull.
func DecodeIdentity(raw []byte) (Identity, error) {
	payload := payloadOf(raw)
	if len(payload) > 0 && payload[0] == TAG_CONTROL {
		msg, err := Decode(payload)
		if err != nil {
			return NO_IDENTITY, err
		}
		if ctl, _ := msg.(Control); ctl.Kind == CONTROL_FULL {
			return NO_IDENTITY, ErrRelayFull
		}
		return NO_IDENTITY, newDecodeError(payload, "unexpected control before identity")
	}
	idx := 0
	for idx < len(payload) && payload[idx] >= '0' && payload[idx] <= '9' {
		idx++
	}
	if idx == 0 {
		return NO_IDENTITY, newDecodeError(payload, "identity expected")
	}
	id, err := strconv.ParseUint(string(payload[:idx]), 10, 16)
	if err != nil {
		return NO_IDENTITY, newDecodeError(payload, "identity out of range")
	}
	return Identity(id), nil
}

// Text is the envelope content without padding, e.g. "D-1-2-3-4".
func Text(raw []byte) string {
	return string(payloadOf(raw))
}
