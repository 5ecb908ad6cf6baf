package proto

import (
	"bufio"
	"errors"
	"io"
)

var ErrTruncatedFrame = errors.New("Connection closed in the middle of an envelope.")
var ErrFrameSize = errors.New("Frame is not one envelope long.")

// FrameReader reassembles fixed-size envelopes from a byte stream.
// Partial reads are buffered until a whole envelope is available.
type FrameReader struct {
	r *bufio.Reader
}

func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{
		r: bufio.NewReaderSize(r, ENVELOPE_SIZE*4),
	}
}

// ReadFrame returns the next envelope in a freshly allocated buffer.
// io.EOF is returned only on a clean boundary.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	frame := make([]byte, ENVELOPE_SIZE)
	if _, err := io.ReadFull(fr.r, frame); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, ErrTruncatedFrame
		}
		return nil, err
	}
	return frame, nil
}

// WriteFrame writes a whole envelope, continuing after short writes.
func WriteFrame(w io.Writer, frame []byte) error {
	if len(frame) != ENVELOPE_SIZE {
		return ErrFrameSize
	}
	for written := 0; written < len(frame); {
		n, err := w.Write(frame[written:])
		written += n
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
	}
	return nil
}

// WriteMessage encodes msg and writes it as one envelope.
func WriteMessage(w io.Writer, msg Message) error {
	frame, err := Encode(msg)
	if err != nil {
		return err
	}
	return WriteFrame(w, frame)
}
