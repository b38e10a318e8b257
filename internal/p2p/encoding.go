package p2p

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrMalformedFrame marks a line that could not be decoded. The read
// loop drops the frame and keeps reading; it is never fatal to the
// connection.
var ErrMalformedFrame = errors.New("malformed frame")

type Decoder interface {
	Decode(r *bufio.Reader, f *Frame) error
}

type Encoder interface {
	Encode(f Frame) ([]byte, error)
}

type (
	LineDecoder struct{}
	LineEncoder struct{}
)

func (LineDecoder) Decode(r *bufio.Reader, f *Frame) error {
	line, err := r.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) > 0 {
			// final unterminated line, still worth decoding
			return unmarshalFrame(line, f)
		}
		return err
	}
	return unmarshalFrame(line, f)
}

func unmarshalFrame(line []byte, f *Frame) error {
	if err := json.Unmarshal(bytes.TrimSpace(line), f); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return nil
}

func (LineEncoder) Encode(f Frame) ([]byte, error) {
	return marshalLine(f)
}

// marshalLine serializes v as one newline-terminated line. A value
// whose serialized form contains a newline would corrupt the framing,
// so it is refused outright.
func marshalLine(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if bytes.ContainsRune(b, '\n') {
		return nil, fmt.Errorf("serialized message contains embedded newline")
	}
	return append(b, '\n'), nil
}
