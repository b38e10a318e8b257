package p2p

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineEncoderTerminatesWithSingleNewline(t *testing.T) {
	b, err := LineEncoder{}.Encode(Frame{Event: "message", Data: map[string]any{"text": "hi\nthere"}})
	require.NoError(t, err)

	assert.True(t, bytes.HasSuffix(b, []byte("\n")))
	// the newline inside the string must stay escaped
	assert.Equal(t, 1, bytes.Count(b, []byte("\n")))
}

func TestLineDecoderRoundTrip(t *testing.T) {
	b, err := LineEncoder{}.Encode(Frame{Event: "message", Data: map[string]any{"text": "hi"}})
	require.NoError(t, err)

	var f Frame
	r := bufio.NewReader(bytes.NewReader(b))
	require.NoError(t, LineDecoder{}.Decode(r, &f))

	assert.Equal(t, "message", f.Event)
	assert.Equal(t, map[string]any{"text": "hi"}, f.Data)
}

func TestLineDecoderMalformedFrame(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("not json at all\n{\"event\":\"ok\"}\n"))

	var f Frame
	err := LineDecoder{}.Decode(r, &f)
	assert.ErrorIs(t, err, ErrMalformedFrame)

	// the stream stays usable after a dropped frame
	require.NoError(t, LineDecoder{}.Decode(r, &f))
	assert.Equal(t, "ok", f.Event)
}

func TestLineDecoderEOF(t *testing.T) {
	var f Frame
	r := bufio.NewReader(strings.NewReader(""))
	assert.ErrorIs(t, LineDecoder{}.Decode(r, &f), io.EOF)
}

func TestLineDecoderUnterminatedFinalLine(t *testing.T) {
	var f Frame
	r := bufio.NewReader(strings.NewReader(`{"event":"ok"}`))
	require.NoError(t, LineDecoder{}.Decode(r, &f))
	assert.Equal(t, "ok", f.Event)
}
