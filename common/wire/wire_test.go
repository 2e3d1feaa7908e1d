package wire

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFraming(t *testing.T) {
	tests := []struct {
		input   string
		want    Framing
		wantErr bool
	}{
		{input: "", want: FramingClose},
		{input: "close", want: FramingClose},
		{input: "LENGTH", want: FramingLength},
		{input: "length-prefixed", want: FramingLength},
		{input: "varint", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFraming(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	payload := []byte(`{"username":"alice","message":"hello"}`)

	for _, f := range []Framing{FramingClose, FramingLength} {
		t.Run(f.String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteFrame(&buf, f, payload))

			got, err := ReadFrame(&buf, 1024)
			require.NoError(t, err)
			assert.Equal(t, payload, got)
		})
	}
}

func TestWriteFrame_LengthHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, FramingLength, []byte("{}")))
	assert.Equal(t, []byte{0, 0, 0, 2, '{', '}'}, buf.Bytes())
}

func TestReadFrame_EmptyConnection(t *testing.T) {
	got, err := ReadFrame(strings.NewReader(""), 1024)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadFrame_CloseDelimitedTooLarge(t *testing.T) {
	_, err := ReadFrame(strings.NewReader(strings.Repeat("x", 11)), 10)
	assert.ErrorIs(t, err, ErrFrameTooLarge)

	got, err := ReadFrame(strings.NewReader(strings.Repeat("x", 10)), 10)
	require.NoError(t, err)
	assert.Len(t, got, 10)
}

func TestReadFrame_LengthPrefixedTooLarge(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, FramingLength, bytes.Repeat([]byte("x"), 64)))

	_, err := ReadFrame(&buf, 32)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestReadFrame_ShortFrame(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{name: "truncated header", input: []byte{0, 0}},
		{name: "truncated body", input: []byte{0, 0, 0, 5, '{', '}'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFrame(bytes.NewReader(tt.input), 1024)
			assert.ErrorIs(t, err, ErrShortFrame)
		})
	}
}

func TestReadFrame_IgnoresBytesAfterLengthPrefixedFrame(t *testing.T) {
	input := append([]byte{0, 0, 0, 2, '{', '}'}, []byte("trailing")...)
	got, err := ReadFrame(bytes.NewReader(input), 1024)
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), got)
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestReadFrame_PropagatesReadErrors(t *testing.T) {
	timeout := errors.New("i/o timeout")
	_, err := ReadFrame(failingReader{err: timeout}, 1024)
	assert.ErrorIs(t, err, timeout)

	_, err = ReadFrame(io.MultiReader(strings.NewReader("{"), failingReader{err: timeout}), 1024)
	assert.ErrorIs(t, err, timeout)
}

func TestWriteFrame_LengthRejectsOversize(t *testing.T) {
	if testing.Short() {
		t.Skip("allocates a 16 MiB buffer")
	}
	err := WriteFrame(io.Discard, FramingLength, make([]byte, MaxFrameSize+1))
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}
