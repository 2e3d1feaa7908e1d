// Package wire implements the intake → ingestion framing. Every TCP
// connection carries exactly one payload, delimited either by the peer
// closing the connection or by a 4-byte big-endian length prefix.
//
// Readers need no configuration: a length prefix always starts with 0x00
// because frames are capped below 16 MiB, and a JSON document never does.
package wire

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

// MaxFrameSize is the largest payload a length-prefixed frame can describe.
const MaxFrameSize = 1<<24 - 1

const headerSize = 4

// Framing selects how a writer delimits its payload.
type Framing int

const (
	// FramingClose writes the bare payload; the connection close ends it.
	FramingClose Framing = iota
	// FramingLength prefixes the payload with its length.
	FramingLength
)

var (
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
	ErrShortFrame    = errors.New("connection closed before frame was complete")
)

// ParseFraming maps a config value to a Framing. The empty string selects
// FramingClose.
func ParseFraming(s string) (Framing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "close":
		return FramingClose, nil
	case "length", "length-prefixed":
		return FramingLength, nil
	default:
		return FramingClose, fmt.Errorf("unknown framing %q (supported: close, length)", s)
	}
}

func (f Framing) String() string {
	switch f {
	case FramingClose:
		return "close"
	case FramingLength:
		return "length"
	default:
		return fmt.Sprintf("Framing(%d)", int(f))
	}
}

// WriteFrame writes payload to w using the given framing.
func WriteFrame(w io.Writer, f Framing, payload []byte) error {
	switch f {
	case FramingClose:
		_, err := w.Write(payload)
		return err
	case FramingLength:
		if len(payload) > MaxFrameSize {
			return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
		}
		buf := make([]byte, headerSize+len(payload))
		binary.BigEndian.PutUint32(buf, uint32(len(payload)))
		copy(buf[headerSize:], payload)
		_, err := w.Write(buf)
		return err
	default:
		return fmt.Errorf("unsupported framing %v", f)
	}
}

// ReadFrame reads one payload from r, detecting the framing from the first
// byte. maxSize bounds the payload; values <= 0 or above MaxFrameSize are
// clamped to MaxFrameSize. An empty connection yields an empty payload.
func ReadFrame(r io.Reader, maxSize int) ([]byte, error) {
	if maxSize <= 0 || maxSize > MaxFrameSize {
		maxSize = MaxFrameSize
	}

	br := bufio.NewReader(r)
	first, err := br.Peek(1)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []byte{}, nil
		}
		return nil, fmt.Errorf("read frame: %w", err)
	}

	if first[0] == 0x00 {
		return readLengthPrefixed(br, maxSize)
	}
	return readUntilClose(br, maxSize)
}

func readLengthPrefixed(r io.Reader, maxSize int) ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, ErrShortFrame
		}
		return nil, fmt.Errorf("read frame header: %w", err)
	}

	n := int(binary.BigEndian.Uint32(header[:]))
	if n > maxSize {
		return nil, fmt.Errorf("%w: header announces %d bytes, limit %d", ErrFrameTooLarge, n, maxSize)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, ErrShortFrame
		}
		return nil, fmt.Errorf("read frame body: %w", err)
	}
	return payload, nil
}

func readUntilClose(r io.Reader, maxSize int) ([]byte, error) {
	payload, err := io.ReadAll(io.LimitReader(r, int64(maxSize)+1))
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	if len(payload) > maxSize {
		return nil, fmt.Errorf("%w: limit %d", ErrFrameTooLarge, maxSize)
	}
	return payload, nil
}
