package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// DefaultMaxFrameBytes bounds a single length-prefixed payload.
const DefaultMaxFrameBytes = 2_000_000

const frameHeaderSize = 4

// ReadFrame reads one big-endian u32 length prefix and the payload it announces.
// A clean EOF before the header is returned as io.EOF.
func ReadFrame(r io.Reader, maxBytes int) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFrameBytes
	}
	var hdr [frameHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n == 0 {
		return nil, ErrEmptyFrame
	}
	if uint64(n) > uint64(maxBytes) {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, n, maxBytes)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}

// WriteFrame writes payload with its length prefix in a single Write call.
func WriteFrame(w io.Writer, payload []byte, maxBytes int) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFrameBytes
	}
	if len(payload) == 0 {
		return ErrEmptyFrame
	}
	if len(payload) > maxBytes {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, len(payload), maxBytes)
	}
	buf := make([]byte, frameHeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[frameHeaderSize:], payload)
	_, err := w.Write(buf)
	return err
}
