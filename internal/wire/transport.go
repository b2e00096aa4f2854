// transport.go — length-prefixed framing over the driver subprocess's stdio
// pipes. Frame format: 4-byte little-endian length followed by that many
// UTF-8 JSON bytes; there is no trailing terminator.
package wire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Transport moves raw JSON frames to/from the driver subprocess. One writer
// and one reader are expected to run concurrently against the pipe halves;
// Transport itself only serializes writes against a mutex so Send is safe
// to call from multiple goroutines.
type Transport struct {
	w io.Writer
	r io.Reader

	writeMu sync.Mutex

	inbound chan []byte
	closeCh chan struct{}
	closeOk sync.Once
}

// NewTransport wraps the write/read halves of a driver subprocess's stdio.
func NewTransport(w io.Writer, r io.Reader) *Transport {
	return &Transport{
		w:       w,
		r:       r,
		inbound: make(chan []byte, 64),
		closeCh: make(chan struct{}),
	}
}

// Send serializes value to JSON and writes a length-prefixed frame. A
// failure here is fatal to the connection.
func (t *Transport) Send(value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("wire: marshal frame: %w", err)
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := t.w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("wire: write length prefix: %w", err)
	}
	if _, err := t.w.Write(payload); err != nil {
		return fmt.Errorf("wire: write payload: %w", err)
	}
	return nil
}

// Inbound returns the channel of raw JSON payloads read from the pipe. It is
// closed when Run returns.
func (t *Transport) Inbound() <-chan []byte {
	return t.inbound
}

// Run reads frames until EOF or an I/O error, pushing each payload onto the
// inbound queue. Closing the queue signals the connection's dispatch loop
// to exit. Run is meant to be the body of the dedicated reader goroutine.
func (t *Transport) Run() error {
	defer t.closeOk.Do(func() { close(t.inbound) })

	var lenBuf [4]byte
	for {
		if _, err := io.ReadFull(t.r, lenBuf[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil
			}
			return fmt.Errorf("wire: read length prefix: %w", err)
		}
		n := binary.LittleEndian.Uint32(lenBuf[:])
		payload := make([]byte, n)
		if _, err := io.ReadFull(t.r, payload); err != nil {
			return fmt.Errorf("wire: read payload: %w", err)
		}

		select {
		case t.inbound <- payload:
		case <-t.closeCh:
			return nil
		}
	}
}

// Close signals Run to stop accepting further reads once in flight work
// drains. Safe to call multiple times.
func (t *Transport) Close() {
	select {
	case <-t.closeCh:
	default:
		close(t.closeCh)
	}
}
