package dispatch

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const readChunkSize = 32 * 1024

var (
	// ErrBodyTooLarge is returned once the accumulated body exceeds the
	// configured limit.
	ErrBodyTooLarge = errors.New("dispatch: request body too large")
	// ErrBodyFinished is returned when writing to a finished accumulator.
	ErrBodyFinished = errors.New("dispatch: body already finished")
)

// Accumulator assembles a request body from raw chunks into UTF-8 text.
// A multi-byte sequence split across chunks is held back until the rest
// arrives; invalid bytes decode to U+FFFD. It is not safe for concurrent
// use: chunks of one request arrive in order on one goroutine.
type Accumulator struct {
	text  strings.Builder
	dec   *transform.Writer
	size  int64
	limit int64
	done  bool
}

// NewAccumulator returns an accumulator that rejects bodies larger than
// limit bytes. A limit of zero or less disables the check.
func NewAccumulator(limit int64) *Accumulator {
	a := &Accumulator{limit: limit}
	a.dec = transform.NewWriter(&a.text, unicode.UTF8.NewDecoder())
	return a
}

// Write decodes one chunk and appends it to the body.
func (a *Accumulator) Write(chunk []byte) (int, error) {
	if a.done {
		return 0, ErrBodyFinished
	}
	a.size += int64(len(chunk))
	if a.limit > 0 && a.size > a.limit {
		return 0, ErrBodyTooLarge
	}
	if _, err := a.dec.Write(chunk); err != nil {
		return 0, err
	}
	return len(chunk), nil
}

// Size returns the number of raw bytes written so far.
func (a *Accumulator) Size() int64 { return a.size }

// Finish flushes any buffered partial code point and returns the body.
// Later calls return the same text.
func (a *Accumulator) Finish() string {
	if !a.done {
		a.done = true
		_ = a.dec.Close()
	}
	return a.text.String()
}

// ReadBody drains r through an Accumulator in chunks and returns the
// finished text together with the raw byte count.
func ReadBody(r io.Reader, limit int64) (string, int64, error) {
	acc := NewAccumulator(limit)
	if r == nil {
		return acc.Finish(), 0, nil
	}
	buf := make([]byte, readChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := acc.Write(buf[:n]); werr != nil {
				return "", acc.Size(), werr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", acc.Size(), err
		}
	}
	return acc.Finish(), acc.Size(), nil
}
