package message

import (
	"bytes"
	"io"
	"iter"
	"net/http"

	"github.com/cockroachdb/errors"
	"go.uber.org/atomic"
)

// DefaultChunkSize is the chunk size used by Chunks when none is given.
const DefaultChunkSize = 32 * 1024

// ErrBodyConsumed is returned when a single-read body is read after it was
// already claimed by a reader or closed.
var ErrBodyConsumed = errors.New("response body already consumed or closed")

// Body is the payload of a response.
//
// A streamed body wraps the live transport stream and may be claimed by
// exactly one reader; the claim is a single compare-and-set, so of two
// concurrent readers one wins and the other gets ErrBodyConsumed. A buffered
// body is held in memory and may be read any number of times.
type Body struct {
	claimed  atomic.Bool
	stream   io.ReadCloser
	data     []byte
	buffered bool
}

func newStreamBody(rc io.ReadCloser) *Body {
	if rc == nil {
		rc = http.NoBody
	}
	return &Body{stream: rc}
}

func newBufferedBody(data []byte) *Body {
	return &Body{data: data, buffered: true}
}

// IsBuffered reports whether the body is replayable.
func (b *Body) IsBuffered() bool {
	return b.buffered
}

func (b *Body) claim() error {
	if b.buffered {
		return nil
	}
	if !b.claimed.CompareAndSwap(false, true) {
		return ErrBodyConsumed
	}
	return nil
}

// Bytes reads the whole body. A streamed body is closed afterwards.
func (b *Body) Bytes() ([]byte, error) {
	if b.buffered {
		return bytes.Clone(b.data), nil
	}
	if err := b.claim(); err != nil {
		return nil, err
	}
	defer b.stream.Close()

	data, err := io.ReadAll(b.stream)
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}
	return data, nil
}

// Reader hands out the body as a stream. For a streamed body the caller
// owns the returned reader and must close it.
func (b *Body) Reader() (io.ReadCloser, error) {
	if b.buffered {
		return io.NopCloser(bytes.NewReader(b.data)), nil
	}
	if err := b.claim(); err != nil {
		return nil, err
	}
	return b.stream, nil
}

// Chunks yields the body in chunks of at most size bytes (DefaultChunkSize
// when size is not positive). A streamed body is claimed when iteration
// starts and closed when it ends; iterating it again yields ErrBodyConsumed.
func (b *Body) Chunks(size int) iter.Seq2[[]byte, error] {
	if size <= 0 {
		size = DefaultChunkSize
	}

	return func(yield func([]byte, error) bool) {
		if b.buffered {
			for start := 0; start < len(b.data); start += size {
				end := min(start+size, len(b.data))
				if !yield(bytes.Clone(b.data[start:end]), nil) {
					return
				}
			}
			return
		}

		if err := b.claim(); err != nil {
			yield(nil, err)
			return
		}
		defer b.stream.Close()

		buf := make([]byte, size)
		for {
			n, err := b.stream.Read(buf)
			if n > 0 {
				if !yield(bytes.Clone(buf[:n]), nil) {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, errors.Wrap(err, "read response body"))
				return
			}
		}
	}
}

// Close releases the underlying stream without reading it. Closing a body
// that was already claimed, or a buffered body, does nothing.
func (b *Body) Close() error {
	if b.buffered {
		return nil
	}
	if !b.claimed.CompareAndSwap(false, true) {
		return nil
	}
	if err := b.stream.Close(); err != nil {
		return errors.Wrap(err, "close response body")
	}
	return nil
}
