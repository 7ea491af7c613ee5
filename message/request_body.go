package message

import (
	"bytes"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RequestBody is a replayable request payload: either bytes held in memory
// or a stream opened lazily each time the transport needs it.
type RequestBody struct {
	contentType string
	length      int64
	data        []byte
	open        func() (io.ReadCloser, error)
}

// BytesBody returns a body holding a copy of data.
func BytesBody(data []byte, contentType string) *RequestBody {
	return &RequestBody{
		contentType: contentType,
		length:      int64(len(data)),
		data:        bytes.Clone(data),
	}
}

// StringBody returns a body holding s.
func StringBody(s, contentType string) *RequestBody {
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}
	return &RequestBody{
		contentType: contentType,
		length:      int64(len(s)),
		data:        []byte(s),
	}
}

// JSONBody encodes v as JSON.
func JSONBody(v any) (*RequestBody, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode json body")
	}
	return &RequestBody{
		contentType: "application/json",
		length:      int64(len(data)),
		data:        data,
	}, nil
}

// StreamBody returns a body produced by open. open is called once per
// transmission, so it must return a fresh stream every time. A negative
// length means unknown.
func StreamBody(open func() (io.ReadCloser, error), contentType string, length int64) *RequestBody {
	if length < 0 {
		length = -1
	}
	return &RequestBody{
		contentType: contentType,
		length:      length,
		open:        open,
	}
}

// ContentType returns the declared content type.
func (b *RequestBody) ContentType() string {
	if b == nil {
		return ""
	}
	return b.contentType
}

// ContentLength returns the declared length, -1 when unknown.
func (b *RequestBody) ContentLength() int64 {
	if b == nil {
		return 0
	}
	return b.length
}

// Open returns a fresh reader over the payload.
func (b *RequestBody) Open() (io.ReadCloser, error) {
	if b == nil {
		return io.NopCloser(strings.NewReader("")), nil
	}
	if b.open == nil {
		return io.NopCloser(bytes.NewReader(b.data)), nil
	}
	rc, err := b.open()
	if err != nil {
		return nil, errors.Wrap(err, "open request body")
	}
	return rc, nil
}
