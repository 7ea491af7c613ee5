package message

import (
	"io"
	"iter"
	"mime"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/encoding/htmlindex"
)

// Response is the result of one HTTP exchange. A streamed response owns its
// transport stream until the body is consumed or the response is closed.
type Response struct {
	request *Request
	status  int
	headers *Headers
	body    *Body
}

// NewResponse builds a response over a live stream. headers may be nil.
func NewResponse(req *Request, status int, headers *Headers, body io.ReadCloser) *Response {
	return &Response{
		request: req,
		status:  status,
		headers: headers.Clone(),
		body:    newStreamBody(body),
	}
}

// NewBufferedResponse builds a response whose body is already in memory.
func NewBufferedResponse(req *Request, status int, headers *Headers, body []byte) *Response {
	return &Response{
		request: req,
		status:  status,
		headers: headers.Clone(),
		body:    newBufferedBody(body),
	}
}

// Request returns the request that produced the response.
func (r *Response) Request() *Request {
	return r.request
}

// StatusCode returns the HTTP status code.
func (r *Response) StatusCode() int {
	return r.status
}

// Header returns the first value of name and whether it is present.
func (r *Response) Header(name string) (string, bool) {
	return r.headers.Get(name)
}

// Headers returns a copy of the response headers.
func (r *Response) Headers() *Headers {
	return r.headers.Clone()
}

// ContentType returns the Content-Type header value.
func (r *Response) ContentType() string {
	ct, _ := r.headers.Get("Content-Type")
	return ct
}

// Body returns the body accessor.
func (r *Response) Body() *Body {
	return r.body
}

// IsBuffered reports whether the body can be read more than once.
func (r *Response) IsBuffered() bool {
	return r.body.IsBuffered()
}

// Bytes reads the whole body.
func (r *Response) Bytes() ([]byte, error) {
	return r.body.Bytes()
}

// Text reads the whole body and decodes it using the charset declared in
// Content-Type. Without a declaration, or with an unknown one, UTF-8 is
// assumed.
func (r *Response) Text() (string, error) {
	data, err := r.body.Bytes()
	if err != nil {
		return "", err
	}
	return decodeText(data, r.ContentType())
}

// DecodeJSON reads the whole body and unmarshals it into v.
func (r *Response) DecodeJSON(v any) error {
	data, err := r.body.Bytes()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, "decode json response")
	}
	return nil
}

// Chunks iterates over the body incrementally. See Body.Chunks.
func (r *Response) Chunks(size int) iter.Seq2[[]byte, error] {
	return r.body.Chunks(size)
}

// Close releases the body stream if nobody consumed it.
func (r *Response) Close() error {
	return r.body.Close()
}

// Buffer drains a streamed body into memory, closes the stream and returns a
// response whose body can be replayed. A buffered response returns itself.
// Buffering a body that was already consumed fails with ErrBodyConsumed.
func (r *Response) Buffer() (*Response, error) {
	if r.body.IsBuffered() {
		return r, nil
	}
	data, err := r.body.Bytes()
	if err != nil {
		return nil, err
	}
	return &Response{
		request: r.request,
		status:  r.status,
		headers: r.headers,
		body:    newBufferedBody(data),
	}, nil
}

// WithHeader returns a copy with name set to value. The copy shares the body.
func (r *Response) WithHeader(name, value string) *Response {
	out := *r
	out.headers = r.headers.Clone()
	out.headers.Set(name, value)
	return &out
}

func decodeText(data []byte, contentType string) (string, error) {
	label := charsetOf(contentType)
	if label == "" || strings.EqualFold(label, "utf-8") || strings.EqualFold(label, "utf8") {
		return string(data), nil
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return string(data), nil
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", errors.Wrapf(err, "decode %s body", label)
	}
	return string(decoded), nil
}

func charsetOf(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}
