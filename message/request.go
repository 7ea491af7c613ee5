package message

import (
	"context"
	"net/url"

	"github.com/cockroachdb/errors"
)

// ErrInvalidRequest marks requests that cannot be built.
var ErrInvalidRequest = errors.New("invalid request")

// Request is an outgoing HTTP request. It is immutable: With* methods return
// modified copies.
type Request struct {
	ctx     context.Context
	method  Method
	url     *url.URL
	headers *Headers
	body    *RequestBody
}

// NewRequest builds a request with a background context.
// An empty method means GET; body may be nil.
func NewRequest(method Method, rawURL string, body *RequestBody) (*Request, error) {
	return NewRequestWithContext(context.Background(), method, rawURL, body)
}

// NewRequestWithContext builds a request bound to ctx.
func NewRequestWithContext(ctx context.Context, method Method, rawURL string, body *RequestBody) (*Request, error) {
	if ctx == nil {
		return nil, errors.Mark(errors.New("nil context"), ErrInvalidRequest)
	}
	if method == "" {
		method = MethodGet
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "parse url %q", rawURL), ErrInvalidRequest)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Mark(errors.Newf("url %q must be absolute", rawURL), ErrInvalidRequest)
	}

	return &Request{
		ctx:     ctx,
		method:  method,
		url:     u,
		headers: NewHeaders(),
		body:    body,
	}, nil
}

// Context returns the request context. It is never nil.
func (r *Request) Context() context.Context {
	return r.ctx
}

// Method returns the request method.
func (r *Request) Method() Method {
	return r.method
}

// URL returns a copy of the target URL.
func (r *Request) URL() *url.URL {
	u := *r.url
	if r.url.User != nil {
		user := *r.url.User
		u.User = &user
	}
	return &u
}

// Header returns the first value of name.
func (r *Request) Header(name string) (string, bool) {
	return r.headers.Get(name)
}

// Headers returns a copy of the request headers.
func (r *Request) Headers() *Headers {
	return r.headers.Clone()
}

// Body returns the request body, or nil.
func (r *Request) Body() *RequestBody {
	return r.body
}

// ContentType returns the Content-Type header, falling back to the body's
// declared type.
func (r *Request) ContentType() string {
	if ct, ok := r.headers.Get("Content-Type"); ok {
		return ct
	}
	return r.body.ContentType()
}

// ContentLength returns the declared body length, -1 when unknown and 0
// without a body.
func (r *Request) ContentLength() int64 {
	return r.body.ContentLength()
}

func (r *Request) clone() *Request {
	out := *r
	out.url = r.URL()
	out.headers = r.headers.Clone()
	return &out
}

// WithContext returns a copy bound to ctx.
func (r *Request) WithContext(ctx context.Context) *Request {
	if ctx == nil {
		panic("message: nil context")
	}
	out := r.clone()
	out.ctx = ctx
	return out
}

// WithMethod returns a copy using method.
func (r *Request) WithMethod(method Method) *Request {
	out := r.clone()
	out.method = method
	return out
}

// WithURL returns a copy targeting u.
func (r *Request) WithURL(u *url.URL) *Request {
	out := r.clone()
	cp := *u
	out.url = &cp
	return out
}

// WithHeader returns a copy where name is set to value, replacing earlier values.
func (r *Request) WithHeader(name, value string) *Request {
	out := r.clone()
	out.headers.Set(name, value)
	return out
}

// WithAddedHeader returns a copy with value appended to name.
func (r *Request) WithAddedHeader(name, value string) *Request {
	out := r.clone()
	out.headers.Add(name, value)
	return out
}

// WithoutHeader returns a copy without name.
func (r *Request) WithoutHeader(name string) *Request {
	out := r.clone()
	out.headers.Del(name)
	return out
}

// WithBody returns a copy carrying body.
func (r *Request) WithBody(body *RequestBody) *Request {
	out := r.clone()
	out.body = body
	return out
}
