package message

import (
	"context"
	"io"
	"net/http"

	"github.com/cockroachdb/errors"
)

// ToHTTPRequest converts req into a net/http request bound to ctx.
// The body is opened here; GetBody reopens it for redirects and retries
// performed by net/http itself.
func ToHTTPRequest(ctx context.Context, req *Request) (*http.Request, error) {
	var body io.ReadCloser
	if req.body != nil && req.body.ContentLength() != 0 {
		rc, err := req.body.Open()
		if err != nil {
			return nil, err
		}
		body = rc
	}

	httpReq, err := http.NewRequestWithContext(ctx, string(req.method), req.url.String(), body)
	if err != nil {
		if body != nil {
			_ = body.Close()
		}
		return nil, errors.Mark(errors.Wrap(err, "build http request"), ErrInvalidRequest)
	}

	httpReq.Header = req.headers.HTTP()
	if body != nil {
		httpReq.ContentLength = req.body.ContentLength()
		httpReq.GetBody = req.body.Open
		if httpReq.Header.Get("Content-Type") == "" && req.body.ContentType() != "" {
			httpReq.Header.Set("Content-Type", req.body.ContentType())
		}
	}

	return httpReq, nil
}

// FromHTTPResponse wraps resp as a streamed Response produced by req.
func FromHTTPResponse(req *Request, resp *http.Response) *Response {
	return &Response{
		request: req,
		status:  resp.StatusCode,
		headers: HeadersFromHTTP(resp.Header),
		body:    newStreamBody(resp.Body),
	}
}
