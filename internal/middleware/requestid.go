package middleware

import (
	"github.com/google/uuid"

	"github.com/lexfrei/go-asynchttp/interceptor"
	"github.com/lexfrei/go-asynchttp/message"
)

// DefaultRequestIDHeader is the header used when RequestID is given an empty name.
const DefaultRequestIDHeader = "X-Request-ID"

// RequestID returns an interceptor that tags each request with a random
// UUID. A request that already carries the header keeps its value, and every
// retry of one request shares its ID.
func RequestID(headerName string) interceptor.Interceptor {
	if headerName == "" {
		headerName = DefaultRequestIDHeader
	}
	return interceptor.OnRequest(func(req *message.Request) (*message.Request, error) {
		if _, ok := req.Header(headerName); ok {
			return req, nil
		}
		return req.WithHeader(headerName, uuid.NewString()), nil
	})
}
