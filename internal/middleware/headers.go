// Package middleware provides the built-in interceptors of the client.
package middleware

import (
	"github.com/lexfrei/go-asynchttp/interceptor"
	"github.com/lexfrei/go-asynchttp/message"
)

// Header returns an interceptor that sets a header on every request.
// Common header names:
// - "Authorization" for Bearer tokens.
// - "X-Api-Key" for API key authentication.
func Header(name, value string) interceptor.Interceptor {
	return interceptor.OnRequest(func(req *message.Request) (*message.Request, error) {
		// WithHeader copies, so concurrent calls never share header state.
		return req.WithHeader(name, value), nil
	})
}

// DefaultHeader returns an interceptor that sets a header only on requests
// that do not carry it yet.
func DefaultHeader(name, value string) interceptor.Interceptor {
	return interceptor.OnRequest(func(req *message.Request) (*message.Request, error) {
		if _, ok := req.Header(name); ok {
			return req, nil
		}
		return req.WithHeader(name, value), nil
	})
}

// BearerToken returns an interceptor that authenticates with a bearer token.
func BearerToken(token string) interceptor.Interceptor {
	return Header("Authorization", "Bearer "+token)
}

// UserAgent returns an interceptor that sets User-Agent unless the request has one.
func UserAgent(agent string) interceptor.Interceptor {
	return DefaultHeader("User-Agent", agent)
}
