// Package message holds the request and response model shared by the
// interceptor chain and the transport.
//
// Requests are value-like: every With* method returns a modified copy and
// leaves the receiver untouched, so one request can travel through a chain
// of interceptors, or through concurrent calls, without aliasing.
//
// Response bodies come in two modes. A streamed body is single-read: the
// first reader claims it, and every later read fails with ErrBodyConsumed.
// Response.Buffer drains the stream once into memory and returns a response
// whose body can be read any number of times.
//
// Headers are case-insensitive and keep insertion order. Set replaces every
// value of a name (last write wins); Add appends.
package message
