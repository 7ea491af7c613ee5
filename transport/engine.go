package transport

import "github.com/lexfrei/go-asynchttp/message"

// Engine creates calls for requests.
type Engine interface {
	NewCall(req *message.Request) (Call, error)
}

// Call is a single request/response exchange.
type Call interface {
	// Request returns the request the call was created for.
	Request() *message.Request

	// Enqueue schedules the call. The callback receives exactly one
	// notification. Enqueueing a call twice fails the second callback with
	// ErrAlreadyExecuted.
	Enqueue(cb Callback)

	// Cancel aborts the call. It does nothing once a response was delivered.
	Cancel()

	IsCanceled() bool
	IsExecuted() bool
}

// Callback receives the outcome of a call.
type Callback interface {
	OnResponse(call Call, resp *message.Response)
	OnFailure(call Call, err error)
}

// CallbackFuncs adapts two functions to Callback.
type CallbackFuncs struct {
	Response func(call Call, resp *message.Response)
	Failure  func(call Call, err error)
}

func (f CallbackFuncs) OnResponse(call Call, resp *message.Response) {
	if f.Response != nil {
		f.Response(call, resp)
		return
	}
	_ = resp.Close()
}

func (f CallbackFuncs) OnFailure(call Call, err error) {
	if f.Failure != nil {
		f.Failure(call, err)
	}
}
